package sentiment

import (
	"testing"
	"time"

	"github.com/selivandex/regime-watch/pkg/models"
)

func TestScore(t *testing.T) {
	a := NewAnalyzer()

	t.Run("positive headline", func(t *testing.T) {
		if got := a.Score("Stocks rally on dovish surprise, bulls see strong recovery"); got <= 0 {
			t.Errorf("expected positive score, got %f", got)
		}
	})

	t.Run("negative headline", func(t *testing.T) {
		if got := a.Score("Markets crash as recession fears spark panic selloff"); got >= 0 {
			t.Errorf("expected negative score, got %f", got)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		if got := a.Score(""); got != 0 {
			t.Errorf("expected 0 for empty text, got %f", got)
		}
	})

	t.Run("no matched keywords", func(t *testing.T) {
		if got := a.Score("The committee meets on Thursday afternoon"); got != 0 {
			t.Errorf("expected 0 without keyword matches, got %f", got)
		}
	})

	t.Run("punctuation is stripped", func(t *testing.T) {
		if got := a.Score("Rally!"); got <= 0 {
			t.Errorf("expected trimmed word to match, got %f", got)
		}
	})

	t.Run("clamped to range", func(t *testing.T) {
		got := a.Score("crash crash crash crash")
		if got < -1.0 || got > 1.0 {
			t.Errorf("score out of range: %f", got)
		}
	})
}

func TestScoreItems(t *testing.T) {
	a := NewAnalyzer()
	now := time.Now()

	t.Run("empty slice", func(t *testing.T) {
		if got := a.ScoreItems(nil, now); got != 0 {
			t.Errorf("expected 0 for no items, got %f", got)
		}
	})

	t.Run("scores items in place", func(t *testing.T) {
		items := []models.NewsItem{
			{Title: "Huge rally lifts every sector", PublishedAt: now},
			{Title: "Panic selloff deepens the crash", PublishedAt: now},
		}

		a.ScoreItems(items, now)

		if items[0].Sentiment <= 0 {
			t.Errorf("expected positive per-item sentiment, got %f", items[0].Sentiment)
		}
		if items[1].Sentiment >= 0 {
			t.Errorf("expected negative per-item sentiment, got %f", items[1].Sentiment)
		}
	})

	t.Run("aggregate follows the balance of headlines", func(t *testing.T) {
		bearish := []models.NewsItem{
			{Title: "Recession fears trigger panic", PublishedAt: now},
			{Title: "Crash wipes out gains in brutal selloff", PublishedAt: now},
			{Title: "Markets rally slightly", PublishedAt: now},
		}
		if got := a.ScoreItems(bearish, now); got >= 0 {
			t.Errorf("expected negative aggregate, got %f", got)
		}

		bullish := []models.NewsItem{
			{Title: "Dovish pivot sparks massive rally", PublishedAt: now},
			{Title: "Strong growth fuels record gains", PublishedAt: now},
		}
		if got := a.ScoreItems(bullish, now); got <= 0 {
			t.Errorf("expected positive aggregate, got %f", got)
		}
	})

	t.Run("stale items carry half weight", func(t *testing.T) {
		fresh := []models.NewsItem{
			{Title: "Brutal crash and panic selloff", PublishedAt: now},
			{Title: "Rally rally rally", PublishedAt: now.Add(-48 * time.Hour)},
		}
		stale := []models.NewsItem{
			{Title: "Brutal crash and panic selloff", PublishedAt: now.Add(-48 * time.Hour)},
			{Title: "Rally rally rally", PublishedAt: now},
		}

		// The same pair of headlines should aggregate more negative when
		// the bearish one is the fresh one
		if a.ScoreItems(fresh, now) >= a.ScoreItems(stale, now) {
			t.Error("expected fresh bearish headline to outweigh a stale one")
		}
	})

	t.Run("aggregate stays in range", func(t *testing.T) {
		items := []models.NewsItem{
			{Title: "crash crash crash crash crash", PublishedAt: now},
			{Title: "panic panic panic panic panic", PublishedAt: now},
		}
		got := a.ScoreItems(items, now)
		if got < -1.0 || got > 1.0 {
			t.Errorf("aggregate out of range: %f", got)
		}
	})
}
