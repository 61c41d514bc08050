package recommend

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/selivandex/regime-watch/pkg/logger"
	"github.com/selivandex/regime-watch/pkg/models"
)

func TestMain(m *testing.M) {
	logger.InitForTesting()
	m.Run()
}

type fakeSink struct {
	calls   int
	records []models.RecommendationRecord
	err     error
}

func (f *fakeSink) Publish(ctx context.Context, records []models.RecommendationRecord) error {
	f.calls++
	f.records = append(f.records, records...)
	return f.err
}

func correctionTransition() models.RegimeTransition {
	return models.RegimeTransition{
		From: models.RegimeNeutral,
		To:   models.RegimeCorrection,
		At:   time.Now(),
	}
}

func correctionSnapshot() models.IndicatorSnapshot {
	return models.IndicatorSnapshot{
		Symbol:              "SPY",
		Price:               400,
		PriceChangeFromHigh: -0.12,
		RSI:                 35,
		MACD:                models.MACDIndicator{Line: -1, Signal: 0},
		ImpliedFear:         30,
		BreadthRatio:        0.6,
	}
}

func TestEstimatePremium(t *testing.T) {
	t.Run("clamps to the floor", func(t *testing.T) {
		if got := estimatePremium(10, 5, true, 0, 45); got != 0.5 {
			t.Errorf("expected floor 0.5, got %f", got)
		}
	})

	t.Run("pure intrinsic with zero fear", func(t *testing.T) {
		if got := estimatePremium(100, 110, true, 0, 45); math.Abs(got-10) > 1e-9 {
			t.Errorf("expected intrinsic 10, got %f", got)
		}
	})

	t.Run("time value scales with fear and tenor", func(t *testing.T) {
		want := math.Sqrt(45.0/365.0) * 30.0 / 100 * 400 * 0.4
		if got := estimatePremium(400, 380, true, 30, 45); math.Abs(got-want) > 1e-9 {
			t.Errorf("expected %f, got %f", want, got)
		}
	})

	t.Run("call intrinsic", func(t *testing.T) {
		got := estimatePremium(120, 100, false, 0, 45)
		if math.Abs(got-20) > 1e-9 {
			t.Errorf("expected intrinsic 20, got %f", got)
		}
	})
}

func TestPublisher_BuildCorrection(t *testing.T) {
	p := NewPublisher(nil)

	records := p.Build(correctionTransition(), correctionSnapshot(), nil)
	if len(records) != 2 {
		t.Fatalf("expected protective put plus inverse exposure, got %d records", len(records))
	}

	put := records[0]
	if put.Direction != models.DirectionLongPut {
		t.Errorf("expected long_put first, got %s", put.Direction)
	}
	if !strings.Contains(put.Instrument, "SPY") || !strings.Contains(put.Instrument, "P") {
		t.Errorf("unexpected put instrument %q", put.Instrument)
	}
	if models.ToFloat64(put.Entry) < 0.5 {
		t.Errorf("entry must respect the premium floor, got %s", put.Entry)
	}
	if models.ToFloat64(put.Target) <= models.ToFloat64(put.Entry) {
		t.Errorf("target %s should exceed entry %s for a long premium position", put.Target, put.Entry)
	}

	hedge := records[1]
	if hedge.Direction != models.DirectionLong || !strings.Contains(hedge.Instrument, "inverse") {
		t.Errorf("expected long inverse exposure, got %s %s", hedge.Direction, hedge.Instrument)
	}

	for _, rec := range records {
		if rec.ID == "" {
			t.Error("record must carry an ID")
		}
		if rec.SourceRegimeTransition.To != models.RegimeCorrection {
			t.Errorf("record must carry its source transition, got %+v", rec.SourceRegimeTransition)
		}
		if len(rec.Rationale) == 0 {
			t.Error("record must carry a rationale")
		}
	}
}

func TestPublisher_DirectionBiasByState(t *testing.T) {
	p := NewPublisher(nil)
	snap := correctionSnapshot()

	cases := []struct {
		state models.RegimeState
		want  models.Direction
	}{
		{models.RegimeSevereCorrection, models.DirectionLongPut},
		{models.RegimeCorrection, models.DirectionLongPut},
		{models.RegimeBearish, models.DirectionShort},
		{models.RegimeBullish, models.DirectionLong},
		{models.RegimeRecovery, models.DirectionLong},
	}

	for _, tc := range cases {
		tr := models.RegimeTransition{From: models.RegimeNeutral, To: tc.state, At: time.Now()}
		records := p.Build(tr, snap, nil)
		if len(records) == 0 {
			t.Errorf("%s: expected records", tc.state)
			continue
		}
		if records[0].Direction != tc.want {
			t.Errorf("%s: expected first direction %s, got %s", tc.state, tc.want, records[0].Direction)
		}
	}
}

func TestPublisher_NeutralProducesNothing(t *testing.T) {
	p := NewPublisher(nil)

	tr := models.RegimeTransition{From: models.RegimeBearish, To: models.RegimeNeutral, At: time.Now()}
	if records := p.Build(tr, correctionSnapshot(), nil); len(records) != 0 {
		t.Errorf("neutral transitions carry no bias, got %d records", len(records))
	}
}

func TestPublisher_RationaleIncludesEpisodeAge(t *testing.T) {
	p := NewPublisher(nil)

	episode := &models.CorrectionEpisode{
		StartedAt:    time.Now().AddDate(0, 0, -10),
		DepthAtStart: -0.18,
		LowPrice:     350,
	}

	records := p.Build(correctionTransition(), correctionSnapshot(), episode)
	if len(records) == 0 {
		t.Fatal("expected records")
	}

	joined := strings.Join(records[0].Rationale, "\n")
	if !strings.Contains(joined, "10 days ago") {
		t.Errorf("expected episode age in rationale, got:\n%s", joined)
	}
	if !strings.Contains(joined, "-18.0%") {
		t.Errorf("expected episode depth in rationale, got:\n%s", joined)
	}
}

func TestPublisher_OnTransitionForwardsToSink(t *testing.T) {
	sink := &fakeSink{}
	p := NewPublisher(sink)

	p.OnTransition(correctionTransition(), correctionSnapshot(), nil)

	if sink.calls != 1 {
		t.Fatalf("expected one publish call, got %d", sink.calls)
	}
	if len(sink.records) != 2 {
		t.Errorf("expected 2 records delivered, got %d", len(sink.records))
	}
}

func TestPublisher_SinkFailureIsSwallowed(t *testing.T) {
	sink := &fakeSink{err: errors.New("chat unreachable")}
	p := NewPublisher(sink)

	// Fire-and-forget: a failing sink must not panic or propagate
	p.OnTransition(correctionTransition(), correctionSnapshot(), nil)

	if sink.calls != 1 {
		t.Errorf("expected publish attempted once, got %d", sink.calls)
	}
}
