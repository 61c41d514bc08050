package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/selivandex/regime-watch/pkg/logger"
	"github.com/selivandex/regime-watch/pkg/models"
)

// Sink receives published recommendation records. Fire-and-forget from the
// publisher's perspective; delivery failures are logged, never propagated.
type Sink interface {
	Publish(ctx context.Context, records []models.RecommendationRecord) error
}

// Publisher synthesizes priced recommendations at regime-transition edges
// and forwards them to the sink
type Publisher struct {
	sink Sink
	now  func() time.Time
}

// NewPublisher creates a publisher. sink may be nil, in which case records
// are only logged.
func NewPublisher(sink Sink) *Publisher {
	return &Publisher{
		sink: sink,
		now:  time.Now,
	}
}

// OnTransition satisfies the classifier's transition callback
func (p *Publisher) OnTransition(t models.RegimeTransition, snap models.IndicatorSnapshot, episode *models.CorrectionEpisode) {
	records := p.Build(t, snap, episode)
	if len(records) == 0 {
		return
	}

	logger.Info("publishing recommendations",
		zap.String("regime", string(t.To)),
		zap.Int("count", len(records)),
	)

	if p.sink == nil {
		return
	}
	if err := p.sink.Publish(context.Background(), records); err != nil {
		logger.Error("failed to publish recommendations", zap.Error(err))
	}
}

// Build produces the recommendation records for one regime edge. It is a
// pure transformation of its inputs (modulo the generated IDs/timestamps)
// and performs no I/O.
func (p *Publisher) Build(t models.RegimeTransition, snap models.IndicatorSnapshot, episode *models.CorrectionEpisode) []models.RecommendationRecord {
	specs := playbook(t.To)
	if len(specs) == 0 {
		return nil
	}

	now := p.now()
	rationale := p.rationale(t, snap, episode, now)

	records := make([]models.RecommendationRecord, 0, len(specs))
	for _, spec := range specs {
		entry := spec.entry(snap)
		records = append(records, models.RecommendationRecord{
			ID:                     uuid.NewString(),
			Instrument:             spec.instrument(snap),
			Direction:              spec.direction,
			Entry:                  models.NewPrice(entry),
			Target:                 models.NewPrice(entry * spec.targetMult),
			StopLoss:               models.NewPrice(entry * spec.stopMult),
			Confidence:             spec.confidence,
			Rationale:              rationale,
			GeneratedAt:            now,
			SourceRegimeTransition: t,
		})
	}

	return records
}

func (p *Publisher) rationale(t models.RegimeTransition, snap models.IndicatorSnapshot, episode *models.CorrectionEpisode, now time.Time) []string {
	lines := []string{
		fmt.Sprintf("regime shifted %s -> %s", t.From, t.To),
		fmt.Sprintf("price %.2f, %.1f%% off the rolling high", snap.Price, snap.PriceChangeFromHigh*100),
		fmt.Sprintf("RSI %.1f, implied fear %.1f, breadth %.2f", snap.RSI, snap.ImpliedFear, snap.BreadthRatio),
	}

	if snap.MACD.Bullish() {
		lines = append(lines, "MACD crossed above its signal line")
	} else {
		lines = append(lines, "MACD below its signal line")
	}

	if episode != nil {
		days := episode.DaysOpen(now)
		switch days {
		case 0:
			lines = append(lines, fmt.Sprintf("correction opened today at %.1f%% depth", episode.DepthAtStart*100))
		default:
			lines = append(lines, fmt.Sprintf("correction began %d days ago at %.1f%% depth", days, episode.DepthAtStart*100))
		}
	}

	return lines
}
