package recommend

import (
	"fmt"
	"math"

	"github.com/selivandex/regime-watch/pkg/models"
)

// optionDaysToExpiry is the horizon used for the estimated option premiums
const optionDaysToExpiry = 45

// tradeSpec describes one deterministic recommendation for a regime
type tradeSpec struct {
	direction  models.Direction
	confidence float64
	targetMult float64
	stopMult   float64
	instrument func(snap models.IndicatorSnapshot) string
	entry      func(snap models.IndicatorSnapshot) float64
}

// playbook is the deterministic state-to-instrument lookup. Correction
// states bias toward protective and short exposure, bullish and recovery
// states toward long exposure.
func playbook(state models.RegimeState) []tradeSpec {
	switch state {
	case models.RegimeSevereCorrection:
		return []tradeSpec{
			protectivePut(0.90, 0.85),
			inverseETF(0.70),
		}
	case models.RegimeCorrection:
		return []tradeSpec{
			protectivePut(0.95, 0.75),
			inverseETF(0.55),
		}
	case models.RegimeBearish:
		return []tradeSpec{
			shortUnderlying(0.50),
		}
	case models.RegimeBullish:
		return []tradeSpec{
			longUnderlying(0.65),
		}
	case models.RegimeRecovery:
		return []tradeSpec{
			longUnderlying(0.80),
			reboundCall(1.02, 0.70),
		}
	default:
		// Neutral transitions carry no actionable bias
		return nil
	}
}

// protectivePut buys a put struck at strikePct of spot
func protectivePut(strikePct, confidence float64) tradeSpec {
	return tradeSpec{
		direction:  models.DirectionLongPut,
		confidence: confidence,
		targetMult: 2.0,
		stopMult:   0.5,
		instrument: func(snap models.IndicatorSnapshot) string {
			return fmt.Sprintf("%s %.0fP %dd", snap.Symbol, roundStrike(snap.Price*strikePct), optionDaysToExpiry)
		},
		entry: func(snap models.IndicatorSnapshot) float64 {
			return estimatePremium(snap.Price, roundStrike(snap.Price*strikePct), true, snap.ImpliedFear, optionDaysToExpiry)
		},
	}
}

// reboundCall buys a slightly out-of-the-money call
func reboundCall(strikePct, confidence float64) tradeSpec {
	return tradeSpec{
		direction:  models.DirectionLongCall,
		confidence: confidence,
		targetMult: 2.0,
		stopMult:   0.5,
		instrument: func(snap models.IndicatorSnapshot) string {
			return fmt.Sprintf("%s %.0fC %dd", snap.Symbol, roundStrike(snap.Price*strikePct), optionDaysToExpiry)
		},
		entry: func(snap models.IndicatorSnapshot) float64 {
			return estimatePremium(snap.Price, roundStrike(snap.Price*strikePct), false, snap.ImpliedFear, optionDaysToExpiry)
		},
	}
}

func inverseETF(confidence float64) tradeSpec {
	return tradeSpec{
		direction:  models.DirectionLong,
		confidence: confidence,
		targetMult: 1.15,
		stopMult:   0.95,
		instrument: func(snap models.IndicatorSnapshot) string {
			return "inverse " + snap.Symbol
		},
		entry: func(snap models.IndicatorSnapshot) float64 {
			// Spot-level proxy for the hedge vehicle
			return snap.Price
		},
	}
}

func shortUnderlying(confidence float64) tradeSpec {
	return tradeSpec{
		direction:  models.DirectionShort,
		confidence: confidence,
		targetMult: 0.92,
		stopMult:   1.04,
		instrument: func(snap models.IndicatorSnapshot) string {
			return snap.Symbol
		},
		entry: func(snap models.IndicatorSnapshot) float64 {
			return snap.Price
		},
	}
}

func longUnderlying(confidence float64) tradeSpec {
	return tradeSpec{
		direction:  models.DirectionLong,
		confidence: confidence,
		targetMult: 1.08,
		stopMult:   0.96,
		instrument: func(snap models.IndicatorSnapshot) string {
			return snap.Symbol
		},
		entry: func(snap models.IndicatorSnapshot) float64 {
			return snap.Price
		},
	}
}

// roundStrike snaps the strike to the nearest whole point
func roundStrike(v float64) float64 {
	return math.Round(v)
}
