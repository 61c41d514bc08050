package indicators

import (
	"math"
	"testing"
)

func flatSeries(n int, price float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = price
	}
	return s
}

func trendSeries(n int, start, dailyStep float64) []float64 {
	s := make([]float64, n)
	p := start
	for i := range s {
		s[i] = p
		p += dailyStep
	}
	return s
}

func TestChangeFromHigh(t *testing.T) {
	change, err := ChangeFromHigh([]float64{100, 95, 80}, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(change-(-0.20)) > 1e-9 {
		t.Errorf("expected -0.20, got %f", change)
	}

	if _, err := ChangeFromHigh([]float64{100}, 0); err == nil {
		t.Error("expected error for non-positive high")
	}
	if _, err := ChangeFromHigh(nil, 100); err == nil {
		t.Error("expected error for empty series")
	}
}

func TestRSI_DegenerateInputs(t *testing.T) {
	t.Run("insufficient samples return neutral", func(t *testing.T) {
		if got := RSI(trendSeries(10, 100, 1), 14); got != 50 {
			t.Errorf("expected neutral 50, got %f", got)
		}
	})

	t.Run("flat series returns neutral", func(t *testing.T) {
		if got := RSI(flatSeries(50, 100), 14); got != 50 {
			t.Errorf("expected neutral 50 for flat series, got %f", got)
		}
	})

	t.Run("sustained gains push RSI high", func(t *testing.T) {
		got := RSI(trendSeries(50, 100, 1), 14)
		if got < 70 || got > 100 {
			t.Errorf("expected overbought RSI for steady gains, got %f", got)
		}
	})

	t.Run("sustained losses push RSI low", func(t *testing.T) {
		got := RSI(trendSeries(50, 200, -1), 14)
		if got > 30 || got < 0 {
			t.Errorf("expected oversold RSI for steady losses, got %f", got)
		}
	})
}

func TestMovingAverage_GracefulShrink(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}

	if got := MovingAverage(prices, 10); math.Abs(got-3) > 1e-9 {
		t.Errorf("expected mean of all samples when period exceeds length, got %f", got)
	}
	if got := MovingAverage(prices, 2); math.Abs(got-4.5) > 1e-9 {
		t.Errorf("expected mean of last 2 samples, got %f", got)
	}
	if got := MovingAverage(nil, 20); got != 0 {
		t.Errorf("expected 0 for empty series, got %f", got)
	}
}

func TestMACD_TrendDirection(t *testing.T) {
	up := MACD(trendSeries(60, 100, 1))
	if !up.Bullish() {
		t.Errorf("expected bullish MACD for steady uptrend: line=%f signal=%f", up.Line, up.Signal)
	}

	down := MACD(trendSeries(60, 200, -1))
	if down.Bullish() {
		t.Errorf("expected bearish MACD for steady downtrend: line=%f signal=%f", down.Line, down.Signal)
	}

	flat := MACD(flatSeries(60, 100))
	if flat.Bullish() {
		t.Error("flat series must not read as bullish")
	}
	if flat.Line != 0 || flat.Signal != 0 {
		t.Errorf("expected zero MACD for flat series, got line=%f signal=%f", flat.Line, flat.Signal)
	}
}

func TestBollinger(t *testing.T) {
	t.Run("flat series collapses the bands", func(t *testing.T) {
		bb := Bollinger(flatSeries(40, 100), 20, 2)
		if bb.Upper != 100 || bb.Mid != 100 || bb.Lower != 100 {
			t.Errorf("expected collapsed bands at 100, got %+v", bb)
		}
	})

	t.Run("volatile series separates the bands", func(t *testing.T) {
		prices := []float64{100, 110, 90, 105, 95, 112, 88, 103, 97, 108,
			92, 106, 94, 109, 91, 104, 96, 111, 89, 102}
		bb := Bollinger(prices, 20, 2)
		if !(bb.Upper > bb.Mid && bb.Mid > bb.Lower) {
			t.Errorf("expected upper > mid > lower, got %+v", bb)
		}
	})

	t.Run("shrinks gracefully with short series", func(t *testing.T) {
		bb := Bollinger([]float64{100, 102}, 20, 2)
		if math.Abs(bb.Mid-101) > 1e-9 {
			t.Errorf("expected mid over available samples, got %+v", bb)
		}
	})
}

func TestSnapshot_FlatSeries(t *testing.T) {
	snap, err := Snapshot(flatSeries(250, 100), Inputs{
		Symbol:       "SPY",
		ImpliedFear:  20,
		PutCallRatio: 1.0,
		BreadthRatio: 1.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.Price != 100 {
		t.Errorf("expected price 100, got %f", snap.Price)
	}
	if snap.PriceChangeFromHigh != 0 {
		t.Errorf("expected no drawdown, got %f", snap.PriceChangeFromHigh)
	}
	if snap.RSI != 50 {
		t.Errorf("expected neutral RSI, got %f", snap.RSI)
	}
	if snap.MovingAverages.SMA200 != 100 {
		t.Errorf("expected SMA200=100, got %f", snap.MovingAverages.SMA200)
	}
}

func TestSnapshot_UsesProvidedRollingHigh(t *testing.T) {
	snap, err := Snapshot(flatSeries(50, 80), Inputs{Symbol: "SPY", RollingHigh: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(snap.PriceChangeFromHigh-(-0.20)) > 1e-9 {
		t.Errorf("expected -0.20 off the provided high, got %f", snap.PriceChangeFromHigh)
	}
}
