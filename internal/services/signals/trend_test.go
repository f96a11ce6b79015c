package signals

import (
	"math"
	"strings"
	"testing"

	"StockSignal/internal/domain/models"
)

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name      string
		in        TrendInputs
		wantLabel models.TrendLabel
		wantProb  float64
	}{
		{
			name:      "oversold with bullish crossover and momentum",
			in:        TrendInputs{RSI: 25, SMA20: 110, SMA50: 100, Momentum: 3, Volatility: 20},
			wantLabel: models.TrendBullish,
			wantProb:  100,
		},
		{
			name:      "overbought with bearish crossover and falling",
			in:        TrendInputs{RSI: 80, SMA20: 90, SMA50: 100, Momentum: -2, Volatility: 45},
			wantLabel: models.TrendBearish,
			wantProb:  0,
		},
		{
			name:      "neutral rsi with bullish crossover",
			in:        TrendInputs{RSI: 50, SMA20: 105, SMA50: 100, Momentum: -1, Volatility: 10},
			wantLabel: models.TrendNeutral,
			wantProb:  60,
		},
		{
			name:      "neutral rsi with momentum only",
			in:        TrendInputs{RSI: 55, SMA20: 95, SMA50: 100, Momentum: 1, Volatility: 10},
			wantLabel: models.TrendNeutral,
			wantProb:  40,
		},
		{
			name:      "all readings missing",
			in:        TrendInputs{RSI: math.NaN(), SMA20: math.NaN(), SMA50: math.NaN(), Momentum: math.NaN(), Volatility: math.NaN()},
			wantLabel: models.TrendBearish,
			wantProb:  20,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyTrend(tt.in)
			if got.Probability != tt.wantProb {
				t.Errorf("probability=%v, want %v", got.Probability, tt.wantProb)
			}
			if got.Label != tt.wantLabel {
				t.Errorf("label=%s, want %s", got.Label, tt.wantLabel)
			}
			if len(got.Reasons) != 4 {
				t.Fatalf("want 4 reasons, got %d: %v", len(got.Reasons), got.Reasons)
			}
		})
	}
}

func TestClassifyTrend_BoundaryLabels(t *testing.T) {
	// 3/5 = 60 is not > 60, 2/5 = 40 is not < 40
	sixty := ClassifyTrend(TrendInputs{RSI: 50, SMA20: 2, SMA50: 1, Momentum: 0})
	if sixty.Probability != 60 || sixty.Label != models.TrendNeutral {
		t.Fatalf("60%% should be neutral, got %+v", sixty)
	}
	forty := ClassifyTrend(TrendInputs{RSI: 50, SMA20: 1, SMA50: 2, Momentum: 1})
	if forty.Probability != 40 || forty.Label != models.TrendNeutral {
		t.Fatalf("40%% should be neutral, got %+v", forty)
	}
	eighty := ClassifyTrend(TrendInputs{RSI: 50, SMA20: 2, SMA50: 1, Momentum: 1})
	if eighty.Probability != 80 || eighty.Label != models.TrendBullish {
		t.Fatalf("80%% should be bullish, got %+v", eighty)
	}
}

func TestClassifyTrend_ReasonOrder(t *testing.T) {
	got := ClassifyTrend(TrendInputs{RSI: 75, SMA20: 1, SMA50: 2, Momentum: -4, Volatility: 35})
	prefixes := []string{"RSI at 75.0 is overbought", "20-day SMA below", "Negative momentum", "High volatility"}
	for i, p := range prefixes {
		if !strings.HasPrefix(got.Reasons[i], p) {
			t.Errorf("reason %d=%q, want prefix %q", i, got.Reasons[i], p)
		}
	}
}

func TestClassifyTrend_VolatilityDoesNotScore(t *testing.T) {
	calm := ClassifyTrend(TrendInputs{RSI: 50, SMA20: 2, SMA50: 1, Momentum: 1, Volatility: 5})
	wild := ClassifyTrend(TrendInputs{RSI: 50, SMA20: 2, SMA50: 1, Momentum: 1, Volatility: 95})
	if calm.Probability != wild.Probability {
		t.Fatalf("volatility changed the score: %v vs %v", calm.Probability, wild.Probability)
	}
	if !strings.HasPrefix(calm.Reasons[3], "Moderate volatility") || !strings.HasPrefix(wild.Reasons[3], "High volatility") {
		t.Fatalf("unexpected volatility narration: %q / %q", calm.Reasons[3], wild.Reasons[3])
	}
}

func TestTrendInputsFromCloses(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	in := TrendInputsFromCloses(closes)
	if in.RSI != 100 {
		t.Errorf("rising series RSI=%v, want 100", in.RSI)
	}
	if !(in.SMA20 > in.SMA50) {
		t.Errorf("want SMA20 > SMA50, got %v <= %v", in.SMA20, in.SMA50)
	}
	if in.Momentum <= 0 || math.IsNaN(in.Volatility) {
		t.Errorf("unexpected momentum=%v volatility=%v", in.Momentum, in.Volatility)
	}
	got := ClassifyTrend(in)
	// overbought RSI scores 0, crossover 2, momentum 1
	if got.Probability != 60 || got.Label != models.TrendNeutral {
		t.Errorf("got %+v", got)
	}

	short := TrendInputsFromCloses(closes[:30])
	if !math.IsNaN(short.SMA50) {
		t.Errorf("SMA50 should be missing for 30 closes, got %v", short.SMA50)
	}
}
