package indicators

import (
	"math"
	"testing"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func assertWarmup(t *testing.T, label string, l Line, n, first int) {
	t.Helper()
	if len(l) != n {
		t.Fatalf("%s: len=%d, want %d", label, len(l), n)
	}
	for i, v := range l {
		if i < first && v.Valid {
			t.Errorf("%s: index %d defined inside warm-up", label, i)
		}
		if i >= first && (!v.Valid || math.IsNaN(v.Float) || math.IsInf(v.Float, 0)) {
			t.Errorf("%s: index %d should be a finite defined value, got %+v", label, i, v)
		}
	}
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// sample is a deterministic wavy price path used by the oracle comparisons.
func sample(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		x := float64(i)
		out[i] = 100 + 8*math.Sin(x/5) + 3*math.Cos(x/2.3) + 0.15*x
	}
	return out
}
