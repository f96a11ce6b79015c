package indicators

const (
	DefaultBollingerPeriod = 20
	DefaultBollingerK      = 2.0
)

// Bands holds the three Bollinger lines.
type Bands struct {
	Upper  Line `json:"upper"`
	Middle Line `json:"middle"`
	Lower  Line `json:"lower"`
}

// Bollinger returns SMA(period) plus and minus k population standard
// deviations over the same window.
func Bollinger(prices []float64, period int, k float64) Bands {
	requirePeriod("bollinger", period)
	middle := SMA(prices, period)
	sd := RollingStdDev(prices, period)
	b := Bands{
		Upper:  make(Line, len(prices)),
		Middle: middle,
		Lower:  make(Line, len(prices)),
	}
	for i := range prices {
		m, ok := middle.At(i)
		if !ok {
			continue
		}
		s, _ := sd.At(i)
		b.Upper[i] = Defined(m + k*s)
		b.Lower[i] = Defined(m - k*s)
	}
	return b
}

// RollingStdDev is the population standard deviation of each trailing window.
func RollingStdDev(prices []float64, period int) Line {
	requirePeriod("stddev", period)
	out := make(Line, len(prices))
	for i := period - 1; i < len(prices); i++ {
		out[i] = Defined(StdDev(prices[i-period+1 : i+1]))
	}
	return out
}
