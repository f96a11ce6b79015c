package marketdata

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"StockSignal/internal/domain/models"

	"github.com/shopspring/decimal"
)

// parseNumber reads a provider numeric string such as "187.5400" or
// "-0.4231%". The provider reports absent values as "None", "-" or "".
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	switch s {
	case "", "None", "-", "null":
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// number is parseNumber with absent values read as zero, which is how the
// scorer inputs mark missing metadata.
func number(s string) float64 {
	v, _ := parseNumber(s)
	return v
}

type ohlcv struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// toBars converts the date-keyed provider map to ascending bars and keeps the
// last n. Entries without a parseable close are dropped.
func toBars(series map[string]ohlcv, n int) ([]models.Bar, error) {
	bars := make([]models.Bar, 0, len(series))
	for day, v := range series {
		date, err := time.Parse(models.DateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("bad bar date %q: %w", day, err)
		}
		closePrice, ok := parseNumber(v.Close)
		if !ok {
			continue
		}
		bars = append(bars, models.Bar{
			Date:   date,
			Open:   number(v.Open),
			High:   number(v.High),
			Low:    number(v.Low),
			Close:  closePrice,
			Volume: number(v.Volume),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	if n > 0 && len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}
