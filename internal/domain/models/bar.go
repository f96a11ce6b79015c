package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrEmptySeries    = errors.New("series has no bars")
	ErrUnorderedBars  = errors.New("bars are not in ascending date order")
	ErrDuplicateDate  = errors.New("duplicate bar date")
	ErrInvalidBarData = errors.New("invalid bar data")
)

// Bar is one OHLCV record. Daily bars carry a date at midnight UTC.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is the bar history of one instrument over one interval, ascending by date.
type Series struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Bars     []Bar  `json:"bars"`
}

func (s Series) Len() int { return len(s.Bars) }

func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

func (s Series) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Date
	}
	return out
}

// Tail returns the last n bars as a new series sharing the same backing array.
func (s Series) Tail(n int) Series {
	if n >= len(s.Bars) || n < 0 {
		return s
	}
	return Series{Symbol: s.Symbol, Interval: s.Interval, Bars: s.Bars[len(s.Bars)-n:]}
}

// Validate checks the ordering and value invariants the indicator engine relies on.
func (s Series) Validate() error {
	if len(s.Bars) == 0 {
		return ErrEmptySeries
	}
	for i, b := range s.Bars {
		for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite value at %s", ErrInvalidBarData, b.Date.Format(DateLayout))
			}
		}
		if b.Volume < 0 {
			return fmt.Errorf("%w: negative volume at %s", ErrInvalidBarData, b.Date.Format(DateLayout))
		}
		if i == 0 {
			continue
		}
		prev := s.Bars[i-1].Date
		switch {
		case b.Date.Equal(prev):
			return fmt.Errorf("%w: %s", ErrDuplicateDate, b.Date.Format(DateLayout))
		case b.Date.Before(prev):
			return fmt.Errorf("%w: %s before %s", ErrUnorderedBars, b.Date.Format(DateLayout), prev.Format(DateLayout))
		}
	}
	return nil
}

// DateLayout is the calendar date format used on the wire and by the provider.
const DateLayout = "2006-01-02"
