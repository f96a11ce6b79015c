// Package indicators implements the technical indicators over a close-price
// series. Every function is pure: outputs are aligned 1:1 with the input and
// positions inside the warm-up window are left undefined.
package indicators

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Value is one position of an aligned indicator line.
type Value struct {
	Float float64
	Valid bool
}

// Defined returns a valid Value holding f.
func Defined(f float64) Value { return Value{Float: f, Valid: true} }

// MarshalJSON writes null for undefined positions so charting layers can zip
// values with dates by index.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid || math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.Float, 'f', -1, 64), nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*v = Value{}
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("indicator value: %w", err)
	}
	*v = Defined(f)
	return nil
}

// Line is an indicator series with the same length as its input.
type Line []Value

// At returns the value at i and whether it is defined.
func (l Line) At(i int) (float64, bool) {
	if i < 0 || i >= len(l) || !l[i].Valid {
		return math.NaN(), false
	}
	return l[i].Float, true
}

// Last returns the final value of the line.
func (l Line) Last() (float64, bool) { return l.At(len(l) - 1) }

// FirstValid returns the index of the first defined value, or -1.
func (l Line) FirstValid() int {
	for i, v := range l {
		if v.Valid {
			return i
		}
	}
	return -1
}

// CountValid returns how many positions are defined.
func (l Line) CountValid() int {
	n := 0
	for _, v := range l {
		if v.Valid {
			n++
		}
	}
	return n
}

// Compact drops undefined positions.
func (l Line) Compact() []float64 {
	out := make([]float64, 0, len(l))
	for _, v := range l {
		if v.Valid {
			out = append(out, v.Float)
		}
	}
	return out
}

func requirePeriod(name string, period int) {
	if period <= 0 {
		panic(fmt.Sprintf("indicators: %s period must be >= 1, got %d", name, period))
	}
}
