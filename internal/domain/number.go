package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a numeric cell that may be missing.
type Number struct {
	Value float64
	Valid bool
}

// Missing is the zero Number.
var Missing = Number{}

// Num returns a valid Number. NaN and infinities are stored as missing.
func Num(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing
	}
	return Number{Value: v, Valid: true}
}

// ParseNumber parses a cell the way a lenient numeric coercion would:
// surrounding space is ignored, non-finite results are rejected.
func ParseNumber(s string) (Number, bool) {
	s = strings.TrimSpace(s)
	if IsMissing(s) {
		return Missing, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing, false
	}
	return Number{Value: f, Valid: true}, true
}

// String renders the number so that ParseNumber(n.String()) == n.
func (n Number) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

// MarshalJSON encodes a missing number as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON accepts a number or null.
func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = Missing
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Num(v)
	return nil
}

// MarshalYAML encodes a missing number as null.
func (n Number) MarshalYAML() (interface{}, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Value, nil
}

// Floats returns the valid values of ns in order.
func Floats(ns []Number) []float64 {
	out := make([]float64, 0, len(ns))
	for _, n := range ns {
		if n.Valid {
			out = append(out, n.Value)
		}
	}
	return out
}

// IsMissing reports whether a raw cell represents a missing value.
func IsMissing(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "NaN", "NA", "nan", "<nil>":
		return true
	}
	return false
}
