package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTooFewPoints is returned by a trend fit over fewer than two points.
	ErrTooFewPoints = errors.New("at least two points are required")
	// ErrZeroVariance is returned by a trend fit whose x values are all equal.
	ErrZeroVariance = errors.New("x values have zero variance")
	// ErrLengthMismatch is returned when paired series differ in length.
	ErrLengthMismatch = errors.New("series lengths differ")
)

// DataLoadError is the fatal error of a dataset load: a missing or unreadable
// file, or a file lacking a required column.
type DataLoadError struct {
	Path   string
	Column string
	Err    error
}

func (e *DataLoadError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("load %s: missing required column %q", e.Path, e.Column)
	case e.Err != nil:
		return fmt.Sprintf("load %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("load %s: failed", e.Path)
	}
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// UnknownColumnError reports a view request naming a column the table lacks.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q", e.Column)
}

// CoercionWarning records a cell that could not be parsed as a number. It is
// not fatal: the cell is treated as missing and processing continues.
type CoercionWarning struct {
	Row    int    `json:"row" yaml:"row"`
	Column string `json:"column" yaml:"column"`
	Value  string `json:"value" yaml:"value"`
}

func (w CoercionWarning) String() string {
	return fmt.Sprintf("row %d: %s=%q is not numeric", w.Row, w.Column, w.Value)
}

// IsDataLoad reports whether err is (or wraps) a DataLoadError.
func IsDataLoad(err error) bool {
	var e *DataLoadError
	return errors.As(err, &e)
}

// IsUnknownColumn reports whether err is (or wraps) an UnknownColumnError.
func IsUnknownColumn(err error) bool {
	var e *UnknownColumnError
	return errors.As(err, &e)
}
