// Package domain contains the core data structures and domain logic for the application.
package domain

// CategoryCount is one entry of a frequency view.
type CategoryCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// CorrMatrix is a square Pearson correlation matrix. Values[i][j] is the
// correlation of Columns[i] and Columns[j]; undefined correlations are missing.
type CorrMatrix struct {
	Columns []string   `json:"columns" yaml:"columns"`
	Values  [][]Number `json:"values" yaml:"values"`
}

// At returns the correlation between two named columns.
func (m CorrMatrix) At(a, b string) (Number, bool) {
	i, j := -1, -1
	for k, c := range m.Columns {
		if c == a {
			i = k
		}
		if c == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return Missing, false
	}
	return m.Values[i][j], true
}

// Trend is an ordinary least squares line fitted to paired points.
// Predicted is in the units of the points it overlays.
type Trend struct {
	Slope     float64   `json:"slope" yaml:"slope"`
	Intercept float64   `json:"intercept" yaml:"intercept"`
	Predicted []float64 `json:"predicted" yaml:"predicted"`
}

// Coercion is the result of parsing a column as numbers.
type Coercion struct {
	Column   string            `json:"column" yaml:"column"`
	Values   []Number          `json:"values" yaml:"values"`
	Failed   []Row             `json:"failed" yaml:"failed"`
	Warnings []CoercionWarning `json:"warnings" yaml:"warnings"`
}

// Point is a labelled scatter point.
type Point struct {
	Label string  `json:"label" yaml:"label"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
}

// Scatter holds the paired points of two columns and, when it could be
// fitted, a trend line over them.
type Scatter struct {
	X        string  `json:"x" yaml:"x"`
	Y        string  `json:"y" yaml:"y"`
	LogScale bool    `json:"log_scale" yaml:"log_scale"`
	Points   []Point `json:"points" yaml:"points"`
	Trend    *Trend  `json:"trend,omitempty" yaml:"trend,omitempty"`
}

// Bin is one histogram bucket covering [Lower, Upper).
type Bin struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
	Count int     `json:"count" yaml:"count"`
}

// Histogram is an equal-width binning of the valid values of a column.
type Histogram struct {
	Column   string `json:"column" yaml:"column"`
	LogScale bool   `json:"log_scale" yaml:"log_scale"`
	Bins     []Bin  `json:"bins" yaml:"bins"`
	Missing  int    `json:"missing" yaml:"missing"`
}

// Summary describes the distribution of a numeric column.
type Summary struct {
	Count   int    `json:"count" yaml:"count"`
	Missing int    `json:"missing" yaml:"missing"`
	Mean    Number `json:"mean" yaml:"mean"`
	Std     Number `json:"std" yaml:"std"`
	Min     Number `json:"min" yaml:"min"`
	Q25     Number `json:"q25" yaml:"q25"`
	Median  Number `json:"median" yaml:"median"`
	Q75     Number `json:"q75" yaml:"q75"`
	Max     Number `json:"max" yaml:"max"`
}

// YearCount is the number of repositories created in a year.
type YearCount struct {
	Year  int `json:"year" yaml:"year"`
	Count int `json:"count" yaml:"count"`
}
