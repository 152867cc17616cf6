package usecase

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/repostats/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultTopN is the ranking length used when a caller does not choose one.
const DefaultTopN = 10

// DefaultBins is the histogram bin count used when a caller does not choose one.
const DefaultBins = 20

// TopN returns the first n rows of t ordered by column. The sort is stable, so
// ties keep their original row order. Missing values sort last in either
// direction. A column whose present values all parse as numbers is ordered
// numerically, any other column lexically.
func TopN(t *domain.Table, column string, n int, descending bool) ([]domain.Row, error) {
	raw, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []domain.Row{}, nil
	}

	nums := make([]float64, len(raw))
	numeric := true
	for i, s := range raw {
		if s == "" {
			continue
		}
		v, ok := domain.ParseNumber(s)
		if !ok {
			numeric = false
			break
		}
		nums[i] = v.Value
	}

	order := make([]int, len(raw))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if raw[a] == "" || raw[b] == "" {
			return raw[a] != "" && raw[b] == ""
		}
		var c int
		switch {
		case !numeric:
			c = strings.Compare(raw[a], raw[b])
		case nums[a] < nums[b]:
			c = -1
		case nums[a] > nums[b]:
			c = 1
		}
		if descending {
			return c > 0
		}
		return c < 0
	})

	if n > len(order) {
		n = len(order)
	}
	rows := make([]domain.Row, n)
	for i := 0; i < n; i++ {
		rows[i] = t.Row(order[i])
	}
	return rows, nil
}

// FrequencyCounts counts the distinct present values of column, highest count
// first, ties in first-seen order. topK > 0 keeps only the first topK entries.
func FrequencyCounts(t *domain.Table, column string, topK int) ([]domain.CategoryCount, error) {
	raw, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	return countValues(raw, topK), nil
}

// SplitFrequencyCounts is FrequencyCounts over the tokens of a delimited
// column such as languages_used. Tokens are trimmed and empty tokens dropped.
func SplitFrequencyCounts(t *domain.Table, column, sep string, topK int) ([]domain.CategoryCount, error) {
	raw, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	var tokens []string
	for _, cell := range raw {
		if cell == "" {
			continue
		}
		for _, tok := range strings.Split(cell, sep) {
			if tok = strings.TrimSpace(tok); tok != "" {
				tokens = append(tokens, tok)
			}
		}
	}
	return countValues(tokens, topK), nil
}

func countValues(values []string, topK int) []domain.CategoryCount {
	counts := make(map[string]int)
	var seen []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if counts[v] == 0 {
			seen = append(seen, v)
		}
		counts[v]++
	}
	out := make([]domain.CategoryCount, 0, len(seen))
	for _, v := range seen {
		out = append(out, domain.CategoryCount{Value: v, Count: counts[v]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

// CoerceNumeric parses every cell of column as a number. Present cells that do
// not parse become missing and are reported in Failed and Warnings; they never
// abort the coercion.
func CoerceNumeric(t *domain.Table, column string) (*domain.Coercion, error) {
	raw, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	c := &domain.Coercion{
		Column:   column,
		Values:   make([]domain.Number, len(raw)),
		Failed:   []domain.Row{},
		Warnings: []domain.CoercionWarning{},
	}
	for i, s := range raw {
		if s == "" {
			continue
		}
		v, ok := domain.ParseNumber(s)
		if !ok {
			c.Failed = append(c.Failed, t.Row(i))
			c.Warnings = append(c.Warnings, domain.CoercionWarning{Row: i, Column: column, Value: s})
			continue
		}
		c.Values[i] = v
	}
	return c, nil
}

// LogTransform returns ln(1+v) for every row of column.
func LogTransform(t *domain.Table, column string) ([]domain.Number, error) {
	values, err := t.Numbers(column)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Number, len(values))
	for i, v := range values {
		if v.Valid {
			out[i] = domain.Num(math.Log1p(v.Value))
		}
	}
	return out, nil
}

// Ratio returns numerator/denominator per row. A zero denominator yields 0
// even when the numerator is missing; any other missing operand yields missing.
func Ratio(t *domain.Table, numerator, denominator string) ([]domain.Number, error) {
	num, err := t.Numbers(numerator)
	if err != nil {
		return nil, err
	}
	den, err := t.Numbers(denominator)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Number, len(num))
	for i := range num {
		switch {
		case den[i].Valid && den[i].Value == 0:
			out[i] = domain.Num(0)
		case !num[i].Valid || !den[i].Valid:
		default:
			out[i] = domain.Num(num[i].Value / den[i].Value)
		}
	}
	return out, nil
}

// LinearTrend fits y = Slope*x + Intercept by ordinary least squares and
// returns the fitted y for every input x.
func LinearTrend(xs, ys []float64) (*domain.Trend, error) {
	if len(xs) != len(ys) {
		return nil, domain.ErrLengthMismatch
	}
	if len(xs) < 2 {
		return nil, domain.ErrTooFewPoints
	}
	if constant(xs) {
		return nil, domain.ErrZeroVariance
	}
	cov, err := stats.Covariance(xs, ys)
	if err != nil {
		return nil, err
	}
	variance, err := stats.SampleVariance(xs)
	if err != nil {
		return nil, err
	}
	meanX, _ := stats.Mean(xs)
	meanY, _ := stats.Mean(ys)

	tr := &domain.Trend{Slope: cov / variance}
	tr.Intercept = meanY - tr.Slope*meanX
	tr.Predicted = make([]float64, len(xs))
	for i, x := range xs {
		tr.Predicted[i] = tr.Slope*x + tr.Intercept
	}
	return tr, nil
}

// CorrelationMatrix computes pairwise Pearson correlations over columns using
// the rows where both values are present. A pair with fewer than two such rows,
// or where either side is constant, is missing rather than 0.
func CorrelationMatrix(t *domain.Table, columns []string) (*domain.CorrMatrix, error) {
	series := make([][]domain.Number, len(columns))
	for i, c := range columns {
		values, err := t.Numbers(c)
		if err != nil {
			return nil, err
		}
		series[i] = values
	}
	m := &domain.CorrMatrix{
		Columns: append([]string(nil), columns...),
		Values:  make([][]domain.Number, len(columns)),
	}
	for i := range m.Values {
		m.Values[i] = make([]domain.Number, len(columns))
	}
	for i := range columns {
		for j := i; j < len(columns); j++ {
			r := pearson(series[i], series[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

func pearson(a, b []domain.Number) domain.Number {
	var xs, ys []float64
	for k := range a {
		if a[k].Valid && b[k].Valid {
			xs = append(xs, a[k].Value)
			ys = append(ys, b[k].Value)
		}
	}
	// stats.Correlation reports 0 for a zero deviation; that must stay missing.
	if len(xs) < 2 || constant(xs) || constant(ys) {
		return domain.Missing
	}
	r, err := stats.Correlation(xs, ys)
	if err != nil {
		return domain.Missing
	}
	return domain.Num(math.Max(-1, math.Min(1, r)))
}

func constant(xs []float64) bool {
	if len(xs) == 0 {
		return true
	}
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

// Histogram bins the valid values into equal-width buckets. With logScale the
// buckets are equal-width in log10 space and non-positive values are counted
// as missing.
func Histogram(column string, values []domain.Number, bins int, logScale bool) domain.Histogram {
	if bins <= 0 {
		bins = DefaultBins
	}
	h := domain.Histogram{Column: column, LogScale: logScale, Bins: []domain.Bin{}}
	var xs []float64
	for _, v := range values {
		switch {
		case !v.Valid, logScale && v.Value <= 0:
			h.Missing++
		case logScale:
			xs = append(xs, math.Log10(v.Value))
		default:
			xs = append(xs, v.Value)
		}
	}
	if len(xs) == 0 {
		return h
	}
	sort.Float64s(xs)
	lo, hi := xs[0], xs[len(xs)-1]
	if lo == hi {
		bins = 1
	}
	dividers := make([]float64, bins+1)
	if lo == hi {
		dividers[0] = lo
	} else {
		floats.Span(dividers, lo, hi)
	}
	// stat.Histogram treats the last divider as exclusive.
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, xs, nil)

	edge := func(x float64) float64 {
		if logScale {
			return math.Pow(10, x)
		}
		return x
	}
	h.Bins = make([]domain.Bin, bins)
	for i := range h.Bins {
		h.Bins[i] = domain.Bin{Lower: edge(dividers[i]), Upper: edge(dividers[i+1]), Count: int(counts[i])}
	}
	return h
}

// Describe summarizes the valid values of a numeric series.
func Describe(values []domain.Number) domain.Summary {
	xs := domain.Floats(values)
	s := domain.Summary{Count: len(xs), Missing: len(values) - len(xs)}
	if len(xs) == 0 {
		return s
	}
	num := func(v float64, err error) domain.Number {
		if err != nil {
			return domain.Missing
		}
		return domain.Num(v)
	}
	s.Mean = num(stats.Mean(xs))
	s.Min = num(stats.Min(xs))
	s.Max = num(stats.Max(xs))
	s.Median = num(stats.Median(xs))
	s.Q25 = num(stats.Percentile(xs, 25))
	s.Q75 = num(stats.Percentile(xs, 75))
	if len(xs) > 1 {
		s.Std = num(stats.StandardDeviationSample(xs))
	}
	return s
}

// CreatedYears extracts the year of every timestamp in column.
func CreatedYears(t *domain.Table, column string) ([]domain.Number, error) {
	raw, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Number, len(raw))
	for i, s := range raw {
		if ts, ok := domain.ParseTime(s); ok {
			out[i] = domain.Num(float64(ts.Year()))
		}
	}
	return out, nil
}

// YearCounts counts repositories per creation year, oldest year first.
func YearCounts(years []domain.Number) []domain.YearCount {
	counts := make(map[int]int)
	for _, y := range years {
		if y.Valid {
			counts[int(y.Value)]++
		}
	}
	out := make([]domain.YearCount, 0, len(counts))
	for y, n := range counts {
		out = append(out, domain.YearCount{Year: y, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Year < out[j].Year
	})
	return out
}

// Scatter pairs two columns row by row, keeping rows where both are present.
// With logScale only positive pairs are kept and the trend is fitted on
// log1p values: Slope and Intercept are in log1p space while Predicted is
// mapped back to the units of Y, one value per point. A trend that cannot be
// fitted is left nil.
func Scatter(t *domain.Table, x, y, label string, logScale bool) (*domain.Scatter, error) {
	xv, err := t.Numbers(x)
	if err != nil {
		return nil, err
	}
	yv, err := t.Numbers(y)
	if err != nil {
		return nil, err
	}
	sc := &domain.Scatter{X: x, Y: y, LogScale: logScale, Points: []domain.Point{}}
	var fx, fy []float64
	for i := range xv {
		if !xv[i].Valid || !yv[i].Valid {
			continue
		}
		if logScale && (xv[i].Value <= 0 || yv[i].Value <= 0) {
			continue
		}
		name, _ := t.Cell(i, label)
		sc.Points = append(sc.Points, domain.Point{Label: name, X: xv[i].Value, Y: yv[i].Value})
		if logScale {
			fx = append(fx, math.Log1p(xv[i].Value))
			fy = append(fy, math.Log1p(yv[i].Value))
		} else {
			fx = append(fx, xv[i].Value)
			fy = append(fy, yv[i].Value)
		}
	}
	tr, err := LinearTrend(fx, fy)
	switch {
	case errors.Is(err, domain.ErrTooFewPoints), errors.Is(err, domain.ErrZeroVariance):
	case err != nil:
		return nil, err
	default:
		if logScale {
			for i, p := range tr.Predicted {
				tr.Predicted[i] = math.Expm1(p)
			}
		}
		sc.Trend = tr
	}
	return sc, nil
}

// Repositories projects every row of t onto the Repository record. Columns
// split by a join resolve to their left-hand variant.
func Repositories(t *domain.Table) []domain.Repository {
	col := func(base string) string {
		c, err := t.Resolve(base)
		if err != nil {
			return ""
		}
		return c
	}
	number := func(i int, base string) domain.Number {
		s, _ := t.Cell(i, col(base))
		v, _ := domain.ParseNumber(s)
		return v
	}
	text := func(i int, base string) string {
		s, _ := t.Cell(i, col(base))
		return s
	}

	out := make([]domain.Repository, t.Len())
	for i := range out {
		r := domain.Repository{
			Name:         text(i, domain.ColRepositories),
			Language:     text(i, domain.ColLanguage),
			Stars:        number(i, domain.ColStars),
			Forks:        number(i, domain.ColForks),
			Issues:       number(i, domain.ColIssues),
			PullRequests: number(i, domain.ColPullRequests),
			Contributors: text(i, domain.ColContributors),
			Watchers:     number(i, domain.ColWatchers),
			Commits:      number(i, domain.ColCommits),
		}
		if r.Language == "" {
			r.Language = text(i, domain.ColPrimaryLanguage)
		}
		if ts, ok := domain.ParseTime(text(i, domain.ColCreatedAt)); ok {
			r.CreatedAt = &ts
		}
		if langs := text(i, domain.ColLanguagesUsed); langs != "" {
			for _, l := range strings.Split(langs, ",") {
				if l = strings.TrimSpace(l); l != "" {
					r.LanguagesUsed = append(r.LanguagesUsed, l)
				}
			}
		}
		out[i] = r
	}
	return out
}
