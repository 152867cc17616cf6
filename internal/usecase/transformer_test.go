package usecase

import (
	"math"
	"testing"

	"github.com/naka-gawa/repostats/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoColumns = []string{
	domain.ColRepositories, domain.ColStars, domain.ColForks, domain.ColIssues,
	domain.ColPullRequests, domain.ColContributors, domain.ColLanguage,
}

// sampleTable is a small single-file dataset. beta has a non-numeric
// contributors value and epsilon a missing one.
func sampleTable(t *testing.T) *domain.Table {
	t.Helper()
	return newTable(t, repoColumns,
		[]string{"alpha", "100", "50", "10", "5", "12", "Go"},
		[]string{"beta", "10", "20", "5", "2", "5,000+", "Python"},
		[]string{"gamma", "0", "1", "3", "0", "1", "Go"},
		[]string{"delta", "55", "30", "0", "9", "4", "Rust"},
		[]string{"epsilon", "10", "2", "1", "1", "", ""},
	)
}

func newTable(t *testing.T, columns []string, rows ...[]string) *domain.Table {
	t.Helper()
	tbl, err := domain.NewTable(columns, rows)
	require.NoError(t, err)
	return tbl
}

func names(rows []domain.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Fields[domain.ColRepositories]
	}
	return out
}

func TestTopN(t *testing.T) {
	testCases := []struct {
		name       string
		table      func(t *testing.T) *domain.Table
		column     string
		n          int
		descending bool
		expected   []string
		expectErr  bool
	}{
		{
			name: "single best repository by stars",
			table: func(t *testing.T) *domain.Table {
				return newTable(t, []string{"repositories", "stars", "forks"},
					[]string{"A", "100", "50"},
					[]string{"B", "10", "20"},
				)
			},
			column:     "stars",
			n:          1,
			descending: true,
			expected:   []string{"A"},
		},
		{
			name:       "n larger than the table returns every row",
			table:      sampleTable,
			column:     domain.ColStars,
			n:          10,
			descending: true,
			expected:   []string{"alpha", "delta", "beta", "epsilon", "gamma"},
		},
		{
			name:       "ties keep original row order",
			table:      sampleTable,
			column:     domain.ColStars,
			n:          4,
			descending: true,
			expected:   []string{"alpha", "delta", "beta", "epsilon"},
		},
		{
			name:       "ascending order",
			table:      sampleTable,
			column:     domain.ColForks,
			n:          3,
			descending: false,
			expected:   []string{"gamma", "epsilon", "beta"},
		},
		{
			name:       "missing values sort last",
			table:      sampleTable,
			column:     domain.ColLanguage,
			n:          5,
			descending: false,
			expected:   []string{"alpha", "gamma", "beta", "delta", "epsilon"},
		},
		{
			name:       "non-positive n yields no rows",
			table:      sampleTable,
			column:     domain.ColStars,
			n:          0,
			descending: true,
			expected:   []string{},
		},
		{
			name:      "unknown column",
			table:     sampleTable,
			column:    "nope",
			n:         3,
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := TopN(tc.table(t), tc.column, tc.n, tc.descending)
			if tc.expectErr {
				assert.Error(t, err)
				assert.True(t, domain.IsUnknownColumn(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, names(rows))
		})
	}
}

func TestTopN_Properties(t *testing.T) {
	tbl := sampleTable(t)
	for n := 0; n <= tbl.Len()+2; n++ {
		rows, err := TopN(tbl, domain.ColStars, n, true)
		require.NoError(t, err)
		assert.Len(t, rows, min(n, tbl.Len()))

		seen := make(map[int]bool)
		prev := math.Inf(1)
		for _, r := range rows {
			assert.False(t, seen[r.Index], "duplicate row %d", r.Index)
			seen[r.Index] = true
			assert.Equal(t, tbl.Row(r.Index), r)

			v, ok := domain.ParseNumber(r.Fields[domain.ColStars])
			require.True(t, ok)
			assert.LessOrEqual(t, v.Value, prev)
			prev = v.Value
		}
	}
}

func TestFrequencyCounts(t *testing.T) {
	tbl := newTable(t, []string{"language"},
		[]string{"Python"}, []string{"Go"}, []string{"Go"}, []string{""},
		[]string{"Rust"}, []string{"Python"}, []string{"C"},
	)

	testCases := []struct {
		name     string
		topK     int
		expected []domain.CategoryCount
	}{
		{
			name: "all values, ties in first-seen order",
			topK: 0,
			expected: []domain.CategoryCount{
				{Value: "Python", Count: 2},
				{Value: "Go", Count: 2},
				{Value: "Rust", Count: 1},
				{Value: "C", Count: 1},
			},
		},
		{
			name: "truncated to top 3",
			topK: 3,
			expected: []domain.CategoryCount{
				{Value: "Python", Count: 2},
				{Value: "Go", Count: 2},
				{Value: "Rust", Count: 1},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			counts, err := FrequencyCounts(tbl, "language", tc.topK)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, counts)
		})
	}

	t.Run("counts sum to non-missing rows", func(t *testing.T) {
		counts, err := FrequencyCounts(tbl, "language", 0)
		require.NoError(t, err)
		total := 0
		for _, c := range counts {
			total += c.Count
		}
		raw, err := tbl.Strings("language")
		require.NoError(t, err)
		missing := 0
		for _, s := range raw {
			if s == "" {
				missing++
			}
		}
		assert.Equal(t, tbl.Len()-missing, total)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := FrequencyCounts(tbl, "nope", 0)
		assert.True(t, domain.IsUnknownColumn(err))
	})
}

func TestSplitFrequencyCounts(t *testing.T) {
	tbl := newTable(t, []string{"languages_used"},
		[]string{"Go, Shell"},
		[]string{"Python,Go"},
		[]string{""},
		[]string{"Shell,,Go"},
	)
	counts, err := SplitFrequencyCounts(tbl, "languages_used", ",", 2)
	require.NoError(t, err)
	assert.Equal(t, []domain.CategoryCount{
		{Value: "Go", Count: 3},
		{Value: "Shell", Count: 2},
	}, counts)
}

func TestCoerceNumeric(t *testing.T) {
	tbl := sampleTable(t)

	c, err := CoerceNumeric(tbl, domain.ColContributors)
	require.NoError(t, err)
	assert.Equal(t, []domain.Number{
		domain.Num(12), domain.Missing, domain.Num(1), domain.Num(4), domain.Missing,
	}, c.Values)
	require.Len(t, c.Failed, 1)
	assert.Equal(t, "beta", c.Failed[0].Fields[domain.ColRepositories])
	assert.Equal(t, []domain.CoercionWarning{
		{Row: 1, Column: domain.ColContributors, Value: "5,000+"},
	}, c.Warnings)

	t.Run("idempotent", func(t *testing.T) {
		again, err := CoerceNumeric(tbl, domain.ColContributors)
		require.NoError(t, err)
		assert.Equal(t, c, again)

		coerced, err := tbl.WithColumn(domain.ColContributorsNumeric, c.Values)
		require.NoError(t, err)
		twice, err := CoerceNumeric(coerced, domain.ColContributorsNumeric)
		require.NoError(t, err)
		assert.Equal(t, c.Values, twice.Values)
		assert.Empty(t, twice.Failed)
	})
}

func TestLogTransform(t *testing.T) {
	tbl := newTable(t, []string{"v"},
		[]string{"0"}, []string{"1.718281828459045"}, []string{""}, []string{"abc"},
	)
	values, err := LogTransform(tbl, "v")
	require.NoError(t, err)
	require.Len(t, values, 4)

	assert.Equal(t, domain.Num(0), values[0])
	assert.True(t, values[1].Valid)
	assert.InDelta(t, 1.0, values[1].Value, 1e-12)
	assert.False(t, values[2].Valid)
	assert.False(t, values[3].Valid)
}

func TestRatio(t *testing.T) {
	tbl := newTable(t, []string{domain.ColIssues, domain.ColStars},
		[]string{"10", "100"},
		[]string{"7", "0"},
		[]string{"0", "0"},
		[]string{"", "5"},
		[]string{"", "0"},
		[]string{"3", ""},
	)
	values, err := Ratio(tbl, domain.ColIssues, domain.ColStars)
	require.NoError(t, err)
	assert.Equal(t, []domain.Number{
		domain.Num(0.1), domain.Num(0), domain.Num(0), domain.Missing, domain.Num(0), domain.Missing,
	}, values)
	for _, v := range []domain.Number{values[0], values[1], values[2], values[4]} {
		assert.False(t, math.IsNaN(v.Value))
	}
}

func TestLinearTrend(t *testing.T) {
	testCases := []struct {
		name        string
		xs, ys      []float64
		slope       float64
		intercept   float64
		expectedErr error
	}{
		{
			name:      "exact line",
			xs:        []float64{1, 2, 3, 4},
			ys:        []float64{3, 5, 7, 9},
			slope:     2,
			intercept: 1,
		},
		{
			name:      "noisy points",
			xs:        []float64{0, 1, 2},
			ys:        []float64{1, 1, 4},
			slope:     1.5,
			intercept: 0.5,
		},
		{
			name:        "single point",
			xs:          []float64{1},
			ys:          []float64{2},
			expectedErr: domain.ErrTooFewPoints,
		},
		{
			name:        "constant x",
			xs:          []float64{3, 3, 3},
			ys:          []float64{1, 2, 3},
			expectedErr: domain.ErrZeroVariance,
		},
		{
			name:        "length mismatch",
			xs:          []float64{1, 2},
			ys:          []float64{1},
			expectedErr: domain.ErrLengthMismatch,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := LinearTrend(tc.xs, tc.ys)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, tr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.slope, tr.Slope, 1e-9)
			assert.InDelta(t, tc.intercept, tr.Intercept, 1e-9)
			require.Len(t, tr.Predicted, len(tc.xs))
			for i, x := range tc.xs {
				assert.InDelta(t, tc.slope*x+tc.intercept, tr.Predicted[i], 1e-9)
			}
		})
	}
}

func TestCorrelationMatrix(t *testing.T) {
	tbl := newTable(t, []string{"a", "b", "c", "constant", "sparse"},
		[]string{"1", "2", "4", "7", "1"},
		[]string{"2", "4", "3", "7", ""},
		[]string{"3", "6", "2", "7", ""},
		[]string{"4", "8", "1", "7", "x"},
	)

	m, err := CorrelationMatrix(tbl, []string{"a", "b", "c", "constant", "sparse"})
	require.NoError(t, err)
	require.Len(t, m.Values, 5)

	ab, _ := m.At("a", "b")
	require.True(t, ab.Valid)
	assert.InDelta(t, 1.0, ab.Value, 1e-9)

	ac, _ := m.At("a", "c")
	require.True(t, ac.Valid)
	assert.InDelta(t, -1.0, ac.Value, 1e-9)

	aa, _ := m.At("a", "a")
	require.True(t, aa.Valid)
	assert.InDelta(t, 1.0, aa.Value, 1e-9)

	for _, other := range []string{"a", "b", "c", "constant"} {
		v, ok := m.At("constant", other)
		require.True(t, ok)
		assert.False(t, v.Valid, "constant vs %s should be missing, not 0", other)
	}
	for _, other := range []string{"a", "sparse"} {
		v, _ := m.At("sparse", other)
		assert.False(t, v.Valid, "sparse vs %s has fewer than two pairs", other)
	}

	for i := range m.Values {
		for j := range m.Values {
			assert.Equal(t, m.Values[i][j], m.Values[j][i])
		}
	}

	t.Run("unknown column", func(t *testing.T) {
		_, err := CorrelationMatrix(tbl, []string{"a", "nope"})
		assert.True(t, domain.IsUnknownColumn(err))
	})
}

func TestHistogram(t *testing.T) {
	t.Run("equal width bins", func(t *testing.T) {
		values := make([]domain.Number, 0, 11)
		for i := 0; i < 10; i++ {
			values = append(values, domain.Num(float64(i)))
		}
		values = append(values, domain.Missing)

		h := Histogram("v", values, 5, false)
		require.Len(t, h.Bins, 5)
		assert.Equal(t, 1, h.Missing)
		assert.Equal(t, 0.0, h.Bins[0].Lower)
		for _, b := range h.Bins {
			assert.Equal(t, 2, b.Count)
		}
	})

	t.Run("constant values fall in one bin", func(t *testing.T) {
		h := Histogram("v", []domain.Number{domain.Num(3), domain.Num(3)}, 10, false)
		require.Len(t, h.Bins, 1)
		assert.Equal(t, 2, h.Bins[0].Count)
	})

	t.Run("log scale drops non-positive values", func(t *testing.T) {
		values := []domain.Number{domain.Num(0), domain.Num(1), domain.Num(3), domain.Num(50), domain.Num(100), domain.Missing}
		h := Histogram("v", values, 2, true)
		assert.Equal(t, 2, h.Missing)
		require.Len(t, h.Bins, 2)
		assert.InDelta(t, 1.0, h.Bins[0].Lower, 1e-9)
		assert.Equal(t, 2, h.Bins[0].Count)
		assert.Equal(t, 2, h.Bins[1].Count)
	})

	t.Run("no values", func(t *testing.T) {
		h := Histogram("v", []domain.Number{domain.Missing}, 0, false)
		assert.Empty(t, h.Bins)
		assert.Equal(t, 1, h.Missing)
	})
}

func TestDescribe(t *testing.T) {
	s := Describe([]domain.Number{domain.Num(1), domain.Num(2), domain.Missing, domain.Num(3), domain.Num(4)})
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 1, s.Missing)
	assert.InDelta(t, 2.5, s.Mean.Value, 1e-12)
	assert.InDelta(t, 2.5, s.Median.Value, 1e-12)
	assert.Equal(t, domain.Num(1), s.Min)
	assert.Equal(t, domain.Num(4), s.Max)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.Std.Value, 1e-12)

	empty := Describe([]domain.Number{domain.Missing})
	assert.Equal(t, 0, empty.Count)
	assert.False(t, empty.Mean.Valid)
	assert.False(t, empty.Std.Valid)
}

func TestYearCounts(t *testing.T) {
	tbl := newTable(t, []string{domain.ColCreatedAt},
		[]string{"2015-03-01T10:00:00Z"},
		[]string{"2014-01-01"},
		[]string{""},
		[]string{"2015-07-07 08:00:00"},
		[]string{"not a date"},
	)
	years, err := CreatedYears(tbl, domain.ColCreatedAt)
	require.NoError(t, err)
	assert.Equal(t, []domain.Number{
		domain.Num(2015), domain.Num(2014), domain.Missing, domain.Num(2015), domain.Missing,
	}, years)
	assert.Equal(t, []domain.YearCount{{Year: 2014, Count: 1}, {Year: 2015, Count: 2}}, YearCounts(years))
}

func TestScatter(t *testing.T) {
	tbl := sampleTable(t)

	sc, err := Scatter(tbl, domain.ColStars, domain.ColForks, domain.ColRepositories, false)
	require.NoError(t, err)
	assert.Len(t, sc.Points, 5)
	assert.Equal(t, domain.Point{Label: "alpha", X: 100, Y: 50}, sc.Points[0])
	require.NotNil(t, sc.Trend)
	assert.Len(t, sc.Trend.Predicted, 5)

	logged, err := Scatter(tbl, domain.ColStars, domain.ColForks, domain.ColRepositories, true)
	require.NoError(t, err)
	assert.Len(t, logged.Points, 4, "gamma has zero stars")
	require.NotNil(t, logged.Trend)
	assert.Len(t, logged.Trend.Predicted, 4)

	line := newTable(t, []string{"repositories", "x", "y"},
		[]string{"a", "9", "9"},
		[]string{"b", "99", "99"},
		[]string{"c", "999", "999"},
	)
	sc, err = Scatter(line, "x", "y", "repositories", true)
	require.NoError(t, err)
	require.NotNil(t, sc.Trend)
	assert.InDelta(t, 1.0, sc.Trend.Slope, 1e-9)
	assert.InDelta(t, 0.0, sc.Trend.Intercept, 1e-9)
	require.Len(t, sc.Trend.Predicted, 3)
	for i, p := range sc.Points {
		assert.InDelta(t, p.Y, sc.Trend.Predicted[i], 1e-6, "predicted value overlays point %s", p.Label)
	}

	single := newTable(t, []string{"x", "y"}, []string{"1", "2"}, []string{"", "3"})
	sc, err = Scatter(single, "x", "y", "missing-label", false)
	require.NoError(t, err)
	assert.Len(t, sc.Points, 1)
	assert.Nil(t, sc.Trend)
}

func TestRepositories(t *testing.T) {
	tbl := newTable(t,
		[]string{"repositories", "stars_count_x", "forks_count_x", "issues_count", "pull_requests_x",
			"contributors", "language", "stars_count_y", "watchers", "commit_count", "created_at", "languages_used"},
		[]string{"octo/cat", "10", "2", "1", "3", "4", "Go", "11", "9", "120", "2019-05-01T00:00:00Z", "Go, Shell"},
		[]string{"only/right", "", "", "", "", "", "", "5", "1", "7", "", ""},
	)
	repos := Repositories(tbl)
	require.Len(t, repos, 2)

	assert.Equal(t, "octo/cat", repos[0].Name)
	assert.Equal(t, domain.Num(10), repos[0].Stars)
	assert.Equal(t, domain.Num(120), repos[0].Commits)
	assert.Equal(t, []string{"Go", "Shell"}, repos[0].LanguagesUsed)
	require.NotNil(t, repos[0].CreatedAt)
	assert.Equal(t, 2019, repos[0].CreatedAt.Year())

	assert.False(t, repos[1].Stars.Valid, "left-hand stars are missing for a right-only row")
	assert.Equal(t, domain.Num(1), repos[1].Watchers)
	assert.Nil(t, repos[1].CreatedAt)
}
