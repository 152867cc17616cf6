// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/naka-gawa/repostats/internal/domain"
	"github.com/naka-gawa/repostats/internal/gateway"
)

// Options tunes the default size of the dashboard views.
type Options struct {
	TopN int
	Bins int
}

// Dashboard is the use case for the repository dashboard views.
// It loads the dataset through the gateway and derives each view from it.
type Dashboard struct {
	loader gateway.Loader
	logger *log.Logger
	paths  []string
	opts   Options
}

// NewDashboard creates a new Dashboard instance over the dataset at paths.
func NewDashboard(loader gateway.Loader, logger *log.Logger, paths []string, opts Options) *Dashboard {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Bins <= 0 {
		opts.Bins = DefaultBins
	}
	return &Dashboard{
		loader: loader,
		logger: logger,
		paths:  append([]string(nil), paths...),
		opts:   opts,
	}
}

// Report bundles every view of the dashboard. Views that need columns the
// loaded files do not provide are left empty.
type Report struct {
	Rows                    int                    `json:"rows" yaml:"rows"`
	TopByStars              []domain.Row           `json:"top_by_stars" yaml:"top_by_stars"`
	TopByIssues             []domain.Row           `json:"top_by_issues" yaml:"top_by_issues"`
	TopByCommits            []domain.Row           `json:"top_by_commits,omitempty" yaml:"top_by_commits,omitempty"`
	TopByContributors       []domain.Row           `json:"top_by_contributors" yaml:"top_by_contributors"`
	TopByIssuesPerStar      []domain.Row           `json:"top_by_issues_per_star" yaml:"top_by_issues_per_star"`
	LanguageDistribution    []domain.CategoryCount `json:"language_distribution" yaml:"language_distribution"`
	TopLanguages            []domain.CategoryCount `json:"top_languages" yaml:"top_languages"`
	StarsVsForks            *domain.Scatter        `json:"stars_vs_forks" yaml:"stars_vs_forks"`
	WatchersVsStars         *domain.Scatter        `json:"watchers_vs_stars,omitempty" yaml:"watchers_vs_stars,omitempty"`
	PullRequestDistribution *domain.Histogram      `json:"pull_request_distribution" yaml:"pull_request_distribution"`
	Contributors            *ContributorsView      `json:"contributors" yaml:"contributors"`
	CreationByYear          []domain.YearCount     `json:"creation_by_year,omitempty" yaml:"creation_by_year,omitempty"`
	Correlation             *domain.CorrMatrix     `json:"correlation" yaml:"correlation"`
}

// ContributorsView is the contributors panel: the coercion diagnostics of the
// raw column, its summary statistics and a log-scale histogram.
type ContributorsView struct {
	Coercion  *domain.Coercion  `json:"coercion" yaml:"coercion"`
	Summary   domain.Summary    `json:"summary" yaml:"summary"`
	Histogram *domain.Histogram `json:"histogram" yaml:"histogram"`
}

// DefaultCorrelationColumns is the numeric column set of the correlation view.
// Columns absent from the loaded dataset are skipped.
var DefaultCorrelationColumns = []string{
	domain.ColStars, domain.ColForks, domain.ColIssues, domain.ColPullRequests,
	domain.ColContributors, domain.ColWatchers, domain.ColCommits,
}

// Table returns the loaded dataset.
func (d *Dashboard) Table(ctx context.Context) (*domain.Table, error) {
	return d.loader.Load(ctx, d.paths...)
}

// Top ranks rows by column; n <= 0 uses the configured default.
func (d *Dashboard) Top(ctx context.Context, column string, n int, descending bool) ([]domain.Row, error) {
	t, column, err := d.prepare(ctx, column)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = d.opts.TopN
	}
	d.logger.Printf("Usecase: top %d by %s", n, column)
	return TopN(t, column, n, descending)
}

// Frequency counts the values of column. A non-empty sep counts the tokens
// of a delimited column instead.
func (d *Dashboard) Frequency(ctx context.Context, column, sep string, topK int) ([]domain.CategoryCount, error) {
	t, column, err := d.prepare(ctx, column)
	if err != nil {
		return nil, err
	}
	d.logger.Printf("Usecase: frequency of %s", column)
	if sep != "" {
		return SplitFrequencyCounts(t, column, sep, topK)
	}
	return FrequencyCounts(t, column, topK)
}

// Coerce parses column as numbers and reports the cells that failed.
func (d *Dashboard) Coerce(ctx context.Context, column string) (*domain.Coercion, error) {
	t, column, err := d.prepare(ctx, column)
	if err != nil {
		return nil, err
	}
	c, err := CoerceNumeric(t, column)
	if err != nil {
		return nil, err
	}
	d.logWarnings(c)
	return c, nil
}

// Log returns log1p of column.
func (d *Dashboard) Log(ctx context.Context, column string) ([]domain.Number, error) {
	t, column, err := d.prepare(ctx, column)
	if err != nil {
		return nil, err
	}
	return LogTransform(t, column)
}

// Ratio returns numerator/denominator per row.
func (d *Dashboard) Ratio(ctx context.Context, numerator, denominator string) ([]domain.Number, error) {
	t, numerator, err := d.prepare(ctx, numerator)
	if err != nil {
		return nil, err
	}
	t, denominator, err = d.extend(t, denominator)
	if err != nil {
		return nil, err
	}
	return Ratio(t, numerator, denominator)
}

// Scatter pairs x and y with a fitted trend, labelled by repository name.
func (d *Dashboard) Scatter(ctx context.Context, x, y string, logScale bool) (*domain.Scatter, error) {
	t, x, err := d.prepare(ctx, x)
	if err != nil {
		return nil, err
	}
	t, y, err = d.extend(t, y)
	if err != nil {
		return nil, err
	}
	d.logger.Printf("Usecase: scatter %s vs %s", x, y)
	return Scatter(t, x, y, domain.ColRepositories, logScale)
}

// Correlation computes the Pearson matrix of columns, or of the default
// column set when columns is empty.
func (d *Dashboard) Correlation(ctx context.Context, columns []string) (*domain.CorrMatrix, error) {
	t, err := d.Table(ctx)
	if err != nil {
		return nil, err
	}
	explicit := len(columns) > 0
	if !explicit {
		columns = DefaultCorrelationColumns
	}
	resolved := make([]string, 0, len(columns))
	for _, c := range columns {
		next, name, err := d.extend(t, c)
		if err != nil {
			if !explicit && domain.IsUnknownColumn(err) {
				continue
			}
			return nil, err
		}
		t = next
		resolved = append(resolved, name)
	}
	d.logger.Printf("Usecase: correlation over %s", strings.Join(resolved, ", "))
	return CorrelationMatrix(t, resolved)
}

// Histogram bins column; bins <= 0 uses the configured default.
func (d *Dashboard) Histogram(ctx context.Context, column string, bins int, logScale bool) (*domain.Histogram, error) {
	t, column, err := d.prepare(ctx, column)
	if err != nil {
		return nil, err
	}
	values, err := t.Numbers(column)
	if err != nil {
		return nil, err
	}
	if bins <= 0 {
		bins = d.opts.Bins
	}
	h := Histogram(column, values, bins, logScale)
	return &h, nil
}

// CreationByYear counts repositories per creation year.
func (d *Dashboard) CreationByYear(ctx context.Context) ([]domain.YearCount, error) {
	t, err := d.Table(ctx)
	if err != nil {
		return nil, err
	}
	years, err := d.createdYears(t)
	if err != nil {
		return nil, err
	}
	return YearCounts(years), nil
}

// TopLanguages counts languages. The joined dataset counts every language a
// repository uses; a single dataset counts primary languages.
func (d *Dashboard) TopLanguages(ctx context.Context, topK int) ([]domain.CategoryCount, error) {
	t, err := d.Table(ctx)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = d.opts.TopN
	}
	if c, err := t.Resolve(domain.ColLanguagesUsed); err == nil {
		return SplitFrequencyCounts(t, c, ",", topK)
	}
	return FrequencyCounts(t, languageColumn(t), topK)
}

// LanguageDistribution counts primary languages across all repositories.
func (d *Dashboard) LanguageDistribution(ctx context.Context) ([]domain.CategoryCount, error) {
	t, err := d.Table(ctx)
	if err != nil {
		return nil, err
	}
	return FrequencyCounts(t, languageColumn(t), 0)
}

// Contributors builds the contributors panel.
func (d *Dashboard) Contributors(ctx context.Context) (*ContributorsView, error) {
	c, err := d.Coerce(ctx, domain.ColContributors)
	if err != nil {
		return nil, err
	}
	h := Histogram(domain.ColContributorsNumeric, c.Values, d.opts.Bins, true)
	return &ContributorsView{
		Coercion:  c,
		Summary:   Describe(c.Values),
		Histogram: &h,
	}, nil
}

// Raw returns every row as a typed repository record.
func (d *Dashboard) Raw(ctx context.Context) ([]domain.Repository, error) {
	t, err := d.Table(ctx)
	if err != nil {
		return nil, err
	}
	return Repositories(t), nil
}

// Build computes every view. Views of the joined dataset are skipped when
// their columns are absent; any other failure aborts the report.
func (d *Dashboard) Build(ctx context.Context) (*Report, error) {
	d.logger.Println("Usecase: Building dashboard...")
	t, err := d.Table(ctx)
	if err != nil {
		return nil, err
	}
	r := &Report{Rows: t.Len()}

	steps := []struct {
		name     string
		optional bool
		run      func() error
	}{
		{"top by stars", false, func() (err error) {
			r.TopByStars, err = d.Top(ctx, domain.ColStars, 0, true)
			return err
		}},
		{"top by issues", false, func() (err error) {
			r.TopByIssues, err = d.Top(ctx, domain.ColIssues, 0, true)
			return err
		}},
		{"top by commits", true, func() (err error) {
			r.TopByCommits, err = d.Top(ctx, domain.ColCommits, 0, true)
			return err
		}},
		{"top by contributors", false, func() (err error) {
			r.TopByContributors, err = d.Top(ctx, domain.ColContributorsNumeric, 0, true)
			return err
		}},
		{"top by issues per star", false, func() (err error) {
			r.TopByIssuesPerStar, err = d.Top(ctx, domain.ColIssuesPerStar, 0, true)
			return err
		}},
		{"language distribution", false, func() (err error) {
			r.LanguageDistribution, err = d.LanguageDistribution(ctx)
			return err
		}},
		{"top languages", false, func() (err error) {
			r.TopLanguages, err = d.TopLanguages(ctx, 0)
			return err
		}},
		{"stars vs forks", false, func() (err error) {
			r.StarsVsForks, err = d.Scatter(ctx, domain.ColStars, domain.ColForks, true)
			return err
		}},
		{"watchers vs stars", true, func() (err error) {
			r.WatchersVsStars, err = d.Scatter(ctx, domain.ColWatchers, domain.ColStars, true)
			return err
		}},
		{"pull request distribution", false, func() (err error) {
			r.PullRequestDistribution, err = d.Histogram(ctx, domain.ColPullRequests, 0, false)
			return err
		}},
		{"contributors", false, func() (err error) {
			r.Contributors, err = d.Contributors(ctx)
			return err
		}},
		{"creation by year", true, func() (err error) {
			r.CreationByYear, err = d.CreationByYear(ctx)
			return err
		}},
		{"correlation", false, func() (err error) {
			r.Correlation, err = d.Correlation(ctx, nil)
			return err
		}},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			if s.optional && domain.IsUnknownColumn(err) {
				d.logger.Printf("Usecase: skipping %s: %v", s.name, err)
				continue
			}
			return nil, err
		}
	}
	d.logger.Println("Usecase: Dashboard complete.")
	return r, nil
}

// prepare loads the dataset and makes column available on it.
func (d *Dashboard) prepare(ctx context.Context, column string) (*domain.Table, string, error) {
	t, err := d.Table(ctx)
	if err != nil {
		return nil, "", err
	}
	return d.extend(t, column)
}

// extend returns a table carrying column. Stored columns resolve through
// their join variants; derived columns are computed once per loaded table
// and appended to a copy.
func (d *Dashboard) extend(t *domain.Table, column string) (*domain.Table, string, error) {
	if t.Has(column) {
		return t, column, nil
	}
	values, err := d.derive(t, column)
	if errors.Is(err, errNotDerived) {
		resolved, err := t.Resolve(column)
		return t, resolved, err
	}
	if err != nil {
		return nil, "", err
	}
	next, err := t.WithColumn(column, values)
	if err != nil {
		return nil, "", err
	}
	return next, column, nil
}

var errNotDerived = errors.New("not a derived column")

func (d *Dashboard) derive(t *domain.Table, column string) ([]domain.Number, error) {
	switch {
	case column == domain.ColContributorsNumeric:
		src, err := t.Resolve(domain.ColContributors)
		if err != nil {
			return nil, err
		}
		return t.Memo(column, func() ([]domain.Number, error) {
			c, err := CoerceNumeric(t, src)
			if err != nil {
				return nil, err
			}
			d.logWarnings(c)
			return c.Values, nil
		})
	case column == domain.ColIssuesPerStar:
		issues, err := t.Resolve(domain.ColIssues)
		if err != nil {
			return nil, err
		}
		stars, err := t.Resolve(domain.ColStars)
		if err != nil {
			return nil, err
		}
		return t.Memo(column, func() ([]domain.Number, error) {
			return Ratio(t, issues, stars)
		})
	case column == domain.ColCreatedYear:
		return d.createdYears(t)
	case strings.HasPrefix(column, domain.LogColumn("")):
		src, err := t.Resolve(strings.TrimPrefix(column, domain.LogColumn("")))
		if err != nil {
			return nil, err
		}
		return t.Memo(domain.LogColumn(src), func() ([]domain.Number, error) {
			return LogTransform(t, src)
		})
	}
	return nil, errNotDerived
}

func (d *Dashboard) createdYears(t *domain.Table) ([]domain.Number, error) {
	src, err := t.Resolve(domain.ColCreatedAt)
	if err != nil {
		return nil, err
	}
	return t.Memo(domain.ColCreatedYear, func() ([]domain.Number, error) {
		return CreatedYears(t, src)
	})
}

func (d *Dashboard) logWarnings(c *domain.Coercion) {
	if len(c.Warnings) == 0 {
		return
	}
	d.logger.Printf("Usecase: %d non-numeric values in %s treated as missing", len(c.Warnings), c.Column)
	for _, w := range c.Warnings {
		d.logger.Printf("  %s", w)
	}
}

// languageColumn picks the primary language column. The joined dataset's
// primary_language takes precedence over the first file's language.
func languageColumn(t *domain.Table) string {
	if c, err := t.Resolve(domain.ColPrimaryLanguage); err == nil {
		return c
	}
	if c, err := t.Resolve(domain.ColLanguage); err == nil {
		return c
	}
	return domain.ColLanguage
}
