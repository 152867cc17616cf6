package domain

import "time"

// Column names of the repository datasets.
const (
	ColRepositories    = "repositories"
	ColName            = "name"
	ColStars           = "stars_count"
	ColForks           = "forks_count"
	ColIssues          = "issues_count"
	ColPullRequests    = "pull_requests"
	ColContributors    = "contributors"
	ColLanguage        = "language"
	ColPrimaryLanguage = "primary_language"
	ColWatchers        = "watchers"
	ColCommits         = "commit_count"
	ColCreatedAt       = "created_at"
	ColLanguagesUsed   = "languages_used"
)

// Derived column names.
const (
	ColContributorsNumeric = "contributors_numeric"
	ColIssuesPerStar       = "issues_per_star"
	ColCreatedYear         = "created_year"
)

// LogColumn names the log1p transform of column.
func LogColumn(column string) string { return "log1p_" + column }

var (
	// PrimaryColumns must be present in the first dataset file.
	PrimaryColumns = []string{
		ColRepositories, ColStars, ColForks, ColIssues,
		ColPullRequests, ColContributors, ColLanguage,
	}
	// SecondaryColumns must be present in the second dataset file.
	SecondaryColumns = []string{
		ColName, ColWatchers, ColCommits, ColCreatedAt, ColLanguagesUsed,
	}
)

// Repository is the typed view of one dataset row. Fields absent from the
// loaded files (or missing in the row) are zero/missing.
type Repository struct {
	Name          string     `json:"name" yaml:"name"`
	Language      string     `json:"language,omitempty" yaml:"language,omitempty"`
	Stars         Number     `json:"stars" yaml:"stars"`
	Forks         Number     `json:"forks" yaml:"forks"`
	Issues        Number     `json:"issues" yaml:"issues"`
	PullRequests  Number     `json:"pull_requests" yaml:"pull_requests"`
	Contributors  string     `json:"contributors,omitempty" yaml:"contributors,omitempty"`
	Watchers      Number     `json:"watchers" yaml:"watchers"`
	Commits       Number     `json:"commits" yaml:"commits"`
	CreatedAt     *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	LanguagesUsed []string   `json:"languages_used,omitempty" yaml:"languages_used,omitempty"`
}
