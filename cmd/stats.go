package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/naka-gawa/repostats/internal/domain"
	"github.com/spf13/cobra"
)

// view runs a single dashboard view and prints its result.
func view(compute func(ctx context.Context, cmd *cobra.Command, a *app) (interface{}, error)) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := setup(cmd)

		result, err := compute(ctx, cmd, a)
		if err != nil {
			fmt.Fprintln(os.Stderr, failureMessage(cmd.Name(), err))
			os.Exit(1)
		}
		if err := render(cmd.OutOrStdout(), a.format, result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
			os.Exit(1)
		}
	}
}

func failureMessage(name string, err error) string {
	switch {
	case domain.IsDataLoad(err):
		return fmt.Sprintf("Failed to load dataset: %v", err)
	case domain.IsUnknownColumn(err):
		return fmt.Sprintf("Invalid request: %v", err)
	default:
		return fmt.Sprintf("Failed to compute %s: %v", name, err)
	}
}

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Ranks repositories by a column",
	Long: `Ranks repositories by a column and prints the first n rows. Derived columns
such as contributors_numeric, issues_per_star and log1p_<column> are accepted.`,
	Run: view(func(ctx context.Context, cmd *cobra.Command, a *app) (interface{}, error) {
		column, _ := cmd.Flags().GetString("column")
		n, _ := cmd.Flags().GetInt("n")
		asc, _ := cmd.Flags().GetBool("asc")
		return a.dashboard.Top(ctx, column, n, !asc)
	}),
}

var freqCmd = &cobra.Command{
	Use:   "freq",
	Short: "Counts the distinct values of a column",
	Run: view(func(ctx context.Context, cmd *cobra.Command, a *app) (interface{}, error) {
		column, _ := cmd.Flags().GetString("column")
		sep, _ := cmd.Flags().GetString("sep")
		top, _ := cmd.Flags().GetInt("top")
		return a.dashboard.Frequency(ctx, column, sep, top)
	}),
}

var coerceCmd = &cobra.Command{
	Use:   "coerce",
	Short: "Parses a column as numbers and reports the values that failed",
	Run: view(func(ctx context.Context, cmd *cobra.Command, a *app) (interface{}, error) {
		column, _ := cmd.Flags().GetString("column")
		return a.dashboard.Coerce(ctx, column)
	}),
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Prints log(1+x) of a numeric column",
	Run: view(func(ctx context.Context, cmd *cobra.Command, a *app) (interface{}, error) {
		column, _ := cmd.Flags().GetString("column")
		return a.dashboard.Log(ctx, column)
	}),
}

var ratioCmd = &cobra.Command{
	Use:   "ratio",
	Short: "Prints numerator/denominator per repository (0 where the denominator is 0)",
	Run: view(func(ctx context.Context, cmd *cobra.Command, a *app) (interface{}, error) {
		num, _ := cmd.Flags().GetString("numerator")
		den, _ := cmd.Flags().GetString("denominator")
		return a.dashboard.Ratio(ctx, num, den)
	}),
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Pairs two columns and fits a least squares trend line",
	Run: view(func(ctx context.Context, cmd *cobra.Command, a *app) (interface{}, error) {
		x, _ := cmd.Flags().GetString("x")
		y, _ := cmd.Flags().GetString("y")
		linear, _ := cmd.Flags().GetBool("linear")
		return a.dashboard.Scatter(ctx, x, y, !linear)
	}),
}

var corrCmd = &cobra.Command{
	Use:   "corr",
	Short: "Computes the Pearson correlation matrix of numeric columns",
	Run: view(func(ctx context.Context, cmd *cobra.Command, a *app) (interface{}, error) {
		columns, _ := cmd.Flags().GetStringSlice("columns")
		return a.dashboard.Correlation(ctx, columns)
	}),
}

var histCmd = &cobra.Command{
	Use:   "hist",
	Short: "Bins a numeric column into an equal-width histogram",
	Run: view(func(ctx context.Context, cmd *cobra.Command, a *app) (interface{}, error) {
		column, _ := cmd.Flags().GetString("column")
		bins, _ := cmd.Flags().GetInt("bins")
		logScale, _ := cmd.Flags().GetBool("log")
		return a.dashboard.Histogram(ctx, column, bins, logScale)
	}),
}

var yearsCmd = &cobra.Command{
	Use:   "years",
	Short: "Counts repositories per creation year (needs the joined dataset)",
	Run: view(func(ctx context.Context, cmd *cobra.Command, a *app) (interface{}, error) {
		return a.dashboard.CreationByYear(ctx)
	}),
}

var langsCmd = &cobra.Command{
	Use:   "langs",
	Short: "Counts repository languages",
	Run: view(func(ctx context.Context, cmd *cobra.Command, a *app) (interface{}, error) {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return a.dashboard.LanguageDistribution(ctx)
		}
		top, _ := cmd.Flags().GetInt("top")
		return a.dashboard.TopLanguages(ctx, top)
	}),
}

var rawCmd = &cobra.Command{
	Use:   "raw",
	Short: "Prints every repository as a typed record",
	Run: view(func(ctx context.Context, cmd *cobra.Command, a *app) (interface{}, error) {
		return a.dashboard.Raw(ctx)
	}),
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Computes every view of the repository dashboard",
	Run: view(func(ctx context.Context, cmd *cobra.Command, a *app) (interface{}, error) {
		return a.dashboard.Build(ctx)
	}),
}

func init() {
	rootCmd.AddCommand(topCmd, freqCmd, coerceCmd, logCmd, ratioCmd, trendCmd,
		corrCmd, histCmd, yearsCmd, langsCmd, rawCmd, dashboardCmd)

	topCmd.Flags().StringP("column", "c", domain.ColStars, "Column to rank by")
	topCmd.Flags().IntP("n", "n", 0, "Number of rows (default views.top_n)")
	topCmd.Flags().Bool("asc", false, "Rank in ascending order")

	freqCmd.Flags().StringP("column", "c", domain.ColLanguage, "Column to count")
	freqCmd.Flags().String("sep", "", "Count the tokens of a delimited column, e.g. --sep ,")
	freqCmd.Flags().Int("top", 0, "Keep only the most frequent values")

	coerceCmd.Flags().StringP("column", "c", domain.ColContributors, "Column to parse")

	logCmd.Flags().StringP("column", "c", domain.ColStars, "Column to transform")

	ratioCmd.Flags().String("numerator", domain.ColIssues, "Numerator column")
	ratioCmd.Flags().String("denominator", domain.ColStars, "Denominator column")

	trendCmd.Flags().String("x", domain.ColStars, "X column")
	trendCmd.Flags().String("y", domain.ColForks, "Y column")
	trendCmd.Flags().Bool("linear", false, "Fit on raw values instead of log(1+x)")

	corrCmd.Flags().StringSlice("columns", nil, "Columns to correlate (default: the numeric repository columns)")

	histCmd.Flags().StringP("column", "c", domain.ColPullRequests, "Column to bin")
	histCmd.Flags().Int("bins", 0, "Number of bins (default views.histogram_bins)")
	histCmd.Flags().Bool("log", false, "Bin log10 of the positive values")

	langsCmd.Flags().Int("top", 0, "Number of languages (default views.top_n)")
	langsCmd.Flags().Bool("all", false, "Count primary languages across all repositories")
}
