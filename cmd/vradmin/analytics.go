package main

import (
	"fmt"

	"github.com/jonathan/vr-training-admin/internal/analytics"
	"github.com/jonathan/vr-training-admin/internal/evaluation"
	"github.com/jonathan/vr-training-admin/internal/observability"
	"github.com/spf13/cobra"
)

var (
	analyticsTable    string
	analyticsFrom     string
	analyticsTo       string
	analyticsPrevFrom string
	analyticsPrevTo   string
	analyticsPageSize int
	analyticsJSON     bool
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Compare pass/fail metrics between two periods",
	Long: "Fetches every record created in the current and the previous period and prints " +
		"each metric with its percentage change. Without --prev-from/--prev-to the previous " +
		"period is the equally long span right before the current one.",
	Args: cobra.NoArgs,
	RunE: runAnalytics,
}

func init() {
	analyticsCmd.Flags().StringVar(&analyticsTable, "table", tableEvaluations, "Table to analyze: evaluations or trainings")
	analyticsCmd.Flags().StringVar(&analyticsFrom, "from", "", "Start of the current period (YYYY-MM-DD)")
	analyticsCmd.Flags().StringVar(&analyticsTo, "to", "", "End of the current period, exclusive (YYYY-MM-DD)")
	analyticsCmd.Flags().StringVar(&analyticsPrevFrom, "prev-from", "", "Start of the previous period")
	analyticsCmd.Flags().StringVar(&analyticsPrevTo, "prev-to", "", "End of the previous period, exclusive")
	analyticsCmd.Flags().IntVar(&analyticsPageSize, "page-size", 100, "Rows fetched per request")
	analyticsCmd.Flags().BoolVar(&analyticsJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(analyticsCmd)
}

func runAnalytics(cmd *cobra.Command, _ []string) error {
	kind, err := tableKind(analyticsTable)
	if err != nil {
		return err
	}
	current, err := analytics.ParsePeriod(analyticsFrom, analyticsTo)
	if err != nil {
		return err
	}
	previous, err := analytics.ParsePeriod(analyticsPrevFrom, analyticsPrevTo)
	if err != nil {
		return err
	}
	if previous.From == nil && previous.To == nil {
		previous = analytics.PreviousPeriod(current)
	}

	api, err := newClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	report, err := analytics.ComparePeriods(ctx, api, kind, current, previous, analyticsPageSize)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	if analyticsJSON {
		return printJSON(cmd.OutOrStdout(), report)
	}
	printer := observability.NewPrinter(cmd.OutOrStdout())
	if report.Previous == nil {
		printer.PrintSummary(report.Current)
		return nil
	}
	printer.PrintMetrics(report.Metrics)
	return nil
}

func tableKind(table string) (evaluation.Kind, error) {
	switch table {
	case tableEvaluations:
		return evaluation.KindEvaluation, nil
	case tableTrainings:
		return evaluation.KindTraining, nil
	default:
		return "", fmt.Errorf("unknown table %q: want %s or %s", table, tableEvaluations, tableTrainings)
	}
}
