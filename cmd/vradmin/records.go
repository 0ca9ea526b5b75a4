package main

import (
	"fmt"

	"github.com/jonathan/vr-training-admin/internal/evaluation"
	"github.com/jonathan/vr-training-admin/internal/notify"
	"github.com/spf13/cobra"
)

// Table identities. They double as the page-size preference keys.
const (
	tableEvaluations = "evaluations"
	tableTrainings   = "trainings"
)

func init() {
	rootCmd.AddCommand(newRecordsCmd(tableEvaluations, evaluation.KindEvaluation))
	rootCmd.AddCommand(newRecordsCmd(tableTrainings, evaluation.KindTraining))
}

// newRecordsCmd builds the list/show/archive group for one table.
func newRecordsCmd(table string, kind evaluation.Kind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   table,
		Short: fmt.Sprintf("Browse and manage %s", table),
	}
	cmd.AddCommand(newListCmd(table, kind), newShowCmd(kind), newArchiveCmd(kind))
	return cmd
}

func newListCmd(table string, kind evaluation.Kind) *cobra.Command {
	var (
		opts   listOptions
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List one page of %s", table),
		Long: fmt.Sprintf("Lists one page of %s with their computed status and score. "+
			"An explicit --limit is remembered as the table's page size.", table),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := cmd.Context()
			state, err := opts.state(ctx, s.pageSizes, table, cfg.Grid.DefaultPageSize)
			if err != nil {
				return err
			}
			params := state.Params()

			page, err := s.api.List(ctx, kind, params)
			if err != nil {
				return s.fail(ctx, err)
			}

			if cmd.Flags().Changed("limit") {
				if err := s.pageSizes.Set(ctx, table, state.PageSize); err != nil {
					s.log.Debug().Err(err).Msg("page size not persisted")
				}
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), page)
			}
			s.printer.PrintPage(page, params)
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the page as JSON")
	return cmd
}

func newShowCmd(kind evaluation.Kind) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: fmt.Sprintf("Show the scored result of one %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := cmd.Context()
			doc, err := s.api.Get(ctx, kind, args[0])
			if err != nil {
				return s.fail(ctx, err)
			}

			rec := evaluation.Normalize(doc)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), rec)
			}
			s.printer.PrintRecord(rec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func newArchiveCmd(kind evaluation.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: fmt.Sprintf("Archive one %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := cmd.Context()
			if err := s.api.Archive(ctx, kind, args[0]); err != nil {
				return s.fail(ctx, err)
			}
			s.notifier.Notify(ctx, notify.Success("Archived %s %s", kind, args[0]))
			return nil
		},
	}
}
