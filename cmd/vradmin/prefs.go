package main

import (
	"fmt"
	"strconv"

	"github.com/jonathan/vr-training-admin/internal/notify"
	"github.com/jonathan/vr-training-admin/internal/observability"
	"github.com/spf13/cobra"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show and change saved table preferences",
}

var prefsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the saved page size of every table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pageSizes, closeFn, err := openPageSizes(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		observability.NewPrinter(cmd.OutOrStdout()).PrintPageSizes(pageSizes.All(cmd.Context()))
		return nil
	},
}

var prefsGetCmd = &cobra.Command{
	Use:   "get <table>",
	Short: "Print the page size used for a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageSizes, closeFn, err := openPageSizes(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), pageSizes.Get(cmd.Context(), args[0], cfg.Grid.DefaultPageSize))
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <table> <page-size>",
	Short: "Save the page size for a table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		size, err := strconv.Atoi(args[1])
		if err != nil || size < 1 {
			return fmt.Errorf("page size must be a positive integer, got %q", args[1])
		}

		pageSizes, closeFn, err := openPageSizes(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		if err := pageSizes.Set(cmd.Context(), args[0], size); err != nil {
			return fmt.Errorf("failed to save page size: %w", err)
		}
		notify.NewWriterNotifier(cmd.ErrOrStderr()).Notify(cmd.Context(), notify.Success("Page size for %s set to %d", args[0], size))
		return nil
	},
}

func init() {
	prefsCmd.AddCommand(prefsListCmd, prefsGetCmd, prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}
