package main

import (
	"fmt"
	"strings"

	"github.com/jonathan/vr-training-admin/internal/apiclient"
	"github.com/jonathan/vr-training-admin/internal/grid"
	"github.com/jonathan/vr-training-admin/internal/notify"
	"github.com/spf13/cobra"
)

var bulkArchiveType string

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive several records at once",
}

var bulkArchiveCmd = &cobra.Command{
	Use:   "bulk <id>...",
	Short: "Archive the given evaluations or trainings in one request",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBulkArchive,
}

func init() {
	bulkArchiveCmd.Flags().StringVarP(&bulkArchiveType, "type", "t", "evaluation", "Record type: evaluation or training")
	archiveCmd.AddCommand(bulkArchiveCmd)
	rootCmd.AddCommand(archiveCmd)
}

func runBulkArchive(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	req, err := bulkRequest(s.api, bulkArchiveType, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := s.api.BulkArchive(ctx, req); err != nil {
		return s.fail(ctx, err)
	}
	s.notifier.Notify(ctx, notify.Success("Archived %d %s record(s)", len(req.Data), req.Type))
	return nil
}

// bulkRequest turns the selected ids into a request, refusing it when the
// bulk action would be disabled for the caller.
func bulkRequest(api *apiclient.Client, kind string, ids []string) (apiclient.BulkArchiveRequest, error) {
	selection := grid.RowSelection{}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			selection.Set(id, true)
		}
	}

	perms := grid.NewPermissions("*")
	if info := api.TokenInfo(); info != nil {
		perms = grid.NewPermissions(info.Grants()...)
	}
	if !grid.BulkArchive.Enabled(selection, perms) {
		if selection.IsEmpty() {
			return apiclient.BulkArchiveRequest{}, fmt.Errorf("select at least one record to archive")
		}
		return apiclient.BulkArchiveRequest{}, fmt.Errorf("your token lacks the %q permission", grid.BulkArchive.Permission)
	}

	req := apiclient.BulkArchiveRequest{Type: strings.ToLower(strings.TrimSpace(kind)), Data: selection.Selected()}
	if err := api.ValidateBulkArchive(req); err != nil {
		return req, err
	}
	return req, nil
}
