package main

import (
	"fmt"
	"os"

	"github.com/jonathan/vr-training-admin/internal/logging"
	"github.com/jonathan/vr-training-admin/internal/server"
	"github.com/jonathan/vr-training-admin/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var (
	servePort        int
	serveRequireAuth bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP admin gateway",
	Long: `Start an HTTP server that exposes the evaluation and training tables, scored
results, archiving, saved page sizes and period analytics as JSON endpoints.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config)")
	serveCmd.Flags().BoolVar(&serveRequireAuth, "require-auth", false, "Reject requests without a bearer token")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	api, err := newClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pageSizes, closeFn, err := openPageSizes(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	srv := server.New(server.Config{
		Port:            port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RequireAuth:     serveRequireAuth,
		DefaultPageSize: cfg.Grid.DefaultPageSize,
		RateLimit:       ratelimit.LoadConfig(os.LookupEnv),
	}, api, pageSizes, logging.Component("server"))

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
