package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jonathan/vr-training-admin/internal/apiclient"
	"github.com/jonathan/vr-training-admin/internal/config"
	"github.com/jonathan/vr-training-admin/internal/logging"
	"github.com/jonathan/vr-training-admin/internal/notify"
	"github.com/jonathan/vr-training-admin/internal/observability"
	"github.com/jonathan/vr-training-admin/internal/prefs"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cfg is loaded once before any command runs.
var cfg *config.Config

func loadApp(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if apiURL != "" {
		loaded.API.BaseURL = apiURL
	}
	if apiToken != "" {
		loaded.API.Token = apiToken
	}
	if logLevel != "" {
		loaded.Logging.Level = logLevel
	}
	if logFormat != "" {
		loaded.Logging.Format = logFormat
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	logging.InitWithWriter(loaded.Logging.Level, loaded.Logging.Format, cmd.ErrOrStderr())
	cfg = loaded
	return nil
}

// newClient builds the API client from the loaded config.
func newClient() (*apiclient.Client, error) {
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("API base URL is required: set api.base_url, VRADMIN_API_URL or --api-url")
	}
	return apiclient.New(apiclient.Options{
		BaseURL:           cfg.API.BaseURL,
		Token:             cfg.API.Token,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		Logger:            logging.Component("apiclient"),
	})
}

// openStore opens the configured preference backend. The returned close func is never nil.
func openStore(ctx context.Context, pc config.PreferencesConfig) (prefs.Store, func(), error) {
	noop := func() {}

	switch pc.Backend {
	case config.BackendMemory:
		return prefs.NewMemoryStore(), noop, nil

	case config.BackendPostgres:
		store, err := prefs.ConnectPostgres(ctx, pc.DatabaseURL, pc.Scope)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to preference database: %w", err)
		}
		return store, store.Close, nil

	case config.BackendRedis:
		store, err := prefs.ConnectRedis(ctx, prefs.RedisOptions{
			Addr:     pc.RedisAddr,
			Password: pc.RedisPassword,
			DB:       pc.RedisDB,
			Prefix:   pc.RedisPrefix,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to preference cache: %w", err)
		}
		return store, func() { _ = store.Close() }, nil

	default:
		path := pc.File
		if path == "" {
			p, err := prefs.DefaultFilePath()
			if err != nil {
				return nil, noop, err
			}
			path = p
		}
		return prefs.NewFileStore(path), noop, nil
	}
}

// openPageSizes wraps the configured store for page-size preferences.
func openPageSizes(ctx context.Context) (*prefs.PageSizes, func(), error) {
	store, closeFn, err := openStore(ctx, cfg.Preferences)
	if err != nil {
		return nil, closeFn, err
	}
	return prefs.NewPageSizes(store, logging.Component("prefs")), closeFn, nil
}

// session bundles what the data commands need.
type session struct {
	api       *apiclient.Client
	pageSizes *prefs.PageSizes
	printer   *observability.Printer
	notifier  notify.Notifier
	log       zerolog.Logger
	close     func()
}

func newSession(cmd *cobra.Command) (*session, error) {
	api, err := newClient()
	if err != nil {
		return nil, err
	}
	pageSizes, closeFn, err := openPageSizes(cmd.Context())
	if err != nil {
		return nil, err
	}
	return &session{
		api:       api,
		pageSizes: pageSizes,
		printer:   observability.NewPrinter(cmd.OutOrStdout()),
		notifier:  notify.NewWriterNotifier(cmd.ErrOrStderr()),
		log:       logging.Component("cli"),
		close:     closeFn,
	}, nil
}

// fail reports err to the user and returns it for cobra's exit status.
func (s *session) fail(ctx context.Context, err error) error {
	notify.Report(ctx, s.notifier, s.log, err)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
