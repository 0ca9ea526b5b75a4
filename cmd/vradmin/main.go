// Package main provides the vradmin command line for the VR training admin dashboard.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	apiURL     string
	apiToken   string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "vradmin",
	Short: "VR training admin dashboard",
	Long: "vradmin browses, scores and archives VR training evaluations and trainings " +
		"from the training platform API, and serves an HTTP admin gateway in front of it.",
	SilenceUsage:      true,
	PersistentPreRunE: loadApp,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to config file (default vradmin.yaml or $VRADMIN_CONFIG)")
	flags.StringVar(&apiURL, "api-url", "", "Training platform API base URL (overrides config)")
	flags.StringVar(&apiToken, "token", "", "Bearer token for the API (overrides config)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "", "Log format: console or json")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
