// Package main provides the entry point for the Interview Coach server and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/observability"
)

var (
	configPath string
	verbose    bool
	jsonLogs   bool

	// appConfig is resolved before any subcommand runs
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "interview_coach",
	Short: "Interview Coach mock-interview server",
	Long: "Interview Coach parses a candidate's resume, runs a live voice and screen-share " +
		"interview against a generative-AI interviewer and produces a structured feedback report.",
	SilenceUsage:      true,
	PersistentPreRunE: loadAppConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to JSON config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print human-readable summaries")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit logs as JSON")
}

func loadAppConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath, os.Getenv)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Verbose = true
		if cfg.LogLevel == "info" {
			cfg.LogLevel = "debug"
		}
	}
	if err := observability.SetupLogging(os.Stderr, cfg.LogLevel, jsonLogs); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	appConfig = cfg
	return nil
}

// requireAPIKey returns the flag value, falling back to the configured key.
func requireAPIKey(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if appConfig != nil && appConfig.APIKey != "" {
		return appConfig.APIKey, nil
	}
	return "", fmt.Errorf("API key is required (set GEMINI_API_KEY environment variable or use --api-key flag)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
