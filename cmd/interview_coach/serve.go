package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/interview-coach/internal/db"
	"github.com/jonathan/interview-coach/internal/live"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/server"
	"github.com/jonathan/interview-coach/internal/server/ratelimit"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket API server",
	Long:  `Start an HTTP server that exposes interview sessions, the live interview WebSocket and stored reports.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config and PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := *appConfig
	if servePort != 0 {
		cfg.Port = servePort
	}
	apiKey, err := requireAPIKey("")
	if err != nil {
		return err
	}

	ctx := context.Background()
	llmConfig := llm.DefaultConfig()
	client, err := llm.NewClient(ctx, llmConfig, apiKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	closers := []func(){func() { _ = client.Close() }}

	liveModel := cfg.LiveModel
	if liveModel == "" {
		liveModel = llmConfig.GetModel(llm.TierLive)
	}
	transport, err := live.NewGeminiTransport(ctx, apiKey, liveModel)
	if err != nil {
		_ = client.Close()
		return err
	}

	store, closeStore, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = client.Close()
		return err
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	srv, err := server.New(server.Options{
		Config:    &cfg,
		LLM:       client,
		Transport: transport,
		Store:     store,
		RateLimit: ratelimit.LoadConfig(os.Getenv),
		Closers:   closers,
	})
	if err != nil {
		for _, closeFn := range closers {
			closeFn()
		}
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

// openStore connects to PostgreSQL when a URL is configured, otherwise it
// keeps reports in memory.
func openStore(ctx context.Context, databaseURL string) (db.Store, func(), error) {
	if databaseURL == "" {
		log.Warn("DATABASE_URL not set; reports are kept in memory")
		return db.NewMemoryStore(), nil, nil
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to prepare database schema: %w", err)
	}
	return database, database.Close, nil
}
