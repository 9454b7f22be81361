package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TheSinghX/AiImageCraft/internal/api"
	"github.com/TheSinghX/AiImageCraft/internal/config"
	"github.com/TheSinghX/AiImageCraft/internal/database"
	"github.com/TheSinghX/AiImageCraft/internal/engine"
	"github.com/TheSinghX/AiImageCraft/internal/metrics"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the DreamPixel server",
	Long:  `Start the DreamPixel web server that serves the pages and the image generation API.`,
	Example: `dreampixel serve --config config.yml
dreampixel serve -c /path/to/config.yml --log-level debug
`,
	Run: startServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func startServer(cmd *cobra.Command, _ []string) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if rootCmdPersistentFlags.LogLevel == "" {
		setLogLevel(cfg.LogLevel)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close() //nolint:errcheck

	var m *metrics.Metrics
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		m = metrics.New()
	}

	engine := engine.New(cfg, db, m)

	server, err := api.New(cfg, engine, m, log.GetLevel() == log.DebugLevel)
	if err != nil {
		log.Fatalf("failed to create API server: %v", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting API server", "listen", cfg.Listen, "url", cfg.ServerURL)
	if err := server.Run(ctx); err != nil {
		log.Error("API server error", "error", err)
	}
	log.Info("shutting down gracefully...")

	// wait for pending welcome emails
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	engine.Stop(shutdownCtx)
}
