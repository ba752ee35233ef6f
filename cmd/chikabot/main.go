package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"chikabot/internal/bus"
	"chikabot/internal/config"
	"chikabot/internal/delivery"
	"chikabot/internal/filter"
	"chikabot/internal/generator"
	"chikabot/internal/metrics"
	"chikabot/internal/pipeline"
	"chikabot/internal/store"
	"chikabot/internal/webhook"
)

var (
	version = "0.3.0"
	logger  *slog.Logger
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "chikabot",
		Short: "chikabot: webhook chat auto-reply bot",
		Long:  "chikabot receives messaging-platform webhook events and replies to eligible messages through a text-generation API.",
	}

	root.AddCommand(serveCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("chikabot", version)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server and reply pipeline",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventBus := bus.New(100, logger)
	defer eventBus.Close()

	replyLog, err := store.NewSQLiteStore(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("reply log: %w", err)
	}
	defer replyLog.Close()

	persona := generator.DefaultPersona()
	if cfg.PersonaPath != "" {
		persona, err = generator.LoadPersona(cfg.PersonaPath)
		if err != nil {
			return fmt.Errorf("persona: %w", err)
		}
		logger.Info("persona loaded", "path", cfg.PersonaPath)
	}

	gen := generator.NewOpenAI(generator.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		APIBase: cfg.OpenAIAPIBase,
		Model:   cfg.Model,
		Persona: persona,
		Timeout: cfg.GeneratorTimeout,
		Logger:  logger,
	})

	sender := delivery.NewClient(delivery.Config{
		AccessToken: cfg.AccessToken,
		APIBase:     cfg.GraphAPIBase,
		Timeout:     cfg.DeliveryTimeout,
		Logger:      logger,
	})

	loop := pipeline.NewLoop(pipeline.LoopConfig{
		Filter:      filter.New(cfg.SelfID),
		Generator:   gen,
		Deliverer:   sender,
		Recorder:    replyLog,
		Bus:         eventBus,
		Logger:      logger,
		Concurrency: cfg.Concurrency,
	})
	go loop.Run(ctx)

	server := webhook.NewServer(webhook.ServerConfig{
		Addr:        cfg.ListenAddr,
		Path:        cfg.WebhookPath,
		VerifyToken: cfg.VerifyToken,
		AppSecret:   cfg.AppSecret,
		Metrics:     metrics.Collector.Handler(),
		Logger:      logger,
	})

	logger.Info("chikabot starting", "version", version, "self_id", cfg.SelfID)
	return server.Start(ctx, eventBus)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
