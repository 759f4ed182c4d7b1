// Command swapdesk is the backend entry point for the swap desk. It loads
// configuration, validates it, wires dependencies, sets up signal handling,
// and starts the HTTP server with its background price refresh loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/halcyonlabs/swapdesk/internal/app"
	"github.com/halcyonlabs/swapdesk/internal/config"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	mode := flag.String("mode", "server", "run mode: server or monitor")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("swap desk starting",
		slog.Int("port", cfg.Server.Port),
		slog.String("config", *configPath),
		slog.String("mode", *mode),
	)

	// Create the application.
	application := app.New(cfg, logger)
	defer application.Close()

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the selected mode.
	var runErr error
	switch *mode {
	case "server":
		runErr = application.Run(ctx)
	case "monitor":
		runErr = application.MonitorMode(ctx)
	default:
		logger.Error("unknown mode", slog.String("mode", *mode))
		os.Exit(2)
	}
	if runErr != nil {
		// context.Canceled is expected on clean shutdown.
		if runErr == context.Canceled {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", runErr.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", runErr)
			os.Exit(1)
		}
	}

	logger.Info("swap desk stopped")
}
