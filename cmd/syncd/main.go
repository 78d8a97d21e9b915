// Syncd is a daemon that turns free-text availability chatter into
// ranked consensus time windows.
//
// It watches chat scopes through the configured message source,
// extracts time intervals and locations from each message, validates
// the entries, and aggregates overlapping availability across
// participants. Sessions are controlled over the HTTP API.
//
// Usage:
//
//	# Start with a config file
//	syncd -config /etc/syncd/config.yaml
//
//	# Configure via environment
//	SYNC_SOURCE_BASE_URL=https://chat.example.com syncd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xiaethan/sync/internal/aggregate"
	"github.com/xiaethan/sync/internal/config"
	"github.com/xiaethan/sync/internal/extract"
	"github.com/xiaethan/sync/internal/logging"
	"github.com/xiaethan/sync/internal/orchestrator"
	"github.com/xiaethan/sync/internal/rank"
	"github.com/xiaethan/sync/internal/server"
	"github.com/xiaethan/sync/internal/session"
	"github.com/xiaethan/sync/internal/source"
	"github.com/xiaethan/sync/internal/validate"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  syncd            Start the syncd daemon\n")
			fmt.Fprintf(os.Stderr, "  syncd version    Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("syncd\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires the pipeline and blocks until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	src, err := source.NewHTTP(source.Config{
		BaseURL: cfg.Source.BaseURL,
		Token:   cfg.Source.Token.Value(),
		Timeout: cfg.Source.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create message source: %w", err)
	}

	var ranker rank.Ranker
	if cfg.Ranking.Enabled {
		ranker, err = rank.NewLLMRanker(rank.Config{
			Enabled: true,
			Model:   cfg.Ranking.Model,
			APIKey:  cfg.Ranking.APIKey.Value(),
			BaseURL: cfg.Ranking.BaseURL,
			Timeout: cfg.Ranking.Timeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create ranker: %w", err)
		}
		logger.Info("LLM ranking enabled", zap.String("model", cfg.Ranking.Model))
	}

	orch, err := orchestrator.New(
		orchestrator.Config{
			DebounceSeconds: cfg.Orchestrator.DebounceSeconds,
			PollSeconds:     cfg.Orchestrator.PollSeconds,
		},
		orchestrator.Deps{
			Store:     session.NewStore(),
			Source:    src,
			Extractor: extract.New(),
			Validator: validate.New(validate.Config{
				MinConfidence: cfg.Validation.MinConfidence,
				MaxRangeHours: float64(cfg.Validation.MaxRangeHours),
			}, logger),
			Aggregator: aggregate.New(aggregate.Config{
				MaxWindows:              cfg.Aggregation.MaxWindows,
				MinOverlapMinutes:       cfg.Aggregation.MinOverlapMinutes,
				MinLocationParticipants: cfg.Aggregation.MinLocationParticipants,
			}, logger),
			Ranker: ranker,
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	defer orch.Close()

	srv, err := server.NewServer(orch, logger, &server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("syncd started",
		zap.String("version", version),
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
