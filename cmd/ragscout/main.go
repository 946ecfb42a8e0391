// RagScout: persona-driven RAG agent orchestrator.
//
// Usage:
//
//	ragscout serve     # Start the MCP server (stdio transport)
//	ragscout eval      # Run the persona-selection evaluation harness
//	ragscout version   # Print version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ragscout/ragscout/internal/config"
	"github.com/ragscout/ragscout/internal/eval"
	"github.com/ragscout/ragscout/internal/persona"
	ragserver "github.com/ragscout/ragscout/internal/server"
	"github.com/ragscout/ragscout/internal/telemetry"
	"github.com/ragscout/ragscout/pkg/contracts"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	switch os.Args[1] {
	case "serve":
		if err := runServe(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "eval":
		if err := runEval(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--version", "-v", "version":
		fmt.Printf("ragscout v%s\n", cfg.Version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// setupLogging writes structured logs to stderr so they never interfere
// with the MCP stdio transport on stdout.
func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl)
}

func runServe(cfg *config.Config) error {
	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	s, cleanup, err := ragserver.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Graceful shutdown on interrupt.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		zlog.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			zlog.Warn().Err(err).Msg("telemetry shutdown failed")
		}
		os.Exit(0)
	}()

	zlog.Info().Str("version", cfg.Version).Msg("ragscout serving on stdio")
	return server.ServeStdio(s)
}

func runEval(cfg *config.Config) error {
	history := persona.LoadHistory(cfg.HistoryPath())
	var classifier contracts.Classifier
	if c := persona.NewOpenAIClassifier(cfg.Classifier); c != nil {
		classifier = c
	}
	selector := persona.NewSelector(classifier, history)

	report, err := eval.NewRunner(selector, cfg.EvalDir()).Run(context.Background())
	if err != nil {
		return fmt.Errorf("running evaluation: %w", err)
	}
	fmt.Print(report.Render())
	return nil
}

func printUsage() {
	fmt.Println(`ragscout - persona-driven RAG agent orchestrator

Usage:
  ragscout serve     Start the MCP server (stdio transport)
  ragscout eval      Run the persona-selection evaluation harness
  ragscout version   Print version

Environment:
  R2R_BASE_URL                 RAG backend base URL (required for serve)
  R2R_API_KEY                  RAG backend API key
  R2R_TIMEOUT_SECONDS          RAG backend HTTP timeout (default: 120)
  RAGSCOUT_CLASSIFIER_API_KEY  Persona classifier key (keyword fallback if unset)
  RAGSCOUT_DATA_DIR            Data directory (default: ./.claude/data)
  RAGSCOUT_LOG_LEVEL           trace|debug|info|warn|error (default: info)`)
}
