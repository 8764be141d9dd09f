// Package cmd routes the minda CLI: document ingestion, the interactive
// chat session and the version and help surfaces.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/ai-vietnam/minda/internal/app"
	"github.com/ai-vietnam/minda/internal/config"
	mindalog "github.com/ai-vietnam/minda/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	GitCommit  = "unknown"
)

// Execute is the CLI entry point, called from main.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			printVersion()
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		}
	}

	// Optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := initLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx := context.Background()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if err := a.Close(ctx); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	command := "chat"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	switch command {
	case "ingest":
		return runIngest(ctx, a)
	case "chat":
		return runChat(ctx, a)
	default:
		printHelp()
		return fmt.Errorf("unknown command %q", command)
	}
}

// initLogger builds the process logger. DEBUG in the environment (any
// value) lowers the level; logs go to stderr so stdout stays clean for
// the conversation.
func initLogger() *slog.Logger {
	cfg := mindalog.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
		cfg.AddSource = true
	}
	return mindalog.New(cfg)
}

func printVersion() {
	fmt.Printf("minda %s (%s)\n", AppVersion, GitCommit)
}

func printHelp() {
	fmt.Print(`minda - trợ lý sức khỏe tâm thần

Usage:
  minda [command]

Commands:
  chat      Start an interactive counseling session (default)
  ingest    Chunk, summarize and index the reference documents
  version   Print version information
  help      Show this help

Environment:
  GEMINI_API_KEY   Gemini API key (required)
  MINDA_DATA       Data directory (default: current directory)
  DEBUG            Enable debug logging
`)
}
