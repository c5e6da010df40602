// Package main is the DeckLens CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/decklens/internal/cache"
	"github.com/hyperjump/decklens/internal/classify"
	"github.com/hyperjump/decklens/internal/cli"
	"github.com/hyperjump/decklens/internal/config"
	"github.com/hyperjump/decklens/internal/pipeline"
	"github.com/hyperjump/decklens/internal/scoring"
	"github.com/hyperjump/decklens/internal/selection"
	"github.com/hyperjump/decklens/internal/server"
	"github.com/hyperjump/decklens/internal/source"
	"github.com/hyperjump/decklens/internal/vision"
	"github.com/hyperjump/decklens/internal/watcher"
	"github.com/hyperjump/decklens/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/decklens/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Falls back to built-in defaults when no file exists at all.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); statErr != nil {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "extract":
		runExtract()
	case "lookup":
		runLookup()
	case "version", "--version", "-v":
		fmt.Printf("decklens version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.New(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func(path string) {
				src, err := source.Open(path)
				if err != nil {
					logger.Warn("watch open failed", zap.String("path", path), zap.Error(err))
					return
				}
				defer src.Close()
				if _, err := components.Orchestrator.Run(context.Background(), src); err != nil {
					logger.Warn("watch extraction failed", zap.String("path", path), zap.Error(err))
				}
			},
			watchOpts...,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(components.Orchestrator, components.Cache, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Background cache sweep keeps expired entries from piling up.
	sweepTicker := time.NewTicker(time.Hour)
	defer sweepTicker.Stop()
	go func() {
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-sweepTicker.C:
				if _, err := components.Cache.Sweep(context.Background()); err != nil {
					logger.Warn("cache sweep failed", zap.Error(err))
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	if watchSvc != nil {
		watchSvc.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runExtract() {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: decklens extract [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	src, err := source.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open document: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	result, err := components.Orchestrator.Run(context.Background(), src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteResult(os.Stdout, result, outputFormatOf(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runLookup() {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	docID := fs.String("doc", "", "document ID (doc:<hash>)")
	limit := fs.Int("limit", 10, "number of entries")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *docID == "" || fs.NArg() < 1 {
		fmt.Println("Usage: decklens lookup --doc <document-id> <category-or-keywords>")
		os.Exit(1)
	}
	query := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	resultCache, err := cache.New(cfg.Cache, logger)
	if err != nil {
		logger.Fatal("Failed to open cache", zap.Error(err))
	}
	defer resultCache.Close()

	entries, err := resultCache.Lookup(context.Background(), *docID, query, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lookup failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteEntries(os.Stdout, entries, outputFormatOf(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func outputFormatOf(s string) cli.OutputFormat {
	if s == "json" {
		return cli.OutputJSON
	}
	return cli.OutputText
}

// Components holds initialized services.
type Components struct {
	Cache        *cache.Cache
	Orchestrator *pipeline.Orchestrator
}

func (c *Components) Close() {
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	resultCache, err := cache.New(cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	var backend vision.Backend
	switch cfg.Vision.Provider {
	case "mock":
		backend = vision.NewMockBackend()
	default:
		backend, err = vision.NewAnthropicBackend(cfg.Vision.Anthropic)
		if err != nil {
			_ = resultCache.Close()
			return nil, fmt.Errorf("failed to initialize vision backend: %w", err)
		}
	}

	budget := vision.NewBudget(cfg.Vision.MaxCalls, cfg.Vision.MaxTokens)
	worker, err := vision.NewWorker(backend, budget, cfg.Vision.Worker, logger)
	if err != nil {
		_ = resultCache.Close()
		return nil, fmt.Errorf("failed to initialize vision worker: %w", err)
	}

	orchestrator, err := pipeline.New(
		classify.New(cfg.Classify),
		scoring.NewScorer(&cfg.Scoring),
		selection.NewSelector(&cfg.Selection),
		worker,
		resultCache,
		cfg.Pipeline,
		logger,
	)
	if err != nil {
		_ = resultCache.Close()
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	return &Components{
		Cache:        resultCache,
		Orchestrator: orchestrator,
	}, nil
}

func printUsage() {
	fmt.Println(`decklens - Adaptive document extraction for pitch decks

Usage:
  decklens server [flags]                  Start the HTTP server
  decklens extract [flags] <file>          Extract a document
  decklens lookup --doc <id> <query>       Search cached pages of a document
  decklens version                         Show version
  decklens help                            Show this help

Server Flags:
  --config string    Config file path (default: ` + defaultConfigPath + `)
  --debug            Enable debug logging

Extract Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)

Lookup Flags:
  --config string    Config file path
  --doc string       Document ID returned by extract
  --limit int        Number of entries (default: 10)
  --output string    Output format: text or json (default: text)

Examples:
  decklens server
  decklens extract deck.pdf
  decklens extract --output json deck.pdf
  decklens lookup --doc doc:3f2a... financials
  decklens lookup --doc doc:3f2a... "burn rate"`)
}
