// Package main is the beroea CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/beroea/beroea/internal/ai"
	"github.com/beroea/beroea/internal/config"
	"github.com/beroea/beroea/internal/corpus"
	"github.com/beroea/beroea/internal/dictionary"
	"github.com/beroea/beroea/internal/keyword"
	"github.com/beroea/beroea/internal/lookup"
	"github.com/beroea/beroea/internal/ratelimit"
	"github.com/beroea/beroea/internal/scripture"
	"github.com/beroea/beroea/internal/server"
	"github.com/beroea/beroea/internal/storage"
	"github.com/beroea/beroea/internal/versions"
	"github.com/beroea/beroea/internal/watcher"
	"github.com/beroea/beroea/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/beroea/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence, so running from the project dir
// picks up the project's config.
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
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
			cfg = &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
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
	case "lookup":
		runLookup()
	case "define":
		runDefine()
	case "daily":
		runDaily()
	case "version", "--version", "-v":
		fmt.Printf("beroea version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`beroea - scripture and dictionary lookup service

Usage:
  beroea server [-config path] [-debug]        start the HTTP API
  beroea lookup [-version code] <query>        resolve a reference or search keywords
  beroea define [-language code] [-ai] <term>  look up a dictionary term
  beroea daily [-language code]                print the verse of the day
  beroea version                               print version
  beroea help                                  show this help`)
}

// components holds the wired lookup pipeline.
type components struct {
	Corpus  *corpus.Corpus
	Keyword *keyword.Index
	Fetcher *scripture.Fetcher
	Lookup  *lookup.Service
	Dict    *dictionary.Service
	AI      *ai.Client
	Storage storage.Storage
	Gate    *ratelimit.Gate
}

func (c *components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents wires the pipeline from config. withStorage controls
// whether the database is opened; the read-only CLI subcommands skip it.
func initializeComponents(cfg *config.Config, logger *zap.Logger, withStorage bool) (*components, error) {
	c, err := corpus.Load(cfg.Corpus.ExtraDirs, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	kw, err := keyword.NewIndex(c, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build keyword index: %w", err)
	}

	fetcher := scripture.NewFetcher(cfg.Scripture.BaseURL, cfg.Scripture.DefaultVersion, logger)
	lookupSvc := lookup.NewService(fetcher, kw, logger)

	gate := ratelimit.NewGate()
	var aiClient *ai.Client
	if key := os.Getenv(cfg.AI.APIKeyEnv); key != "" {
		aiClient = ai.NewClient(cfg.AI.BaseURL, cfg.AI.Model, key, gate, logger)
	} else {
		logger.Info("ai disabled: api key env not set", zap.String("env", cfg.AI.APIKeyEnv))
	}

	sources := dictionary.NewSources(cfg.Dictionary.APIBaseURL, cfg.Dictionary.WikiBaseURL, logger)
	var definer dictionary.AIDefiner
	if aiClient != nil {
		definer = aiClient
	}
	dict := dictionary.NewService(sources, definer, gate,
		time.Duration(cfg.Dictionary.CacheTTLHours)*time.Hour, logger)

	comps := &components{
		Corpus:  c,
		Keyword: kw,
		Fetcher: fetcher,
		Lookup:  lookupSvc,
		Dict:    dict,
		AI:      aiClient,
		Gate:    gate,
	}
	if withStorage {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		comps.Storage = store
	}
	return comps, nil
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

	comps, err := initializeComponents(cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	watchSvc := watcher.NewWatcher(cfg.Corpus.ExtraDirs, func() {
		if err := comps.Corpus.Reload(); err != nil {
			logger.Warn("corpus reload failed", zap.Error(err))
			return
		}
		if err := comps.Keyword.Rebuild(); err != nil {
			logger.Warn("keyword index rebuild failed", zap.Error(err))
		}
	}, logger)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer watchSvc.Stop()

	var gen server.Generator
	if comps.AI != nil {
		gen = comps.AI
	}
	srv := server.NewServer(
		comps.Lookup,
		comps.Dict,
		comps.Fetcher,
		gen,
		comps.Corpus,
		comps.Storage,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runLookup() {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	versionHint := fs.String("version", "", "translation code (RVR60, NVI, ...)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: beroea lookup [-version code] <query>")
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))

	cfg, logger := mustSetup(*configPath)
	defer logger.Sync()
	comps, err := initializeComponents(cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	result, err := comps.Lookup.Search(context.Background(), query, *versionHint, cfg.Language)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lookup failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(result)
}

func runDefine() {
	fs := flag.NewFlagSet("define", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	language := fs.String("language", "", "UI language (es, en, pt)")
	allowAI := fs.Bool("ai", false, "allow the AI fallback when free sources miss")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: beroea define [-language code] [-ai] <term>")
		os.Exit(1)
	}
	term := strings.TrimSpace(strings.Join(fs.Args(), " "))

	cfg, logger := mustSetup(*configPath)
	defer logger.Sync()
	if *language == "" {
		*language = cfg.Language
	}
	comps, err := initializeComponents(cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	result, err := comps.Dict.Define(context.Background(), term, *language, *allowAI)
	if err != nil {
		var rl *dictionary.RateLimitedError
		switch {
		case errors.As(err, &rl):
			fmt.Println(rl.Error())
		case errors.Is(err, dictionary.ErrNotFound) && !*allowAI:
			fmt.Println("No encontrado. Usa -ai para intentar con IA.")
		case errors.Is(err, dictionary.ErrNotFound):
			fmt.Println("No encontrado.")
		default:
			fmt.Fprintf(os.Stderr, "Define failed: %v\n", err)
		}
		os.Exit(1)
	}
	printJSON(result)
}

func runDaily() {
	fs := flag.NewFlagSet("daily", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	language := fs.String("language", "", "UI language (es, en, pt)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := mustSetup(*configPath)
	defer logger.Sync()
	if *language == "" {
		*language = cfg.Language
	}
	comps, err := initializeComponents(cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	dv := comps.Corpus.VerseOfDay(time.Now())
	ref := dv.Refs[*language]
	if ref == "" {
		ref = dv.Refs["es"]
	}
	fmt.Println(ref)
	if text := dv.Versions[versions.DefaultFor(*language)]; text != "" {
		fmt.Println(text)
	}
}

// mustSetup loads the config and builds a logger, exiting on failure. The CLI
// subcommands log at error level only unless debug is configured.
func mustSetup(configPath string) (*config.Config, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
