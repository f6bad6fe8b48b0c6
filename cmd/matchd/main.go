// Matchd is a skill-based matching daemon.
//
// It indexes people and work items as vectors and matches them to each
// other by semantic similarity over declared skills, with optional
// roadmap generation from a project description.
//
// Configuration is loaded from an optional YAML file plus environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults (embedded chromem store)
//	GEMINI_API_KEY=... matchd
//
//	# Configure via file and environment
//	SERVER_PORT=9090 VECTORSTORE_PROVIDER=qdrant matchd -config matchd.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/optiplanhq/matchd/internal/config"
	"github.com/optiplanhq/matchd/internal/embeddings"
	"github.com/optiplanhq/matchd/internal/logging"
	"github.com/optiplanhq/matchd/internal/matching"
	"github.com/optiplanhq/matchd/internal/roadmap"
	"github.com/optiplanhq/matchd/internal/server"
	"github.com/optiplanhq/matchd/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  matchd           Start the matchd daemon\n")
			fmt.Fprintf(os.Stderr, "  matchd version   Show version information\n")
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
	fmt.Printf("matchd\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires all dependencies and blocks until ctx is canceled or the
// server fails.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting matchd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("vectorstore", cfg.VectorStore.Provider),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout),
	)

	store, err := vectorstore.NewStore(cfg, logger.Named("vectorstore"))
	if err != nil {
		return fmt.Errorf("initializing vector store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	embedder, generator, err := initGemini(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = embedder.Close()
	}()

	indexer := matching.NewIndexer(store, embedder, matching.IndexerConfig{
		BatchSize: cfg.Matching.BatchSize,
	}, logger.Named("indexer"))
	matcher := matching.NewMatcher(store, embedder, matching.MatcherConfig{
		Overfetch:        cfg.Matching.Overfetch,
		FacetConcurrency: cfg.Matching.FacetConcurrency,
	}, logger.Named("matcher"))
	deleter := matching.NewDeleter(store, logger.Named("deleter"))

	core := server.NewCore(indexer, matcher, deleter, generator, logger.Named("core"))

	srv, err := server.NewServer(core, server.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		DefaultTopK: cfg.Matching.TopK,
	}, logger.Named("http"))
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// initGemini creates the embedding provider and roadmap generator. With
// the memory store provider and no API key, both are local no-network
// stand-ins so the daemon can run without credentials.
func initGemini(ctx context.Context, cfg *config.Config, logger *zap.Logger) (embeddings.Provider, roadmap.Generator, error) {
	if cfg.Gemini.APIKey == "" && cfg.VectorStore.Provider == "memory" {
		logger.Warn("no gemini api key: using local hash embedder, matches reflect token overlap only")
		return embeddings.NewHashProvider(cfg.VectorStore.VectorSize), nil, nil
	}

	embedder, err := embeddings.NewGeminiProvider(ctx, embeddings.GeminiConfig{
		APIKey:    cfg.Gemini.APIKey,
		Model:     cfg.Gemini.EmbeddingModel,
		Dimension: cfg.VectorStore.VectorSize,
		Strict:    cfg.Gemini.Strict,
	}, logger.Named("embeddings"))
	if err != nil {
		return nil, nil, fmt.Errorf("initializing embedding provider: %w", err)
	}

	generator, err := roadmap.NewGeminiGenerator(ctx, roadmap.GeminiConfig{
		APIKey: cfg.Gemini.APIKey,
		Model:  cfg.Gemini.GenerationModel,
	}, logger.Named("roadmap"))
	if err != nil {
		return nil, nil, fmt.Errorf("initializing roadmap generator: %w", err)
	}
	return embedder, generator, nil
}
