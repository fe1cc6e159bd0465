// Package main is the visearch CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/charpstar/visearch/internal/builder"
	"github.com/charpstar/visearch/internal/catalog"
	"github.com/charpstar/visearch/internal/cli"
	"github.com/charpstar/visearch/internal/config"
	"github.com/charpstar/visearch/internal/embedding"
	"github.com/charpstar/visearch/internal/models"
	"github.com/charpstar/visearch/internal/search"
	"github.com/charpstar/visearch/internal/server"
	"github.com/charpstar/visearch/internal/snapshot"
	"github.com/charpstar/visearch/internal/vector"
	"github.com/charpstar/visearch/internal/watcher"
	"github.com/charpstar/visearch/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/visearch/config.yaml"
	defaultServerURL  = "http://localhost:8000"
)

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory so running from the project dir
// picks up the project's config. Returns the config and the path actually used.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				applyEnvOverrides(cfg)
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, path, nil
}

// applyEnvOverrides lets deployment secrets come from the environment rather
// than the config file.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("VISEARCH_QDRANT_API_KEY"); v != "" {
		cfg.Index.Qdrant.APIKey = v
	}
	if v := os.Getenv("VISEARCH_QDRANT_URL"); v != "" {
		cfg.Index.Qdrant.URL = v
	}
	if v := os.Getenv("VISEARCH_REDIS_ADDR"); v != "" {
		cfg.Embedding.RedisAddr = v
	}
	if v := os.Getenv("VISEARCH_ARTIFACT_BASE_URL"); v != "" {
		cfg.Index.ArtifactBaseURL = v
	}
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "build":
		runBuild()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("visearch version %s\n", version)
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

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var artifactWatcher *watcher.Watcher
	if cfg.Index.Watch {
		loader := components.Loader
		handle := components.Handle
		artifactWatcher = watcher.New(
			[]string{cfg.Index.VectorsPath, cfg.Index.CatalogPath},
			func() {
				snap, err := loader.Load(context.Background())
				if err != nil {
					logger.Warn("snapshot reload failed, keeping current snapshot", zap.Error(err))
					return
				}
				if old := handle.Swap(snap); old != nil {
					_ = old.Close()
				}
				logger.Info("snapshot reloaded", zap.Int("vectors", snap.Index.Size()))
			},
			logger,
		)
		if err := artifactWatcher.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start artifact watcher", zap.Error(err))
		}
		defer artifactWatcher.Stop()
	}

	srv := server.NewServer(components.Engine, &cfg.Server, logger, version)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: visearch search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Use --image to search by image file instead.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  visearch search red leather sofa
  visearch search "red leather sofa"        # same as above
  visearch search --limit 5 office chair
  visearch search --image ./query.jpg
  visearch search --output json wooden table
`)
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = load the index directly)")
	limit := fs.Int("limit", 10, "number of results")
	imagePath := fs.String("image", "", "search by image file instead of text")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	query := &models.SearchQuery{Limit: *limit}
	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read image: %v\n", err)
			os.Exit(1)
		}
		query.ImageData = base64.StdEncoding.EncodeToString(data)
	} else {
		queryStr := buildSearchQuery(fs.Args())
		if queryStr == "" {
			printSearchUsage(fs)
			os.Exit(1)
		}
		query.Text = queryStr
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
		format = cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	if *serverURL != "" {
		response, err := searchViaHTTP(*serverURL, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct index access when no server is running.
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	response, err := components.Engine.Search(ctx, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	imageDir := fs.String("images", "", "directory of images to index (required)")
	_ = fs.Parse(os.Args[2:])

	if *imageDir == "" {
		fmt.Println("Usage: visearch build --images <dir> [--config <path>]")
		os.Exit(1)
	}

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

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	defer embedder.Close()

	store, err := catalog.NewStore(cfg.Index.Catalog, cfg.Index.CatalogPath)
	if err != nil {
		logger.Fatal("Failed to create catalog store", zap.Error(err))
	}
	defer store.Close()

	b := builder.New(embedder, store, indexFactory(context.Background(), cfg, logger), cfg.Index.VectorsPath, logger)
	stats, err := b.Build(context.Background(), *imageDir)
	if err != nil {
		logger.Fatal("Build failed", zap.Error(err))
	}
	fmt.Printf("Indexed %d of %d images (%d skipped) in %s\n",
		stats.Embedded, stats.Scanned, stats.Skipped, stats.Elapsed.Round(time.Millisecond))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = load the index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var info models.IndexInfo
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/index-info")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			fmt.Fprintf(os.Stderr, "Decode failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()
		info = *components.Engine.IndexInfo()
	}

	if *outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(info)
		return
	}
	fmt.Printf("Vectors:    %d\n", info.TotalVectors)
	fmt.Printf("Dimensions: %d\n", info.VectorDimension)
	fmt.Printf("Index type: %s\n", info.IndexType)
	fmt.Printf("Catalog:    %d entries\n", info.CatalogEntries)
}

// Components bundles everything the server and direct CLI modes need.
type Components struct {
	Store    catalog.Store
	Embedder embedding.Embedder
	Loader   *snapshot.Loader
	Handle   *snapshot.Handle
	Engine   *search.Engine
}

func (c *Components) Close() {
	if c.Handle != nil {
		if snap := c.Handle.Current(); snap != nil {
			_ = snap.Close()
		}
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

// newEmbedder creates the configured embedding provider, falling back to the
// mock embedder when the CLIP models cannot be loaded.
func newEmbedder(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, error) {
	var embedder embedding.Embedder
	switch cfg.Embedding.Provider {
	case "mock":
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions, cfg.Embedding.MaxImageBytes)
	default:
		clip, err := embedding.NewClipEmbedder(embedding.ClipConfig{
			TextModelPath:   cfg.Embedding.TextModelPath,
			VisualModelPath: cfg.Embedding.VisualModelPath,
			Dimensions:      cfg.Embedding.Dimensions,
			MaxTokens:       cfg.Embedding.MaxTokens,
			MaxImageBytes:   cfg.Embedding.MaxImageBytes,
		})
		if err != nil {
			logger.Warn("CLIP unavailable, falling back to mock embedder", zap.Error(err))
			embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions, cfg.Embedding.MaxImageBytes)
		} else {
			embedder = clip
		}
	}

	switch cfg.Embedding.Cache {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Embedding.RedisAddr})
		embedder = embedding.NewCachedEmbedder(embedder, embedding.NewRedisCache(client, 0))
	case "none":
	default:
		embedder = embedding.NewCachedEmbedder(embedder, embedding.NewMemoryCache(cfg.Embedding.CacheSize))
	}
	return embedder, nil
}

// indexFactory returns a constructor for the configured index backend,
// shared by the build and serve paths so their artifacts round-trip.
// Backend creation failures fall back to flat.
func indexFactory(ctx context.Context, cfg *config.Config, logger *zap.Logger) func() (vector.Index, error) {
	qdrantCfg := vector.QdrantConfig{
		URL:        cfg.Index.Qdrant.URL,
		Collection: cfg.Index.Qdrant.Collection,
		APIKey:     cfg.Index.Qdrant.APIKey,
	}
	return func() (vector.Index, error) {
		idx, err := vector.NewIndex(ctx, cfg.Index.Type, cfg.Embedding.Dimensions, qdrantCfg)
		if err != nil && cfg.Index.Type != string(vector.IndexTypeFlat) && cfg.Index.Type != "" {
			logger.Warn("failed to create vector index, falling back to flat",
				zap.String("requested_type", cfg.Index.Type),
				zap.Error(err))
			return vector.NewFlatIndex(cfg.Embedding.Dimensions)
		}
		return idx, err
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if cfg.Index.ArtifactBaseURL != "" {
		fetchTimeout := time.Duration(cfg.Index.FetchTimeoutSeconds) * time.Second
		vectorsPath, metadataPath, err := snapshot.FetchArtifacts(
			ctx, cfg.Index.ArtifactBaseURL, cfg.Index.CacheDir, fetchTimeout)
		if err != nil {
			return nil, fmt.Errorf("fetch artifacts: %w", err)
		}
		logger.Info("artifacts fetched",
			zap.String("base_url", cfg.Index.ArtifactBaseURL),
			zap.String("cache_dir", cfg.Index.CacheDir))
		cfg.Index.VectorsPath = vectorsPath
		cfg.Index.CatalogPath = metadataPath
		cfg.Index.Catalog = "json"
	}

	store, err := catalog.NewStore(cfg.Index.Catalog, cfg.Index.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog store: %w", err)
	}

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	newIndex := indexFactory(ctx, cfg, logger)
	logger.Info("vector index configured",
		zap.String("type", cfg.Index.Type),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()))

	loader := &snapshot.Loader{
		NewIndex:    newIndex,
		Store:       store,
		VectorsPath: cfg.Index.VectorsPath,
		Logger:      logger,
	}
	snap, err := loader.Load(ctx)
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	handle := snapshot.NewHandle(snap)

	engine := search.NewEngine(handle, embedder, &cfg.Search, &cfg.Embedding, logger)

	return &Components{
		Store:    store,
		Embedder: embedder,
		Loader:   loader,
		Handle:   handle,
		Engine:   engine,
	}, nil
}

func printUsage() {
	fmt.Println(`visearch - image similarity search

Usage:
  visearch server [flags]           Start the HTTP server
  visearch search [flags] <query>   Search the index by text or image
  visearch build [flags]            Build index artifacts from a directory of images
  visearch status [flags]           Show index status
  visearch version                  Show version
  visearch help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/visearch/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8000). Use --server "" to load the index directly.
  --limit int        Number of results (default: 10)
  --image string     Search by image file instead of text
  --output string    Output format: text or json (default: text)

Build Flags:
  --config string    Config file path
  --images string    Directory of images to index (required)

Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8000). Use --server "" to load the index directly.
  --output string    Output format: text or json (default: text)

Examples:
  visearch server
  visearch build --images ./catalog-images
  visearch search red leather sofa
  visearch search --image ./query.jpg --limit 5
  visearch status --output json`)
}
