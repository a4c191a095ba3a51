package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/rpggio/dirstream/internal/config"
	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/rpggio/dirstream/internal/domain/stream"
	"github.com/rpggio/dirstream/internal/mcp"
	"github.com/rpggio/dirstream/internal/metrics"
	"github.com/rpggio/dirstream/internal/sqlite"
	"github.com/rpggio/dirstream/internal/transport"
)

const shutdownTimeout = 5 * time.Second

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	repo, closeRepo, err := openRepository(context.Background(), cfg.Data, logger)
	if err != nil {
		logger.Error("failed to open directory", "backend", cfg.Data.Backend, "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler := stream.NewHandler(
		stream.NewSource(repo, cfg.Stream.Pacing, logger),
		metrics.New(registry),
		logger,
	)
	hub := transport.NewHub(handler, logger)

	svc := directory.NewService(repo, directory.ServiceOptions{
		Latency:       cfg.Fetch.Latency,
		LookupLatency: cfg.Fetch.LookupLatency,
	}, logger)
	mcpServer := mcp.NewServer(mcp.Config{
		Directory: svc,
		Version:   version,
		Logger:    logger,
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	httpServer := &http.Server{
		Addr: cfg.Addr(),
		Handler: transport.NewServer(transport.Options{
			HubPath:  cfg.Server.HubPath,
			Hub:      hub,
			MCP:      mcpHandler,
			Gatherer: registry,
			Logger:   logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, httpServer, hub); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then closes every hub connection and
// drains HTTP requests.
func run(ctx context.Context, logger *slog.Logger, server *http.Server, hub *transport.Hub) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down", "connections", hub.Connections())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		hub.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openRepository returns the directory backend named by cfg and a func
// releasing it.
func openRepository(ctx context.Context, cfg config.DataConfig, logger *slog.Logger) (directory.Repository, func(), error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		if err := ensureDBDir(cfg.Path); err != nil {
			return nil, nil, fmt.Errorf("prepare database path: %w", err)
		}
		db, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		repo := sqlite.NewDirectoryRepository(db)
		seeded, err := repo.SeedIfEmpty(ctx, directory.SampleUsers(), directory.SampleProjects())
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("directory opened", "backend", cfg.Backend, "path", cfg.Path, "seeded", seeded)
		return repo, func() { _ = db.Close() }, nil
	default:
		logger.Info("directory opened", "backend", config.BackendMemory)
		return directory.NewSampleRepository(), func() {}, nil
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
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
