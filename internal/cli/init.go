// Package cli provides common process initialization and terminal output
// shared by cmd/bilancio, cmd/bilancio-worker and cmd/bilancioctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bilancio/internal/cache"
	"bilancio/internal/config"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/payoff"
	"bilancio/internal/storage"
)

// SetupLogger builds the process logger and installs it as the slog default.
func SetupLogger(level, format, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Format:    strings.ToLower(format),
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Configuration load failed", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens and migrates the database at path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// Caches are the planner's result caches plus what it takes to stop them.
type Caches struct {
	Results     cache.Cache[core.SimulationResult]
	Comparisons cache.Cache[payoff.Comparison]

	manager *cache.Manager
	closers []func() error
}

// NewCaches builds LRU or Redis caches according to CACHE_BACKEND. LRU
// caches are swept of expired entries every minute.
func NewCaches(logger *log.Logger, cfg *config.Config) *Caches {
	c := &Caches{}
	switch cfg.CacheBackend {
	case "redis":
		results := cache.NewRedisCache[core.SimulationResult](cfg.RedisAddr, "bilancio:sim:", cfg.CacheTTL)
		comparisons := cache.NewRedisCache[payoff.Comparison](cfg.RedisAddr, "bilancio:cmp:", cfg.CacheTTL)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := results.Ping(ctx); err != nil {
			// Misses are served until Redis comes back.
			logger.Warn("Redis unreachable at startup", log.FieldError, err, "addr", cfg.RedisAddr)
		}
		cancel()

		c.Results, c.Comparisons = results, comparisons
		c.closers = append(c.closers, results.Close, comparisons.Close)
	default:
		results := cache.NewLRUCache[core.SimulationResult](cfg.CacheSize, cfg.CacheTTL)
		comparisons := cache.NewLRUCache[payoff.Comparison](cfg.CacheSize, cfg.CacheTTL)
		c.manager = cache.NewManager()
		c.manager.Register(results)
		c.manager.Register(comparisons)
		c.manager.StartCleanup(time.Minute)
		c.Results, c.Comparisons = results, comparisons
	}
	logger.Info("Result caches ready", "backend", cfg.CacheBackend, "ttl", cfg.CacheTTL.String())
	return c
}

// Close stops cleanup and releases cache connections.
func (c *Caches) Close() {
	if c.manager != nil {
		c.manager.Stop()
	}
	for _, closeFn := range c.closers {
		_ = closeFn()
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished or timed out.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-finished:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
