package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sgtsnepi/pkg/cache"
	"github.com/matzehuels/sgtsnepi/pkg/config"
	"github.com/matzehuels/sgtsnepi/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "sgtsnepi"

	// redisURLEnv names the environment variable that selects a redis cache.
	redisURLEnv = "SGTSNEPI_REDIS_URL"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// config is the file named by --config, or an empty File.
	config *config.File
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		config: &config.File{},
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, err := newCache(ctx, c.config.Cache, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, nil, loggerFromContext(ctx)), nil
}

// newCache picks the backend from the [cache] table and the environment:
// redis when a URL is set, the file cache otherwise, with an optional
// in-memory LRU in front.
func newCache(ctx context.Context, cfg config.Cache, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Disabled {
		return cache.NewNullCache(), nil
	}
	ttl, err := cfg.TTLDuration()
	if err != nil {
		return nil, err
	}

	var back cache.Cache
	url := cfg.RedisURL
	if url == "" {
		url = os.Getenv(redisURLEnv)
	}
	if url != "" {
		back, err = cache.NewRedisCache(ctx, url)
		if err != nil {
			return nil, err
		}
	} else {
		dir := cfg.Dir
		if dir == "" {
			if dir, err = cacheDir(); err != nil {
				return cache.NewNullCache(), nil
			}
		}
		if back, err = cache.NewFileCache(dir); err != nil {
			return nil, err
		}
	}

	if cfg.MemoryEntries > 0 {
		front, err := cache.NewMemoryCache(cfg.MemoryEntries)
		if err != nil {
			back.Close()
			return nil, err
		}
		return cache.NewLayered(front, back, ttl), nil
	}
	return back, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/sgtsnepi/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
