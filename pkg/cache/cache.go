// Package cache stores intermediate pipeline artifacts (kNN graphs and
// embeddings) keyed by a content hash of their inputs and options.
//
// Backends:
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [MemoryCache]: bounded in-process LRU
//   - [RedisCache]: shared backend for several processes or hosts
//   - [NullCache]: disables caching
//
// [Layered] chains two backends, typically memory in front of file.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was found. A missing or
	// expired entry is a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop all their entries.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Default time-to-live per artifact kind.
const (
	TTLGraph     = 30 * 24 * time.Hour
	TTLEmbedding = 7 * 24 * time.Hour
)

// GraphKeyOpts are the settings that determine a kNN graph.
type GraphKeyOpts struct {
	Perplexity float64 `json:"perplexity"`
	K          int     `json:"k"`
	Method     string  `json:"method"`
	Seed       int64   `json:"seed,omitempty"`
}

// EmbeddingKeyOpts are the settings that determine an embedding.
type EmbeddingKeyOpts struct {
	Dims      int     `json:"dims"`
	Lambda    float64 `json:"lambda"`
	Mode      string  `json:"mode"`
	MaxIter   int     `json:"max_iter"`
	EarlyExag int     `json:"early_exag"`
	Alpha     float64 `json:"alpha"`
	Eta       float64 `json:"eta"`
	DropLeaf  bool    `json:"drop_leaf"`
	Seed      int64   `json:"seed"`
	H         float64 `json:"h"`
	GridSizes []int   `json:"grid_sizes,omitempty"`
	BandLimit int     `json:"band_limit,omitempty"`

	// Early stopping settings; zero when early stopping is off.
	CostEvery  int     `json:"cost_every,omitempty"`
	StopWindow int     `json:"stop_window,omitempty"`
	StopTol    float64 `json:"stop_tol,omitempty"`

	// Y0Hash identifies explicit initial coordinates, if any.
	Y0Hash string `json:"y0_hash,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	GraphKey(inputHash string, opts GraphKeyOpts) string
	EmbeddingKey(graphHash string, opts EmbeddingKeyOpts) string
}

// DefaultKeyer hashes key options as JSON.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// GraphKey returns the key of the kNN graph built from the input with the
// given content hash.
func (DefaultKeyer) GraphKey(inputHash string, opts GraphKeyOpts) string {
	return hashKey("graph", inputHash, opts)
}

// EmbeddingKey returns the key of an embedding of the graph with the
// given content hash.
func (DefaultKeyer) EmbeddingKey(graphHash string, opts EmbeddingKeyOpts) string {
	return hashKey("embedding", graphHash, opts)
}
