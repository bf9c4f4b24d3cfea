// Package config loads sgtsnepi settings from TOML files.
//
// A file has three optional tables:
//
//	[embed]
//	dims = 2
//	lambda = 10
//	mode = "nuconv_bl"
//	max_iter = 1000
//	early_exag = 250
//	seed = 7
//
//	[graph]
//	perplexity = 30
//	knn = "approx"
//
//	[cache]
//	dir = "/tmp/sgtsnepi"
//	redis_url = "redis://localhost:6379/0"
//	ttl = "72h"
//
// Unset keys keep their zero value, which the library packages read as
// "use the default". Unknown keys are an error.
package config

import (
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/sgtsnepi/pkg/affinity"
	"github.com/matzehuels/sgtsnepi/pkg/embed"
	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/knn"
	"github.com/matzehuels/sgtsnepi/pkg/repulsion"
)

// File is the decoded form of a config file.
type File struct {
	Embed Embed `toml:"embed"`
	Graph Graph `toml:"graph"`
	Cache Cache `toml:"cache"`
}

// Embed mirrors embed.Options.
type Embed struct {
	Dims            int     `toml:"dims,omitempty"`
	Lambda          float64 `toml:"lambda,omitempty"`
	Mode            string  `toml:"mode,omitempty"`
	MaxIter         int     `toml:"max_iter,omitempty"`
	EarlyExag       int     `toml:"early_exag,omitempty"`
	Alpha           float64 `toml:"alpha,omitempty"`
	Eta             float64 `toml:"eta,omitempty"`
	DropLeaf        bool    `toml:"drop_leaf,omitempty"`
	Seed            int64   `toml:"seed,omitempty"`
	Threads         int     `toml:"threads,omitempty"`
	H               float64 `toml:"h,omitempty"`
	GridSizes       []int   `toml:"grid_sizes,omitempty"`
	BandLimit       int     `toml:"band_limit,omitempty"`
	CostEvery       int     `toml:"cost_every,omitempty"`
	EarlyStopWindow int     `toml:"early_stop_window,omitempty"`
	EarlyStopTol    float64 `toml:"early_stop_tol,omitempty"`
	AllowLargeExact bool    `toml:"allow_large_exact,omitempty"`
}

// Graph mirrors affinity.Options.
type Graph struct {
	Perplexity float64 `toml:"perplexity,omitempty"`
	K          int     `toml:"k,omitempty"`
	Method     string  `toml:"knn,omitempty"`
	Trees      int     `toml:"trees,omitempty"`
	LeafSize   int     `toml:"leaf_size,omitempty"`
	Seed       int64   `toml:"seed,omitempty"`
}

// Cache configures the artifact cache.
type Cache struct {
	Disabled      bool   `toml:"disabled,omitempty"`
	Dir           string `toml:"dir,omitempty"`
	RedisURL      string `toml:"redis_url,omitempty"`
	MemoryEntries int    `toml:"memory_entries,omitempty"`
	// TTL bounds entries in the memory front layer; empty keeps them as
	// long as the backing entry.
	TTL           string `toml:"ttl,omitempty"`
}

// TTLDuration parses Cache.TTL; empty means zero.
func (c Cache) TTLDuration() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d < 0 {
		return 0, errors.New(errors.ErrCodeConfiguration, "cache ttl %q is not a valid duration", c.TTL)
	}
	return d, nil
}

// Load reads and validates a config file.
func Load(path string) (*File, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open config %s", path)
		}
		return nil, err
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "config %s", path)
	}
	return cfg, nil
}

// Decode parses TOML from r.
func Decode(r io.Reader) (*File, error) {
	var cfg File
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode toml")
	}
	if und := md.Undecoded(); len(und) > 0 {
		keys := make([]string, len(und))
		for i, k := range und {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.New(errors.ErrCodeConfiguration, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if _, err := cfg.EmbedOptions(); err != nil {
		return nil, err
	}
	if _, err := cfg.GraphOptions(); err != nil {
		return nil, err
	}
	if _, err := cfg.Cache.TTLDuration(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg *File) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// EmbedOptions converts the [embed] table. Logger and Y0 stay unset.
func (f *File) EmbedOptions() (embed.Options, error) {
	e := f.Embed
	mode, err := repulsion.ParseMode(e.Mode)
	if err != nil {
		return embed.Options{}, err
	}
	return embed.Options{
		Dims:            e.Dims,
		Lambda:          e.Lambda,
		Mode:            mode,
		MaxIter:         e.MaxIter,
		EarlyExag:       e.EarlyExag,
		Alpha:           e.Alpha,
		Eta:             e.Eta,
		DropLeaf:        e.DropLeaf,
		Seed:            e.Seed,
		Threads:         e.Threads,
		H:               e.H,
		GridSizes:       e.GridSizes,
		BandLimit:       e.BandLimit,
		CostEvery:       e.CostEvery,
		EarlyStop:       embed.EarlyStop{Window: e.EarlyStopWindow, Tol: e.EarlyStopTol},
		AllowLargeExact: e.AllowLargeExact,
	}, nil
}

// GraphOptions converts the [graph] table. Pool stays unset.
func (f *File) GraphOptions() (affinity.Options, error) {
	g := f.Graph
	method, err := knn.ParseMethod(g.Method)
	if err != nil {
		return affinity.Options{}, err
	}
	return affinity.Options{
		Perplexity: g.Perplexity,
		K:          g.K,
		Method:     method,
		Approx:     knn.ApproxOptions{Trees: g.Trees, LeafSize: g.LeafSize, Seed: g.Seed},
	}, nil
}
