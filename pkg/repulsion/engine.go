package repulsion

import (
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/grid"
	"github.com/matzehuels/sgtsnepi/pkg/parallel"
)

const (
	// ExactMaxPoints is the largest point count the exact engine accepts
	// without AllowLargeExact.
	ExactMaxPoints = 10000

	// SmallInputThreshold is the active point count up to which ModeAuto
	// picks the exact engine.
	SmallInputThreshold = 256
)

// Mode selects a repulsion engine.
type Mode int

const (
	ModeAuto Mode = iota
	ModeExact
	ModeNUConv
	ModeBandLimited
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeExact:
		return "exact"
	case ModeNUConv:
		return "nuconv"
	case ModeBandLimited:
		return "nuconv_bl"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a CLI/config name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "exact":
		return ModeExact, nil
	case "nuconv":
		return ModeNUConv, nil
	case "nuconv_bl", "nuconv-bl", "bandlimited", "band-limited", "bl":
		return ModeBandLimited, nil
	}
	return ModeAuto, errors.New(errors.ErrCodeConfiguration, "unknown repulsion mode %q (want auto, exact, nuconv or nuconv_bl)", s)
}

// Resolve returns the concrete mode for n active points.
func (m Mode) Resolve(n int) Mode {
	if m != ModeAuto {
		return m
	}
	if n <= SmallInputThreshold {
		return ModeExact
	}
	return ModeBandLimited
}

// Stats describes one repulsion evaluation.
type Stats struct {
	GridSize [grid.MaxDims]int
	Extent   [grid.MaxDims]float64
	Spacing  [grid.MaxDims]float64
	Scale    [grid.MaxDims]float64

	Grid     time.Duration // lattice build and scatter
	Convolve time.Duration
	Gather   time.Duration
}

// Engine evaluates repulsive forces over a set of points.
type Engine interface {
	// Repulsion writes the unnormalized repulsive force of every point
	// into out (len(y)) and returns Z.
	Repulsion(y []float64, out []float64) (z float64, stats Stats, err error)
}

// Config holds the settings shared by the engines.
type Config struct {
	Dims int
	Pool *parallel.Pool

	// H is the target grid cell size. Zero means 1.
	H float64
	// GridSizes lists the allowed node counts per dimension. Empty means
	// grid.DefaultSizes().
	GridSizes []int
	// MaxSize caps the grid per dimension. Zero picks the mode default,
	// see DefaultMaxSize.
	MaxSize int

	// AllowLargeExact lifts the ExactMaxPoints limit.
	AllowLargeExact bool
}

// DefaultMaxSize returns the per-dimension grid cap for a mode.
func DefaultMaxSize(m Mode, d int) int {
	nuconv := [4]int{0, 512, 256, 64}
	band := [4]int{0, 512, 128, 48}
	if d < 1 || d > 3 {
		return 0
	}
	if m == ModeBandLimited {
		return band[d]
	}
	return nuconv[d]
}

// New returns the engine for a concrete mode serving n points.
func New(m Mode, n int, cfg Config) (Engine, error) {
	if err := errors.ValidateDims(cfg.Dims); err != nil {
		return nil, err
	}
	if cfg.H == 0 {
		cfg.H = 1
	}
	if err := errors.ValidatePositive("grid cell size h", cfg.H); err != nil {
		return nil, err
	}
	m = m.Resolve(n)
	switch m {
	case ModeExact:
		if n > ExactMaxPoints && !cfg.AllowLargeExact {
			return nil, errors.New(errors.ErrCodeConfiguration,
				"exact repulsion on %d points exceeds the limit of %d; use nuconv or allow large exact runs", n, ExactMaxPoints)
		}
		return NewExact(cfg.Dims, cfg.Pool), nil
	case ModeNUConv, ModeBandLimited:
		if cfg.MaxSize == 0 {
			cfg.MaxSize = DefaultMaxSize(m, cfg.Dims)
		}
		return NewNUConv(cfg)
	default:
		return nil, errors.New(errors.ErrCodeConfiguration, "unknown repulsion mode %v", m)
	}
}
