package embed

import (
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/grid"
	"github.com/matzehuels/sgtsnepi/pkg/repulsion"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	DefaultDims      = 2
	DefaultLambda    = 10.0
	DefaultMaxIter   = 1000
	DefaultEarlyExag = 250
	DefaultAlpha     = 12.0
	DefaultEta       = 200.0
	DefaultH         = 1.0
	DefaultCostEvery = 50

	// DefaultSeed is used when neither Seed nor Y0 is given.
	DefaultSeed = int64(42)

	etaPerVertex = 4.0 // vertices per unit of the size-based learning rate
	exagShare    = 4   // default exaggeration covers at most 1/exagShare of MaxIter

	momentumEarly = 0.5
	momentumLate  = 0.8
	gainFloor     = 0.01
)

// Mode selects the repulsion engine.
type Mode = repulsion.Mode

const (
	ModeAuto        = repulsion.ModeAuto
	ModeExact       = repulsion.ModeExact
	ModeNUConv      = repulsion.ModeNUConv
	ModeBandLimited = repulsion.ModeBandLimited
)

// EarlyStop stops annealing once the relative KL decrease over the last
// Window cost evaluations falls below Tol. Disabled when Window is zero.
type EarlyStop struct {
	Window int     `json:"window,omitempty"`
	Tol    float64 `json:"tol,omitempty"`
}

// Options configures an embedding run. Zero values select defaults; see
// ValidateAndSetDefaults.
type Options struct {
	Dims int `json:"dims,omitempty"`
	// Lambda is the λ of the row rescaling. Zero selects DefaultLambda, so
	// rescaling is switched off with any negative value.
	Lambda  float64 `json:"lambda,omitempty"`
	Mode    Mode    `json:"mode,omitempty"`
	MaxIter int     `json:"max_iter,omitempty"`
	// EarlyExag is the number of exaggerated iterations. Zero selects
	// min(DefaultEarlyExag, MaxIter/4); a negative value disables
	// exaggeration.
	EarlyExag int     `json:"early_exag,omitempty"`
	Alpha     float64 `json:"alpha,omitempty"`
	// Eta is the learning rate. Zero scales it with the active vertex
	// count, see LearningRate.
	Eta      float64 `json:"eta,omitempty"`
	DropLeaf bool    `json:"drop_leaf,omitempty"`

	// Y0 holds initial coordinates, row-major n×Dims.
	Y0   []float64 `json:"-"`
	Seed int64     `json:"seed,omitempty"`

	Threads   int     `json:"threads,omitempty"`
	H         float64 `json:"h,omitempty"`
	GridSizes []int   `json:"grid_sizes,omitempty"`

	// BandLimit caps the grid per dimension in band-limited mode; zero
	// uses repulsion.DefaultMaxSize.
	BandLimit int `json:"band_limit,omitempty"`

	Profile         bool      `json:"-"`
	CostEvery       int       `json:"-"`
	EarlyStop       EarlyStop `json:"early_stop,omitempty"`
	AllowLargeExact bool      `json:"allow_large_exact,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
	RunID  string      `json:"-"`

	// seedDefaulted records that Seed was filled in by defaults.
	seedDefaulted bool
	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// DefaultOptions returns Options with the numeric defaults spelled out.
// Seed and Logger stay unset; ValidateAndSetDefaults fills them. Eta stays
// zero so the learning rate follows the input size.
func DefaultOptions() Options {
	return Options{
		Dims:      DefaultDims,
		Lambda:    DefaultLambda,
		MaxIter:   DefaultMaxIter,
		EarlyExag: DefaultEarlyExag,
		Alpha:     DefaultAlpha,
		H:         DefaultH,
		GridSizes: grid.DefaultSizes(),
		CostEvery: DefaultCostEvery,
	}
}

// ValidateAndSetDefaults checks option consistency and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Dims == 0 {
		o.Dims = DefaultDims
	}
	if err := errors.ValidateDims(o.Dims); err != nil {
		return err
	}
	if o.Lambda == 0 {
		o.Lambda = DefaultLambda
	}
	if o.MaxIter == 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.MaxIter < 0 {
		return errors.New(errors.ErrCodeConfiguration, "max_iter must be positive, got %d", o.MaxIter)
	}
	if o.EarlyExag == 0 {
		o.EarlyExag = min(DefaultEarlyExag, max(o.MaxIter/exagShare, 1))
	}
	if o.EarlyExag < 0 {
		o.EarlyExag = 0
	}
	if o.EarlyExag > o.MaxIter {
		o.EarlyExag = o.MaxIter
	}
	if o.Alpha == 0 {
		o.Alpha = DefaultAlpha
	}
	if err := errors.ValidatePositive("alpha", o.Alpha); err != nil {
		return err
	}
	if o.Eta < 0 || math.IsNaN(o.Eta) || math.IsInf(o.Eta, 0) {
		return errors.New(errors.ErrCodeConfiguration, "eta must be positive or zero for the size-based default, got %v", o.Eta)
	}
	if o.H == 0 {
		o.H = DefaultH
	}
	if err := errors.ValidatePositive("h", o.H); err != nil {
		return err
	}
	if len(o.GridSizes) == 0 {
		o.GridSizes = grid.DefaultSizes()
	}
	for _, s := range o.GridSizes {
		if s < 4 {
			return errors.New(errors.ErrCodeConfiguration, "grid sizes must be at least 4, got %d", s)
		}
	}
	if o.BandLimit < 0 {
		return errors.New(errors.ErrCodeConfiguration, "band_limit must not be negative, got %d", o.BandLimit)
	}
	if o.Mode < ModeAuto || o.Mode > ModeBandLimited {
		return errors.New(errors.ErrCodeConfiguration, "unknown repulsion mode %v", o.Mode)
	}
	if o.CostEvery <= 0 {
		o.CostEvery = DefaultCostEvery
	}
	if o.EarlyStop.Window < 0 || o.EarlyStop.Tol < 0 {
		return errors.New(errors.ErrCodeConfiguration, "early stop window and tolerance must not be negative")
	}
	if o.Threads < 0 {
		return errors.New(errors.ErrCodeConfiguration, "threads must not be negative, got %d", o.Threads)
	}
	if o.Y0 != nil {
		if err := errors.ValidateFinite("Y0", o.Y0); err != nil {
			return err
		}
		if len(o.Y0)%o.Dims != 0 {
			return errors.New(errors.ErrCodeInvalidInput, "Y0 has %d values, not a multiple of %d dimensions", len(o.Y0), o.Dims)
		}
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
		o.seedDefaulted = true
	}

	// Logger default
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.validated = true
	return nil
}

// LearningRate returns the step size for n active vertices: Eta when set,
// otherwise n/4 clamped to [1, DefaultEta].
func (o *Options) LearningRate(n int) float64 {
	if o.Eta > 0 {
		return o.Eta
	}
	return min(DefaultEta, max(float64(n)/etaPerVertex, 1))
}

// repulsionConfig maps the options onto the engine configuration.
func (o *Options) repulsionConfig(mode Mode) repulsion.Config {
	cfg := repulsion.Config{
		Dims:            o.Dims,
		H:               o.H,
		GridSizes:       o.GridSizes,
		AllowLargeExact: o.AllowLargeExact,
	}
	if mode == ModeBandLimited && o.BandLimit > 0 {
		cfg.MaxSize = o.BandLimit
	}
	return cfg
}
