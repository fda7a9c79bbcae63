package filter

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/felipeek/gimmesh/curvature"
	"github.com/felipeek/gimmesh/utils"
)

// ErrInvalidConfiguration is wrapped by every configuration the engine refuses to run.
var ErrInvalidConfiguration = errors.New("invalid filter configuration")

// Mode identifies a filter algorithm.
type Mode int

const (
	// RecursiveFilter is the separable recursive low-pass filter.
	RecursiveFilter Mode = iota
	// DistanceFilter is the bilateral filter.
	DistanceFilter
	// CurvatureFilter is the bilateral filter with its range term scaled by curvature.
	CurvatureFilter
	// NoiseGenerator perturbs positions instead of smoothing them.
	NoiseGenerator
)

func (m Mode) String() string {
	switch m {
	case RecursiveFilter:
		return "recursive"
	case DistanceFilter:
		return "distance"
	case CurvatureFilter:
		return "curvature"
	case NoiseGenerator:
		return "noise"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{RecursiveFilter, DistanceFilter, CurvatureFilter, NoiseGenerator} {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidConfiguration, "unknown filter mode %q", s)
}

// Config is one of Recursive, Distance, Curvature or Noise.
type Config interface {
	Mode() Mode
	Validate() error

	isConfig()
}

// Recursive configures RecursiveFilter. Spatial is the sigma of the recursion in texels.
type Recursive struct {
	Spatial float64 `json:"spatial" mapstructure:"spatial"`
}

// Distance configures DistanceFilter.
type Distance struct {
	Spatial float64 `json:"spatial" mapstructure:"spatial"`
	Range   float64 `json:"range" mapstructure:"range"`
}

// Curvature configures CurvatureFilter. Zero Scale and Weight select 100 and 1.
type Curvature struct {
	Spatial   float64                   `json:"spatial" mapstructure:"spatial"`
	Range     float64                   `json:"range" mapstructure:"range"`
	Scale     float64                   `json:"scale,omitempty" mapstructure:"scale"`
	Weight    float64                   `json:"weight,omitempty" mapstructure:"weight"`
	Estimator curvature.Estimator       `json:"estimator,omitempty" mapstructure:"estimator"`
	Blur      curvature.BlurInformation `json:"blur" mapstructure:"blur"`
}

// Noise configures NoiseGenerator. A zero Seed draws a new one for every run.
type Noise struct {
	Intensity float64 `json:"intensity" mapstructure:"intensity"`
	Seed      uint64  `json:"seed,omitempty" mapstructure:"seed"`
}

// Defaults for the curvature map driving CurvatureFilter.
const (
	DefaultCurvatureScale  = 100.
	DefaultCurvatureWeight = 1.
)

func (Recursive) isConfig() {}
func (Distance) isConfig()  {}
func (Curvature) isConfig() {}
func (Noise) isConfig()     {}

// Mode returns RecursiveFilter.
func (Recursive) Mode() Mode { return RecursiveFilter }

// Mode returns DistanceFilter.
func (Distance) Mode() Mode { return DistanceFilter }

// Mode returns CurvatureFilter.
func (Curvature) Mode() Mode { return CurvatureFilter }

// Mode returns NoiseGenerator.
func (Noise) Mode() Mode { return NoiseGenerator }

func finite(names []string, values ...float64) error {
	for i, v := range values {
		if !utils.IsFinite(v) {
			return errors.Wrapf(ErrInvalidConfiguration, "%s must be finite, got %v", names[i], v)
		}
	}
	return nil
}

// Validate checks the factors are finite.
func (c Recursive) Validate() error {
	return finite([]string{"spatial"}, c.Spatial)
}

// Validate checks the factors are finite.
func (c Distance) Validate() error {
	return finite([]string{"spatial", "range"}, c.Spatial, c.Range)
}

// Validate checks the factors, the estimator and the pre-blur.
func (c Curvature) Validate() error {
	if err := finite([]string{"spatial", "range", "scale", "weight"}, c.Spatial, c.Range, c.Scale, c.Weight); err != nil {
		return err
	}
	if c.Estimator != curvature.MeanCurvature && c.Estimator != curvature.SurfaceVariation {
		return errors.Wrapf(ErrInvalidConfiguration, "unknown curvature estimator %v", c.Estimator)
	}
	if err := c.Blur.Validate(); err != nil {
		return errors.Wrap(ErrInvalidConfiguration, err.Error())
	}
	return nil
}

// Validate checks the intensity is finite.
func (c Noise) Validate() error {
	return finite([]string{"intensity"}, c.Intensity)
}

func (c Curvature) withDefaults() Curvature {
	if c.Scale == 0 {
		c.Scale = DefaultCurvatureScale
	}
	if c.Weight == 0 {
		c.Weight = DefaultCurvatureWeight
	}
	return c
}

// LegacyConfig maps the positional parameters of FilterGeometryImage onto a Config. The blur is only
// read by CurvatureFilter, which requires it.
func LegacyConfig(spatialFactor, rangeFactor float64, mode Mode, blur *curvature.BlurInformation) (Config, error) {
	switch mode {
	case RecursiveFilter:
		return Recursive{Spatial: spatialFactor}, nil
	case DistanceFilter:
		return Distance{Spatial: spatialFactor, Range: rangeFactor}, nil
	case CurvatureFilter:
		if blur == nil {
			return nil, errors.Wrap(ErrInvalidConfiguration, "curvature filter requires blur information")
		}
		return Curvature{Spatial: spatialFactor, Range: rangeFactor, Blur: *blur}, nil
	case NoiseGenerator:
		return Noise{Intensity: spatialFactor}, nil
	default:
		return nil, errors.Wrapf(ErrInvalidConfiguration, "unknown filter mode %v", mode)
	}
}
