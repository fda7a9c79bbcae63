// Package filter smooths geometry images with image filters applied to their position field.
package filter

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"

	"github.com/felipeek/gimmesh/curvature"
	"github.com/felipeek/gimmesh/gim"
	"github.com/felipeek/gimmesh/logging"
	"github.com/felipeek/gimmesh/rimage"
)

// Engine runs filters and reports their progress to its logger.
type Engine struct {
	logger logging.Logger
}

// NewEngine returns an Engine logging to logger.
func NewEngine(logger logging.Logger) *Engine {
	return &Engine{logger: logger}
}

// Apply filters original with a new engine logging under the global logger.
func Apply(original *gim.GeometryImage, iterations int, cfg Config) (*gim.GeometryImage, error) {
	return NewEngine(logging.Global().Sublogger("filter")).Apply(original, iterations, cfg)
}

// FilterGeometryImage is the positional form of Apply. rangeFactor is read by the distance and
// curvature modes, blur only by CurvatureFilter, which rejects a nil blur. NoiseGenerator uses
// spatialFactor as its intensity.
func FilterGeometryImage(
	original *gim.GeometryImage,
	numIterations int,
	spatialFactor, rangeFactor float64,
	mode Mode,
	blur *curvature.BlurInformation,
) (*gim.GeometryImage, error) {
	cfg, err := LegacyConfig(spatialFactor, rangeFactor, mode, blur)
	if err != nil {
		return nil, err
	}
	return Apply(original, numIterations, cfg)
}

// Apply runs cfg iterations times over a copy of original and returns the result with its 3D data
// derived. Every iteration reads the previous one's positions and is followed by Update3D, so
// curvature weighting always sees the current surface. original is never modified; with
// iterations <= 0 the result is a derived copy of it.
func (e *Engine) Apply(original *gim.GeometryImage, iterations int, cfg Config) (*gim.GeometryImage, error) {
	if original == nil || original.Img == nil {
		return nil, errors.Wrap(ErrInvalidConfiguration, "no geometry image to filter")
	}
	if cfg == nil {
		return nil, errors.Wrap(ErrInvalidConfiguration, "no filter configured")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	step := e.stepFor(cfg)
	current := original.Copy(false)
	current.Update3D()

	start := time.Now()
	for i := 0; i < iterations; i++ {
		iterStart := time.Now()
		next := step(current)
		next.Update3D()
		current = next
		e.logger.Debugw("filter iteration done",
			"mode", cfg.Mode().String(), "iteration", i+1, "of", iterations, "took", time.Since(iterStart).String())
	}
	if iterations > 0 {
		e.logger.Infow("filter done",
			"mode", cfg.Mode().String(),
			"iterations", iterations,
			"width", current.Width(),
			"height", current.Height(),
			"took", time.Since(start).String())
	}
	return current, nil
}

type stepFunc func(g *gim.GeometryImage) *gim.GeometryImage

func (e *Engine) stepFor(cfg Config) stepFunc {
	switch c := cfg.(type) {
	case Recursive:
		return func(g *gim.GeometryImage) *gim.GeometryImage {
			return gim.New(rimage.RecursiveFilter(g.Img, c.Spatial))
		}
	case Distance:
		return func(g *gim.GeometryImage) *gim.GeometryImage {
			return gim.New(rimage.BilateralFilter(g.Img, c.Spatial, c.Range, nil))
		}
	case Curvature:
		c = c.withDefaults()
		return func(g *gim.GeometryImage) *gim.GeometryImage {
			return gim.New(rimage.BilateralFilter(g.Img, c.Spatial, c.Range, CurvatureRangeScale(g, c)))
		}
	case Noise:
		seed := c.Seed
		if seed == 0 {
			//nolint:gosec
			seed = uint64(time.Now().UnixNano())
		}
		src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
		return func(g *gim.GeometryImage) *gim.GeometryImage {
			return gim.AddNoiseWithSource(g, c.Intensity, src)
		}
	default:
		// Config is sealed, Validate has already accepted cfg.
		panic(errors.Errorf("unhandled filter config %T", cfg))
	}
}

// CurvatureRangeScale returns 1+|k| per texel, where k is the curvature of g as configured by c. It
// multiplies the bilateral range distance, so curved regions are smoothed less than flat ones.
func CurvatureRangeScale(g *gim.GeometryImage, c Curvature) *rimage.FloatImage {
	c = c.withDefaults()
	kappa := curvature.GenerateImageWithEstimator(g, c.Scale, c.Weight, &c.Blur, c.Estimator)
	data := kappa.Data()
	for i, k := range data {
		data[i] = 1 + math.Abs(k)
	}
	return kappa
}
