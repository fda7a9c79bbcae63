package gim

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"github.com/felipeek/gimmesh/logging"
	"github.com/felipeek/gimmesh/rimage"
	"github.com/felipeek/gimmesh/spatialmath"
)

// Metrics summarizes how far the texels of one geometry image moved relative to another.
type Metrics struct {
	Mean   float64
	StdDev float64
	RMS    float64
	P95    float64
	Max    float64
	// MeanSurfaceDistance is the mean distance from each texel of the second image to the surface
	// patch around the same texel of the first one, which ignores sliding along the surface.
	MeanSurfaceDistance float64
}

// Compare measures the per texel displacement between a and b, which must have the same size.
func Compare(a, b *GeometryImage) (Metrics, error) {
	a.checkLive()
	b.checkLive()
	if a.Width() != b.Width() || a.Height() != b.Height() {
		return Metrics{}, errors.Errorf("cannot compare %dx%d with %dx%d geometry image",
			a.Width(), a.Height(), b.Width(), b.Height())
	}
	n := a.Img.Len()
	displacements := make(stats.Float64Data, 0, n)
	squared := make(stats.Float64Data, 0, n)
	surface := make(stats.Float64Data, 0, n)
	for y := 0; y < a.Height(); y++ {
		for x := 0; x < a.Width(); x++ {
			p := b.Img.Vec3At(x, y)
			d := p.Sub(a.Img.Vec3At(x, y)).Norm()
			displacements = append(displacements, d)
			squared = append(squared, d*d)
			surface = append(surface, distanceToPatch(a, x, y, p))
		}
	}

	var m Metrics
	var err error
	if m.Mean, err = displacements.Mean(); err != nil {
		return Metrics{}, err
	}
	if m.StdDev, err = displacements.StandardDeviation(); err != nil {
		return Metrics{}, err
	}
	meanSquared, err := squared.Mean()
	if err != nil {
		return Metrics{}, err
	}
	m.RMS = math.Sqrt(meanSquared)
	if m.P95, err = displacements.PercentileNearestRank(95); err != nil {
		return Metrics{}, err
	}
	if m.Max, err = displacements.Max(); err != nil {
		return Metrics{}, err
	}
	if m.MeanSurfaceDistance, err = surface.Mean(); err != nil {
		return Metrics{}, err
	}
	return m, nil
}

// distanceToPatch returns the distance from p to the triangles of g touching texel (x, y), or to the
// texel itself when the grid has no cells.
func distanceToPatch(g *GeometryImage, x, y int, p r3.Vector) float64 {
	best := p.Sub(g.Img.Vec3At(x, y)).Norm()
	for cy := y - 1; cy <= y; cy++ {
		for cx := x - 1; cx <= x; cx++ {
			if cx < 0 || cy < 0 || cx+1 >= g.Width() || cy+1 >= g.Height() {
				continue
			}
			p00 := g.Img.Vec3At(cx, cy)
			p10 := g.Img.Vec3At(cx+1, cy)
			p01 := g.Img.Vec3At(cx, cy+1)
			p11 := g.Img.Vec3At(cx+1, cy+1)
			for _, tri := range []*spatialmath.Triangle{
				spatialmath.NewTriangle(p00, p10, p01),
				spatialmath.NewTriangle(p10, p11, p01),
			} {
				best = math.Min(best, tri.DistanceToPoint(p))
			}
		}
	}
	return best
}

// EstimateNoise estimates the standard deviation of noise in the position field.
func EstimateNoise(g *GeometryImage) float64 {
	g.checkLive()
	return rimage.EstimateNoise(g.Img)
}

// Check logs the size and per channel range of img, flagging non-finite samples.
func Check(logger logging.Logger, img *rimage.FloatImage) {
	nonFinite := 0
	for _, v := range img.Data() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			nonFinite++
		}
	}
	logger.Infow("image", "width", img.Width(), "height", img.Height(), "channels", img.Channels())
	for c := 0; c < img.Channels(); c++ {
		lo, hi := rimage.ChannelRange(img, c)
		logger.Infow("channel range", "channel", c, "min", lo, "max", hi)
	}
	if nonFinite > 0 {
		logger.Warnw("image has non-finite samples", "count", nonFinite)
	}
}
