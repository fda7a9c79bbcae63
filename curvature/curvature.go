// Package curvature estimates a signed curvature value per texel of a geometry image.
package curvature

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/felipeek/gimmesh/gim"
	"github.com/felipeek/gimmesh/rimage"
	"github.com/felipeek/gimmesh/utils"
)

// Estimator is a discrete curvature estimator over the texel grid.
type Estimator int

const (
	// MeanCurvature projects the umbrella Laplacian of the four clamped neighbors on the vertex normal.
	// It is signed and zero on any plane.
	MeanCurvature Estimator = iota
	// SurfaceVariation is the smallest eigenvalue of the 3x3 neighborhood covariance over the sum of
	// all three. It is unsigned, in [0, 1/3], and zero on any plane.
	SurfaceVariation
)

func (e Estimator) String() string {
	switch e {
	case MeanCurvature:
		return "mean"
	case SurfaceVariation:
		return "variation"
	default:
		return fmt.Sprintf("Estimator(%d)", int(e))
	}
}

// ParseEstimator is the inverse of Estimator.String. The empty string selects MeanCurvature.
func ParseEstimator(s string) (Estimator, error) {
	switch strings.ToLower(s) {
	case "", "mean":
		return MeanCurvature, nil
	case "variation":
		return SurfaceVariation, nil
	default:
		return 0, errors.Errorf("unknown curvature estimator %q", s)
	}
}

// GenerateImage returns a one channel image of the mean curvature of g, see GenerateImageWithEstimator.
func GenerateImage(g *gim.GeometryImage, scaleFactor, weight float64, blur *BlurInformation) *rimage.FloatImage {
	return GenerateImageWithEstimator(g, scaleFactor, weight, blur, MeanCurvature)
}

// GenerateImageWithEstimator estimates curvature at every texel of g. The raw estimate is multiplied
// by scaleFactor and then raised to weight keeping its sign, so weights above 1 stretch strong
// features apart from weak ones. A non-positive weight behaves as 1. When blur is enabled the
// positions are smoothed first. g is never modified.
func GenerateImageWithEstimator(
	g *gim.GeometryImage,
	scaleFactor, weight float64,
	blur *BlurInformation,
	estimator Estimator,
) *rimage.FloatImage {
	if weight <= 0 {
		weight = 1
	}

	surface := g
	if blur != nil && blur.UseBlur {
		surface = gim.New(blur.Apply(g.Img))
		surface.Update3D()
	} else if estimator == MeanCurvature && !g.Derived() {
		surface = g.Copy(false)
		surface.Update3D()
	}

	var estimate func(x, y int) float64
	switch estimator {
	case MeanCurvature:
		estimate = func(x, y int) float64 { return meanCurvature(surface, x, y) }
	case SurfaceVariation:
		estimate = func(x, y int) float64 { return surfaceVariation(surface.Img, x, y) }
	default:
		utils.ContractViolation("unknown curvature estimator %v", estimator)
	}

	out := rimage.NewFloatImage(g.Width(), g.Height(), 1)
	utils.ParallelForEachPixel(out.Bounds().Size(), func(x, y int) {
		out.Set(x, y, 0, utils.SignedPow(scaleFactor*estimate(x, y), weight))
	})
	return out
}

func meanCurvature(g *gim.GeometryImage, x, y int) float64 {
	p := g.Img.Vec3At(x, y)
	laplacian := g.Img.ClampedVec3At(x-1, y).
		Add(g.Img.ClampedVec3At(x+1, y)).
		Add(g.Img.ClampedVec3At(x, y-1)).
		Add(g.Img.ClampedVec3At(x, y+1)).
		Sub(p.Mul(4))
	return laplacian.Dot(g.Normals[y*g.Width()+x])
}

func surfaceVariation(img *rimage.FloatImage, x, y int) float64 {
	var neighborhood [9]r3.Vector
	var mean r3.Vector
	k := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			neighborhood[k] = img.ClampedVec3At(x+dx, y+dy)
			mean = mean.Add(neighborhood[k])
			k++
		}
	}
	mean = mean.Mul(1. / 9.)

	var cov [9]float64
	for _, q := range neighborhood {
		d := [3]float64{q.X - mean.X, q.Y - mean.Y, q.Z - mean.Z}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				cov[i*3+j] += d[i] * d[j] / 9
			}
		}
	}

	var eigen mat.EigenSym
	if !eigen.Factorize(mat.NewSymDense(3, cov[:]), false) {
		return 0
	}
	values := eigen.Values(nil)
	total := values[0] + values[1] + values[2]
	if total <= 0 {
		return 0
	}
	return math.Max(values[0], 0) / total
}

// Texture returns the curvature of g normalized to [0, 1] for display.
func Texture(g *gim.GeometryImage, scaleFactor, weight float64, blur *BlurInformation) *rimage.FloatImage {
	return rimage.NormalizeForVisualization(GenerateImage(g, scaleFactor, weight, blur))
}

// HeatMap returns the curvature texture of g colored from blue (flat) to red (curved).
func HeatMap(g *gim.GeometryImage, scaleFactor, weight float64, blur *BlurInformation) *rimage.FloatImage {
	return rimage.Colorize(Texture(g, scaleFactor, weight, blur))
}
