package rimage

import (
	"math"

	"github.com/felipeek/gimmesh/utils"
)

// Helper function for convolving matrices together, When used with i, dx := range makeRangeArray(n)
// i is the position within the kernel and dx gives the offset within the image.
// if length is even, then the origin is to the right of middle i.e. 4 -> {-2, -1, 0, 1}.
func makeRangeArray(length int) []int {
	if length <= 0 {
		return make([]int, 0)
	}
	rangeArray := make([]int, length)
	var span int
	if length%2 == 0 {
		oddArr := makeRangeArray(length - 1)
		span = length / 2
		rangeArray = append([]int{-span}, oddArr...)
	} else {
		span = (length - 1) / 2
		for i := 0; i < span; i++ {
			rangeArray[length-1-i] = span - i
			rangeArray[i] = -span + i
		}
	}
	return rangeArray
}

// GaussianFunction1D takes in a sigma and returns a gaussian function useful for weighing averages or blurring.
// The gaussian peaks at 1 for p = 0, so weights stay normal for any finite sigma. A non-positive sigma
// yields a constant function, which turns a weighted average into a plain one.
func GaussianFunction1D(sigma float64) func(p float64) float64 {
	if sigma <= 0. {
		return func(p float64) float64 {
			return 1.
		}
	}
	return func(p float64) float64 {
		r := p / sigma
		return math.Exp(-0.5 * r * r)
	}
}

// BilateralWindowSize is the side of the square neighborhood used for a spatial sigma: 3 sigma
// worth of gaussian on each side, at least 3 texels. The radius never exceeds maxRadius, past which
// every offset lands on a clamped border texel.
func BilateralWindowSize(spatialSigma float64, maxRadius int) int {
	radius := 0.
	if spatialSigma > 0 {
		radius = math.Min(3*spatialSigma, float64(utils.MaxInt(maxRadius, 1)))
	}
	return utils.MaxInt(3, 1+2*int(radius))
}

// maxRecursiveFeedback keeps 1-a representable for very large sigmas.
const maxRecursiveFeedback = 1 - 1e-9

// RecursiveFeedback is the feedback coefficient of the first order recursive filter for a spatial
// sigma expressed in texels. It is always below 1.
func RecursiveFeedback(spatialSigma float64) float64 {
	return math.Min(math.Exp(-math.Sqrt2/spatialSigma), maxRecursiveFeedback)
}

// RecursiveFilter smooths every channel with a separable first order recursive filter: one causal
// and one anticausal sweep along each row, then the same along each column. Each sweep starts from
// the steady state of a ramp through the two edge texels, so constant and linear runs (a flat grid
// of positions) pass through unchanged. A non-positive sigma returns a copy, and a single row or
// column skips the pass along it.
func RecursiveFilter(src *FloatImage, spatialSigma float64) *FloatImage {
	out := src.Clone()
	if spatialSigma <= 0 || math.IsNaN(spatialSigma) {
		return out
	}
	a := RecursiveFeedback(spatialSigma)

	rowStride := out.channels
	colStride := out.width * out.channels
	if out.width > 1 {
		utils.ParallelForEachRow(out.height, func(y int) {
			recursiveSweep(out.data, y*colStride, rowStride, out.width, out.channels, a)
		})
	}
	if out.height > 1 {
		utils.ParallelForEachRow(out.width, func(x int) {
			recursiveSweep(out.data, x*rowStride, colStride, out.height, out.channels, a)
		})
	}
	return out
}

// recursiveSweep filters n >= 2 texels starting at start and spaced stride samples apart, in place.
// The update J[i] = J[i-1] + (1-a)(I[i]-J[i-1]) keeps constant runs exactly constant.
func recursiveSweep(data []float64, start, stride, n, channels int, a float64) {
	gain := 1 - a
	for c := 0; c < channels; c++ {
		first := start + c
		last := first + (n-1)*stride

		slope := data[first+stride] - data[first]
		prev := data[first] - slope/gain
		for idx := first; idx <= last; idx += stride {
			data[idx] = prev + gain*(data[idx]-prev)
			prev = data[idx]
		}

		slope = data[last] - data[last-stride]
		next := data[last] + slope/gain
		for idx := last; idx >= first; idx -= stride {
			data[idx] = next + gain*(data[idx]-next)
			next = data[idx]
		}
	}
}

// BilateralFilter replaces every texel with a weighted average of its square neighborhood.
// A neighbor's weight is the product of a spatial gaussian on the grid offset and a range
// gaussian on the euclidean distance between the two texels' channel vectors. When rangeScale is
// given, its first channel multiplies the range distance at each center texel, so larger values
// smooth less. Neighborhoods past the border use the nearest edge texel, and the window radius is
// capped at the larger image side. A non-positive sigma makes the matching kernel constant.
func BilateralFilter(src *FloatImage, spatialSigma, rangeSigma float64, rangeScale *FloatImage) *FloatImage {
	if rangeScale != nil && (rangeScale.width != src.width || rangeScale.height != src.height) {
		utils.ContractViolation("range scale %dx%d does not match image %dx%d",
			rangeScale.width, rangeScale.height, src.width, src.height)
	}

	k := BilateralWindowSize(spatialSigma, utils.MaxInt(src.width, src.height))
	offsets := makeRangeArray(k)
	spatialFilter := GaussianFunction1D(spatialSigma)
	spatialWeights := make([]float64, len(offsets))
	for i, d := range offsets {
		spatialWeights[i] = spatialFilter(float64(d))
	}
	useRange := rangeSigma > 0
	rangeDenom := 2 * rangeSigma * rangeSigma

	out := NewFloatImage(src.width, src.height, src.channels)
	utils.ParallelForEachPixel(src.Bounds().Size(), func(x, y int) {
		center := src.Pixel(x, y)
		scale := 1.
		if rangeScale != nil {
			scale = rangeScale.At(x, y, 0)
		}

		acc := make([]float64, src.channels)
		totalWeight := 0.
		for j, dy := range offsets {
			for i, dx := range offsets {
				q := src.ClampedPixel(x+dx, y+dy)
				weight := spatialWeights[i] * spatialWeights[j]
				if useRange {
					dist := scale * channelDistance(center, q)
					weight *= math.Exp(-dist * dist / rangeDenom)
				}
				for c := range acc {
					acc[c] += weight * (q[c] - center[c])
				}
				totalWeight += weight
			}
		}

		dst := out.Pixel(x, y)
		for c := range dst {
			dst[c] = center[c] + acc[c]/totalWeight
		}
	})
	return out
}

func channelDistance(a, b []float64) float64 {
	sum := 0.
	for c := range a {
		d := a[c] - b[c]
		sum += d * d
	}
	return math.Sqrt(sum)
}
