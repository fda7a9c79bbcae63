package rimage

import (
	"math"
)

// Weights for noise estimation.
var noiseEstimationKernel = [3][3]float64{
	{1, -2, 1},
	{-2, 4, -2},
	{1, -2, 1},
}

// EstimateNoise estimates the standard deviation of additive gaussian noise in img, averaged over
// its channels. Images smaller than 3x3 report zero.
// From J. Immerkær, "Fast Noise Variance Estimation", Computer Vision and Image Understanding,
// Vol. 64, No. 2, pp. 300-302, Sep. 1996.
func EstimateNoise(img *FloatImage) float64 {
	if img.width < 3 || img.height < 3 {
		return 0
	}
	xRange, yRange := makeRangeArray(3), makeRangeArray(3)
	total := 0.
	for c := 0; c < img.channels; c++ {
		sum := 0.
		for y := 1; y < img.height-1; y++ {
			for x := 1; x < img.width-1; x++ {
				conv := 0.
				for j, dy := range yRange {
					for i, dx := range xRange {
						conv += noiseEstimationKernel[j][i] * img.At(x+dx, y+dy, c)
					}
				}
				sum += math.Abs(conv)
			}
		}
		total += sum * math.Sqrt(0.5*math.Pi) / (6 * float64(img.width-2) * float64(img.height-2))
	}
	return total / float64(img.channels)
}
