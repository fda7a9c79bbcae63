package rimage

import (
	"math"

	"github.com/felipeek/gimmesh/utils"
)

// NormalizeForVisualization linearly rescales every channel of img to [0, 1] using the channel's
// observed finite minimum and maximum. A channel holding a single value maps to 0, NaN maps to 0,
// and infinities map to the nearer end. The input is not modified and the result is only meant for
// display or export.
func NormalizeForVisualization(img *FloatImage) *FloatImage {
	out := NewFloatImage(img.width, img.height, img.channels)
	for c := 0; c < img.channels; c++ {
		lo, hi := ChannelRange(img, c)
		// halved so the span cannot overflow
		half := hi/2 - lo/2
		for i := c; i < len(img.data); i += img.channels {
			v := img.data[i]
			switch {
			case math.IsNaN(v) || math.IsInf(v, -1):
				out.data[i] = 0
			case math.IsInf(v, 1):
				out.data[i] = 1
			case half > 0:
				out.data[i] = utils.ClampF64((v/2-lo/2)/half, 0, 1)
			default:
				out.data[i] = 0
			}
		}
	}
	return out
}

// ChannelRange returns the minimum and maximum finite value of channel c.
func ChannelRange(img *FloatImage, c int) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := c; i < len(img.data); i += img.channels {
		v := img.data[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}
