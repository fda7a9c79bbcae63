package rimage

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/felipeek/gimmesh/utils"
)

// Colorize maps the first channel of a normalized image onto a blue (0) to red (1) heat map and
// returns a three channel RGB image.
func Colorize(img *FloatImage) *FloatImage {
	out := NewFloatImage(img.width, img.height, 3)
	for i := 0; i < img.Len(); i++ {
		t := utils.ClampF64(img.data[i*img.channels], 0, 1)
		c := colorful.Hsv(240*(1-t), 1, 1).Clamped()
		out.data[i*3] = c.R
		out.data[i*3+1] = c.G
		out.data[i*3+2] = c.B
	}
	return out
}
