package rimage

import (
	"image"

	"github.com/golang/geo/r3"

	"github.com/felipeek/gimmesh/utils"
)

// FloatImage is a width x height grid of float64 samples with a fixed number of interleaved
// channels per texel, stored row-major.
type FloatImage struct {
	width    int
	height   int
	channels int

	data []float64
}

// NewFloatImage returns a zeroed image. Non-positive dimensions are a caller bug.
func NewFloatImage(width, height, channels int) *FloatImage {
	if width <= 0 || height <= 0 || channels <= 0 {
		utils.ContractViolation("float image dimensions must be positive, got %dx%dx%d", width, height, channels)
	}
	return &FloatImage{
		width:    width,
		height:   height,
		channels: channels,
		data:     make([]float64, width*height*channels),
	}
}

// NewFloatImageFromData wraps data, which must hold exactly width*height*channels samples.
// The image takes ownership of the slice.
func NewFloatImageFromData(width, height, channels int, data []float64) *FloatImage {
	if width <= 0 || height <= 0 || channels <= 0 {
		utils.ContractViolation("float image dimensions must be positive, got %dx%dx%d", width, height, channels)
	}
	if len(data) != width*height*channels {
		utils.ContractViolation("float image %dx%dx%d needs %d samples, got %d",
			width, height, channels, width*height*channels, len(data))
	}
	return &FloatImage{width: width, height: height, channels: channels, data: data}
}

// Width returns the number of columns.
func (fi *FloatImage) Width() int {
	return fi.width
}

// Height returns the number of rows.
func (fi *FloatImage) Height() int {
	return fi.height
}

// Channels returns the number of samples per texel.
func (fi *FloatImage) Channels() int {
	return fi.channels
}

// Len returns the number of texels.
func (fi *FloatImage) Len() int {
	return fi.width * fi.height
}

// Data exposes the raw row-major, channel-interleaved samples.
func (fi *FloatImage) Data() []float64 {
	return fi.data
}

// Bounds returns the image rectangle anchored at the origin.
func (fi *FloatImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, fi.width, fi.height)
}

// In reports whether (x, y) is inside the image.
func (fi *FloatImage) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < fi.width && y < fi.height
}

func (fi *FloatImage) offset(x, y int) int {
	return (y*fi.width + x) * fi.channels
}

// At returns channel c of texel (x, y).
func (fi *FloatImage) At(x, y, c int) float64 {
	return fi.data[fi.offset(x, y)+c]
}

// Set assigns channel c of texel (x, y).
func (fi *FloatImage) Set(x, y, c int, v float64) {
	fi.data[fi.offset(x, y)+c] = v
}

// Pixel returns the channels of texel (x, y) as a view into the image.
func (fi *FloatImage) Pixel(x, y int) []float64 {
	o := fi.offset(x, y)
	return fi.data[o : o+fi.channels]
}

// ClampedPixel is Pixel with out of range coordinates replaced by the nearest edge texel.
func (fi *FloatImage) ClampedPixel(x, y int) []float64 {
	return fi.Pixel(utils.ClampInt(x, 0, fi.width-1), utils.ClampInt(y, 0, fi.height-1))
}

// Vec3At reads the first three channels of (x, y) as a vector. Missing channels read as zero.
func (fi *FloatImage) Vec3At(x, y int) r3.Vector {
	p := fi.Pixel(x, y)
	var v r3.Vector
	switch {
	case len(p) >= 3:
		v.Z = p[2]
		fallthrough
	case len(p) == 2:
		v.Y = p[1]
		fallthrough
	default:
		v.X = p[0]
	}
	return v
}

// ClampedVec3At is Vec3At with edge-replicated lookup.
func (fi *FloatImage) ClampedVec3At(x, y int) r3.Vector {
	return fi.Vec3At(utils.ClampInt(x, 0, fi.width-1), utils.ClampInt(y, 0, fi.height-1))
}

// SetVec3 writes v into the first three channels of (x, y), dropping components the image has no
// channel for.
func (fi *FloatImage) SetVec3(x, y int, v r3.Vector) {
	p := fi.Pixel(x, y)
	comps := [3]float64{v.X, v.Y, v.Z}
	for c := 0; c < len(p) && c < 3; c++ {
		p[c] = comps[c]
	}
}

// Clone returns a deep copy.
func (fi *FloatImage) Clone() *FloatImage {
	data := make([]float64, len(fi.data))
	copy(data, fi.data)
	return &FloatImage{width: fi.width, height: fi.height, channels: fi.channels, data: data}
}

// SameShape reports whether both images have equal dimensions and channel counts.
func (fi *FloatImage) SameShape(other *FloatImage) bool {
	return fi.width == other.width && fi.height == other.height && fi.channels == other.channels
}

// Equal reports whether both images have the same shape and identical samples.
func (fi *FloatImage) Equal(other *FloatImage) bool {
	if other == nil || !fi.SameShape(other) {
		return false
	}
	for i, v := range fi.data {
		if other.data[i] != v {
			return false
		}
	}
	return true
}
