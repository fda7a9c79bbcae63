package rimage

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/felipeek/gimmesh/utils"
)

// ToImage converts a float image with samples in [0, 1] to an 8 bit image. One channel becomes
// gray, anything wider becomes RGB with missing channels left at zero. Samples are clamped.
func ToImage(fi *FloatImage) image.Image {
	if fi.channels == 1 {
		img := image.NewGray(fi.Bounds())
		for y := 0; y < fi.height; y++ {
			for x := 0; x < fi.width; x++ {
				img.SetGray(x, y, color.Gray{Y: toByte(fi.At(x, y, 0))})
			}
		}
		return img
	}

	img := image.NewNRGBA(fi.Bounds())
	for y := 0; y < fi.height; y++ {
		for x := 0; x < fi.width; x++ {
			p := fi.Pixel(x, y)
			var rgb [3]uint8
			for c := 0; c < len(p) && c < 3; c++ {
				rgb[c] = toByte(p[c])
			}
			img.SetNRGBA(x, y, color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255})
		}
	}
	return img
}

func toByte(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(math.Round(utils.ClampF64(v, 0, 1) * 255))
}

// FromImage converts any image into a three channel RGB float image with samples in [0, 1].
func FromImage(img image.Image) *FloatImage {
	bounds := img.Bounds()
	fi := NewFloatImage(bounds.Dx(), bounds.Dy(), 3)
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			c := color.NRGBA64Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA64)
			p := fi.Pixel(x, y)
			p[0] = float64(c.R) / math.MaxUint16
			p[1] = float64(c.G) / math.MaxUint16
			p[2] = float64(c.B) / math.MaxUint16
		}
	}
	return fi
}

// EncodeFloatImage writes fi to out in the given format: bmp, png, tiff, ppm or qoi.
func EncodeFloatImage(out io.Writer, fi *FloatImage, format string) error {
	img := ToImage(fi)
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "bmp":
		return bmp.Encode(out, img)
	case "png":
		return png.Encode(out, img)
	case "tif", "tiff":
		return tiff.Encode(out, img, nil)
	case "ppm":
		return ppm.Encode(out, img)
	case "qoi":
		return qoi.Encode(out, img)
	default:
		return errors.Errorf("do not know how to encode image format %q", format)
	}
}

// WriteFloatImageToFile writes fi to path, choosing the encoder from the file extension.
func WriteFloatImageToFile(path string, fi *FloatImage) error {
	ext := filepath.Ext(path)
	switch strings.ToLower(ext) {
	case ".bmp", ".png", ".tif", ".tiff", ".ppm", ".qoi":
	default:
		return errors.Errorf("do not know how to write image file %q", path)
	}
	return utils.WriteFile(path, func(w io.Writer) error {
		return EncodeFloatImage(w, fi, ext)
	})
}

// ReadFloatImageFromFile decodes any image format registered with the image package (plus the
// ones imaging knows) into an RGB float image. When width and height are positive the image is
// resampled to that size, e.g. to match a geometry image it will texture.
func ReadFloatImageFromFile(path string, width, height int) (*FloatImage, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read image %q", path)
	}
	if width > 0 && height > 0 && (img.Bounds().Dx() != width || img.Bounds().Dy() != height) {
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}
	return FromImage(img), nil
}
