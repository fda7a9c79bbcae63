package rimage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/lmittmann/ppm"
	"github.com/xfmoulet/qoi"
	"go.viam.com/test"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func gradientImage() *FloatImage {
	fi := NewFloatImage(4, 3, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			fi.Set(x, y, 0, float64(x)/3)
			fi.Set(x, y, 1, float64(y)/2)
			fi.Set(x, y, 2, 1)
		}
	}
	return fi
}

func TestToImage(t *testing.T) {
	img := ToImage(gradientImage())
	nrgba, ok := img.(*image.NRGBA)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, nrgba.NRGBAAt(3, 2), test.ShouldResemble, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	test.That(t, nrgba.NRGBAAt(0, 0), test.ShouldResemble, color.NRGBA{R: 0, G: 0, B: 255, A: 255})

	gray := NewFloatImage(2, 1, 1)
	gray.Set(1, 0, 0, 2) // clamped
	grayImg, ok := ToImage(gray).(*image.Gray)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, grayImg.GrayAt(1, 0).Y, test.ShouldEqual, uint8(255))
	test.That(t, grayImg.GrayAt(0, 0).Y, test.ShouldEqual, uint8(0))
}

func TestFromImageRoundTrip(t *testing.T) {
	fi := gradientImage()
	back := FromImage(ToImage(fi))
	test.That(t, back.Width(), test.ShouldEqual, 4)
	test.That(t, back.Height(), test.ShouldEqual, 3)
	for i, v := range fi.Data() {
		test.That(t, back.Data()[i], test.ShouldAlmostEqual, v, 1./255)
	}
}

func TestEncodeFloatImage(t *testing.T) {
	fi := gradientImage()
	decoders := map[string]func(*bytes.Buffer) (image.Image, error){
		"png":  func(b *bytes.Buffer) (image.Image, error) { return png.Decode(b) },
		"bmp":  func(b *bytes.Buffer) (image.Image, error) { return bmp.Decode(b) },
		"tiff": func(b *bytes.Buffer) (image.Image, error) { return tiff.Decode(b) },
		"ppm":  func(b *bytes.Buffer) (image.Image, error) { return ppm.Decode(b) },
		"qoi":  func(b *bytes.Buffer) (image.Image, error) { return qoi.Decode(b) },
	}
	for format, decode := range decoders {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			test.That(t, EncodeFloatImage(&buf, fi, format), test.ShouldBeNil)
			img, err := decode(&buf)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 3))
			r, g, b, _ := img.At(3, 2).RGBA()
			test.That(t, []uint32{r >> 8, g >> 8, b >> 8}, test.ShouldResemble, []uint32{255, 255, 255})
		})
	}

	err := EncodeFloatImage(&bytes.Buffer{}, fi, "gif")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "gif")
}

func TestWriteAndReadFloatImageFile(t *testing.T) {
	dir := t.TempDir()
	fi := gradientImage()

	path := filepath.Join(dir, "gradient.png")
	test.That(t, WriteFloatImageToFile(path, fi), test.ShouldBeNil)

	back, err := ReadFloatImageFromFile(path, 0, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.Width(), test.ShouldEqual, 4)
	test.That(t, back.Vec3At(3, 2).Z, test.ShouldAlmostEqual, 1.)

	resized, err := ReadFloatImageFromFile(path, 8, 6)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resized.Width(), test.ShouldEqual, 8)
	test.That(t, resized.Height(), test.ShouldEqual, 6)

	bad := filepath.Join(dir, "gradient.xyz")
	err = WriteFloatImageToFile(bad, fi)
	test.That(t, err, test.ShouldNotBeNil)
	_, statErr := os.Stat(bad)
	test.That(t, os.IsNotExist(statErr), test.ShouldBeTrue)

	_, err = ReadFloatImageFromFile(filepath.Join(dir, "missing.png"), 0, 0)
	test.That(t, err, test.ShouldNotBeNil)
}
