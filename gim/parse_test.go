package gim

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"github.com/felipeek/gimmesh/pointcloud"
)

func gimBytes(width, height uint32, samples ...float32) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, width)
	binary.Write(&buf, binary.LittleEndian, height)
	binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

func TestGimRoundTrip(t *testing.T) {
	g := bumpy(5, 3)
	g.Img.Set(2, 1, 0, 1.0/3.0)
	path := filepath.Join(t.TempDir(), "bumpy.gim")
	test.That(t, ExportToGimFile(g, path), test.ShouldBeNil)

	back, err := Parse(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.Width(), test.ShouldEqual, 5)
	test.That(t, back.Height(), test.ShouldEqual, 3)
	test.That(t, back.Derived(), test.ShouldBeFalse)
	for i, v := range g.Img.Data() {
		test.That(t, back.Img.Data()[i], test.ShouldAlmostEqual, v, 1e-5)
	}

	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldEqual, int64(8+5*3*3*4))
}

func TestParseReader(t *testing.T) {
	g, err := ParseReader(bytes.NewReader(gimBytes(1, 2, 1, 2, 3, 4, 5, 6)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Img.Data(), test.ShouldResemble, []float64{1, 2, 3, 4, 5, 6})
}

func TestParseFailures(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":          {},
		"short header":   {1, 0, 0},
		"zero width":     gimBytes(0, 2),
		"zero height":    gimBytes(2, 0),
		"truncated data": gimBytes(2, 1, 1, 2, 3, 4, 5),
		"trailing data":  gimBytes(1, 1, 1, 2, 3, 4),
		"nan sample":     gimBytes(1, 1, 1, float32(math.NaN()), 3),
		"inf sample":     gimBytes(1, 1, float32(math.Inf(-1)), 2, 3),
		"too large":      gimBytes(1<<16, 1<<16),
	} {
		t.Run(name, func(t *testing.T) {
			g, err := ParseReader(bytes.NewReader(data))
			test.That(t, g, test.ShouldBeNil)
			var parseErr *ParseError
			test.That(t, errors.As(err, &parseErr), test.ShouldBeTrue)
		})
	}

	path := filepath.Join(t.TempDir(), "missing.gim")
	g, err := Parse(path)
	test.That(t, g, test.ShouldBeNil)
	var parseErr *ParseError
	test.That(t, errors.As(err, &parseErr), test.ShouldBeTrue)
	test.That(t, parseErr.Path, test.ShouldEqual, path)
	test.That(t, errors.Is(err, os.ErrNotExist), test.ShouldBeTrue)
}

func TestParsePCD(t *testing.T) {
	g := bumpy(4, 3)
	cloud, err := ToPointCloud(g, nil)
	test.That(t, err, test.ShouldBeNil)
	path := filepath.Join(t.TempDir(), "bumpy.pcd")
	test.That(t, pointcloud.WriteToPCDFile(cloud, path, pointcloud.PCDBinary), test.ShouldBeNil)

	back, err := Parse(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.Width(), test.ShouldEqual, 4)
	test.That(t, back.Height(), test.ShouldEqual, 3)
	for i, v := range g.Img.Data() {
		test.That(t, back.Img.Data()[i], test.ShouldAlmostEqual, v, 1e-6)
	}

	bad := filepath.Join(t.TempDir(), "bad.pcd")
	test.That(t, os.WriteFile(bad, []byte("VERSION .7\n"), 0o600), test.ShouldBeNil)
	_, err = Parse(bad)
	var parseErr *ParseError
	test.That(t, errors.As(err, &parseErr), test.ShouldBeTrue)
}
