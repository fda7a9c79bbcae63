package gim

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/felipeek/gimmesh/logging"
	"github.com/felipeek/gimmesh/pointcloud"
	"github.com/felipeek/gimmesh/rimage"
	"github.com/felipeek/gimmesh/utils"
)

// The .gim format is a little-endian header of two uint32 (width, height) followed by
// width*height*3 float32 positions in row-major order.
const (
	gimHeaderSize = 8
	maxGimTexels  = 1 << 28
)

// Parse loads a geometry image from path. Files ending in .pcd or .las are read as point clouds
// shaped by their grid (LAS has none and gives a single row), everything else as the native .gim
// format. 3D data is left underived.
func Parse(path string) (*GeometryImage, error) {
	var (
		g   *GeometryImage
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcd", ".las":
		var cloud *pointcloud.Organized
		cloud, err = pointcloud.NewFromFile(path, logging.Global().Sublogger("gim"))
		if err == nil {
			g, err = fromCloud(cloud)
		}
	default:
		g, err = parseGimFile(path)
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return g, nil
}

func parseGimFile(path string) (*GeometryImage, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	return parseGim(f)
}

// ParseReader reads a native .gim document from r.
func ParseReader(r io.Reader) (*GeometryImage, error) {
	g, err := parseGim(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return g, nil
}

func parseGim(r io.Reader) (*GeometryImage, error) {
	in := bufio.NewReader(r)
	var header [gimHeaderSize]byte
	if _, err := io.ReadFull(in, header[:]); err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	width := binary.LittleEndian.Uint32(header[0:])
	height := binary.LittleEndian.Uint32(header[4:])
	if width == 0 || height == 0 {
		return nil, errors.Errorf("invalid dimensions %dx%d", width, height)
	}
	if uint64(width)*uint64(height) > maxGimTexels {
		return nil, errors.Errorf("dimensions %dx%d are too large", width, height)
	}

	img := rimage.NewFloatImage(int(width), int(height), 3)
	data := img.Data()
	var sample [4]byte
	for i := range data {
		if _, err := io.ReadFull(in, sample[:]); err != nil {
			return nil, errors.Wrapf(err, "truncated data at sample %d of %d", i, len(data))
		}
		v := float64(math.Float32frombits(binary.LittleEndian.Uint32(sample[:])))
		if !utils.IsFinite(v) {
			return nil, errors.Errorf("non-finite sample %d", i)
		}
		data[i] = v
	}
	if _, err := in.ReadByte(); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, errors.Wrap(err, "reading past data")
		}
		return nil, errors.New("trailing data after positions")
	}
	return New(img), nil
}

func fromCloud(cloud *pointcloud.Organized) (*GeometryImage, error) {
	img := rimage.NewFloatImage(cloud.Width(), cloud.Height(), 3)
	for y := 0; y < cloud.Height(); y++ {
		for x := 0; x < cloud.Width(); x++ {
			p, _ := cloud.At(x, y)
			if !utils.IsFinite(p.X) || !utils.IsFinite(p.Y) || !utils.IsFinite(p.Z) {
				return nil, errors.Errorf("non-finite point at (%d, %d)", x, y)
			}
			img.SetVec3(x, y, p)
		}
	}
	return New(img), nil
}

// WriteGim writes the positions of g in the native .gim format. Positions are stored as float32.
func WriteGim(out io.Writer, g *GeometryImage) error {
	g.checkLive()
	var header [gimHeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:], uint32(g.Width()))
	binary.LittleEndian.PutUint32(header[4:], uint32(g.Height()))
	if _, err := out.Write(header[:]); err != nil {
		return err
	}
	buf := make([]byte, 0, 4*3*g.Width())
	data := g.Img.Data()
	rowSamples := 3 * g.Width()
	for row := 0; row < g.Height(); row++ {
		buf = buf[:0]
		for _, v := range data[row*rowSamples : (row+1)*rowSamples] {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(v)))
		}
		if _, err := out.Write(buf); err != nil {
			return err
		}
	}
	return nil
}
