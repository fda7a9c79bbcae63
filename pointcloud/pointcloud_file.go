package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	lzf "github.com/zhuyie/golzf"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/felipeek/gimmesh/logging"
	"github.com/felipeek/gimmesh/utils"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
	// PCDCompressed LZF compressed binary format for pcd.
	PCDCompressed PCDType = 2
)

// LAS stores coordinates as scaled 32 bit integers, anything outside this range may lose precision.
const (
	maxPreciseFloat64 = float64(1 << 31)
	minPreciseFloat64 = -maxPreciseFloat64
)

// NewFromFile returns a pointcloud read in from the given .pcd or .las file.
func NewFromFile(fn string, logger logging.Logger) (*Organized, error) {
	var (
		pc  *Organized
		err error
	)
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".las":
		pc, err = NewFromLASFile(fn, logger)
	case ".pcd":
		var f *os.File
		f, err = os.Open(filepath.Clean(fn))
		if err != nil {
			return nil, err
		}
		defer goutils.UncheckedErrorFunc(f.Close)
		pc, err = ReadPCD(f)
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
	if err != nil {
		return nil, err
	}
	return pc, nil
}

// NewFromLASFile returns a point cloud from reading a LAS file. LAS has no grid, so the cloud has a
// single row. If any lossiness of points could occur from reading it in, it's reported but is not
// an error.
func NewFromLASFile(fn string, logger logging.Logger) (*Organized, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(lf.Close)

	pc, err := NewOrganized(lf.Header.NumberPoints, 1)
	if err != nil {
		return nil, errors.Wrapf(err, "las file %q", fn)
	}
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, err
		}
		data := p.PointData()

		x, y, z := data.X, data.Y, data.Z
		if x < minPreciseFloat64 || x > maxPreciseFloat64 ||
			y < minPreciseFloat64 || y > maxPreciseFloat64 ||
			z < minPreciseFloat64 || z > maxPreciseFloat64 {
			logger.Warnw("potential floating point lossiness for LAS point",
				"point", data, "range", fmt.Sprintf("[%f,%f]", minPreciseFloat64, maxPreciseFloat64))
		}

		dd := NewBasicData()
		if lf.Header.PointFormatID == 2 && p.RgbData() != nil {
			r := uint8(p.RgbData().Red / 256)
			g := uint8(p.RgbData().Green / 256)
			b := uint8(p.RgbData().Blue / 256)
			dd.SetColor(color.NRGBA{r, g, b, 255})
		}
		if data.Intensity != 0 {
			dd.SetIntensity(data.Intensity)
		}

		if err := pc.Set(i, 0, r3.Vector{X: x, Y: y, Z: z}, dd); err != nil {
			return nil, err
		}
	}
	return pc, nil
}

// WriteToLASFile writes the point cloud out to a LAS file.
func WriteToLASFile(cloud PointCloud, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	meta := cloud.MetaData()

	pointFormatID := 0
	if meta.HasColor {
		pointFormatID = 2
	}
	if err = lf.AddHeader(lidario.LasHeader{
		PointFormatID: byte(pointFormatID),
	}); err != nil {
		return
	}

	var lastErr error
	cloud.Iterate(0, 0, func(pos r3.Vector, d Data) bool {
		var lp lidario.LasPointer
		pr0 := &lidario.PointRecord0{
			// floating point lossiness validated/warned from set/load
			X: pos.X,
			Y: pos.Y,
			Z: pos.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3) | (0 << 6) | (0 << 7),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: 0,
			},
			ScanAngle:     0,
			UserData:      0,
			PointSourceID: 1,
		}
		lp = pr0

		if d != nil {
			pr0.Intensity = d.Intensity()
		}

		if meta.HasColor {
			red, green, blue := 255, 255, 255
			if d != nil && d.HasColor() {
				r, g, b := d.RGB255()
				red, green, blue = int(r), int(g), int(b)
			}
			lp = &lidario.PointRecord2{
				PointRecord0: pr0,
				RGB: &lidario.RgbData{
					Red:   uint16(red * 256),
					Green: uint16(green * 256),
					Blue:  uint16(blue * 256),
				},
			}
		}
		if lerr := lf.AddLasPoint(lp); lerr != nil {
			lastErr = lerr
			return false
		}
		return true
	})
	if lastErr != nil {
		err = lastErr
		return
	}

	// nolint:nakedret
	return
}

// ToXYZ writes one "x y z" line per point.
func ToXYZ(cloud PointCloud, out io.Writer) error {
	w := bufio.NewWriter(out)
	var err error
	cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		_, err = fmt.Fprintf(w, "%f %f %f\n", p.X, p.Y, p.Z)
		return err == nil
	})
	if err != nil {
		return err
	}
	return w.Flush()
}

func colorToPCDInt(pt Data) int {
	if pt == nil || !pt.HasColor() {
		return 255 << 16
	}

	r, g, b := pt.RGB255()
	x := 0

	x |= (int(r) << 16)
	x |= (int(g) << 8)
	x |= (int(b) << 0)
	return x
}

func pcdIntToColor(c int) color.NRGBA {
	r := uint8(0xFF & (c >> 16))
	g := uint8(0xFF & (c >> 8))
	b := uint8(0xFF & (c >> 0))
	return color.NRGBA{r, g, b, 255}
}

// ToPCD writes the cloud as a PCD v0.7 document. Organized clouds keep their grid in WIDTH and HEIGHT,
// anything else is written as a single row.
func ToPCD(cloud PointCloud, out io.Writer, outputType PCDType) error {
	var err error

	_, err = fmt.Fprintf(out, "VERSION .7\n")
	if err != nil {
		return err
	}
	switch cloud.MetaData().HasColor {
	case true:
		_, err = fmt.Fprintf(out, "FIELDS x y z rgb\n"+
			"SIZE 4 4 4 4\n"+
			"TYPE F F F I\n"+
			"COUNT 1 1 1 1\n")
	case false:
		_, err = fmt.Fprintf(out, "FIELDS x y z\n"+
			"SIZE 4 4 4\n"+
			"TYPE F F F\n"+
			"COUNT 1 1 1\n")
	}
	if err != nil {
		return err
	}
	width, height := cloud.Size(), 1
	if org, ok := cloud.(*Organized); ok {
		width, height = org.Width(), org.Height()
	}
	_, err = fmt.Fprintf(out, "WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n",
		width,
		height,
		cloud.Size())
	if err != nil {
		return err
	}

	switch outputType {
	case PCDBinary:
		_, err = fmt.Fprintf(out, "DATA binary\n")
		if err != nil {
			return err
		}
	case PCDAscii:
		_, err = fmt.Fprintf(out, "DATA ascii\n")
		if err != nil {
			return err
		}
	case PCDCompressed:
		_, err = fmt.Fprintf(out, "DATA binary_compressed\n")
		if err != nil {
			return err
		}
		return writePCDCompressed(cloud, out)
	default:
		return errors.Errorf("unknown PCD type %d", outputType)
	}
	return writePCDData(cloud, out, outputType)
}

func writePCDData(cloud PointCloud, out io.Writer, pcdtype PCDType) error {
	hasColor := cloud.MetaData().HasColor
	var err error
	cloud.Iterate(0, 0, func(pos r3.Vector, d Data) bool {
		switch pcdtype {
		case PCDBinary:
			buf := make([]byte, 12, 16)
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(pos.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(pos.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(pos.Z)))
			if hasColor {
				buf = binary.LittleEndian.AppendUint32(buf, uint32(colorToPCDInt(d)))
			}
			_, err = out.Write(buf)
		default:
			if hasColor {
				_, err = fmt.Fprintf(out, "%f %f %f %d\n", pos.X, pos.Y, pos.Z, colorToPCDInt(d))
			} else {
				_, err = fmt.Fprintf(out, "%f %f %f\n", pos.X, pos.Y, pos.Z)
			}
		}
		return err == nil
	})
	return err
}

type pcdFieldType int

const (
	pcdPointOnly  pcdFieldType = 3
	pcdPointColor pcdFieldType = 4
)

type pcdValType string

type pcdHeader struct {
	fields pcdFieldType
	size   []uint64
	types  []pcdValType
	count  []uint64
	width  uint64
	height uint64
	points uint64
	data   PCDType
}

const pcdCommentChar = "#"

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	value = strings.TrimSpace(value)
	tokens := strings.Fields(value)
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return errors.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		switch strings.Join(tokens, " ") {
		case "x y z":
			header.fields = pcdPointOnly
		case "x y z rgb":
			header.fields = pcdPointColor
		default:
			return errors.Errorf("unsupported pcd fields %s", value)
		}
	case "SIZE":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in SIZE line")
		}
		header.size = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.size[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil || header.size[i] != 4 {
				return errors.Errorf("invalid SIZE field %s", token)
			}
		}
	case "TYPE":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in TYPE line")
		}
		header.types = make([]pcdValType, len(tokens))
		for i, token := range tokens {
			header.types[i] = pcdValType(token)
		}
	case "COUNT":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in COUNT line")
		}
		header.count = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.count[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid COUNT field %s", token)
			}
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid WIDTH field %s", value)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid HEIGHT field %s", value)
		}
	case "VIEWPOINT":
		if len(tokens) != 7 {
			return errors.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
		for _, token := range tokens {
			if _, err = strconv.ParseFloat(token, 64); err != nil {
				return errors.Wrapf(err, "invalid VIEWPOINT field %s", token)
			}
		}
	case "POINTS":
		var points uint64
		points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid POINTS field %s", value)
		}
		if points != header.width*header.height {
			return errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", points, header.width*header.height)
		}
		header.points = points
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		case "binary_compressed":
			header.data = PCDCompressed
		default:
			return errors.Errorf("unsupported pcd data %s", value)
		}
	}

	return nil
}

// ReadPCD reads an ascii, binary or binary_compressed PCD document into an organized cloud shaped by its WIDTH and HEIGHT.
func ReadPCD(inRaw io.Reader) (*Organized, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	var line string
	var err error
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err = in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(err, "error reading header line %d", headerLineCount)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, err
		}
		headerLineCount++
	}
	if header.points == 0 {
		return nil, errors.New("pcd holds no points")
	}
	pc, err := NewOrganized(int(header.width), int(header.height))
	if err != nil {
		return nil, err
	}
	switch header.data {
	case PCDAscii:
		err = readPCDAscii(in, header, pc)
	case PCDBinary:
		err = readPCDBinary(in, header, pc)
	case PCDCompressed:
		err = readPCDCompressed(in, header, pc)
	default:
		return nil, errors.Errorf("unknown pcd data type %d", header.data)
	}
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func readPCDAscii(in *bufio.Reader, header pcdHeader, pc *Organized) error {
	for i := 0; i < int(header.points); i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return errors.Wrapf(err, "reading point %d", i)
		}
		tokens := strings.Fields(line)
		if len(tokens) != int(header.fields) {
			return errors.Errorf("unexpected number of fields in point %d", i)
		}
		point := make([]float64, len(tokens))
		for j, token := range tokens {
			point[j], err = strconv.ParseFloat(token, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid point %d field %s", i, token)
			}
		}
		if err := setPCDPoint(pc, i, point, header); err != nil {
			return err
		}
	}
	return nil
}

func readPCDBinary(in *bufio.Reader, header pcdHeader, pc *Organized) error {
	buf := make([]byte, 4*int(header.fields))
	point := make([]float64, int(header.fields))
	for i := 0; i < int(header.points); i++ {
		if _, err := io.ReadFull(in, buf); err != nil {
			return errors.Wrapf(err, "reading point %d", i)
		}
		for j := range point {
			point[j] = pcdValue(binary.LittleEndian.Uint32(buf[4*j:]), header.types[j])
		}
		if err := setPCDPoint(pc, i, point, header); err != nil {
			return err
		}
	}
	return nil
}

// readPCDCompressed reads LZF compressed data. Once inflated the fields are stored one after the
// other, all x values first.
func readPCDCompressed(in *bufio.Reader, header pcdHeader, pc *Organized) error {
	var sizes [8]byte
	if _, err := io.ReadFull(in, sizes[:]); err != nil {
		return errors.Wrap(err, "reading compressed sizes")
	}
	compressedSize := binary.LittleEndian.Uint32(sizes[:4])
	rawSize := binary.LittleEndian.Uint32(sizes[4:])
	n := int(header.points)
	if want := 4 * int(header.fields) * n; int(rawSize) != want {
		return errors.Errorf("compressed pcd inflates to %d bytes, expected %d", rawSize, want)
	}

	compressed := make([]byte, compressedSize)
	if _, err := io.ReadFull(in, compressed); err != nil {
		return errors.Wrap(err, "reading compressed points")
	}
	raw := make([]byte, rawSize)
	inflated, err := lzf.Decompress(compressed, raw)
	if err != nil {
		return errors.Wrap(err, "decompressing points")
	}
	if inflated != int(rawSize) {
		return errors.Errorf("compressed pcd inflated to %d bytes, expected %d", inflated, rawSize)
	}

	point := make([]float64, int(header.fields))
	for i := 0; i < n; i++ {
		for j := range point {
			point[j] = pcdValue(binary.LittleEndian.Uint32(raw[4*(j*n+i):]), header.types[j])
		}
		if err := setPCDPoint(pc, i, point, header); err != nil {
			return err
		}
	}
	return nil
}

func writePCDCompressed(cloud PointCloud, out io.Writer) error {
	fields := int(pcdPointOnly)
	hasColor := cloud.MetaData().HasColor
	if hasColor {
		fields = int(pcdPointColor)
	}
	n := cloud.Size()
	raw := make([]byte, 4*fields*n)
	i := 0
	cloud.Iterate(0, 0, func(pos r3.Vector, d Data) bool {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(float32(pos.X)))
		binary.LittleEndian.PutUint32(raw[4*(n+i):], math.Float32bits(float32(pos.Y)))
		binary.LittleEndian.PutUint32(raw[4*(2*n+i):], math.Float32bits(float32(pos.Z)))
		if hasColor {
			binary.LittleEndian.PutUint32(raw[4*(3*n+i):], uint32(colorToPCDInt(d)))
		}
		i++
		return true
	})

	// lzf grows incompressible input by at most one byte in 32
	compressed := make([]byte, len(raw)+len(raw)/32+64)
	size, err := lzf.Compress(raw, compressed)
	if err != nil {
		return errors.Wrap(err, "compressing points")
	}
	var sizes [8]byte
	binary.LittleEndian.PutUint32(sizes[:4], uint32(size))
	binary.LittleEndian.PutUint32(sizes[4:], uint32(len(raw)))
	if _, err := out.Write(sizes[:]); err != nil {
		return err
	}
	_, err = out.Write(compressed[:size])
	return err
}

func pcdValue(bits uint32, typ pcdValType) float64 {
	if typ == "F" {
		return float64(math.Float32frombits(bits))
	}
	return float64(bits)
}

func setPCDPoint(pc *Organized, i int, slice []float64, header pcdHeader) error {
	pos := r3.Vector{X: slice[0], Y: slice[1], Z: slice[2]}
	var data Data
	switch header.fields {
	case pcdPointOnly:
		data = NewBasicData()
	case pcdPointColor:
		data = NewColoredData(pcdIntToColor(int(slice[3])))
	default:
		return errors.Errorf("unsupported pcd field type %d", header.fields)
	}
	return pc.Set(i%pc.Width(), i/pc.Width(), pos, data)
}

// WriteToPCDFile writes the cloud to fn in the given PCD flavor.
func WriteToPCDFile(cloud PointCloud, fn string, outputType PCDType) error {
	return utils.WriteFile(fn, func(w io.Writer) error {
		return ToPCD(cloud, w, outputType)
	})
}
