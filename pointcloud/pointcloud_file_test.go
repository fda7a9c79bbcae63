package pointcloud

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/felipeek/gimmesh/logging"
)

func TestPCDRoundTrip(t *testing.T) {
	for _, colored := range []bool{false, true} {
		for _, pcdType := range []PCDType{PCDAscii, PCDBinary, PCDCompressed} {
			pc := makeTestGrid(t, colored)
			var buf bytes.Buffer
			test.That(t, ToPCD(pc, &buf, pcdType), test.ShouldBeNil)
			test.That(t, buf.String(), test.ShouldContainSubstring, "WIDTH 3\nHEIGHT 2\n")

			back, err := ReadPCD(&buf)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, back.Width(), test.ShouldEqual, 3)
			test.That(t, back.Height(), test.ShouldEqual, 2)
			test.That(t, back.MetaData().HasColor, test.ShouldEqual, colored)
			for row := 0; row < 2; row++ {
				for col := 0; col < 3; col++ {
					p0, d0 := pc.At(col, row)
					p1, d1 := back.At(col, row)
					test.That(t, p1.Sub(p0).Norm(), test.ShouldBeLessThan, 1e-5)
					if colored {
						test.That(t, d1.Color(), test.ShouldResemble, d0.Color())
					}
				}
			}
		}
	}
}

func TestPCDCompressed(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, ToPCD(makeTestGrid(t, false), &buf, PCDCompressed), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "DATA binary_compressed\n")
	doc := buf.Bytes()

	_, err := ReadPCD(bytes.NewReader(doc[:len(doc)-3]))
	test.That(t, err, test.ShouldNotBeNil)

	// the inflated size must match POINTS
	marker := []byte("DATA binary_compressed\n")
	sizesAt := bytes.Index(doc, marker) + len(marker)
	corrupt := append([]byte(nil), doc...)
	corrupt[sizesAt+4]++
	_, err = ReadPCD(bytes.NewReader(corrupt))
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, ToPCD(makeTestGrid(t, false), &buf, PCDType(7)), test.ShouldNotBeNil)
}

func TestReadPCDErrors(t *testing.T) {
	valid := "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\n" +
		"WIDTH 2\nHEIGHT 1\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS 2\nDATA ascii\n"

	// comments and blank lines in the header are skipped
	pc, err := ReadPCD(strings.NewReader("# generated\n\n" + valid + "1 2 3\n4 5 6"))
	test.That(t, err, test.ShouldBeNil)
	p, _ := pc.At(1, 0)
	test.That(t, p, test.ShouldResemble, r3.Vector{X: 4, Y: 5, Z: 6})

	for name, doc := range map[string]string{
		"truncated data":  valid + "1 2 3\n",
		"bad field count": valid + "1 2\n4 5 6\n",
		"bad number":      valid + "1 2 x\n4 5 6\n",
		"bad version":     strings.Replace(valid, ".7", ".6", 1),
		"bad fields":      strings.Replace(valid, "x y z\n", "x y\n", 1),
		"points mismatch": strings.Replace(valid, "POINTS 2", "POINTS 3", 1),
		"empty header":    "",
		"missing field":   strings.Replace(valid, "COUNT 1 1 1\n", "", 1),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadPCD(strings.NewReader(doc))
			test.That(t, err, test.ShouldNotBeNil)
		})
	}
}

func TestToXYZ(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, ToXYZ(makeTestGrid(t, false), &buf), test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	test.That(t, lines, test.ShouldHaveLength, 6)
	test.That(t, lines[5], test.ShouldEqual, "2.000000 1.000000 1.500000")
}

func TestFileRoundTrips(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	pc := makeTestGrid(t, true)

	pcdPath := filepath.Join(dir, "grid.pcd")
	test.That(t, WriteToPCDFile(pc, pcdPath, PCDBinary), test.ShouldBeNil)
	readPCD, err := NewFromFile(pcdPath, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, readPCD.Size(), test.ShouldEqual, 6)

	lasPath := filepath.Join(dir, "grid.las")
	test.That(t, WriteToLASFile(pc, lasPath), test.ShouldBeNil)
	readLAS, err := NewFromFile(lasPath, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, readLAS.Size(), test.ShouldEqual, 6)
	test.That(t, readLAS.MetaData().HasColor, test.ShouldBeTrue)
	positions := cloudPositions(readLAS)
	for i, p := range cloudPositions(pc) {
		test.That(t, positions[i].Sub(p).Norm(), test.ShouldBeLessThan, 1e-2)
	}

	_, err = NewFromFile(filepath.Join(dir, "grid.ply"), logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewFromFile(filepath.Join(dir, "missing.pcd"), logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, statErr := os.Stat(filepath.Join(dir, "missing.pcd"))
	test.That(t, os.IsNotExist(statErr), test.ShouldBeTrue)
}
