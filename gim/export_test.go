package gim

import (
	"bufio"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/felipeek/gimmesh/logging"
	"github.com/felipeek/gimmesh/pointcloud"
	"github.com/felipeek/gimmesh/rimage"
)

func countPrefixes(t *testing.T, path string) map[string]int {
	t.Helper()
	f, err := os.Open(path)
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	counts := map[string]int{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 {
			counts[fields[0]]++
		}
	}
	test.That(t, scanner.Err(), test.ShouldBeNil)
	return counts
}

func TestToMesh(t *testing.T) {
	g := flatPlane(3, 2)
	_, err := ToMesh(g, color.NRGBA{})
	test.That(t, errors.Is(err, ErrNotDerived), test.ShouldBeTrue)

	g.Update3D()
	blue := color.NRGBA{B: 255, A: 255}
	mesh, err := ToMesh(g, blue)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mesh.Vertices, test.ShouldHaveLength, 6)
	test.That(t, mesh.NumTriangles(), test.ShouldEqual, 4)
	test.That(t, mesh.SurfaceArea(), test.ShouldAlmostEqual, 2.)
	for _, v := range mesh.Vertices {
		test.That(t, v.Color, test.ShouldResemble, blue)
		test.That(t, v.Normal, test.ShouldResemble, r3.Vector{Z: 1})
	}

	// the mesh does not alias the shared triangulation
	mesh.Indexes[0] = 5
	test.That(t, g.Indexes[0], test.ShouldEqual, uint32(0))
}

func TestExportToObjFile(t *testing.T) {
	dir := t.TempDir()
	g := bumpy(4, 3)

	path := filepath.Join(dir, "bumpy.obj")
	var exportErr *ExportError
	test.That(t, errors.As(ExportToObjFile(g, path), &exportErr), test.ShouldBeTrue)
	test.That(t, errors.Is(exportErr, ErrNotDerived), test.ShouldBeTrue)

	g.Update3D()
	test.That(t, ExportToObjFile(g, path), test.ShouldBeNil)
	counts := countPrefixes(t, path)
	test.That(t, counts["v"], test.ShouldEqual, 12)
	test.That(t, counts["vt"], test.ShouldEqual, 12)
	test.That(t, counts["vn"], test.ShouldEqual, 12)
	test.That(t, counts["f"], test.ShouldEqual, 12)
}

func TestExportToPointCloudFile(t *testing.T) {
	dir := t.TempDir()
	g := bumpy(4, 3)

	xyz := filepath.Join(dir, "bumpy.xyz")
	test.That(t, ExportToPointCloudFile(g, xyz), test.ShouldBeNil)
	data, err := os.ReadFile(xyz)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	test.That(t, lines, test.ShouldHaveLength, 12)
	test.That(t, strings.Fields(lines[1]), test.ShouldHaveLength, 3)

	pcd := filepath.Join(dir, "bumpy.pcd")
	test.That(t, ExportToPointCloudFile(g, pcd), test.ShouldBeNil)
	back, err := Parse(pcd)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.Width(), test.ShouldEqual, 4)

	las := filepath.Join(dir, "bumpy.las")
	test.That(t, ExportToPointCloudFile(g, las), test.ShouldBeNil)
	cloud, err := pointcloud.NewFromFile(las, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 12)
	fromLAS, err := Parse(las)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromLAS.Width(), test.ShouldEqual, 12)
	test.That(t, fromLAS.Height(), test.ShouldEqual, 1)
}

func TestExportFailures(t *testing.T) {
	g := bumpy(3, 3)
	g.Update3D()
	unwritable := filepath.Join(t.TempDir(), "missing", "dir")
	before := g.Img.Clone()

	for _, err := range []error{
		ExportToObjFile(g, filepath.Join(unwritable, "out.obj")),
		ExportToPointCloudFile(g, filepath.Join(unwritable, "out.xyz")),
		ExportToPointCloudFile(g, filepath.Join(unwritable, "out.pcd")),
		ExportToGimFile(g, filepath.Join(unwritable, "out.gim")),
		NormalizeAndSave(g, filepath.Join(unwritable, "out.bmp")),
		NormalizeAndSave(g, filepath.Join(t.TempDir(), "out.unknown")),
	} {
		var exportErr *ExportError
		test.That(t, errors.As(err, &exportErr), test.ShouldBeTrue)
		test.That(t, exportErr.Err, test.ShouldNotBeNil)
	}
	test.That(t, g.Img.Equal(before), test.ShouldBeTrue)
	test.That(t, g.Derived(), test.ShouldBeTrue)
}

func TestNormalizeAndSave(t *testing.T) {
	g := bumpy(4, 4)
	path := filepath.Join(t.TempDir(), "bumpy.bmp")
	test.That(t, NormalizeAndSave(g, path), test.ShouldBeNil)
	back, err := rimage.ReadFloatImageFromFile(path, 0, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.Width(), test.ShouldEqual, 4)
	// x runs over columns, so the normalized red channel does too
	test.That(t, back.At(0, 0, 0), test.ShouldEqual, 0.)
	test.That(t, back.At(3, 0, 0), test.ShouldEqual, 1.)
}

func TestToPointCloudTexture(t *testing.T) {
	g := bumpy(2, 2)
	texture := rimage.NewFloatImage(2, 2, 3)
	texture.SetVec3(1, 1, r3.Vector{X: 1, Y: 0.5, Z: 0})
	cloud, err := ToPointCloud(g, texture)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.MetaData().HasColor, test.ShouldBeTrue)
	_, d := cloud.At(1, 1)
	r, gr, b := d.RGB255()
	test.That(t, []uint8{r, gr, b}, test.ShouldResemble, []uint8{255, 128, 0})

	_, err = ToPointCloud(g, rimage.NewFloatImage(3, 2, 3))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNormalsImage(t *testing.T) {
	g := flatPlane(3, 3)
	_, err := NormalsImage(g)
	test.That(t, err, test.ShouldNotBeNil)
	g.Update3D()
	img, err := NormalsImage(g)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Vec3At(1, 1), test.ShouldResemble, r3.Vector{X: 0.5, Y: 0.5, Z: 1})
}
