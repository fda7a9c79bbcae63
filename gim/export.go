package gim

import (
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/felipeek/gimmesh/pointcloud"
	"github.com/felipeek/gimmesh/rimage"
	"github.com/felipeek/gimmesh/spatialmath"
	"github.com/felipeek/gimmesh/utils"
)

// ToMesh builds a renderable mesh from the derived vertices, indexes and normals, painting every
// vertex with c. The mesh owns copies of the arrays.
func ToMesh(g *GeometryImage, c color.NRGBA) (*spatialmath.Mesh, error) {
	g.checkLive()
	if !g.Derived() {
		return nil, ErrNotDerived
	}
	vertices := make([]spatialmath.MeshVertex, len(g.Vertices))
	for i, v := range g.Vertices {
		vertices[i] = spatialmath.MeshVertex{
			Position:           v.Position,
			Normal:             v.Normal,
			TextureCoordinates: v.TextureCoordinates,
			Color:              c,
		}
	}
	return spatialmath.NewMesh(vertices, append([]uint32(nil), g.Indexes...))
}

// ExportToObjFile writes the derived mesh as Wavefront OBJ.
func ExportToObjFile(g *GeometryImage, objPath string) error {
	mesh, err := ToMesh(g, color.NRGBA{B: 255, A: 255})
	if err != nil {
		return &ExportError{Path: objPath, Err: err}
	}
	if err := utils.WriteFile(objPath, mesh.ToOBJ); err != nil {
		return &ExportError{Path: objPath, Err: err}
	}
	return nil
}

// ToPointCloud returns the positions as an organized cloud. When texture has the same size as g, its
// first three channels (in [0, 1]) color the points.
func ToPointCloud(g *GeometryImage, texture *rimage.FloatImage) (*pointcloud.Organized, error) {
	g.checkLive()
	if texture != nil && (texture.Width() != g.Width() || texture.Height() != g.Height()) {
		return nil, errors.Errorf("texture %dx%d does not match geometry image %dx%d",
			texture.Width(), texture.Height(), g.Width(), g.Height())
	}
	cloud, err := pointcloud.NewOrganized(g.Width(), g.Height())
	if err != nil {
		return nil, err
	}
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			d := pointcloud.NewBasicData()
			if texture != nil {
				d.SetColor(toNRGBA(texture.Vec3At(x, y)))
			}
			if err := cloud.Set(x, y, g.Img.Vec3At(x, y), d); err != nil {
				return nil, err
			}
		}
	}
	return cloud, nil
}

func toNRGBA(c r3.Vector) color.NRGBA {
	byteOf := func(v float64) uint8 {
		return uint8(math.Round(utils.ClampF64(v, 0, 1) * 255))
	}
	return color.NRGBA{R: byteOf(c.X), G: byteOf(c.Y), B: byteOf(c.Z), A: 255}
}

// ExportToPointCloudFile writes the positions as a point cloud. The extension picks the format:
// .pcd (ascii, organized), .las, anything else plain "x y z" lines.
func ExportToPointCloudFile(g *GeometryImage, path string) error {
	return ExportTexturedPointCloudFile(g, path, nil)
}

// ExportTexturedPointCloudFile is ExportToPointCloudFile with points colored by texture, which must
// match the size of g. XYZ files drop the color.
func ExportTexturedPointCloudFile(g *GeometryImage, path string, texture *rimage.FloatImage) error {
	cloud, err := ToPointCloud(g, texture)
	if err != nil {
		return &ExportError{Path: path, Err: err}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcd":
		err = pointcloud.WriteToPCDFile(cloud, path, pointcloud.PCDAscii)
	case ".las":
		err = pointcloud.WriteToLASFile(cloud, path)
	default:
		err = utils.WriteFile(path, func(w io.Writer) error {
			return pointcloud.ToXYZ(cloud, w)
		})
	}
	if err != nil {
		return &ExportError{Path: path, Err: err}
	}
	return nil
}

// ExportToGimFile writes g in the native format, readable again with Parse.
func ExportToGimFile(g *GeometryImage, path string) error {
	err := utils.WriteFile(path, func(w io.Writer) error {
		return WriteGim(w, g)
	})
	if err != nil {
		return &ExportError{Path: path, Err: err}
	}
	return nil
}

// NormalizeAndSave rescales the position field to [0, 1] per channel and writes it as an image.
func NormalizeAndSave(g *GeometryImage, imagePath string) error {
	g.checkLive()
	if err := rimage.WriteFloatImageToFile(imagePath, rimage.NormalizeForVisualization(g.Img)); err != nil {
		return &ExportError{Path: imagePath, Err: err}
	}
	return nil
}

// NormalsImage returns the normal map of g: every normal mapped from [-1, 1] to [0, 1].
func NormalsImage(g *GeometryImage) (*rimage.FloatImage, error) {
	g.checkLive()
	if !g.Derived() {
		return nil, ErrNotDerived
	}
	out := rimage.NewFloatImage(g.Width(), g.Height(), 3)
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			n := g.Normals[y*g.Width()+x]
			out.SetVec3(x, y, n.Add(r3.Vector{X: 1, Y: 1, Z: 1}).Mul(0.5))
		}
	}
	return out, nil
}
