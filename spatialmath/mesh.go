package spatialmath

import (
	"bufio"
	"fmt"
	"image/color"
	"io"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// MeshVertex is a renderable vertex.
type MeshVertex struct {
	Position           r3.Vector
	Normal             r3.Vector
	TextureCoordinates r2.Point
	Color              color.NRGBA
}

// Mesh is an indexed triangle list: every three consecutive Indexes select the corners of one triangle.
type Mesh struct {
	Vertices []MeshVertex
	Indexes  []uint32
}

// NewMesh returns a mesh over vertices and indexes. The index count must be a multiple of three and every
// index must address a vertex.
func NewMesh(vertices []MeshVertex, indexes []uint32) (*Mesh, error) {
	if len(indexes)%3 != 0 {
		return nil, errors.Errorf("index count %d is not a multiple of 3", len(indexes))
	}
	for _, idx := range indexes {
		if int(idx) >= len(vertices) {
			return nil, errors.Errorf("index %d out of range for %d vertices", idx, len(vertices))
		}
	}
	return &Mesh{Vertices: vertices, Indexes: indexes}, nil
}

// NumTriangles returns the number of triangles.
func (m *Mesh) NumTriangles() int {
	return len(m.Indexes) / 3
}

// Triangles returns the mesh faces.
func (m *Mesh) Triangles() []*Triangle {
	tris := make([]*Triangle, 0, m.NumTriangles())
	for i := 0; i+2 < len(m.Indexes); i += 3 {
		tris = append(tris, NewTriangle(
			m.Vertices[m.Indexes[i]].Position,
			m.Vertices[m.Indexes[i+1]].Position,
			m.Vertices[m.Indexes[i+2]].Position,
		))
	}
	return tris
}

// SurfaceArea sums the area of every face.
func (m *Mesh) SurfaceArea() float64 {
	total := 0.
	for _, tri := range m.Triangles() {
		total += tri.Area()
	}
	return total
}

// ToOBJ writes the mesh as a Wavefront OBJ document with positions, texture coordinates, normals and
// faces. OBJ indices are 1-based and every face corner references the same index in all three lists.
func (m *Mesh) ToOBJ(out io.Writer) error {
	w := bufio.NewWriter(out)
	for _, v := range m.Vertices {
		if _, err := fmt.Fprintf(w, "v %f %f %f\n", v.Position.X, v.Position.Y, v.Position.Z); err != nil {
			return err
		}
	}
	for _, v := range m.Vertices {
		if _, err := fmt.Fprintf(w, "vt %f %f\n", v.TextureCoordinates.X, v.TextureCoordinates.Y); err != nil {
			return err
		}
	}
	for _, v := range m.Vertices {
		if _, err := fmt.Fprintf(w, "vn %f %f %f\n", v.Normal.X, v.Normal.Y, v.Normal.Z); err != nil {
			return err
		}
	}
	for i := 0; i+2 < len(m.Indexes); i += 3 {
		a, b, c := m.Indexes[i]+1, m.Indexes[i+1]+1, m.Indexes[i+2]+1
		if _, err := fmt.Fprintf(w, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c); err != nil {
			return err
		}
	}
	return w.Flush()
}
