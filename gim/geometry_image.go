// Package gim holds the geometry image store: a grid of 3D positions coupled to the vertex, index
// and normal arrays derived from it.
package gim

import (
	"sync"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/felipeek/gimmesh/rimage"
	"github.com/felipeek/gimmesh/spatialmath"
	"github.com/felipeek/gimmesh/utils"
)

// ErrNotDerived is returned by operations that need Update3D to have run.
var ErrNotDerived = errors.New("geometry image 3d data is not derived, call Update3D first")

// Vertex is the renderable record of one texel.
type Vertex struct {
	Position           r3.Vector
	Normal             r3.Vector
	TextureCoordinates r2.Point
}

// GeometryImage binds a three channel image of positions to the mesh data derived from it. Vertices
// and Normals follow the texel order y*width+x. Indexes are shared between every image of the same
// size and must never be written to.
type GeometryImage struct {
	Img      *rimage.FloatImage
	Vertices []Vertex
	Indexes  []uint32
	Normals  []r3.Vector

	freed bool
}

// New wraps img, which must have three channels, without deriving 3D data.
func New(img *rimage.FloatImage) *GeometryImage {
	if img == nil || img.Channels() != 3 {
		utils.ContractViolation("geometry image needs a 3 channel position image")
	}
	return &GeometryImage{Img: img}
}

// Width returns the number of columns.
func (g *GeometryImage) Width() int {
	return g.Img.Width()
}

// Height returns the number of rows.
func (g *GeometryImage) Height() int {
	return g.Img.Height()
}

// Derived reports whether Vertices, Indexes and Normals are populated.
func (g *GeometryImage) Derived() bool {
	n := g.Img.Len()
	return len(g.Vertices) == n && len(g.Normals) == n && g.Indexes != nil
}

func (g *GeometryImage) checkLive() {
	if g.freed {
		utils.ContractViolation("use of freed geometry image")
	}
}

// Update3D rebuilds the vertices from the current positions, attaches the triangulation for the
// image size and recomputes the area weighted vertex normals. Existing Vertices or Normals must
// already have one entry per texel.
func (g *GeometryImage) Update3D() {
	g.checkLive()
	n := g.Img.Len()
	if g.Vertices != nil && len(g.Vertices) != n {
		utils.ContractViolation("geometry image has %d vertices for %d texels", len(g.Vertices), n)
	}
	if g.Normals != nil && len(g.Normals) != n {
		utils.ContractViolation("geometry image has %d normals for %d texels", len(g.Normals), n)
	}
	if g.Vertices == nil {
		g.Vertices = make([]Vertex, n)
	}
	if g.Normals == nil {
		g.Normals = make([]r3.Vector, n)
	}

	width, height := g.Width(), g.Height()
	g.Indexes = GridIndexes(width, height)
	computeNormals(g.Img, g.Indexes, g.Normals)

	utils.ParallelForEachRow(height, func(y int) {
		for x := 0; x < width; x++ {
			i := y*width + x
			g.Vertices[i] = Vertex{
				Position:           g.Img.Vec3At(x, y),
				Normal:             g.Normals[i],
				TextureCoordinates: textureCoordinates(x, y, width, height),
			}
		}
	})
}

func textureCoordinates(x, y, width, height int) r2.Point {
	var tc r2.Point
	if width > 1 {
		tc.X = float64(x) / float64(width-1)
	}
	if height > 1 {
		tc.Y = float64(y) / float64(height-1)
	}
	return tc
}

// computeNormals sums every triangle's unnormalized normal into its three corners, which weighs
// faces by area, then normalizes. Vertices without a face keep a zero normal.
func computeNormals(img *rimage.FloatImage, indexes []uint32, normals []r3.Vector) {
	for i := range normals {
		normals[i] = r3.Vector{}
	}
	positions := img.Data()
	at := func(i uint32) r3.Vector {
		o := int(i) * 3
		return r3.Vector{X: positions[o], Y: positions[o+1], Z: positions[o+2]}
	}
	for t := 0; t+2 < len(indexes); t += 3 {
		i0, i1, i2 := indexes[t], indexes[t+1], indexes[t+2]
		faceNormal := spatialmath.NewTriangle(at(i0), at(i1), at(i2)).WeightedNormal()
		normals[i0] = normals[i0].Add(faceNormal)
		normals[i1] = normals[i1].Add(faceNormal)
		normals[i2] = normals[i2].Add(faceNormal)
	}
	for i, n := range normals {
		if norm := n.Norm(); norm > 0 {
			normals[i] = n.Mul(1 / norm)
		}
	}
}

type gridSize struct {
	width, height int
}

var indexCache = struct {
	sync.Mutex
	byDims map[gridSize][]uint32
}{byDims: map[gridSize][]uint32{}}

// GridIndexes returns the triangulation of a width x height grid: two counter-clockwise triangles
// (i, i+1, i+w) and (i+1, i+w+1, i+w) per cell. The slice is cached per size and shared; callers
// must not modify it.
func GridIndexes(width, height int) []uint32 {
	key := gridSize{width, height}
	indexCache.Lock()
	defer indexCache.Unlock()
	if indexes, ok := indexCache.byDims[key]; ok {
		return indexes
	}

	cells := utils.MaxInt(width-1, 0) * utils.MaxInt(height-1, 0)
	indexes := make([]uint32, 0, cells*6)
	for y := 0; y+1 < height; y++ {
		for x := 0; x+1 < width; x++ {
			i := uint32(y*width + x)
			w := uint32(width)
			indexes = append(indexes, i, i+1, i+w, i+1, i+w+1, i+w)
		}
	}
	indexCache.byDims[key] = indexes
	return indexes
}

// Copy returns an independent image with a deep copy of the positions. With copy3d the vertices and
// normals are cloned as well, otherwise the copy must be derived again before rendering.
func (g *GeometryImage) Copy(copy3d bool) *GeometryImage {
	g.checkLive()
	out := &GeometryImage{Img: g.Img.Clone()}
	if copy3d && g.Vertices != nil {
		out.Vertices = append([]Vertex(nil), g.Vertices...)
		out.Normals = append([]r3.Vector(nil), g.Normals...)
		out.Indexes = g.Indexes
	}
	return out
}

// Free releases every array. The image must not be used afterwards and freeing it twice is a bug.
func (g *GeometryImage) Free() {
	if g.freed {
		utils.ContractViolation("geometry image freed twice")
	}
	g.Img = nil
	g.Vertices = nil
	g.Indexes = nil
	g.Normals = nil
	g.freed = true
}
