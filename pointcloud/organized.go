package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Organized is a point cloud whose points sit on a width x height grid in row-major order.
// Unlike a sparse cloud, two grid cells may hold the same position.
type Organized struct {
	width  int
	height int
	points []r3.Vector
	data   []Data
	meta   MetaData
}

// NewOrganized returns a cloud of width x height points at the origin, without data.
func NewOrganized(width, height int) (*Organized, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("organized point cloud dimensions must be positive, got %dx%d", width, height)
	}
	return &Organized{
		width:  width,
		height: height,
		points: make([]r3.Vector, width*height),
		data:   make([]Data, width*height),
		meta:   NewMetaData(),
	}, nil
}

// Width returns the number of columns.
func (cloud *Organized) Width() int {
	return cloud.width
}

// Height returns the number of rows.
func (cloud *Organized) Height() int {
	return cloud.height
}

// Size returns the number of grid cells.
func (cloud *Organized) Size() int {
	return len(cloud.points)
}

// MetaData returns the meta data accumulated over every Set.
func (cloud *Organized) MetaData() MetaData {
	return cloud.meta
}

// At returns the point and its data at grid cell (col, row).
func (cloud *Organized) At(col, row int) (r3.Vector, Data) {
	i := row*cloud.width + col
	return cloud.points[i], cloud.data[i]
}

// Set places a point at grid cell (col, row).
func (cloud *Organized) Set(col, row int, p r3.Vector, d Data) error {
	if col < 0 || row < 0 || col >= cloud.width || row >= cloud.height {
		return errors.Errorf("cell (%d, %d) outside %dx%d cloud", col, row, cloud.width, cloud.height)
	}
	i := row*cloud.width + col
	cloud.points[i] = p
	cloud.data[i] = d
	cloud.meta.Merge(p, d)
	return nil
}

// Iterate visits cells in row-major order. With numBatches > 0 only the myBatch-th contiguous
// chunk is visited.
func (cloud *Organized) Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool) {
	from, to := 0, len(cloud.points)
	if numBatches > 0 {
		batchSize := (len(cloud.points) + numBatches - 1) / numBatches
		from = myBatch * batchSize
		to = from + batchSize
		if to > len(cloud.points) {
			to = len(cloud.points)
		}
	}
	for i := from; i < to; i++ {
		if !fn(cloud.points[i], cloud.data[i]) {
			return
		}
	}
}
