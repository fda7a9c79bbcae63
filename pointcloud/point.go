package pointcloud

import (
	"image/color"
)

// Data describes data associated single point within a PointCloud.
type Data interface {
	// HasColor returns whether or not this point is colored.
	HasColor() bool

	// RGB255 returns, if colored, the RGB components of the color. There
	// is no alpha channel right now and as such the data can be assumed to be
	// premultiplied.
	RGB255() (uint8, uint8, uint8)

	// Color returns the native color of the point.
	Color() color.Color

	// SetColor sets the given color on the point.
	SetColor(c color.NRGBA) Data

	// HasIntensity returns whether or not this point carries a scalar measurement.
	HasIntensity() bool

	// Intensity returns the scalar measurement, 0 when absent.
	Intensity() uint16

	// SetIntensity sets the scalar measurement on the point.
	SetIntensity(v uint16) Data
}

type basicData struct {
	hasColor bool
	c        color.NRGBA

	hasIntensity bool
	intensity    uint16
}

// NewBasicData returns a point that is solely positionally based.
func NewBasicData() Data {
	return &basicData{}
}

// NewColoredData returns a point that has both position and color.
func NewColoredData(c color.NRGBA) Data {
	return &basicData{c: c, hasColor: true}
}

func (bp *basicData) SetColor(c color.NRGBA) Data {
	bp.c = c
	bp.hasColor = true
	return bp
}

func (bp *basicData) HasColor() bool {
	return bp.hasColor
}

func (bp *basicData) RGB255() (uint8, uint8, uint8) {
	return bp.c.R, bp.c.G, bp.c.B
}

func (bp *basicData) Color() color.Color {
	return &bp.c
}

func (bp *basicData) HasIntensity() bool {
	return bp.hasIntensity
}

func (bp *basicData) Intensity() uint16 {
	return bp.intensity
}

func (bp *basicData) SetIntensity(v uint16) Data {
	bp.hasIntensity = true
	bp.intensity = v
	return bp
}
