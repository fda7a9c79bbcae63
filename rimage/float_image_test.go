package rimage

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestFloatImageAccessors(t *testing.T) {
	fi := NewFloatImage(3, 2, 3)
	test.That(t, fi.Width(), test.ShouldEqual, 3)
	test.That(t, fi.Height(), test.ShouldEqual, 2)
	test.That(t, fi.Channels(), test.ShouldEqual, 3)
	test.That(t, fi.Len(), test.ShouldEqual, 6)
	test.That(t, fi.Data(), test.ShouldHaveLength, 18)

	fi.SetVec3(2, 1, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, fi.Vec3At(2, 1), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, fi.At(2, 1, 1), test.ShouldEqual, 2.)
	// row-major, channel interleaved
	test.That(t, fi.Data()[(1*3+2)*3+2], test.ShouldEqual, 3.)

	test.That(t, fi.In(2, 1), test.ShouldBeTrue)
	test.That(t, fi.In(3, 1), test.ShouldBeFalse)
	test.That(t, fi.In(-1, 0), test.ShouldBeFalse)

	// clamped lookups replicate the edge texel
	test.That(t, fi.ClampedVec3At(10, 5), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, fi.ClampedPixel(-4, -4), test.ShouldResemble, fi.Pixel(0, 0))
}

func TestFloatImageSingleChannelVec3(t *testing.T) {
	fi := NewFloatImage(1, 1, 1)
	fi.SetVec3(0, 0, r3.Vector{X: 7, Y: 8, Z: 9})
	test.That(t, fi.Vec3At(0, 0), test.ShouldResemble, r3.Vector{X: 7})
}

func TestFloatImageCloneIsDeep(t *testing.T) {
	fi := NewFloatImage(2, 2, 3)
	fi.Set(1, 1, 2, 5)
	clone := fi.Clone()
	test.That(t, clone.Equal(fi), test.ShouldBeTrue)

	clone.Set(1, 1, 2, 6)
	test.That(t, fi.At(1, 1, 2), test.ShouldEqual, 5.)
	test.That(t, clone.Equal(fi), test.ShouldBeFalse)
	test.That(t, fi.Equal(NewFloatImage(2, 2, 1)), test.ShouldBeFalse)
	test.That(t, fi.Equal(nil), test.ShouldBeFalse)
}

func TestFloatImageContract(t *testing.T) {
	test.That(t, func() { NewFloatImage(0, 4, 3) }, test.ShouldPanic)
	test.That(t, func() { NewFloatImage(4, -1, 3) }, test.ShouldPanic)
	test.That(t, func() { NewFloatImage(4, 4, 0) }, test.ShouldPanic)
	test.That(t, func() { NewFloatImageFromData(2, 2, 3, make([]float64, 11)) }, test.ShouldPanic)
	test.That(t, NewFloatImageFromData(2, 2, 3, make([]float64, 12)).Len(), test.ShouldEqual, 4)
}
