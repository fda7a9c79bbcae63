package gim

import (
	"math/rand/v2"
	"testing"

	"go.viam.com/test"

	"github.com/felipeek/gimmesh/logging"
	"github.com/felipeek/gimmesh/rimage"
)

func TestCompare(t *testing.T) {
	a := flatPlane(4, 4)
	m, err := Compare(a, a.Copy(false))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldResemble, Metrics{})

	lifted := a.Copy(false)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			lifted.Img.Set(x, y, 2, 0.5)
		}
	}
	m, err = Compare(a, lifted)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Mean, test.ShouldAlmostEqual, 0.5)
	test.That(t, m.RMS, test.ShouldAlmostEqual, 0.5)
	test.That(t, m.Max, test.ShouldAlmostEqual, 0.5)
	test.That(t, m.P95, test.ShouldAlmostEqual, 0.5)
	test.That(t, m.StdDev, test.ShouldAlmostEqual, 0.)
	test.That(t, m.MeanSurfaceDistance, test.ShouldAlmostEqual, 0.5)

	// sliding inside the plane moves texels but keeps them on the surface
	slid := a.Copy(false)
	slid.Img.Set(1, 1, 0, 1.25)
	m, err = Compare(a, slid)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Max, test.ShouldAlmostEqual, 0.25)
	test.That(t, m.MeanSurfaceDistance, test.ShouldAlmostEqual, 0.)

	_, err = Compare(a, flatPlane(3, 4))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEstimateNoise(t *testing.T) {
	g := flatPlane(32, 32)
	test.That(t, EstimateNoise(g), test.ShouldAlmostEqual, 0.)
	noisy := AddNoiseWithSource(g, 0.1, rand.NewPCG(3, 4))
	test.That(t, EstimateNoise(noisy), test.ShouldBeGreaterThan, 0.01)
}

func TestCheck(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	img := rimage.NewFloatImage(2, 2, 1)
	Check(logger, img)
	test.That(t, logs.FilterMessage("channel range").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("image has non-finite samples").Len(), test.ShouldEqual, 0)
}
