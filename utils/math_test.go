package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestClamp(t *testing.T) {
	test.That(t, ClampInt(-3, 0, 9), test.ShouldEqual, 0)
	test.That(t, ClampInt(12, 0, 9), test.ShouldEqual, 9)
	test.That(t, ClampInt(4, 0, 9), test.ShouldEqual, 4)
	test.That(t, ClampF64(1.5, 0, 1), test.ShouldEqual, 1.)
	test.That(t, ClampF64(-0.25, 0, 1), test.ShouldEqual, 0.)
}

func TestSignedPow(t *testing.T) {
	test.That(t, SignedPow(-4, 0.5), test.ShouldAlmostEqual, -2.)
	test.That(t, SignedPow(9, 0.5), test.ShouldAlmostEqual, 3.)
	test.That(t, SignedPow(-2, 1), test.ShouldEqual, -2.)
	test.That(t, SignedPow(0, 2), test.ShouldEqual, 0.)
}

func TestIsFinite(t *testing.T) {
	test.That(t, IsFinite(1), test.ShouldBeTrue)
	test.That(t, IsFinite(math.NaN()), test.ShouldBeFalse)
	test.That(t, IsFinite(math.Inf(-1)), test.ShouldBeFalse)
}
