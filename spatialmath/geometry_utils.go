package spatialmath

import (
	"github.com/golang/geo/r3"
)

const floatEpsilon = 1e-6

// PlaneNormal returns the unit normal of the plane through p1, p2 and p3, following the right-hand
// rule. Collinear points give the zero vector.
func PlaneNormal(p1, p2, p3 r3.Vector) r3.Vector {
	return SafeNormalize(p2.Sub(p1).Cross(p3.Sub(p1)))
}

// SafeNormalize scales v to unit length, leaving near-zero vectors as the zero vector.
func SafeNormalize(v r3.Vector) r3.Vector {
	n := v.Norm()
	if n < floatEpsilon*floatEpsilon {
		return r3.Vector{}
	}
	return v.Mul(1 / n)
}

// ClosestPointSegmentPoint takes a line segment defined by two points and a third point, and returns the
// closest point on the segment to the third point.
func ClosestPointSegmentPoint(segA, segB, pt r3.Vector) r3.Vector {
	ab := segB.Sub(segA)
	denom := ab.Norm2()
	if denom < floatEpsilon*floatEpsilon {
		return segA
	}
	t := pt.Sub(segA).Dot(ab) / denom
	switch {
	case t <= 0:
		return segA
	case t >= 1:
		return segB
	default:
		return segA.Add(ab.Mul(t))
	}
}
