// Package brick answers how close a point can get to an axis-aligned box.
//
// All distances are squared so callers can compare against a pre-squared
// cutoff without taking a square root in the hot path.
package brick

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ClosestBetween returns the value in [begin, end] nearest to x.
func ClosestBetween(begin, end, x float64) float64 {
	if begin > end {
		panic(fmt.Sprintf("brick: inverted interval [%g, %g]", begin, end))
	}
	if x <= begin {
		return begin
	}
	if x >= end {
		return end
	}
	return x
}

// Closest returns the point inside or on the surface of b nearest to v.
func Closest(b r3.Box, v r3.Vec) r3.Vec {
	return r3.Vec{
		X: ClosestBetween(b.Min.X, b.Max.X, v.X),
		Y: ClosestBetween(b.Min.Y, b.Max.Y, v.Y),
		Z: ClosestBetween(b.Min.Z, b.Max.Z, v.Z),
	}
}

// DistanceSqr returns the squared distance from v to b. It is zero when v
// lies inside the box.
func DistanceSqr(b r3.Box, v r3.Vec) float64 {
	return r3.Norm2(r3.Sub(Closest(b, v), v))
}
