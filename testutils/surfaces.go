// Package testutils provides surfaces and files shared by tests of several packages.
package testutils

import (
	"github.com/golang/geo/r3"

	"github.com/felipeek/gimmesh/rimage"
)

// Surface returns a width x height position field with x and y following the grid and z given by f.
func Surface(width, height int, f func(x, y int) float64) *rimage.FloatImage {
	img := rimage.NewFloatImage(width, height, 3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetVec3(x, y, r3.Vector{X: float64(x), Y: float64(y), Z: f(x, y)})
		}
	}
	return img
}

// Plane is the z = 0 grid.
func Plane(width, height int) *rimage.FloatImage {
	return Surface(width, height, func(x, y int) float64 { return 0 })
}

// Paraboloid is z = c * r^2 around the center texel, a bowl for c > 0 and a dome for c < 0.
func Paraboloid(width, height int, c float64) *rimage.FloatImage {
	midX, midY := width/2, height/2
	return Surface(width, height, func(x, y int) float64 {
		dx, dy := float64(x-midX), float64(y-midY)
		return c * (dx*dx + dy*dy)
	})
}

// Spike is Plane with the center texel raised to height.
func Spike(size int, height float64) *rimage.FloatImage {
	return Surface(size, size, func(x, y int) float64 {
		if x == size/2 && y == size/2 {
			return height
		}
		return 0
	})
}

// Uniform has every texel at v.
func Uniform(width, height int, v r3.Vector) *rimage.FloatImage {
	img := rimage.NewFloatImage(width, height, 3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetVec3(x, y, v)
		}
	}
	return img
}
