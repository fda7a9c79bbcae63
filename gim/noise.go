package gim

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// AddNoise returns a copy of g whose every position channel is offset by an independent uniform
// sample in [-intensity, intensity]. g is not modified and the copy is not derived.
func AddNoise(g *GeometryImage, intensity float64) *GeometryImage {
	//nolint:gosec
	return AddNoiseWithSource(g, intensity, rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
}

// AddNoiseWithSource is AddNoise drawing from src, for reproducible perturbations. A non-positive
// intensity returns a plain copy.
func AddNoiseWithSource(g *GeometryImage, intensity float64, src rand.Source) *GeometryImage {
	out := g.Copy(false)
	if intensity <= 0 {
		return out
	}
	dist := distuv.Uniform{Min: -intensity, Max: intensity, Src: src}
	data := out.Img.Data()
	for i := range data {
		data[i] += dist.Rand()
	}
	return out
}
