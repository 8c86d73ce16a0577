// Package random produces the uniform and normal samples bound to random
// uniforms and random data textures.
package random

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/richinsley/glslbench"
)

// Distribution names a sampling distribution.
type Distribution string

const (
	Uniform Distribution = "uniform"
	Normal  Distribution = "normal"
)

// ParseDistribution validates a distribution name. "gauss" is accepted as
// an alias of normal.
func ParseDistribution(s string) (Distribution, error) {
	switch strings.ToLower(s) {
	case "uniform":
		return Uniform, nil
	case "normal", "gauss":
		return Normal, nil
	}
	return "", glslbench.Configf("distribution", "invalid random distribution %s", s)
}

// Generator draws samples. It is not safe for concurrent use; a session
// only ever samples from the event loop.
type Generator struct {
	rng *rand.Rand
}

// New returns a generator seeded with seed.
func New(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewUnseeded returns a generator seeded from the runtime's entropy.
func NewUnseeded() *Generator {
	return New(rand.Uint64())
}

// Sample returns n independent draws from dist.
func (g *Generator) Sample(dist Distribution, n int) ([]float32, error) {
	out := make([]float32, n)
	return out, g.Fill(dist, out)
}

// Fill overwrites dst with draws from dist.
func (g *Generator) Fill(dist Distribution, dst []float32) error {
	switch dist {
	case Uniform:
		for i := range dst {
			dst[i] = g.rng.Float32()
		}
	case Normal:
		for i := range dst {
			dst[i] = float32(g.boxMuller())
		}
	default:
		return glslbench.Configf("distribution", "invalid random distribution %s", dist)
	}
	return nil
}

// boxMuller returns a standard normal variate from two uniform draws in (0,1).
func (g *Generator) boxMuller() float64 {
	u := 0.0
	for u == 0 {
		u = g.rng.Float64()
	}
	v := 0.0
	for v == 0 {
		v = g.rng.Float64()
	}
	return math.Sqrt(-2*math.Log(u)) * math.Cos(2*math.Pi*v)
}
