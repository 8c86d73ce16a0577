package random

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/richinsley/glslbench"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleSizes(t *testing.T) {
	g := New(1)
	for _, d := range []Distribution{Uniform, Normal} {
		for n := 1; n <= 4; n++ {
			s, err := g.Sample(d, n)
			require.NoError(t, err)
			assert.Len(t, s, n)
		}
	}
	s, err := g.Sample(Uniform, 4*16)
	require.NoError(t, err)
	assert.Len(t, s, 64)
}

func TestUniformRange(t *testing.T) {
	g := New(7)
	s, err := g.Sample(Uniform, 10000)
	require.NoError(t, err)
	for _, v := range s {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestNormalMoments(t *testing.T) {
	g := New(42)
	const n = 200000
	s, err := g.Sample(Normal, n)
	require.NoError(t, err)

	var sum, sumSq float64
	for _, v := range s {
		sum += float64(v)
		sumSq += float64(v) * float64(v)
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	assert.InDelta(t, 0, mean, 0.02)
	assert.InDelta(t, 1, variance, 0.03)
}

func TestSeedIsDeterministic(t *testing.T) {
	a, _ := New(3).Sample(Normal, 8)
	b, _ := New(3).Sample(Normal, 8)
	assert.Equal(t, a, b)
}

func TestUnknownDistribution(t *testing.T) {
	_, err := New(1).Sample(Distribution("cauchy"), 2)
	var cfg *glslbench.ConfigurationError
	assert.True(t, errors.As(err, &cfg))

	_, err = ParseDistribution("poisson")
	assert.Error(t, err)

	d, err := ParseDistribution("gauss")
	require.NoError(t, err)
	assert.Equal(t, Normal, d)
}

// maxSource returns the largest possible word on every draw.
type maxSource struct{}

func (maxSource) Uint64() uint64 { return ^uint64(0) }

func TestUniformExcludesOne(t *testing.T) {
	g := &Generator{rng: rand.New(maxSource{})}
	vals, err := g.Sample(Uniform, 4)
	require.NoError(t, err)
	for _, v := range vals {
		assert.Less(t, v, float32(1))
	}
}
