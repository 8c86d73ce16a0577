package options

import (
	"io"
	"testing"

	"github.com/richinsley/glslbench/shaderspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) *Options {
	t.Helper()
	fs, o := NewFlagSet("glslbench", io.Discard)
	require.NoError(t, fs.Parse(args))
	return o
}

func TestDefaults(t *testing.T) {
	o := parse(t, "-spec", "a.json")
	require.NoError(t, o.Validate())
	assert.Equal(t, 800, *o.Width)
	assert.Equal(t, 600, *o.Height)
	assert.Equal(t, 60, *o.FPS)

	s := &shaderspec.Spec{RefreshEvery: 3, BatchSize: 2, Divisions: shaderspec.Divisions{N: 4}}
	o.Apply(s)
	assert.Equal(t, 3, s.RefreshEvery)
	assert.Equal(t, 2, s.BatchSize)
	assert.Equal(t, shaderspec.Divisions{N: 4}, s.Divisions)
}

func TestOverrides(t *testing.T) {
	o := parse(t, "-spec", "a.yaml", "-refresh", "7", "-batch", "5", "-divisions", "auto")
	require.NoError(t, o.Validate())

	s := &shaderspec.Spec{RefreshEvery: 1, BatchSize: 1, Divisions: shaderspec.Divisions{N: 1}}
	o.Apply(s)
	assert.Equal(t, 7, s.RefreshEvery)
	assert.Equal(t, 5, s.BatchSize)
	assert.True(t, s.Divisions.Auto)

	o = parse(t, "-spec", "a.yaml", "-divisions", "3")
	o.Apply(s)
	assert.Equal(t, shaderspec.Divisions{N: 3}, s.Divisions)
}

func TestValidate(t *testing.T) {
	for name, args := range map[string][]string{
		"missing spec":  {},
		"bad divisions": {"-spec", "a", "-divisions", "zero"},
		"zero division": {"-spec", "a", "-divisions", "0"},
		"negative":      {"-spec", "a", "-refresh", "-1"},
		"exr alone":     {"-spec", "a", "-exr", "out.exr"},
		"hidden alone":  {"-spec", "a", "-hidden"},
		"bad size":      {"-spec", "a", "-width", "0"},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, parse(t, args...).Validate())
		})
	}
}
