package framebuffer

import (
	"errors"
	"testing"

	"github.com/richinsley/glslbench/graphics/graphicstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingPong(t *testing.T) {
	dev := graphicstest.NewDevice()
	p, err := Allocate(dev, 4, 3)
	require.NoError(t, err)

	for frame := uint64(1); frame < 6; frame++ {
		assert.Same(t, p.Write(frame-1), p.Read(frame))
		assert.NotSame(t, p.Write(frame), p.Read(frame))
	}
}

func TestResize(t *testing.T) {
	dev := graphicstest.NewDevice()
	p, err := Allocate(dev, 4, 3)
	require.NoError(t, err)
	old := [2]*graphicstest.Target{dev.Targets[0], dev.Targets[1]}

	require.NoError(t, p.Resize(8, 6))
	w, h := p.Size()
	assert.Equal(t, 8, w)
	assert.Equal(t, 6, h)
	assert.True(t, old[0].Deleted)
	assert.True(t, old[1].Deleted)
	for f := uint64(0); f < 2; f++ {
		tw, th := p.Write(f).Size()
		assert.Equal(t, 8, tw)
		assert.Equal(t, 6, th)
	}

	require.NoError(t, p.Resize(8, 6))
	assert.Len(t, dev.Targets, 4, "same size does not reallocate")
}

func TestResizeFailureKeepsOldPair(t *testing.T) {
	dev := graphicstest.NewDevice()
	p, err := Allocate(dev, 4, 3)
	require.NoError(t, err)
	write, read := p.Write(0), p.Read(0)

	calls := 0
	dev.TargetHook = func(w, h int) error {
		calls++
		if calls == 2 {
			return errors.New("out of memory")
		}
		return nil
	}
	assert.Error(t, p.Resize(16, 16))
	assert.Same(t, write, p.Write(0))
	assert.Same(t, read, p.Read(0))
	assert.True(t, dev.Targets[2].Deleted, "half built pair is released")

	w, h := p.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 3, h)
}

func TestDestroy(t *testing.T) {
	dev := graphicstest.NewDevice()
	p, err := Allocate(dev, 2, 2)
	require.NoError(t, err)
	p.Destroy()
	assert.True(t, dev.Targets[0].Deleted)
	assert.True(t, dev.Targets[1].Deleted)
	p.Destroy()
}
