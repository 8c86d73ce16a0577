package resource

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/richinsley/glslbench/graphics"
	"github.com/richinsley/glslbench/graphics/graphicstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanLoop chan func()

func (c chanLoop) Post(fn func()) { c <- fn }

func TestTextureLoader(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	good := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(good, buf.Bytes(), 0644))
	bad := filepath.Join(dir, "b.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0644))

	dev := graphicstest.NewDevice()
	loop := make(chanLoop, 2)
	l := NewTextureLoader(context.Background(), NewFetcher(false), dev, loop)

	var gotTex graphics.Texture
	var gotErr error
	l.Load(good, graphics.TextureOptions{Filter: graphics.FilterLinear}, func(tex graphics.Texture, err error) {
		gotTex, gotErr = tex, err
	})
	(<-loop)()
	require.NoError(t, gotErr)
	w, h := gotTex.Size()
	assert.Equal(t, 3, w)
	assert.Equal(t, 2, h)
	assert.Len(t, dev.Textures, 1)

	calls := 0
	l.Load(bad, graphics.TextureOptions{}, func(tex graphics.Texture, err error) {
		calls++
		gotTex, gotErr = tex, err
	})
	(<-loop)()
	assert.Equal(t, 1, calls)
	assert.Nil(t, gotTex)
	assert.ErrorContains(t, gotErr, "failed to decode image")
	assert.Len(t, dev.Textures, 1)
}
