package resource

import (
	"bytes"
	"context"
	"fmt"
	"image"

	// Decoders for image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/richinsley/glslbench/graphics"
)

// Poster runs a function on the goroutine that owns the device.
type Poster interface {
	Post(fn func())
}

// TextureLoader fetches and decodes images on a background goroutine and
// uploads them on the device goroutine.
type TextureLoader struct {
	ctx     context.Context
	fetcher *Fetcher
	device  graphics.Device
	loop    Poster
}

func NewTextureLoader(ctx context.Context, fetcher *Fetcher, device graphics.Device, loop Poster) *TextureLoader {
	return &TextureLoader{ctx: ctx, fetcher: fetcher, device: device, loop: loop}
}

// Load implements uniforms.TextureLoader.
func (l *TextureLoader) Load(path string, opts graphics.TextureOptions, done func(graphics.Texture, error)) {
	go func() {
		img, err := l.decode(path)
		l.loop.Post(func() {
			if err != nil {
				done(nil, err)
				return
			}
			tex, err := l.device.NewImageTexture(img, opts)
			if err != nil {
				done(nil, fmt.Errorf("failed to upload %s: %w", path, err))
				return
			}
			done(tex, nil)
		})
	}()
}

func (l *TextureLoader) decode(path string) (image.Image, error) {
	data, err := l.fetcher.Fetch(l.ctx, path)
	if err != nil {
		return nil, err
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// Decode decodes an image in any registered format.
func Decode(data []byte) (image.Image, string, error) {
	return image.Decode(bytes.NewReader(data))
}
