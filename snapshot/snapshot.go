// Package snapshot serializes frames: PNG data URIs and files for what the
// surface shows, OpenEXR for the float accumulation target.
package snapshot

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/mrjoshuak/go-openexr/exr"
)

const dataURIPrefix = "data:image/png;base64,"

// DataURI encodes img as a PNG data URI.
func DataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURI decodes a URI produced by DataURI.
func DecodeDataURI(uri string) (image.Image, error) {
	if len(uri) < len(dataURIPrefix) || uri[:len(dataURIPrefix)] != dataURIPrefix {
		return nil, fmt.Errorf("not a png data uri")
	}
	data, err := base64.StdEncoding.DecodeString(uri[len(dataURIPrefix):])
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(data))
}

// WritePNG writes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// EXRImage converts width*height RGBA float texels, bottom row first, into
// a top-down OpenEXR image.
func EXRImage(width, height int, rgba []float32) (*exr.RGBAImage, error) {
	if len(rgba) != width*height*4 {
		return nil, fmt.Errorf("have %d floats for a %dx%d image", len(rgba), width, height)
	}
	img := exr.NewRGBAImage(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := (height - 1 - y) * width * 4
		for x := 0; x < width; x++ {
			i := row + x*4
			img.SetRGBA(x, y, rgba[i], rgba[i+1], rgba[i+2], rgba[i+3])
		}
	}
	return img, nil
}

// WriteEXR writes float texels to an OpenEXR file.
func WriteEXR(path string, width, height int, rgba []float32) error {
	img, err := EXRImage(width, height, rgba)
	if err != nil {
		return err
	}
	if err := exr.EncodeFile(path, img); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
