// Package graphics declares the rendering collaborators a session drives:
// the device that compiles programs and draws full-screen quads, and the
// surface that shows the result.
package graphics

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// Program is a linked vertex+fragment program.
type Program interface{}

// Texture is a sampled 2D texture.
type Texture interface {
	Size() (int, int)
}

// RenderTarget is an off-screen RGBA32F color target.
type RenderTarget interface {
	Texture() Texture
	Size() (int, int)
}

type Filter string

const (
	FilterNearest Filter = "nearest"
	FilterLinear  Filter = "linear"
	FilterMipmap  Filter = "mipmap"
)

type Wrap string

const (
	WrapClamp  Wrap = "clamp"
	WrapRepeat Wrap = "repeat"
)

// TextureOptions controls sampling of image textures.
type TextureOptions struct {
	Filter Filter
	Wrap   Wrap
}

// Rect is a pixel rectangle with a bottom-left origin.
type Rect struct {
	X, Y, W, H int
}

// Pass describes one draw of the full-screen quad.
type Pass struct {
	Program  Program
	Target   RenderTarget // nil draws to the surface
	Viewport Rect
	Scissor  *Rect
	Uniforms Uniforms
}

// Device is the GPU side of a session. All calls happen on the thread that
// owns the context.
type Device interface {
	// CompileProgram compiles and links a program. Failures are reported as
	// *BuildError carrying the backend's diagnostic text.
	CompileProgram(vertex, fragment string) (Program, error)
	DeleteProgram(p Program)

	NewRenderTarget(width, height int) (RenderTarget, error)
	DeleteRenderTarget(rt RenderTarget)

	NewImageTexture(img image.Image, opts TextureOptions) (Texture, error)
	// NewDataTexture uploads width*height RGBA float texels.
	NewDataTexture(width, height int, rgba []float32) (Texture, error)
	UpdateDataTexture(tex Texture, width, height int, rgba []float32) error
	DeleteTexture(tex Texture)

	Draw(pass Pass) error
	// ReadPixels reads the surface's back buffer as a top-down image.
	ReadPixels(width, height int) (*image.RGBA, error)
	// ReadTarget reads a render target as RGBA float texels, bottom row first.
	ReadTarget(rt RenderTarget) ([]float32, error)
	// Finish blocks until submitted work has completed.
	Finish()
}

// BuildError is a raw compile or link diagnostic.
type BuildError struct {
	Stage string // "vertex", "fragment" or "link"
	Log   string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("failed to build %s shader: %s", e.Stage, e.Log)
}

// Uniforms maps uniform names to values for one draw.
type Uniforms map[string]Value

// Value is one of Float, Vec or Sampler.
type Value interface {
	uniformValue()
}

// Float is a scalar uniform. Integer and boolean uniforms are set from it.
type Float float32

// Vec is a float vector or float array uniform.
type Vec []float32

// Sampler binds a texture to a sampler uniform.
type Sampler struct {
	Texture Texture
}

func (Float) uniformValue()   {}
func (Vec) uniformValue()     {}
func (Sampler) uniformValue() {}

// Vec2 converts an mgl32 vector.
func Vec2(v mgl32.Vec2) Vec { return Vec{v[0], v[1]} }

// Clone returns a shallow copy; Vec slices are copied.
func (u Uniforms) Clone() Uniforms {
	out := make(Uniforms, len(u))
	for k, v := range u {
		if vec, ok := v.(Vec); ok {
			v = append(Vec(nil), vec...)
		}
		out[k] = v
	}
	return out
}
