// Package graphicstest provides headless fakes of the graphics collaborators.
package graphicstest

import (
	"errors"
	"image"
	"image/color"

	"github.com/richinsley/glslbench/graphics"
)

// Program is a compiled fake program.
type Program struct {
	ID       int
	Vertex   string
	Fragment string
	Deleted  bool
}

// Texture is a fake texture; data textures keep their last upload.
type Texture struct {
	ID      int
	W, H    int
	Data    []float32
	Uploads int
	Deleted bool
}

func (t *Texture) Size() (int, int) { return t.W, t.H }

// Target is a fake render target.
type Target struct {
	ID      int
	W, H    int
	Color   *Texture
	Deleted bool
}

func (t *Target) Texture() graphics.Texture { return t.Color }
func (t *Target) Size() (int, int)          { return t.W, t.H }

// Draw records one Device.Draw call.
type Draw struct {
	Program  *Program
	Target   *Target
	Viewport graphics.Rect
	Scissor  *graphics.Rect
	Uniforms graphics.Uniforms
}

// Device records every call. Hooks may inject failures.
type Device struct {
	Programs []*Program
	Targets  []*Target
	Textures []*Texture
	Draws    []Draw
	Finishes int

	CompileHook func(vertex, fragment string) error
	TargetHook  func(width, height int) error
	DrawHook    func(pass graphics.Pass) error

	nextID int
}

func NewDevice() *Device { return &Device{} }

func (d *Device) id() int {
	d.nextID++
	return d.nextID
}

func (d *Device) CompileProgram(vertex, fragment string) (graphics.Program, error) {
	if d.CompileHook != nil {
		if err := d.CompileHook(vertex, fragment); err != nil {
			return nil, err
		}
	}
	p := &Program{ID: d.id(), Vertex: vertex, Fragment: fragment}
	d.Programs = append(d.Programs, p)
	return p, nil
}

func (d *Device) DeleteProgram(p graphics.Program) {
	if fp, ok := p.(*Program); ok {
		fp.Deleted = true
	}
}

func (d *Device) NewRenderTarget(width, height int) (graphics.RenderTarget, error) {
	if d.TargetHook != nil {
		if err := d.TargetHook(width, height); err != nil {
			return nil, err
		}
	}
	t := &Target{ID: d.id(), W: width, H: height}
	t.Color = &Texture{ID: t.ID, W: width, H: height}
	d.Targets = append(d.Targets, t)
	return t, nil
}

func (d *Device) DeleteRenderTarget(rt graphics.RenderTarget) {
	if t, ok := rt.(*Target); ok {
		t.Deleted = true
	}
}

func (d *Device) NewImageTexture(img image.Image, opts graphics.TextureOptions) (graphics.Texture, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	b := img.Bounds()
	t := &Texture{ID: d.id(), W: b.Dx(), H: b.Dy(), Uploads: 1}
	d.Textures = append(d.Textures, t)
	return t, nil
}

func (d *Device) NewDataTexture(width, height int, rgba []float32) (graphics.Texture, error) {
	t := &Texture{ID: d.id(), W: width, H: height, Data: append([]float32(nil), rgba...), Uploads: 1}
	d.Textures = append(d.Textures, t)
	return t, nil
}

func (d *Device) UpdateDataTexture(tex graphics.Texture, width, height int, rgba []float32) error {
	t, ok := tex.(*Texture)
	if !ok {
		return errors.New("foreign texture")
	}
	t.W, t.H = width, height
	t.Data = append(t.Data[:0], rgba...)
	t.Uploads++
	return nil
}

func (d *Device) DeleteTexture(tex graphics.Texture) {
	if t, ok := tex.(*Texture); ok {
		t.Deleted = true
	}
}

func (d *Device) Draw(pass graphics.Pass) error {
	if d.DrawHook != nil {
		if err := d.DrawHook(pass); err != nil {
			return err
		}
	}
	dc := Draw{Viewport: pass.Viewport, Uniforms: pass.Uniforms.Clone()}
	dc.Program, _ = pass.Program.(*Program)
	if pass.Target != nil {
		dc.Target, _ = pass.Target.(*Target)
	}
	if pass.Scissor != nil {
		s := *pass.Scissor
		dc.Scissor = &s
	}
	d.Draws = append(d.Draws, dc)
	return nil
}

func (d *Device) ReadPixels(width, height int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff})
	return img, nil
}

func (d *Device) ReadTarget(rt graphics.RenderTarget) ([]float32, error) {
	w, h := rt.Size()
	return make([]float32, w*h*4), nil
}

func (d *Device) Finish() { d.Finishes++ }

// DrawsTo filters recorded draws by target; nil selects surface draws.
func (d *Device) DrawsTo(t *Target) []Draw {
	var out []Draw
	for _, dc := range d.Draws {
		if dc.Target == t {
			out = append(out, dc)
		}
	}
	return out
}

// Surface is a fake window.
type Surface struct {
	W, H      int
	Presents  int
	Destroyed bool
}

func NewSurface(width, height int) *Surface { return &Surface{W: width, H: height} }

func (s *Surface) DrawableSize() (int, int) { return s.W, s.H }
func (s *Surface) SetSize(width, height int) { s.W, s.H = width, height }
func (s *Surface) Present()                  { s.Presents++ }
func (s *Surface) Destroy()                  { s.Destroyed = true }
