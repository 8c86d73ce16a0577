package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/glslbench/graphics"
)

// FrameState counts completed logical frames. It is reset by every resize.
type FrameState struct {
	Number      uint64
	SinceMotion uint64
	Width       int
	Height      int
}

// Buffer is the index of the target the current frame writes.
func (f FrameState) Buffer() int { return int(f.Number % 2) }

func (f *FrameState) complete(moved bool) {
	f.Number++
	if moved {
		f.SinceMotion = 0
	} else {
		f.SinceMotion++
	}
}

func (f *FrameState) reset(width, height int) {
	*f = FrameState{Width: width, Height: height}
}

// InputState is the last observed pointer position.
type InputState struct {
	Mouse    mgl32.Vec2 // pixels
	Relative mgl32.Vec2 // fraction of the surface size
	moved    bool
}

func (in *InputState) takeMotion() bool {
	m := in.moved
	in.moved = false
	return m
}

// frameView exposes the renderer's state to the uniform resolver.
type frameView struct{ r *Renderer }

func (v frameView) FrameNumber() uint64            { return v.r.frame.Number }
func (v frameView) FrameNumberSinceMotion() uint64 { return v.r.frame.SinceMotion }
func (v frameView) Resolution() (int, int)         { return v.r.frame.Width, v.r.frame.Height }
func (v frameView) Mouse() mgl32.Vec2              { return v.r.input.Mouse }
func (v frameView) RelativeMouse() mgl32.Vec2      { return v.r.input.Relative }

func (v frameView) PreviousFrame() graphics.Texture {
	if v.r.targets == nil {
		return nil
	}
	return v.r.targets.Read(v.r.frame.Number).Texture()
}
