// Package framebuffer manages the pair of float render targets a session
// ping-pongs between.
package framebuffer

import (
	"fmt"
	"log"

	"github.com/richinsley/glslbench/graphics"
)

// Pair is two equally sized RGBA32F targets. Frame n writes target n%2 and
// reads target 1-n%2, the previous frame's output.
type Pair struct {
	dev     graphics.Device
	targets [2]graphics.RenderTarget
	width   int
	height  int
}

// Allocate creates both targets.
func Allocate(dev graphics.Device, width, height int) (*Pair, error) {
	targets, err := allocate(dev, width, height)
	if err != nil {
		return nil, err
	}
	return &Pair{dev: dev, targets: targets, width: width, height: height}, nil
}

func allocate(dev graphics.Device, width, height int) ([2]graphics.RenderTarget, error) {
	var targets [2]graphics.RenderTarget
	if width <= 0 || height <= 0 {
		return targets, fmt.Errorf("invalid frame target size %dx%d", width, height)
	}
	for i := 0; i < 2; i++ {
		rt, err := dev.NewRenderTarget(width, height)
		if err != nil {
			for j := 0; j < i; j++ {
				dev.DeleteRenderTarget(targets[j])
			}
			return [2]graphics.RenderTarget{}, fmt.Errorf("failed to allocate frame target %d: %w", i, err)
		}
		targets[i] = rt
	}
	return targets, nil
}

// Resize reallocates both targets. The new pair is complete before the old
// one is released; on failure the old pair is left in place. Contents are
// undefined afterwards.
func (p *Pair) Resize(width, height int) error {
	if width == p.width && height == p.height {
		return nil
	}
	targets, err := allocate(p.dev, width, height)
	if err != nil {
		return err
	}
	old := p.targets
	p.targets, p.width, p.height = targets, width, height
	for _, rt := range old {
		if rt != nil {
			p.dev.DeleteRenderTarget(rt)
		}
	}
	log.Printf("Frame targets resized to %dx%d", width, height)
	return nil
}

// Write returns the target frame writes.
func (p *Pair) Write(frame uint64) graphics.RenderTarget { return p.targets[frame%2] }

// Read returns the target holding the output of frame-1.
func (p *Pair) Read(frame uint64) graphics.RenderTarget { return p.targets[1-frame%2] }

func (p *Pair) Size() (int, int) { return p.width, p.height }

// Destroy releases both targets.
func (p *Pair) Destroy() {
	for i, rt := range p.targets {
		if rt != nil {
			p.dev.DeleteRenderTarget(rt)
			p.targets[i] = nil
		}
	}
}
