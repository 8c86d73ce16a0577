// Package renderer drives a shader session: it waits for the shader source
// and textures, compiles the programs, and schedules render passes on the
// event loop.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/richinsley/glslbench"
	"github.com/richinsley/glslbench/eventloop"
	"github.com/richinsley/glslbench/framebuffer"
	"github.com/richinsley/glslbench/graphics"
	"github.com/richinsley/glslbench/random"
	"github.com/richinsley/glslbench/resource"
	"github.com/richinsley/glslbench/shaderspec"
	"github.com/richinsley/glslbench/snapshot"
	"github.com/richinsley/glslbench/uniforms"
)

// Scheduler is the event loop a Renderer runs on.
type Scheduler interface {
	Post(fn func())
	RequestFrame(fn func()) eventloop.Cancel
	AfterFunc(d time.Duration, fn func()) eventloop.Cancel
	Now() time.Time
}

// Renderer owns one shader session. Apart from construction, every method
// must be called on the scheduler's goroutine.
type Renderer struct {
	dev   graphics.Device
	surf  graphics.Surface
	sched Scheduler

	ctx       context.Context
	cancel    context.CancelFunc
	fetcher   shaderspec.Fetcher
	loader    uniforms.TextureLoader
	rng       *random.Generator
	partCfg   PartitionConfig
	overrides []func(*shaderspec.Spec)

	state         State
	stopRequested bool
	destroyed     bool
	err           error
	onError       func(error)

	spec     *shaderspec.Spec
	source   string
	resolver *uniforms.Resolver
	programs *Programs
	targets  *framebuffer.Pair
	part     *Partitioner
	bound    graphics.Uniforms

	frame FrameState
	input InputState

	cancelTick  eventloop.Cancel
	division    int
	divisions   int
	captures    []func(string, error)
	captureStop bool
	onRefresh   []func(*image.RGBA)
	onFrame     []func(FrameState)
}

type Option func(*Renderer)

// WithContext bounds background fetches. Destroy cancels it.
func WithContext(ctx context.Context) Option {
	return func(r *Renderer) { r.ctx = ctx }
}

func WithFetcher(f shaderspec.Fetcher) Option {
	return func(r *Renderer) { r.fetcher = f }
}

func WithTextureLoader(l uniforms.TextureLoader) Option {
	return func(r *Renderer) { r.loader = l }
}

// WithRandom sets the generator behind random uniforms.
func WithRandom(g *random.Generator) Option {
	return func(r *Renderer) { r.rng = g }
}

func WithPartition(cfg PartitionConfig) Option {
	return func(r *Renderer) { r.partCfg = cfg }
}

// WithSpecOverride edits the spec after it is loaded, before it is
// validated. Used for command line overrides.
func WithSpecOverride(fn func(*shaderspec.Spec)) Option {
	return func(r *Renderer) { r.overrides = append(r.overrides, fn) }
}

// New returns a renderer in the Loading state.
func New(dev graphics.Device, surf graphics.Surface, sched Scheduler, opts ...Option) *Renderer {
	r := &Renderer{
		dev:        dev,
		surf:       surf,
		sched:      sched,
		ctx:        context.Background(),
		cancelTick: func() {},
		onError:    func(err error) { panic(err) },
	}
	for _, o := range opts {
		o(r)
	}
	r.ctx, r.cancel = context.WithCancel(r.ctx)
	if r.fetcher == nil {
		r.fetcher = resource.NewFetcher(false)
	}
	if r.loader == nil {
		var f *resource.Fetcher
		if rf, ok := r.fetcher.(*resource.Fetcher); ok {
			f = rf
		} else {
			f = resource.NewFetcher(false)
		}
		r.loader = resource.NewTextureLoader(r.ctx, f, dev, sched)
	}
	if r.rng == nil {
		r.rng = random.NewUnseeded()
	}
	return r
}

// OnError registers the sink for the session's fatal error. It replaces the
// default sink, which panics.
func (r *Renderer) OnError(fn func(error)) {
	r.onError = fn
}

// OnRefresh registers fn to receive every frame shown on the surface.
func (r *Renderer) OnRefresh(fn func(*image.RGBA)) {
	r.onRefresh = append(r.onRefresh, fn)
}

// OnFrame registers fn to run after every completed logical frame.
func (r *Renderer) OnFrame(fn func(FrameState)) {
	r.onFrame = append(r.onFrame, fn)
}

func (r *Renderer) State() State           { return r.state }
func (r *Renderer) Frame() FrameState      { return r.frame }
func (r *Renderer) Spec() *shaderspec.Spec { return r.spec }

// Err returns the fatal error of a Failed session.
func (r *Renderer) Err() error { return r.err }

// Partitioner is nil until the session is ready.
func (r *Renderer) Partitioner() *Partitioner { return r.part }

// Load starts the session described by req. Configuration and load failures
// are reported to the error sink.
func (r *Renderer) Load(req shaderspec.Request) error {
	if r.destroyed {
		return glslbench.ErrStopped
	}
	if r.state != Loading || r.spec != nil {
		return fmt.Errorf("%w: session already loaded", ErrIllegalTransition)
	}
	if err := req.Validate(); err != nil {
		r.fail(err)
		return nil
	}
	if req.Spec != nil {
		r.begin(req.Spec)
		return nil
	}
	go func() {
		spec, err := shaderspec.Load(r.ctx, r.fetcher, req)
		r.sched.Post(func() {
			if r.destroyed {
				return
			}
			if err != nil {
				r.fail(err)
				return
			}
			r.begin(spec)
		})
	}()
	return nil
}

func (r *Renderer) begin(spec *shaderspec.Spec) {
	for _, fn := range r.overrides {
		fn(spec)
	}
	if err := spec.Normalize(); err != nil {
		r.fail(err)
		return
	}
	r.spec = spec
	r.part = NewPartitioner(r.partCfg, spec.Divisions.Auto, spec.Divisions.N, spec.RefreshEvery, spec.BatchSize)

	ready := newLatch(r.onReady, r.fail)
	resolver, err := uniforms.NewResolver(spec.ResolvedUniforms(), uniforms.Env{
		Device:  r.dev,
		Frame:   frameView{r},
		Loader:  r.loader,
		Barrier: ready,
		Random:  r.rng,
		Now:     r.sched.Now,
	})
	if err != nil {
		r.fail(err)
		return
	}
	r.resolver = resolver

	if spec.Source != "" {
		r.source = spec.Source
	} else {
		ready.Add(1)
		go func() {
			src, err := shaderspec.LoadSource(r.ctx, r.fetcher, spec)
			r.sched.Post(func() {
				if err == nil {
					r.source = src
				}
				ready.Done(err)
			})
		}()
	}
	ready.arm()
}

func (r *Renderer) onReady() {
	if r.destroyed || r.state == Failed {
		return
	}
	if err := r.transition(Ready); err != nil {
		r.fail(err)
		return
	}
	programs, err := CompilePrograms(r.dev, r.source)
	if err != nil {
		r.fail(err)
		return
	}
	r.programs = programs
	log.Printf("Compiled shader programs")

	if res := r.spec.Resolution; !res.Auto {
		r.surf.SetSize(res.Width, res.Height)
	}
	if _, err := r.checkResize(); err != nil {
		r.fail(err)
		return
	}

	if r.stopRequested {
		r.transition(Stopped)
		return
	}
	if err := r.start(); err != nil {
		r.fail(err)
	}
}

func (r *Renderer) start() error {
	if err := r.transition(Running); err != nil {
		return err
	}
	r.division = 0
	if r.spec.MonteCarlo {
		log.Printf("Render loop started in accumulation mode (batch %d, divisions %d)", r.part.BatchSize(), r.part.Divisions())
		r.cancelTick = r.sched.AfterFunc(0, r.accumulationTick)
	} else {
		log.Printf("Render loop started in capped mode")
		r.cancelTick = r.sched.RequestFrame(r.cappedTick)
	}
	return nil
}

func (r *Renderer) cappedTick() {
	if r.state != Running {
		return
	}
	r.cancelTick = r.sched.RequestFrame(r.cappedTick)
	drawable, err := r.checkResize()
	if err == nil && drawable {
		err = r.render(0, 1)
	}
	if err != nil {
		r.fail(&glslbench.RuntimeRenderError{Frame: r.frame.Number, Err: err})
	}
}

func (r *Renderer) accumulationTick() {
	if r.state != Running {
		return
	}
	batch := r.part.BatchSize()
	began := r.sched.Now()
	rendered := 0
	for i := 0; i < batch; i++ {
		// a resize restarts the logical frame at its first division
		drawable, err := r.checkResize()
		if err != nil {
			r.fail(&glslbench.RuntimeRenderError{Frame: r.frame.Number, Err: err})
			return
		}
		if !drawable {
			break
		}
		if r.division == 0 {
			r.divisions = r.part.Divisions()
		}
		if err := r.render(r.division, r.divisions); err != nil {
			r.fail(&glslbench.RuntimeRenderError{Frame: r.frame.Number, Err: err})
			return
		}
		rendered++
		r.division = (r.division + 1) % r.divisions
		if r.state != Running {
			return
		}
	}
	if rendered > 0 {
		r.part.Observe(r.sched.Now().Sub(began) / time.Duration(rendered))
	}

	if gap := r.part.FrameGap(); gap > time.Millisecond {
		r.cancelTick = r.sched.AfterFunc(gap, func() {
			if r.state == Running {
				r.cancelTick = r.sched.RequestFrame(r.accumulationTick)
			}
		})
	} else {
		r.cancelTick = r.sched.AfterFunc(gap, r.accumulationTick)
	}
}

// render runs one division of a logical frame sized by the last
// checkResize. Panics raised by a pass are returned as errors.
func (r *Renderer) render(division, divisions int) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in render pass: %v", p)
		}
	}()
	first, last := division == 0, division == divisions-1

	if first {
		if r.bound, err = r.resolver.Update(); err != nil {
			return err
		}
	}

	w, h := r.frame.Width, r.frame.Height
	pass := graphics.Pass{
		Program:  r.programs.Main,
		Viewport: graphics.Rect{W: w, H: h},
		Uniforms: r.bound,
	}

	if !r.spec.Offscreen() {
		if err := r.dev.Draw(pass); err != nil {
			return err
		}
		if last {
			if err := r.present(); err != nil {
				return err
			}
		}
	} else {
		target := r.targets.Write(r.frame.Number)
		pass.Target = target
		if divisions > 1 {
			rowsBegin := int(float64(division) / float64(divisions) * float64(h))
			rowsEnd := int(float64(division+1) / float64(divisions) * float64(h))
			pass.Scissor = &graphics.Rect{Y: rowsBegin, W: w, H: rowsEnd - rowsBegin}
		}
		if err := r.dev.Draw(pass); err != nil {
			return err
		}
		// a pending capture shows this frame regardless of the cadence
		if last && (r.frame.Number%uint64(r.part.RefreshEvery()) == 0 || len(r.captures) > 0) {
			if err := r.postProcess(target); err != nil {
				return err
			}
			if err := r.present(); err != nil {
				return err
			}
		}
	}

	if last {
		r.frame.complete(r.input.takeMotion())
		for _, fn := range r.onFrame {
			fn(r.frame)
		}
	}
	return nil
}

func (r *Renderer) postProcess(target graphics.RenderTarget) error {
	w, h := r.frame.Width, r.frame.Height
	prog, extra := r.programs.PostProcessor(r.spec.Gamma)
	u := graphics.Uniforms{
		"source":     graphics.Sampler{Texture: target.Texture()},
		"resolution": graphics.Vec{float32(w), float32(h)},
	}
	for k, v := range extra {
		u[k] = v
	}
	return r.dev.Draw(graphics.Pass{Program: prog, Viewport: graphics.Rect{W: w, H: h}, Uniforms: u})
}

// present shows the surface, handing the frame to pending captures and
// refresh sinks first.
func (r *Renderer) present() error {
	if len(r.captures) > 0 || len(r.onRefresh) > 0 {
		img, err := r.dev.ReadPixels(r.frame.Width, r.frame.Height)
		if err != nil {
			return fmt.Errorf("failed to read back frame: %w", err)
		}
		for _, fn := range r.onRefresh {
			fn(img)
		}
		if len(r.captures) > 0 {
			uri, err := snapshot.DataURI(img)
			captures := r.captures
			r.captures = nil
			for _, cb := range captures {
				cb(uri, err)
			}
			if r.captureStop {
				r.captureStop = false
				if r.state == Running {
					r.stopScheduling()
					r.transition(Stopped)
				}
			}
		}
	}
	r.surf.Present()
	return nil
}

// checkResize follows the surface's drawable size. A change reallocates the
// frame targets and restarts frame counting at division 0. It reports false
// while the surface has no pixels, as for a minimized window; the targets
// are kept until a real size returns.
func (r *Renderer) checkResize() (bool, error) {
	w, h := r.surf.DrawableSize()
	if w <= 0 || h <= 0 {
		return false, nil
	}
	if w == r.frame.Width && h == r.frame.Height && (r.targets != nil || !r.spec.Offscreen()) {
		return true, nil
	}
	if r.spec.Offscreen() {
		if r.targets == nil {
			targets, err := framebuffer.Allocate(r.dev, w, h)
			if err != nil {
				return false, err
			}
			r.targets = targets
		} else if err := r.targets.Resize(w, h); err != nil {
			return false, err
		}
	}
	r.frame.reset(w, h)
	r.division = 0
	return true, nil
}

// Stop cancels every scheduled render. Stopping a session that is still
// loading keeps it stopped once it becomes ready.
func (r *Renderer) Stop() error {
	switch r.state {
	case Loading, Ready:
		r.stopRequested = true
		return nil
	case Failed:
		return nil
	}
	if err := r.transition(Stopped); err != nil {
		return err
	}
	r.stopScheduling()
	return nil
}

func (r *Renderer) stopScheduling() {
	r.cancelTick()
	r.cancelTick = func() {}
}

// Resume restarts a stopped session.
func (r *Renderer) Resume() error {
	if r.destroyed {
		return glslbench.ErrStopped
	}
	switch r.state {
	case Loading, Ready:
		r.stopRequested = false
		return nil
	case Failed:
		return r.err
	}
	return r.start()
}

// Destroy stops the session and releases every GPU resource and the
// surface.
func (r *Renderer) Destroy() {
	if r.destroyed {
		return
	}
	if r.state == Running {
		r.Stop()
	}
	r.stopScheduling()
	r.stopRequested = true
	r.destroyed = true
	r.cancel()
	for _, cb := range r.captures {
		cb("", glslbench.ErrStopped)
	}
	r.captures = nil
	if r.resolver != nil {
		r.resolver.Release()
	}
	if r.programs != nil {
		r.programs.Release(r.dev)
	}
	if r.targets != nil {
		r.targets.Destroy()
		r.targets = nil
	}
	r.surf.Destroy()
}

// CaptureImage calls cb once with the next frame shown on the surface, as
// a PNG data URI. A stopped session renders until that frame and stops
// again.
func (r *Renderer) CaptureImage(cb func(dataURI string, err error)) {
	switch {
	case r.destroyed:
		cb("", glslbench.ErrStopped)
		return
	case r.state == Failed:
		cb("", r.err)
		return
	}
	r.captures = append(r.captures, cb)
	if r.state == Stopped {
		r.captureStop = true
		if err := r.start(); err != nil {
			r.fail(err)
		}
	}
}

// PointerMoved records the pointer position in surface pixels.
func (r *Renderer) PointerMoved(x, y float64) {
	r.input.Mouse[0], r.input.Mouse[1] = float32(x), float32(y)
	if w, h := r.surf.DrawableSize(); w > 0 && h > 0 {
		r.input.Relative[0], r.input.Relative[1] = float32(x/float64(w)), float32(y/float64(h))
	}
	r.input.moved = true
}

// SetResolution resizes the surface. The frame targets follow at the top of
// the next pass.
func (r *Renderer) SetResolution(width, height int) {
	r.surf.SetSize(width, height)
}

// ReadAccumulation returns the float contents of the target written by the
// last completed frame.
func (r *Renderer) ReadAccumulation() (width, height int, rgba []float32, err error) {
	if r.targets == nil {
		return 0, 0, nil, errors.New("session has no frame targets")
	}
	rt := r.targets.Read(r.frame.Number)
	width, height = rt.Size()
	rgba, err = r.dev.ReadTarget(rt)
	return width, height, rgba, err
}

func (r *Renderer) fail(err error) {
	if r.state == Failed {
		return
	}
	r.stopScheduling()
	r.state = Failed
	r.err = err
	log.Printf("Shader session failed: %v", err)
	captures := r.captures
	r.captures = nil
	for _, cb := range captures {
		cb("", err)
	}
	r.onError(err)
}
