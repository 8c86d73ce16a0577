package uniforms

import (
	"fmt"
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/glslbench"
	"github.com/richinsley/glslbench/graphics"
	"github.com/richinsley/glslbench/random"
)

// FrameView is the read-only render state dynamic uniforms are computed from.
type FrameView interface {
	FrameNumber() uint64
	FrameNumberSinceMotion() uint64
	Resolution() (int, int)
	Mouse() mgl32.Vec2
	RelativeMouse() mgl32.Vec2
	// PreviousFrame is the read side of the frame target pair, or nil when
	// the session draws straight to the surface.
	PreviousFrame() graphics.Texture
}

// TextureLoader loads images asynchronously. done is called exactly once,
// on the goroutine that owns the device.
type TextureLoader interface {
	Load(path string, opts graphics.TextureOptions, done func(graphics.Texture, error))
}

// Barrier counts pending loads.
type Barrier interface {
	Add(n int)
	Done(err error)
}

// Env holds the collaborators of a Resolver.
type Env struct {
	Device  graphics.Device
	Frame   FrameView
	Loader  TextureLoader
	Barrier Barrier
	Random  *random.Generator
	Now     func() time.Time
}

type updater struct {
	name   string
	update func() (graphics.Value, error)
}

// Resolver holds the bound value of every uniform.
type Resolver struct {
	env      Env
	start    time.Time
	values   graphics.Uniforms
	updaters []updater
	owned    []graphics.Texture
	released bool
}

// NewResolver binds mappings. Fixed values and data textures are bound
// immediately; texture loads are started and registered with env.Barrier.
func NewResolver(mappings Mappings, env Env) (*Resolver, error) {
	if env.Now == nil {
		env.Now = time.Now
	}
	if env.Random == nil {
		env.Random = random.NewUnseeded()
	}
	r := &Resolver{
		env:    env,
		start:  env.Now(),
		values: make(graphics.Uniforms, len(mappings)),
	}
	for _, name := range mappings.Names() {
		if err := r.bind(name, mappings[name]); err != nil {
			r.Release()
			return nil, err
		}
	}
	return r, nil
}

func (r *Resolver) bind(name string, m Mapping) error {
	switch m := m.(type) {
	case Fixed:
		if m.Scalar {
			r.values[name] = graphics.Float(m.Value[0])
		} else {
			r.values[name] = graphics.Vec(append([]float32(nil), m.Value...))
		}
	case Dynamic:
		fn, err := r.dynamic(name, m.Source)
		if err != nil {
			return err
		}
		r.updaters = append(r.updaters, updater{name, fn})
	case Random:
		if err := validRandom(name, m); err != nil {
			return err
		}
		r.updaters = append(r.updaters, updater{name, r.randomValue(m)})
	case Texture:
		r.loadTexture(name, m)
	case TextureArray:
		return r.bindTextureArray(name, m)
	default:
		return glslbench.Configf("uniforms."+name, "unsupported uniform mapping %T", m)
	}
	return nil
}

func (r *Resolver) dynamic(name string, src Source) (func() (graphics.Value, error), error) {
	f := r.env.Frame
	switch src {
	case Time:
		return func() (graphics.Value, error) {
			return graphics.Float(float32(r.env.Now().Sub(r.start).Milliseconds()) / 1000), nil
		}, nil
	case Resolution:
		return func() (graphics.Value, error) {
			w, h := f.Resolution()
			return graphics.Vec{float32(w), float32(h)}, nil
		}, nil
	case Mouse:
		return func() (graphics.Value, error) { return graphics.Vec2(f.Mouse()), nil }, nil
	case RelativeMouse:
		return func() (graphics.Value, error) { return graphics.Vec2(f.RelativeMouse()), nil }, nil
	case FrameNumber:
		return func() (graphics.Value, error) { return graphics.Float(f.FrameNumber()), nil }, nil
	case FrameNumberSinceMotion:
		return func() (graphics.Value, error) { return graphics.Float(f.FrameNumberSinceMotion()), nil }, nil
	case PreviousFrame:
		return func() (graphics.Value, error) {
			tex := f.PreviousFrame()
			if tex == nil {
				return nil, nil
			}
			return graphics.Sampler{Texture: tex}, nil
		}, nil
	}
	return nil, glslbench.Configf("uniforms."+name, "invalid uniform mapping %s", src)
}

func validRandom(name string, m Random) error {
	if _, err := random.ParseDistribution(string(m.Distribution)); err != nil {
		return &glslbench.ConfigurationError{Field: "uniforms." + name, Msg: "invalid random uniform", Err: err}
	}
	if m.Size < 1 || m.Size > 4 {
		return glslbench.Configf("uniforms."+name, "invalid random size %d", m.Size)
	}
	return nil
}

func (r *Resolver) randomValue(m Random) func() (graphics.Value, error) {
	buf := make([]float32, m.Size)
	return func() (graphics.Value, error) {
		if err := r.env.Random.Fill(m.Distribution, buf); err != nil {
			return nil, err
		}
		if m.Size == 1 {
			return graphics.Float(buf[0]), nil
		}
		return graphics.Vec(append([]float32(nil), buf...)), nil
	}
}

func (r *Resolver) loadTexture(name string, m Texture) {
	r.env.Barrier.Add(1)
	r.env.Loader.Load(m.File, m.Options, func(tex graphics.Texture, err error) {
		if err != nil {
			r.env.Barrier.Done(&glslbench.ResourceLoadError{Path: m.File, Err: err})
			return
		}
		if r.released {
			r.env.Device.DeleteTexture(tex)
			r.env.Barrier.Done(nil)
			return
		}
		w, h := tex.Size()
		log.Printf("Loaded texture %s (%dx%d) for uniform %s", m.File, w, h, name)
		r.owned = append(r.owned, tex)
		r.values[name] = graphics.Sampler{Texture: tex}
		r.env.Barrier.Done(nil)
	})
}

func (r *Resolver) bindTextureArray(name string, m TextureArray) error {
	if m.Random == nil {
		tex, err := r.env.Device.NewDataTexture(len(m.Data)/4, 1, m.Data)
		if err != nil {
			return fmt.Errorf("failed to create data texture for %s: %w", name, err)
		}
		r.owned = append(r.owned, tex)
		r.values[name] = graphics.Sampler{Texture: tex}
		return nil
	}

	spec := *m.Random
	if spec.Size < 1 {
		return glslbench.Configf("uniforms."+name, "invalid random texture size %d", spec.Size)
	}
	buf := make([]float32, spec.Size*4)
	if err := r.env.Random.Fill(spec.Distribution, buf); err != nil {
		return err
	}
	tex, err := r.env.Device.NewDataTexture(spec.Size, 1, buf)
	if err != nil {
		return fmt.Errorf("failed to create random texture for %s: %w", name, err)
	}
	r.owned = append(r.owned, tex)
	r.values[name] = graphics.Sampler{Texture: tex}
	r.updaters = append(r.updaters, updater{name, func() (graphics.Value, error) {
		if err := r.env.Random.Fill(spec.Distribution, buf); err != nil {
			return nil, err
		}
		if err := r.env.Device.UpdateDataTexture(tex, spec.Size, 1, buf); err != nil {
			return nil, err
		}
		return graphics.Sampler{Texture: tex}, nil
	}})
	return nil
}

// Update recomputes every per-frame binding and returns the full value set.
// Texture uniforms whose load has not completed are absent.
func (r *Resolver) Update() (graphics.Uniforms, error) {
	for _, u := range r.updaters {
		v, err := u.update()
		if err != nil {
			return nil, fmt.Errorf("uniform %s: %w", u.name, err)
		}
		if v == nil {
			delete(r.values, u.name)
			continue
		}
		r.values[u.name] = v
	}
	return r.values, nil
}

// Values returns the value set of the last Update.
func (r *Resolver) Values() graphics.Uniforms { return r.values }

// Release deletes every texture the resolver created. Loads completing
// afterwards are discarded.
func (r *Resolver) Release() {
	if r.released {
		return
	}
	r.released = true
	for _, tex := range r.owned {
		r.env.Device.DeleteTexture(tex)
	}
	r.owned = nil
}
