package main

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"runtime"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/richinsley/glslbench/encoder"
	"github.com/richinsley/glslbench/eventloop"
	"github.com/richinsley/glslbench/glbackend"
	"github.com/richinsley/glslbench/glfwcontext"
	"github.com/richinsley/glslbench/options"
	"github.com/richinsley/glslbench/random"
	"github.com/richinsley/glslbench/renderer"
	"github.com/richinsley/glslbench/resource"
	"github.com/richinsley/glslbench/shaderspec"
	"github.com/richinsley/glslbench/snapshot"
)

func init() {
	runtime.LockOSThread()
}

// outputs collects what a run writes when the window closes.
type outputs struct {
	opts     *options.Options
	recorder *encoder.Recorder
	last     *image.RGBA
	failed   bool
}

func (o *outputs) refresh(img *image.RGBA) {
	if *o.opts.PNGFile != "" {
		o.last = img
	}
	if *o.opts.RecordFile == "" || o.failed {
		return
	}
	if o.recorder == nil {
		w, h := img.Rect.Dx(), img.Rect.Dy()
		rec, err := encoder.NewRecorder(encoder.Config{
			OutputFile: *o.opts.RecordFile,
			Width:      w,
			Height:     h,
			FPS:        *o.opts.FPS,
			Codec:      *o.opts.Codec,
			FFMPEGPath: *o.opts.FFMPEGPath,
		})
		if err != nil {
			log.Printf("Failed to start recording: %v", err)
			o.failed = true
			return
		}
		o.recorder = rec
	}
	o.recorder.WriteFrame(img)
}

func (o *outputs) close() error {
	if o.recorder != nil {
		if err := o.recorder.Close(); err != nil {
			return fmt.Errorf("recording failed: %w", err)
		}
	}
	if *o.opts.PNGFile != "" && o.last != nil {
		if err := snapshot.WritePNG(*o.opts.PNGFile, o.last); err != nil {
			return err
		}
		log.Printf("Wrote %s", *o.opts.PNGFile)
	}
	return nil
}

func run(opts *options.Options) error {
	if err := glfwcontext.InitGraphics(); err != nil {
		return fmt.Errorf("failed to initialize graphics: %w", err)
	}
	defer glfwcontext.TerminateGraphics()

	win, err := glfwcontext.New(glfwcontext.Config{
		Width:     *opts.Width,
		Height:    *opts.Height,
		Resizable: true,
		Visible:   !*opts.Hidden,
	})
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	dev, err := glbackend.New()
	if err != nil {
		win.Destroy()
		return err
	}

	loop := eventloop.New(eventloop.WithWake(glfwcontext.Wake))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rendererOpts := []renderer.Option{
		renderer.WithContext(ctx),
		renderer.WithFetcher(resource.NewFetcher(!*opts.NoCache)),
		renderer.WithSpecOverride(opts.Apply),
	}
	if *opts.Seed != 0 {
		rendererOpts = append(rendererOpts, renderer.WithRandom(random.New(uint64(*opts.Seed))))
	}
	r := renderer.New(dev, win, loop, rendererOpts...)
	// Destroy takes the window and its context with it
	defer r.Destroy()
	defer dev.Release()

	var sessionErr error
	r.OnError(func(err error) {
		sessionErr = err
		win.Close()
	})

	out := &outputs{opts: opts}
	if *opts.PNGFile != "" || *opts.RecordFile != "" {
		r.OnRefresh(out.refresh)
	}

	fixedChecked := false
	r.OnFrame(func(f renderer.FrameState) {
		if !fixedChecked {
			fixedChecked = true
			if !r.Spec().Resolution.Auto {
				win.SetResizable(false)
			}
		}
		if limit := *opts.MaxSamples; limit > 0 && f.Number >= uint64(limit) {
			log.Printf("Reached %d samples", f.Number)
			r.Stop()
			win.Close()
		}
	})

	win.OnCursor(r.PointerMoved)
	win.OnResize(func(w, h int) {
		log.Printf("Framebuffer resized to %dx%d", w, h)
	})
	win.RegisterKeyCallback(glfw.KeySpace, func() {
		if r.State() == renderer.Running {
			r.Stop()
		} else {
			r.Resume()
		}
	})

	log.Printf("Loading shader spec %s", *opts.Spec)
	if err := r.Load(shaderspec.Request{URL: *opts.Spec}); err != nil {
		return err
	}
	if *opts.Capture {
		r.CaptureImage(func(uri string, err error) {
			if err != nil {
				log.Printf("Capture failed: %v", err)
				return
			}
			fmt.Println(uri)
		})
	}

	win.Run(loop)

	if sessionErr != nil {
		return sessionErr
	}
	if *opts.EXRFile != "" {
		w, h, rgba, err := r.ReadAccumulation()
		if err != nil {
			return fmt.Errorf("failed to read accumulation: %w", err)
		}
		if err := snapshot.WriteEXR(*opts.EXRFile, w, h, rgba); err != nil {
			return err
		}
		log.Printf("Wrote %s", *opts.EXRFile)
	}
	return out.close()
}

func main() {
	fs, opts := options.NewFlagSet("glslbench", os.Stderr)
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if *opts.Help {
		fmt.Println("glslbench: run a WebGL fragment shader described by a shader spec")
		fs.PrintDefaults()
		return
	}
	if err := opts.Validate(); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	if err := run(opts); err != nil {
		log.Fatalf("glslbench failed: %v", err)
	}
}
