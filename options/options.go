// Package options holds the command line settings of a glslbench run.
package options

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/richinsley/glslbench/shaderspec"
)

type Options struct {
	Spec *string
	Help *bool

	Width  *int // window size when the spec resolution is auto
	Height *int
	Hidden *bool

	// Spec overrides; zero values leave the spec alone.
	RefreshEvery *int
	BatchSize    *int
	Divisions    *string
	Seed         *int64

	MaxSamples *int
	PNGFile    *string
	EXRFile    *string
	Capture    *bool

	RecordFile *string
	FPS        *int
	Codec      *string
	FFMPEGPath *string
	NoCache    *bool
}

// NewFlagSet binds every option to a new flag set.
func NewFlagSet(name string, output io.Writer) (*flag.FlagSet, *Options) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	o := &Options{
		Spec: fs.String("spec", "", "Shader spec file or URL (JSON or YAML)"),
		Help: fs.Bool("help", false, "Show help message"),

		Width:  fs.Int("width", 800, "Window width when the spec resolution is auto"),
		Height: fs.Int("height", 600, "Window height when the spec resolution is auto"),
		Hidden: fs.Bool("hidden", false, "Render without showing the window (needs -max-samples)"),

		RefreshEvery: fs.Int("refresh", 0, "Override refresh_every"),
		BatchSize:    fs.Int("batch", 0, "Override batch_size"),
		Divisions:    fs.String("divisions", "", "Override divisions (a number or auto)"),
		Seed:         fs.Int64("seed", 0, "Seed for random uniforms (0 picks one)"),

		MaxSamples: fs.Int("max-samples", 0, "Stop after this many frames and write outputs"),
		PNGFile:    fs.String("png", "", "Write the last shown frame to this PNG file"),
		EXRFile:    fs.String("exr", "", "Write the float accumulation target to this EXR file"),
		Capture:    fs.Bool("capture", false, "Print the first shown frame as a data URI"),

		RecordFile: fs.String("record", "", "Record shown frames to this video file"),
		FPS:        fs.Int("fps", 60, "Frames per second of the recording"),
		Codec:      fs.String("codec", "h264", "Recording codec (h264 or hevc)"),
		FFMPEGPath: fs.String("ffmpeg", "", "Path to ffmpeg executable"),
		NoCache:    fs.Bool("no-cache", false, "Do not cache remote resources on disk"),
	}
	return fs, o
}

// Validate checks option combinations that flag parsing cannot.
func (o *Options) Validate() error {
	if *o.Spec == "" {
		return fmt.Errorf("missing -spec")
	}
	if *o.Width <= 0 || *o.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", *o.Width, *o.Height)
	}
	if *o.RefreshEvery < 0 || *o.BatchSize < 0 || *o.MaxSamples < 0 {
		return fmt.Errorf("-refresh, -batch and -max-samples must not be negative")
	}
	if *o.EXRFile != "" && *o.MaxSamples == 0 {
		return fmt.Errorf("-exr needs -max-samples")
	}
	if *o.Hidden && *o.MaxSamples == 0 {
		return fmt.Errorf("-hidden needs -max-samples")
	}
	if _, err := o.divisions(); err != nil {
		return err
	}
	return nil
}

func (o *Options) divisions() (*shaderspec.Divisions, error) {
	s := strings.TrimSpace(*o.Divisions)
	switch {
	case s == "":
		return nil, nil
	case strings.EqualFold(s, "auto"):
		return &shaderspec.Divisions{Auto: true}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("invalid -divisions %q", s)
	}
	return &shaderspec.Divisions{N: n}, nil
}

// Apply writes the overrides into a loaded spec.
func (o *Options) Apply(s *shaderspec.Spec) {
	if *o.RefreshEvery > 0 {
		s.RefreshEvery = *o.RefreshEvery
	}
	if *o.BatchSize > 0 {
		s.BatchSize = *o.BatchSize
	}
	if d, err := o.divisions(); err == nil && d != nil {
		s.Divisions = *d
	}
}
