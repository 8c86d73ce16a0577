// Package encoder records refreshed frames to a video file through an
// ffmpeg child process fed raw RGBA over a pipe.
package encoder

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"runtime"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const numBuffers = 3 // frames queued between the render loop and ffmpeg

// Config describes one recording.
type Config struct {
	OutputFile string
	Width      int
	Height     int
	FPS        int
	// Codec is "h264" or "hevc".
	Codec string
	// HardwareAccel selects NVENC on Linux and VideoToolbox on macOS.
	HardwareAccel bool
	FFMPEGPath    string
}

// runFunc runs the ffmpeg command reading frames from input.
type runFunc func(cmd *ffmpeg.Stream, input io.Reader) error

func runFFmpeg(cmd *ffmpeg.Stream, input io.Reader) error {
	return cmd.WithInput(input).ErrorToStdOut().Run()
}

// Recorder is the consumer side of a frame channel.
type Recorder struct {
	cfg     Config
	frames  chan []byte
	done    chan error
	closed  bool
	written int
	dropped int
}

// NewRecorder starts ffmpeg and returns a recorder accepting frames of
// exactly cfg.Width x cfg.Height.
func NewRecorder(cfg Config) (*Recorder, error) {
	return newRecorder(cfg, runFFmpeg)
}

func newRecorder(cfg Config, run runFunc) (*Recorder, error) {
	if cfg.OutputFile == "" {
		return nil, errors.New("missing output file")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid recording size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}

	inputArgs, outputArgs := getArgs(cfg)
	cmd := ffmpeg.Input("pipe:", inputArgs).
		Output(cfg.OutputFile, outputArgs).
		OverWriteOutput()
	if cfg.FFMPEGPath != "" {
		cmd = cmd.SetFfmpegPath(cfg.FFMPEGPath)
	}

	r := &Recorder{
		cfg:    cfg,
		frames: make(chan []byte, numBuffers),
		done:   make(chan error, 1),
	}
	pipeReader, pipeWriter := io.Pipe()

	errc := make(chan error, 1)
	go func() {
		err := run(cmd, pipeReader)
		// unblock the writer if ffmpeg exits early
		pipeReader.CloseWithError(io.ErrClosedPipe)
		errc <- err
	}()

	go func() {
		var writeErr error
		for frame := range r.frames {
			if writeErr != nil {
				continue
			}
			if _, err := pipeWriter.Write(frame); err != nil {
				log.Printf("Error writing frame to ffmpeg: %v", err)
				writeErr = err
			}
		}
		pipeWriter.Close()
		runErr := <-errc
		if runErr != nil {
			r.done <- fmt.Errorf("ffmpeg failed: %w", runErr)
			return
		}
		r.done <- writeErr
	}()

	log.Printf("Recording %dx%d at %d fps to %s", cfg.Width, cfg.Height, cfg.FPS, cfg.OutputFile)
	return r, nil
}

func getArgs(cfg Config) (inputArgs ffmpeg.KwArgs, outputArgs ffmpeg.KwArgs) {
	inputArgs = ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"framerate": cfg.FPS,
	}

	outputArgs = ffmpeg.KwArgs{"pix_fmt": "yuv420p"}
	hevc := cfg.Codec == "hevc"
	goos := ""
	if cfg.HardwareAccel {
		goos = runtime.GOOS
	}
	switch goos {
	case "linux":
		if hevc {
			outputArgs["c:v"] = "hevc_nvenc"
		} else {
			outputArgs["c:v"] = "h264_nvenc"
		}
		outputArgs["preset"] = "p2"
	case "darwin":
		if hevc {
			outputArgs["c:v"] = "hevc_videotoolbox"
		} else {
			outputArgs["c:v"] = "h264_videotoolbox"
		}
	default:
		if hevc {
			outputArgs["c:v"] = "libx265"
		} else {
			outputArgs["c:v"] = "libx264"
		}
	}
	if hevc && strings.HasSuffix(cfg.OutputFile, ".mp4") {
		outputArgs["tag:v"] = "hvc1"
	}
	return
}

// WriteFrame queues one top-down frame. Frames of the wrong size are
// dropped; the recording keeps its initial size.
func (r *Recorder) WriteFrame(img *image.RGBA) {
	if r.closed {
		return
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w != r.cfg.Width || h != r.cfg.Height {
		r.dropped++
		log.Printf("Dropping %dx%d frame from %dx%d recording", w, h, r.cfg.Width, r.cfg.Height)
		return
	}
	pixels := make([]byte, 0, w*h*4)
	for y := 0; y < h; y++ {
		off := y * img.Stride
		pixels = append(pixels, img.Pix[off:off+w*4]...)
	}
	r.frames <- pixels
	r.written++
}

// Frames returns the number of frames written and dropped.
func (r *Recorder) Frames() (written, dropped int) {
	return r.written, r.dropped
}

// Close flushes queued frames and waits for ffmpeg to exit.
func (r *Recorder) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	close(r.frames)
	err := <-r.done
	if err == nil {
		log.Printf("Successfully recorded %d frames to %s", r.written, r.cfg.OutputFile)
	}
	return err
}
