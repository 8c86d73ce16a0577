package encoder

import (
	"errors"
	"image"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

type captureRun struct {
	args  []string
	bytes []byte
	err   error
}

func (c *captureRun) run(cmd *ffmpeg.Stream, input io.Reader) error {
	c.args = cmd.GetArgs()
	data, err := io.ReadAll(input)
	if err != nil {
		return err
	}
	c.bytes = data
	return c.err
}

func TestRecorderWritesRawFrames(t *testing.T) {
	c := &captureRun{}
	r, err := newRecorder(Config{OutputFile: "out.mp4", Width: 2, Height: 2, FPS: 30}, c.run)
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}
	r.WriteFrame(img)
	r.WriteFrame(image.NewRGBA(image.Rect(0, 0, 3, 2)))
	r.WriteFrame(img)
	require.NoError(t, r.Close())

	written, dropped := r.Frames()
	assert.Equal(t, 2, written)
	assert.Equal(t, 1, dropped)
	assert.Len(t, c.bytes, 2*2*2*4)
	assert.Equal(t, img.Pix, c.bytes[:16])

	args := strings.Join(c.args, " ")
	assert.Contains(t, args, "rawvideo")
	assert.Contains(t, args, "rgba")
	assert.Contains(t, args, "2x2")
	assert.Contains(t, args, "libx264")
	assert.Contains(t, args, "out.mp4")
}

func TestRecorderSubImageStride(t *testing.T) {
	c := &captureRun{}
	r, err := newRecorder(Config{OutputFile: "out.mp4", Width: 1, Height: 2}, c.run)
	require.NoError(t, err)

	big := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for i := range big.Pix {
		big.Pix[i] = byte(i)
	}
	sub := big.SubImage(image.Rect(0, 0, 1, 2)).(*image.RGBA)
	r.WriteFrame(sub)
	require.NoError(t, r.Close())
	assert.Equal(t, []byte{0, 1, 2, 3, 12, 13, 14, 15}, c.bytes)
}

func TestRecorderReportsFFmpegFailure(t *testing.T) {
	c := &captureRun{err: errors.New("exit status 1")}
	r, err := newRecorder(Config{OutputFile: "out.mp4", Width: 1, Height: 1}, c.run)
	require.NoError(t, err)
	err = r.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg failed")
	assert.NoError(t, r.Close())
}

func TestRecorderConfigErrors(t *testing.T) {
	_, err := NewRecorder(Config{Width: 1, Height: 1})
	assert.Error(t, err)
	_, err = NewRecorder(Config{OutputFile: "x.mp4"})
	assert.Error(t, err)
}

func TestGetArgsHEVC(t *testing.T) {
	_, out := getArgs(Config{OutputFile: "a.mp4", Codec: "hevc", Width: 1, Height: 1, FPS: 1})
	assert.Equal(t, "libx265", out["c:v"])
	assert.Equal(t, "hvc1", out["tag:v"])
}
