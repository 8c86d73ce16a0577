// Package glbackend implements graphics.Device on an OpenGL 4.1 core
// context. Sources are WebGL2 GLSL and go through the translator before
// reaching the driver.
package glbackend

import (
	"fmt"
	"image"
	"image/draw"
	"log"
	"strings"
	"sync"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/glslbench/graphics"
	"github.com/richinsley/glslbench/translator"
)

var glInitOnce sync.Once

// full-screen quad, two triangles of vec3 positions
var quadVertices = []float32{
	-1, -1, 0, 1, -1, 0, -1, 1, 0,
	-1, 1, 0, 1, -1, 0, 1, 1, 0,
}

type uniformSlot struct {
	location int32
	xtype    uint32
	size     int32
}

type program struct {
	id       uint32
	uniforms map[string]uniformSlot
}

type texture struct {
	id     uint32
	width  int
	height int
}

func (t *texture) Size() (int, int) { return t.width, t.height }

type target struct {
	fbo   uint32
	color *texture
}

func (t *target) Texture() graphics.Texture { return t.color }
func (t *target) Size() (int, int)          { return t.color.width, t.color.height }

// Device draws through the context current on the calling thread.
type Device struct {
	quadVAO uint32
	quadVBO uint32
}

// New initializes the GL bindings and the quad geometry. The context must
// be current.
func New() (*Device, error) {
	var initErr error
	glInitOnce.Do(func() {
		initErr = gl.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", initErr)
	}
	log.Printf("OpenGL version %s", gl.GoStr(gl.GetString(gl.VERSION)))

	d := &Device{}
	gl.GenVertexArrays(1, &d.quadVAO)
	gl.GenBuffers(1, &d.quadVBO)
	gl.BindVertexArray(d.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, gl.PtrOffset(0))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	return d, nil
}

// Release deletes the quad geometry.
func (d *Device) Release() {
	gl.DeleteBuffers(1, &d.quadVBO)
	gl.DeleteVertexArrays(1, &d.quadVAO)
}

func (d *Device) CompileProgram(vertex, fragment string) (graphics.Program, error) {
	vs, err := translator.Translate(vertex, translator.Vertex)
	if err != nil {
		return nil, &graphics.BuildError{Stage: translator.Vertex, Log: err.Error()}
	}
	fs, err := translator.Translate(fragment, translator.Fragment)
	if err != nil {
		return nil, &graphics.BuildError{Stage: translator.Fragment, Log: err.Error()}
	}

	vertexShader, err := compileShader(vs.Code, gl.VERTEX_SHADER)
	if err != nil {
		return nil, &graphics.BuildError{Stage: translator.Vertex, Log: err.Error()}
	}
	defer gl.DeleteShader(vertexShader)
	fragmentShader, err := compileShader(fs.Code, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, &graphics.BuildError{Stage: translator.Fragment, Log: err.Error()}
	}
	defer gl.DeleteShader(fragmentShader)

	id := gl.CreateProgram()
	gl.AttachShader(id, vertexShader)
	gl.AttachShader(id, fragmentShader)
	position := "position"
	if mapped, ok := vs.Names[position]; ok {
		position = mapped
	}
	gl.BindAttribLocation(id, 0, gl.Str(position+"\x00"))
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(logText))
		gl.DeleteProgram(id)
		return nil, &graphics.BuildError{Stage: "link", Log: strings.TrimRight(logText, "\x00")}
	}

	return &program{id: id, uniforms: reflectUniforms(id, fs, vs)}, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s", strings.TrimRight(logText, "\x00"))
	}
	return shader, nil
}

// reflectUniforms lists the program's active uniforms under their source
// names.
func reflectUniforms(id uint32, results ...*translator.Result) map[string]uniformSlot {
	var count, maxLength int32
	gl.GetProgramiv(id, gl.ACTIVE_UNIFORMS, &count)
	gl.GetProgramiv(id, gl.ACTIVE_UNIFORM_MAX_LENGTH, &maxLength)

	slots := make(map[string]uniformSlot, count)
	buf := make([]uint8, maxLength+1)
	for i := int32(0); i < count; i++ {
		var length, size int32
		var xtype uint32
		gl.GetActiveUniform(id, uint32(i), maxLength+1, &length, &size, &xtype, &buf[0])
		mapped := string(buf[:length])
		location := gl.GetUniformLocation(id, gl.Str(mapped+"\x00"))
		mapped = strings.TrimSuffix(mapped, "[0]")

		name := mapped
		for _, r := range results {
			if original, ok := r.Original(mapped); ok {
				name = original
				break
			}
		}
		slots[name] = uniformSlot{location: location, xtype: xtype, size: size}
	}
	return slots
}

func (d *Device) DeleteProgram(p graphics.Program) {
	if prog, ok := p.(*program); ok && prog != nil {
		gl.DeleteProgram(prog.id)
	}
}

func (d *Device) NewRenderTarget(width, height int) (graphics.RenderTarget, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid render target size %dx%d", width, height)
	}
	t := &target{color: &texture{width: width, height: height}}
	gl.GenTextures(1, &t.color.id)
	gl.BindTexture(gl.TEXTURE_2D, t.color.id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.color.id, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		d.DeleteRenderTarget(t)
		return nil, fmt.Errorf("float framebuffer %dx%d is not complete (0x%x)", width, height, status)
	}
	return t, nil
}

func (d *Device) DeleteRenderTarget(rt graphics.RenderTarget) {
	t, ok := rt.(*target)
	if !ok || t == nil {
		return
	}
	gl.DeleteFramebuffers(1, &t.fbo)
	gl.DeleteTextures(1, &t.color.id)
}

func (d *Device) NewImageTexture(img image.Image, opts graphics.TextureOptions) (graphics.Texture, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	// GL rows run bottom-up
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	rgba = graphics.FlipVertical(rgba)

	t := &texture{width: b.Dx(), height: b.Dy()}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrapMode(opts.Wrap))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrapMode(opts.Wrap))
	minFilter, magFilter := filterMode(opts.Filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, magFilter)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(t.width), int32(t.height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba.Pix))
	if opts.Filter == graphics.FilterMipmap {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return t, nil
}

func (d *Device) NewDataTexture(width, height int, rgba []float32) (graphics.Texture, error) {
	t := &texture{}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if err := d.UpdateDataTexture(t, width, height, rgba); err != nil {
		gl.DeleteTextures(1, &t.id)
		return nil, err
	}
	return t, nil
}

func (d *Device) UpdateDataTexture(tex graphics.Texture, width, height int, rgba []float32) error {
	t, ok := tex.(*texture)
	if !ok {
		return fmt.Errorf("texture %T was not created by this device", tex)
	}
	if len(rgba) != width*height*4 {
		return fmt.Errorf("data texture %dx%d needs %d floats, got %d", width, height, width*height*4, len(rgba))
	}
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, gl.Ptr(rgba))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	t.width, t.height = width, height
	return nil
}

func (d *Device) DeleteTexture(tex graphics.Texture) {
	if t, ok := tex.(*texture); ok && t != nil {
		gl.DeleteTextures(1, &t.id)
	}
}

func (d *Device) Draw(pass graphics.Pass) error {
	prog, ok := pass.Program.(*program)
	if !ok || prog == nil {
		return fmt.Errorf("program %T was not created by this device", pass.Program)
	}

	var fbo uint32
	if pass.Target != nil {
		t, ok := pass.Target.(*target)
		if !ok {
			return fmt.Errorf("render target %T was not created by this device", pass.Target)
		}
		fbo = t.fbo
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	v := pass.Viewport
	gl.Viewport(int32(v.X), int32(v.Y), int32(v.W), int32(v.H))
	if s := pass.Scissor; s != nil {
		gl.Enable(gl.SCISSOR_TEST)
		gl.Scissor(int32(s.X), int32(s.Y), int32(s.W), int32(s.H))
	} else {
		gl.Disable(gl.SCISSOR_TEST)
	}

	gl.UseProgram(prog.id)
	units, err := prog.apply(pass.Uniforms)
	if err == nil {
		gl.BindVertexArray(d.quadVAO)
		gl.DrawArrays(gl.TRIANGLES, 0, 6)
		gl.BindVertexArray(0)
	}

	for i := 0; i < units; i++ {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, 0)
	}
	gl.ActiveTexture(gl.TEXTURE0)
	gl.Disable(gl.SCISSOR_TEST)
	gl.UseProgram(0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return err
}

// apply sets every active uniform that has a value and returns the number
// of texture units bound.
func (p *program) apply(values graphics.Uniforms) (int, error) {
	units := 0
	for name, value := range values {
		slot, ok := p.uniforms[name]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case graphics.Float:
			switch slot.xtype {
			case gl.INT, gl.BOOL, gl.UNSIGNED_INT:
				gl.Uniform1i(slot.location, int32(v))
			default:
				gl.Uniform1f(slot.location, float32(v))
			}
		case graphics.Vec:
			if len(v) == 0 {
				continue
			}
			if err := setVec(slot, v); err != nil {
				return units, fmt.Errorf("uniform %s: %w", name, err)
			}
		case graphics.Sampler:
			t, ok := v.Texture.(*texture)
			if !ok || t == nil {
				return units, fmt.Errorf("uniform %s: texture %T was not created by this device", name, v.Texture)
			}
			gl.ActiveTexture(gl.TEXTURE0 + uint32(units))
			gl.BindTexture(gl.TEXTURE_2D, t.id)
			gl.Uniform1i(slot.location, int32(units))
			units++
		}
	}
	return units, nil
}

func setVec(slot uniformSlot, v graphics.Vec) error {
	// count is clamped to the declared array size
	count := func(width int) int32 {
		return min(int32(len(v)/width), slot.size)
	}
	switch slot.xtype {
	case gl.FLOAT:
		gl.Uniform1fv(slot.location, count(1), &v[0])
	case gl.FLOAT_VEC2:
		gl.Uniform2fv(slot.location, count(2), &v[0])
	case gl.FLOAT_VEC3:
		gl.Uniform3fv(slot.location, count(3), &v[0])
	case gl.FLOAT_VEC4:
		gl.Uniform4fv(slot.location, count(4), &v[0])
	case gl.FLOAT_MAT4:
		gl.UniformMatrix4fv(slot.location, count(16), false, &v[0])
	default:
		return fmt.Errorf("cannot set float values on uniform type 0x%x", slot.xtype)
	}
	return nil
}

func (d *Device) ReadPixels(width, height int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.ReadBuffer(gl.BACK)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	if e := gl.GetError(); e != gl.NO_ERROR {
		return nil, fmt.Errorf("glReadPixels failed: 0x%x", e)
	}
	return graphics.FlipVertical(img), nil
}

func (d *Device) ReadTarget(rt graphics.RenderTarget) ([]float32, error) {
	t, ok := rt.(*target)
	if !ok || t == nil {
		return nil, fmt.Errorf("render target %T was not created by this device", rt)
	}
	w, h := t.Size()
	out := make([]float32, w*h*4)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.FLOAT, gl.Ptr(out))
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if e := gl.GetError(); e != gl.NO_ERROR {
		return nil, fmt.Errorf("glReadPixels failed: 0x%x", e)
	}
	return out, nil
}

func (d *Device) Finish() {
	gl.Finish()
}

func wrapMode(wrap graphics.Wrap) int32 {
	switch wrap {
	case graphics.WrapClamp:
		return gl.CLAMP_TO_EDGE
	default:
		return gl.REPEAT
	}
}

func filterMode(filter graphics.Filter) (minFilter, magFilter int32) {
	switch filter {
	case graphics.FilterMipmap:
		return gl.LINEAR_MIPMAP_LINEAR, gl.LINEAR
	case graphics.FilterNearest:
		return gl.NEAREST, gl.NEAREST
	default:
		return gl.LINEAR, gl.LINEAR
	}
}
