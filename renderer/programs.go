package renderer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/richinsley/glslbench"
	"github.com/richinsley/glslbench/graphics"
	"github.com/richinsley/glslbench/shader"
	"github.com/richinsley/glslbench/shaderspec"
)

var errorLine = regexp.MustCompile(`\**\s*ERROR:\s*\d+:(\d+)`)

// ParseDiagnostic turns a compiler diagnostic into a CompileError. When the
// diagnostic names a line, the error carries that line of source and one
// line on either side.
func ParseDiagnostic(stage, diagnostic, source string) *glslbench.CompileError {
	ce := &glslbench.CompileError{Stage: stage, Diagnostic: diagnostic}
	m := errorLine.FindStringSubmatch(diagnostic)
	if m == nil {
		return ce
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return ce
	}
	ce.Line = n
	lines := strings.Split(source, "\n")
	for j := n - 2; j <= n; j++ {
		if j >= 0 && j < len(lines) {
			ce.Context = append(ce.Context, glslbench.SourceLine{Number: j + 1, Text: lines[j]})
		}
	}
	return ce
}

// CompileProgram composes fragment with the precision preamble and builds
// it against the quad vertex shader.
func CompileProgram(dev graphics.Device, fragment string) (graphics.Program, error) {
	full := shader.Fragment(fragment)
	p, err := dev.CompileProgram(shader.Vertex, full)
	if err == nil {
		return p, nil
	}
	var be *graphics.BuildError
	if !errors.As(err, &be) {
		return nil, &glslbench.CompileError{Stage: "fragment", Diagnostic: err.Error()}
	}
	src := full
	if be.Stage == "vertex" {
		src = shader.Vertex
	}
	return nil, ParseDiagnostic(be.Stage, be.Log, src)
}

// Programs is the main program and the three post-processors.
type Programs struct {
	Main  graphics.Program
	Copy  graphics.Program
	Gamma graphics.Program
	SRGB  graphics.Program
}

// CompilePrograms builds every program of a session.
func CompilePrograms(dev graphics.Device, source string) (*Programs, error) {
	ps := &Programs{}
	var err error
	if ps.Main, err = CompileProgram(dev, source); err != nil {
		return nil, err
	}
	post := []struct {
		dst  *graphics.Program
		name string
		src  string
	}{
		{&ps.Copy, "copy", shader.Copy},
		{&ps.Gamma, "gamma", shader.Gamma},
		{&ps.SRGB, "sRGB", shader.SRGB},
	}
	for _, p := range post {
		if *p.dst, err = CompileProgram(dev, p.src); err != nil {
			ps.Release(dev)
			return nil, fmt.Errorf("failed to build %s program: %w", p.name, err)
		}
	}
	return ps, nil
}

// PostProcessor selects the post pass for gamma and its extra uniforms.
func (ps *Programs) PostProcessor(g shaderspec.Gamma) (graphics.Program, graphics.Uniforms) {
	switch {
	case g.SRGB:
		return ps.SRGB, nil
	case g.IsIdentity():
		return ps.Copy, nil
	}
	return ps.Gamma, graphics.Uniforms{"gamma": graphics.Float(g.Value)}
}

func (ps *Programs) Release(dev graphics.Device) {
	for _, p := range []graphics.Program{ps.Main, ps.Copy, ps.Gamma, ps.SRGB} {
		if p != nil {
			dev.DeleteProgram(p)
		}
	}
	*ps = Programs{}
}
