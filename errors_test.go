package glslbench

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileErrorWithContext(t *testing.T) {
	err := &CompileError{
		Stage:      "fragment",
		Diagnostic: "ERROR: 0:2: 'foo' : undeclared identifier",
		Line:       2,
		Context: []SourceLine{
			{Number: 1, Text: "void main() {"},
			{Number: 2, Text: "  foo;"},
			{Number: 3, Text: "}"},
		},
	}
	assert.Equal(t, "ERROR: 0:2: 'foo' : undeclared identifier\n1: void main() {\n2:   foo;\n3: }", err.Error())
}

func TestCompileErrorUnstructured(t *testing.T) {
	err := &CompileError{Diagnostic: "link failed"}
	assert.Equal(t, "Shader error: link failed", err.Error())
}

func TestErrorsUnwrap(t *testing.T) {
	load := &ResourceLoadError{Path: "a.png", Err: io.ErrUnexpectedEOF}
	assert.True(t, errors.Is(load, io.ErrUnexpectedEOF))

	render := &RuntimeRenderError{Frame: 3, Err: load}
	var target *ResourceLoadError
	assert.True(t, errors.As(render, &target))
	assert.Equal(t, "a.png", target.Path)

	cfg := Configf("uniforms.x", "invalid uniform mapping %s", "bogus")
	assert.Equal(t, `configuration error in "uniforms.x": invalid uniform mapping bogus`, cfg.Error())
}
