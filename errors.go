// Package glslbench drives a single user supplied fragment shader against a
// full-screen quad, with optional float feedback buffers and progressive
// accumulation. The root package holds the error kinds shared by every
// stage of a session.
package glslbench

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStopped is returned by operations that need a live session.
var ErrStopped = errors.New("glslbench: session destroyed")

// ConfigurationError reports a malformed shader spec.
type ConfigurationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Field != "" {
		fmt.Fprintf(&b, " in %q", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Configf builds a ConfigurationError for field.
func Configf(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// SourceLine is one line of shader source shown next to a diagnostic.
type SourceLine struct {
	Number int // 1-indexed
	Text   string
}

// CompileError is a shader compile or link failure. Line is zero when the
// diagnostic carried no recognizable line marker; Context then is empty and
// Diagnostic holds the backend text unmodified.
type CompileError struct {
	Stage      string
	Diagnostic string
	Line       int
	Context    []SourceLine
}

func (e *CompileError) Error() string {
	if e.Line == 0 {
		return "Shader error: " + e.Diagnostic
	}
	var b strings.Builder
	b.WriteString(e.Diagnostic)
	for _, l := range e.Context {
		fmt.Fprintf(&b, "\n%d: %s", l.Number, l.Text)
	}
	return b.String()
}

// ResourceLoadError reports a failed fetch of a spec, shader source or
// texture.
type ResourceLoadError struct {
	Path string
	Err  error
}

func (e *ResourceLoadError) Error() string {
	return fmt.Sprintf("failed to load %q: %v", e.Path, e.Err)
}

func (e *ResourceLoadError) Unwrap() error { return e.Err }

// RuntimeRenderError wraps anything that went wrong inside a render pass.
type RuntimeRenderError struct {
	Frame uint64
	Err   error
}

func (e *RuntimeRenderError) Error() string {
	return fmt.Sprintf("render pass failed on frame %d: %v", e.Frame, e.Err)
}

func (e *RuntimeRenderError) Unwrap() error { return e.Err }
