// Package translator turns WebGL GLSL ES sources into desktop GLSL through
// the ANGLE based goshadertranslator.
package translator

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
)

// Stage names accepted by Translate.
const (
	Vertex   = "vertex"
	Fragment = "fragment"
)

var (
	once       sync.Once
	translator *gst.ShaderTranslator
	initErr    error
)

// GetTranslator returns the process wide translator, creating it on first use.
func GetTranslator() (*gst.ShaderTranslator, error) {
	once.Do(func() {
		translator, initErr = gst.NewShaderTranslator(context.Background())
		if initErr != nil {
			initErr = fmt.Errorf("failed to create shader translator: %w", initErr)
		}
	})
	return translator, initErr
}

// Result is a translated source. Names maps every original uniform,
// attribute and varying name to the name used in Code.
type Result struct {
	Code  string
	Names map[string]string
}

// Translate translates an ESSL 3.00 source for stage into GLSL 4.10.
// The returned error carries the translator's info log.
func Translate(source, stage string) (*Result, error) {
	t, err := GetTranslator()
	if err != nil {
		return nil, err
	}
	out, err := t.TranslateShader(source, stage, gst.ShaderSpecWebGL2, gst.OutputFormatGLSL410)
	if err != nil {
		return nil, err
	}
	r := &Result{Code: out.Code, Names: make(map[string]string, len(out.Variables))}
	for name, v := range out.Variables {
		r.Names[name] = v.MappedName
	}
	return r, nil
}

// Original reverses Names: it returns the source name of mapped.
func (r *Result) Original(mapped string) (string, bool) {
	for name, m := range r.Names {
		if m == mapped {
			return name, true
		}
	}
	return "", false
}
