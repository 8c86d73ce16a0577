// Package shaderspec decodes shader spec documents.
package shaderspec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/richinsley/glslbench"
	"github.com/richinsley/glslbench/resource"
	"github.com/richinsley/glslbench/uniforms"
	"gopkg.in/yaml.v3"
)

// Spec describes one shader session.
type Spec struct {
	Source       string            `json:"source,omitempty" yaml:"source,omitempty"`
	SourcePath   string            `json:"source_path,omitempty" yaml:"source_path,omitempty"`
	Resolution   Resolution        `json:"resolution" yaml:"resolution"`
	MonteCarlo   bool              `json:"monte_carlo" yaml:"monte_carlo"`
	FloatBuffers bool              `json:"float_buffers" yaml:"float_buffers"`
	RefreshEvery int               `json:"refresh_every" yaml:"refresh_every"`
	BatchSize    int               `json:"batch_size" yaml:"batch_size"`
	Gamma        Gamma             `json:"gamma" yaml:"gamma"`
	Divisions    Divisions         `json:"divisions" yaml:"divisions"`
	Uniforms     uniforms.Mappings `json:"uniforms" yaml:"uniforms"`

	// BaseDir is the directory, or URL prefix, relative paths resolve against.
	BaseDir string `json:"-" yaml:"-"`
}

// Offscreen reports whether frames are drawn into the target pair.
func (s *Spec) Offscreen() bool { return s.MonteCarlo || s.FloatBuffers }

// Path resolves a path taken from the document.
func (s *Spec) Path(rel string) string { return resource.Resolve(s.BaseDir, rel) }

// ResolvedUniforms returns the uniform mappings with texture files resolved
// against BaseDir.
func (s *Spec) ResolvedUniforms() uniforms.Mappings {
	out := make(uniforms.Mappings, len(s.Uniforms))
	for name, m := range s.Uniforms {
		if tex, ok := m.(uniforms.Texture); ok {
			tex.File = s.Path(tex.File)
			m = tex
		}
		out[name] = m
	}
	return out
}

// Resolution is a fixed drawable size, or Auto to follow the surface.
type Resolution struct {
	Auto          bool
	Width, Height int
}

func (r *Resolution) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return r.set(v)
}

func (r *Resolution) UnmarshalYAML(value *yaml.Node) error {
	var v any
	if err := value.Decode(&v); err != nil {
		return err
	}
	return r.set(v)
}

func (r *Resolution) set(v any) error {
	switch val := v.(type) {
	case nil:
		*r = Resolution{Auto: true}
		return nil
	case string:
		if strings.EqualFold(val, "auto") {
			*r = Resolution{Auto: true}
			return nil
		}
	case []any:
		if len(val) == 2 {
			w, okw := integer(val[0])
			h, okh := integer(val[1])
			if okw && okh && w > 0 && h > 0 {
				*r = Resolution{Width: w, Height: h}
				return nil
			}
		}
	}
	return glslbench.Configf("resolution", "invalid resolution %v", v)
}

// Gamma selects the post pass: 1 copies, SRGB encodes, anything else is an
// exponent.
type Gamma struct {
	Value float32
	SRGB  bool
	set   bool
}

// GammaValue returns a numeric gamma.
func GammaValue(g float32) Gamma { return Gamma{Value: g, set: true} }

// GammaSRGB is the sRGB transfer function.
var GammaSRGB = Gamma{SRGB: true, set: true}

func (g *Gamma) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return g.parse(v)
}

func (g *Gamma) UnmarshalYAML(value *yaml.Node) error {
	var v any
	if err := value.Decode(&v); err != nil {
		return err
	}
	return g.parse(v)
}

func (g *Gamma) parse(v any) error {
	switch val := v.(type) {
	case nil:
		*g = Gamma{}
		return nil
	case string:
		if strings.EqualFold(val, "srgb") {
			*g = GammaSRGB
			return nil
		}
		var f float64
		if _, err := fmt.Sscan(val, &f); err == nil && f > 0 {
			*g = GammaValue(float32(f))
			return nil
		}
	case float64:
		// zero leaves the default
		if val == 0 {
			*g = Gamma{}
			return nil
		}
		if val > 0 {
			*g = GammaValue(float32(val))
			return nil
		}
	case int:
		if val == 0 {
			*g = Gamma{}
			return nil
		}
		if val > 0 {
			*g = GammaValue(float32(val))
			return nil
		}
	}
	return glslbench.Configf("gamma", "invalid gamma %v", v)
}

// IsIdentity reports whether the post pass is a plain copy.
func (g Gamma) IsIdentity() bool { return !g.SRGB && g.Value == 1 }

func (g Gamma) String() string {
	if g.SRGB {
		return "SRGB"
	}
	return fmt.Sprint(g.Value)
}

// Divisions is a fixed number of row bands per logical frame, or Auto for
// the adaptive partitioner.
type Divisions struct {
	Auto bool
	N    int
}

func (d *Divisions) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.parse(v)
}

func (d *Divisions) UnmarshalYAML(value *yaml.Node) error {
	var v any
	if err := value.Decode(&v); err != nil {
		return err
	}
	return d.parse(v)
}

func (d *Divisions) parse(v any) error {
	if s, ok := v.(string); ok && strings.EqualFold(s, "auto") {
		*d = Divisions{Auto: true}
		return nil
	}
	if v == nil {
		*d = Divisions{}
		return nil
	}
	if n, ok := integer(v); ok && n >= 1 {
		*d = Divisions{N: n}
		return nil
	}
	return glslbench.Configf("divisions", "invalid divisions %v", v)
}

func integer(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// Parse decodes a JSON or YAML document. name selects the format by
// extension and sets BaseDir; documents without a known extension are
// sniffed.
func Parse(data []byte, name string) (*Spec, error) {
	s := &Spec{Resolution: Resolution{Auto: true}}
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, s)
	case ".json":
		err = json.Unmarshal(data, s)
	default:
		if t := bytes.TrimSpace(data); len(t) > 0 && t[0] == '{' {
			err = json.Unmarshal(data, s)
		} else {
			err = yaml.Unmarshal(data, s)
		}
	}
	if err != nil {
		var cfg *glslbench.ConfigurationError
		if errors.As(err, &cfg) {
			return nil, cfg
		}
		return nil, &glslbench.ConfigurationError{Msg: "invalid shader spec " + name, Err: err}
	}
	s.BaseDir = resource.Dir(name)
	return s, s.Normalize()
}

// Normalize fills defaults and validates the spec.
func (s *Spec) Normalize() error {
	if s.Source == "" && s.SourcePath == "" {
		return glslbench.Configf("source", "No shader source code defined")
	}
	if s.RefreshEvery < 0 {
		return glslbench.Configf("refresh_every", "must be positive, got %d", s.RefreshEvery)
	}
	if s.RefreshEvery == 0 {
		s.RefreshEvery = 1
	}
	if s.BatchSize < 0 {
		return glslbench.Configf("batch_size", "must be positive, got %d", s.BatchSize)
	}
	if s.BatchSize == 0 {
		s.BatchSize = 1
	}
	if !s.Gamma.set {
		s.Gamma = GammaValue(1)
	}
	if !s.Divisions.Auto && s.Divisions.N == 0 {
		s.Divisions.N = 1
	}
	if !s.Resolution.Auto && (s.Resolution.Width <= 0 || s.Resolution.Height <= 0) {
		s.Resolution = Resolution{Auto: true}
	}
	return nil
}
