// Package uniforms decodes the uniform section of a shader spec and binds
// every entry to a value, once or per frame.
package uniforms

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/richinsley/glslbench"
	"github.com/richinsley/glslbench/graphics"
	"github.com/richinsley/glslbench/random"
	"gopkg.in/yaml.v3"
)

// Mapping is one of Fixed, Dynamic, Random, Texture or TextureArray.
type Mapping interface {
	mapping()
}

// Fixed is a constant scalar (Scalar set) or vector.
type Fixed struct {
	Value  []float32
	Scalar bool
}

// Source names a per-frame quantity.
type Source string

const (
	Time                   Source = "time"
	Resolution             Source = "resolution"
	Mouse                  Source = "mouse"
	RelativeMouse          Source = "relative_mouse"
	FrameNumber            Source = "frame_number"
	FrameNumberSinceMotion Source = "frame_number_since_motion"
	PreviousFrame          Source = "previous_frame"
)

// Dynamic is recomputed from the render state on every update.
type Dynamic struct {
	Source Source
}

// Random is re-sampled on every update. Size is 1 to 4.
type Random struct {
	Distribution random.Distribution
	Size         int
}

// Texture is an image loaded once, asynchronously.
type Texture struct {
	File    string
	Options graphics.TextureOptions
}

// TextureArray is a 1xN RGBA float texture. Either Data is fixed, or
// Random describes Size texels regenerated on every update.
type TextureArray struct {
	Data   []float32
	Random *Random
}

func (Fixed) mapping()        {}
func (Dynamic) mapping()      {}
func (Random) mapping()       {}
func (Texture) mapping()      {}
func (TextureArray) mapping() {}

// Mappings is the uniforms section of a spec.
type Mappings map[string]Mapping

// Names returns the uniform names in sorted order.
func (m Mappings) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (m *Mappings) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	return m.decode(raw)
}

func (m *Mappings) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return m.decode(raw)
}

func (m *Mappings) decode(raw map[string]any) error {
	out := make(Mappings, len(raw))
	for name, v := range raw {
		mp, err := Decode(name, v)
		if err != nil {
			return err
		}
		out[name] = mp
	}
	*m = out
	return nil
}

// Decode turns a generic JSON or YAML value into a Mapping. Every malformed
// value is a *glslbench.ConfigurationError.
func Decode(name string, v any) (Mapping, error) {
	field := "uniforms." + name
	switch val := v.(type) {
	case string:
		return decodeString(field, val)
	case map[string]any:
		return decodeObject(field, val)
	case []any:
		vec, err := flatten(field, val)
		if err != nil {
			return nil, err
		}
		if len(vec) == 0 || len(vec) > 16 {
			return nil, glslbench.Configf(field, "invalid uniform vector of length %d", len(vec))
		}
		return Fixed{Value: vec}, nil
	case bool:
		f := float32(0)
		if val {
			f = 1
		}
		return Fixed{Value: []float32{f}, Scalar: true}, nil
	}
	f, ok := number(v)
	if !ok {
		return nil, glslbench.Configf(field, "invalid uniform %v", v)
	}
	return Fixed{Value: []float32{f}, Scalar: true}, nil
}

func decodeString(field, s string) (Mapping, error) {
	switch src := Source(s); src {
	case Time, Resolution, Mouse, RelativeMouse, FrameNumber, FrameNumberSinceMotion, PreviousFrame:
		return Dynamic{Source: src}, nil
	}
	if strings.HasPrefix(s, "random_") {
		return parseRandom(field, s)
	}
	return nil, glslbench.Configf(field, "invalid uniform mapping %s", s)
}

// parseRandom parses random_<distribution>[_<size>].
func parseRandom(field, s string) (Random, error) {
	parts := strings.Split(s, "_")
	if len(parts) > 3 {
		return Random{}, glslbench.Configf(field, "invalid random %s", s)
	}
	dist, err := random.ParseDistribution(parts[1])
	if err != nil {
		return Random{}, &glslbench.ConfigurationError{Field: field, Msg: "invalid random " + s, Err: err}
	}
	size := 1
	if len(parts) == 3 {
		size, err = strconv.Atoi(parts[2])
		if err != nil || size < 1 || size > 4 {
			return Random{}, glslbench.Configf(field, "invalid random %s", s)
		}
	}
	return Random{Distribution: dist, Size: size}, nil
}

func decodeObject(field string, obj map[string]any) (Mapping, error) {
	if file, ok := obj["file"]; ok {
		path, ok := file.(string)
		if !ok || path == "" {
			return nil, glslbench.Configf(field, "texture file must be a non-empty string")
		}
		opts := graphics.TextureOptions{Filter: graphics.FilterNearest, Wrap: graphics.WrapClamp}
		if f, ok := obj["filter"]; ok {
			switch fs, _ := f.(string); graphics.Filter(fs) {
			case graphics.FilterNearest, graphics.FilterLinear, graphics.FilterMipmap:
				opts.Filter = graphics.Filter(fs)
			default:
				return nil, glslbench.Configf(field, "invalid texture filter %v", f)
			}
		}
		if w, ok := obj["wrap"]; ok {
			switch ws, _ := w.(string); graphics.Wrap(ws) {
			case graphics.WrapClamp, graphics.WrapRepeat:
				opts.Wrap = graphics.Wrap(ws)
			default:
				return nil, glslbench.Configf(field, "invalid texture wrap %v", w)
			}
		}
		return Texture{File: path, Options: opts}, nil
	}

	if data, ok := obj["data"]; ok {
		arr, ok := data.([]any)
		if !ok {
			return nil, glslbench.Configf(field, "texture data must be an array")
		}
		flat, err := flatten(field, arr)
		if err != nil {
			return nil, err
		}
		if len(flat) == 0 || len(flat)%4 != 0 {
			return nil, glslbench.Configf(field, "texture data length %d is not a positive multiple of 4", len(flat))
		}
		return TextureArray{Data: flat}, nil
	}

	if rs, ok := obj["random"]; ok {
		spec, ok := rs.(map[string]any)
		if !ok {
			return nil, glslbench.Configf(field, "invalid random texture %v", rs)
		}
		name, _ := spec["distribution"].(string)
		dist, err := random.ParseDistribution(name)
		if err != nil {
			return nil, &glslbench.ConfigurationError{Field: field, Msg: "invalid random texture", Err: err}
		}
		size, ok := number(spec["size"])
		if !ok || size < 1 || size != float32(int(size)) {
			return nil, glslbench.Configf(field, "invalid random texture size %v", spec["size"])
		}
		return TextureArray{Random: &Random{Distribution: dist, Size: int(size)}}, nil
	}

	b, _ := json.Marshal(obj)
	return nil, glslbench.Configf(field, "invalid uniform %s", b)
}

// flatten concatenates nested numeric arrays depth first.
func flatten(field string, arr []any) ([]float32, error) {
	var out []float32
	for _, e := range arr {
		if sub, ok := e.([]any); ok {
			f, err := flatten(field, sub)
			if err != nil {
				return nil, err
			}
			out = append(out, f...)
			continue
		}
		f, ok := number(e)
		if !ok {
			return nil, glslbench.Configf(field, "non-numeric array element %v", e)
		}
		out = append(out, f)
	}
	return out, nil
}

func number(v any) (float32, bool) {
	switch n := v.(type) {
	case float64:
		return float32(n), true
	case float32:
		return n, true
	case int:
		return float32(n), true
	case int64:
		return float32(n), true
	case uint64:
		return float32(n), true
	case json.Number:
		f, err := n.Float64()
		return float32(f), err == nil
	}
	return 0, false
}

