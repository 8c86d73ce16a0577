package shaderspec

import (
	"context"
	"fmt"

	"github.com/richinsley/glslbench"
)

// Fetcher reads a resource by path or URL.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Request names the spec of a session: a document URL or path, or an inline
// spec. Exactly one must be set.
type Request struct {
	URL  string
	Spec *Spec
}

// Validate checks that exactly one of URL and Spec is set.
func (r Request) Validate() error {
	switch {
	case r.URL != "" && r.Spec != nil:
		return glslbench.Configf("request", "can't have both url and spec")
	case r.URL == "" && r.Spec == nil:
		return glslbench.Configf("request", "missing shader spec")
	}
	return nil
}

// Load returns the spec named by r, fetching and parsing the document when
// r carries a URL. Inline specs are normalized in place.
func Load(ctx context.Context, f Fetcher, r Request) (*Spec, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.Spec != nil {
		return r.Spec, r.Spec.Normalize()
	}
	data, err := f.Fetch(ctx, r.URL)
	if err != nil {
		return nil, &glslbench.ResourceLoadError{Path: r.URL, Err: err}
	}
	return Parse(data, r.URL)
}

// LoadSource returns the shader source of s, fetching source_path when no
// inline source is given.
func LoadSource(ctx context.Context, f Fetcher, s *Spec) (string, error) {
	if s.Source != "" {
		return s.Source, nil
	}
	p := s.Path(s.SourcePath)
	data, err := f.Fetch(ctx, p)
	if err != nil {
		return "", &glslbench.ResourceLoadError{Path: p, Err: err}
	}
	if len(data) == 0 {
		return "", &glslbench.ResourceLoadError{Path: p, Err: fmt.Errorf("empty shader source")}
	}
	return string(data), nil
}
