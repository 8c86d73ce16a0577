package resource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "shader.glsl")
	require.NoError(t, os.WriteFile(p, []byte("void main() {}"), 0644))

	data, err := NewFetcher(false).Fetch(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "void main() {}", string(data))

	_, err = NewFetcher(false).Fetch(context.Background(), filepath.Join(dir, "missing.glsl"))
	assert.Error(t, err)
}

func TestFetchHTTP(t *testing.T) {
	var hits atomic.Int32
	var agent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		agent.Store(r.Header.Get("User-Agent"))
		if r.URL.Path == "/missing.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"source": "void main() {}"}`))
	}))
	defer srv.Close()

	f := NewFetcher(true)
	f.CacheDir = t.TempDir()

	data, err := f.Fetch(context.Background(), srv.URL+"/spec.json")
	require.NoError(t, err)
	assert.Equal(t, `{"source": "void main() {}"}`, string(data))
	assert.Equal(t, userAgent, agent.Load())

	_, err = f.Fetch(context.Background(), srv.URL+"/spec.json")
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load(), "second fetch is served from the cache")

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status code: 404")
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "https://example.com/shaders/", Dir("https://example.com/shaders/spec.json?x=1"))
	assert.Equal(t, "https://example.com/", Dir("https://example.com/spec.json"))
	assert.Equal(t, filepath.Join("a", "b"), Dir(filepath.Join("a", "b", "spec.json")))

	assert.Equal(t, "https://example.com/shaders/tex/a.png", Resolve("https://example.com/shaders/", "tex/a.png"))
	assert.Equal(t, "https://cdn.example.com/a.png", Resolve("https://example.com/shaders/", "https://cdn.example.com/a.png"))
	assert.Equal(t, filepath.Join("a", "b", "c.glsl"), Resolve(filepath.Join("a", "b"), "c.glsl"))
	assert.Equal(t, "c.glsl", Resolve("", "c.glsl"))
}
