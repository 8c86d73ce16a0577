// Package resource fetches spec documents, shader sources and textures from
// the local filesystem or over http(s).
package resource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

const userAgent = "glslbench"

type headerTransport struct {
	Transport http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	return t.Transport.RoundTrip(req)
}

var httpClient = &http.Client{
	Transport: &headerTransport{Transport: http.DefaultTransport},
}

// Fetcher reads resources. Remote resources are cached on disk when
// UseCache is set.
type Fetcher struct {
	Client   *http.Client
	UseCache bool
	// CacheDir overrides the per-OS cache directory.
	CacheDir string
}

// NewFetcher returns a fetcher using the shared http client.
func NewFetcher(useCache bool) *Fetcher {
	return &Fetcher{Client: httpClient, UseCache: useCache}
}

// IsURL reports whether p is an http or https URL.
func IsURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// Fetch returns the contents of p, a URL or a file path.
func (f *Fetcher) Fetch(ctx context.Context, p string) ([]byte, error) {
	if !IsURL(p) {
		return os.ReadFile(p)
	}

	var cachePath string
	if f.UseCache {
		dir, err := f.cacheDir()
		if err != nil {
			log.Printf("Warning: resource cache disabled: %v", err)
		} else {
			sum := sha256.Sum256([]byte(p))
			cachePath = filepath.Join(dir, hex.EncodeToString(sum[:12])+path.Ext(p))
			if data, err := os.ReadFile(cachePath); err == nil {
				return data, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = httpClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", p, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("failed to load %s, status code: %d", p, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}

	if cachePath != "" {
		if err := os.WriteFile(cachePath, data, 0644); err != nil {
			log.Printf("Warning: failed to save %s to cache at %s: %v", p, cachePath, err)
		}
	}
	return data, nil
}

func (f *Fetcher) cacheDir() (string, error) {
	if f.CacheDir != "" {
		if err := os.MkdirAll(f.CacheDir, 0755); err != nil {
			return "", err
		}
		return f.CacheDir, nil
	}
	return getCacheDir("resources")
}

// getCacheDir determines the appropriate OS-specific cache directory.
func getCacheDir(subdir string) (string, error) {
	var baseCacheDir string
	var err error

	switch runtime.GOOS {
	case "windows":
		baseCacheDir = os.Getenv("LOCALAPPDATA")
		if baseCacheDir == "" {
			err = fmt.Errorf("LOCALAPPDATA environment variable not set")
		}
	case "darwin":
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			err = fmt.Errorf("HOME environment variable not set")
		} else {
			baseCacheDir = filepath.Join(homeDir, "Library", "Caches")
		}
	default:
		baseCacheDir = os.Getenv("XDG_CACHE_HOME")
		if baseCacheDir == "" {
			homeDir := os.Getenv("HOME")
			if homeDir == "" {
				err = fmt.Errorf("HOME environment variable not set")
			} else {
				baseCacheDir = filepath.Join(homeDir, ".cache")
			}
		}
	}
	if err != nil {
		return "", err
	}

	cacheDir := filepath.Join(baseCacheDir, "glslbench", subdir)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory at %s: %w", cacheDir, err)
	}
	return cacheDir, nil
}

// Dir returns the directory part of a URL or path, the base that relative
// sub-resources of p resolve against.
func Dir(p string) string {
	if p == "" {
		return ""
	}
	if IsURL(p) {
		u, err := url.Parse(p)
		if err != nil {
			return p
		}
		d := "/"
		if u.Path != "" {
			d = path.Dir(u.Path)
		}
		if !strings.HasSuffix(d, "/") {
			d += "/"
		}
		u.Path = d
		u.RawQuery, u.Fragment = "", ""
		return u.String()
	}
	return filepath.Dir(p)
}

// Resolve resolves rel against base. Absolute paths and URLs are returned
// unchanged; an empty base leaves rel relative to the working directory.
func Resolve(base, rel string) string {
	if IsURL(rel) || filepath.IsAbs(rel) || base == "" {
		return rel
	}
	if IsURL(base) {
		b, err := url.Parse(base)
		if err != nil {
			return base + rel
		}
		r, err := url.Parse(rel)
		if err != nil {
			return base + rel
		}
		return b.ResolveReference(r).String()
	}
	return filepath.Join(base, rel)
}
