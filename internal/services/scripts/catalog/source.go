package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ResourcePath is the fixed static path of the situations resource.
const ResourcePath = "/scripts.json"

// maxResourceBytes caps how much of the resource body is read.
const maxResourceBytes = 1 << 20

//go:embed data/scripts.json
var embeddedScripts []byte

// Source fetches the situations document.
type Source interface {
	Fetch(ctx context.Context) (Document, error)
}

// SourceFunc adapts a function into a Source.
type SourceFunc func(ctx context.Context) (Document, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context) (Document, error) {
	return f(ctx)
}

// EmbeddedData returns a copy of the built-in situations resource.
func EmbeddedData() []byte {
	return append([]byte(nil), embeddedScripts...)
}

// EmbeddedSource returns a source backed by the built-in resource.
func EmbeddedSource() Source {
	return SourceFunc(func(ctx context.Context) (Document, error) {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}
		return Parse(embeddedScripts)
	})
}

// FileSource reads the situations resource from disk on every fetch.
type FileSource struct {
	Path string
}

// Fetch reads and parses the file.
func (s FileSource) Fetch(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Document{}, fmt.Errorf("read situations file: %w", err)
	}
	return Parse(data)
}

// HTTPSource issues a GET for the resource path on a base URL.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource builds a source for baseURL + ResourcePath.
//
// A nil client gets a default client whose transport is traced.
func NewHTTPSource(baseURL string, client *http.Client) (*HTTPSource, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("situations base url is required")
	}
	target, err := url.Parse(baseURL + ResourcePath)
	if err != nil {
		return nil, fmt.Errorf("parse situations url: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("situations url scheme %q is not http(s)", target.Scheme)
	}
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &HTTPSource{url: target.String(), client: client}, nil
}

// URL returns the resource URL the source requests.
func (s *HTTPSource) URL() string {
	return s.url
}

// Fetch requests, reads, and parses the resource.
func (s *HTTPSource) Fetch(ctx context.Context) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return Document{}, fmt.Errorf("build situations request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("request situations: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResourceBytes))
		return Document{}, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("read situations body: %w", err)
	}
	if len(data) > maxResourceBytes {
		return Document{}, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformed, maxResourceBytes)
	}
	return Parse(data)
}
