package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
)

// Resource holds the validated bytes served at ResourcePath.
//
// Bytes only change through Update, which refuses content Parse rejects, so
// readers always see a parseable document.
type Resource struct {
	mu   sync.RWMutex
	data []byte
	etag string
}

// NewResource validates data and returns a resource serving it.
func NewResource(data []byte) (*Resource, error) {
	r := &Resource{}
	if err := r.Update(data); err != nil {
		return nil, err
	}
	return r, nil
}

// Update validates data and swaps it in.
func (r *Resource) Update(data []byte) error {
	if _, err := Parse(data); err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	r.mu.Lock()
	r.data = append([]byte(nil), data...)
	r.etag = `"` + hex.EncodeToString(sum[:8]) + `"`
	r.mu.Unlock()
	return nil
}

// ETag returns the strong entity tag for the current bytes.
func (r *Resource) ETag() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.etag
}

func (r *Resource) snapshot() ([]byte, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data, r.etag
}

// Fetch parses the current bytes, making the resource an in-process Source.
func (r *Resource) Fetch(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	data, _ := r.snapshot()
	return Parse(data)
}

// ServeHTTP writes the resource as JSON, honoring If-None-Match.
func (r *Resource) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	data, etag := r.snapshot()
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(req.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if req.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(data)
}

// etagMatches applies the weak comparison If-None-Match uses: any listed tag,
// or "*", matching etag with W/ prefixes ignored.
func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}
