// Package requestmeta derives transport facts (scheme, origin) from requests.
package requestmeta

import (
	"net/http"
	"net/url"
	"strings"
)

// IsHTTPS reports whether the request arrived over TLS directly or through a
// proxy that forwarded https.
func IsHTTPS(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}

func requestScheme(r *http.Request) string {
	if IsHTTPS(r) {
		return "https"
	}
	return "http"
}

// HasSameOriginProof reports whether Origin, or Referer when Origin is
// absent, names the same scheme and host as the request.
func HasSameOriginProof(r *http.Request) bool {
	if r == nil {
		return false
	}
	source := strings.TrimSpace(r.Header.Get("Origin"))
	if source == "" {
		source = strings.TrimSpace(r.Header.Get("Referer"))
	}
	if source == "" {
		return false
	}
	parsed, err := url.Parse(source)
	if err != nil {
		return false
	}
	if !strings.EqualFold(parsed.Scheme, requestScheme(r)) {
		return false
	}
	return strings.EqualFold(parsed.Host, strings.TrimSpace(r.Host))
}
