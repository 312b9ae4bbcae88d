// Package i18n resolves the request locale and prints UI copy from the
// x/text message catalogue.
package i18n

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "hh_lang"
)

var (
	supported = []language.Tag{language.English}
	matcher   = language.NewMatcher(supported)
)

// Default returns the default language tag.
func Default() language.Tag {
	return supported[0]
}

// Printer returns a message printer for the supplied tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// ParseTag parses value and matches it against supported tags.
func ParseTag(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return language.Und, false
	}
	tag, err := language.Parse(value)
	if err != nil {
		return language.Und, false
	}
	matched, _, confidence := matcher.Match(tag)
	if confidence == language.No {
		return language.Und, false
	}
	return baseTag(matched), true
}

// ResolveTag determines the best language tag for the request.
// The bool indicates whether the lang query param should be persisted.
func ResolveTag(r *http.Request) (language.Tag, bool) {
	if r == nil {
		return Default(), false
	}
	if tag, ok := ParseTag(r.URL.Query().Get(LangParam)); ok {
		return tag, true
	}
	if cookie, err := r.Cookie(LangCookieName); err == nil {
		if tag, ok := ParseTag(cookie.Value); ok {
			return tag, false
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			matched, _, _ := matcher.Match(tags...)
			return baseTag(matched), false
		}
	}
	return Default(), false
}

// SetLanguageCookie persists the selected language on the response.
func SetLanguageCookie(w http.ResponseWriter, tag language.Tag) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

// ResolvePrinter resolves the request locale, persists an explicit choice,
// and returns the printer with its tag.
func ResolvePrinter(w http.ResponseWriter, r *http.Request) (*message.Printer, language.Tag) {
	tag, persist := ResolveTag(r)
	if persist {
		SetLanguageCookie(w, tag)
	}
	return Printer(tag), tag
}

// baseTag strips the -u-rg extension the matcher adds so printers hit the
// catalogue entries registered for the plain supported tag.
func baseTag(tag language.Tag) language.Tag {
	for _, candidate := range supported {
		base, _ := tag.Base()
		candidateBase, _ := candidate.Base()
		if base == candidateBase {
			return candidate
		}
	}
	return Default()
}
