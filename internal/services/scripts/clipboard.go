package scripts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf16"

	"github.com/louisbranch/healinghome/internal/services/scripts/platform/httpx"
)

// CopyScriptEvent is the client event that carries copied script text.
const CopyScriptEvent = "copy-script"

// HXTriggerClipboard hands copied text to the browser as an HX-Trigger event
// that static/app.js writes to navigator.clipboard.
type HXTriggerClipboard struct {
	W http.ResponseWriter
}

// WriteText sets the trigger header. It must run before the response status
// is written.
func (c HXTriggerClipboard) WriteText(_ context.Context, text string) error {
	if c.W == nil {
		return fmt.Errorf("clipboard response writer is required")
	}
	payload, err := copyScriptTrigger(text)
	if err != nil {
		return err
	}
	httpx.SetTrigger(c.W, payload)
	return nil
}

func copyScriptTrigger(text string) (string, error) {
	encoded, err := json.Marshal(map[string]map[string]string{
		CopyScriptEvent: {"text": text},
	})
	if err != nil {
		return "", fmt.Errorf("encode copy trigger: %w", err)
	}
	return asciiJSON(string(encoded)), nil
}

// asciiJSON escapes non-ASCII runes as \u sequences so header bytes decode
// the same in every browser.
func asciiJSON(encoded string) string {
	var b strings.Builder
	b.Grow(len(encoded))
	for _, r := range encoded {
		if r < 0x80 {
			b.WriteRune(r)
			continue
		}
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, hi, lo)
			continue
		}
		fmt.Fprintf(&b, `\u%04x`, r)
	}
	return b.String()
}
