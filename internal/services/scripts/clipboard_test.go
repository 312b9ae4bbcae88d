package scripts

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHXTriggerClipboardWritesLiteralText(t *testing.T) {
	t.Parallel()

	tests := []string{
		"I see you're upset",
		`Say "no" <gently> & firmly`,
		"💚 You're safe — I'm here",
		"",
	}
	for _, text := range tests {
		rr := httptest.NewRecorder()
		if err := (HXTriggerClipboard{W: rr}).WriteText(context.Background(), text); err != nil {
			t.Fatalf("WriteText(%q) error = %v", text, err)
		}
		header := rr.Header().Get("HX-Trigger")
		for idx := 0; idx < len(header); idx++ {
			if header[idx] >= 0x80 {
				t.Fatalf("HX-Trigger has non-ASCII byte at %d: %q", idx, header)
			}
		}
		var got map[string]map[string]string
		if err := json.Unmarshal([]byte(header), &got); err != nil {
			t.Fatalf("unmarshal %q: %v", header, err)
		}
		want := map[string]map[string]string{CopyScriptEvent: {"text": text}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("trigger mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestHXTriggerClipboardRequiresWriter(t *testing.T) {
	t.Parallel()

	if err := (HXTriggerClipboard{}).WriteText(context.Background(), "x"); err == nil {
		t.Fatal("expected error for nil writer")
	}
}
