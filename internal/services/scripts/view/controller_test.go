package view

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/louisbranch/healinghome/internal/services/scripts/catalog"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func tantrumDocument(t *testing.T) catalog.Document {
	t.Helper()
	doc, err := catalog.NewDocument([]catalog.Situation{{
		ID:         "tantrum",
		Title:      "Tantrum",
		Icon:       "😤",
		Scripts:    []string{"I see you're upset"},
		Principles: []string{"Stay calm"},
	}, {
		ID:      "bedtime",
		Title:   "Bedtime",
		Icon:    "🌙",
		Scripts: []string{"I'll stay close.", "Rest your body."},
	}}, []string{"Connect before correct"})
	if err != nil {
		t.Fatalf("NewDocument() error = %v", err)
	}
	return doc
}

func staticSource(doc catalog.Document) catalog.Source {
	return catalog.SourceFunc(func(context.Context) (catalog.Document, error) {
		return doc, nil
	})
}

func loadedController(t *testing.T) *Controller {
	t.Helper()
	c := NewController(Options{Source: staticSource(tantrumDocument(t)), Logger: log.New(&lockedBuffer{}, "", 0)})
	t.Cleanup(c.Close)
	c.Load(context.Background())
	if err := c.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return c
}

func TestNewControllerStartsLoading(t *testing.T) {
	t.Parallel()

	c := NewController(Options{Source: staticSource(tantrumDocument(t))})
	defer c.Close()
	state := c.Snapshot()
	if state.Mode() != ModeLoading {
		t.Fatalf("Mode() = %v, want %v", state.Mode(), ModeLoading)
	}
	if state.QuickPrinciplesVisible {
		t.Fatal("quick principles should start hidden")
	}
}

func TestLoadStoresDocument(t *testing.T) {
	t.Parallel()

	c := loadedController(t)
	state := c.Snapshot()
	if state.Mode() != ModeGrid {
		t.Fatalf("Mode() = %v, want %v", state.Mode(), ModeGrid)
	}
	if state.Document.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", state.Document.Len())
	}
}

func TestLoadFetchesExactlyOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	doc := tantrumDocument(t)
	c := NewController(Options{Source: catalog.SourceFunc(func(context.Context) (catalog.Document, error) {
		calls.Add(1)
		return doc, nil
	})})
	defer c.Close()

	c.Load(context.Background())
	c.Load(context.Background())
	if err := c.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	c.Load(context.Background())
	if got := calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
}

func TestLoadFailureStaysLoadingAndLogs(t *testing.T) {
	t.Parallel()

	logs := &lockedBuffer{}
	c := NewController(Options{
		Source: catalog.SourceFunc(func(context.Context) (catalog.Document, error) {
			return catalog.Document{}, errors.New("connection refused")
		}),
		Logger: log.New(logs, "", 0),
	})
	defer c.Close()

	c.Load(context.Background())
	if err := c.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := c.Snapshot().Mode(); got != ModeLoading {
		t.Fatalf("Mode() = %v, want %v", got, ModeLoading)
	}
	if !strings.Contains(logs.String(), "load situations: connection refused") {
		t.Fatalf("log = %q", logs.String())
	}
}

func TestLoadWithoutSourceStaysLoading(t *testing.T) {
	t.Parallel()

	logs := &lockedBuffer{}
	c := NewController(Options{Logger: log.New(logs, "", 0)})
	defer c.Close()
	c.Load(context.Background())
	if err := c.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if c.Snapshot().Loaded {
		t.Fatal("expected unloaded state")
	}
	if !strings.Contains(logs.String(), catalog.ErrSourceRequired.Error()) {
		t.Fatalf("log = %q", logs.String())
	}
}

func TestLoadTimesOut(t *testing.T) {
	t.Parallel()

	logs := &lockedBuffer{}
	c := NewController(Options{
		Source: catalog.SourceFunc(func(ctx context.Context) (catalog.Document, error) {
			<-ctx.Done()
			return catalog.Document{}, ctx.Err()
		}),
		Logger:       log.New(logs, "", 0),
		FetchTimeout: 10 * time.Millisecond,
	})
	defer c.Close()
	c.Load(context.Background())
	if err := c.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if c.Snapshot().Loaded {
		t.Fatal("expected unloaded state")
	}
	if !strings.Contains(logs.String(), context.DeadlineExceeded.Error()) {
		t.Fatalf("log = %q", logs.String())
	}
}

func TestCloseSuppressesLateLoad(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	logs := &lockedBuffer{}
	doc := tantrumDocument(t)
	c := NewController(Options{
		// Resolves successfully only after the controller is cancelled.
		Source: catalog.SourceFunc(func(ctx context.Context) (catalog.Document, error) {
			close(started)
			<-ctx.Done()
			return doc, nil
		}),
		Logger: log.New(logs, "", 0),
	})
	c.Load(context.Background())
	<-started
	c.Close()

	if c.Snapshot().Loaded {
		t.Fatal("load after close must not update state")
	}
	if logs.String() != "" {
		t.Fatalf("unexpected log after close: %q", logs.String())
	}
}

func TestCloseCancelsInFlightFetch(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	c := NewController(Options{
		Source: catalog.SourceFunc(func(ctx context.Context) (catalog.Document, error) {
			close(started)
			<-ctx.Done()
			return catalog.Document{}, ctx.Err()
		}),
		Logger: log.New(&lockedBuffer{}, "", 0),
	})
	c.Load(context.Background())
	<-started
	c.Close()
	if c.Snapshot().Loaded {
		t.Fatal("expected unloaded state")
	}
}

func TestLoadAfterCloseIsNoop(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := NewController(Options{Source: catalog.SourceFunc(func(context.Context) (catalog.Document, error) {
		calls.Add(1)
		return catalog.Document{}, nil
	})})
	c.Close()
	c.Load(context.Background())
	if err := c.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("fetch calls = %d, want 0", calls.Load())
	}
	c.Close()
}

func TestSelectThenClearReturnsToSameGrid(t *testing.T) {
	t.Parallel()

	c := loadedController(t)
	before := c.Snapshot()
	for _, situation := range before.Document.Situations() {
		if !c.SelectSituation(situation.ID) {
			t.Fatalf("SelectSituation(%q) = false", situation.ID)
		}
		detail := c.Snapshot()
		if detail.Mode() != ModeDetail {
			t.Fatalf("Mode() = %v, want %v", detail.Mode(), ModeDetail)
		}
		if detail.Selected.ID != situation.ID {
			t.Fatalf("Selected.ID = %q, want %q", detail.Selected.ID, situation.ID)
		}
		c.ClearSelection()
		after := c.Snapshot()
		if after.Mode() != ModeGrid {
			t.Fatalf("Mode() = %v, want %v", after.Mode(), ModeGrid)
		}
		if after.Document.Len() != before.Document.Len() {
			t.Fatalf("document changed across round trip")
		}
	}
}

func TestSelectUnknownSituationIsNoop(t *testing.T) {
	t.Parallel()

	c := loadedController(t)
	if c.SelectSituation("missing") {
		t.Fatal("SelectSituation(missing) = true")
	}
	if got := c.Snapshot().Mode(); got != ModeGrid {
		t.Fatalf("Mode() = %v, want %v", got, ModeGrid)
	}

	c.SelectSituation("tantrum")
	c.SelectSituation("missing")
	if got := c.Snapshot().Selected.ID; got != "tantrum" {
		t.Fatalf("Selected.ID = %q, want tantrum", got)
	}
}

func TestSelectBeforeLoadIsNoop(t *testing.T) {
	t.Parallel()

	c := NewController(Options{})
	defer c.Close()
	if c.SelectSituation("tantrum") {
		t.Fatal("SelectSituation() before load = true")
	}
	if got := c.Snapshot().Mode(); got != ModeLoading {
		t.Fatalf("Mode() = %v, want %v", got, ModeLoading)
	}
}

func TestToggleQuickPrinciplesTwiceRestores(t *testing.T) {
	t.Parallel()

	c := loadedController(t)
	original := c.Snapshot().QuickPrinciplesVisible
	if got := c.ToggleQuickPrinciples(); got == original {
		t.Fatalf("first toggle = %t, want %t", got, !original)
	}
	if got := c.ToggleQuickPrinciples(); got != original {
		t.Fatalf("second toggle = %t, want %t", got, original)
	}
	if c.Snapshot().QuickPrinciplesVisible != original {
		t.Fatal("visibility not restored")
	}
}

func TestCopyScriptWritesExactText(t *testing.T) {
	t.Parallel()

	c := loadedController(t)
	clipboard := &MemoryClipboard{}
	text := `"I see you're upset" — really, truly!?`
	c.CopyScript(context.Background(), clipboard, text)
	got, ok := clipboard.Text()
	if !ok || got != text {
		t.Fatalf("clipboard = %q (%t), want %q", got, ok, text)
	}
}

func TestCopyScriptIgnoresClipboardFailure(t *testing.T) {
	t.Parallel()

	logs := &lockedBuffer{}
	c := NewController(Options{Logger: log.New(logs, "", 0)})
	defer c.Close()
	c.CopyScript(context.Background(), ClipboardFunc(func(context.Context, string) error {
		return errors.New("permission denied")
	}), "hello")
	c.CopyScript(context.Background(), nil, "hello")
	if !strings.Contains(logs.String(), "copy script: permission denied") {
		t.Fatalf("log = %q", logs.String())
	}
}

func TestWaitHonorsContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	c := NewController(Options{Source: catalog.SourceFunc(func(context.Context) (catalog.Document, error) {
		<-release
		return catalog.Document{}, errors.New("late")
	}), Logger: log.New(&lockedBuffer{}, "", 0)})
	c.Load(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if err := c.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() error = %v, want %v", err, context.DeadlineExceeded)
	}
	close(release)
	c.Close()
}

func TestModeString(t *testing.T) {
	t.Parallel()

	for mode, want := range map[Mode]string{ModeLoading: "loading", ModeGrid: "grid", ModeDetail: "detail", Mode(9): "unknown"} {
		if got := mode.String(); got != want {
			t.Fatalf("Mode(%d).String() = %q, want %q", mode, got, want)
		}
	}
}
