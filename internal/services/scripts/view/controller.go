// Package view holds the per-session view controller: the loaded document,
// the selected situation, and the quick-principles toggle.
package view

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/louisbranch/healinghome/internal/platform/otel"
	"github.com/louisbranch/healinghome/internal/platform/timeouts"
	"github.com/louisbranch/healinghome/internal/services/scripts/catalog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Options configures a Controller.
type Options struct {
	Source catalog.Source
	Logger *log.Logger
	// FetchTimeout caps the single load. Defaults to timeouts.DataFetch.
	FetchTimeout time.Duration
}

// Controller owns one view session's state.
//
// The document is loaded at most once per controller. Close cancels an
// in-flight load and suppresses any state update it would have made.
type Controller struct {
	source       catalog.Source
	logger       *log.Logger
	fetchTimeout time.Duration

	lifetime context.Context
	cancel   context.CancelFunc
	done     chan struct{}

	mu                sync.Mutex
	started           bool
	closed            bool
	loaded            bool
	document          catalog.Document
	selectedID        string
	principlesVisible bool
}

// NewController builds an unloaded controller.
func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = timeouts.DataFetch
	}
	lifetime, cancel := context.WithCancel(context.Background())
	return &Controller{
		source:       opts.Source,
		logger:       logger,
		fetchTimeout: fetchTimeout,
		lifetime:     lifetime,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Load starts the one-shot document fetch and returns immediately.
//
// ctx only contributes trace context; the fetch is bound to the controller
// lifetime, not to the caller. Repeated calls are no-ops.
func (c *Controller) Load(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	fetchCtx := trace.ContextWithSpanContext(c.lifetime, trace.SpanContextFromContext(ctx))
	go c.load(fetchCtx)
}

func (c *Controller) load(ctx context.Context) {
	defer close(c.done)

	ctx, span := otel.Tracer().Start(ctx, "view.load")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	if c.source == nil {
		c.logger.Printf("load situations: %v", catalog.ErrSourceRequired)
		span.SetStatus(codes.Error, catalog.ErrSourceRequired.Error())
		return
	}
	doc, err := c.source.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(c.lifetime.Err(), context.Canceled) {
			return
		}
		c.logger.Printf("load situations: %v", err)
		return
	}
	span.SetAttributes(
		attribute.Int("situations.count", doc.Len()),
		attribute.Int("quick_principles.count", len(doc.QuickPrinciples())),
	)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.document = doc
	c.loaded = true
}

// Wait blocks until a started load resolves or ctx ends.
//
// It returns immediately when Load was never called.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return nil
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SelectSituation selects the situation with id. Unknown ids and an unloaded
// document leave the state unchanged. It reports whether a selection was made.
func (c *Controller) SelectSituation(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded || !c.document.Has(id) {
		return false
	}
	c.selectedID = id
	return true
}

// ClearSelection returns the view to the grid.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedID = ""
}

// ToggleQuickPrinciples flips the quick-principles panel and returns the new
// visibility.
func (c *Controller) ToggleQuickPrinciples() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.principlesVisible = !c.principlesVisible
	return c.principlesVisible
}

// CopyScript writes text to clipboard unmodified. Failures are logged and
// never returned.
func (c *Controller) CopyScript(ctx context.Context, clipboard Clipboard, text string) {
	if clipboard == nil {
		return
	}
	if err := clipboard.WriteText(ctx, text); err != nil {
		c.logger.Printf("copy script: %v", err)
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := State{
		Loaded:                 c.loaded,
		Document:               c.document,
		QuickPrinciplesVisible: c.principlesVisible,
	}
	if c.selectedID != "" {
		state.Selected, state.HasSelection = c.document.Situation(c.selectedID)
	}
	return state
}

// Close unmounts the controller, cancelling any in-flight load.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	started := c.started
	c.mu.Unlock()

	c.cancel()
	if started {
		<-c.done
	}
}
