package view

import (
	"context"
	"sync"
)

// Clipboard receives the literal text of a copied script.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// ClipboardFunc adapts a function into a Clipboard.
type ClipboardFunc func(ctx context.Context, text string) error

// WriteText calls f.
func (f ClipboardFunc) WriteText(ctx context.Context, text string) error {
	return f(ctx, text)
}

// MemoryClipboard keeps the last written text in memory.
type MemoryClipboard struct {
	mu   sync.Mutex
	text string
	ok   bool
}

// WriteText stores text.
func (c *MemoryClipboard) WriteText(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	c.ok = true
	return nil
}

// Text returns the last written text and whether anything was written.
func (c *MemoryClipboard) Text() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, c.ok
}
