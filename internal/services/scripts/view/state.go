package view

import "github.com/louisbranch/healinghome/internal/services/scripts/catalog"

// Mode names the render branch a state selects.
type Mode int

const (
	// ModeLoading renders only the loading indicator.
	ModeLoading Mode = iota
	// ModeGrid renders the header, the principles toggle, and the card grid.
	ModeGrid
	// ModeDetail renders one situation's scripts and principles.
	ModeDetail
)

// String returns a stable mode name for logs and tests.
func (m Mode) String() string {
	switch m {
	case ModeLoading:
		return "loading"
	case ModeGrid:
		return "grid"
	case ModeDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of a controller.
type State struct {
	Loaded                 bool
	Document               catalog.Document
	Selected               catalog.Situation
	HasSelection           bool
	QuickPrinciplesVisible bool
}

// Mode reports which render branch applies. The branches are mutually
// exclusive: no document wins over any selection.
func (s State) Mode() Mode {
	switch {
	case !s.Loaded:
		return ModeLoading
	case s.HasSelection:
		return ModeDetail
	default:
		return ModeGrid
	}
}
