// Package session keeps one view controller per browser, keyed by an opaque
// session id, and unmounts controllers that go idle.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/louisbranch/healinghome/internal/platform/timeouts"
	"github.com/louisbranch/healinghome/internal/services/scripts/view"
)

const defaultMaxSessions = 10000

// ErrClosed reports a mount attempted after the store was closed.
var ErrClosed = errors.New("session store is closed")

// Config configures a Store.
type Config struct {
	// NewController builds an unloaded controller for a new session.
	NewController func() *view.Controller
	// Idle is how long a session may go unused before it is unmounted.
	Idle time.Duration
	// MaxSessions caps live sessions; the least recently used is evicted.
	MaxSessions int
	Logger      *log.Logger
	Now         func() time.Time
}

type entry struct {
	controller *view.Controller
	lastSeen   time.Time
}

// Store maps session ids to mounted controllers.
type Store struct {
	newController func() *view.Controller
	idle          time.Duration
	maxSessions   int
	logger        *log.Logger
	now           func() time.Time

	mu       sync.Mutex
	closed   bool
	sessions map[string]*entry
}

// NewStore builds an empty store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.NewController == nil {
		return nil, errors.New("controller factory is required")
	}
	idle := cfg.Idle
	if idle <= 0 {
		idle = timeouts.SessionIdle
	}
	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		newController: cfg.NewController,
		idle:          idle,
		maxSessions:   maxSessions,
		logger:        logger,
		now:           now,
		sessions:      make(map[string]*entry),
	}, nil
}

// Get returns the controller for id and marks the session as used.
func (s *Store) Get(id string) (*view.Controller, bool) {
	if id == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.controller, true
}

// Mount creates a session, starts its controller's load, and returns the new
// session id.
func (s *Store) Mount(ctx context.Context) (string, *view.Controller, error) {
	id, controller, _, err := s.mount(ctx, uuid.NewString())
	return id, controller, err
}

// Open returns the live session for id. An unknown but well-formed id is
// mounted under that same id, so a page whose session was swept or left keeps
// working; anything else gets a fresh id. The bool reports whether a new
// controller was mounted.
func (s *Store) Open(ctx context.Context, id string) (string, *view.Controller, bool, error) {
	if controller, ok := s.Get(id); ok {
		return id, controller, false, nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		newID, controller, err := s.Mount(ctx)
		return newID, controller, err == nil, err
	}
	return s.mount(ctx, parsed.String())
}

func (s *Store) mount(ctx context.Context, id string) (string, *view.Controller, bool, error) {
	controller := s.newController()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		controller.Close()
		return "", nil, false, ErrClosed
	}
	if existing, ok := s.sessions[id]; ok {
		existing.lastSeen = s.now()
		s.mu.Unlock()
		controller.Close()
		return id, existing.controller, false, nil
	}
	var evicted *view.Controller
	if len(s.sessions) >= s.maxSessions {
		evicted = s.evictOldestLocked()
	}
	s.sessions[id] = &entry{controller: controller, lastSeen: s.now()}
	s.mu.Unlock()

	if evicted != nil {
		evicted.Close()
	}
	controller.Load(ctx)
	return id, controller, true, nil
}

func (s *Store) evictOldestLocked() *view.Controller {
	var (
		oldestID string
		oldest   *entry
	)
	for id, e := range s.sessions {
		if oldest == nil || e.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, e
		}
	}
	if oldest == nil {
		return nil
	}
	delete(s.sessions, oldestID)
	s.logger.Printf("session evicted id=%s reason=capacity", oldestID)
	return oldest.controller
}

// Unmount closes and forgets the session. It reports whether id was live.
func (s *Store) Unmount(id string) bool {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	e.controller.Close()
	return true
}

// Sweep unmounts sessions idle longer than the configured duration and
// returns how many were closed.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.idle)
	var stale []*view.Controller
	s.mu.Lock()
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.controller)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
	for _, controller := range stale {
		controller.Close()
	}
	return len(stale)
}

// Run sweeps on every interval until ctx ends.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = timeouts.SessionSweep
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Printf("session sweep closed=%d", n)
			}
		}
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close unmounts every session and rejects further mounts.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	sessions := s.sessions
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()
	for _, e := range sessions {
		e.controller.Close()
	}
}
