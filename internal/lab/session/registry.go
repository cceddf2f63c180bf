package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
	"github.com/louisbranch/smartlab/internal/platform/timeouts"
)

// DefaultMaxSessions bounds live sessions when no limit is configured.
const DefaultMaxSessions = 10000

// Registry keeps one controller per browser session and forgets sessions
// that stay idle longer than the TTL.
type Registry struct {
	cfg   Config
	ttl   time.Duration
	max   int
	clock func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	ctrl     *Controller
	lastSeen time.Time
}

// RegistryOption tunes a Registry.
type RegistryOption func(*Registry)

// WithMaxSessions caps live sessions. Non-positive values keep
// DefaultMaxSessions.
func WithMaxSessions(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.max = n
		}
	}
}

// NewRegistry builds a registry whose controllers share cfg.
func NewRegistry(cfg Config, ttl time.Duration, opts ...RegistryOption) (*Registry, error) {
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("oracle is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	r := &Registry{
		cfg:      cfg,
		ttl:      ttl,
		max:      DefaultMaxSessions,
		clock:    clock,
		sessions: map[string]*entry{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Create starts a new session with a fresh id. When the registry is full it
// first drops expired sessions, then fails with CodeSessionLimitReached.
func (r *Registry) Create() (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock()
	if len(r.sessions) >= r.max {
		r.sweepLocked(now)
		if len(r.sessions) >= r.max {
			return nil, apperrors.New(apperrors.CodeSessionLimitReached, "session limit reached")
		}
	}
	ctrl, err := NewController(uuid.NewString(), r.cfg)
	if err != nil {
		return nil, err
	}
	r.sessions[ctrl.ID()] = &entry{ctrl: ctrl, lastSeen: now}
	return ctrl, nil
}

// Get returns the session with id and marks it active.
func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.clock()
	return e.ctrl, true
}

// Resolve returns the session with id, creating one when it is unknown or
// expired. created reports whether the id changed.
func (r *Registry) Resolve(id string) (ctrl *Controller, created bool, err error) {
	if id != "" {
		if ctrl, ok := r.Get(id); ok {
			return ctrl, false, nil
		}
	}
	ctrl, err = r.Create()
	return ctrl, true, err
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep forgets sessions idle since before now minus the TTL. A session with
// a request in flight is kept until it resolves.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(now)
}

func (r *Registry) sweepLocked(now time.Time) int {
	cutoff := now.Add(-r.ttl)
	removed := 0
	for id, e := range r.sessions {
		if e.lastSeen.After(cutoff) || e.ctrl.State().InFlight() {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	return removed
}

// Run sweeps on an interval until ctx ends.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(timeouts.SessionSweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(r.clock()); n > 0 {
				log.Printf("swept idle sessions count=%d remaining=%d", n, r.Len())
			}
		}
	}
}
