package collector

import (
	"log/slog"
	"sync"
	"time"

	"github.com/listenupapp/memopack/internal/errors"
	"github.com/listenupapp/memopack/internal/id"
)

// DefaultIdleTTL is how long an untouched session is kept.
const DefaultIdleTTL = 2 * time.Hour

// Registry maps session IDs to collectors.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Collector
	blobs    Blobs
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
	onChange func(active int)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL sets how long an idle session survives.
func WithIdleTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) { r.ttl = ttl }
}

// WithNow replaces time.Now.
func WithNow(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithSessionCounter is called with the session count after every change.
func WithSessionCounter(fn func(active int)) RegistryOption {
	return func(r *Registry) { r.onChange = fn }
}

// NewRegistry creates an empty registry.
func NewRegistry(blobs Blobs, logger *slog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*Collector),
		blobs:    blobs,
		ttl:      DefaultIdleTTL,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Create starts a new session with one empty draft.
func (r *Registry) Create() (*Collector, error) {
	sessionID, err := id.Generate("sess")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate session id")
	}

	c, err := New(sessionID, r.blobs, r.now)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[sessionID] = c
	n := len(r.sessions)
	r.mu.Unlock()

	r.notify(n)
	r.logger.Debug("Session created", "session_id", sessionID)
	return c, nil
}

// Get returns the collector of a session and marks it active.
func (r *Registry) Get(sessionID string) (*Collector, error) {
	r.mu.RLock()
	c, ok := r.sessions[sessionID]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.NotFoundf("session %s not found", sessionID)
	}
	c.Touch()
	return c, nil
}

// Delete ends a session and releases its attachments.
func (r *Registry) Delete(sessionID string) error {
	r.mu.Lock()
	c, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return errors.NotFoundf("session %s not found", sessionID)
	}
	r.notify(n)
	return c.Close()
}

// Sweep ends every session idle for longer than the TTL and returns how
// many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Collector
	for sessionID, c := range r.sessions {
		if c.LastActive().Before(cutoff) {
			expired = append(expired, c)
			delete(r.sessions, sessionID)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, c := range expired {
		if err := c.Close(); err != nil {
			r.logger.Warn("Failed to release session attachments", "session_id", c.ID(), "error", err)
		}
	}
	if len(expired) > 0 {
		r.notify(n)
	}
	return len(expired)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Shutdown ends every session. Implements do.Shutdowner.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Collector)
	r.mu.Unlock()

	var errs []error
	for _, c := range sessions {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.notify(0)
	return errors.Join(errs...)
}

func (r *Registry) notify(n int) {
	if r.onChange != nil {
		r.onChange(n)
	}
}
