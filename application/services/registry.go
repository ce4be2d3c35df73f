package services

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	pkgerrors "relmap-backend/pkg/errors"
)

// RegistryMetrics receives the number of open sessions
type RegistryMetrics interface {
	SetActiveSessions(n int)
}

// SessionRegistry hosts many independent sessions
type SessionRegistry struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	cfg       SessionConfig
	listeners []func(*Session)
	metrics   RegistryMetrics
	logger    *zap.Logger
}

// NewSessionRegistry creates an empty registry. Every session it opens is
// built from cfg.
func NewSessionRegistry(cfg SessionConfig, metrics RegistryMetrics, logger *zap.Logger) *SessionRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRegistry{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// OnCreate registers a hook run for every new session, e.g. to attach
// change listeners
func (r *SessionRegistry) OnCreate(hook func(*Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, hook)
}

// Create opens a new empty session
func (r *SessionRegistry) Create() *Session {
	id := uuid.New().String()
	s := NewSession(id, r.cfg)

	r.mu.Lock()
	r.sessions[id] = s
	hooks := append([]func(*Session){}, r.listeners...)
	n := len(r.sessions)
	r.mu.Unlock()

	for _, hook := range hooks {
		hook(s)
	}
	r.report(n)
	r.logger.Info("session opened", zap.String("session", id))
	return s
}

// Get returns an open session
func (r *SessionRegistry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("session", id)
	}
	return s, nil
}

// Delete disposes and forgets a session
func (r *SessionRegistry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return pkgerrors.NewNotFoundError("session", id)
	}
	s.Dispose()
	r.report(n)
	r.logger.Info("session closed", zap.String("session", id))
	return nil
}

// IDs lists the open sessions in sorted order
func (r *SessionRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close disposes every session
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Dispose()
	}
	r.report(0)
}

func (r *SessionRegistry) report(n int) {
	if r.metrics != nil {
		r.metrics.SetActiveSessions(n)
	}
}
