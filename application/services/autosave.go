package services

import (
	"bytes"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"relmap-backend/application/ports"
	"relmap-backend/domain/events"
	"relmap-backend/infrastructure/persistence/snapshot"
)

// DefaultAutosaveDelay is how long a session must stay quiet before it is saved
const DefaultAutosaveDelay = 300 * time.Millisecond

// Autosaver writes a session's snapshot to a SnapshotStore once its changes
// settle. Each session is saved under its own id.
type Autosaver struct {
	store  ports.SnapshotStore
	codec  *snapshot.Codec
	delay  time.Duration
	logger *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

// NewAutosaver creates an autosaver. A non-positive delay uses DefaultAutosaveDelay.
func NewAutosaver(store ports.SnapshotStore, codec *snapshot.Codec, delay time.Duration, logger *zap.Logger) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if codec == nil {
		codec = snapshot.NewCodec()
	}
	return &Autosaver{
		store:  store,
		codec:  codec,
		delay:  delay,
		logger: logger,
		timers: make(map[string]*time.Timer),
	}
}

// Attach subscribes the autosaver to s
func (a *Autosaver) Attach(s *Session) {
	s.Subscribe(func(sessionID string, _ []events.DomainEvent) {
		a.schedule(s)
	})
}

func (a *Autosaver) schedule(s *Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.timers[s.ID()]; ok && t.Stop() {
		t.Reset(a.delay)
		return
	}
	a.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(a.delay, func() {
		defer a.wg.Done()
		a.mu.Lock()
		if a.timers[s.ID()] == t {
			delete(a.timers, s.ID())
		}
		a.mu.Unlock()
		if err := a.Save(context.Background(), s); err != nil {
			a.logger.Warn("autosave failed", zap.String("session", s.ID()), zap.Error(err))
		}
	})
	a.timers[s.ID()] = t
}

// Save writes the session's current snapshot now
func (a *Autosaver) Save(ctx context.Context, s *Session) error {
	doc, err := s.Export(ctx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := a.codec.Encode(&buf, doc); err != nil {
		return err
	}
	if err := a.store.Save(ctx, s.ID(), buf.Bytes()); err != nil {
		return err
	}
	a.logger.Debug("session autosaved", zap.String("session", s.ID()), zap.Int("bytes", buf.Len()))
	return nil
}

// Restore opens a new session in registry holding the snapshot saved under key
func (a *Autosaver) Restore(ctx context.Context, registry *SessionRegistry, key string) (*Session, error) {
	data, err := a.store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	s := registry.Create()
	if _, err := s.Import(ctx, data); err != nil {
		_ = registry.Delete(s.ID())
		return nil, err
	}
	return s, nil
}

// Keys lists the saved snapshots
func (a *Autosaver) Keys(ctx context.Context) ([]string, error) {
	return a.store.Keys(ctx)
}

// Flush waits for every pending save to finish
func (a *Autosaver) Flush() {
	a.mu.Lock()
	pending := make([]*time.Timer, 0, len(a.timers))
	for _, t := range a.timers {
		pending = append(pending, t)
	}
	a.mu.Unlock()
	for _, t := range pending {
		if t.Stop() {
			t.Reset(0)
		}
	}
	a.wg.Wait()
}
