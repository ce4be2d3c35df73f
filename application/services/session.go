package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"relmap-backend/application/commands"
	"relmap-backend/application/history"
	"relmap-backend/application/ports"
	"relmap-backend/domain/core/aggregates"
	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/core/valueobjects"
	"relmap-backend/infrastructure/persistence/snapshot"
	pkgerrors "relmap-backend/pkg/errors"
)

var errSessionDisposed = pkgerrors.NewValidationError("SESSION_DISPOSED", "session has been disposed")

// SessionConfig holds what every session is built from
type SessionConfig struct {
	HistoryLimit int
	Codec        *snapshot.Codec
	Metrics      history.Metrics
	View         ports.VisualProjection
	Logger       *zap.Logger
}

// Session is one open document: a store, its history and its codec.
// Calls are serialized so a concurrent host can share it.
type Session struct {
	mu        sync.Mutex
	id        string
	createdAt time.Time
	store     *aggregates.Store
	stack     *history.Stack
	codec     *snapshot.Codec
	logger    *zap.Logger
	listeners map[int]ports.ChangeListener
	nextSub   int
	disposed  bool
}

// NewSession creates an empty session
func NewSession(id string, cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session", id))
	codec := cfg.Codec
	if codec == nil {
		codec = snapshot.NewCodec(snapshot.WithLogger(logger))
	}

	store := aggregates.NewStore()
	dispatcher := commands.NewDispatcher(store, cfg.View, logger)
	middlewares := []history.Middleware{history.LoggingMiddleware(logger)}
	opts := []history.Option{history.WithLogger(logger), history.WithLimit(cfg.HistoryLimit)}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, history.MetricsMiddleware(cfg.Metrics))
		opts = append(opts, history.WithMetrics(cfg.Metrics))
	}

	return &Session{
		id:        id,
		createdAt: time.Now(),
		store:     store,
		stack:     history.NewStack(history.Chain(dispatcher, middlewares...), opts...),
		codec:     codec,
		logger:    logger,
		listeners: make(map[int]ports.ChangeListener),
	}
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was opened
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Subscribe registers a listener for the changes of every successful call.
// The returned function removes it.
func (s *Session) Subscribe(listener ports.ChangeListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.nextSub
	s.nextSub++
	s.listeners[key] = listener
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, key)
	}
}

// mutate runs fn under the lock and then hands the store's new events to
// the listeners outside of it
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return errSessionDisposed
	}
	err := fn()
	changes := s.store.PullEvents()
	listeners := make([]ports.ChangeListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if len(changes) > 0 {
		for _, l := range listeners {
			l(s.id, changes)
		}
	}
	return err
}

func (s *Session) read(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return errSessionDisposed
	}
	fn()
	return nil
}

func (s *Session) execute(entry commands.Entry, err error) error {
	if err != nil {
		return err
	}
	return s.stack.Execute(entry)
}

// AddCharacter creates a character, optionally placed on a sheet
func (s *Session) AddCharacter(c entities.Character, sheetID string, pos *valueobjects.Position) (string, error) {
	var id string
	err := s.mutate(func() error {
		entry, err := commands.AddCharacter(c, sheetID, pos)
		if err != nil {
			return err
		}
		if err := s.stack.Execute(entry); err != nil {
			return err
		}
		id = entry.Op.(commands.AddCharacterOp).Character.ID
		return nil
	})
	return id, err
}

// UpdateCharacter patches a character
func (s *Session) UpdateCharacter(id string, patch entities.CharacterPatch) error {
	return s.mutate(func() error { return s.execute(commands.UpdateCharacter(id, patch)) })
}

// RemoveCharacter deletes a character and everything referencing it
func (s *Session) RemoveCharacter(id string) error {
	return s.mutate(func() error { return s.execute(commands.RemoveCharacter(id)) })
}

// AddRelation creates a relation
func (s *Session) AddRelation(in entities.RelationInput) (string, error) {
	var id string
	err := s.mutate(func() error {
		entry, err := commands.AddRelation(in)
		if err != nil {
			return err
		}
		if err := s.stack.Execute(entry); err != nil {
			return err
		}
		id = entry.Op.(commands.AddRelationOp).Relation.ID
		return nil
	})
	return id, err
}

// UpdateRelation patches a relation
func (s *Session) UpdateRelation(id string, patch entities.RelationPatch) error {
	return s.mutate(func() error { return s.execute(commands.UpdateRelation(id, patch)) })
}

// RemoveRelation deletes a relation
func (s *Session) RemoveRelation(id string) error {
	return s.mutate(func() error { return s.execute(commands.RemoveRelation(id)) })
}

// SetCharacterTags replaces the tag key set
func (s *Session) SetCharacterTags(keys []string) error {
	return s.mutate(func() error { return s.execute(commands.SetCharacterTags(keys)) })
}

// AddTagKey appends a tag key
func (s *Session) AddTagKey(key string) error {
	return s.mutate(func() error { return s.execute(commands.AddTagKey(key)) })
}

// RenameTagKey renames a tag key and carries every value over
func (s *Session) RenameTagKey(oldKey, newKey string) error {
	return s.mutate(func() error { return s.execute(commands.RenameTagKey(oldKey, newKey)) })
}

// RemoveTagKey drops a tag key together with its values
func (s *Session) RemoveTagKey(key string) error {
	return s.mutate(func() error { return s.execute(commands.RemoveTagKey(key)) })
}

// ReorderTagKeys sets the tag key order
func (s *Session) ReorderTagKeys(order []string) error {
	return s.mutate(func() error { return s.execute(commands.ReorderTagKeys(order)) })
}

// MoveNode moves a character on a sheet, starting from its current position.
// A first placement undoes back to no position at all.
func (s *Session) MoveNode(sheetID, id string, to valueobjects.Position) error {
	return s.mutate(func() error {
		if _, err := s.store.GetSheet(sheetID); err != nil {
			return err
		}
		if !s.store.ExistsCharacter(id) {
			return pkgerrors.NewNotFoundError("character", id)
		}
		from, ok := s.store.NodePosition(sheetID, id)
		if !ok {
			from = to
		}
		return s.execute(commands.MoveNode(sheetID, id, from, to))
	})
}

// ApplyLayout moves many characters on a sheet in one history slot
func (s *Session) ApplyLayout(sheetID string, targets map[string]valueobjects.Position) error {
	return s.mutate(func() error {
		sheet, err := s.store.GetSheet(sheetID)
		if err != nil {
			return err
		}
		moves := make([]commands.LayoutMove, 0, len(targets))
		for _, c := range s.store.ListCharacters() {
			to, ok := targets[c.ID]
			if !ok {
				continue
			}
			from, ok := sheet.Positions[c.ID]
			if !ok {
				from = to
			}
			moves = append(moves, commands.LayoutMove{ID: c.ID, From: from, To: to})
		}
		for id := range targets {
			if !s.store.ExistsCharacter(id) {
				return pkgerrors.NewNotFoundError("character", id)
			}
		}
		return s.execute(commands.ApplyLayout(sheetID, moves))
	})
}

// SetEdgeWaypoints replaces a relation's waypoints on a sheet
func (s *Session) SetEdgeWaypoints(sheetID, id string, points []valueobjects.Position) error {
	return s.mutate(func() error { return s.execute(commands.SetEdgeWaypoints(sheetID, id, points)) })
}

// AddGroup creates a group
func (s *Session) AddGroup(g entities.Group) (string, error) {
	var id string
	err := s.mutate(func() error {
		entry, err := commands.AddGroup(g)
		if err != nil {
			return err
		}
		if err := s.stack.Execute(entry); err != nil {
			return err
		}
		id = entry.Op.(commands.AddGroupOp).Group.ID
		return nil
	})
	return id, err
}

// UpdateGroup patches a group
func (s *Session) UpdateGroup(id string, patch entities.GroupPatch) error {
	return s.mutate(func() error { return s.execute(commands.UpdateGroup(id, patch)) })
}

// RemoveGroup deletes a group
func (s *Session) RemoveGroup(id string) error {
	return s.mutate(func() error { return s.execute(commands.RemoveGroup(id)) })
}

// AddGroupMembers puts characters into a group
func (s *Session) AddGroupMembers(groupID string, ids []string) error {
	return s.mutate(func() error { return s.execute(commands.AddGroupMembers(groupID, ids)) })
}

// RemoveGroupMembers takes characters out of a group
func (s *Session) RemoveGroupMembers(groupID string, ids []string) error {
	return s.mutate(func() error { return s.execute(commands.RemoveGroupMembers(groupID, ids)) })
}

// CreateSheet adds a sheet. Sheet management is not part of the history.
func (s *Session) CreateSheet(name string) (string, error) {
	var id string
	err := s.mutate(func() error {
		var err error
		id, err = s.store.CreateSheet(name)
		return err
	})
	return id, err
}

// RenameSheet renames a sheet
func (s *Session) RenameSheet(id, name string) error {
	return s.mutate(func() error { return s.store.RenameSheet(id, name) })
}

// DeleteSheet removes a sheet
func (s *Session) DeleteSheet(id string) error {
	return s.mutate(func() error { return s.store.DeleteSheet(id) })
}

// SetSheetVisibility replaces a sheet's visibility filter
func (s *Session) SetSheetVisibility(id string, visible entities.Visibility) error {
	return s.mutate(func() error { return s.store.SetSheetVisibility(id, visible) })
}

// Undo reverts the nearest entry allowed by mode
func (s *Session) Undo(mode history.Mode, hctx history.Context) (bool, error) {
	var done bool
	err := s.mutate(func() error {
		var err error
		done, err = s.stack.Undo(mode, hctx)
		return err
	})
	return done, err
}

// Redo reapplies the nearest entry allowed by mode
func (s *Session) Redo(mode history.Mode, hctx history.Context) (bool, error) {
	var done bool
	err := s.mutate(func() error {
		var err error
		done, err = s.stack.Redo(mode, hctx)
		return err
	})
	return done, err
}

// HistoryStatus is the history dump plus the undo/redo flags
type HistoryStatus struct {
	history.Meta
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

// History returns the diagnostic dump of the history
func (s *Session) History() (HistoryStatus, error) {
	var out HistoryStatus
	err := s.read(func() {
		out = HistoryStatus{Meta: s.stack.HistoryMeta(), CanUndo: s.stack.CanUndo(), CanRedo: s.stack.CanRedo()}
	})
	return out, err
}

// State returns a detached copy of the store
func (s *Session) State() (aggregates.State, error) {
	var out aggregates.State
	err := s.read(func() { out = s.store.State() })
	return out, err
}

// Character returns one character
func (s *Session) Character(id string) (entities.Character, error) {
	var (
		out entities.Character
		err error
	)
	if rerr := s.read(func() { out, err = s.store.GetCharacter(id) }); rerr != nil {
		return out, rerr
	}
	return out, err
}

// Relation returns one relation
func (s *Session) Relation(id string) (entities.Relation, error) {
	var (
		out entities.Relation
		err error
	)
	if rerr := s.read(func() { out, err = s.store.GetRelation(id) }); rerr != nil {
		return out, rerr
	}
	return out, err
}

// RelationsByNode returns the relations touching a character
func (s *Session) RelationsByNode(id string) ([]entities.Relation, error) {
	var out []entities.Relation
	err := s.read(func() { out = s.store.ListRelationsByNode(id) })
	return out, err
}

// RelationsBetween returns the relations joining two characters, in either
// direction
func (s *Session) RelationsBetween(a, b string) ([]entities.Relation, error) {
	var out []entities.Relation
	err := s.read(func() { out = s.store.ListRelationsByPair(a, b) })
	return out, err
}

// NodePosition reports a character's position on a sheet
func (s *Session) NodePosition(sheetID, id string) (valueobjects.Position, bool, error) {
	var (
		pos valueobjects.Position
		ok  bool
	)
	err := s.read(func() { pos, ok = s.store.NodePosition(sheetID, id) })
	return pos, ok, err
}

// Export returns the current snapshot document
func (s *Session) Export(ctx context.Context) (snapshot.Document, error) {
	var doc snapshot.Document
	err := s.read(func() { doc = s.codec.Export(ctx, s.store) })
	return doc, err
}

// Import replaces the document. A successful import clears the history
// since snapshot loads are not undoable.
func (s *Session) Import(ctx context.Context, raw interface{}) (snapshot.Result, error) {
	var result snapshot.Result
	err := s.mutate(func() error {
		var err error
		result, err = s.codec.Import(ctx, s.store, raw)
		if err != nil {
			return err
		}
		s.stack.Clear()
		return nil
	})
	return result, err
}

// Reset empties the document and its history
func (s *Session) Reset() error {
	return s.mutate(func() error {
		s.store.Clear()
		s.stack.Reset()
		return nil
	})
}

// Dispose releases the session; every later call fails
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	s.stack.Dispose()
	s.listeners = make(map[int]ports.ChangeListener)
	s.logger.Debug("session disposed")
}
