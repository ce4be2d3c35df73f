package history

import (
	"time"

	"go.uber.org/zap"

	"relmap-backend/application/commands"
	pkgerrors "relmap-backend/pkg/errors"
)

// DefaultLimit is the number of entries kept before the oldest is evicted
const DefaultLimit = 100

// Mode selects how undo/redo pick their target
type Mode string

const (
	// ModeGlobal takes the adjacent entry whatever its scope
	ModeGlobal Mode = "global"
	// ModeSheet takes the nearest global entry or entry of the active sheet
	ModeSheet Mode = "sheet"
)

// Context carries the caller's view state for sheet mode
type Context struct {
	ActiveSheetID string `json:"activeSheetId"`
}

// Metrics receives stack measurements
type Metrics interface {
	ObserveApply(phase, kind string, duration time.Duration, err error)
	ObserveStack(op string, length, index int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveApply(string, string, time.Duration, error) {}
func (nopMetrics) ObserveStack(string, int, int)                     {}

var errDisposed = pkgerrors.NewValidationError("STACK_DISPOSED", "history has been disposed")

type record struct {
	entry   commands.Entry
	payload commands.Payload
}

// Stack is a linear, branch-free history. index points at the last applied
// entry and always satisfies -1 <= index <= len(records)-1.
type Stack struct {
	applier  Applier
	records  []record
	index    int
	limit    int
	ver      int
	disposed bool
	logger   *zap.Logger
	metrics  Metrics
	now      func() time.Time
}

// Option configures a Stack
type Option func(*Stack)

// WithLimit sets the capacity; values below 1 are ignored
func WithLimit(limit int) Option {
	return func(s *Stack) {
		if limit >= 1 {
			s.limit = limit
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Stack) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(metrics Metrics) Option {
	return func(s *Stack) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithClock sets the time source used to stamp entries without a timestamp
func WithClock(now func() time.Time) Option {
	return func(s *Stack) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStack creates an empty history over applier
func NewStack(applier Applier, opts ...Option) *Stack {
	s := &Stack{
		applier: applier,
		index:   -1,
		limit:   DefaultLimit,
		logger:  zap.NewNop(),
		metrics: nopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute applies the entry and records it, discarding any redo entries.
// If Apply fails nothing is recorded and the history is unchanged.
func (s *Stack) Execute(e commands.Entry) error {
	if s.disposed {
		return errDisposed
	}
	if err := e.Meta.Validate(); err != nil {
		return err
	}
	if e.Meta.TS.IsZero() {
		e.Meta.TS = s.now()
	}

	payload, err := s.applier.Apply(e)
	if err != nil {
		return err
	}

	if s.index < len(s.records)-1 {
		s.records = s.records[:s.index+1]
	}
	s.records = append(s.records, record{entry: e, payload: payload})
	if len(s.records) > s.limit {
		evict := len(s.records) - s.limit
		s.records = append([]record(nil), s.records[evict:]...)
	}
	s.index = len(s.records) - 1
	s.ver++

	s.trace("execute", e.Meta)
	return nil
}

// Undo reverts the target entry and reports whether one was found.
// In sheet mode non-matching entries are skipped and stay in place.
// If Revert fails the index is left unchanged.
func (s *Stack) Undo(mode Mode, ctx Context) (bool, error) {
	if s.disposed {
		return false, errDisposed
	}
	if s.index < 0 {
		return false, nil
	}
	target := s.index
	if mode == ModeSheet {
		target = -1
		for i := s.index; i >= 0; i-- {
			if s.records[i].entry.Meta.Matches(ctx.ActiveSheetID) {
				target = i
				break
			}
		}
		if target < 0 {
			s.noMatch("undo", ctx)
			return false, nil
		}
	}

	rec := s.records[target]
	if err := s.applier.Revert(rec.entry, rec.payload); err != nil {
		return false, err
	}
	s.index = target - 1
	s.ver++

	s.trace("undo", rec.entry.Meta)
	return true, nil
}

// Redo reapplies the target entry and reports whether one was found. The
// payload is recomputed and replaces the stored one. If Apply fails the
// index is left unchanged.
func (s *Stack) Redo(mode Mode, ctx Context) (bool, error) {
	if s.disposed {
		return false, errDisposed
	}
	if s.index >= len(s.records)-1 {
		return false, nil
	}
	target := s.index + 1
	if mode == ModeSheet {
		target = -1
		for i := s.index + 1; i < len(s.records); i++ {
			if s.records[i].entry.Meta.Matches(ctx.ActiveSheetID) {
				target = i
				break
			}
		}
		if target < 0 {
			s.noMatch("redo", ctx)
			return false, nil
		}
	}

	rec := &s.records[target]
	payload, err := s.applier.Apply(rec.entry)
	if err != nil {
		return false, err
	}
	rec.payload = payload
	s.index = target
	s.ver++

	s.trace("redo", rec.entry.Meta)
	return true, nil
}

// CanUndo reports whether any entry is applied
func (s *Stack) CanUndo() bool {
	return s.index >= 0
}

// CanRedo reports whether any entry lies beyond the index
func (s *Stack) CanRedo() bool {
	return s.index < len(s.records)-1
}

// Len returns the number of recorded entries
func (s *Stack) Len() int {
	return len(s.records)
}

// Index returns the position of the last applied entry, or -1
func (s *Stack) Index() int {
	return s.index
}

// Limit returns the capacity
func (s *Stack) Limit() int {
	return s.limit
}

// Clear drops every entry
func (s *Stack) Clear() {
	s.records = nil
	s.index = -1
	s.ver++
	s.metrics.ObserveStack("clear", 0, -1)
}

// Reset clears the history, restarts the version counter and makes a
// disposed stack usable again
func (s *Stack) Reset() {
	s.Clear()
	s.ver = 0
	s.disposed = false
}

// Dispose clears the history; any further Execute, Undo or Redo fails
func (s *Stack) Dispose() {
	s.Clear()
	s.disposed = true
}

// Item is one entry of the diagnostic dump
type Item struct {
	I    int           `json:"i"`
	Meta commands.Meta `json:"meta"`
}

// Meta is the diagnostic dump of the history
type Meta struct {
	Ver    int    `json:"ver"`
	Length int    `json:"length"`
	Index  int    `json:"index"`
	Items  []Item `json:"items"`
}

// HistoryMeta returns every entry's metadata together with the index
func (s *Stack) HistoryMeta() Meta {
	items := make([]Item, len(s.records))
	for i, r := range s.records {
		items[i] = Item{I: i, Meta: r.entry.Meta}
	}
	return Meta{Ver: s.ver, Length: len(s.records), Index: s.index, Items: items}
}

func (s *Stack) trace(op string, meta commands.Meta) {
	s.logger.Debug("history "+op,
		zap.String("kind", string(meta.Kind)),
		zap.String("scope", string(meta.Scope)),
		zap.String("sheetId", meta.SheetID),
		zap.Int("length", len(s.records)),
		zap.Int("index", s.index),
	)
	s.metrics.ObserveStack(op, len(s.records), s.index)
}

func (s *Stack) noMatch(op string, ctx Context) {
	s.logger.Debug("history "+op+" no-match",
		zap.String("activeSheetId", ctx.ActiveSheetID),
		zap.Int("length", len(s.records)),
		zap.Int("index", s.index),
	)
	s.metrics.ObserveStack(op+"_nomatch", len(s.records), s.index)
}
