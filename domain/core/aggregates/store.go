package aggregates

import (
	"time"

	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/core/valueobjects"
	"relmap-backend/domain/events"
)

// DefaultSheetName is the name of the sheet every store starts with
const DefaultSheetName = "Default"

// Store is the aggregate root owning characters, relations, tag keys,
// sheets and groups. Every mutator either succeeds completely or leaves
// the store untouched.
type Store struct {
	characters map[string]*entities.Character
	charOrder  []string
	relations  map[string]*entities.Relation
	relOrder   []string
	tagKeys    []string
	sheets     map[string]*entities.Sheet
	sheetOrder []string
	groups     map[string]*entities.Group
	groupOrder []string

	createdAt time.Time
	updatedAt time.Time
	revision  int
	events    []events.DomainEvent
	now       func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used for timestamps and events
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty store holding only the default sheet
func NewStore(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.reset()
	return s
}

func (s *Store) reset() {
	now := s.now()
	def := entities.NewSheet(valueobjects.DefaultSheetID, DefaultSheetName)
	s.characters = make(map[string]*entities.Character)
	s.charOrder = nil
	s.relations = make(map[string]*entities.Relation)
	s.relOrder = nil
	s.tagKeys = nil
	s.sheets = map[string]*entities.Sheet{def.ID: &def}
	s.sheetOrder = []string{def.ID}
	s.groups = make(map[string]*entities.Group)
	s.groupOrder = nil
	s.createdAt = now
	s.updatedAt = now
}

// Clear drops every record and restores the default sheet
func (s *Store) Clear() {
	s.reset()
	s.touch(events.NewEntityChanged(events.StoreCleared, "", s.revision+1, s.updatedAt))
}

// Revision is incremented by every successful mutation
func (s *Store) Revision() int {
	return s.revision
}

// CreatedAt returns when the document was created
func (s *Store) CreatedAt() time.Time {
	return s.createdAt
}

// UpdatedAt returns the time of the last mutation
func (s *Store) UpdatedAt() time.Time {
	return s.updatedAt
}

// PullEvents returns and clears the recorded domain events
func (s *Store) PullEvents() []events.DomainEvent {
	out := s.events
	s.events = nil
	return out
}

// touch records a committed mutation. The event must already carry the
// next revision.
func (s *Store) touch(event events.DomainEvent) {
	s.revision++
	s.updatedAt = s.now()
	s.events = append(s.events, event)
}

func (s *Store) changed(eventType, id string) {
	s.touch(events.NewEntityChanged(eventType, id, s.revision+1, s.now()))
}

// Stats summarizes the store contents
type Stats struct {
	Characters int `json:"characters"`
	Relations  int `json:"relations"`
	TagKeys    int `json:"tagKeys"`
	Sheets     int `json:"sheets"`
	Groups     int `json:"groups"`
}

// Stats returns entity counts
func (s *Store) Stats() Stats {
	return Stats{
		Characters: len(s.charOrder),
		Relations:  len(s.relOrder),
		TagKeys:    len(s.tagKeys),
		Sheets:     len(s.sheetOrder),
		Groups:     len(s.groupOrder),
	}
}

func indexOf(list []string, id string) int {
	for i, v := range list {
		if v == id {
			return i
		}
	}
	return -1
}

func removeValue(list []string, id string) []string {
	if i := indexOf(list, id); i >= 0 {
		return append(list[:i:i], list[i+1:]...)
	}
	return list
}

// insertAt places id at index i, clamped to the list bounds
func insertAt(list []string, i int, id string) []string {
	if i < 0 || i > len(list) {
		i = len(list)
	}
	out := make([]string, 0, len(list)+1)
	out = append(out, list[:i]...)
	out = append(out, id)
	return append(out, list[i:]...)
}

func dedupe(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
