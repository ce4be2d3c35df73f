package events

import "time"

// DomainEvent is something that has already happened to the map
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields. Version is the store revision
// the change produced.
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Event types
const (
	CharacterAdded    = "character.added"
	CharacterUpdated  = "character.updated"
	CharacterRemoved  = "character.removed"
	CharacterRestored = "character.restored"
	RelationAdded     = "relation.added"
	RelationUpdated   = "relation.updated"
	RelationRemoved   = "relation.removed"
	RelationRestored  = "relation.restored"
	TagsChanged       = "tags.changed"
	SheetCreated      = "sheet.created"
	SheetUpdated      = "sheet.updated"
	SheetDeleted      = "sheet.deleted"
	LayoutChanged     = "layout.changed"
	GroupAdded        = "group.added"
	GroupUpdated      = "group.updated"
	GroupRemoved      = "group.removed"
	StoreReplaced     = "snapshot.imported"
	StoreCleared      = "store.cleared"
)

// EntityChanged is raised for every single-entity mutation
type EntityChanged struct {
	BaseEvent
	EntityID string `json:"entity_id"`
}

// NewEntityChanged creates an EntityChanged event
func NewEntityChanged(eventType, entityID string, revision int, timestamp time.Time) EntityChanged {
	return EntityChanged{
		BaseEvent: BaseEvent{
			AggregateID: entityID,
			EventType:   eventType,
			Timestamp:   timestamp,
			Version:     revision,
		},
		EntityID: entityID,
	}
}

// CharacterDeleted is raised when a character is removed together with
// everything that referenced it
type CharacterDeleted struct {
	BaseEvent
	CharacterID       string   `json:"character_id"`
	CascadedRelations []string `json:"cascaded_relations"`
}

// NewCharacterDeleted creates a CharacterDeleted event
func NewCharacterDeleted(characterID string, cascaded []string, revision int, timestamp time.Time) CharacterDeleted {
	return CharacterDeleted{
		BaseEvent: BaseEvent{
			AggregateID: characterID,
			EventType:   CharacterRemoved,
			Timestamp:   timestamp,
			Version:     revision,
		},
		CharacterID:       characterID,
		CascadedRelations: cascaded,
	}
}

// LayoutMoved is raised when positions or waypoints change on a sheet
type LayoutMoved struct {
	BaseEvent
	SheetID string   `json:"sheet_id"`
	IDs     []string `json:"ids"`
}

// NewLayoutMoved creates a LayoutMoved event
func NewLayoutMoved(sheetID string, ids []string, revision int, timestamp time.Time) LayoutMoved {
	return LayoutMoved{
		BaseEvent: BaseEvent{
			AggregateID: sheetID,
			EventType:   LayoutChanged,
			Timestamp:   timestamp,
			Version:     revision,
		},
		SheetID: sheetID,
		IDs:     ids,
	}
}
