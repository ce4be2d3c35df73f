package commands

import (
	"time"

	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/core/valueobjects"
	pkgerrors "relmap-backend/pkg/errors"
)

// Kind classifies an entry for display and filtering
type Kind string

const (
	KindMove      Kind = "move"
	KindLayout    Kind = "layout"
	KindCharacter Kind = "character"
	KindRelation  Kind = "relation"
	KindGroup     Kind = "group"
	KindIO        Kind = "io"
)

// Scope decides which undo/redo contexts may pick an entry
type Scope string

const (
	ScopeSheet  Scope = "sheet"
	ScopeGlobal Scope = "global"
)

// Meta describes an entry. It is set once by a factory.
type Meta struct {
	Kind    Kind      `json:"kind"`
	Scope   Scope     `json:"scope"`
	SheetID string    `json:"sheetId,omitempty"`
	IDs     []string  `json:"ids,omitempty"`
	TS      time.Time `json:"ts"`
}

// Validate rejects incomplete metadata
func (m Meta) Validate() error {
	errs := pkgerrors.NewValidationErrors()
	switch m.Kind {
	case KindMove, KindLayout, KindCharacter, KindRelation, KindGroup, KindIO:
	case "":
		errs.Add("kind", "kind is required")
	default:
		errs.Add("kind", "unknown kind "+string(m.Kind))
	}
	switch m.Scope {
	case ScopeGlobal:
	case ScopeSheet:
		if m.SheetID == "" {
			errs.Add("sheetId", "sheetId is required for sheet scope")
		}
	case "":
		errs.Add("scope", "scope is required")
	default:
		errs.Add("scope", "unknown scope "+string(m.Scope))
	}
	return errs.OrNil()
}

// Matches reports whether the entry may be picked while the given sheet is
// active: global entries always match, sheet entries only on their sheet.
func (m Meta) Matches(activeSheetID string) bool {
	return m.Scope == ScopeGlobal || (m.Scope == ScopeSheet && m.SheetID == activeSheetID)
}

// Op is one of the operation structs below
type Op interface {
	isOp()
}

// Entry is a reversible unit of history: what happened plus the operation
// data the dispatcher needs to apply or revert it.
type Entry struct {
	Meta Meta `json:"meta"`
	Op   Op   `json:"op"`
}

// Payload is whatever Apply captured for the matching Revert
type Payload interface{}

// LayoutMove is one node's part of a batched layout
type LayoutMove struct {
	ID       string                `json:"id"`
	From     valueobjects.Position `json:"from"`
	To       valueobjects.Position `json:"to"`
	Unplaced bool                  `json:"unplaced,omitempty"`
}

type MoveNodeOp struct {
	SheetID string
	ID      string
	From    valueobjects.Position
	To      valueobjects.Position
}

type ApplyLayoutOp struct {
	SheetID string
	Moves   []LayoutMove
}

// AddCharacterOp optionally places the new character on a sheet
type AddCharacterOp struct {
	Character entities.Character
	SheetID   string
	Position  *valueobjects.Position
}

type UpdateCharacterOp struct {
	ID    string
	Patch entities.CharacterPatch
}

type RemoveCharacterOp struct {
	ID string
}

type AddRelationOp struct {
	Relation entities.RelationInput
}

type UpdateRelationOp struct {
	ID    string
	Patch entities.RelationPatch
}

type RemoveRelationOp struct {
	ID string
}

type SetEdgeWaypointsOp struct {
	SheetID string
	ID      string
	Points  []valueobjects.Position
}

type SetCharacterTagsOp struct {
	Keys []string
}

// TagAction names a single tag key edit
type TagAction string

const (
	TagAdd     TagAction = "add"
	TagRename  TagAction = "rename"
	TagRemove  TagAction = "remove"
	TagReorder TagAction = "reorder"
)

// TagKeyOp edits one tag key, or the key order for TagReorder
type TagKeyOp struct {
	Action TagAction
	Key    string
	NewKey string
	Order  []string
}

type AddGroupOp struct {
	Group entities.Group
}

type UpdateGroupOp struct {
	ID    string
	Patch entities.GroupPatch
}

type RemoveGroupOp struct {
	ID string
}

// GroupMembersOp adds characters to a group, or removes them when Remove is set
type GroupMembersOp struct {
	GroupID string
	IDs     []string
	Remove  bool
}

func (MoveNodeOp) isOp()         {}
func (ApplyLayoutOp) isOp()      {}
func (AddCharacterOp) isOp()     {}
func (UpdateCharacterOp) isOp()  {}
func (RemoveCharacterOp) isOp()  {}
func (AddRelationOp) isOp()      {}
func (UpdateRelationOp) isOp()   {}
func (RemoveRelationOp) isOp()   {}
func (SetEdgeWaypointsOp) isOp() {}
func (SetCharacterTagsOp) isOp() {}
func (TagKeyOp) isOp()           {}
func (AddGroupOp) isOp()         {}
func (UpdateGroupOp) isOp()      {}
func (RemoveGroupOp) isOp()      {}
func (GroupMembersOp) isOp()     {}
