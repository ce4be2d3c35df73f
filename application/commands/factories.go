package commands

import (
	"strings"
	"time"

	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/core/valueobjects"
	pkgerrors "relmap-backend/pkg/errors"
)

var timeNow = time.Now

func sheetMeta(kind Kind, sheetID string, ids ...string) Meta {
	return Meta{Kind: kind, Scope: ScopeSheet, SheetID: sheetID, IDs: ids, TS: timeNow()}
}

func globalMeta(kind Kind, ids ...string) Meta {
	return Meta{Kind: kind, Scope: ScopeGlobal, IDs: ids, TS: timeNow()}
}

func requireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.NewValidationError("MISSING_ID", field+" is required").WithDetail("field", field)
	}
	return nil
}

// MoveNode records a node drag on one sheet. Both positions are rounded to
// whole pixels.
func MoveNode(sheetID, id string, from, to valueobjects.Position) (Entry, error) {
	if err := requireID("sheetId", sheetID); err != nil {
		return Entry{}, err
	}
	if err := requireID("id", id); err != nil {
		return Entry{}, err
	}
	if err := valueobjects.ValidatePoints([]valueobjects.Position{from, to}); err != nil {
		return Entry{}, err
	}
	return Entry{
		Meta: sheetMeta(KindMove, sheetID, id),
		Op:   MoveNodeOp{SheetID: sheetID, ID: id, From: from.Rounded(), To: to.Rounded()},
	}, nil
}

// ApplyLayout records many simultaneous moves as a single history slot
func ApplyLayout(sheetID string, moves []LayoutMove) (Entry, error) {
	if err := requireID("sheetId", sheetID); err != nil {
		return Entry{}, err
	}
	ids := make([]string, 0, len(moves))
	rounded := make([]LayoutMove, 0, len(moves))
	for _, m := range moves {
		if err := requireID("id", m.ID); err != nil {
			return Entry{}, err
		}
		if err := valueobjects.ValidatePoints([]valueobjects.Position{m.From, m.To}); err != nil {
			return Entry{}, err
		}
		ids = append(ids, m.ID)
		rounded = append(rounded, LayoutMove{ID: m.ID, From: m.From.Rounded(), To: m.To.Rounded()})
	}
	return Entry{
		Meta: sheetMeta(KindLayout, sheetID, ids...),
		Op:   ApplyLayoutOp{SheetID: sheetID, Moves: rounded},
	}, nil
}

// AddCharacter records a character creation. The id is fixed here so that
// redo recreates the same character later entries refer to. When pos is
// given the character is also placed on sheetID.
func AddCharacter(c entities.Character, sheetID string, pos *valueobjects.Position) (Entry, error) {
	c = c.Clone()
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		c.ID = valueobjects.NewCharacterID()
	}
	op := AddCharacterOp{Character: c}
	if pos != nil {
		if err := requireID("sheetId", sheetID); err != nil {
			return Entry{}, err
		}
		if err := pos.Validate(); err != nil {
			return Entry{}, err
		}
		p := pos.Rounded()
		op.SheetID = sheetID
		op.Position = &p
	}
	return Entry{Meta: globalMeta(KindCharacter, c.ID), Op: op}, nil
}

// UpdateCharacter records a character patch
func UpdateCharacter(id string, patch entities.CharacterPatch) (Entry, error) {
	if err := requireID("id", id); err != nil {
		return Entry{}, err
	}
	return Entry{Meta: globalMeta(KindCharacter, id), Op: UpdateCharacterOp{ID: id, Patch: patch}}, nil
}

// RemoveCharacter records a character delete with its cascade
func RemoveCharacter(id string) (Entry, error) {
	if err := requireID("id", id); err != nil {
		return Entry{}, err
	}
	return Entry{Meta: globalMeta(KindCharacter, id), Op: RemoveCharacterOp{ID: id}}, nil
}

// AddRelation records a relation creation with a fixed id
func AddRelation(in entities.RelationInput) (Entry, error) {
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" {
		in.ID = valueobjects.NewRelationID()
	}
	return Entry{
		Meta: globalMeta(KindRelation, in.ID, in.From, in.To),
		Op:   AddRelationOp{Relation: in},
	}, nil
}

// UpdateRelation records a relation patch
func UpdateRelation(id string, patch entities.RelationPatch) (Entry, error) {
	if err := requireID("id", id); err != nil {
		return Entry{}, err
	}
	return Entry{Meta: globalMeta(KindRelation, id), Op: UpdateRelationOp{ID: id, Patch: patch}}, nil
}

// RemoveRelation records a relation delete
func RemoveRelation(id string) (Entry, error) {
	if err := requireID("id", id); err != nil {
		return Entry{}, err
	}
	return Entry{Meta: globalMeta(KindRelation, id), Op: RemoveRelationOp{ID: id}}, nil
}

// SetEdgeWaypoints records a waypoint edit on one sheet
func SetEdgeWaypoints(sheetID, id string, points []valueobjects.Position) (Entry, error) {
	if err := requireID("sheetId", sheetID); err != nil {
		return Entry{}, err
	}
	if err := requireID("id", id); err != nil {
		return Entry{}, err
	}
	if err := valueobjects.ValidatePoints(points); err != nil {
		return Entry{}, err
	}
	rounded := make([]valueobjects.Position, len(points))
	for i, p := range points {
		rounded[i] = p.Rounded()
	}
	return Entry{
		Meta: sheetMeta(KindMove, sheetID, id),
		Op:   SetEdgeWaypointsOp{SheetID: sheetID, ID: id, Points: rounded},
	}, nil
}

// SetCharacterTags records a tag key set replacement
func SetCharacterTags(keys []string) (Entry, error) {
	return Entry{
		Meta: globalMeta(KindCharacter),
		Op:   SetCharacterTagsOp{Keys: append([]string(nil), keys...)},
	}, nil
}

// AddTagKey records a new tag key
func AddTagKey(key string) (Entry, error) {
	if err := requireID("key", key); err != nil {
		return Entry{}, err
	}
	return Entry{Meta: globalMeta(KindCharacter), Op: TagKeyOp{Action: TagAdd, Key: key}}, nil
}

// RenameTagKey records a tag key rename
func RenameTagKey(oldKey, newKey string) (Entry, error) {
	if err := requireID("key", oldKey); err != nil {
		return Entry{}, err
	}
	if err := requireID("newKey", newKey); err != nil {
		return Entry{}, err
	}
	return Entry{Meta: globalMeta(KindCharacter), Op: TagKeyOp{Action: TagRename, Key: oldKey, NewKey: newKey}}, nil
}

// RemoveTagKey records a tag key removal, values included
func RemoveTagKey(key string) (Entry, error) {
	if err := requireID("key", key); err != nil {
		return Entry{}, err
	}
	return Entry{Meta: globalMeta(KindCharacter), Op: TagKeyOp{Action: TagRemove, Key: key}}, nil
}

// ReorderTagKeys records a new tag key order
func ReorderTagKeys(order []string) (Entry, error) {
	return Entry{
		Meta: globalMeta(KindCharacter),
		Op:   TagKeyOp{Action: TagReorder, Order: append([]string(nil), order...)},
	}, nil
}

// AddGroup records a group creation with a fixed id
func AddGroup(g entities.Group) (Entry, error) {
	g = g.Clone()
	g.ID = strings.TrimSpace(g.ID)
	if g.ID == "" {
		g.ID = valueobjects.NewGroupID()
	}
	return Entry{Meta: globalMeta(KindGroup, g.ID), Op: AddGroupOp{Group: g}}, nil
}

// UpdateGroup records a group patch
func UpdateGroup(id string, patch entities.GroupPatch) (Entry, error) {
	if err := requireID("id", id); err != nil {
		return Entry{}, err
	}
	return Entry{Meta: globalMeta(KindGroup, id), Op: UpdateGroupOp{ID: id, Patch: patch}}, nil
}

// RemoveGroup records a group delete
func RemoveGroup(id string) (Entry, error) {
	if err := requireID("id", id); err != nil {
		return Entry{}, err
	}
	return Entry{Meta: globalMeta(KindGroup, id), Op: RemoveGroupOp{ID: id}}, nil
}

// AddGroupMembers records characters joining a group
func AddGroupMembers(groupID string, ids []string) (Entry, error) {
	return groupMembers(groupID, ids, false)
}

// RemoveGroupMembers records characters leaving a group
func RemoveGroupMembers(groupID string, ids []string) (Entry, error) {
	return groupMembers(groupID, ids, true)
}

func groupMembers(groupID string, ids []string, remove bool) (Entry, error) {
	if err := requireID("groupId", groupID); err != nil {
		return Entry{}, err
	}
	if len(ids) == 0 {
		return Entry{}, pkgerrors.NewValidationError("NO_MEMBERS", "at least one character id is required")
	}
	return Entry{
		Meta: globalMeta(KindGroup, groupID),
		Op:   GroupMembersOp{GroupID: groupID, IDs: append([]string(nil), ids...), Remove: remove},
	}, nil
}
