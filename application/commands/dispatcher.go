package commands

import (
	"fmt"

	"go.uber.org/zap"

	"relmap-backend/application/ports"
	"relmap-backend/domain/core/aggregates"
	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/core/valueobjects"
	pkgerrors "relmap-backend/pkg/errors"
)

// MovePayload is what a node move captured
type MovePayload struct {
	From valueobjects.Position `json:"from"`
	To   valueobjects.Position `json:"to"`
	// Unplaced means the node had no position on the sheet before the move
	Unplaced bool `json:"unplaced,omitempty"`
}

// Dispatcher interprets entries against the store and the visual projection
type Dispatcher struct {
	store  *aggregates.Store
	view   ports.VisualProjection
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher. A nil view or logger is replaced by a no-op.
func NewDispatcher(store *aggregates.Store, view ports.VisualProjection, logger *zap.Logger) *Dispatcher {
	if view == nil {
		view = ports.NopProjection{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{store: store, view: view, logger: logger}
}

// Apply performs the entry and returns what Revert needs to undo it.
// On error the store is unchanged.
func (d *Dispatcher) Apply(e Entry) (Payload, error) {
	switch op := e.Op.(type) {
	case MoveNodeOp:
		return d.applyMove(op)
	case ApplyLayoutOp:
		return d.applyLayout(op)
	case AddCharacterOp:
		return d.applyAddCharacter(op)
	case UpdateCharacterOp:
		prev, err := d.store.GetCharacter(op.ID)
		if err != nil {
			return nil, err
		}
		if err := d.store.UpdateCharacter(op.ID, op.Patch); err != nil {
			return nil, err
		}
		d.refreshNode(op.ID, false)
		return prev, nil
	case RemoveCharacterOp:
		removal := d.store.RemoveCharacterByID(op.ID)
		if removal == nil {
			return (*aggregates.CharacterRemoval)(nil), nil
		}
		for _, rr := range removal.Relations {
			d.view.RemoveEdge(rr.Relation.ID)
		}
		d.view.RemoveNode(op.ID)
		return removal, nil
	case AddRelationOp:
		id, err := d.store.AddRelation(op.Relation)
		if err != nil {
			return nil, err
		}
		d.refreshEdge(id, true)
		return id, nil
	case UpdateRelationOp:
		prev, err := d.store.GetRelation(op.ID)
		if err != nil {
			return nil, err
		}
		if err := d.store.UpdateRelation(op.ID, op.Patch); err != nil {
			return nil, err
		}
		d.refreshEdge(op.ID, false)
		return prev, nil
	case RemoveRelationOp:
		removal := d.store.RemoveRelationByID(op.ID)
		if removal != nil {
			d.view.RemoveEdge(op.ID)
		}
		return removal, nil
	case SetEdgeWaypointsOp:
		prev := d.store.EdgeWaypoints(op.SheetID, op.ID)
		if err := d.store.SetEdgeWaypoints(op.SheetID, op.ID, op.Points); err != nil {
			return nil, err
		}
		d.view.SetEdgeWaypoints(op.SheetID, op.ID, entities.ClonePoints(op.Points))
		return prev, nil
	case SetCharacterTagsOp:
		prev := d.store.CaptureTags()
		d.store.SetCharacterTags(op.Keys)
		return prev, nil
	case TagKeyOp:
		return d.applyTagKey(op)
	case AddGroupOp:
		return d.store.AddGroup(op.Group)
	case UpdateGroupOp:
		prev, err := d.store.GetGroup(op.ID)
		if err != nil {
			return nil, err
		}
		if err := d.store.UpdateGroup(op.ID, op.Patch); err != nil {
			return nil, err
		}
		return prev, nil
	case RemoveGroupOp:
		return d.store.RemoveGroupByID(op.ID), nil
	case GroupMembersOp:
		prev, err := d.store.GetGroup(op.GroupID)
		if err != nil {
			return nil, err
		}
		if op.Remove {
			err = d.store.RemoveMembers(op.GroupID, op.IDs)
		} else {
			err = d.store.AddMembers(op.GroupID, op.IDs)
		}
		if err != nil {
			return nil, err
		}
		return prev, nil
	default:
		return nil, unknownOp(e.Op)
	}
}

// Revert undoes an entry using the payload its last Apply returned
func (d *Dispatcher) Revert(e Entry, payload Payload) error {
	switch op := e.Op.(type) {
	case MoveNodeOp:
		p, err := payloadAs[MovePayload](payload)
		if err != nil {
			return err
		}
		if p.Unplaced {
			return d.unplaceNode(op.SheetID, op.ID)
		}
		return d.placeNode(op.SheetID, op.ID, p.From)
	case ApplyLayoutOp:
		moves, err := payloadAs[[]LayoutMove](payload)
		if err != nil {
			return err
		}
		for _, m := range moves {
			var err error
			if m.Unplaced {
				err = d.unplaceNode(op.SheetID, m.ID)
			} else {
				err = d.placeNode(op.SheetID, m.ID, m.From)
			}
			if err != nil {
				return err
			}
		}
		return nil
	case AddCharacterOp:
		id, err := payloadAs[string](payload)
		if err != nil {
			return err
		}
		if removal := d.store.RemoveCharacterByID(id); removal != nil {
			for _, rr := range removal.Relations {
				d.view.RemoveEdge(rr.Relation.ID)
			}
			d.view.RemoveNode(id)
		}
		return nil
	case UpdateCharacterOp:
		prev, err := payloadAs[entities.Character](payload)
		if err != nil {
			return err
		}
		if err := d.store.ReplaceCharacter(prev); err != nil {
			return err
		}
		d.refreshNode(prev.ID, false)
		return nil
	case RemoveCharacterOp:
		removal, err := payloadAs[*aggregates.CharacterRemoval](payload)
		if err != nil || removal == nil {
			return err
		}
		if err := d.store.RestoreCharacter(*removal); err != nil {
			return err
		}
		d.refreshNode(removal.Character.ID, true)
		for sheetID, p := range removal.Placements {
			if p.Position != nil {
				d.view.MoveNode(sheetID, removal.Character.ID, *p.Position)
			}
		}
		for _, rr := range removal.Relations {
			d.refreshEdge(rr.Relation.ID, true)
		}
		return nil
	case AddRelationOp:
		id, err := payloadAs[string](payload)
		if err != nil {
			return err
		}
		if d.store.RemoveRelationByID(id) != nil {
			d.view.RemoveEdge(id)
		}
		return nil
	case UpdateRelationOp:
		prev, err := payloadAs[entities.Relation](payload)
		if err != nil {
			return err
		}
		if err := d.store.ReplaceRelation(prev); err != nil {
			return err
		}
		d.refreshEdge(prev.ID, false)
		return nil
	case RemoveRelationOp:
		removal, err := payloadAs[*aggregates.RelationRemoval](payload)
		if err != nil || removal == nil {
			return err
		}
		if err := d.store.RestoreRelation(*removal); err != nil {
			return err
		}
		d.refreshEdge(removal.Relation.ID, true)
		return nil
	case SetEdgeWaypointsOp:
		prev, err := payloadAs[[]valueobjects.Position](payload)
		if err != nil {
			return err
		}
		if err := d.store.SetEdgeWaypoints(op.SheetID, op.ID, prev); err != nil {
			return err
		}
		d.view.SetEdgeWaypoints(op.SheetID, op.ID, entities.ClonePoints(prev))
		return nil
	case SetCharacterTagsOp, TagKeyOp:
		prev, err := payloadAs[aggregates.TagSnapshot](payload)
		if err != nil {
			return err
		}
		d.store.RestoreTags(prev)
		return nil
	case AddGroupOp:
		id, err := payloadAs[string](payload)
		if err != nil {
			return err
		}
		d.store.RemoveGroupByID(id)
		return nil
	case UpdateGroupOp:
		prev, err := payloadAs[entities.Group](payload)
		if err != nil {
			return err
		}
		return d.store.ReplaceGroup(prev)
	case RemoveGroupOp:
		removal, err := payloadAs[*aggregates.GroupRemoval](payload)
		if err != nil || removal == nil {
			return err
		}
		return d.store.RestoreGroup(*removal)
	case GroupMembersOp:
		prev, err := payloadAs[entities.Group](payload)
		if err != nil {
			return err
		}
		return d.store.ReplaceGroup(prev)
	default:
		return unknownOp(e.Op)
	}
}

func (d *Dispatcher) applyTagKey(op TagKeyOp) (Payload, error) {
	prev := d.store.CaptureTags()
	var err error
	switch op.Action {
	case TagAdd:
		err = d.store.AddTagKey(op.Key)
	case TagRename:
		err = d.store.RenameTagKey(op.Key, op.NewKey)
	case TagRemove:
		err = d.store.RemoveTagKey(op.Key)
	case TagReorder:
		err = d.store.ReorderTagKeys(op.Order)
	default:
		err = pkgerrors.NewValidationError("UNKNOWN_TAG_ACTION", "unknown tag action "+string(op.Action))
	}
	if err != nil {
		return nil, err
	}
	return prev, nil
}

func (d *Dispatcher) applyMove(op MoveNodeOp) (Payload, error) {
	_, placed := d.store.NodePosition(op.SheetID, op.ID)
	if err := d.placeNode(op.SheetID, op.ID, op.To); err != nil {
		return nil, err
	}
	return MovePayload{From: op.From, To: op.To, Unplaced: !placed}, nil
}

// applyLayout moves every node that still exists. The captured From is the
// node's position at apply time, so a redo restores against current state.
func (d *Dispatcher) applyLayout(op ApplyLayoutOp) (Payload, error) {
	if _, err := d.store.GetSheet(op.SheetID); err != nil {
		d.logger.Debug("layout skipped, sheet missing", zap.String("sheetId", op.SheetID))
		return []LayoutMove{}, nil
	}
	applied := make([]LayoutMove, 0, len(op.Moves))
	for _, m := range op.Moves {
		if !d.store.ExistsCharacter(m.ID) {
			d.logger.Debug("layout move skipped, character missing", zap.String("id", m.ID))
			continue
		}
		from, placed := d.store.NodePosition(op.SheetID, m.ID)
		if !placed {
			from = m.From
		}
		applied = append(applied, LayoutMove{ID: m.ID, From: from, To: m.To, Unplaced: !placed})
	}
	for _, m := range applied {
		if err := d.placeNode(op.SheetID, m.ID, m.To); err != nil {
			return nil, err
		}
	}
	return applied, nil
}

// unplaceNode takes a node off a sheet again, skipping a missing sheet
func (d *Dispatcher) unplaceNode(sheetID, id string) error {
	err := d.store.ClearNodePos(sheetID, id)
	if pkgerrors.IsNotFound(err) {
		d.logger.Debug("unplace skipped", zap.String("sheetId", sheetID), zap.String("id", id), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}
	d.view.UnplaceNode(sheetID, id)
	return nil
}

// placeNode sets a position, treating a missing sheet or character as a
// skipped move rather than a failure
func (d *Dispatcher) placeNode(sheetID, id string, pos valueobjects.Position) error {
	err := d.store.SetNodePos(sheetID, id, pos)
	if pkgerrors.IsNotFound(err) {
		d.logger.Debug("move skipped", zap.String("sheetId", sheetID), zap.String("id", id), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}
	d.view.MoveNode(sheetID, id, pos)
	return nil
}

func (d *Dispatcher) applyAddCharacter(op AddCharacterOp) (Payload, error) {
	if op.Position != nil {
		if _, err := d.store.GetSheet(op.SheetID); err != nil {
			return nil, err
		}
		if err := op.Position.Validate(); err != nil {
			return nil, err
		}
	}
	id, err := d.store.AddCharacter(op.Character)
	if err != nil {
		return nil, err
	}
	d.refreshNode(id, true)
	if op.Position != nil {
		if err := d.store.SetNodePos(op.SheetID, id, *op.Position); err != nil {
			d.store.RemoveCharacterByID(id)
			d.view.RemoveNode(id)
			return nil, err
		}
		d.view.MoveNode(op.SheetID, id, *op.Position)
	}
	return id, nil
}

func (d *Dispatcher) refreshNode(id string, added bool) {
	c, err := d.store.GetCharacter(id)
	if err != nil {
		return
	}
	if added {
		d.view.AddNode(c)
		return
	}
	d.view.UpdateNode(c)
}

func (d *Dispatcher) refreshEdge(id string, added bool) {
	r, err := d.store.GetRelation(id)
	if err != nil {
		return
	}
	if added {
		d.view.AddEdge(r)
		return
	}
	d.view.UpdateEdge(r)
}

func payloadAs[T any](payload Payload) (T, error) {
	v, ok := payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected payload %T, want %T", payload, zero)
	}
	return v, nil
}

func unknownOp(op Op) error {
	return pkgerrors.NewValidationError("UNKNOWN_OP", fmt.Sprintf("unknown operation %T", op))
}
