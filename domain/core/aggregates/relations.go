package aggregates

import (
	"strings"

	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/core/validators"
	"relmap-backend/domain/core/valueobjects"
	"relmap-backend/domain/events"
	pkgerrors "relmap-backend/pkg/errors"
)

// RelationRemoval is a removed relation plus its per-sheet references
type RelationRemoval struct {
	Relation   entities.Relation    `json:"relation"`
	Index      int                  `json:"index"`
	Placements map[string]Placement `json:"placements"`
}

// GetRelation returns a copy of the relation
func (s *Store) GetRelation(id string) (entities.Relation, error) {
	r, ok := s.relations[id]
	if !ok {
		return entities.Relation{}, pkgerrors.NewNotFoundError("relation", id)
	}
	return r.Clone(), nil
}

// ExistsRelation reports whether the id is a known relation
func (s *Store) ExistsRelation(id string) bool {
	_, ok := s.relations[id]
	return ok
}

// ListRelations returns copies of all relations in insertion order
func (s *Store) ListRelations() []entities.Relation {
	out := make([]entities.Relation, 0, len(s.relOrder))
	for _, id := range s.relOrder {
		out = append(out, s.relations[id].Clone())
	}
	return out
}

// ListRelationsByNode returns every relation with the character as an endpoint
func (s *Store) ListRelationsByNode(characterID string) []entities.Relation {
	out := make([]entities.Relation, 0)
	for _, id := range s.relOrder {
		if r := s.relations[id]; r.Touches(characterID) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// ListRelationsByPair returns relations between a and b in either direction
func (s *Store) ListRelationsByPair(a, b string) []entities.Relation {
	out := make([]entities.Relation, 0)
	for _, id := range s.relOrder {
		r := s.relations[id]
		if (r.From == a && r.To == b) || (r.From == b && r.To == a) {
			out = append(out, r.Clone())
		}
	}
	return out
}

func (s *Store) checkEndpoints(r entities.Relation) error {
	if r.From == r.To {
		return pkgerrors.NewSelfRelationError(r.ID)
	}
	if !s.ExistsCharacter(r.From) {
		return pkgerrors.NewInvalidReferenceError("from", r.From)
	}
	if !s.ExistsCharacter(r.To) {
		return pkgerrors.NewInvalidReferenceError("to", r.To)
	}
	return nil
}

// AddRelation inserts a relation with defaults applied and returns its id
func (s *Store) AddRelation(in entities.RelationInput) (string, error) {
	if err := validators.ValidateStruct(in); err != nil {
		return "", err
	}
	r := in.Build()
	r.ID = strings.TrimSpace(r.ID)
	if err := s.checkEndpoints(r); err != nil {
		return "", err
	}
	if r.ID == "" {
		r.ID = s.newRelationID()
	} else if s.ExistsRelation(r.ID) {
		return "", pkgerrors.NewDuplicateIDError("relation", r.ID)
	}

	s.relations[r.ID] = &r
	s.relOrder = append(s.relOrder, r.ID)
	s.changed(events.RelationAdded, r.ID)
	return r.ID, nil
}

func (s *Store) newRelationID() string {
	for {
		id := valueobjects.NewRelationID()
		if !s.ExistsRelation(id) {
			return id
		}
	}
}

// UpdateRelation merges the patch into the relation. Endpoints are
// revalidated when the patch touches them.
func (s *Store) UpdateRelation(id string, patch entities.RelationPatch) error {
	cur, ok := s.relations[id]
	if !ok {
		return pkgerrors.NewNotFoundError("relation", id)
	}
	if err := validators.ValidateStruct(patch); err != nil {
		return err
	}
	next := cur.Apply(patch)
	next.ID = id
	if patch.From != nil || patch.To != nil {
		if err := s.checkEndpoints(next); err != nil {
			return err
		}
	}
	s.relations[id] = &next
	s.changed(events.RelationUpdated, id)
	return nil
}

// ReplaceRelation overwrites a relation with the given record exactly
func (s *Store) ReplaceRelation(r entities.Relation) error {
	if _, ok := s.relations[r.ID]; !ok {
		return pkgerrors.NewNotFoundError("relation", r.ID)
	}
	if r.Status != entities.StatusActive && r.Status != entities.StatusEnded {
		return pkgerrors.NewValidationError("INVALID_STATUS", "status must be one of: active ended")
	}
	if err := s.checkEndpoints(r); err != nil {
		return err
	}
	next := r.Clone()
	s.relations[r.ID] = &next
	s.changed(events.RelationUpdated, r.ID)
	return nil
}

// RemoveRelationByID deletes the relation and its waypoints and visibility
// entries on every sheet. It returns what was removed, or nil when the id
// is unknown.
func (s *Store) RemoveRelationByID(id string) *RelationRemoval {
	if !s.ExistsRelation(id) {
		return nil
	}
	removal := s.captureRelation(id, indexOf(s.relOrder, id))
	s.dropRelation(id)
	s.changed(events.RelationRemoved, id)
	return &removal
}

// RestoreRelation reinserts a removed relation with its sheet references
func (s *Store) RestoreRelation(r RelationRemoval) error {
	if r.Relation.ID == "" {
		return pkgerrors.NewValidationError("MISSING_ID", "relation id is required")
	}
	if s.ExistsRelation(r.Relation.ID) {
		return pkgerrors.NewDuplicateIDError("relation", r.Relation.ID)
	}
	if err := s.checkEndpoints(r.Relation); err != nil {
		return err
	}
	s.insertRelation(r)
	s.changed(events.RelationRestored, r.Relation.ID)
	return nil
}

func (s *Store) captureRelation(id string, index int) RelationRemoval {
	removal := RelationRemoval{
		Relation:   s.relations[id].Clone(),
		Index:      index,
		Placements: make(map[string]Placement),
	}
	for _, sid := range s.sheetOrder {
		sh := s.sheets[sid]
		p := Placement{VisibleIndex: indexOf(sh.Visible.Relations, id)}
		if wp, ok := sh.Waypoints[id]; ok {
			p.Waypoints = entities.ClonePoints(wp)
		}
		if !p.empty() {
			removal.Placements[sid] = p
		}
	}
	return removal
}

func (s *Store) dropRelation(id string) {
	for _, sid := range s.sheetOrder {
		sh := s.sheets[sid]
		delete(sh.Waypoints, id)
		sh.Visible.Relations = removeValue(sh.Visible.Relations, id)
	}
	delete(s.relations, id)
	s.relOrder = removeValue(s.relOrder, id)
}

func (s *Store) insertRelation(r RelationRemoval) {
	rel := r.Relation.Clone()
	s.relations[rel.ID] = &rel
	s.relOrder = insertAt(s.relOrder, r.Index, rel.ID)
	for sid, p := range r.Placements {
		sh, ok := s.sheets[sid]
		if !ok {
			continue
		}
		if p.Waypoints != nil {
			sh.Waypoints[rel.ID] = entities.ClonePoints(p.Waypoints)
		}
		if p.VisibleIndex >= 0 && sh.Visible.Relations != nil {
			sh.Visible.Relations = insertAt(sh.Visible.Relations, p.VisibleIndex, rel.ID)
		}
	}
}
