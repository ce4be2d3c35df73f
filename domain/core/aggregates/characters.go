package aggregates

import (
	"strings"

	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/core/validators"
	"relmap-backend/domain/core/valueobjects"
	"relmap-backend/domain/events"
	pkgerrors "relmap-backend/pkg/errors"
)

// Placement records how a removed entity was referenced on one sheet
type Placement struct {
	Position     *valueobjects.Position  `json:"position,omitempty"`
	Waypoints    []valueobjects.Position `json:"waypoints,omitempty"`
	VisibleIndex int                     `json:"visibleIndex"`
}

func (p Placement) empty() bool {
	return p.Position == nil && p.Waypoints == nil && p.VisibleIndex < 0
}

// CharacterRemoval is everything a character delete cascaded over, by value
type CharacterRemoval struct {
	Character  entities.Character   `json:"character"`
	Index      int                  `json:"index"`
	Relations  []RelationRemoval    `json:"relations"`
	Placements map[string]Placement `json:"placements"`
	Groups     map[string]int       `json:"groups"`
}

// GetCharacter returns a copy of the character
func (s *Store) GetCharacter(id string) (entities.Character, error) {
	c, ok := s.characters[id]
	if !ok {
		return entities.Character{}, pkgerrors.NewNotFoundError("character", id)
	}
	return c.Clone(), nil
}

// ExistsCharacter reports whether the id is a known character
func (s *Store) ExistsCharacter(id string) bool {
	_, ok := s.characters[id]
	return ok
}

// ListCharacters returns copies of all characters in insertion order
func (s *Store) ListCharacters() []entities.Character {
	out := make([]entities.Character, 0, len(s.charOrder))
	for _, id := range s.charOrder {
		out = append(out, s.characters[id].Clone())
	}
	return out
}

// AddCharacter inserts a character and returns its id. An empty id is
// generated; attrs are filled for every tag key.
func (s *Store) AddCharacter(in entities.Character) (string, error) {
	if err := validators.ValidateStruct(in); err != nil {
		return "", err
	}
	c := in.Clone()
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		c.ID = s.newCharacterID()
	} else if s.ExistsCharacter(c.ID) {
		return "", pkgerrors.NewDuplicateIDError("character", c.ID)
	}
	c.FillAttrs(s.tagKeys)

	s.characters[c.ID] = &c
	s.charOrder = append(s.charOrder, c.ID)
	s.changed(events.CharacterAdded, c.ID)
	return c.ID, nil
}

func (s *Store) newCharacterID() string {
	for {
		id := valueobjects.NewCharacterID()
		if !s.ExistsCharacter(id) {
			return id
		}
	}
}

// UpdateCharacter merges the patch into the character. Attrs are merged
// key by key and the id never changes.
func (s *Store) UpdateCharacter(id string, patch entities.CharacterPatch) error {
	cur, ok := s.characters[id]
	if !ok {
		return pkgerrors.NewNotFoundError("character", id)
	}
	if err := validators.ValidateStruct(patch); err != nil {
		return err
	}
	next := cur.Apply(patch)
	next.ID = id
	next.FillAttrs(s.tagKeys)
	s.characters[id] = &next
	s.changed(events.CharacterUpdated, id)
	return nil
}

// ReplaceCharacter overwrites a character with the given record exactly.
// Input rules are not rechecked since the record came from the store.
func (s *Store) ReplaceCharacter(c entities.Character) error {
	if _, ok := s.characters[c.ID]; !ok {
		return pkgerrors.NewNotFoundError("character", c.ID)
	}
	next := c.Clone()
	next.FillAttrs(s.tagKeys)
	s.characters[c.ID] = &next
	s.changed(events.CharacterUpdated, c.ID)
	return nil
}

// RemoveCharacterByID deletes the character together with its relations,
// sheet placements, visibility entries and group memberships. It returns
// what was removed, or nil when the id is unknown.
func (s *Store) RemoveCharacterByID(id string) *CharacterRemoval {
	c, ok := s.characters[id]
	if !ok {
		return nil
	}
	removal := &CharacterRemoval{
		Character:  c.Clone(),
		Index:      indexOf(s.charOrder, id),
		Placements: make(map[string]Placement),
		Groups:     make(map[string]int),
	}

	for i, rid := range s.relOrder {
		if s.relations[rid].Touches(id) {
			removal.Relations = append(removal.Relations, s.captureRelation(rid, i))
		}
	}
	cascaded := make([]string, 0, len(removal.Relations))
	for _, rr := range removal.Relations {
		s.dropRelation(rr.Relation.ID)
		cascaded = append(cascaded, rr.Relation.ID)
	}

	for _, sid := range s.sheetOrder {
		sh := s.sheets[sid]
		p := Placement{VisibleIndex: -1}
		if pos, ok := sh.Positions[id]; ok {
			pos := pos
			p.Position = &pos
			delete(sh.Positions, id)
		}
		if i := indexOf(sh.Visible.Characters, id); i >= 0 {
			p.VisibleIndex = i
			sh.Visible.Characters = removeValue(sh.Visible.Characters, id)
		}
		if !p.empty() {
			removal.Placements[sid] = p
		}
	}

	for _, gid := range s.groupOrder {
		g := s.groups[gid]
		if i := indexOf(g.Members, id); i >= 0 {
			removal.Groups[gid] = i
			g.Members = removeValue(g.Members, id)
		}
	}

	delete(s.characters, id)
	s.charOrder = removeValue(s.charOrder, id)
	s.touch(events.NewCharacterDeleted(id, cascaded, s.revision+1, s.now()))
	return removal
}

// RestoreCharacter reinserts a removed character with its relations,
// placements and memberships in one step. Sheets and groups that no longer
// exist are skipped.
func (s *Store) RestoreCharacter(r CharacterRemoval) error {
	id := r.Character.ID
	if id == "" {
		return pkgerrors.NewValidationError("MISSING_ID", "character id is required")
	}
	if s.ExistsCharacter(id) {
		return pkgerrors.NewDuplicateIDError("character", id)
	}
	for _, rr := range r.Relations {
		if s.ExistsRelation(rr.Relation.ID) {
			return pkgerrors.NewDuplicateIDError("relation", rr.Relation.ID)
		}
		if rr.Relation.From != id && !s.ExistsCharacter(rr.Relation.From) {
			return pkgerrors.NewInvalidReferenceError("from", rr.Relation.From)
		}
		if rr.Relation.To != id && !s.ExistsCharacter(rr.Relation.To) {
			return pkgerrors.NewInvalidReferenceError("to", rr.Relation.To)
		}
	}

	c := r.Character.Clone()
	c.FillAttrs(s.tagKeys)
	s.characters[id] = &c
	s.charOrder = insertAt(s.charOrder, r.Index, id)

	for sid, p := range r.Placements {
		sh, ok := s.sheets[sid]
		if !ok {
			continue
		}
		if p.Position != nil {
			sh.Positions[id] = *p.Position
		}
		if p.VisibleIndex >= 0 && sh.Visible.Characters != nil {
			sh.Visible.Characters = insertAt(sh.Visible.Characters, p.VisibleIndex, id)
		}
	}
	for gid, i := range r.Groups {
		if g, ok := s.groups[gid]; ok {
			g.Members = insertAt(g.Members, i, id)
		}
	}
	for _, rr := range r.Relations {
		s.insertRelation(rr)
	}

	s.changed(events.CharacterRestored, id)
	return nil
}
