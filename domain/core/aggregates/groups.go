package aggregates

import (
	"strings"

	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/core/validators"
	"relmap-backend/domain/core/valueobjects"
	"relmap-backend/domain/events"
	pkgerrors "relmap-backend/pkg/errors"
)

// GroupRemoval is a removed group and where it sat in the group order
type GroupRemoval struct {
	Group entities.Group `json:"group"`
	Index int            `json:"index"`
}

// GetGroup returns a copy of the group
func (s *Store) GetGroup(id string) (entities.Group, error) {
	g, ok := s.groups[id]
	if !ok {
		return entities.Group{}, pkgerrors.NewNotFoundError("group", id)
	}
	return g.Clone(), nil
}

// ListGroups returns copies of all groups in insertion order
func (s *Store) ListGroups() []entities.Group {
	out := make([]entities.Group, 0, len(s.groupOrder))
	for _, id := range s.groupOrder {
		out = append(out, s.groups[id].Clone())
	}
	return out
}

func (s *Store) checkMembers(ids []string) error {
	for _, id := range ids {
		if !s.ExistsCharacter(id) {
			return pkgerrors.NewInvalidReferenceError("members", id)
		}
	}
	return nil
}

// AddGroup inserts a group and returns its id
func (s *Store) AddGroup(in entities.Group) (string, error) {
	if err := validators.ValidateStruct(in); err != nil {
		return "", err
	}
	if err := s.checkMembers(in.Members); err != nil {
		return "", err
	}
	g := in.Clone()
	g.ID = strings.TrimSpace(g.ID)
	g.Members = dedupe(g.Members)
	if g.Members == nil {
		g.Members = []string{}
	}
	if g.ID == "" {
		g.ID = valueobjects.NewGroupID()
		for s.groups[g.ID] != nil {
			g.ID = valueobjects.NewGroupID()
		}
	} else if _, ok := s.groups[g.ID]; ok {
		return "", pkgerrors.NewDuplicateIDError("group", g.ID)
	}

	s.groups[g.ID] = &g
	s.groupOrder = append(s.groupOrder, g.ID)
	s.changed(events.GroupAdded, g.ID)
	return g.ID, nil
}

// UpdateGroup merges the patch into the group
func (s *Store) UpdateGroup(id string, patch entities.GroupPatch) error {
	cur, ok := s.groups[id]
	if !ok {
		return pkgerrors.NewNotFoundError("group", id)
	}
	if err := validators.ValidateStruct(patch); err != nil {
		return err
	}
	next := cur.Apply(patch)
	s.groups[id] = &next
	s.changed(events.GroupUpdated, id)
	return nil
}

// ReplaceGroup overwrites a group with the given record exactly. Only
// membership is checked.
func (s *Store) ReplaceGroup(g entities.Group) error {
	if _, ok := s.groups[g.ID]; !ok {
		return pkgerrors.NewNotFoundError("group", g.ID)
	}
	if err := s.checkMembers(g.Members); err != nil {
		return err
	}
	next := g.Clone()
	next.Members = dedupe(next.Members)
	s.groups[g.ID] = &next
	s.changed(events.GroupUpdated, g.ID)
	return nil
}

// RemoveGroupByID deletes a group. It returns what was removed, or nil
// when the id is unknown.
func (s *Store) RemoveGroupByID(id string) *GroupRemoval {
	g, ok := s.groups[id]
	if !ok {
		return nil
	}
	removal := &GroupRemoval{Group: g.Clone(), Index: indexOf(s.groupOrder, id)}
	delete(s.groups, id)
	s.groupOrder = removeValue(s.groupOrder, id)
	s.changed(events.GroupRemoved, id)
	return removal
}

// RestoreGroup reinserts a removed group at its former position. Members
// that no longer exist are dropped.
func (s *Store) RestoreGroup(r GroupRemoval) error {
	if r.Group.ID == "" {
		return pkgerrors.NewValidationError("MISSING_ID", "group id is required")
	}
	if _, ok := s.groups[r.Group.ID]; ok {
		return pkgerrors.NewDuplicateIDError("group", r.Group.ID)
	}
	g := r.Group.Clone()
	members := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		if s.ExistsCharacter(m) {
			members = append(members, m)
		}
	}
	g.Members = members
	s.groups[g.ID] = &g
	s.groupOrder = insertAt(s.groupOrder, r.Index, g.ID)
	s.changed(events.GroupAdded, g.ID)
	return nil
}

// AddMembers appends characters to a group, skipping existing members
func (s *Store) AddMembers(groupID string, ids []string) error {
	g, ok := s.groups[groupID]
	if !ok {
		return pkgerrors.NewNotFoundError("group", groupID)
	}
	if err := s.checkMembers(ids); err != nil {
		return err
	}
	g.Members = dedupe(append(append([]string{}, g.Members...), ids...))
	s.changed(events.GroupUpdated, groupID)
	return nil
}

// RemoveMembers drops characters from a group; unknown ids are ignored
func (s *Store) RemoveMembers(groupID string, ids []string) error {
	g, ok := s.groups[groupID]
	if !ok {
		return pkgerrors.NewNotFoundError("group", groupID)
	}
	for _, id := range ids {
		g.Members = removeValue(g.Members, id)
	}
	s.changed(events.GroupUpdated, groupID)
	return nil
}
