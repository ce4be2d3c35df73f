package aggregates

import (
	"time"

	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/core/valueobjects"
	"relmap-backend/domain/events"
	pkgerrors "relmap-backend/pkg/errors"
)

// State is a detached, ordered copy of every record in the store
type State struct {
	CharacterTags []string
	Characters    []entities.Character
	Relations     []entities.Relation
	Sheets        []entities.Sheet
	Groups        []entities.Group
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// State returns a deep copy of the whole store
func (s *Store) State() State {
	return State{
		CharacterTags: s.TagKeys(),
		Characters:    s.ListCharacters(),
		Relations:     s.ListRelations(),
		Sheets:        s.ListSheets(),
		Groups:        s.ListGroups(),
		CreatedAt:     s.createdAt,
		UpdatedAt:     s.updatedAt,
	}
}

// Replace swaps the whole store content for st. Duplicate ids are rejected
// and nothing changes on error. Sheet and group references to unknown ids
// are pruned. Relation endpoints are taken as given.
func (s *Store) Replace(st State) error {
	characters := make(map[string]*entities.Character, len(st.Characters))
	charOrder := make([]string, 0, len(st.Characters))
	tags := dedupe(st.CharacterTags)
	for _, in := range st.Characters {
		if _, ok := characters[in.ID]; ok {
			return pkgerrors.NewDuplicateIDError("character", in.ID)
		}
		c := in.Clone()
		c.FillAttrs(tags)
		characters[c.ID] = &c
		charOrder = append(charOrder, c.ID)
	}

	relations := make(map[string]*entities.Relation, len(st.Relations))
	relOrder := make([]string, 0, len(st.Relations))
	for _, in := range st.Relations {
		if _, ok := relations[in.ID]; ok {
			return pkgerrors.NewDuplicateIDError("relation", in.ID)
		}
		r := in.Clone()
		relations[r.ID] = &r
		relOrder = append(relOrder, r.ID)
	}

	sheets := make(map[string]*entities.Sheet, len(st.Sheets))
	sheetOrder := make([]string, 0, len(st.Sheets))
	for _, in := range st.Sheets {
		if _, ok := sheets[in.ID]; ok {
			return pkgerrors.NewDuplicateIDError("sheet", in.ID)
		}
		sh := pruneSheet(in.Clone(), characters, relations)
		sheets[sh.ID] = &sh
		sheetOrder = append(sheetOrder, sh.ID)
	}
	if len(sheetOrder) == 0 {
		def := entities.NewSheet(valueobjects.DefaultSheetID, DefaultSheetName)
		sheets[def.ID] = &def
		sheetOrder = append(sheetOrder, def.ID)
	}

	groups := make(map[string]*entities.Group, len(st.Groups))
	groupOrder := make([]string, 0, len(st.Groups))
	for _, in := range st.Groups {
		if _, ok := groups[in.ID]; ok {
			return pkgerrors.NewDuplicateIDError("group", in.ID)
		}
		g := in.Clone()
		g.Members = keepKnown(dedupe(g.Members), characters)
		if g.Members == nil {
			g.Members = []string{}
		}
		groups[g.ID] = &g
		groupOrder = append(groupOrder, g.ID)
	}

	s.characters, s.charOrder = characters, charOrder
	s.relations, s.relOrder = relations, relOrder
	s.sheets, s.sheetOrder = sheets, sheetOrder
	s.groups, s.groupOrder = groups, groupOrder
	s.tagKeys = tags
	if !st.CreatedAt.IsZero() {
		s.createdAt = st.CreatedAt
	}
	s.changed(events.StoreReplaced, "")
	return nil
}

func pruneSheet(sh entities.Sheet, characters map[string]*entities.Character, relations map[string]*entities.Relation) entities.Sheet {
	for id := range sh.Positions {
		if _, ok := characters[id]; !ok {
			delete(sh.Positions, id)
		}
	}
	for id := range sh.Waypoints {
		if _, ok := relations[id]; !ok {
			delete(sh.Waypoints, id)
		}
	}
	sh.Visible.Characters = keepKnown(dedupe(sh.Visible.Characters), characters)
	if sh.Visible.Relations != nil {
		kept := make([]string, 0, len(sh.Visible.Relations))
		for _, id := range dedupe(sh.Visible.Relations) {
			if _, ok := relations[id]; ok {
				kept = append(kept, id)
			}
		}
		sh.Visible.Relations = kept
	}
	return sh
}

func keepKnown(ids []string, characters map[string]*entities.Character) []string {
	if ids == nil {
		return nil
	}
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := characters[id]; ok {
			kept = append(kept, id)
		}
	}
	return kept
}
