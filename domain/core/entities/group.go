package entities

// Group is a named, colored set of characters
type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name" validate:"notblank"`
	Color   string   `json:"color,omitempty"`
	Members []string `json:"members"`
}

// GroupPatch is a partial update; nil fields are left untouched
type GroupPatch struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,notblank"`
	Color *string `json:"color,omitempty"`
}

// Clone returns a deep copy
func (g Group) Clone() Group {
	out := g
	out.Members = cloneStrings(g.Members)
	return out
}

// Apply returns the group with the patch merged in
func (g Group) Apply(p GroupPatch) Group {
	next := g.Clone()
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Color != nil {
		next.Color = *p.Color
	}
	return next
}

// HasMember reports whether the character belongs to the group
func (g Group) HasMember(characterID string) bool {
	for _, m := range g.Members {
		if m == characterID {
			return true
		}
	}
	return false
}
