package entities

import "relmap-backend/domain/core/valueobjects"

// Visibility filters what a sheet shows. A nil list means everything of
// that kind is visible; an empty list means nothing is.
type Visibility struct {
	Characters []string `json:"characters"`
	Relations  []string `json:"relations"`
}

// Sheet is a named visual layout over the shared characters and relations.
// Every map key is a weak reference and is pruned when the entity goes away.
type Sheet struct {
	ID        string                             `json:"id"`
	Name      string                             `json:"name"`
	Positions map[string]valueobjects.Position   `json:"positions"`
	Waypoints map[string][]valueobjects.Position `json:"waypoints"`
	Visible   Visibility                         `json:"visible"`
}

// NewSheet creates an empty sheet
func NewSheet(id, name string) Sheet {
	return Sheet{
		ID:        id,
		Name:      name,
		Positions: make(map[string]valueobjects.Position),
		Waypoints: make(map[string][]valueobjects.Position),
	}
}

// Clone returns a deep copy
func (s Sheet) Clone() Sheet {
	out := Sheet{ID: s.ID, Name: s.Name}
	out.Positions = make(map[string]valueobjects.Position, len(s.Positions))
	for k, v := range s.Positions {
		out.Positions[k] = v
	}
	out.Waypoints = make(map[string][]valueobjects.Position, len(s.Waypoints))
	for k, v := range s.Waypoints {
		out.Waypoints[k] = ClonePoints(v)
	}
	out.Visible = s.Visible.Clone()
	return out
}

// Clone returns a deep copy that keeps nil lists nil
func (v Visibility) Clone() Visibility {
	return Visibility{
		Characters: cloneStrings(v.Characters),
		Relations:  cloneStrings(v.Relations),
	}
}

// ClonePoints copies a waypoint list
func ClonePoints(points []valueobjects.Position) []valueobjects.Position {
	if points == nil {
		return nil
	}
	out := make([]valueobjects.Position, len(points))
	copy(out, points)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
