package entities

// RelationStatus is the lifecycle state of a relation
type RelationStatus string

const (
	StatusActive RelationStatus = "active"
	StatusEnded  RelationStatus = "ended"
)

// Defaults applied when a relation is created without them
const (
	DefaultStrength     = 3
	DefaultRelationType = "unspecified"
)

// Relation is a directed (or mutual) edge between two characters
type Relation struct {
	ID        string         `json:"id"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Label     string         `json:"label"`
	Strength  int            `json:"strength"`
	Type      string         `json:"type"`
	Mutual    bool           `json:"mutual"`
	EdgeColor string         `json:"edgeColor,omitempty"`
	TextColor string         `json:"textColor,omitempty"`
	Status    RelationStatus `json:"status"`
}

// RelationInput describes a relation to create. Nil Strength and empty
// Type/Status fall back to the defaults.
type RelationInput struct {
	ID        string         `json:"id,omitempty"`
	From      string         `json:"from" validate:"required"`
	To        string         `json:"to" validate:"required"`
	Label     string         `json:"label,omitempty"`
	Strength  *int           `json:"strength,omitempty"`
	Type      string         `json:"type,omitempty"`
	Mutual    bool           `json:"mutual,omitempty"`
	EdgeColor string         `json:"edgeColor,omitempty"`
	TextColor string         `json:"textColor,omitempty"`
	Status    RelationStatus `json:"status,omitempty" validate:"omitempty,oneof=active ended"`
}

// RelationPatch is a partial update; nil fields are left untouched
type RelationPatch struct {
	From      *string         `json:"from,omitempty" validate:"omitempty,min=1"`
	To        *string         `json:"to,omitempty" validate:"omitempty,min=1"`
	Label     *string         `json:"label,omitempty"`
	Strength  *int            `json:"strength,omitempty"`
	Type      *string         `json:"type,omitempty"`
	Mutual    *bool           `json:"mutual,omitempty"`
	EdgeColor *string         `json:"edgeColor,omitempty"`
	TextColor *string         `json:"textColor,omitempty"`
	Status    *RelationStatus `json:"status,omitempty" validate:"omitempty,oneof=active ended"`
}

// Build turns the input into a record with defaults applied. The id is
// copied as is and may be empty.
func (in RelationInput) Build() Relation {
	r := Relation{
		ID:        in.ID,
		From:      in.From,
		To:        in.To,
		Label:     in.Label,
		Strength:  DefaultStrength,
		Type:      in.Type,
		Mutual:    in.Mutual,
		EdgeColor: in.EdgeColor,
		TextColor: in.TextColor,
		Status:    in.Status,
	}
	if in.Strength != nil {
		r.Strength = *in.Strength
	}
	if r.Type == "" {
		r.Type = DefaultRelationType
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
	return r
}

// Input converts a record back into an equivalent input
func (r Relation) Input() RelationInput {
	strength := r.Strength
	return RelationInput{
		ID:        r.ID,
		From:      r.From,
		To:        r.To,
		Label:     r.Label,
		Strength:  &strength,
		Type:      r.Type,
		Mutual:    r.Mutual,
		EdgeColor: r.EdgeColor,
		TextColor: r.TextColor,
		Status:    r.Status,
	}
}

// Apply returns the relation with the patch merged in
func (r Relation) Apply(p RelationPatch) Relation {
	next := r
	if p.From != nil {
		next.From = *p.From
	}
	if p.To != nil {
		next.To = *p.To
	}
	if p.Label != nil {
		next.Label = *p.Label
	}
	if p.Strength != nil {
		next.Strength = *p.Strength
	}
	if p.Type != nil {
		next.Type = *p.Type
	}
	if p.Mutual != nil {
		next.Mutual = *p.Mutual
	}
	if p.EdgeColor != nil {
		next.EdgeColor = *p.EdgeColor
	}
	if p.TextColor != nil {
		next.TextColor = *p.TextColor
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	return next
}

// Touches reports whether the relation has the character as an endpoint
func (r Relation) Touches(characterID string) bool {
	return r.From == characterID || r.To == characterID
}

// Clone returns a copy; Relation holds no reference fields
func (r Relation) Clone() Relation {
	return r
}
