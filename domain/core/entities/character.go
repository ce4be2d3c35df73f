package entities

// Character is a node of the relationship map.
// Attrs always carries every current tag key; missing values are "".
type Character struct {
	ID        string            `json:"id"`
	Name      string            `json:"name" validate:"notblank"`
	Image     string            `json:"image,omitempty"`
	NodeColor string            `json:"nodeColor,omitempty"`
	TextColor string            `json:"textColor,omitempty"`
	Attrs     map[string]string `json:"attrs"`
}

// CharacterPatch is a partial update. Nil fields are left untouched and
// Attrs is merged key by key. There is deliberately no ID field.
type CharacterPatch struct {
	Name      *string           `json:"name,omitempty" validate:"omitempty,notblank"`
	Image     *string           `json:"image,omitempty"`
	NodeColor *string           `json:"nodeColor,omitempty"`
	TextColor *string           `json:"textColor,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// Clone returns a deep copy
func (c Character) Clone() Character {
	out := c
	out.Attrs = cloneStringMap(c.Attrs)
	return out
}

// Apply returns the character with the patch merged in
func (c Character) Apply(p CharacterPatch) Character {
	next := c.Clone()
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Image != nil {
		next.Image = *p.Image
	}
	if p.NodeColor != nil {
		next.NodeColor = *p.NodeColor
	}
	if p.TextColor != nil {
		next.TextColor = *p.TextColor
	}
	if len(p.Attrs) > 0 && next.Attrs == nil {
		next.Attrs = make(map[string]string, len(p.Attrs))
	}
	for k, v := range p.Attrs {
		next.Attrs[k] = v
	}
	return next
}

// FillAttrs adds an empty value for every key the character lacks
func (c *Character) FillAttrs(keys []string) {
	if c.Attrs == nil {
		c.Attrs = make(map[string]string, len(keys))
	}
	for _, k := range keys {
		if _, ok := c.Attrs[k]; !ok {
			c.Attrs[k] = ""
		}
	}
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
