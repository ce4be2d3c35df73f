package snapshot

import (
	"fmt"
	"strings"

	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/core/valueobjects"
	pkgerrors "relmap-backend/pkg/errors"
)

// Validate checks a migrated document and returns every problem found.
// With strict set, relation endpoints and group members must resolve to
// characters of the same document.
func Validate(doc Document, strict bool) error {
	errs := pkgerrors.NewValidationErrors()

	chars := make(map[string]bool, len(doc.Characters))
	for i, c := range doc.Characters {
		field := fmt.Sprintf("characters[%d]", i)
		if strings.TrimSpace(c.ID) == "" {
			errs.Add(field+".id", field+": id is required")
			continue
		}
		if chars[c.ID] {
			errs.AddError(pkgerrors.NewDuplicateIDError("character", c.ID).WithDetail("field", field+".id"))
		}
		chars[c.ID] = true
	}

	rels := make(map[string]bool, len(doc.Relations))
	for i, r := range doc.Relations {
		field := fmt.Sprintf("relations[%d]", i)
		if r.ID == "" {
			errs.Add(field+".id", field+": id is required")
		} else if rels[r.ID] {
			errs.AddError(pkgerrors.NewDuplicateIDError("relation", r.ID).WithDetail("field", field+".id"))
		}
		rels[r.ID] = true
		if r.From == "" || r.To == "" {
			errs.Add(field, field+": from and to are required")
			continue
		}
		if r.From == r.To {
			errs.AddError(pkgerrors.NewSelfRelationError(r.ID).WithDetail("field", field))
		}
		if r.Status != entities.StatusActive && r.Status != entities.StatusEnded {
			errs.Add(field+".status", fmt.Sprintf("%s: status must be one of: active ended", field))
		}
		if strict {
			if !chars[r.From] {
				errs.AddError(pkgerrors.NewInvalidReferenceError(field+".from", r.From))
			}
			if !chars[r.To] {
				errs.AddError(pkgerrors.NewInvalidReferenceError(field+".to", r.To))
			}
		}
	}

	sheets := make(map[string]bool, len(doc.Sheets))
	for i, sh := range doc.Sheets {
		field := fmt.Sprintf("sheets[%d]", i)
		if sh.ID == "" {
			errs.Add(field+".id", field+": id is required")
		} else if sheets[sh.ID] {
			errs.AddError(pkgerrors.NewDuplicateIDError("sheet", sh.ID).WithDetail("field", field+".id"))
		}
		sheets[sh.ID] = true
		for id, pos := range sh.Positions {
			if err := pos.Validate(); err != nil {
				errs.Add(field+".positions", fmt.Sprintf("%s: position of %q is not finite", field, id))
			}
		}
		for id, points := range sh.Waypoints {
			if err := valueobjects.ValidatePoints(points); err != nil {
				errs.Add(field+".waypoints", fmt.Sprintf("%s: waypoints of %q are not finite", field, id))
			}
		}
	}

	groups := make(map[string]bool, len(doc.Groups))
	for i, g := range doc.Groups {
		field := fmt.Sprintf("groups[%d]", i)
		if g.ID == "" {
			errs.Add(field+".id", field+": id is required")
		} else if groups[g.ID] {
			errs.AddError(pkgerrors.NewDuplicateIDError("group", g.ID).WithDetail("field", field+".id"))
		}
		groups[g.ID] = true
		if strings.TrimSpace(g.Name) == "" {
			errs.Add(field+".name", field+": name is required")
		}
		if strict {
			for _, m := range g.Members {
				if !chars[m] {
					errs.AddError(pkgerrors.NewInvalidReferenceError(field+".members", m))
				}
			}
		}
	}

	return errs.OrNil()
}
