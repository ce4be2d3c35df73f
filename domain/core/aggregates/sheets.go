package aggregates

import (
	"strings"

	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/core/valueobjects"
	"relmap-backend/domain/events"
	pkgerrors "relmap-backend/pkg/errors"
)

// GetSheet returns a copy of the sheet
func (s *Store) GetSheet(id string) (entities.Sheet, error) {
	sh, ok := s.sheets[id]
	if !ok {
		return entities.Sheet{}, pkgerrors.NewNotFoundError("sheet", id)
	}
	return sh.Clone(), nil
}

// ListSheets returns copies of all sheets in creation order
func (s *Store) ListSheets() []entities.Sheet {
	out := make([]entities.Sheet, 0, len(s.sheetOrder))
	for _, id := range s.sheetOrder {
		out = append(out, s.sheets[id].Clone())
	}
	return out
}

// CreateSheet adds an empty sheet and returns its id
func (s *Store) CreateSheet(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", pkgerrors.NewValidationError("BLANK_NAME", "sheet name is required")
	}
	id := valueobjects.NewSheetID()
	for s.sheets[id] != nil {
		id = valueobjects.NewSheetID()
	}
	sh := entities.NewSheet(id, name)
	s.sheets[id] = &sh
	s.sheetOrder = append(s.sheetOrder, id)
	s.changed(events.SheetCreated, id)
	return id, nil
}

// RenameSheet changes a sheet's name
func (s *Store) RenameSheet(id, name string) error {
	sh, ok := s.sheets[id]
	if !ok {
		return pkgerrors.NewNotFoundError("sheet", id)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return pkgerrors.NewValidationError("BLANK_NAME", "sheet name is required")
	}
	sh.Name = name
	s.changed(events.SheetUpdated, id)
	return nil
}

// DeleteSheet removes a sheet. The last remaining sheet cannot be deleted.
func (s *Store) DeleteSheet(id string) error {
	if _, ok := s.sheets[id]; !ok {
		return pkgerrors.NewNotFoundError("sheet", id)
	}
	if len(s.sheetOrder) == 1 {
		return pkgerrors.NewValidationError("LAST_SHEET", "cannot delete the last sheet")
	}
	delete(s.sheets, id)
	s.sheetOrder = removeValue(s.sheetOrder, id)
	s.changed(events.SheetDeleted, id)
	return nil
}

// NodePosition returns the character's position on the sheet, if any
func (s *Store) NodePosition(sheetID, characterID string) (valueobjects.Position, bool) {
	sh, ok := s.sheets[sheetID]
	if !ok {
		return valueobjects.Position{}, false
	}
	pos, ok := sh.Positions[characterID]
	return pos, ok
}

// SetNodePos places a character on a sheet
func (s *Store) SetNodePos(sheetID, characterID string, pos valueobjects.Position) error {
	sh, ok := s.sheets[sheetID]
	if !ok {
		return pkgerrors.NewNotFoundError("sheet", sheetID)
	}
	if !s.ExistsCharacter(characterID) {
		return pkgerrors.NewNotFoundError("character", characterID)
	}
	if err := pos.Validate(); err != nil {
		return err
	}
	sh.Positions[characterID] = pos
	s.touch(events.NewLayoutMoved(sheetID, []string{characterID}, s.revision+1, s.now()))
	return nil
}

// ClearNodePos removes a character's position from a sheet
func (s *Store) ClearNodePos(sheetID, characterID string) error {
	sh, ok := s.sheets[sheetID]
	if !ok {
		return pkgerrors.NewNotFoundError("sheet", sheetID)
	}
	if _, ok := sh.Positions[characterID]; !ok {
		return nil
	}
	delete(sh.Positions, characterID)
	s.touch(events.NewLayoutMoved(sheetID, []string{characterID}, s.revision+1, s.now()))
	return nil
}

// EdgeWaypoints returns a copy of the relation's waypoints on the sheet
func (s *Store) EdgeWaypoints(sheetID, relationID string) []valueobjects.Position {
	sh, ok := s.sheets[sheetID]
	if !ok {
		return nil
	}
	return entities.ClonePoints(sh.Waypoints[relationID])
}

// SetEdgeWaypoints replaces a relation's waypoints on a sheet. An empty
// list clears them.
func (s *Store) SetEdgeWaypoints(sheetID, relationID string, points []valueobjects.Position) error {
	sh, ok := s.sheets[sheetID]
	if !ok {
		return pkgerrors.NewNotFoundError("sheet", sheetID)
	}
	if !s.ExistsRelation(relationID) {
		return pkgerrors.NewNotFoundError("relation", relationID)
	}
	if err := valueobjects.ValidatePoints(points); err != nil {
		return err
	}
	if len(points) == 0 {
		delete(sh.Waypoints, relationID)
	} else {
		sh.Waypoints[relationID] = entities.ClonePoints(points)
	}
	s.touch(events.NewLayoutMoved(sheetID, []string{relationID}, s.revision+1, s.now()))
	return nil
}

// SetSheetVisibility replaces a sheet's visibility filter. A nil list shows
// everything of that kind.
func (s *Store) SetSheetVisibility(sheetID string, visible entities.Visibility) error {
	sh, ok := s.sheets[sheetID]
	if !ok {
		return pkgerrors.NewNotFoundError("sheet", sheetID)
	}
	for _, id := range visible.Characters {
		if !s.ExistsCharacter(id) {
			return pkgerrors.NewDomainError(pkgerrors.DomainInvalidReferenceError, "UNKNOWN_CHARACTER",
				"visible.characters references an unknown character").WithDetail("id", id)
		}
	}
	for _, id := range visible.Relations {
		if !s.ExistsRelation(id) {
			return pkgerrors.NewDomainError(pkgerrors.DomainInvalidReferenceError, "UNKNOWN_RELATION",
				"visible.relations references an unknown relation").WithDetail("id", id)
		}
	}
	sh.Visible = entities.Visibility{
		Characters: dedupe(visible.Characters),
		Relations:  dedupe(visible.Relations),
	}
	s.changed(events.SheetUpdated, sheetID)
	return nil
}
