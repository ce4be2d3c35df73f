package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"relmap-backend/application/services"
	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/core/valueobjects"
	pkgerrors "relmap-backend/pkg/errors"
)

// SheetHandler handles sheets and the per-sheet layout
type SheetHandler struct {
	base
}

// NewSheetHandler creates a new sheet handler
func NewSheetHandler(registry *services.SessionRegistry, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *SheetHandler {
	return &SheetHandler{base: newBase(registry, errs, logger)}
}

// SheetRequest names a sheet
type SheetRequest struct {
	Name string `json:"name" validate:"notblank,max=200"`
}

// LayoutRequest moves many characters at once
type LayoutRequest struct {
	Positions map[string]valueobjects.Position `json:"positions" validate:"required,min=1"`
}

// WaypointsRequest replaces an edge's bend points; an empty list clears them
type WaypointsRequest struct {
	Points []valueobjects.Position `json:"points"`
}

// ListSheets handles GET /sessions/{sid}/sheets
func (h *SheetHandler) ListSheets(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *services.Session) (interface{}, error) {
		state, err := s.State()
		if err != nil {
			return nil, err
		}
		return state.Sheets, nil
	})
}

// CreateSheet handles POST /sessions/{sid}/sheets
func (h *SheetHandler) CreateSheet(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusCreated, func(s *services.Session) (interface{}, error) {
		var req SheetRequest
		if err := h.decode(r, &req); err != nil {
			return nil, err
		}
		id, err := s.CreateSheet(req.Name)
		if err != nil {
			return nil, err
		}
		return CreatedResponse{ID: id}, nil
	})
}

// RenameSheet handles PATCH /sessions/{sid}/sheets/{sheetID}
func (h *SheetHandler) RenameSheet(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusNoContent, func(s *services.Session) (interface{}, error) {
		var req SheetRequest
		if err := h.decode(r, &req); err != nil {
			return nil, err
		}
		return nil, s.RenameSheet(chi.URLParam(r, "sheetID"), req.Name)
	})
}

// DeleteSheet handles DELETE /sessions/{sid}/sheets/{sheetID}
func (h *SheetHandler) DeleteSheet(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusNoContent, func(s *services.Session) (interface{}, error) {
		return nil, s.DeleteSheet(chi.URLParam(r, "sheetID"))
	})
}

// SetVisibility handles PUT /sessions/{sid}/sheets/{sheetID}/visibility
func (h *SheetHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusNoContent, func(s *services.Session) (interface{}, error) {
		var req entities.Visibility
		if err := h.decode(r, &req); err != nil {
			return nil, err
		}
		return nil, s.SetSheetVisibility(chi.URLParam(r, "sheetID"), req)
	})
}

// MoveNode handles PUT /sessions/{sid}/sheets/{sheetID}/positions/{id}
func (h *SheetHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusNoContent, func(s *services.Session) (interface{}, error) {
		var to valueobjects.Position
		if err := h.decode(r, &to); err != nil {
			return nil, err
		}
		return nil, s.MoveNode(chi.URLParam(r, "sheetID"), chi.URLParam(r, "id"), to)
	})
}

// ApplyLayout handles POST /sessions/{sid}/sheets/{sheetID}/layout
func (h *SheetHandler) ApplyLayout(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusNoContent, func(s *services.Session) (interface{}, error) {
		var req LayoutRequest
		if err := h.decode(r, &req); err != nil {
			return nil, err
		}
		return nil, s.ApplyLayout(chi.URLParam(r, "sheetID"), req.Positions)
	})
}

// SetWaypoints handles PUT /sessions/{sid}/sheets/{sheetID}/waypoints/{id}
func (h *SheetHandler) SetWaypoints(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusNoContent, func(s *services.Session) (interface{}, error) {
		var req WaypointsRequest
		if err := h.decode(r, &req); err != nil {
			return nil, err
		}
		return nil, s.SetEdgeWaypoints(chi.URLParam(r, "sheetID"), chi.URLParam(r, "id"), req.Points)
	})
}
