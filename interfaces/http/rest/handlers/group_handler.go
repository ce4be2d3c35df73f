package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"relmap-backend/application/services"
	"relmap-backend/domain/core/entities"
	pkgerrors "relmap-backend/pkg/errors"
)

// GroupHandler handles group requests
type GroupHandler struct {
	base
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(registry *services.SessionRegistry, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *GroupHandler {
	return &GroupHandler{base: newBase(registry, errs, logger)}
}

// MembersRequest lists the characters joining or leaving a group
type MembersRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,notblank"`
}

// ListGroups handles GET /sessions/{sid}/groups
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *services.Session) (interface{}, error) {
		state, err := s.State()
		if err != nil {
			return nil, err
		}
		return state.Groups, nil
	})
}

// CreateGroup handles POST /sessions/{sid}/groups
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusCreated, func(s *services.Session) (interface{}, error) {
		var req entities.Group
		if err := h.decode(r, &req); err != nil {
			return nil, err
		}
		id, err := s.AddGroup(req)
		if err != nil {
			return nil, err
		}
		return CreatedResponse{ID: id}, nil
	})
}

// UpdateGroup handles PATCH /sessions/{sid}/groups/{id}
func (h *GroupHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusNoContent, func(s *services.Session) (interface{}, error) {
		var patch entities.GroupPatch
		if err := h.decode(r, &patch); err != nil {
			return nil, err
		}
		return nil, s.UpdateGroup(chi.URLParam(r, "id"), patch)
	})
}

// DeleteGroup handles DELETE /sessions/{sid}/groups/{id}
func (h *GroupHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusNoContent, func(s *services.Session) (interface{}, error) {
		return nil, s.RemoveGroup(chi.URLParam(r, "id"))
	})
}

// AddMembers handles POST /sessions/{sid}/groups/{id}/members
func (h *GroupHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	h.members(w, r, (*services.Session).AddGroupMembers)
}

// RemoveMembers handles DELETE /sessions/{sid}/groups/{id}/members
func (h *GroupHandler) RemoveMembers(w http.ResponseWriter, r *http.Request) {
	h.members(w, r, (*services.Session).RemoveGroupMembers)
}

func (h *GroupHandler) members(w http.ResponseWriter, r *http.Request, fn func(*services.Session, string, []string) error) {
	h.withSession(w, r, http.StatusNoContent, func(s *services.Session) (interface{}, error) {
		var req MembersRequest
		if err := h.decode(r, &req); err != nil {
			return nil, err
		}
		return nil, fn(s, chi.URLParam(r, "id"), req.IDs)
	})
}
