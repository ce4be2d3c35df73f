package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"relmap-backend/application/services"
	"relmap-backend/domain/core/entities"
	pkgerrors "relmap-backend/pkg/errors"
)

// RelationHandler handles relation requests
type RelationHandler struct {
	base
}

// NewRelationHandler creates a new relation handler
func NewRelationHandler(registry *services.SessionRegistry, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *RelationHandler {
	return &RelationHandler{base: newBase(registry, errs, logger)}
}

// ListRelations handles GET /sessions/{sid}/relations. ?node=ID keeps the
// relations touching that character; adding &with=ID keeps only those
// between the two.
func (h *RelationHandler) ListRelations(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *services.Session) (interface{}, error) {
		q := r.URL.Query()
		node, with := q.Get("node"), q.Get("with")
		switch {
		case node != "" && with != "":
			return s.RelationsBetween(node, with)
		case node != "":
			return s.RelationsByNode(node)
		case with != "":
			return nil, pkgerrors.NewValidationError("MISSING_NODE", "with requires node")
		}
		state, err := s.State()
		if err != nil {
			return nil, err
		}
		return state.Relations, nil
	})
}

// GetRelation handles GET /sessions/{sid}/relations/{id}
func (h *RelationHandler) GetRelation(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *services.Session) (interface{}, error) {
		return s.Relation(chi.URLParam(r, "id"))
	})
}

// CreateRelation handles POST /sessions/{sid}/relations
func (h *RelationHandler) CreateRelation(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusCreated, func(s *services.Session) (interface{}, error) {
		var req entities.RelationInput
		if err := h.decode(r, &req); err != nil {
			return nil, err
		}
		id, err := s.AddRelation(req)
		if err != nil {
			return nil, err
		}
		return CreatedResponse{ID: id}, nil
	})
}

// UpdateRelation handles PATCH /sessions/{sid}/relations/{id}
func (h *RelationHandler) UpdateRelation(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *services.Session) (interface{}, error) {
		var patch entities.RelationPatch
		if err := h.decode(r, &patch); err != nil {
			return nil, err
		}
		id := chi.URLParam(r, "id")
		if err := s.UpdateRelation(id, patch); err != nil {
			return nil, err
		}
		return s.Relation(id)
	})
}

// DeleteRelation handles DELETE /sessions/{sid}/relations/{id}
func (h *RelationHandler) DeleteRelation(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusNoContent, func(s *services.Session) (interface{}, error) {
		return nil, s.RemoveRelation(chi.URLParam(r, "id"))
	})
}
