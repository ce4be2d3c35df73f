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

// CharacterHandler handles character and tag requests
type CharacterHandler struct {
	base
}

// NewCharacterHandler creates a new character handler
func NewCharacterHandler(registry *services.SessionRegistry, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *CharacterHandler {
	return &CharacterHandler{base: newBase(registry, errs, logger)}
}

// CreateCharacterRequest represents the request body for creating a character.
// When SheetID and Position are both given the character is placed there.
type CreateCharacterRequest struct {
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name" validate:"notblank,max=200"`
	Image     string                 `json:"image,omitempty"`
	NodeColor string                 `json:"nodeColor,omitempty"`
	TextColor string                 `json:"textColor,omitempty"`
	Attrs     map[string]string      `json:"attrs,omitempty"`
	SheetID   string                 `json:"sheetId,omitempty" validate:"required_with=Position"`
	Position  *valueobjects.Position `json:"position,omitempty"`
}

// SetTagsRequest replaces the tag key set, or gives the new order
type SetTagsRequest struct {
	Keys []string `json:"keys" validate:"required,max=100,dive,max=100"`
}

// TagKeyRequest names one tag key
type TagKeyRequest struct {
	Key string `json:"key" validate:"notblank,max=100"`
}

// ListCharacters handles GET /sessions/{sid}/characters
func (h *CharacterHandler) ListCharacters(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *services.Session) (interface{}, error) {
		state, err := s.State()
		if err != nil {
			return nil, err
		}
		return state.Characters, nil
	})
}

// GetCharacter handles GET /sessions/{sid}/characters/{id}
func (h *CharacterHandler) GetCharacter(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *services.Session) (interface{}, error) {
		c, err := s.Character(chi.URLParam(r, "id"))
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// CreateCharacter handles POST /sessions/{sid}/characters
func (h *CharacterHandler) CreateCharacter(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusCreated, func(s *services.Session) (interface{}, error) {
		var req CreateCharacterRequest
		if err := h.decode(r, &req); err != nil {
			return nil, err
		}
		id, err := s.AddCharacter(entities.Character{
			ID:        req.ID,
			Name:      req.Name,
			Image:     req.Image,
			NodeColor: req.NodeColor,
			TextColor: req.TextColor,
			Attrs:     req.Attrs,
		}, req.SheetID, req.Position)
		if err != nil {
			return nil, err
		}
		return CreatedResponse{ID: id}, nil
	})
}

// UpdateCharacter handles PATCH /sessions/{sid}/characters/{id}
func (h *CharacterHandler) UpdateCharacter(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *services.Session) (interface{}, error) {
		var patch entities.CharacterPatch
		if err := h.decode(r, &patch); err != nil {
			return nil, err
		}
		id := chi.URLParam(r, "id")
		if err := s.UpdateCharacter(id, patch); err != nil {
			return nil, err
		}
		return s.Character(id)
	})
}

// DeleteCharacter handles DELETE /sessions/{sid}/characters/{id}
func (h *CharacterHandler) DeleteCharacter(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusNoContent, func(s *services.Session) (interface{}, error) {
		return nil, s.RemoveCharacter(chi.URLParam(r, "id"))
	})
}

// SetTags handles PUT /sessions/{sid}/tags
func (h *CharacterHandler) SetTags(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *services.Session) (interface{}, error) {
		var req SetTagsRequest
		if err := h.decode(r, &req); err != nil {
			return nil, err
		}
		if err := s.SetCharacterTags(req.Keys); err != nil {
			return nil, err
		}
		return tagKeys(s)
	})
}

// AddTag handles POST /sessions/{sid}/tags
func (h *CharacterHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusCreated, func(s *services.Session) (interface{}, error) {
		var req TagKeyRequest
		if err := h.decode(r, &req); err != nil {
			return nil, err
		}
		if err := s.AddTagKey(req.Key); err != nil {
			return nil, err
		}
		return tagKeys(s)
	})
}

// RenameTag handles PATCH /sessions/{sid}/tags/{key}
func (h *CharacterHandler) RenameTag(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *services.Session) (interface{}, error) {
		var req TagKeyRequest
		if err := h.decode(r, &req); err != nil {
			return nil, err
		}
		if err := s.RenameTagKey(chi.URLParam(r, "key"), req.Key); err != nil {
			return nil, err
		}
		return tagKeys(s)
	})
}

// DeleteTag handles DELETE /sessions/{sid}/tags/{key}
func (h *CharacterHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *services.Session) (interface{}, error) {
		if err := s.RemoveTagKey(chi.URLParam(r, "key")); err != nil {
			return nil, err
		}
		return tagKeys(s)
	})
}

// ReorderTags handles PUT /sessions/{sid}/tags/order
func (h *CharacterHandler) ReorderTags(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *services.Session) (interface{}, error) {
		var req SetTagsRequest
		if err := h.decode(r, &req); err != nil {
			return nil, err
		}
		if err := s.ReorderTagKeys(req.Keys); err != nil {
			return nil, err
		}
		return tagKeys(s)
	})
}

func tagKeys(s *services.Session) (interface{}, error) {
	state, err := s.State()
	if err != nil {
		return nil, err
	}
	return state.CharacterTags, nil
}
