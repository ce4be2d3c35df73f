package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"relmap-backend/application/history"
	"relmap-backend/application/services"
	"relmap-backend/infrastructure/persistence/snapshot"
	"relmap-backend/pkg/common"
	pkgerrors "relmap-backend/pkg/errors"
)

// ImportObserver is told about every snapshot import
type ImportObserver interface {
	ObserveImport(fromVersion int, err error)
}

// SessionHandler handles session lifecycle, history and snapshot requests
type SessionHandler struct {
	base
	codec     *snapshot.Codec
	autosaver *services.Autosaver
	observer  ImportObserver
}

// NewSessionHandler creates a new session handler. autosaver and observer
// may be nil.
func NewSessionHandler(
	registry *services.SessionRegistry,
	codec *snapshot.Codec,
	autosaver *services.Autosaver,
	observer ImportObserver,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		base:      newBase(registry, errs, logger),
		codec:     codec,
		autosaver: autosaver,
		observer:  observer,
	}
}

// SessionResponse describes an open session
type SessionResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
}

// HistoryRequest selects the undo/redo mode
type HistoryRequest struct {
	Mode          history.Mode `json:"mode,omitempty" validate:"omitempty,oneof=global sheet"`
	ActiveSheetID string       `json:"activeSheetId,omitempty" validate:"required_if=Mode sheet"`
}

// HistoryResponse reports an undo/redo outcome
type HistoryResponse struct {
	Done    bool                   `json:"done"`
	History services.HistoryStatus `json:"history"`
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.registry.Create()
	common.RespondJSON(w, r, http.StatusCreated, SessionResponse{
		ID:        s.ID(),
		CreatedAt: s.CreatedAt().UTC().Format(time.RFC3339),
	})
}

// GetSession handles GET /sessions/{sid}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	state, err := s.State()
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, state)
}

// DeleteSession handles DELETE /sessions/{sid}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err == nil {
		err = h.registry.Delete(s.ID())
	}
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondNoContent(w)
}

// ResetSession handles POST /sessions/{sid}/reset
func (h *SessionHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err == nil {
		err = s.Reset()
	}
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondNoContent(w)
}

// Undo handles POST /sessions/{sid}/undo
func (h *SessionHandler) Undo(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*services.Session).Undo)
}

// Redo handles POST /sessions/{sid}/redo
func (h *SessionHandler) Redo(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*services.Session).Redo)
}

func (h *SessionHandler) step(w http.ResponseWriter, r *http.Request, fn func(*services.Session, history.Mode, history.Context) (bool, error)) {
	s, err := h.session(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	var req HistoryRequest
	if err := h.decodeOptional(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if req.Mode == "" {
		req.Mode = history.ModeGlobal
	}

	done, err := fn(s, req.Mode, history.Context{ActiveSheetID: req.ActiveSheetID})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	status, err := s.History()
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, HistoryResponse{Done: done, History: status})
}

// GetHistory handles GET /sessions/{sid}/history
func (h *SessionHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	status, err := s.History()
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, status)
}

// ExportSnapshot handles GET /sessions/{sid}/snapshot. The document is sent
// bare so the browser can save it as a file.
func (h *SessionHandler) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	doc, err := s.Export(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.codec.Encode(&buf, doc); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snapshot.FileName(doc.Version)))
	common.RespondRaw(w, http.StatusOK, "application/json", buf.Bytes())
}

// ImportSnapshot handles PUT /sessions/{sid}/snapshot
func (h *SessionHandler) ImportSnapshot(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	result, err := s.Import(r.Context(), r.Body)
	if h.observer != nil {
		h.observer.ObserveImport(result.FromVersion, err)
	}
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, result)
}

// ValidateSnapshot handles POST /snapshots/validate: a dry run of an import
func (h *SessionHandler) ValidateSnapshot(w http.ResponseWriter, r *http.Request) {
	_, result, err := h.codec.Prepare(r.Context(), r.Body)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, result)
}

var errAutosaveDisabled = pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError,
	"AUTOSAVE_DISABLED", "autosave is not configured")

// ListAutosaves handles GET /autosaves
func (h *SessionHandler) ListAutosaves(w http.ResponseWriter, r *http.Request) {
	if h.autosaver == nil {
		h.errors.Handle(w, r, errAutosaveDisabled)
		return
	}
	keys, err := h.autosaver.Keys(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, keys)
}

// OpenAutosave handles POST /autosaves/{key}/open: a new session holding
// the saved snapshot
func (h *SessionHandler) OpenAutosave(w http.ResponseWriter, r *http.Request) {
	if h.autosaver == nil {
		h.errors.Handle(w, r, errAutosaveDisabled)
		return
	}
	s, err := h.autosaver.Restore(r.Context(), h.registry, chi.URLParam(r, "key"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusCreated, SessionResponse{
		ID:        s.ID(),
		CreatedAt: s.CreatedAt().UTC().Format(time.RFC3339),
	})
}
