package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"relmap-backend/application/services"
	"relmap-backend/domain/core/validators"
	"relmap-backend/pkg/common"
	pkgerrors "relmap-backend/pkg/errors"
)

// maxBodyBytes bounds ordinary request bodies; snapshot uploads have their own limit
const maxBodyBytes = 1 << 20

// base carries what every handler needs
type base struct {
	registry *services.SessionRegistry
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

func newBase(registry *services.SessionRegistry, errs *pkgerrors.ErrorHandler, logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{registry: registry, errors: errs, logger: logger}
}

func (b base) session(r *http.Request) (*services.Session, error) {
	return b.registry.Get(chi.URLParam(r, "sid"))
}

// decode reads a JSON body into dst and validates its struct tags
func (b base) decode(r *http.Request, dst interface{}) error {
	return b.decodeBody(r, dst, false)
}

// decodeOptional is decode for bodies that may be empty
func (b base) decodeOptional(r *http.Request, dst interface{}) error {
	return b.decodeBody(r, dst, true)
}

func (b base) decodeBody(r *http.Request, dst interface{}, optional bool) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(dst)
	switch {
	case errors.Is(err, io.EOF) && optional:
	case errors.Is(err, io.EOF):
		return pkgerrors.NewValidationError("EMPTY_BODY", "request body is required")
	case err != nil:
		return pkgerrors.NewValidationError("MALFORMED_BODY", "request body is not valid JSON").WithCause(err)
	}
	return validators.ValidateStruct(dst)
}

// withSession resolves the session named in the path and runs fn on it.
// A nil result answers 204.
func (b base) withSession(w http.ResponseWriter, r *http.Request, status int, fn func(*services.Session) (interface{}, error)) {
	s, err := b.session(r)
	if err != nil {
		b.errors.Handle(w, r, err)
		return
	}
	data, err := fn(s)
	if err != nil {
		b.errors.Handle(w, r, err)
		return
	}
	if data == nil {
		common.RespondNoContent(w)
		return
	}
	common.RespondJSON(w, r, status, data)
}

// CreatedResponse carries the id of a new entity
type CreatedResponse struct {
	ID string `json:"id"`
}
