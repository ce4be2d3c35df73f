package errors

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrorResponse represents the API error response format
type ErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      string                 `json:"type"`
	Code      string                 `json:"code,omitempty"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Errors    []*DomainError         `json:"errors,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ErrorHandler turns errors into JSON responses
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

// NewErrorHandler creates a new error handler. In debug mode unexpected
// errors expose their message.
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{logger: logger, debug: debug}
}

// Handle processes an error and sends an HTTP response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	requestID := middleware.GetReqID(r.Context())

	var (
		status   int
		response ErrorResponse
	)
	switch verrs := GetValidationErrors(err); {
	case verrs != nil:
		status = http.StatusBadRequest
		response = ErrorResponse{
			Error:   true,
			Type:    string(DomainValidationError),
			Code:    "VALIDATION_FAILED",
			Message: verrs.Error(),
			Errors:  verrs.Errors,
		}
		h.logger.Info("request rejected",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
			zap.Int("violations", len(verrs.Errors)),
		)
	case GetDomainError(err) != nil:
		derr := GetDomainError(err)
		status = derr.StatusCode()
		response = ErrorResponse{
			Error:   true,
			Type:    string(derr.Type),
			Code:    derr.Code,
			Message: derr.Message,
			Details: derr.Details,
		}
		if len(response.Details) == 0 {
			response.Details = nil
		}
		h.logger.Info("request failed",
			zap.String("error_type", string(derr.Type)),
			zap.String("error_code", derr.Code),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
			zap.Int("status", status),
		)
	default:
		status = http.StatusInternalServerError
		response = ErrorResponse{
			Error:   true,
			Type:    "INTERNAL_ERROR",
			Message: "An internal error occurred",
		}
		if h.debug {
			response.Message = err.Error()
		}
		h.logger.Error("Unhandled error",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
		)
	}

	response.RequestID = requestID
	h.sendJSON(w, status, response)
}

// HandleStatus sends an error response with a specific status code
func (h *ErrorHandler) HandleStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.logger.Warn("HTTP error",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("message", message),
	)
	h.sendJSON(w, status, ErrorResponse{
		Error:     true,
		Type:      http.StatusText(status),
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func (h *ErrorHandler) sendJSON(w http.ResponseWriter, status int, response ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}
