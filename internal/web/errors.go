package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler gets an error from the service
//  2. Calls s.respondError(w, r, err)
//  3. statusFor picks the HTTP status from the error's type
//  4. core.MapError supplies the user message and code
//  5. The technical error is logged with the request ID for correlation

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/gamevault/internal/core"
	"github.com/JonMunkholm/gamevault/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`

	// Set for duplicate rejections so clients can link the existing game.
	Exists  bool                 `json:"exists,omitempty"`
	Reason  core.DuplicateReason `json:"reason,omitempty"`
	MatchID int64                `json:"match_id,omitempty"`
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	var ve core.ValidationError
	var rateErr *core.InvalidRateError
	var dup *core.DuplicateError
	switch {
	case errors.Is(err, core.ErrImportTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &ve), errors.As(err, &rateErr), errors.Is(err, core.ErrMalformedImport):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &dup), errors.Is(err, core.ErrReferential), errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError logs the technical error server-side and writes the mapped
// user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request rejected", attrs...)
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}

	var ve core.ValidationError
	var dup *core.DuplicateError
	switch {
	case errors.As(err, &ve):
		resp.Error = ve.Error()
		resp.Field = ve.Field
	case errors.As(err, &dup):
		resp.Error = dup.Result.Message
		resp.Exists = true
		resp.Reason = dup.Result.Reason
		resp.MatchID = dup.Result.MatchID
	}

	writeJSON(w, status, resp)
}
