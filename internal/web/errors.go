package web

// errors.go maps failures to JSON error responses.
//
// The technical error is logged with the request id; the client gets the coded
// user message from core.MapError.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/tsvingest/internal/core"
	"github.com/JonMunkholm/tsvingest/internal/logging"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// requestError is a client mistake reported with its own message.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrFileAccess):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooManyPasses):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrCancelled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped error response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	var resp ErrorResponse
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		resp = ErrorResponse{Error: reqErr.msg, Message: reqErr.msg, Code: "REQ001"}
	} else {
		msg := core.MapError(err)
		resp = ErrorResponse{Error: msg.Message, Message: msg.Message, Action: msg.Action, Code: msg.Code}
	}

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", resp.Code,
	)

	writeJSON(w, r, status, resp)
}
