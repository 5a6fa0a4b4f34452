// Package http exposes the household over a JSON API.
//
// This file holds the response builder and the mapping from domain errors to
// HTTP status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"pocketmoney/internal/core"
	"pocketmoney/internal/log"
	"pocketmoney/internal/services"
)

// ResponseBuilder provides a fluent API for JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error string `json:"error"`
}

func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

var (
	notFoundErrors = []error{
		core.ErrUnknownAccount, core.ErrUnknownGoal, core.ErrUnknownChore, core.ErrUnknownMission,
	}
	badRequestErrors = []error{
		errBadRequest,
		core.ErrInvalidAmount, core.ErrEmptyTitle, core.ErrEmptyDescription, core.ErrEmptyName,
		core.ErrInvalidRole, core.ErrInvalidKind, core.ErrInvalidFrequency, core.ErrInvalidWeekday,
		core.ErrInvalidTheme,
	}
	conflictErrors = []error{
		core.ErrInvalidTransition, core.ErrInsufficientFunds, services.ErrGuardianExists,
	}
	forbiddenErrors = []error{
		core.ErrCardFrozen, core.ErrCategoryBlocked, core.ErrDailyLimitExceeded,
	}
)

// StatusFor maps a command error to its HTTP status.
func StatusFor(err error) int {
	is := func(targets []error) bool {
		for _, t := range targets {
			if errors.Is(err, t) {
				return true
			}
		}
		return false
	}
	switch {
	case is(notFoundErrors):
		return http.StatusNotFound
	case is(badRequestErrors):
		return http.StatusBadRequest
	case is(conflictErrors):
		return http.StatusConflict
	case is(forbiddenErrors):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Unexpected errors are logged and
// hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).LogError(r.Context(), "request failed", err, "request", nil)
		InternalServerError().Write(w)
		return
	}
	ErrorResponse(status, err.Error()).Write(w)
}
