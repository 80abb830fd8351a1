// Package http is the JSON presentation adapter over the ledger and the
// identity provider.
//
// This file holds the builder used by every handler to assemble a response:
// status, JSON body and the HX-Trigger header listing client-side events.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
)

// Client-side events announced through HX-Trigger.
const (
	EventTransactionCreated = "transaction:created"
	EventTransactionDeleted = "transaction:deleted"
	EventSessionChanged     = "session:changed"
)

// ResponseBuilder provides a fluent API for JSON responses.
type ResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       any
	headers    map[string]string
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event with optional data to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	if data == nil {
		data = struct{}{}
	}
	b.triggers[name] = data
	return b
}

// TriggerTransactionCreated announces a new transaction in the given bucket.
func (b *ResponseBuilder) TriggerTransactionCreated(id string, p core.Period) *ResponseBuilder {
	return b.Trigger(EventTransactionCreated, map[string]any{"id": id, "year": p.Year, "month": p.Month})
}

func (b *ResponseBuilder) TriggerTransactionDeleted(id string) *ResponseBuilder {
	return b.Trigger(EventTransactionDeleted, map[string]any{"id": id})
}

func (b *ResponseBuilder) TriggerSessionChanged(signedIn bool) *ResponseBuilder {
	return b.Trigger(EventSessionChanged, map[string]bool{"signed_in": signedIn})
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets a value to be encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		if raw, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(raw))
		}
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// ErrorResponse builds a JSON error with an explicit status.
func ErrorResponse(status int, kind, message string) *ResponseBuilder {
	return NewResponse().Status(status).JSON(errorBody{Error: message, Kind: kind})
}

// classify maps the error taxonomy onto a status code and log error type.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity, applog.ErrorTypeValidation
	case errors.Is(err, core.ErrInvalidArgument):
		return http.StatusUnprocessableEntity, applog.ErrorTypeInvalidArgument
	case errors.Is(err, core.ErrAuth):
		return http.StatusUnauthorized, applog.ErrorTypeAuth
	case errors.Is(err, core.ErrRemote):
		return http.StatusBadGateway, applog.ErrorTypeRemote
	default:
		return http.StatusInternalServerError, applog.ErrorTypeInternal
	}
}

// FromError builds the response for err. Internal and remote failures get a
// generic message so store details never reach the client.
func FromError(err error) *ResponseBuilder {
	status, kind := classify(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		msg = "internal error"
	case http.StatusBadGateway:
		msg = "data store unavailable"
	}
	return ErrorResponse(status, kind, msg)
}

func MethodNotAllowed(allowed string) *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed").Header("Allow", allowed)
}
