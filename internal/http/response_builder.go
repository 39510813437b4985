// This file builds JSON responses with a small fluent API.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"tourledger/internal/core"
)

type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write encodes the body before writing any header, so an encoding failure
// still produces a well-formed 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	var payload []byte
	if b.body != nil {
		var err error
		payload, err = json.Marshal(b.body)
		if err != nil {
			slog.Error("Failed to encode response", "error", err)
			b.statusCode = http.StatusInternalServerError
			payload = []byte(`{"error":"Something went wrong!"}`)
		}
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if payload != nil {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(b.statusCode)
	if payload != nil {
		_, _ = w.Write(append(payload, '\n'))
	}
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// ValidationErrorResponse lists every offending field with its message.
func ValidationErrorResponse(v *core.ValidationError) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusUnprocessableEntity).
		Body(errorBody{Error: "Validation failed", Fields: v.Messages()})
}
