package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/section-tailor/internal/ingestion"
	"github.com/jonathan/section-tailor/internal/llm"
	"github.com/jonathan/section-tailor/internal/rendering"
)

// RequestError indicates a malformed or invalid request body
type RequestError struct {
	Message string
	Fields  []string
	Cause   error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("bad request: %s: %v", e.Message, e.Cause)
	}
	return "bad request: " + e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

// newValidationError turns validator failures into a RequestError listing each field.
func newValidationError(err error) *RequestError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestError{Message: "invalid request", Cause: err}
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return &RequestError{Message: "invalid request", Fields: fields}
}

// HTTPStatus returns the status code for an error:
// bad requests 400, malformed sections 422, provider rate limiting 429,
// provider timeouts 504 and any other generation or fetch failure 502.
func HTTPStatus(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest
	}
	var parseErr *rendering.ParseError
	if errors.As(err, &parseErr) {
		return http.StatusUnprocessableEntity
	}
	var genErr *llm.GenerationError
	if errors.As(err, &genErr) {
		switch genErr.Kind {
		case llm.KindRateLimited:
			return http.StatusTooManyRequests
		case llm.KindTimeout:
			return http.StatusGatewayTimeout
		default:
			return http.StatusBadGateway
		}
	}
	switch {
	case errors.Is(err, ingestion.ErrEmptyContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ingestion.ErrHTTPRequestFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// errorCode is the machine-readable "error" field of a response.
func errorCode(err error) string {
	var parseErr *rendering.ParseError
	switch {
	case errors.As(err, new(*RequestError)):
		return "bad_request"
	case errors.As(err, &parseErr):
		return "parse_error"
	case llm.KindOf(err) != "":
		return string(llm.KindOf(err))
	case errors.Is(err, ingestion.ErrEmptyContent):
		return "empty_job_description"
	case errors.Is(err, ingestion.ErrHTTPRequestFailed):
		return "fetch_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "internal_error"
}
