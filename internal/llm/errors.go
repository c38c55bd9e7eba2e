package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/api/googleapi"
)

// ErrorKind classifies a failure of the generation capability.
type ErrorKind string

const (
	KindRateLimited       ErrorKind = "rate_limited"
	KindTimeout           ErrorKind = "timeout"
	KindAuthError         ErrorKind = "auth_error"
	KindMalformedResponse ErrorKind = "malformed_response"
	// KindUnavailable covers transport failures and 5xx answers from the provider.
	KindUnavailable ErrorKind = "unavailable"
)

// GenerationError is returned when the provider could not produce text.
type GenerationError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("generation failed (%s): %s", e.Kind, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether a caller may reasonably try the same request again later.
func (e *GenerationError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindTimeout || e.Kind == KindUnavailable
}

// NewMalformedResponseError reports a response that carried no usable text.
func NewMalformedResponseError(message string) *GenerationError {
	return &GenerationError{Kind: KindMalformedResponse, Message: message}
}

// Classify maps a provider error onto a GenerationError. Errors that are
// already classified are returned unchanged; context cancellation by the
// caller is passed through so it can be told apart from a provider timeout.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &GenerationError{Kind: KindTimeout, Message: "provider call exceeded its deadline", Cause: err}
	}

	if code := statusCode(err); code != 0 {
		return &GenerationError{Kind: kindForStatus(code), Message: fmt.Sprintf("provider returned HTTP %d", code), Cause: err}
	}

	return &GenerationError{Kind: KindUnavailable, Message: "provider call failed", Cause: err}
}

// KindOf returns the kind of a classified error, or "" when err is not a GenerationError.
func KindOf(err error) ErrorKind {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return ""
}

func statusCode(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var claudeErr *anthropic.Error
	if errors.As(err, &claudeErr) {
		return claudeErr.StatusCode
	}
	return 0
}

func kindForStatus(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuthError
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return KindTimeout
	case code >= 500:
		return KindUnavailable
	default:
		return KindMalformedResponse
	}
}
