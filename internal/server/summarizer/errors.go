package summarizer

import (
	"errors"
	"net/http"
)

var (
	ErrNotConfigured  = errors.New("AI Service not configured")
	ErrUsageLimit     = errors.New("usage limit reached")
	ErrBadRequest     = errors.New("bad request to backend")
	ErrServiceFailure = errors.New("backend failure")
)

// User-facing messages. They never carry backend internals except for the
// bad-request case, where the backend explains what it rejected.
const (
	MessageUsageLimit     = "API usage limit reached or payment required. Please check your AI service account."
	MessageServiceFailure = "AI service request failed. Please try again later."
	MessageNoSummary      = "Could not generate summary."
	badRequestPrefix      = "Invalid request to AI service: "
)

// Error is a classified backend failure. Kind is one of the sentinels above
// and is reachable through errors.Is.
type Error struct {
	Kind    error
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func usageLimit() *Error {
	return &Error{Kind: ErrUsageLimit, Status: http.StatusPaymentRequired, Message: MessageUsageLimit}
}

func badRequest(backendMessage string) *Error {
	return &Error{Kind: ErrBadRequest, Status: http.StatusBadRequest, Message: badRequestPrefix + backendMessage}
}

func serviceFailure() *Error {
	return &Error{Kind: ErrServiceFailure, Status: http.StatusInternalServerError, Message: MessageServiceFailure}
}
