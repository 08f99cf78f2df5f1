package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ekaya-inc/ekaya-content/pkg/llm"
	"github.com/ekaya-inc/ekaya-content/pkg/logging"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	// ErrorKindRejected means the provider refused or failed the request.
	ErrorKindRejected ErrorKind = "rejected"
	// ErrorKindTimeout means the job is still pending; the caller may retry later.
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindUnavailable means the provider could not be reached or is overloaded.
	ErrorKindUnavailable     ErrorKind = "unavailable"
	ErrorKindUnsupportedKind ErrorKind = "unsupported_kind"
	ErrorKindNotConfigured   ErrorKind = "not_configured"
	ErrorKindAuth            ErrorKind = "auth"
	ErrorKindInternal        ErrorKind = "internal"
)

// Error is a structured provider failure.
type Error struct {
	Kind      ErrorKind  `json:"kind"`
	Provider  ProviderID `json:"provider"`
	Message   string     `json:"message"`
	Retryable bool       `json:"retryable"`
	Cause     error      `json:"-"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements retry.RetryableError.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// Detail returns sanitized text suitable for persisting or returning to clients.
func (e *Error) Detail() string {
	return logging.SanitizeProviderDetail(e.Error())
}

// NewError creates a provider error. Timeout and unavailable errors are retryable.
func NewError(kind ErrorKind, provider ProviderID, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Provider:  provider,
		Message:   message,
		Retryable: kind == ErrorKindTimeout || kind == ErrorKindUnavailable,
		Cause:     cause,
	}
}

// Classify converts any error returned by an adapter into an *Error.
func Classify(provider ProviderID, err error) *Error {
	if err == nil {
		return nil
	}

	var pe *Error
	if errors.As(err, &pe) {
		if pe.Provider == "" {
			pe.Provider = provider
		}
		return pe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorKindTimeout, provider, "provider call timed out", err)
	}

	le := llm.ClassifyError(err)
	switch le.Type {
	case llm.ErrorTypeAuth:
		return NewError(ErrorKindAuth, provider, le.Message, err)
	case llm.ErrorTypeRejected:
		return NewError(ErrorKindRejected, provider, le.Message, err)
	case llm.ErrorTypeModel:
		return NewError(ErrorKindNotConfigured, provider, le.Message, err)
	case llm.ErrorTypeCancelled:
		e := NewError(ErrorKindUnavailable, provider, le.Message, err)
		e.Retryable = false
		return e
	case llm.ErrorTypeRateLimited, llm.ErrorTypeEndpoint:
		e := NewError(ErrorKindUnavailable, provider, le.Message, err)
		e.Retryable = le.Retryable
		return e
	}
	return NewError(ErrorKindInternal, provider, "provider error", err)
}
