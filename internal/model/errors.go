package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies adapter failures.
type ErrorKind string

const (
	ErrorNetwork         ErrorKind = "network"
	ErrorAuth            ErrorKind = "auth"
	ErrorHTTP            ErrorKind = "http"
	ErrorInvalidResponse ErrorKind = "invalid_response"
	ErrorParse           ErrorKind = "parse"
	ErrorUnavailable     ErrorKind = "unavailable"
)

// MsgInvalidResponse is the message used for schema validation failures.
const MsgInvalidResponse = "Invalid response format"

// APIError is the typed error every provider adapter returns.
type APIError struct {
	Kind       ErrorKind
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (http %d)", msg, e.StatusCode)
	}
	if e.Service != "" {
		msg = e.Service + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError builds an APIError for service.
func NewAPIError(service string, kind ErrorKind, message string, err error) *APIError {
	return &APIError{Kind: kind, Service: service, Message: message, Err: err}
}

// KindOf returns the ErrorKind of err, or "" when err is not an APIError.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}
