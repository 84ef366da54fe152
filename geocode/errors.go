// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Error is a failed lookup. NotFound means the provider answered with zero
// candidates; every other kind is a provider failure.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType classifies lookup failures.
type ErrorType int

const (
	// ErrorTypeUnknown is any failure not classified below.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit means the provider throttled us.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded means the credential ran out of quota or was refused.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout means the call did not finish in time.
	ErrorTypeTimeout
	// ErrorTypeNotFound means the provider found no candidate.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest means the provider rejected the query.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError means the provider could not be reached.
	ErrorTypeNetworkError
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUnknown:        "unknown",
	ErrorTypeRateLimit:      "rate_limit",
	ErrorTypeQuotaExceeded:  "quota_exceeded",
	ErrorTypeTimeout:        "timeout",
	ErrorTypeNotFound:       "not_found",
	ErrorTypeInvalidRequest: "invalid_request",
	ErrorTypeNetworkError:   "network",
}

func (t ErrorType) String() string {
	if s, ok := errorTypeNames[t]; ok {
		return s
	}

	return fmt.Sprintf("ErrorType(%d)", int(t))
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TypeOf returns the kind of a lookup failure, ErrorTypeUnknown for
// errors that are not an *Error.
func TypeOf(err error) ErrorType {
	var geoErr *Error
	if errors.As(err, &geoErr) {
		return geoErr.Type
	}

	return ErrorTypeUnknown
}

// IsNotFound reports whether the provider answered without candidates.
func IsNotFound(err error) bool {
	var geoErr *Error

	return errors.As(err, &geoErr) && geoErr.Type == ErrorTypeNotFound
}

// IsProviderError reports whether err is a failure other than NotFound.
func IsProviderError(err error) bool {
	return err != nil && !IsNotFound(err)
}

// IsRateLimitError reports whether the provider throttled the call.
func IsRateLimitError(err error) bool {
	return TypeOf(err) == ErrorTypeRateLimit
}

func notFound(address string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf("no results for %q", address),
	}
}

// ClassifyHTTPError maps a non-200 provider status to an *Error.
func ClassifyHTTPError(statusCode int, body string) *Error {
	var e *Error

	switch statusCode {
	case http.StatusTooManyRequests:
		e = &Error{Type: ErrorTypeRateLimit, Message: "rate limit reached"}
	case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden:
		e = &Error{Type: ErrorTypeQuotaExceeded, Message: fmt.Sprintf("quota exceeded or access denied (status %d)", statusCode)}
	case http.StatusBadRequest:
		e = &Error{Type: ErrorTypeInvalidRequest, Message: "invalid request"}
	case http.StatusNotFound:
		// a missing endpoint, zero candidates come back as 200
		e = &Error{Type: ErrorTypeInvalidRequest, Message: "endpoint not found, check geocode.base_url"}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		e = &Error{Type: ErrorTypeNetworkError, Message: fmt.Sprintf("service unavailable (status %d)", statusCode)}
	default:
		e = &Error{Type: ErrorTypeUnknown, Message: fmt.Sprintf("HTTP error %d", statusCode)}
	}

	if body != "" {
		e.Err = errors.New(body)
	}

	return e
}

// classifyTransportError wraps an error returned by http.Client.Do.
func classifyTransportError(err error) *Error {
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Type: ErrorTypeTimeout, Message: "request timed out", Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Type: ErrorTypeTimeout, Message: "request timed out", Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Type: ErrorTypeUnknown, Message: "request canceled", Err: err}
	default:
		return &Error{Type: ErrorTypeNetworkError, Message: "request failed", Err: err}
	}
}
