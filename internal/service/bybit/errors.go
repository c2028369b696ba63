package bybit

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Transport error taxonomy. Every failure the client can produce maps to one
// of these so the data manager can decide between cache and fallback without
// inspecting transport internals.
var (
	ErrCredentialsMissing = errors.New("bybit: credentials missing")
	ErrAuthFailure        = errors.New("bybit: authentication rejected")
	ErrRateLimited        = errors.New("bybit: rate limited")
	ErrTimeout            = errors.New("bybit: request timed out")
	ErrConnection         = errors.New("bybit: connection failed")
)

// ServerError is a non-2xx HTTP status outside the auth/rate-limit classes.
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("bybit: server error %d", e.Status)
}

// APIError is an envelope-level failure: HTTP 200 but retCode != 0.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bybit: api error %d: %s", e.Code, e.Msg)
}

// Envelope retCodes that signal auth or rate-limit conditions.
const (
	retCodeInvalidAPIKey  = 10003
	retCodeInvalidSign    = 10004
	retCodeTooManyVisits  = 10006
	retCodeIPRateLimited  = 10018
	retCodeAPIKeyExpired  = 33004
	retCodeUnifiedUpgrade = 10024
)

// classifyRetCode maps envelope-level error codes onto the taxonomy.
func classifyRetCode(code int, msg string) error {
	switch code {
	// 10024 (account must upgrade to unified trading) is permanent for the
	// process lifetime, so it trips the breaker the way bad credentials do.
	case retCodeInvalidAPIKey, retCodeInvalidSign, retCodeAPIKeyExpired, retCodeUnifiedUpgrade:
		return ErrAuthFailure
	case retCodeTooManyVisits, retCodeIPRateLimited:
		return ErrRateLimited
	}
	return &APIError{Code: code, Msg: msg}
}

// classifyTransportErr maps connection-level errors onto the taxonomy.
func classifyTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	return ErrConnection
}

// IsRetryable reports whether a failure is connection-class and worth exactly
// one retry. Auth, rate-limit and envelope errors are never retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnection)
}

// ErrorKind renders the taxonomy member as the reason string carried in
// QueryResult.Error.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCredentialsMissing):
		return "CredentialsMissing"
	case errors.Is(err, ErrAuthFailure):
		return "AuthFailure"
	case errors.Is(err, ErrRateLimited):
		return "RateLimited"
	case errors.Is(err, ErrTimeout):
		return "Timeout"
	case errors.Is(err, ErrConnection):
		return "ConnectionError"
	}
	var se *ServerError
	if errors.As(err, &se) {
		return fmt.Sprintf("ServerError(%d)", se.Status)
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return fmt.Sprintf("APIError(%d)", ae.Code)
	}
	return err.Error()
}
