package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
)

// apiError is the JSON error shape returned on every failure path:
// {"error":{"message":...,"type":...}} with optional param and code.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// networkError marks a transport-level failure reaching the upstream, as
// opposed to an HTTP error the upstream itself reported.
type networkError struct {
	err error
}

func (e *networkError) Error() string { return "upstream network error: " + e.err.Error() }
func (e *networkError) Unwrap() error { return e.err }

func isNetworkError(err error) bool {
	var ne *networkError
	return errors.As(err, &ne)
}

// statusErrorType maps an upstream HTTP status to an OpenAI-style error type.
func statusErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request_error"
	case http.StatusUnauthorized:
		return "authentication_error"
	case http.StatusPaymentRequired:
		return "insufficient_credits"
	case http.StatusForbidden:
		return "moderation_error"
	case http.StatusNotFound:
		return "not_found_error"
	case http.StatusRequestTimeout:
		return "timeout_error"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusTooManyRequests:
		return "rate_limit_error"
	case http.StatusBadGateway:
		return "upstream_error"
	case 529:
		return "overloaded_error"
	default:
		return "unknown_error"
	}
}

func writeError(w http.ResponseWriter, status int, e apiError) {
	writeJSON(w, status, errorEnvelope{Error: e})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
