package utils

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
)

var (
	ErrRetryFailed      = errors.New("request failed after all retries")
	ErrClientHTTPError  = errors.New("client HTTP error (4xx)")
	ErrServerHTTPError  = errors.New("server HTTP error (5xx)")
	ErrOtherHTTPError   = errors.New("other HTTP error (non-2xx)")
	ErrScopeViolation   = errors.New("URL out of scope")
	ErrParsing          = errors.New("parsing error")
	ErrRequestCreation  = errors.New("failed to create HTTP request")
	ErrResponseBodyRead = errors.New("failed to read response body")
	ErrConfigValidation = errors.New("configuration validation error")
	ErrInvalidInput     = errors.New("invalid crawl input")
	ErrStartUnreachable = errors.New("start page unreachable")
	ErrLogoNotFound     = errors.New("logo not found on start page")
)

// StatusError is a non-2xx HTTP response. It matches the sentinel of its status class with errors.Is.
type StatusError struct {
	Code   int
	Status string // As reported by the server, e.g. "404 Not Found"
}

// NewStatusError builds a StatusError; status falls back to the bare code
func NewStatusError(code int, status string) *StatusError {
	if status == "" {
		status = strconv.Itoa(code)
	}
	return &StatusError{Code: code, Status: status}
}

func (e *StatusError) Error() string {
	return "HTTP status " + e.Status
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Code >= 500:
		return ErrServerHTTPError
	case e.Code >= 400:
		return ErrClientHTTPError
	default:
		return ErrOtherHTTPError
	}
}

// Retryable reports whether the same request may succeed later
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == 429
}

// Checked in order after HTTP status and retry classification
var sentinelCategories = []struct {
	target   error
	category string
}{
	{ErrScopeViolation, "scope"},
	{ErrParsing, "parse"},
	{ErrRequestCreation, "request_build"},
	{ErrResponseBodyRead, "body_read"},
	{ErrConfigValidation, "config"},
	{ErrInvalidInput, "invalid_input"},
	{ErrStartUnreachable, "start_unreachable"},
	{ErrLogoNotFound, "logo_not_found"},
}

var networkHints = []struct {
	substr   string
	category string
}{
	{"timeout", "net_timeout"},
	{"deadline exceeded", "net_timeout"},
	{"connection refused", "net_refused"},
	{"no such host", "net_dns"},
	{"tls", "net_tls"},
	{"certificate", "net_tls"},
	{"reset by peer", "net_reset"},
	{"broken pipe", "net_broken_pipe"},
}

// CategorizeError maps err to a short label for logs and the fetch failure metric.
// Labels are lowercase snake case; exhausted retries are prefixed with "retry_".
func CategorizeError(err error) string {
	if err == nil {
		return "none"
	}

	if errors.Is(err, ErrRetryFailed) {
		if err == ErrRetryFailed {
			return "retry_unknown"
		}
		if c := statusCategory(err); c != "" {
			return "retry_" + c
		}
		if c := networkCategory(err); c != "" {
			return "retry_" + c
		}
		return "retry_net_other"
	}

	if c := statusCategory(err); c != "" {
		return c
	}
	for _, s := range sentinelCategories {
		if errors.Is(err, s.target) {
			return s.category
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline"
	}
	if c := networkCategory(err); c != "" {
		return c
	}
	return "unknown"
}

func statusCategory(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case 401, 403, 404, 429:
			return "http_" + strconv.Itoa(se.Code)
		}
	}
	switch {
	case errors.Is(err, ErrServerHTTPError):
		return "http_5xx"
	case errors.Is(err, ErrClientHTTPError):
		return "http_4xx"
	case errors.Is(err, ErrOtherHTTPError):
		return "http_other"
	}
	return ""
}

func networkCategory(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "net_timeout"
	}
	msg := strings.ToLower(err.Error())
	for _, h := range networkHints {
		if strings.Contains(msg, h.substr) {
			return h.category
		}
	}
	return ""
}
