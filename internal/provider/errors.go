package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

var ErrEmptyReply = errors.New("provider returned no text")

// StatusCode extracts the HTTP status from an SDK error, or 0.
func StatusCode(err error) int {
	var oe *openai.Error
	if errors.As(err, &oe) {
		return oe.StatusCode
	}
	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}

func IsRateLimitError(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}

func IsAuthError(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

func IsRetryable(err error) bool {
	switch StatusCode(err) {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// Failure classes reported by ErrorClass.
const (
	ClassRateLimit  = "rate_limit"
	ClassAuth       = "auth"
	ClassUpstream   = "upstream"
	ClassTimeout    = "timeout"
	ClassCanceled   = "canceled"
	ClassEmptyReply = "empty_reply"
	ClassOther      = "error"
)

// ErrorClass buckets a failed call for logs, history events and metrics.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case IsRateLimitError(err):
		return ClassRateLimit
	case IsAuthError(err):
		return ClassAuth
	case IsRetryable(err):
		return ClassUpstream
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	case errors.Is(err, ErrEmptyReply):
		return ClassEmptyReply
	default:
		return ClassOther
	}
}
