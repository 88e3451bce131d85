package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrForbidden     = errors.New("forbidden")
)

// LLM failure categories. Adapters wrap the provider error with one of these.
var (
	ErrQuotaExceeded = errors.New("llm: quota exceeded")
	ErrRateLimited   = errors.New("llm: rate limited")
	ErrUnauthorized  = errors.New("llm: unauthorized")
	ErrLLM           = errors.New("llm: api error")
)

// Wire codes surfaced by the HTTP layer.
const (
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeRateLimit     = "RATE_LIMIT"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeAPIError      = "API_ERROR"
)

// ClassifyLLMError maps a raw provider error to one of the LLM sentinels.
// Status markers are matched on the error text because providers disagree on
// how (and whether) they expose the HTTP status.
func ClassifyLLMError(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrQuotaExceeded, ErrRateLimited, ErrUnauthorized, ErrLLM} {
		if errors.Is(err, known) {
			return known
		}
	}
	low := strings.ToLower(err.Error())
	switch {
	case strings.Contains(low, "402") || strings.Contains(low, "quota") || strings.Contains(low, "payment required"):
		return ErrQuotaExceeded
	case strings.Contains(low, "429") || strings.Contains(low, "rate limit") || strings.Contains(low, "too many requests"):
		return ErrRateLimited
	case strings.Contains(low, "401") || strings.Contains(low, "unauthorized") || strings.Contains(low, "invalid api key"):
		return ErrUnauthorized
	default:
		return ErrLLM
	}
}

// LLMErrorCode returns the wire code for an error produced by a Generator.
func LLMErrorCode(err error) string {
	switch ClassifyLLMError(err) {
	case ErrQuotaExceeded:
		return CodeQuotaExceeded
	case ErrRateLimited:
		return CodeRateLimit
	case ErrUnauthorized:
		return CodeUnauthorized
	default:
		return CodeAPIError
	}
}
