// Package errs implements the Error Envelope (§4.1): deadline-bounded
// calls, retry-with-backoff, catch-and-fallback (safeCall), and an
// append-only dead-letter log with rotation.
package errs

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when a deadline-bounded call exceeds its
// deadline.
var ErrTimeout = errors.New("TIMEOUT")

// UpstreamLLMError is a structured HTTP failure from the LLM provider.
type UpstreamLLMError struct {
	Status    int
	Retryable bool
	Message   string
}

func (e *UpstreamLLMError) Error() string {
	return fmt.Sprintf("UPSTREAM_LLM(status=%d, retryable=%v): %s", e.Status, e.Retryable, e.Message)
}

// StoreError wraps a store-adapter failure with the operation and
// collection it occurred against.
type StoreError struct {
	Operation  string
	Collection string
	Cause      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("STORE(%s, %s): %v", e.Operation, e.Collection, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }

// transportErrorSubstrings recognizes common transport-layer failure
// messages that should be treated as retryable even though Go's net
// package does not expose a single sentinel for them.
var transportErrorSubstrings = []string{
	"connection refused",
	"no such host",
	"EOF",
	"connection reset by peer",
	"i/o timeout",
	"TLS handshake timeout",
}

// IsRetryable classifies an error per §4.1: TIMEOUT, 5xx, 429, and
// recognized transport errors are retryable; 4xx other than 429 is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}

	var upstream *UpstreamLLMError
	if errors.As(err, &upstream) {
		return upstream.Retryable
	}

	msg := err.Error()
	for _, substr := range transportErrorSubstrings {
		if containsFold(msg, substr) {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	hl, nl := len(haystack), len(needle)
	if nl == 0 || nl > hl {
		return nl == 0
	}
	for i := 0; i+nl <= hl; i++ {
		if equalFold(haystack[i:i+nl], needle) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// NewUpstreamError builds an UpstreamLLMError, classifying retryability
// from the HTTP status per §4.1 (5xx and 429 retryable, other 4xx not).
func NewUpstreamError(status int, message string) *UpstreamLLMError {
	retryable := status == 429 || status >= 500
	return &UpstreamLLMError{Status: status, Retryable: retryable, Message: message}
}
