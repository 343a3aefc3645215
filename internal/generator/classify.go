package generator

import "strings"

// ErrorClass is the retry decision for a failed generation attempt.
type ErrorClass int

const (
	// Retryable errors are transient backend conditions worth another
	// attempt after backoff.
	Retryable ErrorClass = iota
	// Fatal errors mean the backend rejected the request itself; retrying
	// with the same input cannot succeed.
	Fatal
)

// retryableIndicators are matched case-insensitively against backend error
// text. Backend errors arrive as free-form messages, so substring matching
// is the only classification available; this list is the single point of
// maintenance.
var retryableIndicators = []string{
	"rate limit",
	"quota",
	"429",
	"503",
	"timeout",
	"timed out",
	"deadline exceeded",
	"network",
	"connection",
	"overloaded",
	"resource_exhausted",
	"resource exhausted",
	"unavailable",
	"internal error",
	"500",
}

// Classify decides whether a backend error message indicates a transient
// condition. Anything not recognized as transient is fatal for that
// provider: the orchestrator moves on instead of burning its retry budget.
func Classify(message string) ErrorClass {
	lower := strings.ToLower(message)
	for _, indicator := range retryableIndicators {
		if strings.Contains(lower, indicator) {
			return Retryable
		}
	}
	return Fatal
}
