// Package oracle provides clients for the external language oracle and
// the strict parse-then-validate boundary around its output. The oracle
// is treated as untrusted, fallible, and latency-bearing: every call has
// a short timeout, runs behind a circuit breaker, and every returned
// field is validated in code.
package oracle

import "context"

// Oracle is the interface for language oracle completion.
// All prompts use single-string completion style (not chat).
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}
