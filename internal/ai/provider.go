// Package ai asks external language models whether a market can be resolved
// and turns their free-text replies into a Verdict.
package ai

import (
	"context"
	"errors"
)

var (
	// ErrProviderUnavailable covers transport failures and non-2xx replies
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	// ErrUnparseableResponse means the reply held no valid verdict object
	ErrUnparseableResponse = errors.New("ai response unparseable")
)

// Provider is one language model endpoint: prompt in, free text out
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}
