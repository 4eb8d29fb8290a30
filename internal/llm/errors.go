// Package llm provides the model-invocation seam for the workflow
// controller: provider-neutral conversation types, a Client interface,
// and implementations resolved once per process from available
// credentials with a fixed preference order (xAI, OpenAI, Anthropic).
package llm

import "errors"

// Sentinel errors for model invocation.
var (
	ErrInvalidRole   = errors.New("invalid message role")
	ErrNoCredentials = errors.New("no model provider credentials found")
	ErrEmptyResponse = errors.New("model returned no choices")
	ErrInvokeFailed  = errors.New("model invocation failed")
)
