package llm

import "errors"

var (
	// ErrMissingAPIKey means the configured auth environment variable is unset.
	ErrMissingAPIKey = errors.New("llm api key missing")

	// ErrEmptyResponse means the provider answered successfully but with null
	// content, typically a reasoning model that exhausted its output budget.
	ErrEmptyResponse = errors.New("llm returned empty content")

	// ErrContextWindow means the digest plus prompt exceeded the model's
	// context window even after triage.
	ErrContextWindow = errors.New("llm context window exceeded")
)
