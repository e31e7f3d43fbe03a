// Package models contains shared data models used across the Perch codebase.
package models

import "context"

// AIProvider is the core interface both vendor integrations implement.
// Never call specific AI providers directly — always inject this interface.
type AIProvider interface {
	// ListModels returns the identifiers of all models currently offered
	// by the provider, in the order the provider reports them.
	ListModels(ctx context.Context) ([]string, error)
	// Complete runs a single prompt against the given model.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
	// Name returns the provider identifier (e.g., "claude", "openai").
	Name() string
}

// CompletionRequest is the input to a completion call.
type CompletionRequest struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int
}

// CompletionResult is the output of a completion call.
type CompletionResult struct {
	Text  string
	Model string // the model that actually served the request
}
