package mock

import (
	"context"

	"github.com/perchlabs/perch/pkg/models"
)

// MockProvider satisfies models.AIProvider for testing.
type MockProvider struct {
	Name_          string
	ListModelsFunc func(ctx context.Context) ([]string, error)
	CompleteFunc   func(ctx context.Context, req models.CompletionRequest) (models.CompletionResult, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) ListModels(ctx context.Context) ([]string, error) {
	if m.ListModelsFunc != nil {
		return m.ListModelsFunc(ctx)
	}
	return nil, nil
}

func (m *MockProvider) Complete(ctx context.Context, req models.CompletionRequest) (models.CompletionResult, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return models.CompletionResult{}, nil
}

// NewMockProvider returns a MockProvider with sensible default responses.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		ListModelsFunc: func(_ context.Context) ([]string, error) {
			return []string{"mock-large-v2", "mock-small-v1"}, nil
		},
		CompleteFunc: func(_ context.Context, req models.CompletionRequest) (models.CompletionResult, error) {
			return models.CompletionResult{
				Text:  "Mock completion for testing",
				Model: req.Model,
			}, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		ListModelsFunc: func(_ context.Context) ([]string, error) {
			return nil, err
		},
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (models.CompletionResult, error) {
			return models.CompletionResult{}, err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		ListModelsFunc: func(ctx context.Context) ([]string, error) {
			<-ctx.Done()
			return nil, models.ErrInferenceTimeout
		},
		CompleteFunc: func(ctx context.Context, _ models.CompletionRequest) (models.CompletionResult, error) {
			<-ctx.Done()
			return models.CompletionResult{}, models.ErrInferenceTimeout
		},
	}
}

// Compile-time check that MockProvider implements AIProvider.
var _ models.AIProvider = (*MockProvider)(nil)
