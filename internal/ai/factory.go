package ai

import (
	"fmt"

	"github.com/perchlabs/perch/internal/ai/claude"
	"github.com/perchlabs/perch/internal/ai/openai"
	"github.com/perchlabs/perch/internal/ai/tier"
	"github.com/perchlabs/perch/internal/config"
	"github.com/perchlabs/perch/pkg/models"
)

// NewProvider constructs a single AI provider by name.
func NewProvider(name string, cfg config.AIConfig) (models.AIProvider, error) {
	switch name {
	case tier.ProviderClaude:
		return claude.NewProvider(cfg.Claude, cfg.InferenceTimeout), nil
	case tier.ProviderOpenAI:
		return openai.NewProvider(cfg.OpenAI, cfg.InferenceTimeout), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of claude, openai", name)
	}
}

// NewProviders constructs one provider per configured credential. Called once
// at server startup; providers without a credential are simply absent from
// the map and every feature that needs them degrades to a clear error.
func NewProviders(cfg config.AIConfig) map[string]models.AIProvider {
	providers := make(map[string]models.AIProvider)
	if cfg.Claude.APIKey != "" {
		providers[tier.ProviderClaude] = claude.NewProvider(cfg.Claude, cfg.InferenceTimeout)
	}
	if cfg.OpenAI.APIKey != "" {
		providers[tier.ProviderOpenAI] = openai.NewProvider(cfg.OpenAI, cfg.InferenceTimeout)
	}
	return providers
}
