package service

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caldew/workdesk/internal/config"
	"github.com/caldew/workdesk/internal/domain"
)

// ModelCatalog lists the models of every configured provider with
// their prices. The catalog is static per process; the assembled,
// provider-filtered list is cached with a TTL.
type ModelCatalog struct {
	enabled map[string]bool
	catalog []domain.AIModel

	mu       sync.RWMutex
	cached   []domain.AIModel
	cachedAt time.Time
	ttl      time.Duration
}

func NewModelCatalog(enabledProviders []string) *ModelCatalog {
	enabled := make(map[string]bool, len(enabledProviders))
	for _, p := range enabledProviders {
		enabled[p] = true
	}
	return &ModelCatalog{
		enabled: enabled,
		catalog: knownModels,
		ttl:     config.ModelCacheDuration,
	}
}

// List returns the models of all enabled providers.
func (c *ModelCatalog) List() []domain.AIModel {
	c.mu.RLock()
	if c.cached != nil && time.Since(c.cachedAt) <= c.ttl {
		models := c.cached
		c.mu.RUnlock()
		return models
	}
	c.mu.RUnlock()

	models := make([]domain.AIModel, 0, len(c.catalog))
	for _, m := range c.catalog {
		if c.enabled[m.Provider] {
			models = append(models, m)
		}
	}

	c.mu.Lock()
	c.cached = models
	c.cachedAt = time.Now()
	c.mu.Unlock()
	return models
}

// Find returns the catalog entry by id across enabled providers.
func (c *ModelCatalog) Find(id string) (*domain.AIModel, error) {
	for _, m := range c.List() {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, domain.ErrModelNotFound
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Prices are USD per 1M tokens.
var knownModels = []domain.AIModel{
	{
		ID:              config.DefaultAnthropicModel,
		Provider:        "anthropic",
		Name:            "Claude Sonnet 4",
		PromptPrice:     price("3"),
		CompletionPrice: price("15"),
		ContextLength:   200_000,
		Vision:          true,
	},
	{
		ID:              "claude-3-5-haiku-20241022",
		Provider:        "anthropic",
		Name:            "Claude 3.5 Haiku",
		PromptPrice:     price("0.8"),
		CompletionPrice: price("4"),
		ContextLength:   200_000,
		Vision:          true,
	},
	{
		ID:              config.DefaultOpenAIModel,
		Provider:        "openai",
		Name:            "GPT-5",
		PromptPrice:     price("1.25"),
		CompletionPrice: price("10"),
		ContextLength:   400_000,
		Vision:          true,
	},
	{
		ID:              "gpt-5-mini",
		Provider:        "openai",
		Name:            "GPT-5 Mini",
		PromptPrice:     price("0.25"),
		CompletionPrice: price("2"),
		ContextLength:   400_000,
		Vision:          true,
	},
	{
		ID:              config.DefaultCerebrasModel,
		Provider:        "cerebras",
		Name:            "GPT-OSS 120B",
		PromptPrice:     price("0.25"),
		CompletionPrice: price("0.69"),
		ContextLength:   131_072,
	},
	{
		ID:              "llama-3.3-70b",
		Provider:        "cerebras",
		Name:            "Llama 3.3 70B",
		PromptPrice:     price("0.85"),
		CompletionPrice: price("1.2"),
		ContextLength:   128_000,
	},
	{
		ID:            config.DefaultOllamaModel,
		Provider:      "ollama",
		Name:          "Llama 3.1 (local)",
		ContextLength: 128_000,
	},
}
