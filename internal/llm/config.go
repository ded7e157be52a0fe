// Package llm puts the Gemini and OpenAI chat APIs behind one Client
// interface, with models chosen per task tier.
package llm

import (
	"maps"
	"slices"
	"time"
)

// ModelTier is the capability a task needs
type ModelTier string

const (
	// TierLite is for simple tasks: skill list extraction
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: GitHub skill derivation
	TierStandard ModelTier = "standard"
	// TierAdvanced is for complex reasoning: cross-verification
	TierAdvanced ModelTier = "advanced"
)

// Tiers lists every tier, cheapest first
var Tiers = []ModelTier{TierLite, TierStandard, TierAdvanced}

// Provider names an LLM vendor
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// DefaultTimeout bounds a single LLM call
const DefaultTimeout = 60 * time.Second

var providerModels = map[Provider]map[ModelTier]string{
	ProviderOpenAI: {
		TierLite:     "gpt-4o-mini",
		TierStandard: "gpt-4o-mini",
		TierAdvanced: "gpt-4o",
	},
	ProviderGemini: {
		TierLite:     "gemini-2.5-flash-lite",
		TierStandard: "gemini-2.5-flash",
		TierAdvanced: "gemini-2.5-pro",
	},
}

// Config selects a provider and its models. Configs are treated as values:
// the With* methods return modified copies.
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	Timeout  time.Duration // per-call deadline, zero means DefaultTimeout
	BaseURL  string        // endpoint override for compatible servers and tests
}

// ConfigFor returns the defaults for a provider name; unknown names get OpenAI
func ConfigFor(provider string) *Config {
	p := Provider(provider)
	models, ok := providerModels[p]
	if !ok {
		p, models = ProviderOpenAI, providerModels[ProviderOpenAI]
	}
	return &Config{Provider: p, Models: maps.Clone(models), Timeout: DefaultTimeout}
}

// DefaultConfig is the OpenAI configuration
func DefaultConfig() *Config {
	return ConfigFor(string(ProviderOpenAI))
}

// GetModel returns the model for a tier. A tier without a model borrows the
// closest cheaper one, then the cheapest configured model.
func (c *Config) GetModel(tier ModelTier) string {
	if m := c.Models[tier]; m != "" {
		return m
	}
	for i := slices.Index(Tiers, tier) - 1; i >= 0; i-- {
		if m := c.Models[Tiers[i]]; m != "" {
			return m
		}
	}
	for _, t := range Tiers {
		if m := c.Models[t]; m != "" {
			return m
		}
	}
	return ""
}

// WithAllModels returns a copy that uses one model for every tier
func (c *Config) WithAllModels(model string) *Config {
	out := c.clone()
	for _, t := range Tiers {
		out.Models[t] = model
	}
	return out
}

// WithTimeout returns a copy with a different per-call deadline
func (c *Config) WithTimeout(d time.Duration) *Config {
	out := c.clone()
	out.Timeout = d
	return out
}

func (c *Config) clone() *Config {
	out := *c
	out.Models = maps.Clone(c.Models)
	if out.Models == nil {
		out.Models = make(map[ModelTier]string, len(Tiers))
	}
	return &out
}

func (c *Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}
