// Package llm provides centralized LLM configuration and client abstractions.
// Model tiers let each call site pick a capability level without naming a model.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: classification, short summaries
	TierLite ModelTier = "lite"
	// TierStandard is for document extraction with a response schema
	TierStandard ModelTier = "standard"
	// TierAdvanced is for transcript analysis and scoring
	TierAdvanced ModelTier = "advanced"
	// TierLive is the native-audio model used for the streaming interview session
	TierLive ModelTier = "live"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider and the only one wired today
const ProviderGemini Provider = "gemini"

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-3-flash-preview",
			TierAdvanced: "gemini-3-pro-preview",
			TierLive:     "gemini-2.5-flash-native-audio-preview-09-2025",
		},
		Temperature: 0.2,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// The live tier needs a native-audio model; a text model is no substitute.
	if tier == TierLive {
		return ""
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider:    c.Provider,
		Models:      make(map[ModelTier]string, len(c.Models)+1),
		Temperature: c.Temperature,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}
