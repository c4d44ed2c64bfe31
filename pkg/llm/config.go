package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Supported providers.
const (
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
)

// ModelConfig describes one named model. Azure models need APIKey, Endpoint,
// APIVersion and Deployment; Gemini models need APIKey and Model.
type ModelConfig struct {
	Provider   string        `yaml:"provider"`
	APIKey     string        `yaml:"api_key"`
	Endpoint   string        `yaml:"endpoint"`
	APIVersion string        `yaml:"api_version"`
	Deployment string        `yaml:"deployment"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
}

// Config maps model names ("gpt3.5", "gpt4o", "gpt4", ...) to their settings.
type Config struct {
	Default string                 `yaml:"default"`
	Models  map[string]ModelConfig `yaml:"models"`
}

// DefaultModel is used when Config.Default is empty.
const DefaultModel = "gpt4"

// Names lists the configured model names, sorted.
func (c Config) Names() []string {
	names := make([]string, 0, len(c.Models))
	for n := range c.Models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks that the provider is known and every key it needs is set.
func (m ModelConfig) Validate(name string) error {
	provider := m.Provider
	if provider == "" {
		provider = ProviderAzure
	}
	var missing []string
	need := func(key, v string) {
		if v == "" {
			missing = append(missing, key)
		}
	}
	switch provider {
	case ProviderAzure:
		need("api_key", m.APIKey)
		need("endpoint", m.Endpoint)
		need("api_version", m.APIVersion)
		need("deployment", m.Deployment)
	case ProviderGemini:
		need("api_key", m.APIKey)
		need("model", m.Model)
	default:
		return &ConfigurationError{Model: name, Reason: fmt.Sprintf("unknown provider %q", m.Provider)}
	}
	if len(missing) > 0 {
		return &ConfigurationError{Model: name, Missing: missing}
	}
	return nil
}

// New builds the client of the named model, or of cfg.Default when name is
// empty. Every configuration problem is returned as *ConfigurationError.
func New(ctx context.Context, cfg Config, name string, logger *slog.Logger) (Client, error) {
	if name == "" {
		name = cfg.Default
	}
	if name == "" {
		name = DefaultModel
	}
	m, ok := cfg.Models[name]
	if !ok {
		reason := "model not configured"
		if known := cfg.Names(); len(known) > 0 {
			reason += " (configured: " + strings.Join(known, ", ") + ")"
		}
		return nil, &ConfigurationError{Model: name, Reason: reason}
	}
	if err := m.Validate(name); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "llm", "model", name)

	switch m.Provider {
	case ProviderGemini:
		g, err := NewGemini(ctx, m, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return NewAzure(m, logger), nil
	}
}
