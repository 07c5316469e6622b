package provider

import (
	"context"
	"fmt"

	"github.com/yuxishi/aiusage/internal/config"
	"github.com/yuxishi/aiusage/internal/model"
)

// Provider fetches one service's usage and returns it normalized.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (model.ServiceUsageData, error)
}

// constructors maps provider names to their adapters.
var constructors = map[string]func(*Client, config.ProviderConfig) Provider{
	config.ProviderClaude:        func(c *Client, p config.ProviderConfig) Provider { return NewClaude(c, p) },
	config.ProviderCodex:         func(c *Client, p config.ProviderConfig) Provider { return NewCodex(c, p) },
	config.ProviderCopilot:       func(c *Client, p config.ProviderConfig) Provider { return NewCopilot(c, p) },
	config.ProviderGitHubCopilot: func(c *Client, p config.ProviderConfig) Provider { return NewGitHubCopilot(c, p) },
	config.ProviderGemini:        func(c *Client, p config.ProviderConfig) Provider { return NewGemini(c, p) },
}

var serviceNames = map[string]string{
	config.ProviderClaude:        model.ServiceClaude,
	config.ProviderCodex:         model.ServiceChatGPT,
	config.ProviderCopilot:       model.ServiceCopilot,
	config.ProviderGitHubCopilot: model.ServiceCopilot,
	config.ProviderGemini:        model.ServiceGemini,
}

// ServiceName returns the display name of the service behind a provider.
func ServiceName(provider string) string {
	if name, ok := serviceNames[provider]; ok {
		return name
	}
	return provider
}

// New builds the adapter for name.
func New(name string, client *Client, cfg config.ProviderConfig) (Provider, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q", name)
	}
	return ctor(client, cfg), nil
}

// FromConfig builds adapters for names, or for every enabled provider when
// names is empty.
func FromConfig(cfg *config.Config, client *Client, names []string) ([]Provider, error) {
	if len(names) == 0 {
		names = cfg.EnabledProviders()
	}
	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		pc, ok := cfg.Provider(name)
		if !ok {
			return nil, fmt.Errorf("unsupported provider %q", name)
		}
		p, err := New(name, client, pc)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}
