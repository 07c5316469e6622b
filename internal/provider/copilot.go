package provider

import (
	"context"
	"net/http"

	"github.com/yuxishi/aiusage/internal/config"
	"github.com/yuxishi/aiusage/internal/model"
	"github.com/yuxishi/aiusage/internal/usage"
)

const (
	copilotBaseURL  = "https://api.github.com"
	copilotUserPath = "/copilot_internal/user"
)

// Copilot reads copilot_internal/user, which reports an ISO reset timestamp.
type Copilot struct {
	client  *Client
	baseURL string
	token   string
}

func NewCopilot(client *Client, cfg config.ProviderConfig) *Copilot {
	base := cfg.BaseURL
	if base == "" {
		base = copilotBaseURL
	}
	return &Copilot{client: client, baseURL: base, token: cfg.Token}
}

func (p *Copilot) Name() string { return config.ProviderCopilot }

func (p *Copilot) Fetch(ctx context.Context) (model.ServiceUsageData, error) {
	if p.token == "" {
		return model.ServiceUsageData{}, missingToken(model.ServiceCopilot, p.Name())
	}
	data, err := p.client.do(ctx, githubRequest(joinURL(p.baseURL, copilotUserPath), p.token))
	if err != nil {
		return model.ServiceUsageData{}, err
	}
	return DecodeCopilotUsage(data)
}

func DecodeCopilotUsage(data []byte) (model.ServiceUsageData, error) {
	var resp usage.CopilotUsageResponse
	if err := decodeValidated(model.ServiceCopilot, data, &resp); err != nil {
		return model.ServiceUsageData{}, err
	}
	out, err := usage.ParseCopilotUsage(resp)
	if err != nil {
		return model.ServiceUsageData{}, parseError(model.ServiceCopilot, err)
	}
	return out, nil
}

// GitHubCopilot reads a billing-style endpoint that reports the reset as a
// YYYY-MM-DD date. The endpoint URL is configured in full.
type GitHubCopilot struct {
	client *Client
	url    string
	token  string
}

func NewGitHubCopilot(client *Client, cfg config.ProviderConfig) *GitHubCopilot {
	return &GitHubCopilot{client: client, url: cfg.BaseURL, token: cfg.Token}
}

func (p *GitHubCopilot) Name() string { return config.ProviderGitHubCopilot }

func (p *GitHubCopilot) Fetch(ctx context.Context) (model.ServiceUsageData, error) {
	if p.token == "" {
		return model.ServiceUsageData{}, missingToken(model.ServiceCopilot, p.Name())
	}
	if p.url == "" {
		return model.ServiceUsageData{}, model.NewAPIError(model.ServiceCopilot, model.ErrorUnavailable,
			"providers.github_copilot.base_url is not configured", nil)
	}
	data, err := p.client.do(ctx, githubRequest(p.url, p.token))
	if err != nil {
		return model.ServiceUsageData{}, err
	}
	return DecodeGitHubCopilotUsage(data)
}

func DecodeGitHubCopilotUsage(data []byte) (model.ServiceUsageData, error) {
	var resp usage.GitHubCopilotUsageResponse
	if err := decodeValidated(model.ServiceCopilot, data, &resp); err != nil {
		return model.ServiceUsageData{}, err
	}
	out, err := usage.ParseGitHubCopilotUsage(resp)
	if err != nil {
		return model.ServiceUsageData{}, parseError(model.ServiceCopilot, err)
	}
	return out, nil
}

func githubRequest(url, token string) request {
	return request{
		service: model.ServiceCopilot,
		method:  http.MethodGet,
		url:     url,
		headers: map[string]string{
			"Authorization":        "token " + token,
			"X-GitHub-Api-Version": "2022-11-28",
		},
	}
}
