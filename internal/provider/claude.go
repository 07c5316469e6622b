package provider

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/yuxishi/aiusage/internal/config"
	"github.com/yuxishi/aiusage/internal/logger"
	"github.com/yuxishi/aiusage/internal/model"
	"github.com/yuxishi/aiusage/internal/usage"
)

const (
	claudeBaseURL   = "https://api.anthropic.com"
	claudeUsagePath = "/api/oauth/usage"
	claudeBetaFlag  = "oauth-2025-04-20"
)

type Claude struct {
	client  *Client
	baseURL string
	token   string
}

func NewClaude(client *Client, cfg config.ProviderConfig) *Claude {
	base := cfg.BaseURL
	if base == "" {
		base = claudeBaseURL
	}
	return &Claude{client: client, baseURL: base, token: cfg.Token}
}

func (p *Claude) Name() string { return config.ProviderClaude }

func (p *Claude) Fetch(ctx context.Context) (model.ServiceUsageData, error) {
	if p.token == "" {
		return model.ServiceUsageData{}, missingToken(model.ServiceClaude, p.Name())
	}
	data, err := p.client.do(ctx, request{
		service: model.ServiceClaude,
		method:  http.MethodGet,
		url:     joinURL(p.baseURL, claudeUsagePath),
		headers: map[string]string{
			"Authorization":  bearer(p.token),
			"anthropic-beta": claudeBetaFlag,
		},
	})
	if err != nil {
		return model.ServiceUsageData{}, err
	}
	return DecodeClaudeUsage(data)
}

// DecodeClaudeUsage validates the named-window shape and falls back to
// coalescing array-shaped payloads when validation fails.
func DecodeClaudeUsage(data []byte) (model.ServiceUsageData, error) {
	var resp usage.ClaudeUsageResponse
	err := decodeValidated(model.ServiceClaude, data, &resp)
	if err == nil {
		return usage.ParseClaudeUsage(resp), nil
	}

	var raw any
	if jsonErr := json.Unmarshal(data, &raw); jsonErr == nil {
		if coalesced, ok := usage.CoalesceClaudeUsage(raw); ok {
			logger.Debug("claude usage coalesced from alternate shape")
			return usage.ParseClaudeUsage(*coalesced), nil
		}
	}
	return model.ServiceUsageData{}, err
}
