package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/yuxishi/aiusage/internal/config"
	"github.com/yuxishi/aiusage/internal/model"
	"github.com/yuxishi/aiusage/internal/usage"
)

const (
	codexBaseURL   = "https://chatgpt.com/backend-api"
	codexUsagePath = "/wham/usage"
)

type Codex struct {
	client    *Client
	baseURL   string
	token     string
	accountID string
}

func NewCodex(client *Client, cfg config.ProviderConfig) *Codex {
	base := cfg.BaseURL
	if base == "" {
		base = codexBaseURL
	}
	return &Codex{client: client, baseURL: base, token: cfg.Token, accountID: strings.TrimSpace(cfg.AccountID)}
}

func (p *Codex) Name() string { return config.ProviderCodex }

func (p *Codex) Fetch(ctx context.Context) (model.ServiceUsageData, error) {
	if p.token == "" {
		return model.ServiceUsageData{}, missingToken(model.ServiceChatGPT, p.Name())
	}
	headers := map[string]string{"Authorization": bearer(p.token)}
	if p.accountID != "" {
		headers["ChatGPT-Account-Id"] = p.accountID
	}

	data, err := p.client.do(ctx, request{
		service: model.ServiceChatGPT,
		method:  http.MethodGet,
		url:     joinURL(p.baseURL, codexUsagePath),
		headers: headers,
	})
	if err != nil {
		return model.ServiceUsageData{}, err
	}
	return DecodeCodexUsage(data)
}

func DecodeCodexUsage(data []byte) (model.ServiceUsageData, error) {
	var resp usage.CodexUsageResponse
	if err := decodeValidated(model.ServiceChatGPT, data, &resp); err != nil {
		return model.ServiceUsageData{}, err
	}
	return usage.ParseCodexUsage(resp), nil
}
