package provider

import (
	"context"
	"net/http"

	"github.com/yuxishi/aiusage/internal/config"
	"github.com/yuxishi/aiusage/internal/model"
	"github.com/yuxishi/aiusage/internal/usage"
)

const (
	geminiBaseURL   = "https://cloudcode-pa.googleapis.com"
	geminiQuotaPath = "/v1internal:retrieveUserQuota"
)

type Gemini struct {
	client  *Client
	baseURL string
	token   string
	project string
}

func NewGemini(client *Client, cfg config.ProviderConfig) *Gemini {
	base := cfg.BaseURL
	if base == "" {
		base = geminiBaseURL
	}
	return &Gemini{client: client, baseURL: base, token: cfg.Token, project: cfg.Project}
}

func (p *Gemini) Name() string { return config.ProviderGemini }

func (p *Gemini) Fetch(ctx context.Context) (model.ServiceUsageData, error) {
	if p.token == "" {
		return model.ServiceUsageData{}, missingToken(model.ServiceGemini, p.Name())
	}
	body := map[string]string{}
	if p.project != "" {
		body["project"] = p.project
	}

	data, err := p.client.do(ctx, request{
		service: model.ServiceGemini,
		method:  http.MethodPost,
		url:     joinURL(p.baseURL, geminiQuotaPath),
		headers: map[string]string{"Authorization": bearer(p.token)},
		body:    body,
	})
	if err != nil {
		return model.ServiceUsageData{}, err
	}
	return DecodeGeminiUsage(data)
}

func DecodeGeminiUsage(data []byte) (model.ServiceUsageData, error) {
	var resp usage.GeminiQuotaResponse
	if err := decodeValidated(model.ServiceGemini, data, &resp); err != nil {
		return model.ServiceUsageData{}, err
	}
	return usage.ParseGeminiUsage(resp), nil
}
