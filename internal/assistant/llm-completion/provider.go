// internal/assistant/llm-completion/provider.go
package llmcompletion

import (
	"context"
	"fmt"
	"strings"

	apphttp "garage-assistant/internal/common/http"
	"garage-assistant/internal/models"
)

const (
	defaultOpenAIURL = "https://api.openai.com/v1"
)

// NewProvider builds the provider named in config.
func NewProvider(config *Config, client *apphttp.Client) (Provider, error) {
	switch config.Provider {
	case "", "openai":
		return NewOpenAIProvider(config.BaseURL, config.APIKey, client), nil
	case "genai":
		return NewGenAIProvider(config.BaseURL, config.APIKey, client), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", config.Provider)
}

// OpenAIProvider talks to any OpenAI-compatible /chat/completions endpoint.
type OpenAIProvider struct {
	baseURL string
	apiKey  string
	client  *apphttp.Client
}

func NewOpenAIProvider(baseURL, apiKey string, client *apphttp.Client) *OpenAIProvider {
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	return &OpenAIProvider{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

func (p *OpenAIProvider) Name() string { return "openai" }

type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *OpenAIProvider) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body := chatCompletionRequest{
		Model: req.Model,
		Messages: []chatCompletionMsg{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	var resp chatCompletionResponse
	if err := p.client.PostJSON(ctx, p.baseURL+"/chat/completions", headers, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return &ChatResponse{
		Text:  resp.Choices[0].Message.Content,
		Model: model,
		Usage: models.TokenUsage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
	}, nil
}

// GenAIProvider calls the in-house gateway's POST /api/ai/generate.
type GenAIProvider struct {
	baseURL string
	apiKey  string
	client  *apphttp.Client
}

func NewGenAIProvider(baseURL, apiKey string, client *apphttp.Client) *GenAIProvider {
	return &GenAIProvider{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

func (p *GenAIProvider) Name() string { return "genai" }

func (p *GenAIProvider) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if p.baseURL == "" {
		return nil, fmt.Errorf("%w: genai base url not set", ErrMissingAPIKey)
	}

	requestBody := map[string]interface{}{
		"model":       req.Model,
		"system":      req.SystemPrompt,
		"prompt":      req.UserPrompt,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}
	var headers map[string]string
	if p.apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + p.apiKey}
	}

	var apiResponse struct {
		Text  string `json:"text"`
		Model string `json:"model"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := p.client.PostJSON(ctx, p.baseURL+"/api/ai/generate", headers, requestBody, &apiResponse); err != nil {
		return nil, err
	}

	model := apiResponse.Model
	if model == "" {
		model = req.Model
	}
	return &ChatResponse{
		Text:  apiResponse.Text,
		Model: model,
		Usage: models.TokenUsage{
			Prompt:     apiResponse.Usage.PromptTokens,
			Completion: apiResponse.Usage.CompletionTokens,
			Total:      apiResponse.Usage.PromptTokens + apiResponse.Usage.CompletionTokens,
		},
	}, nil
}
