// internal/assistant/web-search/provider.go
package websearch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	apphttp "garage-assistant/internal/common/http"
)

const (
	defaultGoogleURL = "https://www.googleapis.com/customsearch/v1"
	defaultLinkupURL = "https://api.linkup.so/v1"
	googleMaxNum     = 10
)

// Provider runs one query against an external search engine.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}

// NewProvider builds the provider named in config.
func NewProvider(config *Config, client *apphttp.Client) (Provider, error) {
	switch config.Provider {
	case "", "google":
		return NewGoogleProvider(config.BaseURL, config.APIKey, config.EngineID, client), nil
	case "linkup":
		return NewLinkupProvider(config.BaseURL, config.APIKey, client), nil
	}
	return nil, fmt.Errorf("unknown web search provider %q", config.Provider)
}

// GoogleProvider queries the Custom Search JSON API.
type GoogleProvider struct {
	baseURL  string
	apiKey   string
	engineID string
	client   *apphttp.Client
}

func NewGoogleProvider(baseURL, apiKey, engineID string, client *apphttp.Client) *GoogleProvider {
	if baseURL == "" {
		baseURL = defaultGoogleURL
	}
	return &GoogleProvider{baseURL: baseURL, apiKey: apiKey, engineID: engineID, client: client}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 || limit > googleMaxNum {
		limit = googleMaxNum
	}
	params := url.Values{}
	params.Add("key", p.apiKey)
	params.Add("cx", p.engineID)
	params.Add("q", query)
	params.Add("num", strconv.Itoa(limit))
	params.Add("hl", "fr")

	var apiResponse struct {
		Items []struct {
			Link    string `json:"link"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := p.client.GetJSON(ctx, p.baseURL+"?"+params.Encode(), nil, &apiResponse); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(apiResponse.Items))
	for _, item := range apiResponse.Items {
		if item.Link == "" {
			continue
		}
		hits = append(hits, Hit{
			Title:   strings.TrimSpace(item.Title),
			Snippet: strings.TrimSpace(item.Snippet),
			URL:     item.Link,
		})
	}
	return hits, nil
}

// LinkupProvider queries the Linkup /search endpoint for raw search results.
type LinkupProvider struct {
	baseURL string
	apiKey  string
	client  *apphttp.Client
}

func NewLinkupProvider(baseURL, apiKey string, client *apphttp.Client) *LinkupProvider {
	if baseURL == "" {
		baseURL = defaultLinkupURL
	}
	return &LinkupProvider{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

func (p *LinkupProvider) Name() string { return "linkup" }

type linkupRequest struct {
	Q          string `json:"q"`
	Depth      string `json:"depth"`
	OutputType string `json:"outputType"`
}

func (p *LinkupProvider) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	var apiResponse struct {
		Results []struct {
			Type    string `json:"type"`
			Name    string `json:"name"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	req := linkupRequest{Q: query, Depth: "standard", OutputType: "searchResults"}
	if err := p.client.PostJSON(ctx, p.baseURL+"/search", headers, req, &apiResponse); err != nil {
		return nil, err
	}

	var hits []Hit
	for _, r := range apiResponse.Results {
		if r.URL == "" || (r.Type != "" && r.Type != "text") {
			continue
		}
		hits = append(hits, Hit{Title: r.Name, Snippet: r.Content, URL: r.URL})
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits, nil
}
