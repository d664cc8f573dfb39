package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Flavor string

const (
	FlavorAzure  Flavor = "azure"
	FlavorOpenAI Flavor = "openai"
)

type ChatConfig struct {
	Flavor     Flavor
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// ChatClient talks to an Azure OpenAI deployment or any OpenAI-compatible
// chat completions endpoint.
type ChatClient struct {
	flavor     Flavor
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	client     *http.Client
}

func NewChatClient(cfg ChatConfig) (*ChatClient, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	deployment := strings.TrimSpace(cfg.Deployment)
	if deployment == "" {
		return nil, fmt.Errorf("deployment name is required")
	}
	flavor := cfg.Flavor
	if flavor == "" {
		flavor = FlavorAzure
	}
	if flavor != FlavorAzure && flavor != FlavorOpenAI {
		return nil, fmt.Errorf("unsupported chat flavor %q", flavor)
	}
	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if flavor == FlavorAzure && apiVersion == "" {
		return nil, fmt.Errorf("api version is required for azure")
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &ChatClient{
		flavor:     flavor,
		endpoint:   endpoint,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		deployment: deployment,
		apiVersion: apiVersion,
		client:     client,
	}, nil
}

func (c *ChatClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	payload := map[string]any{
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": opts.Temperature,
	}
	if c.flavor == FlavorOpenAI {
		payload["model"] = c.deployment
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal chat payload: %v", ErrModelInvocation, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build chat request: %v", ErrModelInvocation, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.flavor == FlavorAzure {
		httpReq.Header.Set("api-key", c.apiKey)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: request chat completion: %v", ErrModelInvocation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read chat response body: %v", ErrModelInvocation, err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: chat completion failed status=%d body=%s", ErrModelInvocation, resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode chat completion response: %v", ErrModelInvocation, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty chat completion choices", ErrModelInvocation)
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *ChatClient) completionsURL() string {
	if c.flavor == FlavorOpenAI {
		return c.endpoint + "/v1/chat/completions"
	}
	return c.endpoint + "/openai/deployments/" + url.PathEscape(c.deployment) +
		"/chat/completions?api-version=" + url.QueryEscape(c.apiVersion)
}
