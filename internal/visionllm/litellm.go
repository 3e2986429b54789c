package visionllm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/logging"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/promptbuilder"
)

type liteLLMProxy struct {
	baseURL    string
	apiKey     string
	modelID    string
	httpClient *http.Client
	logger     *logging.Logger
}

func newLiteLLMProxy(cfg Config) *liteLLMProxy {
	return &liteLLMProxy{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		modelID: cfg.ModelID,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 50,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		logger: logging.NewLogger("LiteLLMProxyClient"),
	}
}

type liteLLMContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *liteLLMImageURL `json:"image_url,omitempty"`
}

type liteLLMImageURL struct {
	URL string `json:"url"`
}

type liteLLMMessage struct {
	Role    string               `json:"role"`
	Content []liteLLMContentPart `json:"content"`
}

type liteLLMRequest struct {
	Model          string                 `json:"model"`
	Messages       []liteLLMMessage       `json:"messages"`
	ResponseFormat map[string]interface{} `json:"response_format"`
	Temperature    float64                `json:"temperature"`
	MaxTokens      int                    `json:"max_tokens"`
}

type liteLLMResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *liteLLMProxy) Extract(ctx context.Context, prompt string, format promptbuilder.ResponseFormat, images []PageImage) (*Result, error) {
	content := []liteLLMContentPart{{Type: "text", Text: prompt}}
	for _, img := range images {
		content = append(content, liteLLMContentPart{
			Type:     "image_url",
			ImageURL: &liteLLMImageURL{URL: "data:image/png;base64," + img.PNGBase64},
		})
	}

	payload := liteLLMRequest{
		Model:          c.modelID,
		Messages:       []liteLLMMessage{{Role: "user", Content: content}},
		ResponseFormat: map[string]interface{}{"type": "json_object"},
		Temperature:    0, // pinned, same as the gemini path
		MaxTokens:      16000,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.NewInvalidInput("", "failed to marshal litellm request", nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errs.NewInvalidInput("", "failed to build litellm request", nil)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errs.NewTransient("", "litellm request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.NewTransient("", "failed to read litellm response", err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, errs.NewTransient("", fmt.Sprintf("litellm returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return nil, errs.NewPermanent("", fmt.Sprintf("litellm rejected request: %d", resp.StatusCode), nil)
	}

	var parsed liteLLMResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errs.NewTransient("", "failed to parse litellm response", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, errs.NewPermanent("", "litellm returned no content", nil)
	}

	return &Result{
		JSONText:   parsed.Choices[0].Message.Content,
		ModelUsed:  c.modelID,
		TokensUsed: parsed.Usage.TotalTokens,
	}, nil
}
