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

const geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

type geminiDirect struct {
	apiKey     string
	modelID    string
	apiBase    string
	httpClient *http.Client
	logger     *logging.Logger
}

func newGeminiDirect(cfg Config) *geminiDirect {
	return &geminiDirect{
		apiKey:  cfg.APIKey,
		modelID: cfg.ModelID,
		apiBase: geminiAPIBase,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 50,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		logger: logging.NewLogger("GeminiDirectClient"),
	}
}

// baseOverride points the client at a different API base URL. Used by
// tests to substitute an httptest server for the real Gemini endpoint.
func (c *geminiDirect) baseOverride(base string) {
	c.apiBase = base
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (c *geminiDirect) Extract(ctx context.Context, prompt string, format promptbuilder.ResponseFormat, images []PageImage) (*Result, error) {
	parts := []geminiPart{{Text: prompt}}
	for _, img := range images {
		parts = append(parts, geminiPart{
			InlineData: &geminiInlineData{MimeType: "image/png", Data: img.PNGBase64},
		})
	}

	payload := geminiRequest{
		Contents: []geminiContent{{Parts: parts}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      0, // pinned — deterministic extraction is never caller-configurable
			MaxOutputTokens:  8192,
			ResponseMimeType: "application/json",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.NewInvalidInput("", "failed to marshal gemini request", nil)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.apiBase, c.modelID, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errs.NewInvalidInput("", "failed to build gemini request", nil)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errs.NewTransient("", "gemini request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.NewTransient("", "failed to read gemini response", err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, errs.NewTransient("", fmt.Sprintf("gemini returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return nil, errs.NewPermanent("", fmt.Sprintf("gemini rejected request: %d", resp.StatusCode), nil)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errs.NewTransient("", "failed to parse gemini response", err)
	}

	text := ""
	if len(parsed.Candidates) > 0 && len(parsed.Candidates[0].Content.Parts) > 0 {
		text = parsed.Candidates[0].Content.Parts[0].Text
	}
	if text == "" {
		return nil, errs.NewPermanent("", "gemini returned no content", nil)
	}

	return &Result{
		JSONText:   text,
		ModelUsed:  c.modelID,
		TokensUsed: parsed.UsageMetadata.TotalTokenCount,
	}, nil
}
