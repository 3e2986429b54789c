// Package visionllm calls a multimodal LLM to extract structured data from
// rasterized document pages, behind a single Client interface with two
// concrete providers: a direct Gemini API call and a LiteLLM proxy call.
package visionllm

import (
	"context"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/promptbuilder"
)

// PageImage is one base64-encoded rasterized page image.
type PageImage struct {
	Page      int
	PNGBase64 string
}

// Result is one call's raw extraction output: the model's JSON text plus
// token accounting, left unparsed so callers can walk it with gjson.
type Result struct {
	JSONText   string
	ModelUsed  string
	TokensUsed int
}

// Client is the uniform interface extraction code depends on; it never
// sees whether requests are going direct to Gemini or through a LiteLLM
// proxy.
type Client interface {
	// Extract sends prompt plus images in a single call and returns the
	// model's raw JSON response text.
	Extract(ctx context.Context, prompt string, format promptbuilder.ResponseFormat, images []PageImage) (*Result, error)
}

// Config selects and parameterizes a provider.
type Config struct {
	Provider  string // "gemini" or "litellm"
	APIKey    string
	BaseURL   string // litellm only
	ModelID   string
}

// New builds the Client matching cfg.Provider.
func New(cfg Config) Client {
	if cfg.Provider == "litellm" {
		return newLiteLLMProxy(cfg)
	}
	return newGeminiDirect(cfg)
}
