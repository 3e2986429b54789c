package visionllm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/promptbuilder"
)

func TestNew_SelectsProviderByConfig(t *testing.T) {
	gemini := New(Config{Provider: "gemini"})
	if _, ok := gemini.(*geminiDirect); !ok {
		t.Fatalf("expected *geminiDirect, got %T", gemini)
	}

	litellm := New(Config{Provider: "litellm"})
	if _, ok := litellm.(*liteLLMProxy); !ok {
		t.Fatalf("expected *liteLLMProxy, got %T", litellm)
	}
}

func TestGeminiDirect_Extract_ParsesCandidateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"document_type\":\"invoice\"}"}]}}],"usageMetadata":{"totalTokenCount":42}}`))
	}))
	defer srv.Close()

	client := &geminiDirect{
		apiKey:     "test-key",
		modelID:    "gemini-1.5-pro",
		httpClient: srv.Client(),
	}
	client.baseOverride(srv.URL)

	_, format := promptbuilder.GenericExtraction()
	result, err := client.Extract(context.Background(), "extract everything", format, []PageImage{{Page: 1, PNGBase64: "aGVsbG8="}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.JSONText, "invoice") {
		t.Fatalf("expected parsed text to contain invoice, got %s", result.JSONText)
	}
	if result.TokensUsed != 42 {
		t.Fatalf("expected 42 tokens, got %d", result.TokensUsed)
	}
}

func TestGeminiDirect_Extract_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := &geminiDirect{httpClient: srv.Client(), modelID: "gemini-1.5-pro"}
	client.baseOverride(srv.URL)

	_, format := promptbuilder.GenericExtraction()
	_, err := client.Extract(context.Background(), "prompt", format, nil)
	if !errs.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestGeminiDirect_Extract_ClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := &geminiDirect{httpClient: srv.Client(), modelID: "gemini-1.5-pro"}
	client.baseOverride(srv.URL)

	_, format := promptbuilder.GenericExtraction()
	_, err := client.Extract(context.Background(), "prompt", format, nil)
	e, ok := err.(*errs.Error)
	if !ok || e.Kind != errs.Permanent {
		t.Fatalf("expected permanent error, got %v", err)
	}
}
