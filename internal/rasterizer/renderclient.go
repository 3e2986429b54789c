package rasterizer

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
)

// PageRenderer converts one page of a document's bytes into a PNG. It is an
// interface so the worker pool in pool.go never depends on a concrete
// rendering backend.
type PageRenderer interface {
	RenderPage(ctx context.Context, documentBytes []byte, page, dpi int) ([]byte, error)
}

// renderRequest/renderResponse are the wire shapes the render service
// expects and returns.
type renderRequest struct {
	Document string `json:"document"` // base64-encoded source bytes
	Page     int    `json:"page"`
	DPI      int    `json:"dpi"`
}

type renderResponse struct {
	Success bool   `json:"success"`
	Image   string `json:"image"` // base64-encoded PNG
	Message string `json:"message"`
}

// HTTPRenderClient delegates page rasterization to an external render
// service over HTTP, the same request/response/timeout shape as the
// worker's other internal service clients.
type HTTPRenderClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewHTTPRenderClient builds a render client pointed at baseURL.
func NewHTTPRenderClient(baseURL string) *HTTPRenderClient {
	return &HTTPRenderClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logging.NewLogger("RenderClient"),
	}
}

// RenderPage renders one page of documentBytes to a PNG at the given DPI.
func (c *HTTPRenderClient) RenderPage(ctx context.Context, documentBytes []byte, page, dpi int) ([]byte, error) {
	reqBody, err := json.Marshal(renderRequest{
		Document: base64Encode(documentBytes),
		Page:     page,
		DPI:      dpi,
	})
	if err != nil {
		return nil, errs.NewInvalidInput("", "failed to marshal render request", nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, errs.NewInvalidInput("", "failed to build render request", nil)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errs.NewTransient("", "render service request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.NewTransient("", "failed to read render response", err)
	}

	if resp.StatusCode >= 500 {
		return nil, errs.NewTransient("", fmt.Sprintf("render service returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return nil, errs.NewPermanent("", fmt.Sprintf("render service rejected page %d: %d", page, resp.StatusCode), nil)
	}

	var parsed renderResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errs.NewTransient("", "failed to parse render response", err)
	}
	if !parsed.Success {
		return nil, errs.NewPermanent("", "render service reported failure: "+parsed.Message, nil)
	}

	img, err := base64Decode(parsed.Image)
	if err != nil {
		return nil, errs.NewTransient("", "failed to decode rendered image", err)
	}
	return img, nil
}
