package rasterizer

import (
	"context"
	"errors"
	"testing"
)

type fakeRenderer struct {
	failPage int
}

func (f *fakeRenderer) RenderPage(ctx context.Context, documentBytes []byte, page, dpi int) ([]byte, error) {
	if page == f.failPage {
		return nil, errors.New("render failed")
	}
	return []byte{byte(page)}, nil
}

func TestPool_RenderAll_OrdersResultsByPage(t *testing.T) {
	pool := NewPool(&fakeRenderer{failPage: -1}, 4)
	results := pool.RenderAll(context.Background(), []byte("pdf-bytes"), 10)

	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Page != i+1 {
			t.Fatalf("result %d has page %d, want %d", i, r.Page, i+1)
		}
		if r.Err != nil {
			t.Fatalf("unexpected error on page %d: %v", r.Page, r.Err)
		}
	}
}

func TestPool_RenderAll_PartialFailureDoesNotAbort(t *testing.T) {
	pool := NewPool(&fakeRenderer{failPage: 3}, 2)
	results := pool.RenderAll(context.Background(), []byte("pdf-bytes"), 5)

	if CountFailures(results) != 1 {
		t.Fatalf("expected exactly 1 failure, got %d", CountFailures(results))
	}
	for _, r := range results {
		if r.Page != 3 && r.Err != nil {
			t.Fatalf("page %d unexpectedly failed", r.Page)
		}
	}
}

func TestValidate_FailureRatioThreshold(t *testing.T) {
	results := []PageResult{
		{Page: 1},
		{Page: 2, Err: errors.New("x")},
		{Page: 3},
		{Page: 4},
	}
	if err := Validate(results, 0.5); err != nil {
		t.Fatalf("25%% failure should pass 50%% threshold: %v", err)
	}
	if err := Validate(results, 0.1); err == nil {
		t.Fatal("25%% failure should fail 10%% threshold")
	}
}

func TestValidate_EmptyResults(t *testing.T) {
	if err := Validate(nil, 1.0); err == nil {
		t.Fatal("expected error for empty results")
	}
}
