package rasterizer

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/logging"
)

const defaultDPI = 200

// PageResult is one page's rasterization outcome. A failed page does not
// abort the rest of the document — Err is recorded and the caller decides
// whether enough pages succeeded to proceed.
type PageResult struct {
	Page  int
	Image []byte
	Err   error
}

// Pool fans a document's pages out across a bounded set of goroutines,
// translating the reference pipeline's process-pool-per-page fan-out into
// goroutines (Go needs no process pool to escape a GIL).
type Pool struct {
	renderer PageRenderer
	logger   *logging.Logger
	workers  int
}

// NewPool builds a rasterization pool. workers <= 0 defaults to
// runtime.NumCPU().
func NewPool(renderer PageRenderer, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		renderer: renderer,
		logger:   logging.NewLogger("RasterizerPool"),
		workers:  workers,
	}
}

// RenderAll rasterizes every page of documentBytes (1-indexed, pageCount
// pages total) concurrently, bounded to p.workers in flight at once.
// Results are returned in page order regardless of completion order;
// individual page failures are captured in PageResult.Err rather than
// aborting the whole batch.
func (p *Pool) RenderAll(ctx context.Context, documentBytes []byte, pageCount int) []PageResult {
	results := make([]PageResult, pageCount)

	var mu sync.Mutex
	sem := make(chan struct{}, p.workers)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < pageCount; i++ {
		page := i + 1
		idx := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			img, err := p.renderer.RenderPage(gctx, documentBytes, page, defaultDPI)

			mu.Lock()
			results[idx] = PageResult{Page: page, Image: img, Err: err}
			mu.Unlock()

			if err != nil {
				p.logger.Warn("page render failed", "page", page, "error", err.Error())
			}
			return nil
		})
	}

	_ = g.Wait() // individual page failures are captured per-result, not propagated; only ctx cancellation short-circuits remaining pages

	return results
}

// CountFailures returns how many of results failed to render.
func CountFailures(results []PageResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Validate returns a descriptive error when results is empty or when the
// fraction of failed pages exceeds maxFailureRatio.
func Validate(results []PageResult, maxFailureRatio float64) error {
	if len(results) == 0 {
		return fmt.Errorf("no pages to rasterize")
	}
	failed := CountFailures(results)
	ratio := float64(failed) / float64(len(results))
	if ratio > maxFailureRatio {
		return fmt.Errorf("%d/%d pages failed to rasterize (ratio %.2f exceeds %.2f)", failed, len(results), ratio, maxFailureRatio)
	}
	return nil
}
