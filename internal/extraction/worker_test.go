package extraction

import (
	"errors"
	"testing"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/rasterizer"
)

func TestFormBatches_GroupsConsecutivePages(t *testing.T) {
	pages := []rasterizer.PageResult{
		{Page: 1, Image: []byte("p1")},
		{Page: 2, Image: []byte("p2")},
		{Page: 3, Image: []byte("p3")},
		{Page: 4, Image: []byte("p4")},
		{Page: 5, Image: []byte("p5")},
		{Page: 6, Image: []byte("p6")},
	}

	batches := formBatches(pages, 5)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].startPage != 1 || len(batches[0].images) != 5 {
		t.Fatalf("unexpected first batch: %+v", batches[0])
	}
	if batches[1].startPage != 6 || len(batches[1].images) != 1 {
		t.Fatalf("unexpected second batch: %+v", batches[1])
	}
}

func TestFormBatches_SkipsFailedPages(t *testing.T) {
	pages := []rasterizer.PageResult{
		{Page: 1, Image: []byte("p1")},
		{Page: 2, Err: errors.New("render failed")},
		{Page: 3, Image: []byte("p3")},
	}

	batches := formBatches(pages, 5)
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if len(batches[0].images) != 2 {
		t.Fatalf("expected 2 surviving pages, got %d", len(batches[0].images))
	}
	if batches[0].images[1].Page != 3 {
		t.Fatalf("expected second surviving page to be page 3, got %d", batches[0].images[1].Page)
	}
}

func TestFormBatches_Empty(t *testing.T) {
	if batches := formBatches(nil, 5); len(batches) != 0 {
		t.Fatalf("expected no batches for no pages, got %d", len(batches))
	}
}
