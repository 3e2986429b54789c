// Package rasterizer turns a document's bytes into per-page PNG images
// ready for the vision-LLM client, and can report a page count without a
// full rasterization pass.
package rasterizer

import (
	"bytes"

	"github.com/Geek0x0/pdf"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/errs"
)

// PageCount returns the number of pages in a PDF without rendering any of
// them, by walking the xref/page tree directly.
func PageCount(data []byte) (int, error) {
	reader := bytes.NewReader(data)
	r, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return 0, errs.NewPermanent("", "failed to parse PDF structure", err)
	}
	return r.NumPage(), nil
}
