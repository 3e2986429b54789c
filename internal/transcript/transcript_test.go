package transcript

import (
	"strings"
	"testing"
	"time"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
)

func TestBuild_RendersSectionsAndFields(t *testing.T) {
	root := domain.NewObject(map[string]domain.Node{
		"borrower": domain.NewObject(map[string]domain.Node{
			"full_name": domain.NewLeaf(domain.LeafString, "Budi Santoso", 0.9),
		}),
	})

	result := Build("loan-app.pdf", []PageExtraction{{PageNumber: 1, Root: root}}, time.Now())

	if !strings.Contains(result.FullText, "--- PAGE 1 ---") {
		t.Fatalf("expected page heading, got:\n%s", result.FullText)
	}
	if !strings.Contains(result.FullText, "[Borrower]") {
		t.Fatalf("expected formatted section heading, got:\n%s", result.FullText)
	}
	if !strings.Contains(result.FullText, "borrower.full_name: Budi Santoso") {
		t.Fatalf("expected dotted field line, got:\n%s", result.FullText)
	}
	if _, ok := result.FieldLocations["borrower.full_name"]; !ok {
		t.Fatalf("expected field_locations entry for borrower.full_name")
	}
	if _, ok := result.SectionIndex["borrower"]; !ok {
		t.Fatalf("expected section_index entry for borrower")
	}
}

func TestBuild_SkipsErroredPages(t *testing.T) {
	root := domain.NewObject(map[string]domain.Node{
		"a": domain.NewLeaf(domain.LeafString, "x", 0.5),
	})
	pages := []PageExtraction{
		{PageNumber: 1, Err: assertErr},
		{PageNumber: 2, Root: root},
	}
	result := Build("doc.pdf", pages, time.Now())

	if strings.Contains(result.FullText, "PAGE 1") {
		t.Fatalf("errored page should be skipped, got:\n%s", result.FullText)
	}
	if !strings.Contains(result.FullText, "PAGE 2") {
		t.Fatalf("expected page 2 rendered, got:\n%s", result.FullText)
	}
	if result.TotalPages != 2 {
		t.Fatalf("TotalPages should count all input pages including skipped, got %d", result.TotalPages)
	}
}

func TestBuild_TableOfObjectsRendersRowCount(t *testing.T) {
	rows := domain.NewArray([]domain.Node{
		domain.NewObject(map[string]domain.Node{"amount": domain.NewLeaf(domain.LeafString, "100", 0.8)}),
		domain.NewObject(map[string]domain.Node{"amount": domain.NewLeaf(domain.LeafString, "200", 0.8)}),
	})
	root := domain.NewObject(map[string]domain.Node{
		"transactions": rows,
	})

	result := Build("bank-statement.pdf", []PageExtraction{{PageNumber: 1, Root: root}}, time.Now())

	if !strings.Contains(result.FullText, "Table: transactions (2 rows)") {
		t.Fatalf("expected table heading, got:\n%s", result.FullText)
	}
	if !strings.Contains(result.FullText, "transactions[0].amount: 100") {
		t.Fatalf("expected indexed row field, got:\n%s", result.FullText)
	}
}

func TestToDomain_FormatsSourceLocations(t *testing.T) {
	root := domain.NewObject(map[string]domain.Node{
		"borrower": domain.NewObject(map[string]domain.Node{
			"full_name": domain.NewLeaf(domain.LeafString, "Budi", 0.9),
		}),
	})
	result := Build("doc.pdf", []PageExtraction{{PageNumber: 1, Root: root}}, time.Now())
	dt := result.ToDomain("tr-1", "doc-1", time.Now())

	if dt.FieldLocations["borrower.full_name"] != "Page 1, Section: borrower" {
		t.Fatalf("unexpected source location: %s", dt.FieldLocations["borrower.full_name"])
	}
	if dt.SectionIndex["borrower"] != 1 {
		t.Fatalf("expected section_index page 1, got %d", dt.SectionIndex["borrower"])
	}
}

var assertErr = &testError{"rasterization failed"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
