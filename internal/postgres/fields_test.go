package postgres

import (
	"testing"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
)

func TestSanitizeConfidence_ClampsAndRounds(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.9632000000000001, 0.9632},
		{-0.5, 0.0},
		{1.5, 1.0},
		{0.5, 0.5},
	}
	for _, c := range cases {
		if got := sanitizeConfidence(c.in); got != c.want {
			t.Errorf("sanitizeConfidence(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSanitizeJSONForPostgres_StripsNullAndControlEscapes(t *testing.T) {
	in := []byte(`{"value":"a\u0000b\u0001c"}`)
	out := sanitizeJSONForPostgres(in)
	got := string(out)
	want := `{"value":"ab c"}`
	if got != want {
		t.Fatalf("sanitizeJSONForPostgres(%q) = %q, want %q", in, got, want)
	}
}

func TestComputeStatistics_AggregatesAcrossPagesAndGroups(t *testing.T) {
	fields := []domain.ExtractedField{
		{Page: 1, GroupName: "borrower", Confidence: 0.9, ValidationStatus: domain.ValidationPending},
		{Page: 1, GroupName: "borrower", Confidence: 0.5, NeedsManualReview: true, ValidationStatus: domain.ValidationPending},
		{Page: 2, GroupName: "loan", Confidence: 0.95, ValidationStatus: domain.ValidationReviewed},
	}

	stats := computeStatistics("doc-1", fields)

	if stats.TotalFields != 3 {
		t.Fatalf("expected 3 total fields, got %d", stats.TotalFields)
	}
	if stats.UniquePages != 2 {
		t.Fatalf("expected 2 unique pages, got %d", stats.UniquePages)
	}
	if stats.UniqueGroups != 2 {
		t.Fatalf("expected 2 unique groups, got %d", stats.UniqueGroups)
	}
	if stats.NeedsReview != 1 {
		t.Fatalf("expected 1 field needing review, got %d", stats.NeedsReview)
	}
	wantAvg := 0.783
	if stats.AverageConfidence != wantAvg {
		t.Fatalf("expected avg confidence %v, got %v", wantAvg, stats.AverageConfidence)
	}
	if stats.ValidationStatusCounts[domain.ValidationPending] != 2 {
		t.Fatalf("expected 2 pending, got %d", stats.ValidationStatusCounts[domain.ValidationPending])
	}
	if stats.ValidationStatusCounts[domain.ValidationReviewed] != 1 {
		t.Fatalf("expected 1 reviewed, got %d", stats.ValidationStatusCounts[domain.ValidationReviewed])
	}
}

func TestComputeStatistics_EmptyDocument(t *testing.T) {
	stats := computeStatistics("doc-empty", nil)
	if stats.TotalFields != 0 || stats.UniquePages != 0 || stats.AverageConfidence != 0 {
		t.Fatalf("expected zero-value statistics for empty document, got %+v", stats)
	}
}

func TestGroupByPage_PreservesFirstSeenPageOrderAndFieldOrder(t *testing.T) {
	fields := []domain.ExtractedField{
		{Page: 2, FieldPath: "a"},
		{Page: 1, FieldPath: "b"},
		{Page: 2, FieldPath: "c"},
	}

	groups := groupByPage(fields)

	if len(groups) != 2 {
		t.Fatalf("expected 2 page groups, got %d", len(groups))
	}
	if groups[0].Page != 2 || len(groups[0].Fields) != 2 {
		t.Fatalf("expected page 2 first with 2 fields, got %+v", groups[0])
	}
	if groups[0].Fields[0].FieldPath != "a" || groups[0].Fields[1].FieldPath != "c" {
		t.Fatalf("expected page 2's fields in original order, got %+v", groups[0].Fields)
	}
	if groups[1].Page != 1 || len(groups[1].Fields) != 1 {
		t.Fatalf("expected page 1 second with 1 field, got %+v", groups[1])
	}
}
