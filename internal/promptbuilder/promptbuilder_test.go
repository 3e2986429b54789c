package promptbuilder

import (
	"strings"
	"testing"
)

func TestGenericExtraction_ReturnsNonEmptyPrompt(t *testing.T) {
	prompt, format := GenericExtraction()
	if prompt == "" {
		t.Fatal("expected non-empty prompt")
	}
	if format.Type != "json_schema" {
		t.Fatalf("expected json_schema format, got %s", format.Type)
	}
}

func TestTemplateMatching_RequiresCandidates(t *testing.T) {
	_, _, err := TemplateMatching(nil)
	if err == nil {
		t.Fatal("expected error for empty candidate list")
	}
}

func TestTemplateMatching_IncludesCandidateDetails(t *testing.T) {
	prompt, _, err := TemplateMatching([]TemplateCandidate{
		{ID: "t1", Name: "Invoice", Description: "Vendor invoice", FieldNames: []string{"invoice_number", "total"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "Invoice") || !strings.Contains(prompt, "invoice_number") {
		t.Fatalf("prompt missing candidate details: %s", prompt)
	}
}

func TestBankStatementExtraction_FirstPageMentionsTableHeaders(t *testing.T) {
	prompt, _ := BankStatementExtraction(BankStatementContext{IsFirstPage: true, PageNumber: 1})
	if !strings.Contains(prompt, "_table_headers") {
		t.Fatalf("first-page prompt should instruct capturing _table_headers: %s", prompt)
	}
}

func TestBankStatementExtraction_ContinuationReusesCapturedHeaders(t *testing.T) {
	headers := []string{"Date", "Narration", "Amount"}
	prompt, _ := BankStatementExtraction(BankStatementContext{
		IsFirstPage:  false,
		TableHeaders: headers,
		PageNumber:   2,
	})
	for _, h := range headers {
		if !strings.Contains(prompt, h) {
			t.Fatalf("continuation prompt missing captured header %q: %s", h, prompt)
		}
	}
}

func TestBankStatementExtraction_ContinuationFallsBackToDefaultHeaders(t *testing.T) {
	prompt, _ := BankStatementExtraction(BankStatementContext{IsFirstPage: false, PageNumber: 3})
	if !strings.Contains(prompt, "Withdrawal Amt.") {
		t.Fatalf("expected default header fallback in prompt: %s", prompt)
	}
}

