package promptbuilder

import (
	"fmt"
	"strings"
)

// BankStatementContext carries the state needed to keep a multi-page bank
// statement's transaction table columns consistent from page to page: the
// column headers captured on page 1 are reused verbatim on every
// continuation page, since a vision call per page has no memory of
// earlier pages.
type BankStatementContext struct {
	IsFirstPage  bool
	TableHeaders []string // captured from page 1's response, empty until then
	PageNumber   int
}

var defaultBankHeaders = []string{"Date", "Narration", "Chq./Ref.No.", "Value Dt", "Withdrawal Amt.", "Deposit Amt.", "Closing Balance"}

// BankStatementExtraction builds the prompt for one page of a bank
// statement. Page 1 is free to discover whatever column headers the
// document actually uses; every later page is told to reuse exactly those
// headers so the resulting transaction rows line up into one table.
func BankStatementExtraction(ctx BankStatementContext) (string, ResponseFormat) {
	if ctx.IsFirstPage {
		return bankStatementFirstPagePrompt(), bankStatementResponseFormat()
	}
	return bankStatementContinuationPrompt(ctx), bankStatementResponseFormat()
}

func bankStatementFirstPagePrompt() string {
	var b strings.Builder
	b.WriteString("This is page 1 of a bank statement.\n\n")
	b.WriteString("1. Extract every header field shown above the transaction table (account number, holder name, branch, IFSC, statement period, and anything else visible), using the document's own field labels.\n")
	b.WriteString("2. Extract the transaction table's column headers exactly as printed, and include them as \"_table_headers\": an array of strings in left-to-right order.\n")
	b.WriteString("3. Extract every transaction row as an object keyed by those same header strings; use null for empty cells.\n")
	b.WriteString("4. Keep amounts as JSON numbers and dates exactly as printed.\n\n")
	b.WriteString("Return a JSON object shaped like:\n")
	b.WriteString(`{"document_type": "bank_statement", "page_number": 1, "is_first_page": true, "account_info": {...}, "_table_headers": ["..."], "transactions": [{...}]}`)
	b.WriteString("\n\nReturn only the JSON object, with no surrounding prose or markdown fences.")
	return b.String()
}

func bankStatementContinuationPrompt(ctx BankStatementContext) string {
	headers := ctx.TableHeaders
	if len(headers) == 0 {
		headers = defaultBankHeaders
	}
	quoted := make([]string, len(headers))
	for i, h := range headers {
		quoted[i] = fmt.Sprintf("%q", h)
	}
	headerList := strings.Join(quoted, ", ")

	var b strings.Builder
	fmt.Fprintf(&b, "This is page %d of the same bank statement. It has no header row of its own — reuse the column headers from page 1.\n\n", ctx.PageNumber)
	fmt.Fprintf(&b, "1. Extract every transaction row using exactly these %d columns, in this order: [%s]. Use null for any empty cell but keep every key present.\n", len(headers), headerList)
	b.WriteString("2. Also extract anything else visible on this page that isn't a transaction row: running totals, interest or fee lines, page headers/footers, and notes.\n")
	b.WriteString("3. Keep amounts as JSON numbers and dates exactly as printed.\n\n")
	fmt.Fprintf(&b, "Return a JSON object shaped like:\n{\"document_type\": \"bank_statement\", \"page_number\": %d, \"is_continuation\": true, \"transactions\": [{...}], \"page_summary\": {...}, \"footer_text\": \"...\"}", ctx.PageNumber)
	b.WriteString("\n\nReturn only the JSON object, with no surrounding prose or markdown fences.")
	return b.String()
}

func bankStatementResponseFormat() ResponseFormat {
	return ResponseFormat{
		Type: "json_schema",
		JSONSchema: map[string]interface{}{
			"name":   "bank_statement_extraction_response",
			"strict": false,
			"schema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"document_type": map[string]interface{}{"type": "string"},
					"page_number":   map[string]interface{}{"type": "integer"},
					"transactions": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "object"},
					},
					"_table_headers": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string"},
					},
				},
				"additionalProperties": true,
			},
		},
	}
}
