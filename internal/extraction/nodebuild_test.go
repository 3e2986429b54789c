package extraction

import (
	"testing"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
)

func TestDecodeNode_InvalidJSON(t *testing.T) {
	if _, err := decodeNode("{not json"); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestDecodeNode_ObjectAndArray(t *testing.T) {
	root, err := decodeNode(`{"name":"Jane Doe","rows":[{"a":1},{"a":2}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Kind != domain.NodeObject {
		t.Fatalf("expected object root, got %v", root.Kind)
	}
	name, ok := root.Fields["name"]
	if !ok || name.Kind != domain.NodeLeaf || name.Value != "Jane Doe" {
		t.Fatalf("unexpected name field: %+v", name)
	}
	rows, ok := root.Fields["rows"]
	if !ok || rows.Kind != domain.NodeArray || len(rows.Items) != 2 {
		t.Fatalf("unexpected rows field: %+v", rows)
	}
}

func TestDecodeNode_TypedLeafWithBoundingBox(t *testing.T) {
	root, err := decodeNode(`{"signature":{"_type":"signature","value":true,"confidence":0.82,"bbox":[1,2,3,4]}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	leaf := root.Fields["signature"]
	if leaf.Confidence != 0.82 {
		t.Fatalf("expected confidence 0.82, got %v", leaf.Confidence)
	}
	if leaf.BoundingBox == nil || leaf.BoundingBox.X1 != 3 {
		t.Fatalf("expected bounding box to be decoded, got %+v", leaf.BoundingBox)
	}
}

func TestReconcileTransactionJSON_DropsExtraFillsMissing(t *testing.T) {
	headers := []string{"Date", "Narration", "Chq./Ref.No.", "Value Dt", "Withdrawal Amt.", "Deposit Amt.", "Closing Balance"}
	rawJSON := `{"transactions":[{"Date":"01-02-2024","Narration":"ATM","Chq/Ref":"XN123","Withdrawal Amt.":500,"Closing Balance":1000,"page_footer":"ignored"}]}`

	rewritten := reconcileTransactionJSON(rawJSON, headers)

	root, err := decodeNode(rewritten)
	if err != nil {
		t.Fatalf("unexpected error decoding rewritten JSON: %v", err)
	}

	txns := root.Fields["transactions"]
	if txns.Kind != domain.NodeArray || len(txns.Items) != 1 {
		t.Fatalf("expected one reconciled row, got %+v", txns)
	}
	row := txns.Items[0]
	if len(row.Fields) != len(headers) {
		t.Fatalf("expected exactly %d columns, got %d: %+v", len(headers), len(row.Fields), row.Fields)
	}
	if _, present := row.Fields["Chq/Ref"]; present {
		t.Fatal("expected the model's divergent key to be dropped")
	}
	refField, ok := row.Fields["Chq./Ref.No."]
	if !ok || refField.Kind != domain.NodeLeaf {
		t.Fatalf("expected page-1 header key present as a leaf, got %+v", refField)
	}
	valueDt, ok := row.Fields["Value Dt"]
	if !ok || valueDt.LeafKind != domain.LeafNull {
		t.Fatalf("expected missing column to be null, got %+v", valueDt)
	}
}

func TestReconcileTransactionJSON_NoHeadersIsNoop(t *testing.T) {
	rawJSON := `{"transactions":[{"a":1}]}`
	out := reconcileTransactionJSON(rawJSON, nil)
	if out != rawJSON {
		t.Fatalf("expected no-op when no headers supplied, got %q", out)
	}
}

func TestExtractTableHeaders(t *testing.T) {
	headers := extractTableHeaders(`{"_table_headers":["Date","Description","Amount"]}`)
	if len(headers) != 3 || headers[0] != "Date" {
		t.Fatalf("unexpected headers: %v", headers)
	}
}

func TestExtractTableHeaders_Absent(t *testing.T) {
	if headers := extractTableHeaders(`{"foo":"bar"}`); headers != nil {
		t.Fatalf("expected nil headers, got %v", headers)
	}
}

func TestOrderedLeaves_GroupsByTopLevelSection(t *testing.T) {
	root := domain.NewObject(map[string]domain.Node{
		"borrower": domain.NewObject(map[string]domain.Node{
			"name": domain.NewLeaf(domain.LeafString, "Jane Doe", 0.9),
		}),
		"amount": domain.NewLeaf(domain.LeafNumber, 1000.0, 0.95),
	})

	leaves := orderedLeaves(root)
	if len(leaves) != 2 {
		t.Fatalf("expected 2 leaves, got %d", len(leaves))
	}
	for _, l := range leaves {
		if l.section != "borrower" && l.section != "amount" {
			t.Fatalf("unexpected section %q for path %q", l.section, l.path)
		}
	}
}
