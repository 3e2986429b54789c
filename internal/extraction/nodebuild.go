package extraction

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
)

// decodeNode parses one vision-LLM JSON response into the tagged-union
// Node tree (domain.Node) the transcript builder and field-persister both
// walk. gjson drives the walk itself — the model's output is free-form
// JSON, not a fixed struct.
func decodeNode(rawJSON string) (domain.Node, error) {
	if !gjson.Valid(rawJSON) {
		return domain.Node{}, errInvalidJSON
	}
	return gjsonToNode(gjson.Parse(rawJSON)), nil
}

var errInvalidJSON = jsonSyntaxError{}

type jsonSyntaxError struct{}

func (jsonSyntaxError) Error() string { return "vision-llm response is not valid JSON" }

func gjsonToNode(v gjson.Result) domain.Node {
	switch {
	case v.IsObject():
		if typed := v.Get("_type"); typed.Exists() {
			return typedLeaf(v, typed.String())
		}
		fields := make(map[string]domain.Node)
		v.ForEach(func(key, val gjson.Result) bool {
			fields[key.String()] = gjsonToNode(val)
			return true
		})
		return domain.NewObject(fields)
	case v.IsArray():
		var items []domain.Node
		v.ForEach(func(_, val gjson.Result) bool {
			items = append(items, gjsonToNode(val))
			return true
		})
		return domain.NewArray(items)
	case v.Type == gjson.Null:
		return domain.NewLeaf(domain.LeafNull, nil, 1.0)
	case v.Type == gjson.True || v.Type == gjson.False:
		return domain.NewLeaf(domain.LeafBool, v.Bool(), 1.0)
	case v.Type == gjson.Number:
		return domain.NewLeaf(domain.LeafNumber, v.Num, 1.0)
	default:
		return domain.NewLeaf(domain.LeafString, v.String(), 1.0)
	}
}

// typedLeaf builds a single-field Node from a model-emitted typed object
// such as {"_type":"signature","value":true,"confidence":0.82,"bbox":[...]}.
// A typed leaf becomes a single-field row tagged with its field type.
func typedLeaf(v gjson.Result, leafType string) domain.Node {
	confidence := 1.0
	if c := v.Get("confidence"); c.Exists() {
		confidence = c.Float()
	}
	var value interface{}
	if val := v.Get("value"); val.Exists() {
		value = jsonScalar(val)
	}

	node := domain.Node{Kind: domain.NodeLeaf, LeafKind: domain.LeafString, Value: value, Confidence: confidence, FieldType: leafType}
	if bbox := v.Get("bbox"); bbox.Exists() && bbox.IsArray() {
		coords := bbox.Array()
		if len(coords) == 4 {
			node.BoundingBox = &domain.BoundingBox{
				X0: coords[0].Float(), Y0: coords[1].Float(), X1: coords[2].Float(), Y1: coords[3].Float(),
			}
		}
	}
	return node
}

func jsonScalar(v gjson.Result) interface{} {
	switch v.Type {
	case gjson.Number:
		return v.Num
	case gjson.True, gjson.False:
		return v.Bool()
	case gjson.Null:
		return nil
	default:
		return v.String()
	}
}

// extractTableHeaders reads the `_table_headers` array a bank-statement
// page-1 response emits, used as context.table_headers for every later
// batch.
func extractTableHeaders(rawJSON string) []string {
	res := gjson.Get(rawJSON, "_table_headers")
	if !res.Exists() || !res.IsArray() {
		return nil
	}
	var out []string
	res.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.String())
		return true
	})
	return out
}

// reconcileTransactionJSON rewrites the raw `transactions` array of a
// continuation-page vision-LLM response, in place at the JSON text level,
// onto exactly the page-1 header set: columns the model invented beyond
// those headers are dropped, and headers the model omitted on this page are
// filled in as JSON null. Continuation pages have no memory of page 1's
// column names, so without this the persisted fields for a page using
// slightly different model-chosen keys would silently diverge from page 1's
// table instead of lining up into one table. Operating on the JSON text
// (gjson to read, sjson to rewrite) rather than the decoded Node tree lets
// this run before decodeNode, so a reconciled response is what the rest of
// the pipeline ever sees.
func reconcileTransactionJSON(rawJSON string, headers []string) string {
	if len(headers) == 0 || !gjson.Valid(rawJSON) {
		return rawJSON
	}
	txns := gjson.Get(rawJSON, "transactions")
	if !txns.Exists() || !txns.IsArray() {
		return rawJSON
	}

	rows := txns.Array()
	reconciledRows := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		if !row.IsObject() {
			reconciledRows[i] = nil
			continue
		}
		rowFields := make(map[string]gjson.Result)
		row.ForEach(func(key, val gjson.Result) bool {
			rowFields[key.String()] = val
			return true
		})
		claimed := make(map[string]bool, len(rowFields))
		out := make(map[string]interface{}, len(headers))
		for _, h := range headers {
			if v, present := rowFields[h]; present {
				out[h] = v.Value()
				claimed[h] = true
				continue
			}
			if key, v, found := matchHeaderJSON(h, rowFields, claimed); found {
				out[h] = v.Value()
				claimed[key] = true
				continue
			}
			out[h] = nil
		}
		reconciledRows[i] = out
	}

	rewritten, err := sjson.Set(rawJSON, "transactions", reconciledRows)
	if err != nil {
		return rawJSON
	}
	return rewritten
}

// matchHeaderJSON finds the unclaimed row key that most plausibly
// corresponds to header, when the model didn't echo the page-1 header
// string exactly — e.g. "Chq/Ref" for page-1's "Chq./Ref.No.". Keys are
// compared with punctuation and case stripped; the longest unclaimed
// candidate whose normalized form is a substring match in either direction
// wins, so a shorter abbreviation still resolves to its full header.
func matchHeaderJSON(header string, rowFields map[string]gjson.Result, claimed map[string]bool) (string, gjson.Result, bool) {
	target := normalizeHeaderKey(header)
	if target == "" {
		return "", gjson.Result{}, false
	}

	var bestKey string
	var bestLen int
	for key := range rowFields {
		if claimed[key] {
			continue
		}
		norm := normalizeHeaderKey(key)
		if norm == "" {
			continue
		}
		if norm != target && !strings.Contains(target, norm) && !strings.Contains(norm, target) {
			continue
		}
		if len(norm) > bestLen {
			bestKey, bestLen = key, len(norm)
		}
	}
	if bestKey == "" {
		return "", gjson.Result{}, false
	}
	return bestKey, rowFields[bestKey], true
}

// normalizeHeaderKey lowercases header and drops everything but letters and
// digits, so "Chq./Ref.No." and "Chq/Ref" compare on their alphanumeric
// content alone.
func normalizeHeaderKey(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// leafAssignment pairs a leaf's dotted path with the Node and its
// top-level section name, in deterministic (sorted-key) order — the order
// field-persistence assigns field_order in.
type leafAssignment struct {
	path    string
	section string
	node    domain.Node
}

// orderedLeaves walks root depth-first (same sorted-key order as
// domain.Node.Walk and internal/transcript) and returns every leaf paired
// with the top-level key it fell under, so the field persister can set
// group_name the same way the transcript builder identifies a section.
func orderedLeaves(root domain.Node) []leafAssignment {
	var out []leafAssignment
	root.Walk(func(path string, node domain.Node) {
		if node.Kind != domain.NodeLeaf {
			return
		}
		out = append(out, leafAssignment{path: path, section: topLevelSection(path), node: node})
	})
	// Node.Walk already visits in a single deterministic depth-first
	// order; re-sorting by path would break table-row adjacency (row 0's
	// columns would no longer stay together), so the emitted order is
	// kept as Walk produced it.
	return out
}

func topLevelSection(path string) string {
	for i, c := range path {
		if c == '.' {
			return path[:i]
		}
	}
	return path
}
