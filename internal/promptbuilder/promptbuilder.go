// Package promptbuilder renders the text prompts and response-format
// hints sent to the vision-LLM client. Every function here is pure: no
// I/O, no state, just string assembly.
package promptbuilder

import (
	"fmt"
	"strings"
)

// ResponseFormat mirrors the OpenAI-compatible response_format hint the
// vision providers accept, steering them toward strict JSON output.
type ResponseFormat struct {
	Type       string                 `json:"type"` // "json_object" or "json_schema"
	JSONSchema map[string]interface{} `json:"json_schema,omitempty"`
}

var genericJSONFormat = ResponseFormat{
	Type: "json_schema",
	JSONSchema: map[string]interface{}{
		"name":   "document_extraction_response",
		"strict": false,
		"schema": map[string]interface{}{
			"type":                 "object",
			"properties":           map[string]interface{}{},
			"additionalProperties": true,
		},
	},
}

// GenericExtraction builds the prompt used when a document has no matching
// mapping template: extract every visible field into a hierarchical JSON
// tree, using field names in the document's own language.
func GenericExtraction() (string, ResponseFormat) {
	var b strings.Builder
	b.WriteString("Extract every visible field from this document page into a single JSON object.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Include every label, value, table cell, and footer note you can see; use null for blank fields rather than omitting them.\n")
	b.WriteString("- Name fields in the same language the document uses — do not translate labels.\n")
	b.WriteString("- Render repeating rows (tables, line items) as an array of objects sharing the same keys.\n")
	b.WriteString("- Keep numbers as JSON numbers and dates in the format shown on the page.\n")
	b.WriteString("- Always include a top-level \"document_type\" field naming the kind of document this is.\n")
	b.WriteString("- Return only the JSON object, with no surrounding prose or markdown fences.\n")
	return b.String(), genericJSONFormat
}

// FieldDetection builds the prompt used to discover a document's field
// structure without extracting any values — every leaf is set to null.
// Used when building a new MappingTemplate from a sample document.
func FieldDetection() (string, ResponseFormat) {
	var b strings.Builder
	b.WriteString("Identify the field structure of this document page without extracting any values.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Set every field's value to null — this builds a template, not an extraction.\n")
	b.WriteString("- Group related fields under section names that reflect the document's own layout.\n")
	b.WriteString("- Use a flat structure if the document has no clear sections.\n")
	b.WriteString("- Represent tables as an array containing one example row of nulls.\n")
	b.WriteString("- Return only the JSON object, with no surrounding prose or markdown fences.\n")
	return b.String(), ResponseFormat{
		Type: "json_schema",
		JSONSchema: map[string]interface{}{
			"name":   "field_detection_response",
			"strict": false,
			"schema": map[string]interface{}{
				"type":                 "object",
				"additionalProperties": true,
			},
		},
	}
}

// TemplateCandidate is one MappingTemplate offered to the model for
// classification.
type TemplateCandidate struct {
	ID          string
	Name        string
	Description string
	FieldNames  []string
}

// TemplateMatching builds the prompt asking the model to pick which of the
// given templates best matches the document.
func TemplateMatching(candidates []TemplateCandidate) (string, ResponseFormat, error) {
	if len(candidates) == 0 {
		return "", ResponseFormat{}, fmt.Errorf("template matching requires at least one candidate template")
	}

	var details strings.Builder
	for i, c := range candidates {
		if i > 0 {
			details.WriteString("\n\n")
		}
		fmt.Fprintf(&details, "ID: %s\nName: %s\nDescription: %s\nFields: %s",
			c.ID, c.Name, c.Description, strings.Join(c.FieldNames, ", "))
	}

	var b strings.Builder
	b.WriteString("You are matching a document to the best-fitting template from the list below.\n\n")
	b.WriteString("AVAILABLE TEMPLATES:\n")
	b.WriteString(details.String())
	b.WriteString("\n\nConsider document structure, field arrangement, terminology, and overall purpose.\n")
	b.WriteString("Respond with a JSON object: matched_template_id, confidence (0-1), and a one-sentence reasoning.\n")

	format := ResponseFormat{
		Type: "json_schema",
		JSONSchema: map[string]interface{}{
			"name":   "template_matching_response",
			"strict": false,
			"schema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"matched_template_id": map[string]interface{}{"type": "string"},
					"confidence":          map[string]interface{}{"type": "number"},
					"reasoning":           map[string]interface{}{"type": "string"},
				},
				"required":             []string{"matched_template_id", "confidence", "reasoning"},
				"additionalProperties": false,
			},
		},
	}
	return b.String(), format, nil
}
