package template

import (
	"fmt"
	"strings"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
)

// Mapping is one resolved TemplateColumn: which ExtractedField it bound to,
// how confident the match was, and which keyword-matching rule fired.
type Mapping struct {
	ExternalColumn string  `json:"external_column"`
	DBFieldName    string  `json:"db_field_name"`
	Confidence     float64 `json:"confidence"`
	SourceLocation string  `json:"source_location"`
	MatchMethod    string  `json:"match_method"`
}

// Report is the full result of resolving one MappingTemplate against one
// document's fields and transcript.
type Report struct {
	TemplateID      string    `json:"template_id"`
	TotalColumns    int       `json:"total_columns"`
	MappedColumns   int       `json:"mapped_columns"`
	UnmappedColumns int       `json:"unmapped_columns"`
	SuccessRate     float64   `json:"success_rate"`
	Mappings        []Mapping `json:"mappings"`
	Unmapped        []string  `json:"unmapped"`
	Warnings        []string  `json:"warnings"`
}

type candidate struct {
	field       domain.ExtractedField
	score       float64
	matchMethod string
}

// Resolve runs column resolution: for each TemplateColumn, score every
// ExtractedField against the column's ordered search keywords and keep the
// best match. Columns with no keyword hit land in Unmapped with a warning.
func Resolve(tmpl domain.MappingTemplate, fields []domain.ExtractedField, transcript *domain.DocumentTranscript) Report {
	report := Report{
		TemplateID:   tmpl.ID,
		TotalColumns: len(tmpl.Columns),
	}

	for _, col := range tmpl.Columns {
		best, ok := resolveColumn(col, fields)
		if !ok {
			report.Unmapped = append(report.Unmapped, col.ColumnName)
			report.Warnings = append(report.Warnings, fmt.Sprintf("no keyword match for column %q", col.ColumnName))
			continue
		}

		location := fmt.Sprintf("page %d", best.field.Page)
		if transcript != nil {
			if loc, ok := transcript.FieldLocations[best.field.FieldPath]; ok && loc != "" {
				location = loc
			}
		}

		report.Mappings = append(report.Mappings, Mapping{
			ExternalColumn: col.ColumnName,
			DBFieldName:    best.field.FieldPath,
			Confidence:     best.score,
			SourceLocation: location,
			MatchMethod:    best.matchMethod,
		})
	}

	report.MappedColumns = len(report.Mappings)
	report.UnmappedColumns = len(report.Unmapped)
	if report.TotalColumns > 0 {
		report.SuccessRate = float64(report.MappedColumns) / float64(report.TotalColumns)
	}
	return report
}

func resolveColumn(col domain.TemplateColumn, fields []domain.ExtractedField) (candidate, bool) {
	keywordCount := len(col.SearchKeywords)
	if keywordCount == 0 {
		return candidate{}, false
	}

	var best candidate
	found := false

	for i, keyword := range col.SearchKeywords {
		kwLower := strings.ToLower(keyword)
		if kwLower == "" {
			continue
		}
		// earlier keywords in the list are the author's preferred terms
		weight := 1 - float64(i)/float64(keywordCount)

		for _, f := range fields {
			for _, c := range matchField(f, kwLower, weight) {
				if !found || isBetter(c, best, col.ExpectedSection) {
					best = c
					found = true
				}
			}
		}
	}

	return best, found
}

func matchField(f domain.ExtractedField, kwLower string, weight float64) []candidate {
	var out []candidate

	if name := lastSegment(f.FieldPath); strings.Contains(strings.ToLower(name), kwLower) {
		out = append(out, candidate{field: f, score: 1.0 * weight, matchMethod: "field_name"})
	}
	if f.GroupName != "" && strings.Contains(strings.ToLower(f.GroupName), kwLower) {
		out = append(out, candidate{field: f, score: 0.9 * weight, matchMethod: "label"})
	}
	if valueStr := str(f.Value); valueStr != "" && strings.Contains(strings.ToLower(valueStr), kwLower) {
		out = append(out, candidate{field: f, score: 0.7 * weight, matchMethod: "value"})
	}
	return out
}

func isBetter(a, b candidate, expectedSection string) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if expectedSection != "" {
		aIn := a.field.GroupName == expectedSection
		bIn := b.field.GroupName == expectedSection
		if aIn != bIn {
			return aIn
		}
	}
	return a.field.Confidence > b.field.Confidence
}

func lastSegment(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx == -1 {
		return path
	}
	return path[idx+1:]
}

// ExportRow resolves tmpl against fields/transcript and produces one output
// row: external column name to its post-processed value. Columns that
// don't resolve fall back to their configured default.
func ExportRow(tmpl domain.MappingTemplate, fields []domain.ExtractedField, transcript *domain.DocumentTranscript) (map[string]interface{}, Report) {
	report := Resolve(tmpl, fields, transcript)
	byPath := make(map[string]domain.ExtractedField, len(fields))
	for _, f := range fields {
		byPath[f.FieldPath] = f
	}
	mappedBy := make(map[string]Mapping, len(report.Mappings))
	for _, m := range report.Mappings {
		mappedBy[m.ExternalColumn] = m
	}

	row := make(map[string]interface{}, len(tmpl.Columns))
	for _, col := range tmpl.Columns {
		m, ok := mappedBy[col.ColumnName]
		if !ok {
			row[col.ColumnName] = col.DefaultValue
			continue
		}
		field := byPath[m.DBFieldName]
		row[col.ColumnName] = ApplyTransforms(field.Value, col.Transforms)
	}
	return row, report
}
