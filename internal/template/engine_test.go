package template

import (
	"testing"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
)

func sampleFields() []domain.ExtractedField {
	return []domain.ExtractedField{
		{FieldPath: "borrower.full_name", GroupName: "borrower", Value: "Budi Santoso", Confidence: 0.95, Page: 1},
		{FieldPath: "borrower.nik", GroupName: "borrower", Value: "3271014503900001", Confidence: 0.9, Page: 1},
		{FieldPath: "loan.tenor_years", GroupName: "loan", Value: "2020", Confidence: 0.8, Page: 2},
	}
}

func TestResolve_MatchesByFieldName(t *testing.T) {
	tmpl := domain.MappingTemplate{
		ID: "tmpl-1",
		Columns: []domain.TemplateColumn{
			{ColumnName: "Nama Debitur", SearchKeywords: []string{"full_name", "nama"}},
		},
	}
	report := Resolve(tmpl, sampleFields(), nil)
	if report.MappedColumns != 1 {
		t.Fatalf("expected 1 mapped column, got %d mappings=%v unmapped=%v", report.MappedColumns, report.Mappings, report.Unmapped)
	}
	if report.Mappings[0].DBFieldName != "borrower.full_name" {
		t.Fatalf("expected borrower.full_name, got %s", report.Mappings[0].DBFieldName)
	}
	if report.Mappings[0].MatchMethod != "field_name" {
		t.Fatalf("expected field_name match, got %s", report.Mappings[0].MatchMethod)
	}
}

func TestResolve_UnmappedColumnReportsWarning(t *testing.T) {
	tmpl := domain.MappingTemplate{
		ID: "tmpl-1",
		Columns: []domain.TemplateColumn{
			{ColumnName: "Nonexistent", SearchKeywords: []string{"zzzz_not_present"}},
		},
	}
	report := Resolve(tmpl, sampleFields(), nil)
	if report.MappedColumns != 0 || report.UnmappedColumns != 1 {
		t.Fatalf("expected fully unmapped, got %+v", report)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", report.Warnings)
	}
}

func TestResolve_SuccessRate(t *testing.T) {
	tmpl := domain.MappingTemplate{
		Columns: []domain.TemplateColumn{
			{ColumnName: "A", SearchKeywords: []string{"full_name"}},
			{ColumnName: "B", SearchKeywords: []string{"zzzz"}},
		},
	}
	report := Resolve(tmpl, sampleFields(), nil)
	if report.SuccessRate != 0.5 {
		t.Fatalf("expected 0.5 success rate, got %v", report.SuccessRate)
	}
}

func TestResolve_ExpectedSectionTieBreak(t *testing.T) {
	fields := []domain.ExtractedField{
		{FieldPath: "borrower.status", GroupName: "other", Value: "active status", Confidence: 0.99},
		{FieldPath: "loan.status", GroupName: "loan", Value: "active status", Confidence: 0.5},
	}
	tmpl := domain.MappingTemplate{
		Columns: []domain.TemplateColumn{
			{ColumnName: "Status", SearchKeywords: []string{"status"}, ExpectedSection: "loan"},
		},
	}
	report := Resolve(tmpl, fields, nil)
	if len(report.Mappings) != 1 {
		t.Fatalf("expected one mapping, got %v", report.Mappings)
	}
	if report.Mappings[0].DBFieldName != "loan.status" {
		t.Fatalf("expected expected_section tie-break to pick loan.status, got %s", report.Mappings[0].DBFieldName)
	}
}

func TestExportRow_AppliesTransformsAndDefaults(t *testing.T) {
	tmpl := domain.MappingTemplate{
		Columns: []domain.TemplateColumn{
			{
				ColumnName:     "Tahun Tenor",
				SearchKeywords: []string{"tenor_years"},
				Transforms: []domain.TransformSpec{
					{Kind: domain.TransformCalculateYears, Params: map[string]interface{}{"base_year": 2024}},
				},
			},
			{
				ColumnName:   "Catatan",
				SearchKeywords: []string{"zzzz_missing"},
				DefaultValue: "N/A",
			},
		},
	}
	row, report := ExportRow(tmpl, sampleFields(), nil)
	if row["Tahun Tenor"] != "4 years" {
		t.Fatalf("expected '4 years', got %v", row["Tahun Tenor"])
	}
	if row["Catatan"] != "N/A" {
		t.Fatalf("expected default N/A, got %v", row["Catatan"])
	}
	if report.MappedColumns != 1 {
		t.Fatalf("expected 1 mapped column, got %d", report.MappedColumns)
	}
}

func TestResolve_SourceLocationFromTranscript(t *testing.T) {
	fields := []domain.ExtractedField{
		{FieldPath: "borrower.full_name", GroupName: "borrower", Value: "Budi", Confidence: 0.9, Page: 1},
	}
	transcript := &domain.DocumentTranscript{
		FieldLocations: map[string]string{"borrower.full_name": "page 1, borrower section"},
	}
	tmpl := domain.MappingTemplate{
		Columns: []domain.TemplateColumn{
			{ColumnName: "Nama", SearchKeywords: []string{"full_name"}},
		},
	}
	report := Resolve(tmpl, fields, transcript)
	if report.Mappings[0].SourceLocation != "page 1, borrower section" {
		t.Fatalf("expected transcript-backed location, got %s", report.Mappings[0].SourceLocation)
	}
}
