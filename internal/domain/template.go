package domain

import "time"

// TransformKind names one of the ~20 pure post-processing transforms a
// TemplateColumn can apply to a raw extracted value before it lands in the
// final mapped output.
type TransformKind string

const (
	TransformYesNo                 TransformKind = "yes_no"
	TransformSplitFirst             TransformKind = "split_first"
	TransformSplitSecond            TransformKind = "split_second"
	TransformDateFormat              TransformKind = "date_format"
	TransformCalculateYears          TransformKind = "calculate_years"
	TransformCalculateYearsFromDate  TransformKind = "calculate_years_from_date"
	TransformCurrencyFormat          TransformKind = "currency_format"
	TransformExtractRegex            TransformKind = "extract_regex"
	TransformLookup                  TransformKind = "lookup"
	TransformExtractNIKDob            TransformKind = "extract_nik_dob"
	TransformRemoveChars              TransformKind = "remove_chars"
	TransformExtractProvince          TransformKind = "extract_province"
	TransformExtractCity              TransformKind = "extract_city"
	TransformDefaultValue             TransformKind = "default_value"
	TransformExtractKeyword           TransformKind = "extract_keyword"
	TransformConvertDateFormat        TransformKind = "convert_date_format"
	TransformBooleanYesNo             TransformKind = "boolean_yes_no"
	TransformStripCurrencyUnit        TransformKind = "strip_currency_unit"
	TransformNormalizeNPWP            TransformKind = "normalize_npwp"
	TransformHandleEmptyDash          TransformKind = "handle_empty_dash"
	TransformExtractReferenceNumber   TransformKind = "extract_reference_number"
	TransformExtractNumber            TransformKind = "extract_number"
	TransformRemovePrefix             TransformKind = "remove_prefix"
	TransformRemoveSuffix             TransformKind = "remove_suffix"
	TransformNone                     TransformKind = ""
)

// TemplateColumn describes one external column (e.g. an Excel header) a
// MappingTemplate resolves against a document's ExtractedFields and
// Transcript, plus the transform chain applied to whatever value resolution
// finds.
type TemplateColumn struct {
	ID              string          `db:"id"`
	TemplateID      string          `db:"template_id"`
	ColumnName      string          `db:"column_name"`
	ColumnOrder     int             `db:"column_order"`
	SearchKeywords  []string        `db:"search_keywords"`
	ExtractionHint  string          `db:"extraction_hint"`
	ExpectedSection string          `db:"expected_section"`
	DataType        string          `db:"data_type"` // text, number, date, currency, yes_no
	Transforms      []TransformSpec `db:"transforms"`
	DefaultValue    interface{}     `db:"default_value"`
	ExampleValue    string          `db:"example_value"`
}

// TransformSpec is one step of a TemplateColumn's transform chain: a kind
// plus whatever parameters that transform needs (regex pattern, lookup
// table name, date layout strings, prefix/suffix text, and so on).
type TransformSpec struct {
	Kind   TransformKind          `json:"kind"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// MappingTemplate is a named, reusable set of TemplateColumns applied to
// every Document in a Job that opts into template-driven output mapping.
type MappingTemplate struct {
	ID          string           `db:"id"`
	Name        string           `db:"name"`
	DocumentType string          `db:"document_type"`
	Columns     []TemplateColumn `db:"columns"`
	UsageCount  int              `db:"usage_count"`
	CreatedAt   time.Time        `db:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at"`
}
