package template

import (
	"testing"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
)

func apply(t *testing.T, value interface{}, kind domain.TransformKind, params map[string]interface{}) interface{} {
	t.Helper()
	return ApplyTransforms(value, []domain.TransformSpec{{Kind: kind, Params: params}})
}

func TestYesNo_NegativeKeywordWinsOverPositive(t *testing.T) {
	got := apply(t, "Bahwa debitur tidak tersangkut dalam perkara hukum", domain.TransformYesNo, nil)
	if got != "N" {
		t.Fatalf("expected N, got %v", got)
	}
}

func TestYesNo_EmptyDefaultsToN(t *testing.T) {
	got := apply(t, "-", domain.TransformYesNo, nil)
	if got != "N" {
		t.Fatalf("expected N, got %v", got)
	}
}

func TestYesNo_CustomTrueKeyword(t *testing.T) {
	got := apply(t, "Status: Aktif", domain.TransformYesNo, map[string]interface{}{
		"true_keywords": []interface{}{"aktif"},
	})
	if got != "Y" {
		t.Fatalf("expected Y, got %v", got)
	}
}

func TestSplitFirstSecond(t *testing.T) {
	if got := apply(t, "1234567890123456 / Jakarta", domain.TransformSplitFirst, nil); got != "1234567890123456" {
		t.Fatalf("unexpected split_first: %v", got)
	}
	if got := apply(t, "1234567890123456 / Jakarta", domain.TransformSplitSecond, nil); got != "Jakarta" {
		t.Fatalf("unexpected split_second: %v", got)
	}
}

func TestDateFormat_PassesThroughAlreadyFormatted(t *testing.T) {
	got := apply(t, "05-03-2024", domain.TransformDateFormat, nil)
	if got != "05-03-2024" {
		t.Fatalf("expected passthrough, got %v", got)
	}
}

func TestDateFormat_ReformatsSlashDate(t *testing.T) {
	got := apply(t, "05/03/2024", domain.TransformDateFormat, nil)
	if got != "05-03-2024" {
		t.Fatalf("expected 05-03-2024, got %v", got)
	}
}

func TestDateFormat_DashValueIsEmpty(t *testing.T) {
	if got := apply(t, "-", domain.TransformDateFormat, nil); got != "" {
		t.Fatalf("expected empty, got %v", got)
	}
}

func TestCalculateYears_Pluralization(t *testing.T) {
	got := apply(t, "2023", domain.TransformCalculateYears, map[string]interface{}{"base_year": 2024})
	if got != "1 year" {
		t.Fatalf("expected '1 year', got %v", got)
	}
	got = apply(t, "2020", domain.TransformCalculateYears, map[string]interface{}{"base_year": 2024})
	if got != "4 years" {
		t.Fatalf("expected '4 years', got %v", got)
	}
}

func TestCalculateYearsFromDate_SharesCalculateYearsBehavior(t *testing.T) {
	got := apply(t, "2020", domain.TransformCalculateYearsFromDate, map[string]interface{}{"base_year": 2024})
	if got != "4 years" {
		t.Fatalf("expected '4 years', got %v", got)
	}
}

func TestCurrencyFormat_IntegerGrouping(t *testing.T) {
	got := apply(t, "Rp 1234567", domain.TransformCurrencyFormat, nil)
	if got != "1.234.567" {
		t.Fatalf("expected 1.234.567, got %v", got)
	}
}

func TestCurrencyFormat_DecimalGrouping(t *testing.T) {
	got := apply(t, "1234.5", domain.TransformCurrencyFormat, nil)
	if got != "1.234,500" {
		t.Fatalf("expected 1.234,500, got %v", got)
	}
}

func TestExtractRegex_FirstAndLast(t *testing.T) {
	params := map[string]interface{}{"pattern": `No\. (\d+)`}
	got := apply(t, "No. 1 and No. 2", domain.TransformExtractRegex, params)
	if got != "1" {
		t.Fatalf("expected 1, got %v", got)
	}
	params["last"] = true
	got = apply(t, "No. 1 and No. 2", domain.TransformExtractRegex, params)
	if got != "2" {
		t.Fatalf("expected 2, got %v", got)
	}
}

func TestLookup_CaseInsensitiveSubstringFallback(t *testing.T) {
	params := map[string]interface{}{"Commercial": "COM", "default": "UNKNOWN"}
	got := apply(t, "segmen commercial banking", domain.TransformLookup, params)
	if got != "COM" {
		t.Fatalf("expected COM, got %v", got)
	}
}

func TestExtractNIKDob_FemaleDayAdjustment(t *testing.T) {
	// positions 6-12: day=45 (female, -40=5), month=03, year=90 -> 1990
	got := apply(t, "3271014503900001", domain.TransformExtractNIKDob, nil)
	if got != "05-03-1990" {
		t.Fatalf("expected 05-03-1990, got %v", got)
	}
}

func TestExtractNIKDob_WrongLengthReturnsEmpty(t *testing.T) {
	if got := apply(t, "12345", domain.TransformExtractNIKDob, nil); got != "" {
		t.Fatalf("expected empty, got %v", got)
	}
}

func TestRemoveChars(t *testing.T) {
	got := apply(t, "12.345.678-9", domain.TransformRemoveChars, map[string]interface{}{"chars": ".-"})
	if got != "123456789" {
		t.Fatalf("expected 123456789, got %v", got)
	}
}

func TestExtractProvince_FallbackList(t *testing.T) {
	got := apply(t, "Jl. Sudirman, DKI Jakarta 12190", domain.TransformExtractProvince, nil)
	if got != "DKI Jakarta" {
		t.Fatalf("expected DKI Jakarta, got %v", got)
	}
}

func TestDefaultValue_IgnoresInput(t *testing.T) {
	got := apply(t, "anything", domain.TransformDefaultValue, map[string]interface{}{"value": "FIXED"})
	if got != "FIXED" {
		t.Fatalf("expected FIXED, got %v", got)
	}
}

func TestExtractKeyword_TruncatesWords(t *testing.T) {
	got := apply(t, "one two three four five", domain.TransformExtractKeyword, map[string]interface{}{"max_words": 2})
	if got != "one two" {
		t.Fatalf("expected 'one two', got %v", got)
	}
}

func TestBooleanYesNo(t *testing.T) {
	if got := apply(t, "Y", domain.TransformBooleanYesNo, nil); got != "Yes" {
		t.Fatalf("expected Yes, got %v", got)
	}
	if got := apply(t, "tidak", domain.TransformBooleanYesNo, nil); got != "No" {
		t.Fatalf("expected No, got %v", got)
	}
}

func TestStripCurrencyUnit(t *testing.T) {
	got := apply(t, "500 Juta", domain.TransformStripCurrencyUnit, nil)
	if got != "500" {
		t.Fatalf("expected 500, got %v", got)
	}
}

func TestNormalizeNPWP_AddsTrailingDecimal(t *testing.T) {
	got := apply(t, "01.234.567-8-901.000", domain.TransformNormalizeNPWP, nil)
	if got != "012345678901000.0" {
		t.Fatalf("expected 012345678901000.0, got %v", got)
	}
}

func TestHandleEmptyDash(t *testing.T) {
	if got := apply(t, "-", domain.TransformHandleEmptyDash, nil); got != "" {
		t.Fatalf("expected empty, got %v", got)
	}
	if got := apply(t, "n/a", domain.TransformHandleEmptyDash, nil); got != "" {
		t.Fatalf("expected empty, got %v", got)
	}
	if got := apply(t, "value", domain.TransformHandleEmptyDash, nil); got != "value" {
		t.Fatalf("expected value, got %v", got)
	}
}

func TestExtractNumber_StripsUnitWords(t *testing.T) {
	got := apply(t, "32 years", domain.TransformExtractNumber, nil)
	if got != "32" {
		t.Fatalf("expected 32, got %v", got)
	}
}

func TestRemovePrefixSuffix(t *testing.T) {
	got := apply(t, "SEGMEN COMMERCIAL", domain.TransformRemovePrefix, map[string]interface{}{"prefix": "SEGMEN "})
	if got != "COMMERCIAL" {
		t.Fatalf("expected COMMERCIAL, got %v", got)
	}
	got = apply(t, "32 years", domain.TransformRemoveSuffix, map[string]interface{}{"suffix": " years"})
	if got != "32" {
		t.Fatalf("expected 32, got %v", got)
	}
}

func TestChain_MultipleTransformsApplyInOrder(t *testing.T) {
	got := ApplyTransforms("SEGMEN COMMERCIAL BANKING AND TRADE", []domain.TransformSpec{
		{Kind: domain.TransformRemovePrefix, Params: map[string]interface{}{"prefix": "SEGMEN "}},
		{Kind: domain.TransformExtractKeyword, Params: map[string]interface{}{"max_words": 2}},
	})
	if got != "COMMERCIAL BANKING" {
		t.Fatalf("expected 'COMMERCIAL BANKING', got %v", got)
	}
}

func TestUnknownTransformIsNoOp(t *testing.T) {
	got := apply(t, "unchanged", domain.TransformKind("not_a_real_transform"), nil)
	if got != "unchanged" {
		t.Fatalf("expected passthrough, got %v", got)
	}
}
