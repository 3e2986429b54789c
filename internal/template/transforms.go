// Package template applies MappingTemplate column resolution and the
// post-processing transform chain to a document's extracted fields.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
)

// ApplyTransforms runs value through spec's transform chain in order,
// feeding each step's output into the next. A transform that errors or
// doesn't recognize its kind leaves the value unchanged, matching the
// no-op-on-unknown behavior post-processing has always had.
func ApplyTransforms(value interface{}, specs []domain.TransformSpec) interface{} {
	for _, spec := range specs {
		value = applyOne(value, spec)
	}
	return value
}

func applyOne(value interface{}, spec domain.TransformSpec) interface{} {
	if value == nil {
		return value
	}
	switch spec.Kind {
	case domain.TransformYesNo:
		return transformYesNo(value, spec.Params)
	case domain.TransformSplitFirst:
		return transformSplitFirst(value, spec.Params)
	case domain.TransformSplitSecond:
		return transformSplitSecond(value, spec.Params)
	case domain.TransformDateFormat:
		return transformDateFormat(value, spec.Params)
	case domain.TransformCalculateYears, domain.TransformCalculateYearsFromDate:
		// calculate_years_from_date is the same base_year/"now" arithmetic as
		// calculate_years; the two post_process_type names distinguish intent
		// at the template-authoring layer but share one implementation here.
		return transformCalculateYears(value, spec.Params)
	case domain.TransformCurrencyFormat:
		return transformCurrencyFormat(value, spec.Params)
	case domain.TransformExtractRegex:
		return transformExtractRegex(value, spec.Params)
	case domain.TransformLookup:
		return transformLookup(value, spec.Params)
	case domain.TransformExtractNIKDob:
		return transformExtractNIKDob(value, spec.Params)
	case domain.TransformRemoveChars:
		return transformRemoveChars(value, spec.Params)
	case domain.TransformExtractProvince:
		return transformExtractProvince(value, spec.Params)
	case domain.TransformExtractCity:
		return transformExtractCity(value, spec.Params)
	case domain.TransformDefaultValue:
		return transformDefaultValue(value, spec.Params)
	case domain.TransformExtractKeyword:
		return transformExtractKeyword(value, spec.Params)
	case domain.TransformConvertDateFormat:
		return transformConvertDateFormat(value, spec.Params)
	case domain.TransformBooleanYesNo:
		return transformBooleanYesNo(value, spec.Params)
	case domain.TransformStripCurrencyUnit:
		return transformStripCurrencyUnit(value, spec.Params)
	case domain.TransformNormalizeNPWP:
		return transformNormalizeNPWP(value, spec.Params)
	case domain.TransformHandleEmptyDash:
		return transformHandleEmptyDash(value, spec.Params)
	case domain.TransformExtractReferenceNumber:
		return transformExtractReferenceNumber(value, spec.Params)
	case domain.TransformExtractNumber:
		return transformExtractNumber(value, spec.Params)
	case domain.TransformRemovePrefix:
		return transformRemovePrefix(value, spec.Params)
	case domain.TransformRemoveSuffix:
		return transformRemoveSuffix(value, spec.Params)
	default:
		return value
	}
}

func str(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func paramStr(p map[string]interface{}, key, def string) string {
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func paramBool(p map[string]interface{}, key string) bool {
	v, ok := p[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func paramStrSlice(p map[string]interface{}, key string) []string {
	v, ok := p[key]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		return lo.Map(vv, func(item interface{}, _ int) string { return str(item) })
	}
	return nil
}

var negativeYesNoWords = []string{"tidak tersangkut", "tidak ada", "belum", "lancar", "private", "tertutup", "green", "bahwa debitur"}
var positiveYesNoWords = []string{"yes", "ya", "ada", "tersangkut", "tbk", "public", "high", "red"}

func transformYesNo(value interface{}, p map[string]interface{}) string {
	valueStr := strings.ToLower(strings.TrimSpace(str(value)))
	def := paramStr(p, "default", "N")

	if valueStr == "" || valueStr == "-" || valueStr == "none" {
		return def
	}

	// false keywords checked first: more specific negatives like "tidak
	// tersangkut" must win over a looser positive match.
	for _, kw := range paramStrSlice(p, "false_keywords") {
		if strings.Contains(valueStr, strings.ToLower(kw)) {
			return "N"
		}
	}
	for _, kw := range paramStrSlice(p, "true_keywords") {
		if strings.Contains(valueStr, strings.ToLower(kw)) {
			return "Y"
		}
	}

	for _, w := range negativeYesNoWords {
		if strings.Contains(valueStr, w) {
			return "N"
		}
	}
	for _, w := range positiveYesNoWords {
		if strings.Contains(valueStr, w) {
			return "Y"
		}
	}

	return def
}

func transformSplitFirst(value interface{}, p map[string]interface{}) string {
	sep := paramStr(p, "separator", "/")
	valueStr := str(value)
	parts := strings.Split(valueStr, sep)
	if len(parts) == 0 {
		return valueStr
	}
	return strings.TrimSpace(parts[0])
}

func transformSplitSecond(value interface{}, p map[string]interface{}) string {
	sep := paramStr(p, "separator", "/")
	valueStr := str(value)
	parts := strings.Split(valueStr, sep)
	if len(parts) <= 1 {
		return valueStr
	}
	return strings.TrimSpace(parts[1])
}

var dateFormatLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"2006-01-02",
	"02 January 2006",
	"02 Jan 2006",
}

var alreadyFormatted = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}`)

func transformDateFormat(value interface{}, _ map[string]interface{}) string {
	valueStr := strings.TrimSpace(str(value))
	if valueStr == "" || valueStr == "-" {
		return ""
	}
	if alreadyFormatted.MatchString(valueStr) {
		return valueStr
	}
	for _, layout := range dateFormatLayouts {
		if t, err := time.Parse(layout, valueStr); err == nil {
			return t.Format("02-01-2006")
		}
	}
	return valueStr
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

func transformCalculateYears(value interface{}, p map[string]interface{}) string {
	valueStr := strings.TrimSpace(str(value))
	if valueStr == "" || valueStr == "-" {
		return ""
	}
	match := yearPattern.FindString(valueStr)
	if match == "" {
		return valueStr
	}
	fromYear, err := strconv.Atoi(match)
	if err != nil {
		return valueStr
	}

	toYear := time.Now().Year()
	if baseYear, ok := p["base_year"]; ok {
		switch v := baseYear.(type) {
		case int:
			toYear = v
		case float64:
			toYear = int(v)
		}
	}
	if paramStr(p, "to", "") == "now" {
		toYear = time.Now().Year()
	}

	years := toYear - fromYear
	if years == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%d years", years)
}

var currencyNumberPattern = regexp.MustCompile(`\d+[,.]?\d*`)

func transformCurrencyFormat(value interface{}, _ map[string]interface{}) string {
	valueStr := str(value)
	numbers := currencyNumberPattern.FindAllString(valueStr, -1)
	if len(numbers) == 0 {
		return valueStr
	}
	joined := strings.ReplaceAll(strings.Join(numbers, ""), ",", ".")

	num, err := decimal.NewFromString(joined)
	if err != nil {
		return valueStr
	}
	if num.Equal(num.Truncate(0)) {
		return groupThousands(num.Truncate(0).String(), ".")
	}
	return formatThreeDecimalComma(num)
}

func groupThousands(intStr, sep string) string {
	neg := strings.HasPrefix(intStr, "-")
	if neg {
		intStr = intStr[1:]
	}
	n := len(intStr)
	if n <= 3 {
		if neg {
			return "-" + intStr
		}
		return intStr
	}
	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(intStr[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(intStr[i : i+3])
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	return out
}

func formatThreeDecimalComma(num decimal.Decimal) string {
	rounded := num.Round(3)
	s := rounded.StringFixed(3)
	parts := strings.SplitN(s, ".", 2)
	intPart := groupThousands(parts[0], ".")
	if len(parts) == 2 {
		return intPart + "," + parts[1]
	}
	return intPart
}

func transformExtractRegex(value interface{}, p map[string]interface{}) string {
	valueStr := str(value)
	pattern := paramStr(p, "pattern", "")
	if pattern == "" {
		return valueStr
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return valueStr
	}
	matches := re.FindAllStringSubmatch(valueStr, -1)
	if len(matches) == 0 {
		return valueStr
	}
	groupIndex := 0
	if len(matches[0]) > 1 {
		groupIndex = 1
	}
	pick := matches[0]
	if paramBool(p, "last") {
		pick = matches[len(matches)-1]
	}
	if groupIndex < len(pick) {
		return pick[groupIndex]
	}
	return valueStr
}

func transformLookup(value interface{}, p map[string]interface{}) string {
	valueStr := strings.TrimSpace(str(value))
	for key, v := range p {
		if key == "default" {
			continue
		}
		if key == valueStr {
			return str(v)
		}
	}
	lowerVal := strings.ToLower(valueStr)
	for key, v := range p {
		if key == "default" {
			continue
		}
		if strings.Contains(lowerVal, strings.ToLower(key)) {
			return str(v)
		}
	}
	return paramStr(p, "default", valueStr)
}

func transformExtractNIKDob(value interface{}, _ map[string]interface{}) string {
	valueStr := strings.TrimSpace(str(value))
	if len(valueStr) != 16 {
		return ""
	}
	for _, r := range valueStr {
		if r < '0' || r > '9' {
			return ""
		}
	}

	day, errD := strconv.Atoi(valueStr[6:8])
	month, errM := strconv.Atoi(valueStr[8:10])
	year, errY := strconv.Atoi(valueStr[10:12])
	if errD != nil || errM != nil || errY != nil {
		return ""
	}

	if day > 40 {
		day -= 40
	}

	currentYY := time.Now().Year() % 100
	if year > currentYY {
		year += 1900
	} else {
		year += 2000
	}

	return fmt.Sprintf("%02d-%02d-%d", day, month, year)
}

func transformRemoveChars(value interface{}, p map[string]interface{}) string {
	if value == nil {
		return ""
	}
	valueStr := str(value)
	chars := paramStr(p, "chars", paramStr(p, "chars_to_remove", ""))
	replaceWith := paramStr(p, "replace_with", "")
	for _, c := range chars {
		valueStr = strings.ReplaceAll(valueStr, string(c), replaceWith)
	}
	return strings.TrimSpace(valueStr)
}

var defaultProvinces = []string{"DKI Jakarta", "Jawa Barat", "Jawa Tengah", "Jawa Timur", "Banten", "Bali", "Sumatera Utara", "Kepulauan Bangka Belitung"}

func transformExtractProvince(value interface{}, p map[string]interface{}) string {
	def := paramStr(p, "default", "")
	if value == nil || str(value) == "" {
		return def
	}
	valueStr := str(value)
	pattern := paramStr(p, "pattern", `(?i)Prov\.?\s*([^,\n]+)`)
	if re, err := regexp.Compile(pattern); err == nil {
		if m := re.FindStringSubmatch(valueStr); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}
	lowerVal := strings.ToLower(valueStr)
	for _, prov := range defaultProvinces {
		if strings.Contains(lowerVal, strings.ToLower(prov)) {
			return prov
		}
	}
	return def
}

var defaultCities = []string{"Jakarta Selatan", "Jakarta Pusat", "Jakarta Utara", "Jakarta Timur", "Jakarta Barat", "Bandung", "Surabaya", "Semarang", "Medan"}

func transformExtractCity(value interface{}, p map[string]interface{}) string {
	def := paramStr(p, "default", "")
	if value == nil || str(value) == "" {
		return def
	}
	valueStr := str(value)
	pattern := paramStr(p, "pattern", `([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\s+Prov`)
	if re, err := regexp.Compile(pattern); err == nil {
		if m := re.FindStringSubmatch(valueStr); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}
	lowerVal := strings.ToLower(valueStr)
	for _, city := range defaultCities {
		if strings.Contains(lowerVal, strings.ToLower(city)) {
			return city
		}
	}
	return def
}

func transformDefaultValue(_ interface{}, p map[string]interface{}) string {
	return paramStr(p, "value", "")
}

func transformExtractKeyword(value interface{}, p map[string]interface{}) string {
	if value == nil || str(value) == "" {
		return ""
	}
	valueStr := strings.TrimSpace(str(value))
	maxWords := 3
	if v, ok := p["max_words"]; ok {
		switch vv := v.(type) {
		case int:
			maxWords = vv
		case float64:
			maxWords = int(vv)
		}
	}
	words := strings.Fields(valueStr)
	if len(words) > maxWords {
		return strings.Join(words[:maxWords], " ")
	}
	return valueStr
}

func transformConvertDateFormat(value interface{}, p map[string]interface{}) string {
	if value == nil || str(value) == "-" {
		return ""
	}
	valueStr := strings.TrimSpace(str(value))
	fromFormat := paramStr(p, "from_format", "DD-MM-YYYY")
	toFormat := paramStr(p, "to_format", "DD/MM/YYYY")
	if fromFormat == "DD-MM-YYYY" && toFormat == "DD/MM/YYYY" {
		return strings.ReplaceAll(valueStr, "-", "/")
	}
	return valueStr
}

func transformBooleanYesNo(value interface{}, p map[string]interface{}) string {
	empty := paramStr(p, "empty_value", "No")
	if value == nil || str(value) == "" {
		return empty
	}
	valueStr := strings.ToUpper(strings.TrimSpace(str(value)))
	switch valueStr {
	case "Y", "YES", "YA", "TRUE", "1":
		return "Yes"
	case "N", "NO", "TIDAK", "FALSE", "0", "-":
		return "No"
	}
	return empty
}

var defaultCurrencyUnits = []string{"Jutaan", "Juta", "Ribuan", "Ribu", "Miliar", "Milyar"}

func transformStripCurrencyUnit(value interface{}, p map[string]interface{}) string {
	if value == nil || str(value) == "" {
		return ""
	}
	valueStr := strings.TrimSpace(str(value))
	units := paramStrSlice(p, "units")
	if units == nil {
		units = defaultCurrencyUnits
	}
	for _, unit := range units {
		valueStr = strings.ReplaceAll(valueStr, " "+unit, "")
		valueStr = strings.ReplaceAll(valueStr, unit, "")
	}
	return strings.TrimSpace(valueStr)
}

func transformNormalizeNPWP(value interface{}, p map[string]interface{}) string {
	if value == nil || str(value) == "-" {
		return ""
	}
	valueStr := strings.TrimSpace(str(value))
	outputFormat := paramStr(p, "output_format", "numeric")
	addDecimal := true
	if v, ok := p["add_decimal"]; ok {
		if b, ok := v.(bool); ok {
			addDecimal = b
		}
	}

	clean := strings.ReplaceAll(strings.ReplaceAll(valueStr, "-", ""), ".", "")

	if outputFormat == "numeric" {
		if addDecimal {
			return clean + ".0"
		}
		return clean
	}
	return valueStr
}

var defaultDashChars = []string{"-", "–", "—", "n/a", "N/A"}

func transformHandleEmptyDash(value interface{}, p map[string]interface{}) string {
	if value == nil || str(value) == "" {
		return ""
	}
	valueStr := strings.TrimSpace(str(value))
	dashChars := paramStrSlice(p, "dash_chars")
	if dashChars == nil {
		dashChars = defaultDashChars
	}
	if lo.Contains(dashChars, valueStr) {
		return ""
	}
	return valueStr
}

func transformExtractReferenceNumber(value interface{}, p map[string]interface{}) string {
	if value == nil || str(value) == "" {
		return ""
	}
	valueStr := strings.TrimSpace(str(value))
	pattern := paramStr(p, "pattern", `(?i)Surat No\.\s*[\w\d/\-]+`)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return valueStr
	}
	if m := re.FindString(valueStr); m != "" {
		return m
	}
	return valueStr
}

var extractNumberDefaultPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

func transformExtractNumber(value interface{}, p map[string]interface{}) string {
	if value == nil || str(value) == "" {
		return ""
	}
	valueStr := strings.TrimSpace(str(value))
	if pattern, ok := p["pattern"]; ok {
		if patternStr, ok := pattern.(string); ok && patternStr != "" {
			re, err := regexp.Compile(patternStr)
			if err == nil {
				if m := re.FindStringSubmatch(valueStr); len(m) > 1 {
					return m[1]
				} else if len(m) == 1 {
					return m[0]
				}
			}
			return valueStr
		}
	}
	if m := extractNumberDefaultPattern.FindString(valueStr); m != "" {
		return m
	}
	return valueStr
}

func transformRemovePrefix(value interface{}, p map[string]interface{}) string {
	if value == nil || str(value) == "" {
		return ""
	}
	valueStr := strings.TrimSpace(str(value))
	prefix := paramStr(p, "prefix", "")
	caseSensitive := paramBool(p, "case_sensitive")
	if prefix == "" {
		return valueStr
	}
	if caseSensitive {
		if strings.HasPrefix(valueStr, prefix) {
			return strings.TrimSpace(valueStr[len(prefix):])
		}
	} else if strings.HasPrefix(strings.ToLower(valueStr), strings.ToLower(prefix)) {
		return strings.TrimSpace(valueStr[len(prefix):])
	}
	return valueStr
}

func transformRemoveSuffix(value interface{}, p map[string]interface{}) string {
	if value == nil || str(value) == "" {
		return ""
	}
	valueStr := strings.TrimSpace(str(value))
	suffix := paramStr(p, "suffix", "")
	caseSensitive := paramBool(p, "case_sensitive")
	if suffix == "" {
		return valueStr
	}
	if caseSensitive {
		if strings.HasSuffix(valueStr, suffix) {
			return strings.TrimSpace(valueStr[:len(valueStr)-len(suffix)])
		}
	} else if strings.HasSuffix(strings.ToLower(valueStr), strings.ToLower(suffix)) {
		return strings.TrimSpace(valueStr[:len(valueStr)-len(suffix)])
	}
	return valueStr
}
