// Package transcript renders a document's extracted Node tree into a
// deterministic, human-readable text transcript plus a section/field index
// used as the search substrate for template column resolution.
package transcript

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/domain"
)

// PageExtraction is one page's extraction result feeding the transcript
// builder. A page with Err set is skipped, matching how a failed
// rasterization/LLM call for one page must not block the rest of the
// document's transcript.
type PageExtraction struct {
	PageNumber int
	Root       domain.Node
	Err        error
}

// SectionEntry records where a top-level section was seen and which
// dotted field paths belong to it.
type SectionEntry struct {
	Pages  []int
	Fields []string
}

// FieldLocation pinpoints where one leaf value was found.
type FieldLocation struct {
	Page    int
	Section string
	Context string // first 100 chars of the value, for quick preview
}

// Result is the full output of building a transcript.
type Result struct {
	FullText          string
	PageTranscripts   []PageText
	SectionIndex      map[string]SectionEntry
	FieldLocations    map[string]FieldLocation
	TotalPages        int
	TotalSections     int
	GenerationTimeMS  int64
}

// PageText is one page's slice of the full transcript.
type PageText struct {
	Page int
	Text string
}

// Build walks every page's Node tree depth-first and renders the combined
// transcript. now is passed in rather than read from the clock so callers
// control timing determinism in tests.
func Build(documentName string, pages []PageExtraction, now time.Time) Result {
	start := now

	var allLines []string
	var pageTranscripts []PageText
	sectionIndex := make(map[string]SectionEntry)
	fieldLocations := make(map[string]FieldLocation)
	totalSections := 0

	allLines = append(allLines, fmt.Sprintf("=== DOCUMENT: %s ===\n", documentName))

	for _, page := range pages {
		if page.Err != nil {
			continue
		}

		var pageLines []string
		pageLines = append(pageLines, fmt.Sprintf("\n--- PAGE %d ---\n", page.PageNumber))

		b := &builder{
			pageNum:        page.PageNumber,
			sectionIndex:   sectionIndex,
			fieldLocations: fieldLocations,
		}
		sections := b.process(page.Root, "", "")
		pageLines = append(pageLines, b.lines...)

		totalSections += len(sections)

		pageText := strings.Join(pageLines, "")
		pageTranscripts = append(pageTranscripts, PageText{Page: page.PageNumber, Text: pageText})
		allLines = append(allLines, pageLines...)
	}

	elapsed := time.Since(start)

	return Result{
		FullText:         strings.Join(allLines, ""),
		PageTranscripts:  pageTranscripts,
		SectionIndex:     sectionIndex,
		FieldLocations:   fieldLocations,
		TotalPages:       len(pages),
		TotalSections:    totalSections,
		GenerationTimeMS: elapsed.Milliseconds(),
	}
}

// builder accumulates rendered lines while walking one page's tree.
type builder struct {
	pageNum        int
	lines          []string
	sectionIndex   map[string]SectionEntry
	fieldLocations map[string]FieldLocation
}

// process renders node at prefix/currentSection and returns the section
// names newly discovered at or below this call.
func (b *builder) process(node domain.Node, prefix, currentSection string) []string {
	switch node.Kind {
	case domain.NodeObject:
		return b.processObject(node, prefix, currentSection)
	case domain.NodeArray:
		return b.processArray(node, prefix, currentSection)
	default:
		b.emitLeaf(node, prefix, currentSection)
		return nil
	}
}

func (b *builder) processObject(node domain.Node, prefix, currentSection string) []string {
	var sectionsFound []string

	keys := make([]string, 0, len(node.Fields))
	for k := range node.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if strings.HasPrefix(key, "_") {
			continue
		}
		child := node.Fields[key]

		isSection := prefix == "" && !strings.HasPrefix(key, "[")
		newPrefix := key
		if prefix != "" {
			newPrefix = prefix + "." + key
		}

		section := currentSection
		if isSection {
			section = key
			sectionsFound = append(sectionsFound, section)
			b.lines = append(b.lines, fmt.Sprintf("\n[%s]\n", TitleCase(section)))

			entry, ok := b.sectionIndex[section]
			if !ok {
				entry = SectionEntry{}
			}
			if !containsInt(entry.Pages, b.pageNum) {
				entry.Pages = append(entry.Pages, b.pageNum)
			}
			b.sectionIndex[section] = entry
		}

		childSections := b.process(child, newPrefix, section)
		sectionsFound = append(sectionsFound, childSections...)

		if isSection && section != "" {
			entry := b.sectionIndex[section]
			entry.Fields = append(entry.Fields, newPrefix)
			b.sectionIndex[section] = entry
		}
	}

	return sectionsFound
}

func (b *builder) processArray(node domain.Node, prefix, currentSection string) []string {
	if len(node.Items) == 0 {
		return nil
	}

	allObjects := true
	for _, item := range node.Items {
		if item.Kind != domain.NodeObject {
			allObjects = false
			break
		}
	}

	if allObjects {
		b.lines = append(b.lines, fmt.Sprintf("\n  Table: %s (%d rows)\n", prefix, len(node.Items)))
		var sections []string
		for i, row := range node.Items {
			rowPrefix := prefix + "[" + strconv.Itoa(i) + "]"
			sections = append(sections, b.process(row, rowPrefix, currentSection)...)
		}
		return sections
	}

	var sections []string
	for i, item := range node.Items {
		itemPrefix := prefix + "[" + strconv.Itoa(i) + "]"
		sections = append(sections, b.process(item, itemPrefix, currentSection)...)
	}
	return sections
}

func (b *builder) emitLeaf(node domain.Node, prefix, currentSection string) {
	fieldName := prefix
	if fieldName == "" {
		fieldName = "value"
	}

	valueStr := ""
	if node.Value != nil {
		valueStr = fmt.Sprintf("%v", node.Value)
	}
	if valueStr == "" {
		return
	}

	b.lines = append(b.lines, fmt.Sprintf("  %s: %s\n", fieldName, valueStr))

	section := currentSection
	if section == "" {
		section = "unknown"
	}
	context := valueStr
	if len(context) > 100 {
		context = context[:100]
	}
	b.fieldLocations[fieldName] = FieldLocation{Page: b.pageNum, Section: section, Context: context}
}

func containsInt(haystack []int, needle int) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// TitleCase renders a snake_case or dotted path segment as a human-readable
// label ("account_number" -> "Account Number"), used both for section
// headings here and for an ExtractedField's field_label.
func TitleCase(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r[0]) + strings.ToLower(string(r[1:]))
	}
	return strings.Join(words, " ")
}

// ToDomain collapses Result into the persisted DocumentTranscript shape:
// each section keeps its first-seen page, each field location becomes a
// formatted "Page N, Section: X" string.
func (r Result) ToDomain(id, documentID string, createdAt time.Time) domain.DocumentTranscript {
	sectionIndex := make(map[string]int, len(r.SectionIndex))
	for name, entry := range r.SectionIndex {
		if len(entry.Pages) > 0 {
			sectionIndex[name] = entry.Pages[0]
		}
	}

	fieldLocations := make(map[string]string, len(r.FieldLocations))
	for path, loc := range r.FieldLocations {
		if loc.Section != "" && loc.Section != "unknown" {
			fieldLocations[path] = fmt.Sprintf("Page %d, Section: %s", loc.Page, loc.Section)
		} else {
			fieldLocations[path] = fmt.Sprintf("Page %d", loc.Page)
		}
	}

	return domain.DocumentTranscript{
		ID:             id,
		DocumentID:     documentID,
		Text:           r.FullText,
		SectionIndex:   sectionIndex,
		FieldLocations: fieldLocations,
		CreatedAt:      createdAt,
	}
}
