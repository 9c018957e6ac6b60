// Package tsv handles tab-separated translation tables. The first row is a
// header; Book, Chapter, Verse, and Target Text columns are required, Source
// Text is optional, and any further columns fold into record metadata.
package tsv

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	verrors "github.com/verseflow/verseflow/core/errors"
	"github.com/verseflow/verseflow/core/record"
	"github.com/verseflow/verseflow/internal/checks"
	"github.com/verseflow/verseflow/internal/formats"
)

const formatName = "tsv"

// Required column names, in output order.
const (
	colBook   = "Book"
	colChap   = "Chapter"
	colVerse  = "Verse"
	colTarget = "Target Text"
	colSource = "Source Text"
	colIssues = "Issues"
)

var requiredColumns = []string{colBook, colChap, colVerse, colTarget}

var verseCell = regexp.MustCompile(`^(\d+)(?:-(\d+))?$`)

// Handler implements formats.Handler for TSV.
type Handler struct{}

func init() {
	formats.Register(&Handler{}, "tab")
}

// Name implements formats.Handler.
func (h *Handler) Name() string { return formatName }

// Parse implements formats.Handler. Row numbers in errors are 1-based and
// count the header. Blank lines are skipped; a header with zero data rows
// yields an empty set.
func (h *Handler) Parse(data []byte) (*record.Set, error) {
	lines := splitLines(data)
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, verrors.NewParse(formatName, 1, "missing header row")
	}

	header := strings.Split(lines[0], "\t")
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}
	for _, req := range requiredColumns {
		if _, ok := colIndex[req]; !ok {
			return nil, verrors.NewParsef(formatName, 1, "missing required column %q", req)
		}
	}

	// Extra header columns define metadata keys in header order.
	set := &record.Set{}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if isReservedColumn(name) {
			continue
		}
		set.MetaKeys = append(set.MetaKeys, name)
		colIndex[name] = i
	}

	for row := 1; row < len(lines); row++ {
		line := lines[row]
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		cell := func(name string) (string, bool) {
			idx, ok := colIndex[name]
			if !ok || idx >= len(fields) {
				return "", false
			}
			return fields[idx], true
		}

		for _, req := range requiredColumns {
			if _, ok := cell(req); !ok {
				return nil, verrors.NewParsef(formatName, row+1,
					"row has %d columns, missing %q", len(fields), req)
			}
		}

		bookCell, _ := cell(colBook)
		chapCell, _ := cell(colChap)
		verseRaw, _ := cell(colVerse)
		targetCell, _ := cell(colTarget)

		chapter, err := strconv.Atoi(strings.TrimSpace(chapCell))
		if err != nil {
			return nil, verrors.NewParsef(formatName, row+1, "chapter %q is not numeric", chapCell)
		}
		m := verseCell.FindStringSubmatch(strings.TrimSpace(verseRaw))
		if m == nil {
			return nil, verrors.NewParsef(formatName, row+1, "verse %q is not numeric", verseRaw)
		}
		verse, _ := strconv.Atoi(m[1])
		verseEnd := 0
		if m[2] != "" {
			verseEnd, _ = strconv.Atoi(m[2])
			if verseEnd < verse {
				return nil, verrors.NewParsef(formatName, row+1,
					"verse range %q ends before it starts", verseRaw)
			}
		}

		rec := &record.Record{
			Ref: &record.Ref{
				Book:     strings.TrimSpace(bookCell),
				Chapter:  chapter,
				Verse:    verse,
				VerseEnd: verseEnd,
			},
			TargetText: targetCell,
		}
		if src, ok := cell(colSource); ok && src != "" {
			rec.SourceText = src
		}
		for _, key := range set.MetaKeys {
			if v, ok := cell(key); ok && v != "" {
				rec.SetMeta(key, v)
			}
		}
		set.Add(rec)
	}

	return set, nil
}

// Serialize implements formats.Handler. Required columns come first, then
// Source Text when any record carries source text, then metadata keys in
// first-seen order. When issues are supplied an Issues column is appended.
func (h *Handler) Serialize(set *record.Set, issues []checks.Issue) ([]byte, error) {
	metaKeys := metaColumns(set)
	hasSource := false
	for _, r := range set.Records {
		if r.SourceText != "" {
			hasSource = true
			break
		}
	}

	header := append([]string(nil), requiredColumns...)
	if hasSource {
		header = append(header, colSource)
	}
	header = append(header, metaKeys...)
	if issues != nil {
		header = append(header, colIssues)
	}

	byIndex := issuesByIndex(issues)

	var buf bytes.Buffer
	buf.WriteString(strings.Join(header, "\t"))
	buf.WriteByte('\n')

	for i, r := range set.Records {
		if r.Ref == nil {
			return nil, verrors.NewSerialize(formatName,
				fmt.Sprintf("record %d has no reference", i))
		}
		verse := strconv.Itoa(r.Ref.Verse)
		if r.Ref.VerseEnd > 0 {
			verse += "-" + strconv.Itoa(r.Ref.VerseEnd)
		}

		cells := []string{r.Ref.Book, strconv.Itoa(r.Ref.Chapter), verse, r.TargetText}
		if hasSource {
			cells = append(cells, r.SourceText)
		}
		for _, key := range metaKeys {
			v, _ := r.Meta(key)
			cells = append(cells, v)
		}
		if issues != nil {
			cells = append(cells, formatIssueCell(byIndex[i]))
		}

		for _, c := range cells {
			if strings.ContainsAny(c, "\t\n\r") {
				return nil, verrors.NewSerialize(formatName,
					fmt.Sprintf("record %d contains a tab or newline, unrepresentable in a TSV cell", i))
			}
		}
		buf.WriteString(strings.Join(cells, "\t"))
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

// metaColumns returns the set's first-seen key order, extended with any keys
// present on records but missing from MetaKeys (sets built by hand).
func metaColumns(set *record.Set) []string {
	keys := append([]string(nil), set.MetaKeys...)
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, r := range set.Records {
		for k := range r.Metadata {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	// Keys discovered from record maps after MetaKeys keep a stable order.
	if len(keys) > len(set.MetaKeys) {
		extra := keys[len(set.MetaKeys):]
		for i := 1; i < len(extra); i++ {
			for j := i; j > 0 && extra[j] < extra[j-1]; j-- {
				extra[j], extra[j-1] = extra[j-1], extra[j]
			}
		}
	}
	return keys
}

func isReservedColumn(name string) bool {
	switch name {
	case colBook, colChap, colVerse, colTarget, colSource, colIssues:
		return true
	}
	return false
}

func issuesByIndex(issues []checks.Issue) map[int][]checks.Issue {
	if issues == nil {
		return nil
	}
	out := make(map[int][]checks.Issue)
	for _, is := range issues {
		out[is.Index] = append(out[is.Index], is)
	}
	return out
}

func formatIssueCell(issues []checks.Issue) string {
	parts := make([]string, 0, len(issues))
	for _, is := range issues {
		parts = append(parts, fmt.Sprintf("%s/%s", is.Severity, is.Code))
	}
	return strings.Join(parts, "; ")
}

func splitLines(data []byte) []string {
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
