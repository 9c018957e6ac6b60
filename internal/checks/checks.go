// Package checks runs configurable quality checks over a record set,
// producing structured issues. Checks never mutate or reorder the set, run
// independently of one another, and yield a deterministic issue order.
package checks

import (
	"fmt"
	"sort"
	"strings"

	"github.com/verseflow/verseflow/core/canon"
	"github.com/verseflow/verseflow/core/record"
)

// Severity classifies an issue. The numeric order (Error < Warning < Info)
// is the sort order within a record.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler for JSON output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	default:
		return fmt.Errorf("unknown severity: %q", text)
	}
	return nil
}

// Issue is one finding produced by a check. Issues are never mutated after
// creation and never abort processing.
type Issue struct {
	// Index is the position of the offending record in the set.
	Index int `json:"record_index"`

	// Severity classifies the finding.
	Severity Severity `json:"severity"`

	// Code is a stable machine-readable identifier (e.g. "INCOMPLETE").
	Code string `json:"code"`

	// Message is the human-readable explanation.
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("record %d: %s %s: %s", i.Index, i.Severity, i.Code, i.Message)
}

// Kind identifies one check.
type Kind string

const (
	KindConsistency  Kind = "consistency"
	KindReference    Kind = "reference"
	KindCompleteness Kind = "completeness"
	KindFormat       Kind = "format"
)

// Issue codes.
const (
	CodeDuplicateReference = "DUPLICATE_REFERENCE"
	CodeUnknownBook        = "UNKNOWN_BOOK"
	CodeChapterOutOfRange  = "CHAPTER_OUT_OF_RANGE"
	CodeVerseOutOfRange    = "VERSE_OUT_OF_RANGE"
	CodeIncomplete         = "INCOMPLETE"
	CodeMissingReference   = "MISSING_REFERENCE"
	CodeMalformedMetadata  = "MALFORMED_METADATA"
)

// checkFn is the signature every check implements.
type checkFn func(set *record.Set, table *canon.Table) []Issue

var registry = map[Kind]checkFn{
	KindConsistency:  checkConsistency,
	KindReference:    checkReference,
	KindCompleteness: checkCompleteness,
	KindFormat:       checkFormat,
}

// ParseKind resolves a case-insensitive check token.
func ParseKind(token string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(token)))
	if _, ok := registry[k]; !ok {
		return "", fmt.Errorf("unknown check: %q", token)
	}
	return k, nil
}

// Kinds returns all known check kinds in stable order.
func Kinds() []Kind {
	return []Kind{KindConsistency, KindReference, KindCompleteness, KindFormat}
}

// Run executes the selected checks over the set. Each check runs to
// completion regardless of findings from the others. When table is nil the
// default canon is used. The result is sorted by (record index, severity,
// code) so the sequence is identical for identical inputs, independent of
// check execution order.
func Run(set *record.Set, kinds []Kind, table *canon.Table) []Issue {
	if table == nil {
		table = canon.Default()
	}

	seen := make(map[Kind]bool, len(kinds))
	var issues []Issue
	for _, k := range kinds {
		if seen[k] {
			continue
		}
		seen[k] = true
		fn, ok := registry[k]
		if !ok {
			continue
		}
		issues = append(issues, fn(set, table)...)
	}

	sort.SliceStable(issues, func(a, b int) bool {
		if issues[a].Index != issues[b].Index {
			return issues[a].Index < issues[b].Index
		}
		if issues[a].Severity != issues[b].Severity {
			return issues[a].Severity < issues[b].Severity
		}
		return issues[a].Code < issues[b].Code
	})
	return issues
}

// CountBySeverity tallies issues per severity for report summaries.
func CountBySeverity(issues []Issue) map[string]int {
	counts := make(map[string]int, 3)
	for _, is := range issues {
		counts[is.Severity.String()]++
	}
	return counts
}
