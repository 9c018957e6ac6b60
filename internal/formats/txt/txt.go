// Package txt handles unstructured plain text. The whole input becomes a
// single record with no reference; the format checks treat such sets as
// unstructured and skip reference requirements.
package txt

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/verseflow/verseflow/core/record"
	"github.com/verseflow/verseflow/internal/checks"
	"github.com/verseflow/verseflow/internal/formats"
)

const formatName = "txt"

// Handler implements formats.Handler for plain text.
type Handler struct{}

func init() {
	formats.Register(&Handler{}, "text", "plain")
}

// Name implements formats.Handler.
func (h *Handler) Name() string { return formatName }

// Parse implements formats.Handler. Empty input yields an empty set rather
// than a record with empty text.
func (h *Handler) Parse(data []byte) (*record.Set, error) {
	set := &record.Set{}
	text := strings.TrimRight(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if text == "" {
		return set, nil
	}
	set.Add(&record.Record{TargetText: text})
	return set, nil
}

// Serialize implements formats.Handler. Structured records render one line
// per record prefixed with the reference; unstructured records render their
// text verbatim. Issues are appended as bracketed trailer lines.
func (h *Handler) Serialize(set *record.Set, issues []checks.Issue) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range set.Records {
		if r.Ref != nil {
			buf.WriteString(r.Ref.String())
			if r.TargetText != "" {
				buf.WriteByte('\t')
				buf.WriteString(r.TargetText)
			}
		} else {
			buf.WriteString(r.TargetText)
		}
		buf.WriteByte('\n')
	}

	for _, is := range issues {
		fmt.Fprintf(&buf, "[%s %s] record %s: %s\n",
			is.Severity, is.Code, strconv.Itoa(is.Index), is.Message)
	}

	return buf.Bytes(), nil
}
