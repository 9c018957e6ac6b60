// Package markdown handles Markdown scripture documents. A heading or inline
// line of the form "Book Chapter:Verse" starts a record; following text until
// the next reference is its target text. Material before the first reference
// is kept as a document preamble, not a record. Round-tripping is best
// effort: heading levels and intra-record spacing are normalized.
package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	verrors "github.com/verseflow/verseflow/core/errors"
	"github.com/verseflow/verseflow/core/record"
	"github.com/verseflow/verseflow/internal/checks"
	"github.com/verseflow/verseflow/internal/formats"
)

const formatName = "markdown"

// refLine matches "Book Chapter:Verse[-End][sub]" with an optional heading
// prefix and optional inline text after the reference.
var refLine = regexp.MustCompile(
	`^(#{1,6}\s+)?((?:\d\s)?[A-Za-z][A-Za-z]*(?:\s+[A-Za-z][A-Za-z]*)*?\s+\d+:\d+(?:-\d+)?[a-z]?)(?:\s+(\S.*))?\s*$`)

// Handler implements formats.Handler for Markdown.
type Handler struct{}

func init() {
	formats.Register(&Handler{}, "md")
}

// Name implements formats.Handler.
func (h *Handler) Name() string { return formatName }

// Parse implements formats.Handler.
func (h *Handler) Parse(data []byte) (*record.Set, error) {
	set := &record.Set{}

	var (
		preamble []string
		current  *record.Record
		body     []string
	)

	flush := func() {
		if current == nil {
			return
		}
		current.TargetText = joinBody(current.TargetText, body)
		set.Add(current)
		current = nil
		body = nil
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for n, line := range lines {
		if m := refLine.FindStringSubmatch(line); m != nil {
			ref, err := record.ParseRef(m[2])
			if err == nil && ref.Chapter > 0 && ref.Verse > 0 {
				flush()
				current = &record.Record{Ref: ref, TargetText: strings.TrimSpace(m[3])}
				continue
			}
			if m[1] != "" {
				// A heading that looks like a reference but does not
				// parse is a malformed locator, not body text.
				return nil, verrors.NewParsef(formatName, n+1,
					"heading %q is not a valid reference", strings.TrimSpace(line))
			}
		}

		if current != nil {
			body = append(body, line)
		} else {
			preamble = append(preamble, line)
		}
	}
	flush()

	set.Preamble = strings.TrimSpace(strings.Join(preamble, "\n"))
	if set.Len() == 0 && set.Preamble != "" {
		return nil, verrors.NewParse(formatName, 1, "no scripture references found")
	}
	return set, nil
}

// Serialize implements formats.Handler. One heading is emitted per unique
// reference; consecutive records sharing a reference share its heading.
// Issues render as blockquotes under the offending record.
func (h *Handler) Serialize(set *record.Set, issues []checks.Issue) ([]byte, error) {
	byIndex := make(map[int][]checks.Issue)
	for _, is := range issues {
		byIndex[is.Index] = append(byIndex[is.Index], is)
	}

	var buf bytes.Buffer
	if set.Preamble != "" {
		buf.WriteString(set.Preamble)
		buf.WriteString("\n\n")
	}

	var prev *record.Ref
	for i, r := range set.Records {
		if r.Ref == nil {
			return nil, verrors.NewSerialize(formatName,
				fmt.Sprintf("record %d has no reference", i))
		}
		if prev == nil || !r.Ref.SameLocation(prev) {
			fmt.Fprintf(&buf, "## %s\n\n", r.Ref)
			prev = r.Ref
		}
		if r.TargetText != "" {
			buf.WriteString(r.TargetText)
			buf.WriteString("\n\n")
		}
		for _, is := range byIndex[i] {
			fmt.Fprintf(&buf, "> %s %s: %s\n", is.Severity, is.Code, is.Message)
		}
		if len(byIndex[i]) > 0 {
			buf.WriteByte('\n')
		}
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func joinBody(inline string, body []string) string {
	text := strings.TrimSpace(strings.Join(body, "\n"))
	switch {
	case inline == "":
		return text
	case text == "":
		return inline
	default:
		return inline + "\n" + text
	}
}
