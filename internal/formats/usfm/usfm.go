// Package usfm handles Unified Standard Format Markers scripture text. The
// parser recognizes \id, \c, and \v and accumulates verse text between
// markers; every other marker is preserved verbatim in record metadata so
// the serializer can reinsert it in its relative position. Round-tripping is
// best effort: nonstandard marker usage is documented as lossy.
package usfm

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/verseflow/verseflow/core/canon"
	verrors "github.com/verseflow/verseflow/core/errors"
	"github.com/verseflow/verseflow/core/record"
	"github.com/verseflow/verseflow/internal/checks"
	"github.com/verseflow/verseflow/internal/formats"
)

const formatName = "usfm"

var verseNumRe = regexp.MustCompile(`^(\d+)(?:-(\d+))?$`)

// Handler implements formats.Handler for USFM.
type Handler struct{}

func init() {
	formats.Register(&Handler{}, "sfm")
}

// Name implements formats.Handler.
func (h *Handler) Name() string { return formatName }

// Parse implements formats.Handler.
func (h *Handler) Parse(data []byte) (*record.Set, error) {
	set := &record.Set{}

	var (
		book     string
		chapter  int
		current  *record.Record
		pending  []string // unrecognized markers since the last verse closed
		preamble []string // lines before the first verse
		sawVerse bool
		lineNum  int
	)

	flushVerse := func() {
		if current != nil {
			set.Add(current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if !strings.HasPrefix(trimmed, "\\") {
			// Continuation text belongs to the open verse; before the
			// first verse it is document preamble.
			if current != nil {
				current.TargetText = joinText(current.TargetText, trimmed)
			} else if !sawVerse {
				preamble = append(preamble, line)
			} else {
				return nil, verrors.NewParse(formatName, lineNum,
					"text outside any verse")
			}
			continue
		}

		marker, value := splitMarker(trimmed)
		switch marker {
		case "id":
			flushVerse()
			fields := strings.Fields(value)
			if len(fields) == 0 {
				return nil, verrors.NewParse(formatName, lineNum, `\id marker has no book code`)
			}
			book = strings.ToUpper(fields[0])
			chapter = 0

		case "c":
			flushVerse()
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, verrors.NewParsef(formatName, lineNum,
					`chapter number %q is not numeric`, value)
			}
			chapter = n

		case "v":
			flushVerse()
			numPart, text := splitVerseNumber(value)
			m := verseNumRe.FindStringSubmatch(numPart)
			if m == nil {
				return nil, verrors.NewParsef(formatName, lineNum,
					`verse number %q is not numeric`, numPart)
			}
			verse, _ := strconv.Atoi(m[1])
			verseEnd := 0
			if m[2] != "" {
				verseEnd, _ = strconv.Atoi(m[2])
				if verseEnd < verse {
					return nil, verrors.NewParsef(formatName, lineNum,
						"verse range %q ends before it starts", numPart)
				}
			}

			sawVerse = true
			current = &record.Record{
				Ref: &record.Ref{
					Book:     book,
					Chapter:  chapter,
					Verse:    verse,
					VerseEnd: verseEnd,
				},
				TargetText: text,
			}
			if len(pending) > 0 {
				current.SetMeta(record.MetaRawMarkers, strings.Join(pending, "\n"))
				pending = nil
			}

		default:
			// Unrecognized marker: close the open verse and keep the
			// marker verbatim for the next record.
			flushVerse()
			if !sawVerse {
				preamble = append(preamble, trimmed)
			} else {
				pending = append(pending, trimmed)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, verrors.NewParse(formatName, lineNum, err.Error())
	}
	flushVerse()

	// Trailing markers have no following verse; they re-emit attached to
	// the last record (accepted round-trip loss of position).
	if len(pending) > 0 && set.Len() > 0 {
		last := set.Records[set.Len()-1]
		raw, _ := last.Meta(record.MetaRawMarkers)
		if raw != "" {
			raw += "\n"
		}
		last.SetMeta(record.MetaRawMarkers, raw+strings.Join(pending, "\n"))
	}

	set.Preamble = strings.Join(preamble, "\n")
	return set, nil
}

// Serialize implements formats.Handler. Issues are emitted as \rem lines
// after the offending verse.
func (h *Handler) Serialize(set *record.Set, issues []checks.Issue) ([]byte, error) {
	table := canon.Default()
	byIndex := make(map[int][]checks.Issue)
	for _, is := range issues {
		byIndex[is.Index] = append(byIndex[is.Index], is)
	}

	var buf bytes.Buffer
	if set.Preamble != "" {
		buf.WriteString(set.Preamble)
		buf.WriteByte('\n')
	}

	curBook := ""
	curChapter := 0
	for i, r := range set.Records {
		if raw, ok := r.Meta(record.MetaRawMarkers); ok && raw != "" {
			buf.WriteString(raw)
			buf.WriteByte('\n')
		}

		if r.Ref == nil {
			// Unstructured records carry over as paragraphs.
			buf.WriteString("\\p " + r.TargetText + "\n")
			continue
		}

		if r.Ref.Book != curBook {
			curBook = r.Ref.Book
			curChapter = 0
			buf.WriteString("\\id " + usfmCode(table, curBook) + "\n")
		}
		if r.Ref.Chapter != curChapter {
			curChapter = r.Ref.Chapter
			fmt.Fprintf(&buf, "\\c %d\n", curChapter)
		}

		verse := strconv.Itoa(r.Ref.Verse)
		if r.Ref.VerseEnd > 0 {
			verse += "-" + strconv.Itoa(r.Ref.VerseEnd)
		}
		fmt.Fprintf(&buf, "\\v %s %s\n", verse, r.TargetText)

		for _, is := range byIndex[i] {
			fmt.Fprintf(&buf, "\\rem %s %s: %s\n", is.Severity, is.Code, is.Message)
		}
	}

	return buf.Bytes(), nil
}

// usfmCode maps a book name to its USFM code; unknown books pass through
// uppercased so the output stays loadable.
func usfmCode(table *canon.Table, book string) string {
	if b, ok := table.Lookup(book); ok && b.USFM != "" {
		return b.USFM
	}
	return strings.ToUpper(book)
}

func splitMarker(line string) (marker, value string) {
	parts := strings.SplitN(line, " ", 2)
	marker = strings.TrimPrefix(parts[0], "\\")
	if len(parts) > 1 {
		value = parts[1]
	}
	return marker, value
}

func splitVerseNumber(value string) (num, text string) {
	value = strings.TrimSpace(value)
	parts := strings.SplitN(value, " ", 2)
	num = parts[0]
	if len(parts) > 1 {
		text = strings.TrimSpace(parts[1])
	}
	return num, text
}

func joinText(existing, more string) string {
	if existing == "" {
		return more
	}
	return existing + " " + more
}
