// Package json handles the canonical JSON interchange shape: an array of
// record objects in source order. Optional fields serialize as explicit
// nulls rather than being omitted, so the emitted shape is stable and a
// reparse yields a field-equal set. A document with a preamble wraps the
// array in an object; Parse accepts both shapes.
package json

import (
	"bytes"
	"encoding/json"
	"errors"

	verrors "github.com/verseflow/verseflow/core/errors"
	"github.com/verseflow/verseflow/core/record"
	"github.com/verseflow/verseflow/internal/checks"
	"github.com/verseflow/verseflow/internal/formats"
)

const formatName = "json"

type refDTO struct {
	Book     string  `json:"book"`
	Chapter  int     `json:"chapter"`
	Verse    int     `json:"verse"`
	VerseEnd *int    `json:"verse_end"`
	SubVerse *string `json:"sub_verse"`
}

type recordDTO struct {
	Ref        *refDTO           `json:"ref"`
	SourceText *string           `json:"source_text"`
	TargetText string            `json:"target_text"`
	Metadata   map[string]string `json:"metadata"`
	Issues     []checks.Issue    `json:"issues,omitempty"`
}

type documentDTO struct {
	Preamble string      `json:"preamble"`
	Records  []recordDTO `json:"records"`
}

// Handler implements formats.Handler for JSON.
type Handler struct{}

func init() {
	formats.Register(&Handler{})
}

// Name implements formats.Handler.
func (h *Handler) Name() string { return formatName }

// Parse implements formats.Handler.
func (h *Handler) Parse(data []byte) (*record.Set, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return &record.Set{}, nil
	}

	var dtos []recordDTO
	preamble := ""
	if trimmed[0] == '{' {
		var doc documentDTO
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, parseError(data, err)
		}
		dtos = doc.Records
		preamble = doc.Preamble
	} else {
		if err := json.Unmarshal(data, &dtos); err != nil {
			return nil, parseError(data, err)
		}
	}

	set := &record.Set{Preamble: preamble}
	for i, dto := range dtos {
		rec := &record.Record{TargetText: dto.TargetText}
		if dto.Ref != nil {
			rec.Ref = &record.Ref{
				Book:    dto.Ref.Book,
				Chapter: dto.Ref.Chapter,
				Verse:   dto.Ref.Verse,
			}
			if dto.Ref.VerseEnd != nil {
				rec.Ref.VerseEnd = *dto.Ref.VerseEnd
				if rec.Ref.VerseEnd < rec.Ref.Verse {
					return nil, verrors.NewParsef(formatName, 1,
						"record %d: verse range ends before it starts", i)
				}
			}
			if dto.Ref.SubVerse != nil {
				rec.Ref.SubVerse = *dto.Ref.SubVerse
			}
		}
		if dto.SourceText != nil {
			rec.SourceText = *dto.SourceText
		}
		for k, v := range dto.Metadata {
			rec.SetMeta(k, v)
		}
		set.Add(rec)
	}
	return set, nil
}

// Serialize implements formats.Handler. Output is indented and ends with a
// newline. When issues are supplied each record object gains an issues array.
func (h *Handler) Serialize(set *record.Set, issues []checks.Issue) ([]byte, error) {
	byIndex := make(map[int][]checks.Issue)
	for _, is := range issues {
		byIndex[is.Index] = append(byIndex[is.Index], is)
	}

	dtos := make([]recordDTO, 0, set.Len())
	for i, r := range set.Records {
		dto := recordDTO{
			TargetText: r.TargetText,
			Issues:     byIndex[i],
		}
		if r.Ref != nil {
			dto.Ref = &refDTO{
				Book:    r.Ref.Book,
				Chapter: r.Ref.Chapter,
				Verse:   r.Ref.Verse,
			}
			if r.Ref.VerseEnd > 0 {
				v := r.Ref.VerseEnd
				dto.Ref.VerseEnd = &v
			}
			if r.Ref.SubVerse != "" {
				s := r.Ref.SubVerse
				dto.Ref.SubVerse = &s
			}
		}
		if r.SourceText != "" {
			s := r.SourceText
			dto.SourceText = &s
		}
		if len(r.Metadata) > 0 {
			dto.Metadata = r.Metadata
		}
		dtos = append(dtos, dto)
	}

	var (
		out []byte
		err error
	)
	if set.Preamble != "" {
		out, err = json.MarshalIndent(documentDTO{Preamble: set.Preamble, Records: dtos}, "", "  ")
	} else {
		out, err = json.MarshalIndent(dtos, "", "  ")
	}
	if err != nil {
		return nil, verrors.NewSerialize(formatName, err.Error())
	}
	return append(out, '\n'), nil
}

// parseError converts an encoding/json error into a ParseError with a line
// number derived from the error's byte offset where one is available.
func parseError(data []byte, err error) error {
	line := 1
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syn):
		line = lineAt(data, syn.Offset)
	case errors.As(err, &typ):
		line = lineAt(data, typ.Offset)
	}
	return verrors.NewParse(formatName, line, err.Error())
}

func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return 1 + bytes.Count(data[:offset], []byte("\n"))
}
