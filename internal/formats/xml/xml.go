// Package xml handles the XML interchange shape: a <records> root holding one
// <record> element per record, the reference as attributes and the text as
// escaped child elements. Emitted bytes are re-parsed before being returned,
// so a caller never receives malformed XML. Content XML 1.0 cannot carry
// (control characters) is a SerializeError, never a silent substitution.
package xml

import (
	"bytes"
	enc "encoding/xml"
	"fmt"
	"strconv"

	"github.com/antchfx/xmlquery"

	verrors "github.com/verseflow/verseflow/core/errors"
	"github.com/verseflow/verseflow/core/record"
	"github.com/verseflow/verseflow/internal/checks"
	"github.com/verseflow/verseflow/internal/formats"
)

const formatName = "xml"

type xmlIssue struct {
	Severity string `xml:"severity,attr"`
	Code     string `xml:"code,attr"`
	Message  string `xml:",chardata"`
}

type xmlMeta struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type xmlRecord struct {
	XMLName  enc.Name   `xml:"record"`
	Book     string     `xml:"book,attr,omitempty"`
	Chapter  int        `xml:"chapter,attr,omitempty"`
	Verse    int        `xml:"verse,attr,omitempty"`
	VerseEnd int        `xml:"verse-end,attr,omitempty"`
	SubVerse string     `xml:"sub-verse,attr,omitempty"`
	Source   string     `xml:"source,omitempty"`
	Target   string     `xml:"target"`
	Meta     []xmlMeta  `xml:"meta"`
	Issues   []xmlIssue `xml:"issue"`
}

type xmlDocument struct {
	XMLName  enc.Name    `xml:"records"`
	Preamble string      `xml:"preamble,omitempty"`
	Records  []xmlRecord `xml:"record"`
}

// Handler implements formats.Handler for XML.
type Handler struct{}

func init() {
	formats.Register(&Handler{})
}

// Name implements formats.Handler.
func (h *Handler) Name() string { return formatName }

// Parse implements formats.Handler.
func (h *Handler) Parse(data []byte) (*record.Set, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, verrors.NewParse(formatName, 1, err.Error())
	}

	set := &record.Set{}
	if p := xmlquery.FindOne(doc, "/records/preamble"); p != nil {
		set.Preamble = p.InnerText()
	}

	nodes, err := xmlquery.QueryAll(doc, "//record")
	if err != nil {
		return nil, verrors.NewParse(formatName, 1, err.Error())
	}
	for i, n := range nodes {
		rec := &record.Record{}
		if t := xmlquery.FindOne(n, "target"); t != nil {
			rec.TargetText = t.InnerText()
		}
		if s := xmlquery.FindOne(n, "source"); s != nil {
			rec.SourceText = s.InnerText()
		}

		if book := n.SelectAttr("book"); book != "" {
			ref := &record.Ref{Book: book}
			if ref.Chapter, err = intAttr(n, "chapter", i); err != nil {
				return nil, err
			}
			if ref.Verse, err = intAttr(n, "verse", i); err != nil {
				return nil, err
			}
			if ref.VerseEnd, err = intAttr(n, "verse-end", i); err != nil {
				return nil, err
			}
			if ref.VerseEnd > 0 && ref.VerseEnd < ref.Verse {
				return nil, verrors.NewParsef(formatName, 1,
					"record %d: verse range ends before it starts", i)
			}
			ref.SubVerse = n.SelectAttr("sub-verse")
			rec.Ref = ref
		}

		for _, m := range xmlquery.Find(n, "meta") {
			if key := m.SelectAttr("key"); key != "" {
				rec.SetMeta(key, m.InnerText())
			}
		}
		set.Add(rec)
	}
	return set, nil
}

// Serialize implements formats.Handler.
func (h *Handler) Serialize(set *record.Set, issues []checks.Issue) ([]byte, error) {
	byIndex := make(map[int][]checks.Issue)
	for _, is := range issues {
		byIndex[is.Index] = append(byIndex[is.Index], is)
	}

	doc := xmlDocument{Preamble: set.Preamble}
	if err := checkRepresentable(-1, set.Preamble); err != nil {
		return nil, err
	}
	for i, r := range set.Records {
		xr := xmlRecord{Source: r.SourceText, Target: r.TargetText}
		if r.Ref != nil {
			xr.Book = r.Ref.Book
			xr.Chapter = r.Ref.Chapter
			xr.Verse = r.Ref.Verse
			xr.VerseEnd = r.Ref.VerseEnd
			xr.SubVerse = r.Ref.SubVerse
		}
		for _, text := range []string{xr.Book, r.SourceText, r.TargetText} {
			if err := checkRepresentable(i, text); err != nil {
				return nil, err
			}
		}
		for _, key := range sortedMetaKeys(r) {
			value := r.Metadata[key]
			if err := checkRepresentable(i, key); err != nil {
				return nil, err
			}
			if err := checkRepresentable(i, value); err != nil {
				return nil, err
			}
			xr.Meta = append(xr.Meta, xmlMeta{Key: key, Value: value})
		}
		for _, is := range byIndex[i] {
			xr.Issues = append(xr.Issues, xmlIssue{
				Severity: is.Severity.String(),
				Code:     is.Code,
				Message:  is.Message,
			})
		}
		doc.Records = append(doc.Records, xr)
	}

	body, err := enc.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, verrors.NewSerialize(formatName, err.Error())
	}
	out := append([]byte(enc.Header), body...)
	out = append(out, '\n')

	// Re-parse the emitted bytes; anything malformed stays inside.
	if _, err := xmlquery.Parse(bytes.NewReader(out)); err != nil {
		return nil, verrors.NewSerialize(formatName, "emitted document is not well formed: "+err.Error())
	}
	return out, nil
}

// checkRepresentable rejects characters XML 1.0 has no encoding for.
func checkRepresentable(index int, s string) error {
	for _, r := range s {
		if r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		if r < 0x20 || r == 0xFFFE || r == 0xFFFF {
			where := "preamble"
			if index >= 0 {
				where = fmt.Sprintf("record %d", index)
			}
			return verrors.NewSerialize(formatName, fmt.Sprintf(
				"%s contains control character %s, unrepresentable in XML", where, strconv.QuoteRune(r)))
		}
	}
	return nil
}

func sortedMetaKeys(r *record.Record) []string {
	if len(r.Metadata) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.Metadata))
	for k := range r.Metadata {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

// intAttr parses a numeric attribute; a missing attribute reads as zero.
func intAttr(n *xmlquery.Node, name string, index int) (int, error) {
	raw := n.SelectAttr(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, verrors.NewParsef(formatName, 1,
			"record %d: attribute %s=%q is not numeric", index, name, raw)
	}
	return v, nil
}
