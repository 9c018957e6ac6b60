package xml

import (
	"strings"
	"testing"

	verrors "github.com/verseflow/verseflow/core/errors"
	"github.com/verseflow/verseflow/core/record"
	"github.com/verseflow/verseflow/internal/checks"
)

var handler = &Handler{}

func TestRoundTrip(t *testing.T) {
	set := &record.Set{Preamble: "front matter"}
	set.Add(&record.Record{
		Ref:        &record.Ref{Book: "Genesis", Chapter: 1, Verse: 1},
		SourceText: "original",
		TargetText: "In the beginning",
	})
	r := &record.Record{
		Ref:        &record.Ref{Book: "1 John", Chapter: 3, Verse: 16, VerseEnd: 18, SubVerse: "a"},
		TargetText: "Love one another",
	}
	r.SetMeta("note", "range sample")
	set.Add(r)
	set.Add(&record.Record{TargetText: "unreferenced"})

	out, err := handler.Serialize(set, nil)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	again, err := handler.Parse(out)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !record.Equal(set, again) {
		t.Errorf("round trip not field-equal:\nfirst:  %+v\nsecond: %+v", set, again)
	}
}

func TestSerializeEscapesMarkup(t *testing.T) {
	set := &record.Set{}
	set.Add(&record.Record{
		Ref:        &record.Ref{Book: "Genesis", Chapter: 1, Verse: 1},
		TargetText: `He said <not> "this" & that`,
	})
	out, err := handler.Serialize(set, nil)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	text := string(out)
	if strings.Contains(text, "<not>") {
		t.Errorf("markup not escaped: %s", text)
	}
	if !strings.Contains(text, "&lt;not&gt;") {
		t.Errorf("expected entity escapes: %s", text)
	}

	again, err := handler.Parse(out)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if again.Records[0].TargetText != set.Records[0].TargetText {
		t.Errorf("escaped text did not round trip: %q", again.Records[0].TargetText)
	}
}

func TestSerializeRejectsControlCharacters(t *testing.T) {
	set := &record.Set{}
	set.Add(&record.Record{
		Ref:        &record.Ref{Book: "Genesis", Chapter: 1, Verse: 1},
		TargetText: "broken \x00 byte",
	})
	_, err := handler.Serialize(set, nil)
	if !verrors.Is(err, verrors.ErrUnrepresentable) {
		t.Errorf("control character should be unrepresentable, got %v", err)
	}

	var se *verrors.SerializeError
	if !verrors.As(err, &se) || se.Format != "xml" {
		t.Errorf("want SerializeError for xml, got %v", err)
	}
}

func TestSerializeIssues(t *testing.T) {
	set := &record.Set{}
	set.Add(&record.Record{Ref: &record.Ref{Book: "Genesis", Chapter: 1, Verse: 1}})
	issues := []checks.Issue{{
		Index: 0, Severity: checks.SeverityError,
		Code: checks.CodeUnknownBook, Message: `unknown book "Genesis"`,
	}}
	out, err := handler.Serialize(set, issues)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	text := string(out)
	if !strings.Contains(text, `severity="error"`) || !strings.Contains(text, `code="UNKNOWN_BOOK"`) {
		t.Errorf("issue element missing: %s", text)
	}
}

func TestParseErrors(t *testing.T) {
	_, err := handler.Parse([]byte("<records><record></records>"))
	var pe *verrors.ParseError
	if !verrors.As(err, &pe) {
		t.Fatalf("want ParseError for malformed XML, got %v", err)
	}

	_, err = handler.Parse([]byte(`<records><record book="Gen" chapter="one" verse="1"><target>x</target></record></records>`))
	if !verrors.As(err, &pe) {
		t.Fatalf("want ParseError for non-numeric chapter, got %v", err)
	}
}
