package json

import (
	"strings"
	"testing"

	verrors "github.com/verseflow/verseflow/core/errors"
	"github.com/verseflow/verseflow/core/record"
	"github.com/verseflow/verseflow/internal/checks"
)

var handler = &Handler{}

func sampleSet() *record.Set {
	set := &record.Set{}
	set.Add(&record.Record{
		Ref:        &record.Ref{Book: "Genesis", Chapter: 1, Verse: 1},
		SourceText: "original",
		TargetText: "In the beginning",
	})
	rng := &record.Record{
		Ref:        &record.Ref{Book: "1 John", Chapter: 3, Verse: 16, VerseEnd: 18},
		TargetText: "Love one another",
	}
	rng.SetMeta("note", "range sample")
	set.Add(rng)
	set.Add(&record.Record{TargetText: "unreferenced"})
	return set
}

func TestRoundTrip(t *testing.T) {
	set := sampleSet()
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

func TestSerializeNullsNotOmitted(t *testing.T) {
	set := &record.Set{}
	set.Add(&record.Record{
		Ref:        &record.Ref{Book: "Genesis", Chapter: 1, Verse: 1},
		TargetText: "text",
	})
	out, err := handler.Serialize(set, nil)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	text := string(out)

	for _, field := range []string{`"verse_end": null`, `"sub_verse": null`, `"source_text": null`, `"metadata": null`} {
		if !strings.Contains(text, field) {
			t.Errorf("output missing explicit null %s:\n%s", field, text)
		}
	}

	set = &record.Set{}
	set.Add(&record.Record{TargetText: "plain"})
	out, err = handler.Serialize(set, nil)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	if !strings.Contains(string(out), `"ref": null`) {
		t.Errorf("nil ref should serialize as null:\n%s", out)
	}
}

func TestSerializePreambleWrapsDocument(t *testing.T) {
	set := &record.Set{Preamble: "front matter"}
	set.Add(&record.Record{TargetText: "x"})
	out, err := handler.Serialize(set, nil)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	if !strings.Contains(string(out), `"preamble": "front matter"`) {
		t.Errorf("preamble missing: %s", out)
	}

	again, err := handler.Parse(out)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !record.Equal(set, again) {
		t.Error("document shape round trip not field-equal")
	}
}

func TestSerializeIssues(t *testing.T) {
	set := &record.Set{}
	set.Add(&record.Record{Ref: &record.Ref{Book: "Genesis", Chapter: 1, Verse: 1}})
	issues := []checks.Issue{{
		Index: 0, Severity: checks.SeverityWarning,
		Code: checks.CodeIncomplete, Message: "target text is empty",
	}}
	out, err := handler.Serialize(set, issues)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	if !strings.Contains(string(out), `"code": "INCOMPLETE"`) {
		t.Errorf("issue annotation missing: %s", out)
	}
	if !strings.Contains(string(out), `"severity": "warning"`) {
		t.Errorf("severity should render as text: %s", out)
	}
}

func TestParseErrors(t *testing.T) {
	_, err := handler.Parse([]byte("[{\"target_text\": 42}]"))
	var pe *verrors.ParseError
	if !verrors.As(err, &pe) {
		t.Fatalf("want ParseError, got %v", err)
	}

	_, err = handler.Parse([]byte("[\n  {\"target_text\": \"x\"\n"))
	if !verrors.As(err, &pe) {
		t.Fatalf("want ParseError for truncated document, got %v", err)
	}

	_, err = handler.Parse([]byte(`[{"ref": {"book": "Gen", "chapter": 1, "verse": 5, "verse_end": 2}, "target_text": "x"}]`))
	if !verrors.As(err, &pe) {
		t.Fatalf("want ParseError for inverted range, got %v", err)
	}
}

func TestParseEmptyInput(t *testing.T) {
	set, err := handler.Parse([]byte("  \n"))
	if err != nil {
		t.Fatalf("blank input should parse to an empty set: %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("got %d records, want 0", set.Len())
	}
}
