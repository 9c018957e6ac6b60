package txt

import (
	"strings"
	"testing"

	"github.com/verseflow/verseflow/core/record"
	"github.com/verseflow/verseflow/internal/checks"
)

var handler = &Handler{}

func TestParse(t *testing.T) {
	set, err := handler.Parse([]byte("Free-form translation notes.\nSecond line.\n\n\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("got %d records, want 1", set.Len())
	}
	r := set.Records[0]
	if r.Ref != nil {
		t.Error("plain text records carry no reference")
	}
	if r.TargetText != "Free-form translation notes.\nSecond line." {
		t.Errorf("trailing blank lines should be trimmed: %q", r.TargetText)
	}
}

func TestParseEmpty(t *testing.T) {
	set, err := handler.Parse([]byte("\n\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("blank input should yield an empty set, got %d records", set.Len())
	}
}

func TestSerializeUnstructured(t *testing.T) {
	set := &record.Set{}
	set.Add(&record.Record{TargetText: "whole document"})
	out, err := handler.Serialize(set, nil)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	if string(out) != "whole document\n" {
		t.Errorf("output = %q", out)
	}
}

func TestSerializeStructured(t *testing.T) {
	set := &record.Set{}
	set.Add(&record.Record{
		Ref:        &record.Ref{Book: "Genesis", Chapter: 1, Verse: 1},
		TargetText: "In the beginning",
	})
	out, err := handler.Serialize(set, nil)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	if !strings.HasPrefix(string(out), "Genesis 1:1\tIn the beginning") {
		t.Errorf("structured line = %q", out)
	}
}

func TestSerializeIssueTrailer(t *testing.T) {
	set := &record.Set{}
	set.Add(&record.Record{TargetText: "x"})
	issues := []checks.Issue{{
		Index: 0, Severity: checks.SeverityWarning,
		Code: checks.CodeIncomplete, Message: "target text is empty",
	}}
	out, err := handler.Serialize(set, issues)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	if !strings.Contains(string(out), "[warning INCOMPLETE] record 0") {
		t.Errorf("issue trailer missing: %q", out)
	}
}
