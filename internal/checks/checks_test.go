package checks

import (
	"reflect"
	"testing"

	"github.com/verseflow/verseflow/core/record"
)

func rec(book string, chapter, verse int, text string) *record.Record {
	return &record.Record{
		Ref:        &record.Ref{Book: book, Chapter: chapter, Verse: verse},
		TargetText: text,
	}
}

func TestConsistencyFlagsDuplicates(t *testing.T) {
	set := &record.Set{}
	set.Add(rec("Genesis", 1, 1, "first"))
	set.Add(rec("Genesis", 1, 2, "second"))
	set.Add(rec("Genesis", 1, 1, "again"))

	issues := Run(set, []Kind{KindConsistency}, nil)
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1: %v", len(issues), issues)
	}
	is := issues[0]
	if is.Index != 2 || is.Severity != SeverityWarning || is.Code != CodeDuplicateReference {
		t.Errorf("unexpected issue: %+v", is)
	}
}

func TestConsistencyAllowsVariants(t *testing.T) {
	set := &record.Set{}
	set.Add(rec("Genesis", 1, 1, "reading"))
	variant := rec("Genesis", 1, 1, "variant reading")
	variant.SetMeta(record.MetaVariant, "footnote")
	set.Add(variant)

	if issues := Run(set, []Kind{KindConsistency}, nil); len(issues) != 0 {
		t.Errorf("variant duplicate should not be flagged: %v", issues)
	}
}

func TestReferenceCheck(t *testing.T) {
	tests := []struct {
		name string
		rec  *record.Record
		code string
	}{
		{"unknown book", rec("Atlantis", 1, 1, "x"), CodeUnknownBook},
		{"chapter out of range", rec("Genesis", 51, 1, "x"), CodeChapterOutOfRange},
		{"verse out of range", rec("Genesis", 1, 32, "x"), CodeVerseOutOfRange},
		{"range end out of range", &record.Record{
			Ref:        &record.Ref{Book: "Genesis", Chapter: 1, Verse: 30, VerseEnd: 32},
			TargetText: "x",
		}, CodeVerseOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := &record.Set{}
			set.Add(tt.rec)
			issues := Run(set, []Kind{KindReference}, nil)
			if len(issues) != 1 {
				t.Fatalf("got %d issues, want 1: %v", len(issues), issues)
			}
			if issues[0].Code != tt.code || issues[0].Severity != SeverityError {
				t.Errorf("issue = %+v, want code %s", issues[0], tt.code)
			}
		})
	}
}

func TestReferenceCheckAcceptsValidAndAliases(t *testing.T) {
	set := &record.Set{}
	set.Add(rec("Genesis", 1, 31, "last verse"))
	set.Add(rec("GEN", 50, 26, "by code"))
	set.Add(rec("1John", 5, 21, "by squashed name"))
	set.Add(&record.Record{TargetText: "plain text, no ref"})

	if issues := Run(set, []Kind{KindReference}, nil); len(issues) != 0 {
		t.Errorf("valid references flagged: %v", issues)
	}
}

func TestCompletenessCheck(t *testing.T) {
	set := &record.Set{}
	set.Add(rec("Genesis", 1, 1, "translated"))
	set.Add(rec("Genesis", 1, 2, ""))

	issues := Run(set, []Kind{KindCompleteness}, nil)
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1: %v", len(issues), issues)
	}
	if issues[0].Index != 1 || issues[0].Code != CodeIncomplete || issues[0].Severity != SeverityWarning {
		t.Errorf("unexpected issue: %+v", issues[0])
	}
}

func TestFormatCheck(t *testing.T) {
	set := &record.Set{SourceFormat: "tsv"}
	set.Add(rec("Genesis", 1, 1, "ok"))
	set.Add(&record.Record{TargetText: "no locator"})
	bad := rec("Genesis", 1, 2, "bad markers")
	bad.SetMeta(record.MetaRawMarkers, "\\p\nnot a marker")
	set.Add(bad)

	issues := Run(set, []Kind{KindFormat}, nil)
	if len(issues) != 2 {
		t.Fatalf("got %d issues, want 2: %v", len(issues), issues)
	}
	if issues[0].Index != 1 || issues[0].Code != CodeMissingReference {
		t.Errorf("issue 0 = %+v", issues[0])
	}
	if issues[1].Index != 2 || issues[1].Code != CodeMalformedMetadata {
		t.Errorf("issue 1 = %+v", issues[1])
	}
}

func TestFormatCheckSkipsUnstructured(t *testing.T) {
	set := &record.Set{SourceFormat: "txt"}
	set.Add(&record.Record{TargetText: "whole file"})
	if issues := Run(set, []Kind{KindFormat}, nil); len(issues) != 0 {
		t.Errorf("txt sets need no locators: %v", issues)
	}
}

func TestRunIsDeterministicAndSorted(t *testing.T) {
	set := &record.Set{SourceFormat: "tsv"}
	set.Add(rec("Atlantis", 1, 1, ""))
	set.Add(rec("Genesis", 1, 1, "ok"))
	set.Add(rec("Genesis", 1, 1, ""))

	kinds := []Kind{KindFormat, KindCompleteness, KindConsistency, KindReference}
	first := Run(set, kinds, nil)
	second := Run(set, kinds, nil)
	if !reflect.DeepEqual(first, second) {
		t.Error("identical runs produced different issue sequences")
	}

	// Reversed kind order must not change the output.
	reversed := Run(set, []Kind{KindReference, KindConsistency, KindCompleteness, KindFormat}, nil)
	if !reflect.DeepEqual(first, reversed) {
		t.Error("check execution order leaked into the output")
	}

	for i := 1; i < len(first); i++ {
		a, b := first[i-1], first[i]
		if a.Index > b.Index {
			t.Fatalf("issues not sorted by index: %v", first)
		}
		if a.Index == b.Index && a.Severity > b.Severity {
			t.Fatalf("issues not sorted by severity within record: %v", first)
		}
	}
}

func TestRunNeverMutatesSet(t *testing.T) {
	set := &record.Set{SourceFormat: "tsv"}
	set.Add(rec("Genesis", 1, 1, ""))
	set.Add(rec("Genesis", 1, 1, ""))
	before := set.Clone()

	Run(set, Kinds(), nil)

	if !record.Equal(before, set) {
		t.Error("Run mutated the record set")
	}
	if set.Records[0] == nil || set.Records[0].Ref.Verse != 1 {
		t.Error("Run altered record contents")
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" Consistency "); err != nil || k != KindConsistency {
		t.Errorf("ParseKind = %v, %v", k, err)
	}
	if _, err := ParseKind("spelling"); err == nil {
		t.Error("unknown kind should error")
	}
}

func TestDedupedKinds(t *testing.T) {
	set := &record.Set{}
	set.Add(rec("Genesis", 1, 2, ""))
	issues := Run(set, []Kind{KindCompleteness, KindCompleteness}, nil)
	if len(issues) != 1 {
		t.Errorf("duplicate kinds should run once, got %d issues", len(issues))
	}
}
