package record

import "testing"

func TestSetAddFoldsMetaKeys(t *testing.T) {
	set := &Set{}
	r1 := &Record{Ref: &Ref{Book: "Gen", Chapter: 1, Verse: 1}}
	r1.SetMeta("note", "a")
	r2 := &Record{Ref: &Ref{Book: "Gen", Chapter: 1, Verse: 2}}
	r2.SetMeta("tag", "b")
	r2.SetMeta("note", "c")

	set.Add(r1)
	set.Add(r2)

	want := []string{"note", "tag"}
	if len(set.MetaKeys) != len(want) {
		t.Fatalf("MetaKeys = %v, want %v", set.MetaKeys, want)
	}
	for i := range want {
		if set.MetaKeys[i] != want[i] {
			t.Errorf("MetaKeys[%d] = %q, want %q", i, set.MetaKeys[i], want[i])
		}
	}
}

func TestRecordMetaHelpers(t *testing.T) {
	r := &Record{}
	if _, ok := r.Meta("missing"); ok {
		t.Error("Meta on empty record should miss")
	}
	r.SetMeta(MetaVariant, "true")
	if !r.IsVariant() {
		t.Error("record with variant key should report IsVariant")
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := &Set{Preamble: "front matter"}
	r := &Record{Ref: &Ref{Book: "Gen", Chapter: 1, Verse: 1}, TargetText: "text"}
	r.SetMeta("note", "a")
	orig.Add(r)

	clone := orig.Clone()
	clone.Records[0].Ref.Verse = 99
	clone.Records[0].SetMeta("note", "changed")
	clone.Records[0].TargetText = "changed"

	if orig.Records[0].Ref.Verse != 1 {
		t.Error("clone shares Ref with original")
	}
	if v, _ := orig.Records[0].Meta("note"); v != "a" {
		t.Error("clone shares Metadata with original")
	}
	if orig.Records[0].TargetText != "text" {
		t.Error("clone shares text with original")
	}
}

func TestEqualIgnoresProvenance(t *testing.T) {
	a := &Set{SourceFormat: "tsv", SourceHash: "aaa"}
	a.Add(&Record{Ref: &Ref{Book: "Gen", Chapter: 1, Verse: 1}, TargetText: "x"})
	b := &Set{SourceFormat: "json", SourceHash: "bbb"}
	b.Add(&Record{Ref: &Ref{Book: "Gen", Chapter: 1, Verse: 1}, TargetText: "x"})

	if !Equal(a, b) {
		t.Error("sets differing only in provenance should be equal")
	}

	b.Records[0].TargetText = "y"
	if Equal(a, b) {
		t.Error("sets with different target text should differ")
	}
}

func TestEqualComparesPreambleAndMetadata(t *testing.T) {
	a := &Set{Preamble: "p"}
	a.Add(&Record{TargetText: "x"})
	b := &Set{Preamble: "q"}
	b.Add(&Record{TargetText: "x"})
	if Equal(a, b) {
		t.Error("different preambles should not be equal")
	}

	c := &Set{}
	r := &Record{TargetText: "x"}
	r.SetMeta("k", "v")
	c.Add(r)
	d := &Set{}
	d.Add(&Record{TargetText: "x"})
	if Equal(c, d) {
		t.Error("different metadata should not be equal")
	}
}

func TestHashIsStable(t *testing.T) {
	h1 := Hash([]byte("Genesis 1:1"))
	h2 := Hash([]byte("Genesis 1:1"))
	h3 := Hash([]byte("Genesis 1:2"))
	if h1 != h2 {
		t.Error("hash of identical input differs")
	}
	if h1 == h3 {
		t.Error("hash of different input collides")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
}
