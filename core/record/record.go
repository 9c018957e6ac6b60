// Package record defines the canonical in-memory representation of translation
// data. All format handlers produce and consume these types rather than defining
// their own.
package record

// MetaVariant is the metadata key that marks a record as a variant reading or
// footnote. Two records may share a reference when at least one carries it.
const MetaVariant = "variant"

// MetaRawMarkers is the metadata key under which the USFM handler preserves
// unrecognized markers verbatim, in their original relative position.
const MetaRawMarkers = "rawMarkers"

// Record is one translated unit of text with its locator and metadata.
type Record struct {
	// Ref locates the record in scripture. Nil for unstructured plain text.
	Ref *Ref `json:"ref"`

	// SourceText is the optional original-language text (Hebrew/Greek/Aramaic).
	SourceText string `json:"source_text,omitempty"`

	// TargetText is the translated text. Empty signals incompleteness.
	TargetText string `json:"target_text"`

	// Metadata holds additional key-value pairs (translator notes, tags).
	// Keys are unique; ordering is tracked at the Set level.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Meta returns the metadata value for key.
func (r *Record) Meta(key string) (string, bool) {
	if r.Metadata == nil {
		return "", false
	}
	v, ok := r.Metadata[key]
	return v, ok
}

// SetMeta sets a metadata value, allocating the map on first use.
func (r *Record) SetMeta(key, value string) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}
	r.Metadata[key] = value
}

// IsVariant reports whether the record is marked as a variant reading.
func (r *Record) IsVariant() bool {
	_, ok := r.Meta(MetaVariant)
	return ok
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	out := &Record{
		SourceText: r.SourceText,
		TargetText: r.TargetText,
	}
	if r.Ref != nil {
		ref := *r.Ref
		out.Ref = &ref
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Set is an ordered sequence of records. Order equals source-file order and is
// preserved end to end: parser output order equals serializer input order.
type Set struct {
	// Records in source order.
	Records []*Record `json:"records"`

	// Preamble is document material preceding the first reference
	// (markdown front matter, USFM header markers). Stored separately,
	// never as a record.
	Preamble string `json:"preamble,omitempty"`

	// MetaKeys lists metadata keys in first-seen order across the set.
	// The TSV serializer uses it for stable column ordering.
	MetaKeys []string `json:"meta_keys,omitempty"`

	// SourceFormat is the format token the set was parsed from.
	SourceFormat string `json:"source_format,omitempty"`

	// SourceHash is the BLAKE3 hash of the source bytes.
	SourceHash string `json:"source_hash,omitempty"`
}

// Add appends a record and folds its metadata keys into MetaKeys.
func (s *Set) Add(r *Record) {
	s.Records = append(s.Records, r)
	for _, k := range sortedKeys(r.Metadata) {
		if !s.hasMetaKey(k) {
			s.MetaKeys = append(s.MetaKeys, k)
		}
	}
}

// Len returns the number of records.
func (s *Set) Len() int {
	return len(s.Records)
}

func (s *Set) hasMetaKey(key string) bool {
	for _, k := range s.MetaKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	out := &Set{
		Preamble:     s.Preamble,
		SourceFormat: s.SourceFormat,
		SourceHash:   s.SourceHash,
	}
	if s.MetaKeys != nil {
		out.MetaKeys = append([]string(nil), s.MetaKeys...)
	}
	for _, r := range s.Records {
		out.Records = append(out.Records, r.Clone())
	}
	return out
}

// Equal reports field-wise equality of two sets, ignoring SourceHash and
// SourceFormat. It backs the round-trip guarantee for TSV and JSON.
func Equal(a, b *Set) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Records) != len(b.Records) || a.Preamble != b.Preamble {
		return false
	}
	for i := range a.Records {
		if !recordEqual(a.Records[i], b.Records[i]) {
			return false
		}
	}
	return true
}

func recordEqual(a, b *Record) bool {
	if a.SourceText != b.SourceText || a.TargetText != b.TargetText {
		return false
	}
	if (a.Ref == nil) != (b.Ref == nil) {
		return false
	}
	if a.Ref != nil && *a.Ref != *b.Ref {
		return false
	}
	if len(a.Metadata) != len(b.Metadata) {
		return false
	}
	for k, v := range a.Metadata {
		if bv, ok := b.Metadata[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// insertion sort keeps this allocation-light for small maps
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}
