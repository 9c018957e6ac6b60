// Package canon provides canonical book tables: book names, aliases, and
// chapter/verse counts. The reference check validates locators against a
// Table. A KJV-versification table is embedded as the default; alternative
// tables are injected from YAML.
package canon

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/kjv.yaml
var kjvData []byte

// Book describes one canonical book.
type Book struct {
	// Name is the canonical display name ("Genesis", "1 John").
	Name string `yaml:"name"`

	// USFM is the three-letter USFM book code ("GEN", "1JN").
	USFM string `yaml:"usfm"`

	// Aliases are alternative spellings and abbreviations ("Gen", "Ge").
	Aliases []string `yaml:"aliases,omitempty"`

	// Verses holds the verse count per chapter; len(Verses) is the
	// chapter count.
	Verses []int `yaml:"verses"`
}

// Chapters returns the number of chapters in the book.
func (b *Book) Chapters() int {
	return len(b.Verses)
}

// VersesIn returns the verse count of a 1-indexed chapter, or 0 when the
// chapter is out of range.
func (b *Book) VersesIn(chapter int) int {
	if chapter < 1 || chapter > len(b.Verses) {
		return 0
	}
	return b.Verses[chapter-1]
}

// Table is a complete canon: an ordered book list with a lookup index over
// names, USFM codes, and aliases.
type Table struct {
	Name  string  `yaml:"name"`
	Books []*Book `yaml:"books"`

	index map[string]*Book
}

// Load parses a canon table from YAML and builds its lookup index.
func Load(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing canon table: %w", err)
	}
	if len(t.Books) == 0 {
		return nil, fmt.Errorf("canon table %q has no books", t.Name)
	}
	for i, b := range t.Books {
		if b.Name == "" {
			return nil, fmt.Errorf("canon table %q: book %d has no name", t.Name, i)
		}
		if len(b.Verses) == 0 {
			return nil, fmt.Errorf("canon table %q: book %q has no chapters", t.Name, b.Name)
		}
	}
	t.buildIndex()
	return &t, nil
}

// LoadFile parses a canon table from a YAML file.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading canon table: %w", err)
	}
	return Load(data)
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the embedded KJV-versification table.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Load(kjvData)
		if err != nil {
			panic(fmt.Sprintf("embedded canon table invalid: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

func (t *Table) buildIndex() {
	t.index = make(map[string]*Book, len(t.Books)*3)
	for _, b := range t.Books {
		t.index[normalize(b.Name)] = b
		if b.USFM != "" {
			t.index[normalize(b.USFM)] = b
		}
		for _, a := range b.Aliases {
			t.index[normalize(a)] = b
		}
	}
}

// Lookup resolves a book name, USFM code, or alias. Matching is
// case-insensitive and whitespace-collapsing, so "1 john", "1John", and
// "1JN" all resolve to the same book.
func (t *Table) Lookup(name string) (*Book, bool) {
	b, ok := t.index[normalize(name)]
	return b, ok
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	fields := strings.Fields(name)
	joined := strings.Join(fields, " ")
	// "1John" and "1 John" are the same book
	if len(joined) > 1 && joined[0] >= '0' && joined[0] <= '9' && joined[1] != ' ' {
		joined = joined[:1] + " " + joined[1:]
	}
	return joined
}
