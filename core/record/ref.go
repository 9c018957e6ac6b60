package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Ref is a structured scripture locator.
type Ref struct {
	// Book is the book name as written in the source ("Genesis", "1 John").
	// Canonical identity is resolved against a canon table, not here.
	Book string `json:"book"`

	// Chapter is 1-indexed; 0 means a whole-book reference.
	Chapter int `json:"chapter,omitempty"`

	// Verse is 1-indexed; 0 means a whole-chapter reference.
	Verse int `json:"verse,omitempty"`

	// VerseEnd is the end of a verse range; 0 when not a range.
	// Invariant: VerseEnd == 0 or VerseEnd >= Verse.
	VerseEnd int `json:"verse_end,omitempty"`

	// SubVerse is the verse subdivision ("a", "b"), if any.
	SubVerse string `json:"sub_verse,omitempty"`
}

// refGrammar accepts both human references ("Genesis 1:1", "1 John 3:16-18")
// and OSIS-dotted references ("Gen.1.1", "Gen.1.1a").
//
type refGrammar struct {
	Prefix  string       `parser:"@Int?"`
	Words   []string     `parser:"@Ident+"`
	Chapter *chapterPart `parser:"( '.'? @@ )?"`
}

type chapterPart struct {
	Chapter int        `parser:"@Int"`
	Verse   *versePart `parser:"( ( ':' | '.' ) @@ )?"`
}

type versePart struct {
	Verse    int     `parser:"@Int"`
	SubVerse *string `parser:"@SubVerse?"`
	End      *int    `parser:"( '-' @Int )?"`
}

// refLexer tokenizes references. A single lowercase letter is a sub-verse
// marker; book-name words are either capitalized or at least two letters
// ("Song of Solomon" keeps its "of").
var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z][A-Za-z]+|[A-Z]`},
	{Name: "SubVerse", Pattern: `[a-z]`},
	{Name: "Punct", Pattern: `[.:\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// ParseRef parses a scripture reference string.
// Supported forms:
//   - "Genesis" (book only)
//   - "Genesis 1" (book and chapter)
//   - "Genesis 1:1" (book, chapter, and verse)
//   - "1 John 3:16-18" (numbered book, verse range)
//   - "Gen.1.1a" (OSIS-dotted, with sub-verse)
func ParseRef(s string) (*Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty reference string")
	}

	parsed, err := refParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("invalid reference format: %q: %w", s, err)
	}

	book := strings.Join(parsed.Words, " ")
	if parsed.Prefix != "" {
		book = parsed.Prefix + " " + book
	}

	ref := &Ref{Book: book}
	if parsed.Chapter != nil {
		ref.Chapter = parsed.Chapter.Chapter
		if parsed.Chapter.Verse != nil {
			ref.Verse = parsed.Chapter.Verse.Verse
			if parsed.Chapter.Verse.SubVerse != nil {
				ref.SubVerse = *parsed.Chapter.Verse.SubVerse
			}
			if parsed.Chapter.Verse.End != nil {
				ref.VerseEnd = *parsed.Chapter.Verse.End
			}
		}
	}

	if ref.VerseEnd > 0 && ref.VerseEnd < ref.Verse {
		return nil, fmt.Errorf("invalid reference %q: range end %d before start %d", s, ref.VerseEnd, ref.Verse)
	}

	return ref, nil
}

// String renders the reference in "Book Chapter:Verse[-End][sub]" form.
func (r *Ref) String() string {
	var sb strings.Builder
	sb.WriteString(r.Book)

	if r.Chapter > 0 {
		sb.WriteString(" ")
		sb.WriteString(strconv.Itoa(r.Chapter))

		if r.Verse > 0 {
			sb.WriteString(":")
			sb.WriteString(strconv.Itoa(r.Verse))
			if r.VerseEnd > 0 {
				sb.WriteString("-")
				sb.WriteString(strconv.Itoa(r.VerseEnd))
			}
			sb.WriteString(r.SubVerse)
		}
	}

	return sb.String()
}

// IsRange reports whether the reference spans multiple verses.
func (r *Ref) IsRange() bool {
	return r.VerseEnd > 0 && r.VerseEnd > r.Verse
}

// SameLocation reports whether two references point at the same place.
// The consistency check uses this for duplicate detection; sub-verse
// subdivisions are distinct locations.
func (r *Ref) SameLocation(other *Ref) bool {
	if other == nil {
		return false
	}
	return r.Book == other.Book &&
		r.Chapter == other.Chapter &&
		r.Verse == other.Verse &&
		r.VerseEnd == other.VerseEnd &&
		r.SubVerse == other.SubVerse
}

// Key returns a map key identifying the reference location.
func (r *Ref) Key() string {
	return fmt.Sprintf("%s|%d|%d|%d|%s", r.Book, r.Chapter, r.Verse, r.VerseEnd, r.SubVerse)
}
