package checks

import (
	"fmt"

	"github.com/verseflow/verseflow/core/canon"
	"github.com/verseflow/verseflow/core/record"
)

// checkReference validates each locator against the canon table: the book
// must exist and chapter/verse must fall inside its counts. Records without
// a reference are skipped here; the format check owns that concern.
func checkReference(set *record.Set, table *canon.Table) []Issue {
	var issues []Issue

	for i, r := range set.Records {
		if r.Ref == nil {
			continue
		}
		book, ok := table.Lookup(r.Ref.Book)
		if !ok {
			issues = append(issues, Issue{
				Index:    i,
				Severity: SeverityError,
				Code:     CodeUnknownBook,
				Message:  fmt.Sprintf("unknown book %q", r.Ref.Book),
			})
			continue
		}

		if r.Ref.Chapter < 1 || r.Ref.Chapter > book.Chapters() {
			issues = append(issues, Issue{
				Index:    i,
				Severity: SeverityError,
				Code:     CodeChapterOutOfRange,
				Message: fmt.Sprintf("%s has %d chapters, got chapter %d",
					book.Name, book.Chapters(), r.Ref.Chapter),
			})
			continue
		}

		maxVerse := book.VersesIn(r.Ref.Chapter)
		last := r.Ref.Verse
		if r.Ref.VerseEnd > last {
			last = r.Ref.VerseEnd
		}
		if r.Ref.Verse < 1 || last > maxVerse {
			issues = append(issues, Issue{
				Index:    i,
				Severity: SeverityError,
				Code:     CodeVerseOutOfRange,
				Message: fmt.Sprintf("%s %d has %d verses, got verse %d",
					book.Name, r.Ref.Chapter, maxVerse, last),
			})
		}
	}
	return issues
}
