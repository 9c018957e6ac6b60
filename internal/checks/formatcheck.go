package checks

import (
	"strings"

	"github.com/verseflow/verseflow/core/canon"
	"github.com/verseflow/verseflow/core/record"
)

// checkFormat re-verifies the structural assumptions of the source format.
// Structured formats (everything except plain text) require a complete
// locator on every record; USFM raw-marker metadata must still look like
// markers.
func checkFormat(set *record.Set, _ *canon.Table) []Issue {
	structured := set.SourceFormat != "" && set.SourceFormat != "txt"

	var issues []Issue
	for i, r := range set.Records {
		if structured {
			if r.Ref == nil || r.Ref.Book == "" || r.Ref.Chapter < 1 || r.Ref.Verse < 1 {
				issues = append(issues, Issue{
					Index:    i,
					Severity: SeverityError,
					Code:     CodeMissingReference,
					Message:  "record lacks a complete book/chapter/verse locator",
				})
			}
		}

		if raw, ok := r.Meta(record.MetaRawMarkers); ok {
			for _, line := range strings.Split(raw, "\n") {
				if line != "" && !strings.HasPrefix(line, "\\") {
					issues = append(issues, Issue{
						Index:    i,
						Severity: SeverityError,
						Code:     CodeMalformedMetadata,
						Message:  "rawMarkers entry is not a USFM marker line",
					})
					break
				}
			}
		}
	}
	return issues
}
