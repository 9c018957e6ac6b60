package checks

import (
	"fmt"

	"github.com/verseflow/verseflow/core/canon"
	"github.com/verseflow/verseflow/core/record"
)

// checkConsistency flags records whose reference duplicates an earlier one.
// The first occurrence is not flagged; later occurrences are, unless either
// record in the pair is marked as a variant reading.
func checkConsistency(set *record.Set, _ *canon.Table) []Issue {
	firstSeen := make(map[string]int)
	var issues []Issue

	for i, r := range set.Records {
		if r.Ref == nil {
			continue
		}
		key := r.Ref.Key()
		prev, dup := firstSeen[key]
		if !dup {
			firstSeen[key] = i
			continue
		}
		if r.IsVariant() || set.Records[prev].IsVariant() {
			continue
		}
		issues = append(issues, Issue{
			Index:    i,
			Severity: SeverityWarning,
			Code:     CodeDuplicateReference,
			Message:  fmt.Sprintf("reference %s duplicates record %d", r.Ref, prev),
		})
	}
	return issues
}
