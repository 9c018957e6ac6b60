package checks

import (
	"github.com/verseflow/verseflow/core/canon"
	"github.com/verseflow/verseflow/core/record"
)

// checkCompleteness flags records whose target text is empty.
func checkCompleteness(set *record.Set, _ *canon.Table) []Issue {
	var issues []Issue
	for i, r := range set.Records {
		if r.TargetText == "" {
			issues = append(issues, Issue{
				Index:    i,
				Severity: SeverityWarning,
				Code:     CodeIncomplete,
				Message:  "target text is empty",
			})
		}
	}
	return issues
}
