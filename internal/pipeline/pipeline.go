// Package pipeline runs the three pure stages end to end:
//
//	raw bytes → Parse → record.Set → checks.Run (optional) → Serialize → output bytes
//
// Run is synchronous and holds no state between invocations, so callers may
// share nothing and run pipelines concurrently.
package pipeline

import (
	"context"
	"time"

	"github.com/verseflow/verseflow/core/canon"
	"github.com/verseflow/verseflow/core/record"
	"github.com/verseflow/verseflow/internal/checks"
	"github.com/verseflow/verseflow/internal/formats"
	"github.com/verseflow/verseflow/internal/logging"
	"github.com/verseflow/verseflow/internal/validation"
)

// Options configures a single pipeline run.
type Options struct {
	// From is the input format token. Empty means detect from Filename and
	// content.
	From string

	// To is the output format token. Empty means serialize back to the
	// detected input format.
	To string

	// Filename aids format detection when From is empty.
	Filename string

	// Checks selects the validator kinds to run. Empty means no validation.
	Checks []checks.Kind

	// Canon overrides the embedded canon table for the reference check.
	Canon *canon.Table

	// MaxInputBytes caps the input size. Zero means unlimited.
	MaxInputBytes int64

	// Annotate asks the serializer to carry issues in the output where the
	// format supports it.
	Annotate bool

	// Augmenter, when set, runs between validation and serialization.
	Augmenter Augmenter

	// Instructions are passed through to the Augmenter.
	Instructions string
}

// Stats summarizes a pipeline run.
type Stats struct {
	Records    int    `json:"records"`
	Errors     int    `json:"errors"`
	Warnings   int    `json:"warnings"`
	Infos      int    `json:"infos"`
	SourceHash string `json:"source_hash"`
}

// Result is the output of one pipeline run.
type Result struct {
	// Set is the parsed (and possibly augmented) record set.
	Set *record.Set

	// Issues are the validator findings, sorted by (Index, Severity, Code).
	Issues []checks.Issue

	// Output is the serialized bytes in the To format.
	Output []byte

	// From and To are the resolved format tokens.
	From string
	To   string

	Stats Stats
}

// Run executes the pipeline over input. Parse and serialize errors abort the
// run and propagate verbatim; validation issues never abort.
func Run(ctx context.Context, input []byte, opts Options) (*Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validation.CheckSize(int64(len(input)), opts.MaxInputBytes); err != nil {
		return nil, err
	}

	from := opts.From
	if from == "" {
		from = formats.Detect(opts.Filename, input)
	}

	set, err := formats.Parse(from, input)
	if err != nil {
		return nil, err
	}
	logging.PipelineStage(ctx, "parse", from, set.Len(), time.Since(start))

	var issues []checks.Issue
	if len(opts.Checks) > 0 {
		issues = checks.Run(set, opts.Checks, opts.Canon)
	}

	if opts.Augmenter != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		set, err = augment(ctx, set, opts.Augmenter, opts.Instructions)
		if err != nil {
			return nil, err
		}
	}

	to := opts.To
	if to == "" {
		to = from
	}
	var annotated []checks.Issue
	if opts.Annotate {
		annotated = issues
	}
	output, err := formats.Serialize(to, set, annotated)
	if err != nil {
		return nil, err
	}

	counts := checks.CountBySeverity(issues)
	res := &Result{
		Set:    set,
		Issues: issues,
		Output: output,
		From:   from,
		To:     to,
		Stats: Stats{
			Records:    set.Len(),
			Errors:     counts["error"],
			Warnings:   counts["warning"],
			Infos:      counts["info"],
			SourceHash: set.SourceHash,
		},
	}
	logging.PipelineRun(ctx, from, to, set.Len(), len(issues), time.Since(start))
	return res, nil
}
