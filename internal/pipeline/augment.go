package pipeline

import (
	"context"
	"fmt"

	verrors "github.com/verseflow/verseflow/core/errors"
	"github.com/verseflow/verseflow/core/record"
)

// Augmenter enriches a record set between validation and serialization.
// Implementations may fill empty target text, attach metadata, or add
// translator notes, but must preserve record order and references.
type Augmenter interface {
	Augment(ctx context.Context, set *record.Set, instructions string) (*record.Set, error)
}

// AugmenterFunc adapts a function to the Augmenter interface.
type AugmenterFunc func(ctx context.Context, set *record.Set, instructions string) (*record.Set, error)

// Augment implements Augmenter.
func (f AugmenterFunc) Augment(ctx context.Context, set *record.Set, instructions string) (*record.Set, error) {
	return f(ctx, set, instructions)
}

// augment runs the augmenter on a clone of the set and verifies it honored
// the order and reference contract. Violations reject the augmented set.
func augment(ctx context.Context, set *record.Set, a Augmenter, instructions string) (*record.Set, error) {
	out, err := a.Augment(ctx, set.Clone(), instructions)
	if err != nil {
		return nil, verrors.Wrap(err, "augmenter failed")
	}
	if out == nil {
		return nil, verrors.Wrap(verrors.ErrInvalidInput, "augmenter returned a nil set")
	}
	if err := verifyAugmented(set, out); err != nil {
		return nil, err
	}
	return out, nil
}

func verifyAugmented(before, after *record.Set) error {
	if after.Len() < before.Len() {
		return verrors.Wrapf(verrors.ErrInvalidInput,
			"augmenter dropped records: %d before, %d after", before.Len(), after.Len())
	}
	for i, orig := range before.Records {
		got := after.Records[i]
		if (orig.Ref == nil) != (got.Ref == nil) {
			return verrors.Wrapf(verrors.ErrInvalidInput,
				"augmenter changed the reference of record %d", i)
		}
		if orig.Ref != nil && *orig.Ref != *got.Ref {
			return verrors.Wrapf(verrors.ErrInvalidInput,
				"augmenter changed record %d from %s to %s", i, orig.Ref, got.Ref)
		}
		if orig.SourceText != "" && got.SourceText != orig.SourceText {
			return verrors.Wrapf(verrors.ErrInvalidInput,
				"augmenter rewrote the source text of record %d", i)
		}
		if orig.TargetText != "" && got.TargetText != orig.TargetText {
			return verrors.Wrapf(verrors.ErrInvalidInput,
				"augmenter rewrote the target text of record %d (%s)", i, refString(orig))
		}
	}
	return nil
}

func refString(r *record.Record) string {
	if r.Ref == nil {
		return "unreferenced"
	}
	return fmt.Sprint(r.Ref)
}
