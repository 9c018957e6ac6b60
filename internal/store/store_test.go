package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verseflow/verseflow/internal/checks"
	"github.com/verseflow/verseflow/internal/pipeline"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		From:   "tsv",
		To:     "json",
		Output: []byte(`[{"target_text": "x"}]`),
		Issues: []checks.Issue{{
			Index: 0, Severity: checks.SeverityWarning,
			Code: checks.CodeIncomplete, Message: "target text is empty",
		}},
		Stats: pipeline.Stats{Records: 1, Warnings: 1, SourceHash: "abc"},
	}
}

func TestSaveResultAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := NewID()
	saved, err := s.SaveResult(ctx, id, "bible.tsv", sampleResult())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, saved.Status)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "bible.tsv", got.Filename)
	assert.Equal(t, "tsv", got.From)
	assert.Equal(t, "json", got.To)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Empty(t, got.Error)
	require.Len(t, got.Issues, 1)
	assert.Equal(t, checks.CodeIncomplete, got.Issues[0].Code)
	assert.Equal(t, checks.SeverityWarning, got.Issues[0].Severity)
	assert.Equal(t, 1, got.Stats.Records)
	assert.Equal(t, "abc", got.Stats.SourceHash)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestOutput(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := NewID()
	_, err := s.SaveResult(ctx, id, "bible.tsv", sampleResult())
	require.NoError(t, err)

	data, err := s.Output(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, `[{"target_text": "x"}]`, string(data))
}

func TestSaveFailure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := NewID()
	_, err := s.SaveFailure(ctx, id, "broken.xml", "xml", "json",
		errors.New("xml: line 3: mismatched tag"))
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "xml: line 3: mismatched tag", got.Error)

	// Failed jobs have no output row.
	_, err = s.Output(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), NewID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids := make(map[string]bool)
	for i := 0; i < 3; i++ {
		id := NewID()
		ids[id] = true
		_, err := s.SaveResult(ctx, id, "bible.tsv", sampleResult())
		require.NoError(t, err)
	}

	jobs, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)

	jobs, err = s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	for _, job := range jobs {
		assert.True(t, ids[job.ID], "unexpected job %s", job.ID)
	}
}

func TestNewIDUnique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}
