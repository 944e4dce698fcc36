package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-extractor/internal/jobs"
)

func TestStoreSaveAndGetCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	job := &jobs.ParseStatementJob{JobID: "a", GCSURI: "gs://statements/jan.pdf", Status: jobs.JobStatusPending}
	require.NoError(t, s.SaveJob(ctx, job))
	job.Status = jobs.JobStatusFailed

	got, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, got.Status)

	got.Status = jobs.JobStatusCompleted
	again, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, again.Status)
}

func TestStoreErrors(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	assert.Error(t, s.SaveJob(ctx, &jobs.ParseStatementJob{}))

	_, err := s.GetJob(ctx, "missing")
	assert.True(t, errors.Is(err, jobs.ErrJobNotFound))

	err = s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, "boom")
	assert.True(t, errors.Is(err, jobs.ErrJobNotFound))
}

func TestStoreUpdateJobStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.SaveJob(ctx, &jobs.ParseStatementJob{JobID: "a", Status: jobs.JobStatusRunning}))

	require.NoError(t, s.UpdateJobStatus(ctx, "a", jobs.JobStatusFailed, "bucket not found"))
	got, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, "bucket not found", got.Error)

	require.NoError(t, s.UpdateJobStatus(ctx, "a", jobs.JobStatusRetrying, ""))
	got, err = s.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "bucket not found", got.Error)
}

func TestStoreListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

	for i, j := range []jobs.ParseStatementJob{
		{JobID: "1", GCSURI: "gs://b/jan.pdf", Status: jobs.JobStatusCompleted},
		{JobID: "2", GCSURI: "gs://b/feb.pdf", Status: jobs.JobStatusFailed},
		{JobID: "3", GCSURI: "gs://b/jan.pdf", Status: jobs.JobStatusPending},
		{JobID: "4", GCSURI: "gs://b/mar.pdf", Status: jobs.JobStatusCompleted},
	} {
		j := j
		j.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.SaveJob(ctx, &j))
	}

	ids := func(list []*jobs.ParseStatementJob) []string {
		out := []string{}
		for _, j := range list {
			out = append(out, j.JobID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all newest first", jobs.JobFilter{}, []string{"4", "3", "2", "1"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusCompleted}, []string{"4", "1"}},
		{"by uri", jobs.JobFilter{GCSURI: "gs://b/jan.pdf"}, []string{"3", "1"}},
		{"limit", jobs.JobFilter{Limit: 2}, []string{"4", "3"}},
		{"offset", jobs.JobFilter{Offset: 1, Limit: 2}, []string{"3", "2"}},
		{"offset past end", jobs.JobFilter{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}
