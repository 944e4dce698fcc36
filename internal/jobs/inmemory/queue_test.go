package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-extractor/internal/jobs"
)

func newTestQueue(t *testing.T, maxRetries int) (*Queue, *Store) {
	t.Helper()
	store := NewStore()
	q := NewQueue(Options{BufferSize: 10, Workers: 2, MaxRetries: maxRetries, Backoff: time.Millisecond}, store, zerolog.Nop())
	t.Cleanup(func() { _ = q.Close() })
	return q, store
}

func waitForStatus(t *testing.T, store *Store, id string, status jobs.JobStatus) *jobs.ParseStatementJob {
	t.Helper()
	var got *jobs.ParseStatementJob
	require.Eventually(t, func() bool {
		j, err := store.GetJob(context.Background(), id)
		if err != nil {
			return false
		}
		got = j
		return j.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueuePublishDefaults(t *testing.T) {
	q, store := newTestQueue(t, 0)

	job := &jobs.ParseStatementJob{GCSURI: "gs://statements/jan.pdf"}
	require.NoError(t, q.PublishParseStatement(context.Background(), job))

	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, jobs.JobStatusPending, job.Status)
	assert.Equal(t, jobs.DefaultMaxRetries, job.MaxRetries)
	assert.False(t, job.CreatedAt.IsZero())

	saved, err := store.GetJob(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "gs://statements/jan.pdf", saved.GCSURI)
}

func TestQueueRunsHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q, store := newTestQueue(t, 1)

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		j := job.(*jobs.ParseStatementJob)
		j.TransactionCount = 3
		j.Strategy = "csv"
		return nil
	}))

	job := &jobs.ParseStatementJob{Text: "Date, Amount, Balance, Description"}
	require.NoError(t, q.PublishParseStatement(ctx, job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 3, got.TransactionCount)
	assert.Equal(t, "csv", got.Strategy)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.Error)
}

func TestQueueRetriesThenSucceeds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q, store := newTestQueue(t, 3)

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		if calls.Add(1) < 3 {
			return errors.New("storage unavailable")
		}
		return nil
	}))

	job := &jobs.ParseStatementJob{GCSURI: "gs://statements/feb.pdf"}
	require.NoError(t, q.PublishParseStatement(ctx, job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q, store := newTestQueue(t, 1)

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		calls.Add(1)
		return errors.New("not a statement")
	}))

	job := &jobs.ParseStatementJob{GCSURI: "gs://statements/bad.pdf"}
	require.NoError(t, q.PublishParseStatement(ctx, job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, "not a statement", got.Error)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueueRecoversHandlerPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q, store := newTestQueue(t, 1)
	job := &jobs.ParseStatementJob{MaxRetries: -1}

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		panic("nil reader")
	}))
	require.NoError(t, q.PublishParseStatement(ctx, job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Contains(t, got.Error, "panic: nil reader")
}

func TestQueueClosed(t *testing.T) {
	q, _ := newTestQueue(t, 0)
	require.NoError(t, q.Stop(context.Background()))
	require.NoError(t, q.Stop(context.Background()))

	err := q.PublishParseStatement(context.Background(), &jobs.ParseStatementJob{})
	assert.True(t, errors.Is(err, jobs.ErrQueueClosed))

	err = q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error { return nil })
	assert.True(t, errors.Is(err, jobs.ErrQueueClosed))
}
