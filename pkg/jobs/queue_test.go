package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "catalog_sync", Payload: "x"}))

	select {
	case job := <-done:
		assert.Equal(t, "catalog_sync", job.Type)
		assert.NotEmpty(t, job.ID)
		assert.False(t, job.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesFailedJob(t *testing.T) {
	var calls atomic.Int32
	done := make(chan int, 1)
	q := NewQueue("retry", func(_ context.Context, job Job) error {
		if calls.Add(1) < 3 {
			return errors.New("catalog unavailable")
		}
		done <- job.Attempt
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "catalog_sync"}))

	select {
	case attempt := <-done:
		assert.Equal(t, 2, attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
}

func TestQueueGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	q := NewQueue("give-up", func(context.Context, Job) error {
		calls.Add(1)
		return errors.New("always")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{Type: "catalog_sync"}))
	require.Eventually(t, func() bool { return q.Stats().Failed == 1 }, 2*time.Second, 5*time.Millisecond)
	q.Stop()

	assert.Equal(t, int32(2), calls.Load())
}

func TestScheduleEnqueuesPeriodically(t *testing.T) {
	var runs atomic.Int32
	q := NewQueue("scheduler", func(context.Context, Job) error {
		runs.Add(1)
		return nil
	}, QueueConfig{})
	q.Start(context.Background())

	require.NoError(t, q.Schedule("catalog_sync", 10*time.Millisecond, true))
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	q.Stop()
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{Type: "x"}))
	assert.Error(t, q.Schedule("x", time.Second, false))
}
