package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestEnqueueDeduplicates(t *testing.T) {
	client := newClient(t)
	e := Enqueuer{R: client, Prefix: "test"}
	ctx := context.Background()

	task := Task{Kind: "daily-report", Payload: []byte(`{}`), IdempotencyKey: "2024-03-15"}
	require.NoError(t, e.Enqueue(ctx, task))
	require.NoError(t, e.Enqueue(ctx, task))

	n, err := client.ZCard(ctx, "test:queue:daily-report").Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestEnqueueRejectsBadKind(t *testing.T) {
	client := newClient(t)
	e := Enqueuer{R: client}
	require.Error(t, e.Enqueue(context.Background(), Task{Kind: "Daily Report!"}))
	require.Error(t, e.Enqueue(context.Background(), Task{}))
}

func TestWorkerProcessesTask(t *testing.T) {
	client := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := Enqueuer{R: client, Prefix: "test"}
	require.NoError(t, e.Enqueue(ctx, Task{
		Kind:           "daily-report",
		Payload:        []byte(`{"account_date":"2024-03-15"}`),
		IdempotencyKey: "2024-03-15",
	}))

	got := make(chan Task, 1)
	w := Worker{
		R:      client,
		Prefix: "test",
		Kind:   "daily-report",
		Handler: func(_ context.Context, task Task) error {
			got <- task
			return nil
		},
	}
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case task := <-got:
		require.Equal(t, "daily-report", task.Kind)
		require.Equal(t, "2024-03-15", task.IdempotencyKey)
		require.JSONEq(t, `{"account_date":"2024-03-15"}`, string(task.Payload))
	case <-time.After(5 * time.Second):
		t.Fatal("task was not delivered")
	}

	// Successful processing clears the dedup marker so the same day could
	// be re-enqueued after a manual replay.
	require.Eventually(t, func() bool {
		n, err := client.Exists(context.Background(), "test:dedup:daily-report:2024-03-15").Result()
		return err == nil && n == 0
	}, 2*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
