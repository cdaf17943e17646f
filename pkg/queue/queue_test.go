package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OracleEngine/pkg/logger"
)

type scanRequest struct {
	Assets []string `json:"assets"`
}

func TestMemoryQueue_RunsRegisteredJob(t *testing.T) {
	q := NewMemoryQueue(logger.NewNop(), &Config{Workers: 1, RetryDelay: time.Millisecond})
	got := make(chan []string, 1)
	q.RegisterJob(JobFunc{JobType: "scan", Fn: func(_ context.Context, msg Message) error {
		req, err := Decode[scanRequest](msg)
		if err != nil {
			return err
		}
		got <- req.Assets
		return nil
	}})
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	id, err := q.Enqueue(context.Background(), "scan", scanRequest{Assets: []string{"BTC", "ETH"}})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case assets := <-got:
		assert.Equal(t, []string{"BTC", "ETH"}, assets)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestMemoryQueue_RetriesThenSucceeds(t *testing.T) {
	q := NewMemoryQueue(logger.NewNop(), &Config{Workers: 1, RetryLimit: 2, RetryDelay: time.Millisecond})
	var calls int32
	done := make(chan struct{})
	q.RegisterJob(JobFunc{JobType: "flaky", Fn: func(context.Context, Message) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}})
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	_, err := q.Enqueue(context.Background(), "flaky", struct{}{})
	require.NoError(t, err)

	select {
	case <-done:
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
}

func TestMemoryQueue_RejectsUnknownTypeAndStopped(t *testing.T) {
	q := NewMemoryQueue(logger.NewNop(), nil)
	_, err := q.Enqueue(context.Background(), "scan", nil)
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, q.Start())
	defer q.Stop(context.Background())
	_, err = q.Enqueue(context.Background(), "unknown", nil)
	assert.Error(t, err)
}
