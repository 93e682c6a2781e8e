package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/docsentry/internal/logging"
)

type countingReindexer struct {
	calls atomic.Int32
}

func (r *countingReindexer) Reindex(ctx context.Context) error {
	r.calls.Add(1)
	return nil
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New("not a cron spec", &countingReindexer{}, logging.NewNop())
	assert.Error(t, s.Start(context.Background()))
}

func TestSchedulerRunsJob(t *testing.T) {
	target := &countingReindexer{}
	s := New("@every 10ms", target, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	assert.Eventually(t, func() bool {
		return target.calls.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
}

func TestStopWaitsForCompletion(t *testing.T) {
	target := &countingReindexer{}
	s := New("@every 10ms", target, logging.NewNop())

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	after := target.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, target.calls.Load())
}
