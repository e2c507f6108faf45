package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSchedulerRunsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, Opts{}, zaptest.NewLogger(t))
	var runs atomic.Int64
	require.NoError(t, s.AddFrequent("* * * * * *", "tick", func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	s.Start()
	defer s.Stop(time.Second)

	require.Eventually(t, func() bool { return runs.Load() >= 1 },
		3*time.Second, 50*time.Millisecond)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := New(context.Background(), Opts{}, zaptest.NewLogger(t))
	err := s.AddCritical("not a spec", "bad", func(context.Context) error { return nil })
	require.Error(t, err)
}

func TestSchedulerSurvivesJobError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, Opts{}, zaptest.NewLogger(t))
	var runs atomic.Int64
	require.NoError(t, s.AddFrequent("* * * * * *", "failing", func(context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	}))

	s.Start()
	defer s.Stop(time.Second)

	// Keeps firing after failures.
	require.Eventually(t, func() bool { return runs.Load() >= 2 },
		4*time.Second, 50*time.Millisecond)
}

func TestStopDrainsWithinGrace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, Opts{}, zaptest.NewLogger(t))
	var done atomic.Bool
	require.NoError(t, s.AddFrequent("* * * * * *", "slow", func(context.Context) error {
		time.Sleep(100 * time.Millisecond)
		done.Store(true)
		return nil
	}))

	s.Start()
	require.Eventually(t, func() bool { return done.Load() },
		3*time.Second, 50*time.Millisecond)
	s.Stop(2 * time.Second)
}
