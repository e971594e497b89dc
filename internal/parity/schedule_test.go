package parity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler(context.Background(), "every now and then", fixturesDir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestScheduler_RunNow(t *testing.T) {
	var (
		got *Report
		at  time.Time
	)
	s, err := NewScheduler(context.Background(), "@hourly", fixturesDir, func(r *Report, err error, ts time.Time) {
		require.NoError(t, err)
		got, at = r, ts
	})
	require.NoError(t, err)

	s.RunNow(context.Background())
	require.NotNil(t, got)
	assert.True(t, got.Passed())
	assert.Equal(t, 6, got.Compared())
	assert.False(t, at.IsZero())
}

func TestScheduler_RunNowReportsErrors(t *testing.T) {
	var gotErr error
	s, err := NewScheduler(context.Background(), "@daily", filepath.Join(t.TempDir(), "missing"), func(_ *Report, err error, _ time.Time) {
		gotErr = err
	})
	require.NoError(t, err)

	s.RunNow(context.Background())
	assert.Error(t, gotErr)
}

func TestScheduler_FiresOnSchedule(t *testing.T) {
	runs := make(chan *Report, 4)
	s, err := NewScheduler(context.Background(), "@every 1s", fixturesDir, func(r *Report, err error, _ time.Time) {
		if err != nil {
			return
		}
		select {
		case runs <- r:
		default:
		}
	})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	select {
	case r := <-runs:
		assert.True(t, r.Passed())
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled run did not fire")
	}
}

func TestScheduler_CancelledContextSkipsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	s, err := NewScheduler(ctx, "@hourly", fixturesDir, func(*Report, error, time.Time) { called = true })
	require.NoError(t, err)

	s.RunNow(ctx)
	assert.False(t, called)
}
