package session_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/session"
)

func TestSweeper_RunEvictsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	start := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	var clock atomic.Int64
	clock.Store(start.UnixNano())
	now := func() time.Time { return time.Unix(0, clock.Load()).UTC() }

	var evicted atomic.Int32
	manager := session.NewManager(memory.NewStore(), session.WithEvictHook(func(context.Context, *domain.Session) {
		evicted.Add(1)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, manager.Create(ctx, domain.NewSession("s", "PAY", "", "MAIN", cfg, start)))

	sweeper := session.NewSweeper(manager, session.WithInterval(5*time.Millisecond), session.WithClock(now))
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, evicted.Load(), "not expired yet")

	clock.Store(start.Add(31 * time.Second).UnixNano())
	assert.Eventually(t, func() bool { return evicted.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSweeper_Sweep(t *testing.T) {
	start := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		require.NoError(t, manager.Create(ctx, domain.NewSession(id, "PAY", "", "MAIN", cfg, start)))
	}

	sweeper := session.NewSweeper(manager, session.WithClock(func() time.Time { return start.Add(2 * time.Minute) }))
	assert.Equal(t, 2, sweeper.Sweep(ctx))
	assert.Equal(t, 0, sweeper.Sweep(ctx))
}
