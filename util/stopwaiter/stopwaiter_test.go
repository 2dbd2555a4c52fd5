// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package stopwaiter

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStopWaiterLifecycle(t *testing.T) {
	var s StopWaiter
	s.Start(context.Background())

	var ran atomic.Bool
	s.LaunchThread(func(ctx context.Context) {
		ran.Store(true)
		<-ctx.Done()
	})

	require.Eventually(t, ran.Load, time.Second, 10*time.Millisecond)
	s.StopAndWait()
}

func TestCallIteratively(t *testing.T) {
	var s StopWaiter
	s.Start(context.Background())

	var calls atomic.Int64
	s.CallIteratively(func(ctx context.Context) time.Duration {
		calls.Add(1)
		return time.Millisecond
	})

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 10*time.Millisecond)
	s.StopAndWait()
}

func TestStopAndWaitTimeout(t *testing.T) {
	var s StopWaiter
	s.Start(context.Background())
	s.LaunchThread(func(ctx context.Context) {
		// Ignores cancellation on purpose.
		time.Sleep(5 * time.Second)
	})
	require.False(t, s.StopAndWaitTimeout(50*time.Millisecond))
}

func TestStopBeforeStart(t *testing.T) {
	var s StopWaiter
	s.StopAndWait() // no-op
	require.False(t, s.Started())
}
