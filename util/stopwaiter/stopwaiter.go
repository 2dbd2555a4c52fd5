// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

// Package stopwaiter provides the service lifecycle primitive shared by the
// long-running components: a cancellable context plus a waitgroup over the
// threads launched under it.
package stopwaiter

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var ErrNotStarted = errors.New("service not started")

type StopWaiter struct {
	mutex    sync.Mutex
	started  bool
	stopping bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Start binds the service to a parent context. Threads launched afterwards
// observe cancellation of either the parent or StopAndWait.
func (s *StopWaiter) Start(parent context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.started {
		panic("stopwaiter started twice")
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(parent)
}

func (s *StopWaiter) Started() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.started
}

// GetContext returns the service context; it panics when called before
// Start, which is always a wiring bug.
func (s *StopWaiter) GetContext() context.Context {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.started {
		panic(ErrNotStarted)
	}
	return s.ctx
}

// LaunchThread runs foo on a tracked goroutine.
func (s *StopWaiter) LaunchThread(foo func(ctx context.Context)) {
	ctx := s.GetContext()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		foo(ctx)
	}()
}

// CallIteratively runs foo repeatedly on a tracked goroutine, sleeping the
// returned duration between calls, until the context is cancelled.
func (s *StopWaiter) CallIteratively(foo func(ctx context.Context) time.Duration) {
	s.LaunchThread(func(ctx context.Context) {
		for {
			interval := foo(ctx)
			if ctx.Err() != nil {
				return
			}
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	})
}

// StopAndWait cancels the context and blocks until every tracked thread has
// returned.
func (s *StopWaiter) StopAndWait() {
	s.mutex.Lock()
	if !s.started || s.stopping {
		s.mutex.Unlock()
		return
	}
	s.stopping = true
	s.cancel()
	s.mutex.Unlock()
	s.wg.Wait()
}

// StopAndWaitTimeout is StopAndWait with a bounded drain; it reports whether
// all threads finished within the timeout.
func (s *StopWaiter) StopAndWaitTimeout(timeout time.Duration) bool {
	s.mutex.Lock()
	if !s.started || s.stopping {
		s.mutex.Unlock()
		return true
	}
	s.stopping = true
	s.cancel()
	s.mutex.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
