// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"sync"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrDuplicateHandler is returned by OnData when a consumer is already
// registered. A handle delivers to exactly one consumer.
var ErrDuplicateHandler = errors.New("stream: data handler already registered")

// =============================================================================
// HANDLE INTERFACE
// =============================================================================

// Handle is the consumer side of a stream of T values.
type Handle[T any] interface {
	// OnData registers the single consumer. Values produced before
	// registration are flushed to it in production order. A second call
	// returns ErrDuplicateHandler.
	OnData(fn func(T)) error

	// Abort cancels the producer. Idempotent, safe after completion.
	Abort()

	// Wait blocks until the producer finishes. It returns (true, nil) on
	// success, (false, err) on failure, and (false, nil) when the stream
	// was aborted.
	Wait() (bool, error)
}

// =============================================================================
// STREAM IMPLEMENTATION
// =============================================================================

// Stream is the canonical Handle implementation, driven by a producer
// function running in its own goroutine.
type Stream[T any] struct {
	mu sync.Mutex

	handler    func(T)
	handlerSet bool
	buffer     []T

	aborted bool
	cancel  context.CancelFunc

	done     chan struct{}
	finished bool
	err      error

	// dispatchMu serializes handler invocations so that buffered values
	// flushed by OnData cannot interleave with freshly produced ones.
	dispatchMu sync.Mutex
}

// New starts run in a goroutine and returns the handle for its output.
//
// run receives a context derived from ctx that is cancelled by Abort, and an
// emit function to publish values. The stream finishes when run returns; a
// nil return means success, unless the stream was aborted first.
func New[T any](ctx context.Context, run func(ctx context.Context, emit func(T)) error) *Stream[T] {
	runCtx, cancel := context.WithCancel(ctx)

	s := &Stream[T]{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		err := run(runCtx, s.emit)
		cancel()
		s.finish(err)
	}()

	return s
}

// emit publishes a value to the consumer, buffering it when no consumer is
// registered yet.
func (s *Stream[T]) emit(v T) {
	s.mu.Lock()
	if s.handler == nil {
		s.buffer = append(s.buffer, v)
		s.mu.Unlock()
		return
	}
	h := s.handler
	s.mu.Unlock()

	// Invoke outside the state lock: the handler may call back into Abort.
	s.dispatchMu.Lock()
	h(v)
	s.dispatchMu.Unlock()
}

// OnData implements Handle.
func (s *Stream[T]) OnData(fn func(T)) error {
	// Taking dispatchMu first guarantees buffered values are delivered
	// before any value emitted concurrently with registration.
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if s.handlerSet {
		s.mu.Unlock()
		return ErrDuplicateHandler
	}
	s.handlerSet = true
	s.handler = fn
	buffered := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	for _, v := range buffered {
		fn(v)
	}
	return nil
}

// Abort implements Handle.
func (s *Stream[T]) Abort() {
	s.mu.Lock()
	if !s.finished {
		s.aborted = true
	}
	s.mu.Unlock()
	s.cancel()
}

// Wait implements Handle.
func (s *Stream[T]) Wait() (bool, error) {
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aborted {
		return false, nil
	}
	if s.err != nil {
		return false, s.err
	}
	return true, nil
}

// finish records the producer's outcome and releases waiters.
func (s *Stream[T]) finish(err error) {
	s.mu.Lock()
	s.finished = true
	if err != nil && !s.aborted {
		s.err = err
	}
	s.mu.Unlock()
	close(s.done)
}

// =============================================================================
// MAP COMBINATOR
// =============================================================================

// mappedHandle is a lazily transformed view of a parent handle.
type mappedHandle[T, U any] struct {
	parent Handle[T]
	fn     func(T) U
}

// Map returns a derived handle whose values are transformed by fn. The
// derived handle forwards OnData registration (including single-consumer
// enforcement and buffering), Abort and Wait to its parent.
func Map[T, U any](parent Handle[T], fn func(T) U) Handle[U] {
	return &mappedHandle[T, U]{parent: parent, fn: fn}
}

// OnData implements Handle.
func (m *mappedHandle[T, U]) OnData(fn func(U)) error {
	return m.parent.OnData(func(v T) {
		fn(m.fn(v))
	})
}

// Abort implements Handle.
func (m *mappedHandle[T, U]) Abort() {
	m.parent.Abort()
}

// Wait implements Handle.
func (m *mappedHandle[T, U]) Wait() (bool, error) {
	return m.parent.Wait()
}
