// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStream_DeliversInOrder(t *testing.T) {
	s := New(context.Background(), func(ctx context.Context, emit func(string)) error {
		emit("a")
		emit("b")
		emit("c")
		return nil
	})

	var got []string
	if err := s.OnData(func(v string) { got = append(got, v) }); err != nil {
		t.Fatalf("OnData failed: %v", err)
	}

	ok, err := s.Wait()
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if !ok {
		t.Error("Wait returned ok=false for a successful stream")
	}

	if strings.Join(got, "") != "abc" {
		t.Errorf("received %v, want [a b c]", got)
	}
}

func TestStream_BuffersBeforeRegistration(t *testing.T) {
	produced := make(chan struct{})

	s := New(context.Background(), func(ctx context.Context, emit func(int)) error {
		emit(1)
		emit(2)
		close(produced)
		return nil
	})

	// Let the producer run to completion before any consumer exists.
	<-produced
	ok, err := s.Wait()
	if !ok || err != nil {
		t.Fatalf("Wait = (%v, %v), want (true, nil)", ok, err)
	}

	var got []int
	if err := s.OnData(func(v int) { got = append(got, v) }); err != nil {
		t.Fatalf("OnData failed: %v", err)
	}

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("buffered values = %v, want [1 2]", got)
	}
}

func TestStream_DuplicateHandler(t *testing.T) {
	s := New(context.Background(), func(ctx context.Context, emit func(int)) error {
		return nil
	})

	if err := s.OnData(func(int) {}); err != nil {
		t.Fatalf("first OnData failed: %v", err)
	}
	if err := s.OnData(func(int) {}); !errors.Is(err, ErrDuplicateHandler) {
		t.Errorf("second OnData = %v, want ErrDuplicateHandler", err)
	}
}

func TestStream_AbortResolvesWaitFalse(t *testing.T) {
	started := make(chan struct{})

	s := New(context.Background(), func(ctx context.Context, emit func(int)) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	<-started
	s.Abort()

	ok, err := s.Wait()
	if err != nil {
		t.Errorf("Wait after abort returned error: %v", err)
	}
	if ok {
		t.Error("Wait after abort returned ok=true, want false")
	}
}

func TestStream_ProducerFailure(t *testing.T) {
	boom := errors.New("boom")

	s := New(context.Background(), func(ctx context.Context, emit func(int)) error {
		return boom
	})

	ok, err := s.Wait()
	if ok {
		t.Error("Wait returned ok=true for a failed stream")
	}
	if !errors.Is(err, boom) {
		t.Errorf("Wait error = %v, want %v", err, boom)
	}
}

func TestMap_TransformsAndForwards(t *testing.T) {
	s := New(context.Background(), func(ctx context.Context, emit func(int)) error {
		emit(1)
		emit(2)
		return nil
	})

	doubled := Map[int, int](s, func(v int) int { return v * 2 })

	var got []int
	if err := doubled.OnData(func(v int) { got = append(got, v) }); err != nil {
		t.Fatalf("OnData failed: %v", err)
	}

	ok, err := doubled.Wait()
	if !ok || err != nil {
		t.Fatalf("Wait = (%v, %v), want (true, nil)", ok, err)
	}

	if len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Errorf("mapped values = %v, want [2 4]", got)
	}

	// Map shares the parent's single-consumer slot.
	if err := s.OnData(func(int) {}); !errors.Is(err, ErrDuplicateHandler) {
		t.Errorf("parent OnData after mapped OnData = %v, want ErrDuplicateHandler", err)
	}
}

func TestMap_ForwardsAbort(t *testing.T) {
	started := make(chan struct{})

	s := New(context.Background(), func(ctx context.Context, emit func(int)) error {
		close(started)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("producer was never aborted")
		}
	})

	mapped := Map[int, int](s, func(v int) int { return v })

	<-started
	mapped.Abort()

	ok, err := mapped.Wait()
	if ok || err != nil {
		t.Errorf("Wait after abort = (%v, %v), want (false, nil)", ok, err)
	}
}
