package barrier_test

import (
	"context"
	"testing"
	"time"

	"LiqSentinel/internal/barrier"
)

func TestBarrier_StartsPending(t *testing.T) {
	b := barrier.New()
	if b.IsOpen() {
		t.Error("new barrier should be pending")
	}
}

func TestBarrier_OpensOnFire(t *testing.T) {
	b := barrier.New()
	b.Fire()
	if !b.IsOpen() {
		t.Error("barrier should be open after Fire")
	}
}

func TestBarrier_DoubleFirePanics(t *testing.T) {
	b := barrier.New()
	b.Fire()

	defer func() {
		if recover() == nil {
			t.Error("second Fire should panic")
		}
	}()
	b.Fire()
}

func TestBarrier_WaitReturnsAfterFire(t *testing.T) {
	b := barrier.New()

	done := make(chan error, 1)
	go func() {
		done <- b.Wait(context.Background())
	}()

	b.Fire()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Fire")
	}
}

func TestBarrier_WaitObservesCancellation(t *testing.T) {
	b := barrier.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait returned %v, want context.Canceled", err)
	}
}
