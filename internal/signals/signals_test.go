//go:build unix

package signals

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/amir-mohammad-HP/sugarnexus/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestHandler_InvokesShutdownOnSignal(t *testing.T) {
	h := NewHandler(logger.NewNullLogger(), syscall.SIGUSR1)

	called := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Handle(context.Background(), func() { close(called) })
	}()

	// Give Notify a moment to register before raising the signal.
	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown func was not called")
	}
	<-done
}

func TestHandler_ReturnsOnContextCancel(t *testing.T) {
	h := NewHandler(logger.NewNullLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	h.Handle(ctx, func() { called = true })
	assert.False(t, called)
}
