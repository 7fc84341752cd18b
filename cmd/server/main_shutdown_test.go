package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	osSignal "os/signal"
	"sync"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// stubSignal delivers SIGTERM as soon as shutdown subscribes.
func stubSignal(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		signalNotify = osSignal.Notify
	})
	signalNotify = func(ch chan<- os.Signal, sig ...os.Signal) {
		go func() {
			ch <- syscall.SIGTERM
		}()
	}
}

type stepRecorder struct {
	mu    sync.Mutex
	steps []string
}

func (r *stepRecorder) add(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
}

type recordingStore struct {
	rec *stepRecorder
	err error
}

func (s recordingStore) Close() error {
	s.rec.add("storage")
	return s.err
}

func TestShutdownSignals(t *testing.T) {
	stubSignal(t)

	server := &http.Server{}
	called := make(chan struct{}, 1)
	server.RegisterOnShutdown(func() {
		called <- struct{}{}
	})

	logger := zaptest.NewLogger(t)
	shutdown(server, time.Millisecond, logger)

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatalf("expected server shutdown callback to execute")
	}
}

func TestDrainClosesStorageBeforeFlushingTraces(t *testing.T) {
	stubSignal(t)

	rec := &stepRecorder{}
	var flushDeadline bool
	flush := func(ctx context.Context) error {
		_, flushDeadline = ctx.Deadline()
		rec.add("traces")
		return nil
	}

	server := &http.Server{}
	drain(server, recordingStore{rec: rec}, flush, time.Second, zaptest.NewLogger(t))

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("expected server to be shut down, got %v", err)
	}
	if len(rec.steps) != 2 || rec.steps[0] != "storage" || rec.steps[1] != "traces" {
		t.Fatalf("expected storage close then trace flush, got %v", rec.steps)
	}
	if !flushDeadline {
		t.Fatalf("expected trace flush to be bounded by the grace period")
	}
}

func TestDrainLogsCleanupFailures(t *testing.T) {
	stubSignal(t)

	core, logs := observer.New(zap.WarnLevel)
	rec := &stepRecorder{}
	store := recordingStore{rec: rec, err: errors.New("database locked")}
	flush := func(context.Context) error {
		rec.add("traces")
		return errors.New("collector unreachable")
	}

	drain(&http.Server{}, store, flush, time.Second, zap.New(core))

	if len(rec.steps) != 2 {
		t.Fatalf("expected the trace flush to run after a storage failure, got %v", rec.steps)
	}
	if n := logs.FilterMessage("closing storage failed").Len(); n != 1 {
		t.Fatalf("expected one storage warning, got %d", n)
	}
	if n := logs.FilterMessage("flushing traces failed").Len(); n != 1 {
		t.Fatalf("expected one tracing warning, got %d", n)
	}
}
