package sweep

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRunnerFires(t *testing.T) {
	var calls atomic.Int32
	r, err := New("@every 100ms", func() { calls.Add(1) })
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	r.Start()
	defer r.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if calls.Load() >= 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("sweep fired %d times, want >= 2", calls.Load())
}

func TestRunnerRejectsBadSchedule(t *testing.T) {
	if _, err := New("not a schedule", func() {}); err == nil {
		t.Fatal("expected schedule parse error")
	}
}

func TestStopWaitsForInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	r, err := New("@every 50ms", func() {
		select {
		case started <- struct{}{}:
			<-release
		default:
		}
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	r.Start()
	<-started

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("stop returned while a sweep was in flight")
	case <-time.After(100 * time.Millisecond):
	}
	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop did not return after the sweep finished")
	}
}
