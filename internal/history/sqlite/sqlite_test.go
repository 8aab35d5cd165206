package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkassen/procmate/internal/history"
)

func TestSendAndRecent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	code := 1
	events := []history.Event{
		{Type: history.EventStart, Key: "bridge", PID: 100, OccurredAt: time.Now().Add(-3 * time.Minute)},
		{Type: history.EventCrash, Key: "bridge", PID: 100, OccurredAt: time.Now().Add(-2 * time.Minute), ExitCode: &code},
		{Type: history.EventStart, Key: "bridge", PID: 101, OccurredAt: time.Now().Add(-time.Minute)},
		{Type: history.EventStart, Key: "other", PID: 200, OccurredAt: time.Now()},
	}
	for _, e := range events {
		if err := store.Send(ctx, e); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	got, err := store.Recent(ctx, "bridge", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("recent length = %d, want 3", len(got))
	}
	// Newest first.
	if got[0].PID != 101 || got[0].Type != history.EventStart {
		t.Fatalf("order wrong: %+v", got[0])
	}
	if got[1].Type != history.EventCrash || got[1].ExitCode == nil || *got[1].ExitCode != 1 {
		t.Fatalf("crash event mangled: %+v", got[1])
	}
	if got[2].ExitCode != nil {
		t.Fatalf("start event has exit code: %+v", got[2])
	}
}

func TestRecentLimit(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		e := history.Event{Type: history.EventStart, Key: "k", PID: i, OccurredAt: time.Now()}
		if err := store.Send(ctx, e); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	got, err := store.Recent(ctx, "k", 4)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("limit ignored: %d", len(got))
	}
	if got[0].PID != 9 {
		t.Fatalf("newest-first violated: %+v", got[0])
	}
}

func TestEmptyPathRejected(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
