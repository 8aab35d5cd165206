package logring

import (
	"strconv"
	"testing"
	"time"
)

func entry(i int) Entry {
	return Entry{At: time.Unix(int64(i), 0), Stream: StreamStdout, Line: strconv.Itoa(i)}
}

func TestAppendBelowCapacity(t *testing.T) {
	r := New(4)
	for i := 0; i < 3; i++ {
		r.Append(entry(i))
	}
	if r.Len() != 3 {
		t.Fatalf("len = %d, want 3", r.Len())
	}
	got := r.Tail(0)
	for i, e := range got {
		if e.Line != strconv.Itoa(i) {
			t.Fatalf("tail[%d] = %q, want %q", i, e.Line, strconv.Itoa(i))
		}
	}
}

func TestEvictsOldest(t *testing.T) {
	r := New(3)
	for i := 0; i < 10; i++ {
		r.Append(entry(i))
	}
	if r.Len() != 3 {
		t.Fatalf("len = %d, want 3", r.Len())
	}
	got := r.Tail(0)
	want := []string{"7", "8", "9"}
	for i := range want {
		if got[i].Line != want[i] {
			t.Fatalf("tail = %v, want suffix %v", got, want)
		}
	}
}

func TestTailLimit(t *testing.T) {
	r := New(5)
	for i := 0; i < 5; i++ {
		r.Append(entry(i))
	}
	got := r.Tail(2)
	if len(got) != 2 || got[0].Line != "3" || got[1].Line != "4" {
		t.Fatalf("tail(2) = %v", got)
	}
	// limit beyond buffered count returns everything
	if n := len(r.Tail(100)); n != 5 {
		t.Fatalf("tail(100) len = %d, want 5", n)
	}
}

func TestDefaultCapacity(t *testing.T) {
	r := New(0)
	if r.Capacity() != DefaultCapacity {
		t.Fatalf("capacity = %d, want %d", r.Capacity(), DefaultCapacity)
	}
}
