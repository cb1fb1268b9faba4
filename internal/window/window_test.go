package window

import (
	"testing"
	"time"
)

func TestTrailing24h(t *testing.T) {
	now := time.Date(2024, 3, 7, 9, 41, 37, 912000000, time.UTC)

	r := Trailing24h(now)

	want := time.Date(2024, 3, 7, 9, 41, 0, 0, time.UTC)
	if !r.End.Equal(want) {
		t.Fatalf("end not aligned to minute: got %v, want %v", r.End, want)
	}
	if got := r.End.Sub(r.Start); got != 24*time.Hour {
		t.Fatalf("range is %v, want 24h", got)
	}
}

func TestTrailing24hAlreadyAligned(t *testing.T) {
	now := time.Date(2024, 3, 7, 9, 41, 0, 0, time.UTC)

	r := Trailing24h(now)
	if !r.End.Equal(now) {
		t.Fatalf("aligned time should be unchanged: got %v", r.End)
	}
}
