package clock

import (
	"testing"
	"time"
)

func TestReal_Now(t *testing.T) {
	before := time.Now()
	got := Real{}.Now()
	if got.Before(before) {
		t.Errorf("real clock went backwards: %v < %v", got, before)
	}
}

func TestFake_Advance(t *testing.T) {
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	f := NewFake(start)

	if !f.Now().Equal(start) {
		t.Fatalf("expected %v, got %v", start, f.Now())
	}

	f.Advance(10 * time.Minute)
	if want := start.Add(10 * time.Minute); !f.Now().Equal(want) {
		t.Errorf("expected %v, got %v", want, f.Now())
	}

	f.Set(start)
	if !f.Now().Equal(start) {
		t.Errorf("expected reset to %v, got %v", start, f.Now())
	}
}
