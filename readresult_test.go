package bled

import (
	"testing"
	"time"
)

func TestAdvertisementReadResultInitialStateRetries(t *testing.T) {
	now := time.Now()
	r := NewAdvertisementReadResult(now)
	if got := r.EvaluateRetry(now); got != Retry {
		t.Fatalf("got %v, want Retry", got)
	}
}

func TestAdvertisementReadResultSuccessShortCircuits(t *testing.T) {
	now := time.Now()
	r := NewAdvertisementReadResult(now)
	r.RecordLastReadStatus(now, true)
	if got := r.EvaluateRetry(now.Add(time.Hour)); got != PreviouslySucceeded {
		t.Fatalf("got %v, want PreviouslySucceeded", got)
	}
}

func TestAdvertisementReadResultTooSoonThenRetry(t *testing.T) {
	now := time.Now()
	r := NewAdvertisementReadResult(now)
	r.RecordLastReadStatus(now, false)
	if got := r.EvaluateRetry(now.Add(500 * time.Millisecond)); got != TooSoon {
		t.Fatalf("got %v, want TooSoon", got)
	}
	if got := r.EvaluateRetry(now.Add(1500 * time.Millisecond)); got != Retry {
		t.Fatalf("got %v, want Retry", got)
	}
}

func TestAdvertisementReadResultBackoffDoublesAndCaps(t *testing.T) {
	now := time.Now()
	r := NewAdvertisementReadResult(now)

	r.RecordLastReadStatus(now, false)
	if r.backoff != readResultBaseBackoff {
		t.Fatalf("first failure backoff = %v, want %v", r.backoff, readResultBaseBackoff)
	}

	t2 := now.Add(readResultBaseBackoff)
	r.RecordLastReadStatus(t2, false)
	if r.backoff != 2*readResultBaseBackoff {
		t.Fatalf("second failure backoff = %v, want %v", r.backoff, 2*readResultBaseBackoff)
	}

	// Drive the backoff up past the cap.
	cur := t2
	for i := 0; i < 20; i++ {
		cur = cur.Add(r.backoff)
		r.RecordLastReadStatus(cur, false)
	}
	if r.backoff != readResultMaxBackoff {
		t.Fatalf("backoff = %v, want cap %v", r.backoff, readResultMaxBackoff)
	}
}

func TestAdvertisementReadResultSuccessResetsBackoff(t *testing.T) {
	now := time.Now()
	r := NewAdvertisementReadResult(now)
	r.RecordLastReadStatus(now, false)
	r.RecordLastReadStatus(now.Add(readResultBaseBackoff), false)
	if r.backoff == readResultBaseBackoff {
		t.Fatalf("expected backoff to have grown before success reset")
	}
	r.RecordLastReadStatus(now.Add(2*readResultBaseBackoff), true)
	if r.backoff != readResultBaseBackoff {
		t.Fatalf("backoff after success = %v, want base %v", r.backoff, readResultBaseBackoff)
	}
}

func TestAdvertisementReadResultSlots(t *testing.T) {
	now := time.Now()
	r := NewAdvertisementReadResult(now)
	r.AddAdvertisement(1, []byte{0xAA})
	r.AddAdvertisement(2, []byte{0xBB})
	if r.GetNumSlots() != 2 {
		t.Fatalf("GetNumSlots() = %d, want 2", r.GetNumSlots())
	}
	got := r.GetAdvertisements()
	if len(got) != 2 || got[1][0] != 0xAA || got[2][0] != 0xBB {
		t.Fatalf("got %+v", got)
	}
	// GetAdvertisements must be a defensive copy.
	got[1][0] = 0xFF
	if r.slots[1][0] != 0xAA {
		t.Fatalf("GetAdvertisements mutated internal state")
	}
}

func TestAdvertisementReadResultDurationSinceRead(t *testing.T) {
	now := time.Now()
	r := NewAdvertisementReadResult(now)
	r.RecordLastReadStatus(now, false)
	if d := r.GetDurationSinceRead(now.Add(3 * time.Second)); d != 3*time.Second {
		t.Fatalf("GetDurationSinceRead = %v, want 3s", d)
	}
}
