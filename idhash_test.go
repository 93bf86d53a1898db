package bled

import (
	"testing"
	"unicode/utf8"
)

func TestServiceIDHashIsThreeBytes(t *testing.T) {
	h := ServiceIDHash("A")
	if len(h) != 3 {
		t.Fatalf("want 3 bytes, got %d", len(h))
	}
	if h != ServiceIDHash("A") {
		t.Errorf("hash must be deterministic")
	}
}

func TestTruncateUTF8StopsBeforePartialRune(t *testing.T) {
	// "déjà" - the 'é' and 'à' are 2-byte runes.
	name := "déjà vu"
	got, truncated := truncateUTF8(name, 4)
	if !truncated {
		t.Fatalf("expected truncation")
	}
	if len(got) > 4 {
		t.Fatalf("truncated result %q exceeds 4 bytes", got)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncated result %q is not valid utf-8", got)
	}
}

func TestTruncateUTF8NoOpWhenShortEnough(t *testing.T) {
	got, truncated := truncateUTF8("hi", 7)
	if truncated || got != "hi" {
		t.Fatalf("got %q, truncated=%v", got, truncated)
	}
}

func TestEndpointIDDeterministicAndFourChars(t *testing.T) {
	id, err := EndpointID("device", 1)
	if err != nil {
		t.Fatalf("EndpointID: %v", err)
	}
	if len(id) != 4 {
		t.Fatalf("endpoint id must be 4 chars, got %q", id)
	}
	id2, _ := EndpointID("device", 1)
	if id != id2 {
		t.Errorf("EndpointID must be deterministic: %q != %q", id, id2)
	}
	id3, _ := EndpointID("device", 2)
	if id3 == id {
		t.Errorf("different dedup should (almost always) change the id")
	}
}

func TestEndpointIDRejectsDedupOver7Bits(t *testing.T) {
	if _, err := EndpointID("device", 0x80); err == nil {
		t.Fatalf("dedup 0x80 should be rejected")
	}
}
