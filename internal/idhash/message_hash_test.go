package idhash

import "testing"

func TestMessageHash_Deterministic(t *testing.T) {
	content := "deepseek decided to hold with confidence 0.7"

	h1 := MessageHash(content)
	h2 := MessageHash(content)
	if h1 != h2 {
		t.Fatalf("same content hashed differently: %s vs %s", h1, h2)
	}
	if len(h1) != 16 {
		t.Fatalf("hash length = %d, want 16", len(h1))
	}
	for _, r := range h1 {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			t.Fatalf("hash %s contains non-hex character %q", h1, r)
		}
	}
}

func TestMessageHash_DistinctContent(t *testing.T) {
	if MessageHash("content a") == MessageHash("content b") {
		t.Fatal("distinct content produced the same hash")
	}
}

func TestFastPathHash_DomainSeparated(t *testing.T) {
	// A conversation id must not collide with raw content equal to the id.
	id := "conv-12345"
	if FastPathHash(id) == MessageHash(id) {
		t.Fatal("fast-path hash collides with content hash of the same string")
	}

	if FastPathHash(id) != FastPathHash(id) {
		t.Fatal("fast-path hash is not deterministic")
	}
	if len(FastPathHash(id)) != 16 {
		t.Fatalf("hash length = %d, want 16", len(FastPathHash(id)))
	}
}
