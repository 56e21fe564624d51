package audit

import "testing"

func TestHashContent(t *testing.T) {
	h := HashContent("hello")
	if len(h) != 64 {
		t.Fatalf("digest length = %d, want 64 hex chars", len(h))
	}
	if h != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Errorf("unexpected digest %s", h)
	}

	if HashContent("hello") != h {
		t.Error("digest must be deterministic")
	}
	if HashContent("hello ") == h {
		t.Error("different content must hash differently")
	}
}
