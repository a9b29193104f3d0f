package mulligan

import (
	"strings"
	"testing"
)

func TestGenerateTokenFormat(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	parts := strings.Split(token, "-")
	if len(parts) != 4 {
		t.Fatalf("expected 4 segments, got %d in %q", len(parts), token)
	}

	wantLens := []int{8, 4, 4, 12}
	for i, p := range parts {
		if len(p) != wantLens[i] {
			t.Errorf("segment %d: expected length %d, got %d", i, wantLens[i], len(p))
		}
		for _, c := range p {
			if !strings.ContainsRune(alphabet, c) {
				t.Errorf("segment %d contains %q, not in alphabet", i, c)
			}
		}
	}
}

func TestGenerateTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %q", token)
		}
		seen[token] = true
	}
}
