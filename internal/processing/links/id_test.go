package links

import (
	"strings"
	"testing"
)

func TestCryptoIDGeneratorGenerate(t *testing.T) {
	g := NewCryptoIDGenerator()

	t.Run("correct length", func(t *testing.T) {
		id, err := g.Generate(8)
		if err != nil {
			t.Fatal(err)
		}
		if len(id) != 8 {
			t.Errorf("got length %d, want 8", len(id))
		}
	})

	t.Run("base62 alphabet only", func(t *testing.T) {
		id, err := g.Generate(100)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range id {
			if !strings.ContainsRune(base62Alphabet, c) {
				t.Errorf("id contains non-base62 char: %q", c)
			}
		}
	})

	t.Run("zero length uses fallback", func(t *testing.T) {
		id, err := g.Generate(0)
		if err != nil {
			t.Fatal(err)
		}
		if len(id) != DefaultIDLength {
			t.Errorf("got length %d, want %d (fallback)", len(id), DefaultIDLength)
		}
	})

	t.Run("negative length uses fallback", func(t *testing.T) {
		id, err := g.Generate(-5)
		if err != nil {
			t.Fatal(err)
		}
		if len(id) != DefaultIDLength {
			t.Errorf("got length %d, want %d (fallback)", len(id), DefaultIDLength)
		}
	})

	t.Run("uniqueness over 100 calls", func(t *testing.T) {
		seen := make(map[string]struct{}, 100)
		for i := 0; i < 100; i++ {
			id, err := g.Generate(10)
			if err != nil {
				t.Fatal(err)
			}
			if _, exists := seen[id]; exists {
				t.Fatalf("duplicate id on iteration %d: %q", i, id)
			}
			seen[id] = struct{}{}
		}
	})
}
