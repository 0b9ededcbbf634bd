package idgen

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewV4(t *testing.T) {
	gen := NewV4()

	id, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("Generate() returned nil UUID")
	}
	if id.Version() != 4 {
		t.Errorf("Version() = %d, want 4", id.Version())
	}
}

func TestNewV7(t *testing.T) {
	t.Run("generates valid v7 ids", func(t *testing.T) {
		gen := NewV7()

		id, err := gen.Generate()
		if err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
		if id == uuid.Nil {
			t.Fatal("Generate() returned nil UUID")
		}
		if id.Version() != 7 {
			t.Errorf("Version() = %d, want 7", id.Version())
		}
	})

	t.Run("generates distinct ids", func(t *testing.T) {
		gen := NewV7(WithRetries(2))
		seen := make(map[uuid.UUID]bool)

		for i := 0; i < 1000; i++ {
			id, err := gen.Generate()
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}
			if seen[id] {
				t.Fatalf("Generate() produced duplicate id %s", id)
			}
			seen[id] = true
		}
	})

	t.Run("negative retry option is ignored", func(t *testing.T) {
		gen := NewV7(WithRetries(-5))
		if _, err := gen.Generate(); err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
	})
}
