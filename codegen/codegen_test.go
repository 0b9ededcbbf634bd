package codegen

import (
	"strings"
	"sync"
	"testing"
)

func TestNewBase62(t *testing.T) {
	gen := NewBase62()
	if gen == nil {
		t.Fatal("NewBase62() returned nil")
	}
}

func TestBase62Generator_Generate(t *testing.T) {
	t.Run("generates code of requested length", func(t *testing.T) {
		gen := NewBase62()

		for _, length := range []int{1, DefaultLength, 10, 20} {
			code, err := gen.Generate(length)
			if err != nil {
				t.Fatalf("Generate(%d) unexpected error: %v", length, err)
			}
			if len(code) != length {
				t.Errorf("Generate(%d) returned length %d, want %d", length, len(code), length)
			}
		}
	})

	t.Run("generates only valid base62 characters", func(t *testing.T) {
		gen := NewBase62()

		for _, length := range []int{6, 20, 64} {
			code, err := gen.Generate(length)
			if err != nil {
				t.Fatalf("Generate(%d) unexpected error: %v", length, err)
			}

			for i, char := range code {
				if !strings.ContainsRune(base62Chars, char) {
					t.Errorf("Generate(%d) produced invalid character %c at position %d", length, char, i)
				}
			}
		}
	})

	t.Run("collisions at default length are negligible in practice", func(t *testing.T) {
		gen := NewBase62()
		seen := make(map[string]bool)

		for i := 0; i < 1000; i++ {
			code, err := gen.Generate(DefaultLength)
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}
			if seen[code] {
				t.Errorf("Generate() produced duplicate code: %q", code)
			}
			seen[code] = true
		}
	})

	t.Run("returns error for non-positive length", func(t *testing.T) {
		gen := NewBase62()

		for _, length := range []int{0, -1} {
			if _, err := gen.Generate(length); err == nil {
				t.Errorf("Generate(%d) expected error, got nil", length)
			}
		}
	})

	t.Run("concurrent generation is safe", func(t *testing.T) {
		gen := NewBase62()
		const goroutines = 50
		const iterations = 100

		var wg sync.WaitGroup
		results := make(chan string, goroutines*iterations)
		errChan := make(chan error, goroutines*iterations)

		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < iterations; j++ {
					code, err := gen.Generate(8)
					if err != nil {
						errChan <- err
						return
					}
					results <- code
				}
			}()
		}

		wg.Wait()
		close(results)
		close(errChan)

		for err := range errChan {
			t.Errorf("concurrent Generate() error: %v", err)
		}

		seen := make(map[string]bool)
		count := 0
		for code := range results {
			count++
			if seen[code] {
				t.Errorf("concurrent generation produced duplicate: %q", code)
			}
			seen[code] = true
		}

		if want := goroutines * iterations; count != want {
			t.Errorf("expected %d codes, got %d", want, count)
		}
	})
}
