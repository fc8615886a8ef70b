package id

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	tests := []struct {
		prefix string
	}{
		{ElementPrefix},
		{OptionPrefix},
		{ScreenPrefix},
	}

	for _, tt := range tests {
		id := gen.GenerateWithPrefix(tt.prefix)

		if !strings.HasPrefix(id, tt.prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", tt.prefix, id)
		}

		if !IsSynthesized(id, tt.prefix) {
			t.Errorf("ID should be recognised as synthesized: %s", id)
		}
	}
}

func TestTypedGenerators(t *testing.T) {
	gen := NewGenerator()

	if !IsSynthesized(gen.Element().String(), ElementPrefix) {
		t.Error("element id has wrong shape")
	}
	if !IsSynthesized(gen.Option().String(), OptionPrefix) {
		t.Error("option id has wrong shape")
	}
	if !IsSynthesized(gen.Screen().String(), ScreenPrefix) {
		t.Error("screen id has wrong shape")
	}
	if IsSynthesized("hero_title", ElementPrefix) {
		t.Error("author-supplied id must not look synthesized")
	}
}

func TestDeterministicEntropy(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := func() time.Time { return fixed }

	a := NewGeneratorWithEntropy(bytes.NewReader(make([]byte, 64)), clock)
	b := NewGeneratorWithEntropy(bytes.NewReader(make([]byte, 64)), clock)

	if a.Element() != b.Element() {
		t.Error("identical entropy and clock should yield identical ids")
	}

	ts, err := Timestamp(a.Element().String())
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if !ts.Equal(fixed) {
		t.Errorf("expected %v, got %v", fixed, ts)
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const workers = 8
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[ElementID]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := gen.Element()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d unique ids, got %d", workers*perWorker, len(seen))
	}
}
