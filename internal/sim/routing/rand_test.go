package routing

import "testing"

func TestStream_Deterministic(t *testing.T) {
	a := NewStream(42, 7, 100)
	b := NewStream(42, 7, 100)
	for i := 0; i < 1000; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("streams with identical keys diverged at draw %d", i)
		}
	}
}

func TestStream_KeySensitivity(t *testing.T) {
	base := NewStream(42, 7, 100).Float64()
	if NewStream(43, 7, 100).Float64() == base &&
		NewStream(42, 8, 100).Float64() == base &&
		NewStream(42, 7, 101).Float64() == base {
		t.Fatalf("stream ignores its key components")
	}
}

func TestStream_Float64Range(t *testing.T) {
	r := NewStream(1, 1, 1)
	for i := 0; i < 10000; i++ {
		v := r.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("Float64() = %v out of [0,1)", v)
		}
	}
}

func TestStream_IntnBounds(t *testing.T) {
	r := NewStream(2, 2, 2)
	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		v := r.Intn(5)
		if v < 0 || v >= 5 {
			t.Fatalf("Intn(5) = %d", v)
		}
		seen[v] = true
	}
	if len(seen) != 5 {
		t.Fatalf("Intn(5) over 1000 draws hit %d distinct values", len(seen))
	}
}

func TestStream_IntBetween(t *testing.T) {
	r := NewStream(3, 3, 3)
	for i := 0; i < 1000; i++ {
		v := r.IntBetween(3, 9)
		if v < 3 || v > 9 {
			t.Fatalf("IntBetween(3,9) = %d", v)
		}
	}
	if r.IntBetween(5, 5) != 5 {
		t.Fatalf("degenerate range")
	}
}

func TestLabeledStream_Deterministic(t *testing.T) {
	a := NewLabeledStream(42, "spawn", 10)
	b := NewLabeledStream(42, "spawn", 10)
	if a.Float64() != b.Float64() {
		t.Fatalf("labeled streams diverged")
	}
	if NewLabeledStream(42, "spawn", 10).Float64() == NewLabeledStream(42, "despawn", 10).Float64() {
		t.Fatalf("label not mixed into stream key")
	}
}
