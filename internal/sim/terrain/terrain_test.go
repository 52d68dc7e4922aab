package terrain

import (
	"math"
	"testing"
)

func TestHeightAt_Deterministic(t *testing.T) {
	a := NewGrid(1337, 500)
	b := NewGrid(1337, 500)
	for _, p := range [][2]float64{{0, 0}, {10.5, -3.25}, {-400, 499}, {123, 321}} {
		if a.HeightAt(p[0], p[1]) != b.HeightAt(p[0], p[1]) {
			t.Fatalf("same seed, different height at %v", p)
		}
	}
	c := NewGrid(1338, 500)
	same := 0
	for _, p := range [][2]float64{{10, 10}, {50, -50}, {200, 300}} {
		if a.HeightAt(p[0], p[1]) == c.HeightAt(p[0], p[1]) {
			same++
		}
	}
	if same == 3 {
		t.Fatalf("different seeds produced identical heights")
	}
}

func TestInBounds(t *testing.T) {
	g := NewGrid(7, 100)
	cases := []struct {
		x, z float64
		want bool
	}{
		{0, 0, true},
		{100, -100, true},
		{100.01, 0, false},
		{0, -100.5, false},
	}
	for _, tc := range cases {
		if got := g.InBounds(tc.x, tc.z); got != tc.want {
			t.Fatalf("InBounds(%v,%v) = %v, want %v", tc.x, tc.z, got, tc.want)
		}
	}
}

func TestHeightAt_RampDominatesAtDistance(t *testing.T) {
	g := NewGrid(42, 1000)
	// Far from the lodge the ramp outweighs noise amplitude, so distant
	// points sit well above the origin.
	h0 := g.HeightAt(0, 0)
	h1 := g.HeightAt(0, 800)
	if h1-h0 < 100 {
		t.Fatalf("ramp too weak: height delta %v over 800 units", h1-h0)
	}
}

func TestHeightAt_Continuity(t *testing.T) {
	g := NewGrid(99, 500)
	// Bilinear interpolation: tiny steps move height by tiny amounts.
	prev := g.HeightAt(10, 10)
	for i := 1; i <= 100; i++ {
		x := 10 + float64(i)*0.1
		h := g.HeightAt(x, 10)
		if math.Abs(h-prev) > 2 {
			t.Fatalf("height jumped %v over 0.1 units at x=%v", h-prev, x)
		}
		prev = h
	}
}

func TestSlopeBetween(t *testing.T) {
	g := NewGrid(5, 500)
	ax, az := 0.0, 300.0
	bx, bz := 0.0, 10.0
	// Downhill toward the lodge is a positive slope.
	if s := g.SlopeBetween(ax, az, bx, bz); s <= 0 {
		t.Fatalf("slope from high to low = %v, want > 0", s)
	}
	if s := g.SlopeBetween(1, 1, 1, 1); s != 0 {
		t.Fatalf("zero-run slope = %v", s)
	}
}
