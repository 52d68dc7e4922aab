package routing

import (
	"math"
	"testing"
)

func TestSelect_WeightedByScore(t *testing.T) {
	cands := []Candidate{
		{StructureID: "A", Score: 0.1},
		{StructureID: "B", Score: 0.7},
		{StructureID: "C", Score: 0.2},
	}
	counts := map[string]int{}
	const trials = 20000
	for i := 0; i < trials; i++ {
		r := NewStream(7, 1, uint64(i))
		idx, jerry, err := Select(cands, 0, r)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if jerry {
			t.Fatalf("jerry pick with jerryChance=0")
		}
		counts[cands[idx].StructureID]++
	}
	// Expect roughly the score proportions.
	for id, want := range map[string]float64{"A": 0.1, "B": 0.7, "C": 0.2} {
		got := float64(counts[id]) / trials
		if math.Abs(got-want) > 0.03 {
			t.Fatalf("candidate %s frequency %v, want ~%v", id, got, want)
		}
	}
}

func TestSelect_JerryIgnoresScores(t *testing.T) {
	// With jerryChance=1 the distribution is uniform no matter how lopsided
	// the scores are.
	cands := []Candidate{
		{StructureID: "A", Score: 0.001},
		{StructureID: "B", Score: 100},
		{StructureID: "C", Score: 0.001},
	}
	counts := map[string]int{}
	const trials = 30000
	for i := 0; i < trials; i++ {
		r := NewStream(11, 2, uint64(i))
		idx, jerry, err := Select(cands, 1.0, r)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if !jerry {
			t.Fatalf("expected jerry pick with jerryChance=1")
		}
		counts[cands[idx].StructureID]++
	}
	for id, n := range counts {
		got := float64(n) / trials
		if math.Abs(got-1.0/3) > 0.02 {
			t.Fatalf("candidate %s frequency %v, want ~1/3", id, got)
		}
	}
}

func TestSelect_ScoreCollapseIsFatal(t *testing.T) {
	cands := []Candidate{{StructureID: "A"}, {StructureID: "B"}}
	r := NewStream(3, 3, 3)
	if _, _, err := Select(cands, 0, r); err != ErrScoreCollapse {
		t.Fatalf("expected ErrScoreCollapse, got %v", err)
	}
}

func TestSelect_EmptyIsError(t *testing.T) {
	r := NewStream(3, 3, 3)
	if _, _, err := Select(nil, 0, r); err == nil {
		t.Fatalf("expected error on empty candidate list")
	}
}

func TestSelect_SingleCandidate(t *testing.T) {
	cands := []Candidate{{StructureID: "A", Score: 0.4}}
	for i := 0; i < 100; i++ {
		r := NewStream(5, 9, uint64(i))
		idx, _, err := Select(cands, 0.5, r)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if idx != 0 {
			t.Fatalf("single candidate not chosen")
		}
	}
}
