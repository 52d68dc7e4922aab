package routing

import "errors"

// ErrScoreCollapse reports that every candidate scored zero despite the
// minimum-score floor. That is unreachable with a validated tuning snapshot,
// so it is surfaced as a fatal configuration error instead of a silent
// default pick.
var ErrScoreCollapse = errors.New("all candidate scores collapsed to zero; tuning snapshot is misconfigured")

// Select picks one candidate by weighted random draw over the score sums.
// With probability jerryChance the draw ignores scores entirely and picks
// uniformly (irrational/exploratory visitors). The caller handles the empty
// candidate list as a NoViableRoute decision before calling Select.
func Select(cands []Candidate, jerryChance float64, r *Stream) (int, bool, error) {
	if len(cands) == 0 {
		return -1, false, errors.New("select on empty candidate list")
	}
	if r.Float64() < jerryChance {
		return r.Intn(len(cands)), true, nil
	}
	total := 0.0
	for _, c := range cands {
		total += c.Score
	}
	if total <= 0 {
		return -1, false, ErrScoreCollapse
	}
	x := r.Float64() * total
	cum := 0.0
	for i, c := range cands {
		cum += c.Score
		if x < cum {
			return i, false, nil
		}
	}
	return len(cands) - 1, false, nil
}
