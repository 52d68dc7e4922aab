package routing

import "fmt"

// PreferenceMatrix maps (skill, difficulty) to a weight in [0,1]. Rows are
// independent willingness weights, not probability distributions.
type PreferenceMatrix [NumSkillLevels][NumDifficulties]float64

func DefaultPreferences() PreferenceMatrix {
	return PreferenceMatrix{
		Beginner:     {Green: 0.90, Blue: 0.20, Black: 0.02, DoubleBlack: 0.01},
		Intermediate: {Green: 0.40, Blue: 0.85, Black: 0.25, DoubleBlack: 0.05},
		Advanced:     {Green: 0.15, Blue: 0.50, Black: 0.85, DoubleBlack: 0.30},
		Expert:       {Green: 0.10, Blue: 0.30, Black: 0.70, DoubleBlack: 0.90},
	}
}

func (m *PreferenceMatrix) Weight(s SkillLevel, d TrailDifficulty) float64 {
	return m[s][d]
}

// Favorite returns the difficulty the skill weighs most strongly. Ties go to
// the easier trail.
func (m *PreferenceMatrix) Favorite(s SkillLevel) TrailDifficulty {
	best := Green
	for d := Blue; d < NumDifficulties; d++ {
		if m[s][d] > m[s][best] {
			best = d
		}
	}
	return best
}

// PreferencesFromConfig overlays named overrides (skill -> difficulty ->
// weight) on the defaults. Unknown names and out-of-range weights are errors
// so a typo in tuning.yaml cannot silently zero a row.
func PreferencesFromConfig(overrides map[string]map[string]float64) (PreferenceMatrix, error) {
	m := DefaultPreferences()
	for skillName, row := range overrides {
		s, err := ParseSkill(skillName)
		if err != nil {
			return m, err
		}
		for diffName, w := range row {
			d, err := ParseDifficulty(diffName)
			if err != nil {
				return m, err
			}
			if w < 0 || w > 1 {
				return m, fmt.Errorf("preference %s/%s = %v out of [0,1]", skillName, diffName, w)
			}
			m[s][d] = w
		}
	}
	return m, nil
}
