package routing

import "fmt"

// SkillLevel orders skier ability. The integer values align index-for-index
// with TrailDifficulty for gap computations.
type SkillLevel int

const (
	Beginner SkillLevel = iota
	Intermediate
	Advanced
	Expert

	NumSkillLevels = 4
)

var skillNames = [NumSkillLevels]string{"BEGINNER", "INTERMEDIATE", "ADVANCED", "EXPERT"}

func (s SkillLevel) String() string {
	if s < 0 || int(s) >= NumSkillLevels {
		return fmt.Sprintf("SkillLevel(%d)", int(s))
	}
	return skillNames[s]
}

func ParseSkill(name string) (SkillLevel, error) {
	for i, n := range skillNames {
		if n == name {
			return SkillLevel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown skill level %q", name)
}

// TrailDifficulty orders trail ratings, aligned with SkillLevel.
type TrailDifficulty int

const (
	Green TrailDifficulty = iota
	Blue
	Black
	DoubleBlack

	NumDifficulties = 4
)

var difficultyNames = [NumDifficulties]string{"GREEN", "BLUE", "BLACK", "DOUBLE_BLACK"}

func (d TrailDifficulty) String() string {
	if d < 0 || int(d) >= NumDifficulties {
		return fmt.Sprintf("TrailDifficulty(%d)", int(d))
	}
	return difficultyNames[d]
}

func ParseDifficulty(name string) (TrailDifficulty, error) {
	for i, n := range difficultyNames {
		if n == name {
			return TrailDifficulty(i), nil
		}
	}
	return 0, fmt.Errorf("unknown trail difficulty %q", name)
}

// Gap is index(skill) - index(difficulty): positive when the trail is below
// the skier's level, negative when above.
func Gap(s SkillLevel, d TrailDifficulty) int {
	return int(s) - int(d)
}
