package routing

import "testing"

func TestDefaultPreferences_RowsInRange(t *testing.T) {
	m := DefaultPreferences()
	for s := Beginner; s < NumSkillLevels; s++ {
		for d := Green; d < NumDifficulties; d++ {
			w := m.Weight(SkillLevel(s), TrailDifficulty(d))
			if w < 0 || w > 1 {
				t.Fatalf("weight(%v,%v) = %v out of [0,1]", s, d, w)
			}
		}
	}
}

func TestFavorite(t *testing.T) {
	m := DefaultPreferences()
	cases := map[SkillLevel]TrailDifficulty{
		Beginner:     Green,
		Intermediate: Blue,
		Advanced:     Black,
		Expert:       DoubleBlack,
	}
	for s, want := range cases {
		if got := m.Favorite(s); got != want {
			t.Fatalf("favorite(%v) = %v, want %v", s, got, want)
		}
	}
}

func TestPreferencesFromConfig(t *testing.T) {
	m, err := PreferencesFromConfig(map[string]map[string]float64{
		"EXPERT": {"GREEN": 0.5},
	})
	if err != nil {
		t.Fatalf("overlay: %v", err)
	}
	if m.Weight(Expert, Green) != 0.5 {
		t.Fatalf("override not applied")
	}
	def := DefaultPreferences()
	if m.Weight(Expert, Black) != def.Weight(Expert, Black) {
		t.Fatalf("untouched cell changed")
	}

	if _, err := PreferencesFromConfig(map[string]map[string]float64{"WIZARD": {"GREEN": 0.5}}); err == nil {
		t.Fatalf("unknown skill accepted")
	}
	if _, err := PreferencesFromConfig(map[string]map[string]float64{"EXPERT": {"PINK": 0.5}}); err == nil {
		t.Fatalf("unknown difficulty accepted")
	}
	if _, err := PreferencesFromConfig(map[string]map[string]float64{"EXPERT": {"GREEN": 1.5}}); err == nil {
		t.Fatalf("out-of-range weight accepted")
	}
}

func TestParseNames(t *testing.T) {
	for i, n := range []string{"BEGINNER", "INTERMEDIATE", "ADVANCED", "EXPERT"} {
		s, err := ParseSkill(n)
		if err != nil || int(s) != i {
			t.Fatalf("ParseSkill(%s) = %v, %v", n, s, err)
		}
		if s.String() != n {
			t.Fatalf("round trip %s", n)
		}
	}
	for i, n := range []string{"GREEN", "BLUE", "BLACK", "DOUBLE_BLACK"} {
		d, err := ParseDifficulty(n)
		if err != nil || int(d) != i {
			t.Fatalf("ParseDifficulty(%s) = %v, %v", n, d, err)
		}
	}
	if _, err := ParseSkill("NOPE"); err == nil {
		t.Fatalf("unknown skill parsed")
	}
}

func TestGap(t *testing.T) {
	if Gap(Expert, Green) != 3 || Gap(Beginner, DoubleBlack) != -3 || Gap(Intermediate, Blue) != 0 {
		t.Fatalf("gap arithmetic wrong")
	}
}
