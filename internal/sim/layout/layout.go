// Package layout loads the resort description: the base lodge, lifts and
// trails that seed the snap point registry at startup. Elevations come from
// the terrain grid, not the file.
package layout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"snowline.sim/internal/sim/routing"
	"snowline.sim/internal/sim/terrain"
)

type Coord struct {
	X float64 `yaml:"x"`
	Z float64 `yaml:"z"`
}

type Lift struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Bottom Coord  `yaml:"bottom"`
	Top    Coord  `yaml:"top"`
}

type Trail struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Difficulty string `yaml:"difficulty"`
	Start      Coord  `yaml:"start"`
	End        Coord  `yaml:"end"`
}

type Layout struct {
	Base   Coord   `yaml:"base"`
	Lifts  []Lift  `yaml:"lifts"`
	Trails []Trail `yaml:"trails"`
}

func Load(path string) (Layout, error) {
	var l Layout
	raw, err := os.ReadFile(path)
	if err != nil {
		return l, err
	}
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return l, fmt.Errorf("layout.yaml: %w", err)
	}
	return l, nil
}

// Validate checks the layout against the terrain grid: every endpoint in
// bounds, structure ids unique, difficulties known, lifts ascending and
// trails descending.
func (l *Layout) Validate(grid *terrain.Grid) error {
	if !grid.InBounds(l.Base.X, l.Base.Z) {
		return fmt.Errorf("base lodge out of bounds at (%v, %v)", l.Base.X, l.Base.Z)
	}
	seen := map[string]bool{}
	claim := func(id string) error {
		if id == "" {
			return fmt.Errorf("empty structure id")
		}
		if seen[id] {
			return fmt.Errorf("duplicate structure id %q", id)
		}
		seen[id] = true
		return nil
	}

	for _, lf := range l.Lifts {
		if err := claim(lf.ID); err != nil {
			return err
		}
		for _, c := range []Coord{lf.Bottom, lf.Top} {
			if !grid.InBounds(c.X, c.Z) {
				return fmt.Errorf("lift %s endpoint out of bounds at (%v, %v)", lf.ID, c.X, c.Z)
			}
		}
		if grid.HeightAt(lf.Top.X, lf.Top.Z) <= grid.HeightAt(lf.Bottom.X, lf.Bottom.Z) {
			return fmt.Errorf("lift %s does not ascend", lf.ID)
		}
	}
	for _, tr := range l.Trails {
		if err := claim(tr.ID); err != nil {
			return err
		}
		if _, err := routing.ParseDifficulty(tr.Difficulty); err != nil {
			return fmt.Errorf("trail %s: %w", tr.ID, err)
		}
		for _, c := range []Coord{tr.Start, tr.End} {
			if !grid.InBounds(c.X, c.Z) {
				return fmt.Errorf("trail %s endpoint out of bounds at (%v, %v)", tr.ID, c.X, c.Z)
			}
		}
		if grid.HeightAt(tr.Start.X, tr.Start.Z) <= grid.HeightAt(tr.End.X, tr.End.Z) {
			return fmt.Errorf("trail %s does not descend", tr.ID)
		}
	}
	return nil
}
