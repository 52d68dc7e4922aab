package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning is an immutable snapshot of every scoring/propagation parameter.
// The world applies a snapshot at a tick boundary and stamps it with a
// monotonically increasing Version; caches and goals keyed by an older
// version are discarded.
type Tuning struct {
	// Version is assigned by the world when the snapshot is applied.
	// It is not read from yaml.
	Version uint64 `yaml:"-"`

	// Graph construction and candidate search radii.
	NetworkSnapRadius      float64 `yaml:"network_snap_radius"`
	TrailStartSearchRadius float64 `yaml:"trail_start_search_radius"`
	LiftBottomSearchRadius float64 `yaml:"lift_bottom_search_radius"`

	// Downstream value propagation.
	DownstreamDepth      int     `yaml:"downstream_depth"`
	DepthDiscount1Hop    float64 `yaml:"depth_discount_1hop"`
	DepthDiscount2Hop    float64 `yaml:"depth_discount_2hop"`
	DepthDiscount3Hop    float64 `yaml:"depth_discount_3hop"`
	DepthDiscountFarther float64 `yaml:"depth_discount_farther"`

	// Scoring.
	DirectPreferenceWeight    float64 `yaml:"direct_preference_weight"`
	DownstreamWeight          float64 `yaml:"downstream_weight"`
	DownstreamBonusMultiplier float64 `yaml:"downstream_bonus_multiplier"`
	MinimumTrailScore         float64 `yaml:"minimum_trail_score"`
	DeadEndScore              float64 `yaml:"dead_end_score"`

	// Transit willingness: floor for trails at or below skill so easy runs
	// stay usable as connectors.
	TransitFloorBase     float64 `yaml:"transit_floor_base"`
	TransitFloorGapBonus float64 `yaml:"transit_floor_gap_bonus"`
	TransitFloorStretch  float64 `yaml:"transit_floor_stretch"`

	// Randomness.
	JerryChance              float64 `yaml:"jerry_chance"`
	LiftVarietyNewBonus      float64 `yaml:"lift_variety_new_bonus"`
	LiftVarietyRepeatPenalty float64 `yaml:"lift_variety_repeat_penalty"`

	// Goal system.
	GoalTrailBonus           float64 `yaml:"goal_trail_bonus"`
	PreferredDifficultyBoost float64 `yaml:"preferred_difficulty_boost"`
	ReplanAfterEveryRun      bool    `yaml:"replan_after_every_run"`
	ReplanAtLiftTop          bool    `yaml:"replan_at_lift_top"`

	// Junction switching.
	JunctionDetectionRadius      float64 `yaml:"junction_detection_radius"`
	JunctionMajorThreshold       float64 `yaml:"junction_major_threshold"`
	JunctionMajorSwitchChance    float64 `yaml:"junction_major_switch_chance"`
	JunctionModerateThreshold    float64 `yaml:"junction_moderate_threshold"`
	JunctionModerateSwitchChance float64 `yaml:"junction_moderate_switch_chance"`
	JunctionExplorationMinValue  float64 `yaml:"junction_exploration_min_value"`
	JunctionExplorationChance    float64 `yaml:"junction_exploration_chance"`

	// Population.
	MaxSkiers       int                `yaml:"max_skiers"`
	SpawnEveryTicks int                `yaml:"spawn_every_ticks"`
	RunsPerSkierMin int                `yaml:"runs_per_skier_min"`
	RunsPerSkierMax int                `yaml:"runs_per_skier_max"`
	PopulationMix   map[string]float64 `yaml:"population_mix"`

	// Motion interpolation (units per tick along a segment).
	LiftSpeed  float64 `yaml:"lift_speed"`
	TrailSpeed float64 `yaml:"trail_speed"`

	// Optional per-skill difficulty preference override; rows are independent
	// weights in [0,1], not a distribution. Keys are skill / difficulty names.
	Preferences map[string]map[string]float64 `yaml:"preferences"`
}

func Defaults() Tuning {
	return Tuning{
		NetworkSnapRadius:      2,
		TrailStartSearchRadius: 12,
		LiftBottomSearchRadius: 12,

		DownstreamDepth:      3,
		DepthDiscount1Hop:    1.0,
		DepthDiscount2Hop:    0.75,
		DepthDiscount3Hop:    0.5,
		DepthDiscountFarther: 0.3,

		DirectPreferenceWeight:    0.6,
		DownstreamWeight:          0.4,
		DownstreamBonusMultiplier: 1.25,
		MinimumTrailScore:         0.05,
		DeadEndScore:              0.02,

		TransitFloorBase:     0.15,
		TransitFloorGapBonus: 0.05,
		TransitFloorStretch:  0.1,

		JerryChance:              0.05,
		LiftVarietyNewBonus:      1.3,
		LiftVarietyRepeatPenalty: 0.85,

		GoalTrailBonus:           1.5,
		PreferredDifficultyBoost: 1.4,
		ReplanAfterEveryRun:      true,
		ReplanAtLiftTop:          true,

		JunctionDetectionRadius:      6,
		JunctionMajorThreshold:       0.35,
		JunctionMajorSwitchChance:    0.8,
		JunctionModerateThreshold:    0.15,
		JunctionModerateSwitchChance: 0.4,
		JunctionExplorationMinValue:  0.5,
		JunctionExplorationChance:    0.1,

		MaxSkiers:       120,
		SpawnEveryTicks: 4,
		RunsPerSkierMin: 3,
		RunsPerSkierMax: 9,
		PopulationMix: map[string]float64{
			"BEGINNER":     0.3,
			"INTERMEDIATE": 0.4,
			"ADVANCED":     0.2,
			"EXPERT":       0.1,
		},

		LiftSpeed:  2.5,
		TrailSpeed: 4,
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Validate rejects snapshots that would break scoring invariants. A zero or
// negative minimum trail score allows all candidate scores to collapse to
// zero, which the engine treats as fatal.
func (t *Tuning) Validate() error {
	if t.NetworkSnapRadius <= 0 {
		return fmt.Errorf("network_snap_radius must be > 0 (got %v)", t.NetworkSnapRadius)
	}
	if t.DownstreamDepth < 1 {
		return fmt.Errorf("downstream_depth must be >= 1 (got %d)", t.DownstreamDepth)
	}
	for name, v := range map[string]float64{
		"depth_discount_1hop":    t.DepthDiscount1Hop,
		"depth_discount_2hop":    t.DepthDiscount2Hop,
		"depth_discount_3hop":    t.DepthDiscount3Hop,
		"depth_discount_farther": t.DepthDiscountFarther,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1] (got %v)", name, v)
		}
	}
	if t.MinimumTrailScore <= 0 {
		return fmt.Errorf("minimum_trail_score must be > 0 (got %v)", t.MinimumTrailScore)
	}
	if t.DeadEndScore <= 0 {
		return fmt.Errorf("dead_end_score must be > 0 (got %v)", t.DeadEndScore)
	}
	for name, v := range map[string]float64{
		"jerry_chance":                    t.JerryChance,
		"junction_major_switch_chance":    t.JunctionMajorSwitchChance,
		"junction_moderate_switch_chance": t.JunctionModerateSwitchChance,
		"junction_exploration_chance":     t.JunctionExplorationChance,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1] (got %v)", name, v)
		}
	}
	if t.LiftSpeed <= 0 || t.TrailSpeed <= 0 {
		return fmt.Errorf("lift_speed and trail_speed must be > 0")
	}
	if t.RunsPerSkierMin < 1 || t.RunsPerSkierMax < t.RunsPerSkierMin {
		return fmt.Errorf("runs_per_skier range invalid (%d..%d)", t.RunsPerSkierMin, t.RunsPerSkierMax)
	}
	var mixTotal float64
	for _, v := range t.PopulationMix {
		if v < 0 {
			return fmt.Errorf("population_mix weights must be >= 0")
		}
		mixTotal += v
	}
	if mixTotal <= 0 {
		return fmt.Errorf("population_mix must have positive total weight")
	}
	return nil
}

// Discount returns the per-hop discount from the schedule. Hops count from 1.
func (t *Tuning) Discount(hop int) float64 {
	switch {
	case hop <= 1:
		return t.DepthDiscount1Hop
	case hop == 2:
		return t.DepthDiscount2Hop
	case hop == 3:
		return t.DepthDiscount3Hop
	default:
		return t.DepthDiscountFarther
	}
}
