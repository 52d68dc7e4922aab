package world

// WorldConfig carries the parameters fixed for the lifetime of a world.
// Everything tunable at runtime lives in tuning.Tuning instead.
type WorldConfig struct {
	ID         string
	TickRateHz int
	Seed       int64
	// Boundary is the half-extent of the terrain grid in world units.
	Boundary float64
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "resort_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 5
	}
	if c.Boundary <= 0 {
		c.Boundary = 512
	}
}
