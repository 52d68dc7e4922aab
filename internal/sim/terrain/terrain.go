// Package terrain provides the deterministic height-field grid the resort is
// laid out on. The engine consumes it for layout validation and trail drop
// computation; it never mutates.
package terrain

import "math"

// Grid is a seeded, boundary-limited height field. Heights derive from
// seed+salt avalanche hashing over a coarse lattice with bilinear
// interpolation, so the same seed always yields the same mountain.
type Grid struct {
	seed     int64
	boundary float64
}

const (
	// Valley-to-peak ramp: the base lodge sits near the origin and height
	// grows with distance from it.
	rampPerUnit = 0.22

	coarseCell = 96.0
	coarseAmp  = 18.0
	fineCell   = 24.0
	fineAmp    = 5.0
)

func NewGrid(seed int64, boundary float64) *Grid {
	if boundary <= 0 {
		boundary = 512
	}
	return &Grid{seed: seed, boundary: boundary}
}

func (g *Grid) Seed() int64 { return g.seed }

// InBounds reports whether a coordinate lies on the grid.
func (g *Grid) InBounds(x, z float64) bool {
	return math.Abs(x) <= g.boundary && math.Abs(z) <= g.boundary
}

// HeightAt returns the terrain height at a coordinate. Defined everywhere;
// callers gate on InBounds separately.
func (g *Grid) HeightAt(x, z float64) float64 {
	ramp := rampPerUnit * math.Hypot(x, z)
	return ramp + g.noise(x, z, coarseCell, coarseAmp, 1) + g.noise(x, z, fineCell, fineAmp, 2)
}

// SlopeBetween returns vertical drop per unit of horizontal distance from a
// to b (positive when descending).
func (g *Grid) SlopeBetween(ax, az, bx, bz float64) float64 {
	run := math.Hypot(bx-ax, bz-az)
	if run == 0 {
		return 0
	}
	return (g.HeightAt(ax, az) - g.HeightAt(bx, bz)) / run
}

// noise is one octave of value noise: hashed lattice corners, bilinear
// interpolation between them.
func (g *Grid) noise(x, z, cell, amp float64, salt int64) float64 {
	fx := math.Floor(x / cell)
	fz := math.Floor(z / cell)
	tx := x/cell - fx
	tz := z/cell - fz
	cx := int(fx)
	cz := int(fz)

	h00 := g.corner(cx, cz, salt)
	h10 := g.corner(cx+1, cz, salt)
	h01 := g.corner(cx, cz+1, salt)
	h11 := g.corner(cx+1, cz+1, salt)

	top := h00 + (h10-h00)*tx
	bot := h01 + (h11-h01)*tx
	return (top + (bot-top)*tz) * amp
}

// corner hashes one lattice point into [0,1).
func (g *Grid) corner(cx, cz int, salt int64) float64 {
	return float64(hash2(g.seed+salt, cx, cz)%100000) / 100000
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9))
}
