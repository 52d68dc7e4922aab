package resort

import "math"

// PointType identifies what a snap point attaches to the routing graph.
type PointType string

const (
	BaseSpawn  PointType = "BASE_SPAWN"
	TrailStart PointType = "TRAIL_START"
	TrailEnd   PointType = "TRAIL_END"
	LiftBottom PointType = "LIFT_BOTTOM"
	LiftTop    PointType = "LIFT_TOP"
)

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

func (a Vec3) Dist(b Vec3) float64 {
	d := a.Sub(b)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// DistXZ ignores elevation; snap radii are horizontal.
func (a Vec3) DistXZ(b Vec3) float64 {
	dx := a.X - b.X
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dz*dz)
}

func Lerp(a, b Vec3, t float64) Vec3 {
	return Vec3{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

// SnapPoint is a named attachment coordinate exposed by a lift, trail or the
// base lodge. Immutable once registered; removed only together with its
// owning structure.
type SnapPoint struct {
	ID          string
	Type        PointType
	Pos         Vec3
	StructureID string
	Name        string
}
