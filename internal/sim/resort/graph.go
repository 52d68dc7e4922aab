package resort

import (
	"sort"
	"sync"
)

// graphData is one immutable rebuild result. Readers always see a complete
// edge set: Rebuild assembles a fresh graphData and swaps the pointer under
// the write lock, so a rebuild in progress is never observable.
type graphData struct {
	generation  uint64
	points      map[string]SnapPoint
	adj         map[string][]string
	byStructure map[string][]string
}

// Graph is the undirected proximity graph over registered snap points.
// Edges connect pairs whose horizontal distance is within the snap radius
// supplied to the last Rebuild.
type Graph struct {
	mu  sync.RWMutex
	cur *graphData
}

func NewGraph() *Graph {
	return &Graph{cur: &graphData{
		points:      map[string]SnapPoint{},
		adj:         map[string][]string{},
		byStructure: map[string][]string{},
	}}
}

// Rebuild recomputes the whole edge set from scratch. O(n²) over the point
// set; node counts stay in the low hundreds so a spatial index is not worth
// its bookkeeping. The generation counter increments on every call, including
// rebuilds that produce an identical topology.
func (g *Graph) Rebuild(points []SnapPoint, radius float64) {
	next := &graphData{
		points:      make(map[string]SnapPoint, len(points)),
		adj:         make(map[string][]string, len(points)),
		byStructure: map[string][]string{},
	}
	for _, p := range points {
		next.points[p.ID] = p
		next.byStructure[p.StructureID] = append(next.byStructure[p.StructureID], p.ID)
	}
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			a, b := points[i], points[j]
			if a.Pos.DistXZ(b.Pos) <= radius {
				next.adj[a.ID] = append(next.adj[a.ID], b.ID)
				next.adj[b.ID] = append(next.adj[b.ID], a.ID)
			}
		}
	}
	for id := range next.adj {
		sort.Strings(next.adj[id])
	}
	for sid := range next.byStructure {
		sort.Strings(next.byStructure[sid])
	}

	g.mu.Lock()
	next.generation = g.cur.generation + 1
	g.cur = next
	g.mu.Unlock()
}

func (g *Graph) snapshot() *graphData {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cur
}

func (g *Graph) Generation() uint64 {
	return g.snapshot().generation
}

func (g *Graph) Point(id string) (SnapPoint, bool) {
	p, ok := g.snapshot().points[id]
	return p, ok
}

// Neighbors returns the adjacency list for a point, sorted by id. The result
// is shared with the graph and must not be mutated.
func (g *Graph) Neighbors(id string) []string {
	return g.snapshot().adj[id]
}

// NeighborsOfType filters the adjacency list for a point by point type.
func (g *Graph) NeighborsOfType(id string, t PointType) []SnapPoint {
	d := g.snapshot()
	var out []SnapPoint
	for _, nid := range d.adj[id] {
		if p, ok := d.points[nid]; ok && p.Type == t {
			out = append(out, p)
		}
	}
	return out
}

// NearestOfType returns every point of the given type within radius of pos,
// sorted by distance (ties broken by id so results are deterministic).
func (g *Graph) NearestOfType(pos Vec3, t PointType, radius float64) []SnapPoint {
	d := g.snapshot()
	var out []SnapPoint
	for _, p := range d.points {
		if p.Type == t && pos.DistXZ(p.Pos) <= radius {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di := pos.DistXZ(out[i].Pos)
		dj := pos.DistXZ(out[j].Pos)
		if di != dj {
			return di < dj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// OfStructure returns the ids of every point owned by a structure, sorted.
func (g *Graph) OfStructure(structureID string) []string {
	return g.snapshot().byStructure[structureID]
}

// Edges returns the undirected edge set as sorted [a b] pairs with a < b.
// Used by rebuild-idempotence checks and debug output.
func (g *Graph) Edges() [][2]string {
	d := g.snapshot()
	var out [][2]string
	for a, ns := range d.adj {
		for _, b := range ns {
			if a < b {
				out = append(out, [2]string{a, b})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

func (g *Graph) Len() int {
	return len(g.snapshot().points)
}
