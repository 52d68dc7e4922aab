package resort

import (
	"errors"
	"sort"
	"sync"
)

var ErrDuplicateSnapPoint = errors.New("duplicate snap point id")

// Registry holds every snap point currently attached to the resort network.
// Mutations bump a change counter; the world loop compares it against the
// counter captured at the last graph rebuild to decide whether a rebuild is
// due.
type Registry struct {
	mu      sync.Mutex
	points  map[string]SnapPoint
	changes uint64
}

func NewRegistry() *Registry {
	return &Registry{points: map[string]SnapPoint{}}
}

func (r *Registry) Register(p SnapPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.points[p.ID]; ok {
		return ErrDuplicateSnapPoint
	}
	r.points[p.ID] = p
	r.changes++
	return nil
}

// Unregister removes a single point. Absent ids are a no-op and do not bump
// the change counter.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.points[id]; !ok {
		return
	}
	delete(r.points, id)
	r.changes++
}

// UnregisterStructure removes every point owned by the given structure and
// reports how many were removed.
func (r *Registry) UnregisterStructure(structureID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, p := range r.points {
		if p.StructureID == structureID {
			delete(r.points, id)
			n++
		}
	}
	if n > 0 {
		r.changes++
	}
	return n
}

func (r *Registry) Get(id string) (SnapPoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.points[id]
	return p, ok
}

// All returns the current point set sorted by id.
func (r *Registry) All() []SnapPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SnapPoint, 0, len(r.points))
	for _, p := range r.points {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.points)
}

func (r *Registry) ChangeCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changes
}
