package routing

// Stream is a small splittable random source. Every stochastic decision in
// the engine draws from a Stream keyed by (world seed, agent number, tick),
// so agent updates are order-independent and whole runs replay bit-exact.
type Stream struct {
	state uint64
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// NewStream derives an independent sub-stream for one agent-tick.
func NewStream(seed int64, agentNum, tick uint64) *Stream {
	v := uint64(seed) ^ agentNum*0x9e3779b97f4a7c15 ^ tick*0xbf58476d1ce4e5b9
	return &Stream{state: mix64(v)}
}

// NewLabeledStream derives a sub-stream for a world-level draw (spawning,
// layout shuffling) identified by a label instead of an agent.
func NewLabeledStream(seed int64, label string, tick uint64) *Stream {
	v := uint64(seed) ^ tick*0xbf58476d1ce4e5b9
	for _, r := range label {
		v = mix64(v ^ uint64(r))
	}
	return &Stream{state: mix64(v)}
}

func (r *Stream) next() uint64 {
	r.state += 0x9e3779b97f4a7c15
	return mix64(r.state)
}

// Float64 returns a uniform value in [0, 1).
func (r *Stream) Float64() float64 {
	return float64(r.next()>>11) / (1 << 53)
}

// Intn returns a uniform value in [0, n). n must be > 0.
func (r *Stream) Intn(n int) int {
	if n <= 0 {
		panic("routing: Intn with non-positive n")
	}
	return int(r.next() % uint64(n))
}

// IntBetween returns a uniform value in [lo, hi] inclusive.
func (r *Stream) IntBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}
