// Command replay re-runs a recorded simulation from its seed and configs and
// verifies that every re-simulated tick digest matches the recorded one. With
// -index it also cross-checks digests against the sqlite run index.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"snowline.sim/internal/persistence/indexdb"
	"snowline.sim/internal/sim/layout"
	"snowline.sim/internal/sim/terrain"
	"snowline.sim/internal/sim/tuning"
	"snowline.sim/internal/sim/world"
)

func main() {
	var (
		runDir     = flag.String("run", "", "run directory containing ticks/*.jsonl.zst")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		layoutPath = flag.String("layout", "", "path to layout.yaml (default: <configs>/layout.yaml)")
		worldID    = flag.String("world", "resort_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed the run was recorded with")
		boundary   = flag.Float64("boundary", 512, "terrain half-extent in world units")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
		useIndex   = flag.Bool("index", false, "also verify digests against <run>/index.db")
	)
	flag.Parse()

	if *runDir == "" {
		fmt.Fprintln(os.Stderr, "missing -run")
		os.Exit(2)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	lp := strings.TrimSpace(*layoutPath)
	if lp == "" {
		lp = filepath.Join(*configDir, "layout.yaml")
	}

	tune, err := tuning.Load(tp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	lay, err := layout.Load(lp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load layout:", err)
		os.Exit(1)
	}

	w, err := world.New(world.WorldConfig{
		ID:       *worldID,
		Seed:     *seed,
		Boundary: *boundary,
	}, tune, terrain.NewGrid(*seed, *boundary))
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}
	if err := w.FromLayout(&lay); err != nil {
		fmt.Fprintln(os.Stderr, "layout:", err)
		os.Exit(1)
	}

	var q *indexdb.Query
	if *useIndex {
		q, err = indexdb.OpenQuery(filepath.Join(*runDir, "index.db"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "open index:", err)
			os.Exit(1)
		}
		defer q.Close()
		if meta, err := q.Meta(); err == nil {
			if got := meta["seed"]; got != "" && got != fmt.Sprintf("%d", *seed) {
				fmt.Fprintf(os.Stderr, "seed mismatch: index recorded %s, flag is %d\n", got, *seed)
				os.Exit(1)
			}
		}
	}

	files, err := listTickFiles(filepath.Join(*runDir, "ticks"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list ticks:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no tick logs found in", filepath.Join(*runDir, "ticks"))
		os.Exit(1)
	}

	var checked uint64
	for _, path := range files {
		done, err := replayFile(w, q, path, *toTick, &checked)
		if err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
		if done {
			break
		}
	}
	fmt.Printf("replay ok: checked=%d ticks seed=%d\n", checked, *seed)
}

func listTickFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "ticks-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func replayFile(w *world.World, q *indexdb.Query, path string, toTick uint64, checked *uint64) (done bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return false, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		var entry world.TickLogEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return false, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if toTick != 0 && entry.Tick > toTick {
			return true, nil
		}
		if entry.Tick != w.Tick() {
			return false, fmt.Errorf("tick mismatch: want=%d got=%d (file=%s)", w.Tick(), entry.Tick, filepath.Base(path))
		}

		tick, digest, err := w.StepOnce()
		if err != nil {
			return false, fmt.Errorf("step tick %d: %w", entry.Tick, err)
		}
		if tick != entry.Tick {
			return false, fmt.Errorf("internal tick mismatch: stepped=%d entry=%d", tick, entry.Tick)
		}

		*checked++
		if digest != entry.Digest {
			return false, fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, digest, entry.Digest)
		}
		if q != nil {
			want, err := q.TickDigest(tick)
			if err != nil {
				// The index drops entries under load; the JSONL log is the
				// source of truth, so a gap is not a failure.
				continue
			}
			if want != digest {
				return false, fmt.Errorf("index digest mismatch at tick %d: got=%s want=%s", tick, digest, want)
			}
		}
	}
	return false, sc.Err()
}
