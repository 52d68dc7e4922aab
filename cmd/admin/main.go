// Command admin inspects recorded runs through the sqlite run index:
//
//	admin runs            list run directories under the data dir
//	admin meta            print a run's identity and tuning digest
//	admin ticks           list indexed ticks with digests
//	admin sessions        list skier visits
//	admin decisions       list one skier's routing decisions
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"snowline.sim/internal/persistence/indexdb"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "meta":
			metaCmd(os.Args[2:])
			return
		case "ticks":
			ticksCmd(os.Args[2:])
			return
		case "sessions":
			sessionsCmd(os.Args[2:])
			return
		case "decisions":
			decisionsCmd(os.Args[2:])
			return
		case "runs":
			runsCmd(os.Args[2:])
			return
		}
	}
	runsCmd(os.Args[1:])
}

func indexFlags(fs *flag.FlagSet) (dataDir, worldID, dbPath *string) {
	dataDir = fs.String("data", "./data", "runtime data directory")
	worldID = fs.String("world", "resort_1", "world id")
	dbPath = fs.String("db", "", "index db path (default: <data>/runs/<world>/index.db)")
	return
}

func openQuery(dataDir, worldID, dbPath string) *indexdb.Query {
	path := dbPath
	if path == "" {
		path = filepath.Join(dataDir, "runs", worldID, "index.db")
	}
	q, err := indexdb.OpenQuery(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}
	return q
}

func runsCmd(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "runs"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

func metaCmd(args []string) {
	fs := flag.NewFlagSet("meta", flag.ExitOnError)
	dataDir, worldID, dbPath := indexFlags(fs)
	_ = fs.Parse(args)

	q := openQuery(*dataDir, *worldID, *dbPath)
	defer q.Close()

	meta, err := q.Meta()
	if err != nil {
		fmt.Fprintln(os.Stderr, "meta:", err)
		os.Exit(1)
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := meta[k]
		if len(v) > 120 {
			v = v[:117] + "..."
		}
		fmt.Printf("%-16s %s\n", k, v)
	}
}

func ticksCmd(args []string) {
	fs := flag.NewFlagSet("ticks", flag.ExitOnError)
	dataDir, worldID, dbPath := indexFlags(fs)
	from := fs.Uint64("from", 0, "first tick (inclusive)")
	limit := fs.Int("limit", 50, "max rows")
	_ = fs.Parse(args)

	q := openQuery(*dataDir, *worldID, *dbPath)
	defer q.Close()

	rows, err := q.Ticks(*from, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ticks:", err)
		os.Exit(1)
	}
	fmt.Printf("%-10s %-6s %-6s %-8s %-10s %s\n", "TICK", "GEN", "TUNE", "SKIERS", "DECISIONS", "DIGEST")
	for _, r := range rows {
		fmt.Printf("%-10d %-6d %-6d %-8d %-10d %s\n",
			r.Tick, r.GraphGeneration, r.TuningVersion, r.Skiers, r.Decisions, r.Digest)
	}
}

func sessionsCmd(args []string) {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	dataDir, worldID, dbPath := indexFlags(fs)
	limit := fs.Int("limit", 50, "max rows")
	_ = fs.Parse(args)

	q := openQuery(*dataDir, *worldID, *dbPath)
	defer q.Close()

	rows, err := q.Sessions(*limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sessions:", err)
		os.Exit(1)
	}
	fmt.Printf("%-10s %-14s %-12s %-10s %-10s %s\n", "AGENT", "NAME", "SKILL", "SPAWN", "DESPAWN", "RUNS")
	for _, r := range rows {
		despawn, runs := "-", "-"
		if r.DespawnTick != nil {
			despawn = fmt.Sprintf("%d", *r.DespawnTick)
		}
		if r.RunsDone != nil {
			runs = fmt.Sprintf("%d", *r.RunsDone)
		}
		fmt.Printf("%-10s %-14s %-12s %-10d %-10s %s\n", r.AgentID, r.Name, r.Skill, r.SpawnTick, despawn, runs)
	}
}

func decisionsCmd(args []string) {
	fs := flag.NewFlagSet("decisions", flag.ExitOnError)
	dataDir, worldID, dbPath := indexFlags(fs)
	agent := fs.String("agent", "", "agent id (required)")
	limit := fs.Int("limit", 50, "max rows")
	raw := fs.Bool("raw", false, "print full decision json instead of the summary row")
	_ = fs.Parse(args)

	if *agent == "" {
		fmt.Fprintln(os.Stderr, "missing -agent")
		os.Exit(2)
	}

	q := openQuery(*dataDir, *worldID, *dbPath)
	defer q.Close()

	rows, err := q.AgentDecisions(*agent, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "decisions:", err)
		os.Exit(1)
	}
	if *raw {
		for _, r := range rows {
			fmt.Println(r.RawJSON)
		}
		return
	}
	fmt.Printf("%-10s %-12s %-20s %-8s %s\n", "TICK", "POINT", "OUTCOME", "JERRY", "CHOSEN")
	for _, r := range rows {
		fmt.Printf("%-10d %-12s %-20s %-8v %s\n", r.Tick, r.PointID, r.Outcome, r.Jerry, r.ChosenID)
	}
}
