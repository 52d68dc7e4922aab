package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"snowline.sim/internal/persistence/indexdb"
	persistlog "snowline.sim/internal/persistence/log"
	"snowline.sim/internal/sim/layout"
	"snowline.sim/internal/sim/resort"
	"snowline.sim/internal/sim/routing"
	"snowline.sim/internal/sim/terrain"
	"snowline.sim/internal/sim/tuning"
	"snowline.sim/internal/sim/world"
	"snowline.sim/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "resort_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed")
		tickRate   = flag.Int("tick_rate", 5, "simulation tick rate (hz)")
		boundary   = flag.Float64("boundary", 512, "terrain half-extent in world units")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		layoutPath = flag.String("layout", "", "path to layout.yaml (default: <configs>/layout.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite run index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

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
		logger.Fatalf("load tuning: %v", err)
	}
	lay, err := layout.Load(lp)
	if err != nil {
		logger.Fatalf("load layout: %v", err)
	}

	runDir := filepath.Join(*dataDir, "runs", *worldID)
	_ = os.MkdirAll(runDir, 0o755)

	grid := terrain.NewGrid(*seed, *boundary)
	w, err := world.New(world.WorldConfig{
		ID:         *worldID,
		TickRateHz: *tickRate,
		Seed:       *seed,
		Boundary:   *boundary,
	}, tune, grid)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	if err := w.FromLayout(&lay); err != nil {
		logger.Fatalf("layout: %v", err)
	}

	// Optional run index (does not affect sim determinism).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(runDir, "index.db"))
		if err != nil {
			logger.Fatalf("open run index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertRunMeta(*worldID, *seed, tune); err != nil {
			logger.Printf("run index: upsert meta: %v", err)
		}
		w.SetRunIndex(idx)
	}

	tickLog := persistlog.NewTickLogger(runDir)
	sessionLog := persistlog.NewSessionLogger(runDir)
	defer tickLog.Close()
	defer sessionLog.Close()
	w.SetTickLogger(fanoutTickLogger{ticks: tickLog, sessions: sessionLog})

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
		cancel()
	}()
	defer w.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP snowline_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE snowline_world_tick gauge\n")
		fmt.Fprintf(rw, "snowline_world_tick{world=%q} %d\n", *worldID, w.Tick())
	})

	if envBool("SL_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		// Local-only admin endpoints (structure ops, tuning reload).
		registerAdmin(mux, w, tp, *worldID, logger)
	} else {
		logger.Printf("admin endpoints disabled (SL_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("SL_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func registerAdmin(mux *http.ServeMux, w *world.World, tuningPath, worldID string, logger *log.Logger) {
	type coord struct {
		X float64 `json:"x"`
		Z float64 `json:"z"`
	}
	writeResult := func(rw http.ResponseWriter, err error) {
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true})
	}
	guard := func(rw http.ResponseWriter, r *http.Request) bool {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return false
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return false
		}
		return true
	}

	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"world_id": worldID,
			"tick":     w.Tick(),
		})
	})

	mux.HandleFunc("/admin/v1/lift", func(rw http.ResponseWriter, r *http.Request) {
		if !guard(rw, r) {
			return
		}
		var req struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Bottom coord  `json:"bottom"`
			Top    coord  `json:"top"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeResult(rw, fmt.Errorf("bad request: %w", err))
			return
		}
		writeResult(rw, w.BuildLift(world.LiftBuild{
			ID:     req.ID,
			Name:   req.Name,
			Bottom: resort.Vec3{X: req.Bottom.X, Z: req.Bottom.Z},
			Top:    resort.Vec3{X: req.Top.X, Z: req.Top.Z},
		}))
	})

	mux.HandleFunc("/admin/v1/trail", func(rw http.ResponseWriter, r *http.Request) {
		if !guard(rw, r) {
			return
		}
		var req struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			Difficulty string `json:"difficulty"`
			Start      coord  `json:"start"`
			End        coord  `json:"end"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeResult(rw, fmt.Errorf("bad request: %w", err))
			return
		}
		diff, err := routing.ParseDifficulty(req.Difficulty)
		if err != nil {
			writeResult(rw, err)
			return
		}
		writeResult(rw, w.BuildTrail(world.TrailBuild{
			ID:         req.ID,
			Name:       req.Name,
			Difficulty: diff,
			Start:      resort.Vec3{X: req.Start.X, Z: req.Start.Z},
			End:        resort.Vec3{X: req.End.X, Z: req.End.Z},
		}))
	})

	mux.HandleFunc("/admin/v1/remove", func(rw http.ResponseWriter, r *http.Request) {
		if !guard(rw, r) {
			return
		}
		var req struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeResult(rw, fmt.Errorf("bad request: %w", err))
			return
		}
		writeResult(rw, w.RemoveStructure(req.ID))
	})

	// Re-reads tuning.yaml and applies it at the next tick boundary. Invalid
	// snapshots are rejected and the running one stays live.
	mux.HandleFunc("/admin/v1/tuning/reload", func(rw http.ResponseWriter, r *http.Request) {
		if !guard(rw, r) {
			return
		}
		tune, err := tuning.Load(tuningPath)
		if err != nil {
			writeResult(rw, err)
			return
		}
		if err := w.ApplyTuning(tune); err != nil {
			writeResult(rw, err)
			return
		}
		logger.Printf("tuning reloaded from %s", tuningPath)
		writeResult(rw, nil)
	})
}

// fanoutTickLogger feeds the tick stream to the JSONL writer and splits the
// tick's session events onto their own stream.
type fanoutTickLogger struct {
	ticks    *persistlog.TickLogger
	sessions *persistlog.SessionLogger
}

func (f fanoutTickLogger) WriteTick(entry world.TickLogEntry) error {
	if f.ticks != nil {
		_ = f.ticks.WriteTick(entry)
	}
	if f.sessions != nil {
		for _, ev := range entry.Spawns {
			_ = f.sessions.WriteSession(ev)
		}
		for _, ev := range entry.Despawns {
			_ = f.sessions.WriteSession(ev)
		}
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func envBool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
