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
	"strconv"
	"strings"
	"syscall"
	"time"

	"fjordcraft.ai/internal/observerproto"
	"fjordcraft.ai/internal/persistence/kvstore"
	persistlog "fjordcraft.ai/internal/persistence/log"
	"fjordcraft.ai/internal/persistence/save"
	"fjordcraft.ai/internal/persistence/snapshot"
	"fjordcraft.ai/internal/sim/tuning"
	"fjordcraft.ai/internal/sim/world"
	"fjordcraft.ai/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		seed       = flag.Float64("seed", -1, "map seed for a fresh world (negative picks one at random)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (empty uses built-in profiles)")
		profile    = flag.String("profile", "", "tuning profile name (default: the file's profile)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		saveEvery  = flag.Duration("save_every", 30*time.Second, "autosave interval in simulation time (0 disables)")
		disableDB  = flag.Bool("disable_db", false, "keep saves in memory and skip the archive index")
		layers     = flag.Bool("render_layers", true, "pre-render chunk layers for frame rendering")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tf, err := loadTuning(*tuningPath)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	prof, err := tf.Select(*profile)
	if err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("mkdir world dir: %v", err)
	}

	var kv kvstore.Store = kvstore.NewMemoryStore()
	var db *kvstore.SQLiteStore
	if !*disableDB {
		db, err = kvstore.OpenSQLite(filepath.Join(worldDir, "world.sqlite"))
		if err != nil {
			logger.Fatalf("open sqlite: %v", err)
		}
		defer db.Close()
		kv = db
	}

	tickLogger := persistlog.NewTickLogger(worldDir)
	defer tickLogger.Close()
	eventLogger := persistlog.NewEventLogger(worldDir)
	defer eventLogger.Close()

	cfg := world.Config{ID: *worldID, Seed: *seed, Tuning: prof}
	if cfg.Seed < 0 {
		cfg.Seed = world.RandomSeed()
	}
	w, err := world.New(cfg, world.Options{
		Store:        kv,
		Logger:       logger,
		TickLogger:   tickLogger,
		EventLogger:  multiEventLogger{eventLogger, consoleEvents{logger}},
		RenderLayers: *layers,
		SaveEvery:    *saveEvery,
	})
	if err != nil {
		logger.Fatalf("init world: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	loaded, err := w.Load(ctx)
	if err != nil {
		logger.Fatalf("load save: %v", err)
	}
	if loaded {
		logger.Printf("loaded save: world=%s seed=%v sim_time=%s", *worldID, w.Seed(), w.SimTime())
	} else {
		logger.Printf("fresh world: world=%s seed=%v profile=%q", *worldID, w.Seed(), *profile)
	}
	if db != nil {
		if row, err := db.LatestArchive(ctx); err == nil {
			logger.Printf("latest archive: %s (buildings=%d scouts=%d explored=%d)", row.Path, row.Buildings, row.Scouts, row.Explored)
		}
	}

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, *worldID, w.Metrics())
	})

	obsSrv := observer.NewServer(w, logger)
	mux.HandleFunc("/v1/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/observer/frame.png", obsSrv.FrameHandler())
	mux.HandleFunc("/v1/observer/ws", obsSrv.WSHandler())

	if envBool("FJ_ENABLE_ADMIN_HTTP", true) {
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				WorldID string        `json:"world_id"`
				Metrics world.Metrics `json:"metrics"`
			}{
				WorldID: *worldID,
				Metrics: w.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/save", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			res, err := w.Submit(ctx2, observerproto.CommandMsg{Type: "COMMAND", ProtocolVersion: observerproto.Version, Command: "save"})
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			if !res.OK {
				rw.WriteHeader(http.StatusInternalServerError)
			}
			_ = json.NewEncoder(rw).Encode(res)
		})
	} else {
		logger.Printf("admin endpoints disabled (FJ_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("FJ_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (FJ_ENABLE_PPROF_HTTP=false)")
	}

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
		logger.Printf("ListenAndServe: %v", err)
		cancel()
	}

	// The loop owns the world; persist only after it has returned.
	<-runDone
	finalSave(w, db, worldDir, logger)
}

func finalSave(w *world.World, db *kvstore.SQLiteStore, worldDir string, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rec, err := w.Save(ctx)
	if err != nil {
		logger.Printf("final save: %v", err)
		return
	}
	path := snapshot.ArchivePath(filepath.Join(worldDir, "snapshots"), rec.SaveTime)
	if err := snapshot.WriteArchive(path, w.ID(), rec); err != nil {
		logger.Printf("archive write: %v", err)
		return
	}
	if db != nil {
		if err := db.RecordArchive(ctx, archiveRow(path, rec)); err != nil {
			logger.Printf("archive index: %v", err)
		}
	}
	logger.Printf("saved %s", path)
}

func archiveRow(path string, rec save.Record) kvstore.ArchiveRow {
	return kvstore.ArchiveRow{
		SaveTime:  rec.SaveTime,
		Path:      path,
		Seed:      rec.Seed,
		Buildings: len(rec.Buildings),
		Scouts:    len(rec.Scouts),
		Explored:  len(rec.ExploredAreas),
		FogChunks: len(rec.FogOfWarData),
	}
}

func loadTuning(path string) (tuning.File, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}
	return tuning.Load(path)
}

func writeMetrics(rw http.ResponseWriter, worldID string, m world.Metrics) {
	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP fjordcraft_world_tick Current world tick.\n")
	fmt.Fprintf(rw, "# TYPE fjordcraft_world_tick gauge\n")
	fmt.Fprintf(rw, "fjordcraft_world_tick{world=%q} %d\n", worldID, m.Tick)

	fmt.Fprintf(rw, "# HELP fjordcraft_world_sim_time_ms Simulation clock in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE fjordcraft_world_sim_time_ms gauge\n")
	fmt.Fprintf(rw, "fjordcraft_world_sim_time_ms{world=%q} %d\n", worldID, m.SimTimeMs)

	fmt.Fprintf(rw, "# HELP fjordcraft_world_loaded_chunks Loaded chunk count.\n")
	fmt.Fprintf(rw, "# TYPE fjordcraft_world_loaded_chunks gauge\n")
	fmt.Fprintf(rw, "fjordcraft_world_loaded_chunks{world=%q} %d\n", worldID, m.LoadedChunks)

	fmt.Fprintf(rw, "# HELP fjordcraft_fog_active_reveals Fog reveals still animating.\n")
	fmt.Fprintf(rw, "# TYPE fjordcraft_fog_active_reveals gauge\n")
	fmt.Fprintf(rw, "fjordcraft_fog_active_reveals{world=%q} %d\n", worldID, m.ActiveReveals)

	fmt.Fprintf(rw, "# HELP fjordcraft_fog_explored_areas Explored area keys.\n")
	fmt.Fprintf(rw, "# TYPE fjordcraft_fog_explored_areas gauge\n")
	fmt.Fprintf(rw, "fjordcraft_fog_explored_areas{world=%q} %d\n", worldID, m.Explored)

	fmt.Fprintf(rw, "# HELP fjordcraft_world_entities Scouts and buildings in the world.\n")
	fmt.Fprintf(rw, "# TYPE fjordcraft_world_entities gauge\n")
	fmt.Fprintf(rw, "fjordcraft_world_entities{world=%q,kind=%q} %d\n", worldID, "scout", m.Scouts)
	fmt.Fprintf(rw, "fjordcraft_world_entities{world=%q,kind=%q} %d\n", worldID, "building", m.Buildings)

	fmt.Fprintf(rw, "# HELP fjordcraft_world_observers Connected observer sessions.\n")
	fmt.Fprintf(rw, "# TYPE fjordcraft_world_observers gauge\n")
	fmt.Fprintf(rw, "fjordcraft_world_observers{world=%q} %d\n", worldID, m.Observers)

	fmt.Fprintf(rw, "# HELP fjordcraft_world_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE fjordcraft_world_step_ms gauge\n")
	fmt.Fprintf(rw, "fjordcraft_world_step_ms{world=%q} %.3f\n", worldID, m.StepMS)
}

type multiEventLogger []world.EventLogger

func (m multiEventLogger) WriteEvent(e world.Event) error {
	var first error
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.WriteEvent(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// consoleEvents echoes the events a player would notice.
type consoleEvents struct{ log *log.Logger }

func (c consoleEvents) WriteEvent(e world.Event) error {
	switch e.Type {
	case world.EventScoutArrived, world.EventBuildingPlaced, world.EventSaveDiscarded, world.EventReset:
		c.log.Printf("tick=%d %s %s", e.Tick, e.Type, e.Message)
	}
	return nil
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func isLoopbackRemote(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
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
