package world

import (
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"fjordcraft.ai/internal/persistence/kvstore"
	"fjordcraft.ai/internal/render"
	"fjordcraft.ai/internal/sim/economy"
	"fjordcraft.ai/internal/sim/fog"
	"fjordcraft.ai/internal/sim/scouts"
	"fjordcraft.ai/internal/sim/terrain/gen"
	"fjordcraft.ai/internal/sim/terrain/store"
)

const (
	MinZoom = 0.3
	MaxZoom = 2.0
)

// Camera is the top-left world position of the view plus its zoom.
type Camera struct {
	X     float64
	Y     float64
	Scale float64
}

// World is a single-threaded game session: terrain, fog, scouts and the
// settlement. All state must be accessed only from the world loop goroutine,
// or from the caller's goroutine when stepping manually.
type World struct {
	cfg Config

	log         *log.Logger
	kv          kvstore.Store
	tickLogger  TickLogger
	eventLogger EventLogger
	now         func() time.Time
	seedSrc     func() float64
	saveEvery   time.Duration
	layers      bool

	seed       float64
	compositor render.Compositor
	chunks     *store.ChunkStore
	fog        *fog.System
	fleet      *scouts.Fleet
	town       *economy.Settlement
	camera     Camera

	clock    time.Duration
	tick     atomic.Uint64
	lastSave time.Duration
	metrics  atomic.Value

	notes  []Notification
	status string

	cmds     chan commandReq
	info     chan infoReq
	frames   chan frameReq
	stop     chan struct{}
	stopOnce atomic.Bool

	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string
	observers     map[string]*observerClient
}

// New builds a fresh world: chunks around the camera focus are generated and
// one scout is spawned at the focus with the initial reveal.
func New(cfg Config, opts Options) (*World, error) {
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("world %s: %w", cfg.ID, err)
	}
	w := &World{
		cfg:           cfg,
		log:           opts.Logger,
		kv:            opts.Store,
		tickLogger:    opts.TickLogger,
		eventLogger:   opts.EventLogger,
		now:           opts.Now,
		seedSrc:       opts.SeedSource,
		saveEvery:     opts.SaveEvery,
		layers:        opts.RenderLayers,
		cmds:          make(chan commandReq, 64),
		info:          make(chan infoReq, 8),
		frames:        make(chan frameReq, 2),
		stop:          make(chan struct{}),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerSub:   make(chan ObserverSubscribeRequest, 16),
		observerLeave: make(chan string, 16),
		observers:     map[string]*observerClient{},
	}
	if w.log == nil {
		w.log = log.New(io.Discard, "", 0)
	}
	if w.kv == nil {
		w.kv = kvstore.NewMemoryStore()
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.seedSrc == nil {
		w.seedSrc = RandomSeed
	}

	if err := w.rebuild(cfg.Seed); err != nil {
		return nil, err
	}
	w.town = economy.NewSettlement()
	w.camera = Camera{Scale: 1}
	w.chunks.EnsureLoaded(w.Focus())
	w.fleet.Spawn(w.Focus(), w.revealer())
	return w, nil
}

// RandomSeed picks a map seed in [0, 10000).
func RandomSeed() float64 { return math.Floor(rand.Float64() * 10000) }

// rebuild replaces terrain, fog and scouts with empty ones for seed. The
// settlement and camera are left to the caller.
func (w *World) rebuild(seed float64) error {
	p := w.cfg.Tuning
	n, err := gen.NewNoise(p.Noise.Backend, seed, p.Noise.Octaves)
	if err != nil {
		return fmt.Errorf("world %s: %w", w.cfg.ID, err)
	}
	g := gen.NewGenerator(n, seed)
	g.Scale = p.BiomeScale

	w.seed = seed
	w.compositor = render.Compositor{
		Seed:      gen.SeedBits(seed),
		TileSize:  p.TileSize,
		ChunkSize: p.ChunkSize,
	}
	w.chunks = store.NewChunkStore(store.Config{
		ChunkSize:    p.ChunkSize,
		TileSize:     p.TileSize,
		LoadRadius:   p.LoadRadius,
		UnloadRadius: p.UnloadRadius(),
	}, g)
	if w.layers {
		w.chunks.SetLayerBuilder(w.compositor)
	}
	w.fog = fog.NewSystem(fog.Config{
		ChunkSize: p.ChunkSize,
		TileSize:  p.TileSize,
		CellSize:  p.FogCellSize,
		Opacity:   p.FogOpacity,
		Duration:  p.RevealDuration(),
	}, w.simClock)
	w.chunks.OnLoad(w.onChunkLoad)
	w.chunks.OnEvict(w.onChunkEvict)

	sc := p.Scout
	w.fleet = scouts.NewFleet(scouts.Config{
		Speed:         sc.Speed,
		Range:         sc.Range,
		Health:        sc.Health,
		ArriveEpsilon: sc.ArriveEpsilon,
		InitialReveal: sc.InitialReveal,
		ArrivalFactor: sc.ArrivalFactor,
	})
	w.dropObserverChunks()
	return nil
}

func (w *World) onChunkLoad(k store.ChunkKey) {
	w.fog.InitChunk(k)
	w.emit(Event{Type: EventChunkLoaded, Chunk: k.String()})
}

func (w *World) onChunkEvict(k store.ChunkKey) {
	w.fog.DropChunk(k)
	w.emit(Event{Type: EventChunkEvicted, Chunk: k.String()})
}

func (w *World) simClock() time.Duration { return w.clock }

// revealer forwards scout reveals to the fog system and records them.
type revealer struct{ w *World }

func (r revealer) Reveal(pos gen.Vec2, radius float64) bool {
	ok := r.w.fog.Reveal(pos, radius)
	if ok {
		r.w.emit(Event{Type: EventReveal, X: pos.X, Y: pos.Y, Radius: radius})
	}
	return ok
}

func (w *World) revealer() scouts.Revealer { return revealer{w: w} }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) Config() Config { return w.cfg }

func (w *World) Seed() float64 { return w.seed }

func (w *World) Tick() uint64 { return w.tick.Load() }

// SimTime is the simulation clock.
func (w *World) SimTime() time.Duration { return w.clock }

func (w *World) Camera() Camera { return w.camera }

// Focus is the world position at the centre of the viewport. Chunk loading
// and the initial scout are anchored here.
func (w *World) Focus() gen.Vec2 {
	vp := w.cfg.Tuning.Viewport
	s := w.camera.Scale
	if s <= 0 {
		s = 1
	}
	return gen.Vec2{
		X: w.camera.X + float64(vp.Width)/(2*s),
		Y: w.camera.Y + float64(vp.Height)/(2*s),
	}
}

func (w *World) Chunks() *store.ChunkStore { return w.chunks }

func (w *World) Fog() *fog.System { return w.fog }

func (w *World) Scouts() []scouts.Scout { return w.fleet.All() }

func (w *World) Settlement() economy.Settlement {
	s := *w.town
	s.Buildings = append([]economy.Building(nil), w.town.Buildings...)
	return s
}

// Rates is the per-second production of the current buildings.
func (w *World) Rates() economy.Amounts {
	return w.town.Rates(w.cfg.Tuning.ProductionInterval())
}

// IsRevealed reports whether fog at pos has been mostly cleared.
func (w *World) IsRevealed(pos gen.Vec2) bool { return w.fog.IsRevealed(pos) }

// TileAt returns the tile type at pos, grass when its chunk is not loaded.
func (w *World) TileAt(pos gen.Vec2) gen.TileType { return w.chunks.TileAt(pos) }
