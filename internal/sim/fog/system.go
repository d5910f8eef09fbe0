package fog

import (
	"math"
	"sort"
	"time"

	"fjordcraft.ai/internal/sim/terrain/gen"
	"fjordcraft.ai/internal/sim/terrain/store"
)

const (
	DefaultCellSize = 4
	DefaultOpacity  = 0.9
	DefaultDuration = time.Second

	// fallbackAlpha is the fraction cleared per explored tile when a chunk has
	// no saved mask.
	fallbackAlpha = 0.9
)

type Config struct {
	ChunkSize int
	TileSize  int
	CellSize  int
	Opacity   float64
	Duration  time.Duration
}

func (c *Config) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 512
	}
	if c.TileSize <= 0 {
		c.TileSize = 32
	}
	if c.CellSize <= 0 || c.ChunkSize%c.CellSize != 0 {
		c.CellSize = DefaultCellSize
	}
	if c.Opacity <= 0 || c.Opacity > 1 {
		c.Opacity = DefaultOpacity
	}
	if c.Duration <= 0 {
		c.Duration = DefaultDuration
	}
}

// Animation is a radius-growing reveal anchored to the chunk containing its
// origin.
type Animation struct {
	Origin       gen.Vec2
	TargetRadius float64
	Radius       float64
	Start        time.Duration
	Duration     time.Duration
	Chunk        store.ChunkKey
}

func (a *Animation) progress(now time.Duration) float64 {
	if a.Duration <= 0 {
		return 1
	}
	p := float64(now-a.Start) / float64(a.Duration)
	return gen.Clamp(p, 0, 1)
}

func EaseOutQuad(t float64) float64 {
	return 1 - (1-t)*(1-t)
}

// System owns every fog mask and the live reveal animations. It is driven from
// the world loop goroutine only.
type System struct {
	cfg     Config
	initial uint8
	side    int
	clock   func() time.Duration

	masks  map[store.ChunkKey]*Mask
	parked map[store.ChunkKey]string
	anims  []*Animation
	dirty  map[store.ChunkKey]struct{}

	explored map[[2]int]struct{}
}

// NewSystem builds an empty fog system. clock supplies the simulation time
// stamped on new reveals; nil means reveals start at zero.
func NewSystem(cfg Config, clock func() time.Duration) *System {
	cfg.applyDefaults()
	if clock == nil {
		clock = func() time.Duration { return 0 }
	}
	return &System{
		cfg:      cfg,
		initial:  uint8(math.Round(cfg.Opacity * 255)),
		side:     cfg.ChunkSize / cfg.CellSize,
		clock:    clock,
		masks:    map[store.ChunkKey]*Mask{},
		parked:   map[store.ChunkKey]string{},
		dirty:    map[store.ChunkKey]struct{}{},
		explored: map[[2]int]struct{}{},
	}
}

func (s *System) Config() Config { return s.cfg }

// InitialOpacity is the cell value of an unexplored area.
func (s *System) InitialOpacity() uint8 { return s.initial }

// Active returns the number of live reveal animations.
func (s *System) Active() int { return len(s.anims) }

func (s *System) Animations() []Animation {
	out := make([]Animation, len(s.anims))
	for i, a := range s.anims {
		out[i] = *a
	}
	return out
}

func (s *System) chunkKeyAt(p gen.Vec2) store.ChunkKey {
	return store.ChunkKey{CX: gen.FloorDivF(p.X, s.cfg.ChunkSize), CY: gen.FloorDivF(p.Y, s.cfg.ChunkSize)}
}

func (s *System) chunkOrigin(k store.ChunkKey) gen.Vec2 {
	return gen.Vec2{X: float64(k.CX * s.cfg.ChunkSize), Y: float64(k.CY * s.cfg.ChunkSize)}
}

// InitChunk creates the mask for a freshly loaded chunk. A parked blob is
// restored when present; otherwise explored areas inside the chunk are
// cleared approximately.
func (s *System) InitChunk(k store.ChunkKey) {
	if _, ok := s.masks[k]; ok {
		return
	}
	if blob, ok := s.parked[k]; ok {
		delete(s.parked, k)
		if m, err := DecodeMask(blob, s.side); err == nil {
			s.masks[k] = m
			s.markDirty(k)
			return
		}
	}
	m := newMask(s.side, s.initial)
	s.masks[k] = m
	s.applyExploredFallback(k, m)
	s.markDirty(k)
}

// DropChunk removes a chunk's mask and every animation anchored to it. Masks
// that were revealed are parked so a later InitChunk restores them.
func (s *System) DropChunk(k store.ChunkKey) {
	m, ok := s.masks[k]
	if !ok {
		return
	}
	if m.touched {
		if blob, err := EncodeMask(m); err == nil {
			s.parked[k] = blob
		}
	}
	delete(s.masks, k)
	delete(s.dirty, k)

	kept := s.anims[:0]
	for _, a := range s.anims {
		if a.Chunk != k {
			kept = append(kept, a)
		}
	}
	for i := len(kept); i < len(s.anims); i++ {
		s.anims[i] = nil
	}
	s.anims = kept
}

// Reveal registers an animation at pos. It is ignored, returning false, when
// the chunk containing pos has no mask.
func (s *System) Reveal(pos gen.Vec2, radius float64) bool {
	if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return false
	}
	k := s.chunkKeyAt(pos)
	if _, ok := s.masks[k]; !ok {
		return false
	}
	s.anims = append(s.anims, &Animation{
		Origin:       pos,
		TargetRadius: radius,
		Start:        s.clock(),
		Duration:     s.cfg.Duration,
		Chunk:        k,
	})
	s.markExplored(pos, radius)
	return true
}

// Tick advances every live animation to now and clears fog on each loaded
// chunk its circle overlaps. Finished animations are removed after their
// final application.
func (s *System) Tick(now time.Duration) {
	kept := s.anims[:0]
	for _, a := range s.anims {
		if _, ok := s.masks[a.Chunk]; !ok {
			continue
		}
		p := a.progress(now)
		a.Radius = a.TargetRadius * EaseOutQuad(p)
		if a.Radius > 0 {
			s.applyCircle(a.Origin, a.Radius)
		}
		if p < 1 {
			kept = append(kept, a)
		}
	}
	for i := len(kept); i < len(s.anims); i++ {
		s.anims[i] = nil
	}
	s.anims = kept
}

func (s *System) applyCircle(center gen.Vec2, r float64) {
	k0 := s.chunkKeyAt(gen.Vec2{X: center.X - r, Y: center.Y - r})
	k1 := s.chunkKeyAt(gen.Vec2{X: center.X + r, Y: center.Y + r})
	for cy := k0.CY; cy <= k1.CY; cy++ {
		for cx := k0.CX; cx <= k1.CX; cx++ {
			k := store.ChunkKey{CX: cx, CY: cy}
			m, ok := s.masks[k]
			if !ok {
				continue
			}
			if m.applyCircle(s.chunkOrigin(k), center, r, s.cfg.CellSize) {
				s.markDirty(k)
			}
		}
	}
}

// OpacityAt returns the opacity cell covering pos.
func (s *System) OpacityAt(pos gen.Vec2) (uint8, bool) {
	k := s.chunkKeyAt(pos)
	m, ok := s.masks[k]
	if !ok {
		return 0, false
	}
	o := s.chunkOrigin(k)
	cx := clampCell(int(math.Floor((pos.X-o.X)/float64(s.cfg.CellSize))), s.side)
	cy := clampCell(int(math.Floor((pos.Y-o.Y)/float64(s.cfg.CellSize))), s.side)
	return m.Cells[cx+cy*s.side], true
}

// IsRevealed reports whether fog at pos is below half its initial opacity.
// Unloaded positions are never revealed.
func (s *System) IsRevealed(pos gen.Vec2) bool {
	v, ok := s.OpacityAt(pos)
	if !ok {
		return false
	}
	return int(v)*2 < int(s.initial)
}

// Mask returns a copy of a loaded chunk's mask.
func (s *System) Mask(k store.ChunkKey) (*Mask, bool) {
	m, ok := s.masks[k]
	if !ok {
		return nil, false
	}
	return m.clone(), true
}

func (s *System) LoadedKeys() []store.ChunkKey {
	keys := make([]store.ChunkKey, 0, len(s.masks))
	for k := range s.masks {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

func (s *System) markDirty(k store.ChunkKey) { s.dirty[k] = struct{}{} }

// TakeDirty returns the chunks whose masks changed since the last call.
func (s *System) TakeDirty() []store.ChunkKey {
	if len(s.dirty) == 0 {
		return nil
	}
	keys := make([]store.ChunkKey, 0, len(s.dirty))
	for k := range s.dirty {
		keys = append(keys, k)
	}
	s.dirty = map[store.ChunkKey]struct{}{}
	sortKeys(keys)
	return keys
}

// Reset drops all fog state, including parked blobs and explored areas.
func (s *System) Reset() {
	s.masks = map[store.ChunkKey]*Mask{}
	s.parked = map[store.ChunkKey]string{}
	s.dirty = map[store.ChunkKey]struct{}{}
	s.explored = map[[2]int]struct{}{}
	s.anims = nil
}

func sortKeys(keys []store.ChunkKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CY < keys[j].CY
	})
}
