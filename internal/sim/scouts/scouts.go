package scouts

import (
	"errors"
	"fmt"
	"time"

	"fjordcraft.ai/internal/sim/terrain/gen"
)

var ErrUnknownScout = errors.New("unknown scout")

type State uint8

const (
	Idle State = iota
	Exploring
)

func (s State) String() string {
	if s == Exploring {
		return "exploring"
	}
	return "idle"
}

type Scout struct {
	ID        int
	Pos       gen.Vec2
	Speed     float64 // world units per second
	Range     float64
	Health    float64
	Target    *gen.Vec2
	Exploring bool
}

func (s Scout) State() State {
	if s.Exploring && s.Target != nil {
		return Exploring
	}
	return Idle
}

type Config struct {
	Speed         float64
	Range         float64
	Health        float64
	ArriveEpsilon float64
	InitialReveal float64
	ArrivalFactor float64
}

func DefaultConfig() Config {
	return Config{
		Speed:         30,
		Range:         60,
		Health:        100,
		ArriveEpsilon: 5,
		InitialReveal: 80,
		ArrivalFactor: 1.5,
	}
}

// Revealer receives reveal requests by value. fog.System satisfies it.
type Revealer interface {
	Reveal(pos gen.Vec2, radius float64) bool
}

// Fleet owns every scout. It is mutated only from the world loop.
type Fleet struct {
	cfg    Config
	scouts []*Scout
	nextID int
}

func NewFleet(cfg Config) *Fleet {
	def := DefaultConfig()
	if cfg.Speed <= 0 {
		cfg.Speed = def.Speed
	}
	if cfg.Range <= 0 {
		cfg.Range = def.Range
	}
	if cfg.Health <= 0 {
		cfg.Health = def.Health
	}
	if cfg.ArriveEpsilon <= 0 {
		cfg.ArriveEpsilon = def.ArriveEpsilon
	}
	if cfg.InitialReveal <= 0 {
		cfg.InitialReveal = def.InitialReveal
	}
	if cfg.ArrivalFactor <= 0 {
		cfg.ArrivalFactor = def.ArrivalFactor
	}
	return &Fleet{cfg: cfg, nextID: 1}
}

func (f *Fleet) Config() Config { return f.cfg }

func (f *Fleet) Len() int { return len(f.scouts) }

// Spawn adds an idle scout at pos and, when r is non-nil, reveals the
// initial area around it.
func (f *Fleet) Spawn(pos gen.Vec2, r Revealer) int {
	s := &Scout{
		ID:     f.nextID,
		Pos:    pos,
		Speed:  f.cfg.Speed,
		Range:  f.cfg.Range,
		Health: f.cfg.Health,
	}
	f.nextID++
	f.scouts = append(f.scouts, s)
	if r != nil {
		r.Reveal(pos, f.cfg.InitialReveal)
	}
	return s.ID
}

// Restore replaces the fleet with saved scouts. IDs are reassigned in order.
// Zero speed or range fall back to the configured values.
func (f *Fleet) Restore(saved []Scout) {
	f.scouts = f.scouts[:0]
	f.nextID = 1
	for _, s := range saved {
		s.ID = f.nextID
		f.nextID++
		if s.Speed <= 0 {
			s.Speed = f.cfg.Speed
		}
		if s.Range <= 0 {
			s.Range = f.cfg.Range
		}
		if s.Target != nil {
			t := *s.Target
			s.Target = &t
		} else {
			s.Exploring = false
		}
		cp := s
		f.scouts = append(f.scouts, &cp)
	}
}

func (f *Fleet) Reset() {
	f.scouts = nil
	f.nextID = 1
}

func (f *Fleet) find(id int) *Scout {
	for _, s := range f.scouts {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Get returns a copy of the scout.
func (f *Fleet) Get(id int) (Scout, bool) {
	s := f.find(id)
	if s == nil {
		return Scout{}, false
	}
	return copyScout(s), true
}

// First returns the ID of the oldest scout.
func (f *Fleet) First() (int, bool) {
	if len(f.scouts) == 0 {
		return 0, false
	}
	return f.scouts[0].ID, true
}

// All returns copies of every scout in spawn order.
func (f *Fleet) All() []Scout {
	out := make([]Scout, len(f.scouts))
	for i, s := range f.scouts {
		out[i] = copyScout(s)
	}
	return out
}

func copyScout(s *Scout) Scout {
	cp := *s
	if s.Target != nil {
		t := *s.Target
		cp.Target = &t
	}
	return cp
}

// AssignTarget sends a scout toward pos, moving it to Exploring.
func (f *Fleet) AssignTarget(id int, pos gen.Vec2) error {
	s := f.find(id)
	if s == nil {
		return fmt.Errorf("%w: %d", ErrUnknownScout, id)
	}
	t := pos
	s.Target = &t
	s.Exploring = true
	return nil
}

// Tick moves every exploring scout by dt, revealing around it at each step.
// A scout within ArriveEpsilon of its target goes Idle with one larger reveal.
// It returns the IDs of scouts that arrived this tick.
func (f *Fleet) Tick(dt time.Duration, r Revealer) []int {
	var arrived []int
	secs := dt.Seconds()
	for _, s := range f.scouts {
		if !s.Exploring || s.Target == nil {
			continue
		}
		dist := s.Pos.Dist(*s.Target)
		if dist > f.cfg.ArriveEpsilon {
			step := s.Speed * secs
			if step <= 0 {
				continue
			}
			if step >= dist {
				s.Pos = *s.Target
			} else {
				d := s.Target.Sub(s.Pos)
				s.Pos.X += d.X / dist * step
				s.Pos.Y += d.Y / dist * step
			}
			if r != nil {
				r.Reveal(s.Pos, s.Range)
			}
			continue
		}
		s.Exploring = false
		s.Target = nil
		if r != nil {
			r.Reveal(s.Pos, s.Range*f.cfg.ArrivalFactor)
		}
		arrived = append(arrived, s.ID)
	}
	return arrived
}
