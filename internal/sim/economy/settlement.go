package economy

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"fjordcraft.ai/internal/sim/terrain/gen"
)

var (
	ErrUnknownBuilding       = errors.New("unknown building type")
	ErrInsufficientResources = errors.New("not enough resources")
	ErrInvalidPlacement      = errors.New("invalid placement location")
)

type Resources struct {
	Food float64 `json:"food"`
	Wood float64 `json:"wood"`
	Iron float64 `json:"iron"`
	Gold float64 `json:"gold"`
}

func StartingResources() Resources {
	return Resources{Food: 100, Wood: 50, Iron: 25, Gold: 10}
}

const StartingPopulation = 5

func (r *Resources) field(name string) *float64 {
	switch name {
	case "food":
		return &r.Food
	case "wood":
		return &r.Wood
	case "iron":
		return &r.Iron
	case "gold":
		return &r.Gold
	}
	return nil
}

// CanAfford treats cost entries for untracked resources as unaffordable.
func (r Resources) CanAfford(cost Amounts) bool {
	for name, amount := range cost {
		p := r.field(name)
		if p == nil || *p < amount {
			return false
		}
	}
	return true
}

func (r *Resources) Spend(cost Amounts) {
	for name, amount := range cost {
		if p := r.field(name); p != nil {
			*p -= amount
		}
	}
}

// Add credits tracked resources and ignores the rest.
func (r *Resources) Add(gain Amounts) {
	for name, amount := range gain {
		if p := r.field(name); p != nil {
			*p += amount
		}
	}
}

type Building struct {
	Type       string
	Pos        gen.Vec2
	Level      int
	Production float64
	LastUpdate time.Duration
}

func (b Building) Data() BuildingData {
	d, _ := GetBuildingData(b.Type)
	return d
}

// TileLookup resolves the terrain under a world position. store.ChunkStore
// satisfies it.
type TileLookup interface {
	TileAt(pos gen.Vec2) gen.TileType
}

type Settlement struct {
	Resources  Resources
	Population float64
	Buildings  []Building
}

func NewSettlement() *Settlement {
	return &Settlement{Resources: StartingResources(), Population: StartingPopulation}
}

func (s *Settlement) CanAfford(cost Amounts) bool { return s.Resources.CanAfford(cost) }

func (s *Settlement) SpendResources(cost Amounts) { s.Resources.Spend(cost) }

// IsValidPlacement rejects blocking terrain and positions inside an existing
// building's footprint.
func (s *Settlement) IsValidPlacement(pos gen.Vec2, tiles TileLookup) bool {
	if tiles != nil && tiles.TileAt(pos).Props().Blocking {
		return false
	}
	for _, b := range s.Buildings {
		if b.Pos.Dist(pos) < b.Data().Size {
			return false
		}
	}
	return true
}

func (s *Settlement) AddBuilding(kind string, pos gen.Vec2, now time.Duration) error {
	if _, ok := catalog[kind]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBuilding, kind)
	}
	s.Buildings = append(s.Buildings, Building{Type: kind, Pos: pos, Level: 1, LastUpdate: now})
	return nil
}

// Place checks cost and placement, then builds and pays. Nothing changes on
// error.
func (s *Settlement) Place(kind string, pos gen.Vec2, tiles TileLookup, now time.Duration) (BuildingData, error) {
	d, ok := GetBuildingData(kind)
	if !ok {
		return BuildingData{}, fmt.Errorf("%w: %q", ErrUnknownBuilding, kind)
	}
	if !s.CanAfford(d.Cost) {
		return d, ErrInsufficientResources
	}
	if !s.IsValidPlacement(pos, tiles) {
		return d, ErrInvalidPlacement
	}
	if err := s.AddBuilding(kind, pos, now); err != nil {
		return d, err
	}
	s.SpendResources(d.Cost)
	return d, nil
}

// Produce credits every building whose last production is at least interval
// old. Population goes to Population; unknown resources such as happiness
// have no sink. It returns the number of buildings that produced.
func (s *Settlement) Produce(now, interval time.Duration) int {
	n := 0
	for i := range s.Buildings {
		b := &s.Buildings[i]
		if now-b.LastUpdate < interval {
			continue
		}
		for name, amount := range b.Data().Produces {
			if name == "population" {
				s.Population += amount
				continue
			}
			s.Resources.Add(Amounts{name: amount})
		}
		b.Production++
		b.LastUpdate = now
		n++
	}
	return n
}

// Rates returns per-second production by resource for the current buildings.
func (s *Settlement) Rates(interval time.Duration) Amounts {
	out := Amounts{}
	if interval <= 0 {
		return out
	}
	secs := interval.Seconds()
	for _, b := range s.Buildings {
		for name, amount := range b.Data().Produces {
			out[name] += amount / secs
		}
	}
	return out
}

// Counts returns the number of buildings by type, sorted by type.
func (s *Settlement) Counts() []TypeCount {
	m := map[string]int{}
	for _, b := range s.Buildings {
		m[b.Type]++
	}
	out := make([]TypeCount, 0, len(m))
	for k, v := range m {
		out = append(out, TypeCount{Type: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}
