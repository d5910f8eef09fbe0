package scouts

import (
	"errors"
	"math"
	"testing"
	"time"

	"fjordcraft.ai/internal/sim/terrain/gen"
)

type reveal struct {
	pos    gen.Vec2
	radius float64
}

type recorder struct{ calls []reveal }

func (r *recorder) Reveal(pos gen.Vec2, radius float64) bool {
	r.calls = append(r.calls, reveal{pos, radius})
	return true
}

func TestSpawnRevealsInitialArea(t *testing.T) {
	f := NewFleet(DefaultConfig())
	rec := &recorder{}
	id := f.Spawn(gen.Vec2{X: 10, Y: 20}, rec)
	s, ok := f.Get(id)
	if !ok || s.State() != Idle || s.Speed != 30 || s.Range != 60 || s.Health != 100 {
		t.Fatalf("unexpected scout %+v", s)
	}
	if len(rec.calls) != 1 || rec.calls[0].radius != 80 {
		t.Fatalf("expected one 80-unit reveal, got %+v", rec.calls)
	}
}

func TestAssignTargetUnknown(t *testing.T) {
	f := NewFleet(DefaultConfig())
	err := f.AssignTarget(99, gen.Vec2{})
	if !errors.Is(err, ErrUnknownScout) {
		t.Fatalf("expected ErrUnknownScout, got %v", err)
	}
}

func TestScoutStateMachine(t *testing.T) {
	f := NewFleet(DefaultConfig())
	rec := &recorder{}
	id := f.Spawn(gen.Vec2{}, nil)
	if err := f.AssignTarget(id, gen.Vec2{X: 100, Y: 0}); err != nil {
		t.Fatalf("AssignTarget: %v", err)
	}
	if s, _ := f.Get(id); s.State() != Exploring {
		t.Fatalf("state=%s want exploring", s.State())
	}

	var arrivedAt int
	for step := 1; step <= 200; step++ {
		if arrived := f.Tick(100*time.Millisecond, rec); len(arrived) > 0 {
			if arrived[0] != id {
				t.Fatalf("arrived=%v", arrived)
			}
			arrivedAt = step
			break
		}
		s, _ := f.Get(id)
		if s.Pos.X > 100 {
			t.Fatalf("scout overshot target: %f", s.Pos.X)
		}
	}
	if arrivedAt == 0 {
		t.Fatalf("scout never arrived")
	}
	s, _ := f.Get(id)
	if s.State() != Idle || s.Target != nil || s.Exploring {
		t.Fatalf("scout should be idle after arrival: %+v", s)
	}
	if math.Abs(s.Pos.X-100) > 5 {
		t.Fatalf("scout stopped too far away: %f", s.Pos.X)
	}

	last := rec.calls[len(rec.calls)-1]
	if last.radius != 90 {
		t.Fatalf("arrival reveal radius=%f want 90", last.radius)
	}
	for _, c := range rec.calls[:len(rec.calls)-1] {
		if c.radius != 60 {
			t.Fatalf("moving reveal radius=%f want 60", c.radius)
		}
	}
	if len(rec.calls) < 2 {
		t.Fatalf("expected reveals while moving")
	}
}

func TestTickMovesAtSpeed(t *testing.T) {
	f := NewFleet(DefaultConfig())
	id := f.Spawn(gen.Vec2{}, nil)
	_ = f.AssignTarget(id, gen.Vec2{X: 300, Y: 400})
	f.Tick(time.Second, nil)
	s, _ := f.Get(id)
	if math.Abs(s.Pos.X-18) > 1e-9 || math.Abs(s.Pos.Y-24) > 1e-9 {
		t.Fatalf("pos=%+v want (18,24)", s.Pos)
	}
}

func TestIdleScoutDoesNothing(t *testing.T) {
	f := NewFleet(DefaultConfig())
	f.Spawn(gen.Vec2{X: 5, Y: 5}, nil)
	rec := &recorder{}
	if arrived := f.Tick(time.Second, rec); len(arrived) != 0 || len(rec.calls) != 0 {
		t.Fatalf("idle scout acted: %v %v", arrived, rec.calls)
	}
}

func TestRestoreCopiesTargets(t *testing.T) {
	f := NewFleet(DefaultConfig())
	target := gen.Vec2{X: 1, Y: 2}
	f.Restore([]Scout{{Pos: gen.Vec2{X: 3}, Target: &target, Exploring: true}, {Exploring: true}})
	all := f.All()
	if len(all) != 2 || all[0].ID != 1 || all[1].ID != 2 {
		t.Fatalf("unexpected restore %+v", all)
	}
	if all[0].Speed != 30 || all[0].State() != Exploring {
		t.Fatalf("defaults not applied: %+v", all[0])
	}
	if all[1].Exploring {
		t.Fatalf("scout without target should not be exploring")
	}
	target.X = 999
	if s, _ := f.Get(1); s.Target.X != 1 {
		t.Fatalf("restore aliased caller target")
	}
}
