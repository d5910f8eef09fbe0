package fog

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"fjordcraft.ai/internal/sim/terrain/gen"
	"fjordcraft.ai/internal/sim/terrain/store"
)

type testClock struct{ now time.Duration }

func (c *testClock) Now() time.Duration { return c.now }

func newTestSystem(clk *testClock) *System {
	return NewSystem(Config{ChunkSize: 512, TileSize: 32, CellSize: 4, Opacity: 0.9, Duration: time.Second}, clk.Now)
}

func initAround(s *System, r int) {
	for cy := -r; cy <= r; cy++ {
		for cx := -r; cx <= r; cx++ {
			s.InitChunk(store.ChunkKey{CX: cx, CY: cy})
		}
	}
}

func TestEaseOutQuadEndpoints(t *testing.T) {
	if EaseOutQuad(0) != 0 || EaseOutQuad(1) != 1 {
		t.Fatalf("ease endpoints: %f %f", EaseOutQuad(0), EaseOutQuad(1))
	}
	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := EaseOutQuad(float64(i) / 100)
		if v < prev {
			t.Fatalf("ease not monotonic at %d", i)
		}
		prev = v
	}
}

func TestInitialOpacity(t *testing.T) {
	s := newTestSystem(&testClock{})
	if s.InitialOpacity() != 230 {
		t.Fatalf("initial=%d want 230", s.InitialOpacity())
	}
	s.InitChunk(store.ChunkKey{})
	v, ok := s.OpacityAt(gen.Vec2{X: 100, Y: 100})
	if !ok || v != 230 {
		t.Fatalf("fresh mask opacity=%d ok=%v", v, ok)
	}
	if s.IsRevealed(gen.Vec2{X: 100, Y: 100}) {
		t.Fatalf("fresh mask should not be revealed")
	}
	if s.IsRevealed(gen.Vec2{X: 9000, Y: 0}) {
		t.Fatalf("unloaded position should not be revealed")
	}
}

func TestRevealAtOriginClearsRadius(t *testing.T) {
	clk := &testClock{}
	s := newTestSystem(clk)
	initAround(s, 1)

	if !s.Reveal(gen.Vec2{}, 60) {
		t.Fatalf("reveal rejected")
	}
	clk.now = time.Second
	s.Tick(clk.now)
	if s.Active() != 0 {
		t.Fatalf("animation should be finished, active=%d", s.Active())
	}

	for _, k := range []store.ChunkKey{{CX: 0, CY: 0}, {CX: -1, CY: -1}, {CX: -1, CY: 0}, {CX: 0, CY: -1}} {
		m, ok := s.Mask(k)
		if !ok {
			t.Fatalf("missing mask %s", k)
		}
		ox, oy := float64(k.CX*512), float64(k.CY*512)
		for cy := 0; cy < m.Side; cy++ {
			for cx := 0; cx < m.Side; cx++ {
				wx := ox + (float64(cx)+0.5)*4
				wy := oy + (float64(cy)+0.5)*4
				d := math.Hypot(wx, wy)
				v := m.Cells[cx+cy*m.Side]
				switch {
				case d <= 42:
					if v != 0 {
						t.Fatalf("chunk %s cell (%d,%d) d=%.1f opacity=%d want 0", k, cx, cy, d, v)
					}
				case d >= 60:
					if v != 230 {
						t.Fatalf("chunk %s cell (%d,%d) d=%.1f opacity=%d want 230", k, cx, cy, d, v)
					}
				default:
					if v > 230 {
						t.Fatalf("opacity increased")
					}
				}
			}
		}
	}
	if !s.IsRevealed(gen.Vec2{X: 10, Y: -10}) || s.IsRevealed(gen.Vec2{X: 100, Y: 0}) {
		t.Fatalf("IsRevealed disagrees with mask")
	}
	if m, _ := s.Mask(store.ChunkKey{CX: 1, CY: 1}); m.Touched() {
		t.Fatalf("distant chunk should be untouched")
	}
}

func TestRevealConvergence(t *testing.T) {
	clk := &testClock{now: 5 * time.Second}
	s := newTestSystem(clk)
	s.InitChunk(store.ChunkKey{})
	s.Reveal(gen.Vec2{X: 256, Y: 256}, 60)

	s.Tick(clk.now + 500*time.Millisecond)
	if s.Active() != 1 {
		t.Fatalf("animation should be live mid-way")
	}
	if r := s.Animations()[0].Radius; math.Abs(r-45) > 1e-9 {
		t.Fatalf("radius at half duration=%f want 45", r)
	}
	s.Tick(clk.now + time.Second)
	if s.Active() != 0 {
		t.Fatalf("animation should be removed at progress 1")
	}
}

func TestFogNeverIncreases(t *testing.T) {
	clk := &testClock{}
	s := newTestSystem(clk)
	initAround(s, 1)
	r := rand.New(rand.NewSource(3))

	prev := map[store.ChunkKey][]uint8{}
	snapshot := func() {
		for _, k := range s.LoadedKeys() {
			m, _ := s.Mask(k)
			if old, ok := prev[k]; ok {
				for i := range old {
					if m.Cells[i] > old[i] {
						t.Fatalf("chunk %s cell %d increased %d -> %d", k, i, old[i], m.Cells[i])
					}
				}
			}
			prev[k] = m.Cells
		}
	}
	snapshot()
	for step := 0; step < 60; step++ {
		if r.Intn(3) == 0 {
			s.Reveal(gen.Vec2{X: r.Float64()*1200 - 600, Y: r.Float64()*1200 - 600}, 20+r.Float64()*120)
		}
		clk.now += 50 * time.Millisecond
		s.Tick(clk.now)
		snapshot()
	}
}

func TestRevealIgnoredWithoutMask(t *testing.T) {
	s := newTestSystem(&testClock{})
	if s.Reveal(gen.Vec2{X: 10, Y: 10}, 60) {
		t.Fatalf("reveal should be ignored without a mask")
	}
	if s.Active() != 0 || s.ExploredCount() != 0 {
		t.Fatalf("ignored reveal left state behind")
	}
}

func TestExploredKeysBoundingSquare(t *testing.T) {
	s := newTestSystem(&testClock{})
	s.InitChunk(store.ChunkKey{})
	s.Reveal(gen.Vec2{X: 0, Y: 0}, 60)
	keys := s.ExploredKeys()
	if len(keys) != 25 {
		t.Fatalf("explored keys=%d want 25: %v", len(keys), keys)
	}
	want := map[string]bool{"-64,-64": true, "0,0": true, "64,64": true, "-64,64": true}
	seen := map[string]bool{}
	for _, k := range keys {
		seen[k] = true
	}
	for k := range want {
		if !seen[k] {
			t.Fatalf("missing explored key %s", k)
		}
	}
}

func TestDropChunkParksRevealedMask(t *testing.T) {
	clk := &testClock{}
	s := newTestSystem(clk)
	k := store.ChunkKey{}
	s.InitChunk(k)
	s.Reveal(gen.Vec2{X: 200, Y: 200}, 80)
	clk.now = time.Second
	s.Tick(clk.now)
	before, _ := s.Mask(k)

	s.Reveal(gen.Vec2{X: 300, Y: 300}, 40)
	s.DropChunk(k)
	if s.Active() != 0 {
		t.Fatalf("animations of dropped chunk should be discarded")
	}
	if _, ok := s.Mask(k); ok {
		t.Fatalf("mask should be gone")
	}
	s.InitChunk(k)
	after, _ := s.Mask(k)
	for i := range before.Cells {
		if before.Cells[i] != after.Cells[i] {
			t.Fatalf("cell %d differs after reload: %d vs %d", i, before.Cells[i], after.Cells[i])
		}
	}
}

func TestExportRestoreBlobs(t *testing.T) {
	clk := &testClock{}
	s := newTestSystem(clk)
	initAround(s, 1)
	s.Reveal(gen.Vec2{X: 500, Y: 500}, 100)
	clk.now = 2 * time.Second
	s.Tick(clk.now)

	blobs := s.ExportBlobs()
	if len(blobs) == 0 {
		t.Fatalf("expected blobs for revealed chunks")
	}
	if _, ok := blobs["-1,-1"]; ok {
		t.Fatalf("untouched chunk should not be exported")
	}

	s2 := newTestSystem(&testClock{})
	s2.InitChunk(store.ChunkKey{})
	if skipped := s2.RestoreBlobs(blobs); skipped != 0 {
		t.Fatalf("skipped=%d", skipped)
	}
	a, _ := s.Mask(store.ChunkKey{})
	b, _ := s2.Mask(store.ChunkKey{})
	for i := range a.Cells {
		if a.Cells[i] != b.Cells[i] {
			t.Fatalf("loaded chunk cell %d mismatch", i)
		}
	}
	// Parked blob applies when the chunk appears.
	s2.InitChunk(store.ChunkKey{CX: 1, CY: 0})
	a, _ = s.Mask(store.ChunkKey{CX: 1, CY: 0})
	b, _ = s2.Mask(store.ChunkKey{CX: 1, CY: 0})
	for i := range a.Cells {
		if a.Cells[i] != b.Cells[i] {
			t.Fatalf("parked chunk cell %d mismatch", i)
		}
	}

	if skipped := s2.RestoreBlobs(map[string]string{"0,0": "not base64!", "x": "AAAA"}); skipped != 2 {
		t.Fatalf("skipped=%d want 2", skipped)
	}
}

func TestExploredFallbackWithoutBlobs(t *testing.T) {
	s := newTestSystem(&testClock{})
	if skipped := s.RestoreExplored([]string{"0,0", "32,32", "garbage"}); skipped != 1 {
		t.Fatalf("skipped=%d want 1", skipped)
	}
	s.InitChunk(store.ChunkKey{})
	if !s.IsRevealed(gen.Vec2{X: 1, Y: 1}) || !s.IsRevealed(gen.Vec2{X: 40, Y: 40}) {
		t.Fatalf("explored tiles should be cleared by fallback")
	}
	if s.IsRevealed(gen.Vec2{X: 200, Y: 200}) {
		t.Fatalf("unexplored tile should stay fogged")
	}
	v, _ := s.OpacityAt(gen.Vec2{X: 1, Y: 1})
	a := float64(fallbackAlpha)
	if want := uint8(math.Floor(float64(230) * (1 - a))); v != want {
		t.Fatalf("fallback opacity=%d want %d", v, want)
	}
}

func TestDecodeMaskRejectsGarbage(t *testing.T) {
	if _, err := DecodeMask("???", 4); err == nil {
		t.Fatalf("expected error")
	}
	m := newMask(4, 10)
	blob, err := EncodeMask(m)
	if err != nil {
		t.Fatalf("EncodeMask: %v", err)
	}
	if _, err := DecodeMask(blob, 5); err == nil {
		t.Fatalf("expected size mismatch")
	}
}
