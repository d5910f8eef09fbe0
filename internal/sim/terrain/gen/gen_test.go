package gen

import (
	"math"
	"math/rand"
	"testing"
)

func TestSeededNoiseRangeAndDeterminism(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		x := r.Float64()*20000 - 10000
		y := r.Float64()*20000 - 10000
		seed := r.Float64() * 10000
		a := SeededNoise(x, y, seed, 4)
		b := SeededNoise(x, y, seed, 4)
		if a != b {
			t.Fatalf("noise not deterministic at (%f,%f,%f): %f vs %f", x, y, seed, a, b)
		}
		if a < -1 || a > 1 || math.IsNaN(a) {
			t.Fatalf("noise out of range at (%f,%f): %f", x, y, a)
		}
	}
}

func TestSeededNoiseContinuity(t *testing.T) {
	const eps = 1e-6
	for i := 0; i < 100; i++ {
		x := float64(i) * 0.37
		a := SeededNoise(x, 1.5, 42, 4)
		b := SeededNoise(x+eps, 1.5, 42, 4)
		if math.Abs(a-b) > 1e-3 {
			t.Fatalf("small step produced large jump at x=%f: %f -> %f", x, a, b)
		}
	}
}

func TestClassifyGoldenSeed42(t *testing.T) {
	n := TrigNoise{Seed: 42, Octaves: 4}
	bd := Classify(n, 42, 0, 0)
	if bd.Primary != BiomeBorealForest {
		t.Fatalf("biome=%s want boreal_forest", bd.Primary)
	}
	near := func(name string, got, want float64) {
		t.Helper()
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("%s=%.15f want %.15f", name, got, want)
		}
	}
	near("strength", bd.Strength, 0.9357575537276819)
	near("temperature", bd.Temperature, 0.44069943397107136)
	near("moisture", bd.Moisture, 0.503860249420695)
	near("elevation", bd.Elevation, 0.6836880714760124)

	if got := TileTypeAt(n, 42, 0, 0, bd); got != TileConiferForest {
		t.Fatalf("tile=%s want conifer_forest", got)
	}
}

func TestClassifyGoldenSeed42ThreeOctaves(t *testing.T) {
	n := TrigNoise{Seed: 42, Octaves: 3}
	bd := Classify(n, 42, 0, 0)
	if bd.Primary != BiomeBorealForest {
		t.Fatalf("biome=%s want boreal_forest", bd.Primary)
	}
	if math.Abs(bd.Temperature-0.42683520224078597) > 1e-9 {
		t.Fatalf("temperature=%.15f", bd.Temperature)
	}
	four := Classify(TrigNoise{Seed: 42, Octaves: 4}, 42, 0, 0)
	if four.Temperature == bd.Temperature {
		t.Fatalf("octave count should change the field")
	}
}

func TestClassifyDeterministicFuzz(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		x := r.Float64()*100000 - 50000
		y := r.Float64()*100000 - 50000
		seed := math.Floor(r.Float64() * 10000)
		n := TrigNoise{Seed: seed, Octaves: 4}
		a := Classify(n, seed, x, y)
		b := Classify(TrigNoise{Seed: seed, Octaves: 4}, seed, x, y)
		if a != b {
			t.Fatalf("classify not deterministic at (%f,%f,%f): %+v vs %+v", x, y, seed, a, b)
		}
		if TileTypeAt(n, seed, x, y, a) != TileTypeAt(n, seed, x, y, b) {
			t.Fatalf("tile not deterministic at (%f,%f,%f)", x, y, seed)
		}
		if a.Strength < 0.3 || a.Strength > 1 {
			t.Fatalf("strength out of range: %f", a.Strength)
		}
		for _, v := range []float64{a.Temperature, a.Moisture, a.Elevation} {
			if v < 0 || v > 1 {
				t.Fatalf("climate scalar out of range: %+v", a)
			}
		}
	}
}

func TestPrimaryBiomeCascadeOrder(t *testing.T) {
	cases := []struct {
		temp, moist, elev float64
		want              Biome
	}{
		{0.29, 0.9, 0.9, BiomeArcticTundra},
		{0.45, 0.5, 0.9, BiomeBorealForest},
		{0.45, 0.3, 0.8, BiomeHighlandMountains},
		{0.6, 0.7, 0.8, BiomeHighlandMountains},
		{0.6, 0.7, 0.5, BiomeCoastalFjords},
		{0.7, 0.7, 0.5, BiomeTemperatePlains},
		{0.3, 0.4, 0.2, BiomeTemperatePlains},
	}
	for _, c := range cases {
		if got := primaryBiome(c.temp, c.moist, c.elev); got != c.want {
			t.Fatalf("primaryBiome(%v,%v,%v)=%s want %s", c.temp, c.moist, c.elev, got, c.want)
		}
	}
}

func TestBiomeTreesStayInBiome(t *testing.T) {
	g := NewGenerator(TrigNoise{Seed: 7, Octaves: 4}, 7)
	found := map[Biome]bool{}
	for x := -40000.0; x < 40000; x += 517 {
		for y := -40000.0; y < 40000; y += 517 {
			bd := g.Biome(x, y)
			found[bd.Primary] = true
			tt := g.TileType(x, y, bd)
			if !tt.Valid() {
				t.Fatalf("invalid tile %d", tt)
			}
			// Wetland is shared by boreal and temperate trees.
			if tt == TileWetland {
				continue
			}
			if tt.Props().Biome != bd.Primary {
				t.Fatalf("tile %s produced in biome %s", tt, bd.Primary)
			}
		}
	}
	if len(found) != len(AllBiomes()) {
		t.Fatalf("only found %d biomes in sweep: %v", len(found), found)
	}
}

func TestTileTableComplete(t *testing.T) {
	seen := map[string]bool{}
	for _, tt := range AllTileTypes() {
		p := tt.Props()
		if p.Name == "" {
			t.Fatalf("tile %d has no name", tt)
		}
		if seen[p.Name] {
			t.Fatalf("duplicate tile name %s", p.Name)
		}
		seen[p.Name] = true
		back, ok := ParseTileType(p.Name)
		if !ok || back != tt {
			t.Fatalf("ParseTileType(%s)=%v,%v", p.Name, back, ok)
		}
	}
	if len(seen) < 30 {
		t.Fatalf("expected ~30 tile types, got %d", len(seen))
	}
	if TileType(200).String() != "grass" {
		t.Fatalf("out-of-range tile should fall back to grass")
	}
}

func TestSimplexBackendDeterministic(t *testing.T) {
	a, err := NewNoise(BackendSimplex, 42, 4)
	if err != nil {
		t.Fatalf("NewNoise: %v", err)
	}
	b, _ := NewNoise(BackendSimplex, 42, 4)
	for i := 0; i < 200; i++ {
		x, y := float64(i)*1.7, float64(i)*-2.3
		va, vb := a.Sample(x, y), b.Sample(x, y)
		if va != vb {
			t.Fatalf("simplex not deterministic at %d: %f vs %f", i, va, vb)
		}
		if va < -1 || va > 1 {
			t.Fatalf("simplex out of range: %f", va)
		}
	}
	if _, err := NewNoise("perlin", 1, 4); err == nil {
		t.Fatalf("expected unknown backend error")
	}
	if _, err := NewNoise(BackendTrig, 1, MaxOctaves+1); err == nil {
		t.Fatalf("expected octave bound error")
	}
}

func TestFloorDivNegative(t *testing.T) {
	if FloorDiv(-1, 16) != -1 || FloorDiv(-16, 16) != -1 || FloorDiv(-17, 16) != -2 || FloorDiv(15, 16) != 0 {
		t.Fatalf("FloorDiv mismatch")
	}
	if Mod(-1, 16) != 15 {
		t.Fatalf("Mod mismatch")
	}
	if FloorDivF(-0.5, 512) != -1 || FloorDivF(511.9, 512) != 0 {
		t.Fatalf("FloorDivF mismatch")
	}
}
