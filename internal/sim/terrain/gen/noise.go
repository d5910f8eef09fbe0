package gen

import (
	"fmt"
	"math"
	"strings"

	opensimplex "github.com/ojrac/opensimplex-go"
)

const (
	BackendTrig    = "trig"
	BackendSimplex = "simplex"

	DefaultOctaves = 4
	MaxOctaves     = 8
)

// Noise is a deterministic 2D field with values in [-1, 1].
type Noise interface {
	Sample(x, y float64) float64
}

// SeededNoise is the trig octave stack. It holds no state: identical
// arguments always give identical results.
func SeededNoise(x, y, seed float64, octaves int) float64 {
	value := 0.0
	amplitude := 1.0
	frequency := 1.0
	for i := 0; i < octaves; i++ {
		px := x * frequency
		py := y * frequency
		n := math.Sin(px*2.3+py*1.7+seed) *
			math.Cos(px*1.9+py*2.1+seed) *
			math.Sin(px*3.1+py*2.9+seed*2)
		value += n * amplitude
		amplitude *= 0.5
		frequency *= 2
	}
	return Clamp(value*0.5, -1, 1)
}

type TrigNoise struct {
	Seed    float64
	Octaves int
}

func (n TrigNoise) Sample(x, y float64) float64 {
	return SeededNoise(x, y, n.Seed, n.Octaves)
}

// SimplexNoise sums opensimplex octaves. The permutation table is built once
// per seed, so construct it per world and reuse it.
type SimplexNoise struct {
	octaves int
	src     opensimplex.Noise
}

func NewSimplexNoise(seed float64, octaves int) *SimplexNoise {
	return &SimplexNoise{
		octaves: octaves,
		src:     opensimplex.New(SeedBits(seed)),
	}
}

func (n *SimplexNoise) Sample(x, y float64) float64 {
	total := 0.0
	amplitude := 1.0
	frequency := 1.0
	maxVal := 0.0
	for i := 0; i < n.octaves; i++ {
		total += n.src.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= 0.5
		frequency *= 2
	}
	if maxVal == 0 {
		return 0
	}
	return Clamp(total/maxVal, -1, 1)
}

func NewNoise(backend string, seed float64, octaves int) (Noise, error) {
	if octaves <= 0 {
		octaves = DefaultOctaves
	}
	if octaves > MaxOctaves {
		return nil, fmt.Errorf("octaves %d exceeds max %d", octaves, MaxOctaves)
	}
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendTrig:
		return TrigNoise{Seed: seed, Octaves: octaves}, nil
	case BackendSimplex:
		return NewSimplexNoise(seed, octaves), nil
	default:
		return nil, fmt.Errorf("unknown noise backend %q", backend)
	}
}
