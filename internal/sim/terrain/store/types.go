package store

import (
	"crypto/sha256"
	"fmt"
	"image"
	"strconv"
	"strings"

	"fjordcraft.ai/internal/sim/terrain/gen"
)

type ChunkKey struct {
	CX int
	CY int
}

func (k ChunkKey) String() string {
	return strconv.Itoa(k.CX) + "," + strconv.Itoa(k.CY)
}

func ParseChunkKey(s string) (ChunkKey, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return ChunkKey{}, fmt.Errorf("bad chunk key %q", s)
	}
	cx, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return ChunkKey{}, fmt.Errorf("bad chunk key %q: %w", s, err)
	}
	cy, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return ChunkKey{}, fmt.Errorf("bad chunk key %q: %w", s, err)
	}
	return ChunkKey{CX: cx, CY: cy}, nil
}

// Chebyshev returns the chessboard distance between two chunk coordinates.
func (k ChunkKey) Chebyshev(o ChunkKey) int {
	dx := k.CX - o.CX
	if dx < 0 {
		dx = -dx
	}
	dy := k.CY - o.CY
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// Tile is immutable once generated. Climate scalars are kept so renderers can
// shade without re-sampling noise.
type Tile struct {
	LocalX      int
	LocalY      int
	WorldX      float64
	WorldY      float64
	Type        gen.TileType
	Biome       gen.Biome
	Strength    float64
	Temperature float64
	Moisture    float64
	Elevation   float64
}

// Layers are derived raster views of a chunk's tiles.
type Layers struct {
	Base   *image.RGBA
	Detail *image.RGBA
}

type Chunk struct {
	Key    ChunkKey
	WorldX float64
	WorldY float64

	TilesPerSide int
	Tiles        []Tile // row-major: ty*TilesPerSide + tx

	Layers *Layers

	hash [32]byte
}

func (c *Chunk) index(tx, ty int) int {
	return tx + ty*c.TilesPerSide
}

func (c *Chunk) TileAtLocal(tx, ty int) (Tile, bool) {
	if tx < 0 || ty < 0 || tx >= c.TilesPerSide || ty >= c.TilesPerSide {
		return Tile{}, false
	}
	return c.Tiles[c.index(tx, ty)], true
}

// TypeIDs returns the tile type of every tile in row-major order.
func (c *Chunk) TypeIDs() []uint16 {
	out := make([]uint16, len(c.Tiles))
	for i, t := range c.Tiles {
		out[i] = uint16(t.Type)
	}
	return out
}

// Digest hashes the tile type grid. Tiles never change after generation, so
// it is computed once.
func (c *Chunk) Digest() [32]byte {
	if c.hash == ([32]byte{}) {
		h := sha256.New()
		for _, t := range c.Tiles {
			h.Write([]byte{byte(t.Type), byte(t.Biome)})
		}
		copy(c.hash[:], h.Sum(nil))
	}
	return c.hash
}

type Config struct {
	ChunkSize    int // world units per chunk edge
	TileSize     int // world units per tile edge
	LoadRadius   int // chunks, Chebyshev
	UnloadRadius int // chunks, Chebyshev; >= LoadRadius
}

func (c *Config) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 512
	}
	if c.TileSize <= 0 {
		c.TileSize = 32
	}
	if c.LoadRadius < 0 {
		c.LoadRadius = 0
	}
	if c.UnloadRadius < c.LoadRadius {
		c.UnloadRadius = c.LoadRadius
	}
}

func (c Config) TilesPerSide() int {
	return c.ChunkSize / c.TileSize
}

// Generator produces biome data and tile types for world positions.
// gen.Generator satisfies it.
type Generator interface {
	Biome(x, y float64) gen.BiomeData
	TileType(x, y float64, bd gen.BiomeData) gen.TileType
}

// LayerBuilder derives render layers for a freshly generated chunk.
type LayerBuilder interface {
	BuildLayers(ch *Chunk) *Layers
}

// ChunkStore owns every materialized chunk. It is accessed only from the
// world loop goroutine.
type ChunkStore struct {
	cfg    Config
	gen    Generator
	layers LayerBuilder

	chunks map[ChunkKey]*Chunk

	onLoad  []func(ChunkKey)
	onEvict []func(ChunkKey)
}

func NewChunkStore(cfg Config, g Generator) *ChunkStore {
	cfg.applyDefaults()
	return &ChunkStore{
		cfg:    cfg,
		gen:    g,
		chunks: map[ChunkKey]*Chunk{},
	}
}

func (s *ChunkStore) Config() Config { return s.cfg }

// SetLayerBuilder enables derived render layers for chunks generated from now on.
func (s *ChunkStore) SetLayerBuilder(b LayerBuilder) { s.layers = b }

// OnLoad registers a callback run after a chunk is inserted.
func (s *ChunkStore) OnLoad(fn func(ChunkKey)) { s.onLoad = append(s.onLoad, fn) }

// OnEvict registers a callback run after a chunk is removed.
func (s *ChunkStore) OnEvict(fn func(ChunkKey)) { s.onEvict = append(s.onEvict, fn) }
