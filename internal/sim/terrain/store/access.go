package store

import (
	"sort"

	"fjordcraft.ai/internal/sim/terrain/gen"
)

func (s *ChunkStore) ChunkKeyAt(pos gen.Vec2) ChunkKey {
	return ChunkKey{
		CX: gen.FloorDivF(pos.X, s.cfg.ChunkSize),
		CY: gen.FloorDivF(pos.Y, s.cfg.ChunkSize),
	}
}

func (s *ChunkStore) Get(k ChunkKey) (*Chunk, bool) {
	ch, ok := s.chunks[k]
	return ch, ok
}

func (s *ChunkStore) Len() int { return len(s.chunks) }

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CY < keys[j].CY
	})
	return keys
}

// TileDataAt returns the tile covering pos if its chunk is loaded.
func (s *ChunkStore) TileDataAt(pos gen.Vec2) (Tile, bool) {
	ch, ok := s.chunks[s.ChunkKeyAt(pos)]
	if !ok {
		return Tile{}, false
	}
	tx := gen.FloorDivF(pos.X-ch.WorldX, s.cfg.TileSize)
	ty := gen.FloorDivF(pos.Y-ch.WorldY, s.cfg.TileSize)
	return ch.TileAtLocal(tx, ty)
}

// TileAt never fails: positions in unloaded chunks report grass.
func (s *ChunkStore) TileAt(pos gen.Vec2) gen.TileType {
	t, ok := s.TileDataAt(pos)
	if !ok {
		return gen.TileGrass
	}
	return t.Type
}

// EnsureLoaded generates every missing chunk within LoadRadius of the chunk
// containing focus and returns the keys it inserted, in insertion order.
func (s *ChunkStore) EnsureLoaded(focus gen.Vec2) []ChunkKey {
	center := s.ChunkKeyAt(focus)
	r := s.cfg.LoadRadius
	var added []ChunkKey
	for cy := center.CY - r; cy <= center.CY+r; cy++ {
		for cx := center.CX - r; cx <= center.CX+r; cx++ {
			k := ChunkKey{CX: cx, CY: cy}
			if _, ok := s.getOrGenChunk(k); ok {
				added = append(added, k)
			}
		}
	}
	return added
}

// EvictDistant drops every chunk farther than UnloadRadius from the chunk
// containing focus.
func (s *ChunkStore) EvictDistant(focus gen.Vec2) []ChunkKey {
	center := s.ChunkKeyAt(focus)
	var evicted []ChunkKey
	for _, k := range s.LoadedChunkKeys() {
		if k.Chebyshev(center) > s.cfg.UnloadRadius {
			evicted = append(evicted, k)
		}
	}
	for _, k := range evicted {
		s.evict(k)
	}
	return evicted
}

// Reset evicts everything.
func (s *ChunkStore) Reset() {
	for _, k := range s.LoadedChunkKeys() {
		s.evict(k)
	}
}

func (s *ChunkStore) evict(k ChunkKey) {
	if _, ok := s.chunks[k]; !ok {
		return
	}
	delete(s.chunks, k)
	for _, fn := range s.onEvict {
		fn(k)
	}
}

// getOrGenChunk reports created=true only when it inserted a new chunk.
func (s *ChunkStore) getOrGenChunk(k ChunkKey) (*Chunk, bool) {
	if ch, ok := s.chunks[k]; ok {
		return ch, false
	}
	ch := s.GenerateChunk(k)
	if s.layers != nil {
		ch.Layers = s.layers.BuildLayers(ch)
	}
	s.chunks[k] = ch
	for _, fn := range s.onLoad {
		fn(k)
	}
	return ch, true
}
