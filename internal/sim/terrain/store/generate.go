package store

// GenerateChunk builds the tile grid for a chunk coordinate. It reads nothing
// but the key, the store geometry and the generator, so evicting and
// regenerating a chunk reproduces the same tiles.
func (s *ChunkStore) GenerateChunk(k ChunkKey) *Chunk {
	n := s.cfg.TilesPerSide()
	ch := &Chunk{
		Key:          k,
		WorldX:       float64(k.CX * s.cfg.ChunkSize),
		WorldY:       float64(k.CY * s.cfg.ChunkSize),
		TilesPerSide: n,
		Tiles:        make([]Tile, n*n),
	}
	for ty := 0; ty < n; ty++ {
		for tx := 0; tx < n; tx++ {
			wx := ch.WorldX + float64(tx*s.cfg.TileSize)
			wy := ch.WorldY + float64(ty*s.cfg.TileSize)

			bd := s.gen.Biome(wx, wy)
			ch.Tiles[ch.index(tx, ty)] = Tile{
				LocalX:      tx * s.cfg.TileSize,
				LocalY:      ty * s.cfg.TileSize,
				WorldX:      wx,
				WorldY:      wy,
				Type:        s.gen.TileType(wx, wy, bd),
				Biome:       bd.Primary,
				Strength:    bd.Strength,
				Temperature: bd.Temperature,
				Moisture:    bd.Moisture,
				Elevation:   bd.Elevation,
			}
		}
	}
	_ = ch.Digest()
	return ch
}
