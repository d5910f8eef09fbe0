package store

import (
	"fmt"

	"fjordcraft.ai/internal/sim/encoding"
)

// EncodedChunk is the wire form of a chunk's tile grid.
type EncodedChunk struct {
	Key          ChunkKey
	TilesPerSide int
	TilesRLE     string
}

// ExportLoadedChunks encodes the tile grids of the given loaded chunks.
// Missing keys are skipped.
func (s *ChunkStore) ExportLoadedChunks(keys []ChunkKey) []EncodedChunk {
	out := make([]EncodedChunk, 0, len(keys))
	for _, k := range keys {
		ch := s.chunks[k]
		if ch == nil {
			continue
		}
		out = append(out, EncodedChunk{
			Key:          k,
			TilesPerSide: ch.TilesPerSide,
			TilesRLE:     encoding.EncodeRLE(ch.TypeIDs()),
		})
	}
	return out
}

// DecodeTileIDs validates and expands an encoded chunk.
func DecodeTileIDs(ec EncodedChunk) ([]uint16, error) {
	ids, err := encoding.DecodeRLE(ec.TilesRLE)
	if err != nil {
		return nil, err
	}
	if len(ids) != ec.TilesPerSide*ec.TilesPerSide {
		return nil, fmt.Errorf("chunk %s tiles length mismatch: got %d want %d", ec.Key, len(ids), ec.TilesPerSide*ec.TilesPerSide)
	}
	return ids, nil
}
