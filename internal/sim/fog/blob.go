package fog

import (
	"encoding/base64"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"fjordcraft.ai/internal/sim/encoding"
	"fjordcraft.ai/internal/sim/terrain/store"
)

var (
	blobEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	blobDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(16<<20))
)

// EncodeMask serializes a mask as base64(zstd(RLE cells)).
func EncodeMask(m *Mask) (string, error) {
	if m == nil || len(m.Cells) != m.Side*m.Side {
		return "", fmt.Errorf("fog: malformed mask")
	}
	raw := encoding.EncodeBytesRLE(m.Cells)
	return base64.StdEncoding.EncodeToString(blobEncoder.EncodeAll(raw, nil)), nil
}

// DecodeMask expects a mask of side*side cells.
func DecodeMask(blob string, side int) (*Mask, error) {
	z, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("fog blob: %w", err)
	}
	raw, err := blobDecoder.DecodeAll(z, nil)
	if err != nil {
		return nil, fmt.Errorf("fog blob: %w", err)
	}
	cells, err := encoding.DecodeBytesRLE(raw, side*side)
	if err != nil {
		return nil, fmt.Errorf("fog blob: %w", err)
	}
	return &Mask{Side: side, Cells: cells, touched: true}, nil
}

// Blob encodes a loaded chunk's mask.
func (s *System) Blob(k store.ChunkKey) (string, bool) {
	m, ok := s.masks[k]
	if !ok {
		return "", false
	}
	b, err := EncodeMask(m)
	if err != nil {
		return "", false
	}
	return b, true
}

// ExportBlobs returns the masks of every revealed chunk, loaded or parked,
// keyed by "cx,cy".
func (s *System) ExportBlobs() map[string]string {
	out := make(map[string]string, len(s.masks)+len(s.parked))
	for k, b := range s.parked {
		out[k.String()] = b
	}
	for k, m := range s.masks {
		if !m.touched {
			continue
		}
		if b, err := EncodeMask(m); err == nil {
			out[k.String()] = b
		}
	}
	return out
}

// RestoreBlobs merges saved masks into loaded chunks and parks the rest for
// InitChunk. Undecodable entries are skipped and counted.
func (s *System) RestoreBlobs(blobs map[string]string) (skipped int) {
	for ks, blob := range blobs {
		k, err := store.ParseChunkKey(ks)
		if err != nil {
			skipped++
			continue
		}
		m, ok := s.masks[k]
		if !ok {
			s.parked[k] = blob
			continue
		}
		restored, err := DecodeMask(blob, s.side)
		if err != nil {
			skipped++
			continue
		}
		m.merge(restored)
		s.markDirty(k)
	}
	return skipped
}
