package fog

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"fjordcraft.ai/internal/sim/terrain/gen"
	"fjordcraft.ai/internal/sim/terrain/store"
)

// markExplored records every tile-aligned point in the inclusive bounding
// square of the reveal circle.
func (s *System) markExplored(pos gen.Vec2, radius float64) {
	ts := float64(s.cfg.TileSize)
	x0 := int(math.Floor((pos.X-radius)/ts)) * s.cfg.TileSize
	x1 := int(math.Ceil((pos.X+radius)/ts)) * s.cfg.TileSize
	y0 := int(math.Floor((pos.Y-radius)/ts)) * s.cfg.TileSize
	y1 := int(math.Ceil((pos.Y+radius)/ts)) * s.cfg.TileSize
	for x := x0; x <= x1; x += s.cfg.TileSize {
		for y := y0; y <= y1; y += s.cfg.TileSize {
			s.explored[[2]int{x, y}] = struct{}{}
		}
	}
}

func (s *System) ExploredCount() int { return len(s.explored) }

// ExploredKeys returns the explored set as sorted "x,y" strings.
func (s *System) ExploredKeys() []string {
	pts := make([][2]int, 0, len(s.explored))
	for p := range s.explored {
		pts = append(pts, p)
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})
	out := make([]string, len(pts))
	for i, p := range pts {
		out[i] = strconv.Itoa(p[0]) + "," + strconv.Itoa(p[1])
	}
	return out
}

// RestoreExplored adds saved keys to the explored set and applies the
// fallback clearing to loaded chunks that have no revealed mask yet.
// Malformed keys are skipped and counted.
func (s *System) RestoreExplored(keys []string) (skipped int) {
	for _, key := range keys {
		p, err := parseExploredKey(key)
		if err != nil {
			skipped++
			continue
		}
		s.explored[p] = struct{}{}
	}
	for k, m := range s.masks {
		if m.touched {
			continue
		}
		if s.applyExploredFallback(k, m) {
			s.markDirty(k)
		}
	}
	return skipped
}

func parseExploredKey(key string) ([2]int, error) {
	xs, ys, ok := strings.Cut(key, ",")
	if !ok {
		return [2]int{}, fmt.Errorf("bad explored key %q", key)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return [2]int{}, fmt.Errorf("bad explored key %q", key)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil || math.IsNaN(y) || math.IsInf(y, 0) {
		return [2]int{}, fmt.Errorf("bad explored key %q", key)
	}
	return [2]int{int(math.Floor(x)), int(math.Floor(y))}, nil
}

// applyExploredFallback clears a tile-sized square centred on each explored
// point that lies in this chunk.
func (s *System) applyExploredFallback(k store.ChunkKey, m *Mask) bool {
	if len(s.explored) == 0 {
		return false
	}
	o := s.chunkOrigin(k)
	ts := s.cfg.TileSize
	half := float64(ts) / 2
	x0 := int(o.X)
	y0 := int(o.Y)
	changed := false
	apply := func(p [2]int) {
		if gen.FloorDiv(p[0], s.cfg.ChunkSize) != k.CX || gen.FloorDiv(p[1], s.cfg.ChunkSize) != k.CY {
			return
		}
		lx := float64(p[0]) - o.X
		ly := float64(p[1]) - o.Y
		if m.applyRect(lx-half, ly-half, lx+half, ly+half, fallbackAlpha, s.cfg.CellSize) {
			changed = true
		}
	}
	// Walk whichever is smaller: the chunk's tile lattice or the explored set.
	lattice := (s.cfg.ChunkSize/ts + 1) * (s.cfg.ChunkSize/ts + 1)
	if len(s.explored) < lattice {
		for p := range s.explored {
			apply(p)
		}
		return changed
	}
	for y := gen.FloorDiv(y0, ts) * ts; y < y0+s.cfg.ChunkSize; y += ts {
		for x := gen.FloorDiv(x0, ts) * ts; x < x0+s.cfg.ChunkSize; x += ts {
			if _, ok := s.explored[[2]int{x, y}]; ok {
				apply([2]int{x, y})
			}
		}
	}
	return changed
}
