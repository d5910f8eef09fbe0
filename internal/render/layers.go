// Package render rasterizes chunk state. Everything here is a pure function
// of core state; headless worlds never call it.
package render

import (
	"image"
	"image/color"

	"fjordcraft.ai/internal/sim/terrain/gen"
	"fjordcraft.ai/internal/sim/terrain/store"
)

const DefaultPixelsPerTile = 4

type Compositor struct {
	Seed          int64
	TileSize      int
	ChunkSize     int
	PixelsPerTile int
}

func (c Compositor) ppt() int {
	if c.PixelsPerTile <= 0 {
		return DefaultPixelsPerTile
	}
	return c.PixelsPerTile
}

// BuildLayers satisfies store.LayerBuilder.
func (c Compositor) BuildLayers(ch *store.Chunk) *store.Layers {
	ppt := c.ppt()
	side := ch.TilesPerSide * ppt
	base := image.NewRGBA(image.Rect(0, 0, side, side))
	detail := image.NewRGBA(image.Rect(0, 0, side, side))

	for ty := 0; ty < ch.TilesPerSide; ty++ {
		for tx := 0; tx < ch.TilesPerSide; tx++ {
			t, _ := ch.TileAtLocal(tx, ty)
			p := t.Type.Props()
			fill := shade(p.Base, t.Strength, t.Elevation)
			for y := 0; y < ppt; y++ {
				for x := 0; x < ppt; x++ {
					base.SetRGBA(tx*ppt+x, ty*ppt+y, fill)
				}
			}
			c.speckle(detail, t, p.Detail, tx*ppt, ty*ppt, ppt)
		}
	}
	return &store.Layers{Base: base, Detail: detail}
}

// shade darkens weak biome edges and brightens high ground.
func shade(col color.RGBA, strength, elevation float64) color.RGBA {
	f := (0.8 + 0.2*strength) * (0.9 + 0.2*elevation)
	scale := func(v uint8) uint8 {
		return uint8(gen.Clamp(float64(v)*f, 0, 255))
	}
	return color.RGBA{R: scale(col.R), G: scale(col.G), B: scale(col.B), A: 255}
}

// speckle scatters up to three detail dots per tile. Placement comes from a
// hash of the tile's world position so every rebuild is identical.
func (c Compositor) speckle(img *image.RGBA, t store.Tile, col color.RGBA, x0, y0, ppt int) {
	tx := gen.FloorDivF(t.WorldX, c.tileSize())
	ty := gen.FloorDivF(t.WorldY, c.tileSize())
	h := gen.Hash2(c.Seed, tx, ty)
	n := int(h % 4)
	dot := color.NRGBA{R: col.R, G: col.G, B: col.B, A: 180}
	for i := 0; i < n; i++ {
		h >>= 8
		dx := int(h&0xF) % ppt
		dy := int((h>>4)&0xF) % ppt
		img.Set(x0+dx, y0+dy, dot)
	}
}

func (c Compositor) tileSize() int {
	if c.TileSize <= 0 {
		return 32
	}
	return c.TileSize
}
