package render

import (
	"image"
	"image/color"
	"math"

	"fjordcraft.ai/internal/sim/economy"
	"fjordcraft.ai/internal/sim/fog"
	"fjordcraft.ai/internal/sim/scouts"
	"fjordcraft.ai/internal/sim/terrain/gen"
	"fjordcraft.ai/internal/sim/terrain/store"
)

// View is the camera rectangle: top-left world position, zoom and output size
// in pixels.
type View struct {
	X, Y   float64
	Scale  float64
	Width  int
	Height int
}

type ChunkSource interface {
	Get(k store.ChunkKey) (*store.Chunk, bool)
}

type FogSource interface {
	Mask(k store.ChunkKey) (*fog.Mask, bool)
}

var (
	voidColor     = color.RGBA{R: 8, G: 8, B: 12, A: 255}
	scoutColor    = color.NRGBA{R: 255, G: 215, B: 0, A: 255}
	buildingColor = color.NRGBA{R: 139, G: 69, B: 19, A: 255}
)

type cachedChunk struct {
	ch   *store.Chunk
	mask *fog.Mask
	ok   bool
}

// chunkCache memoises chunk and fog mask lookups for one frame so a mask is
// fetched once per chunk no matter how often the scan re-enters it.
type chunkCache struct {
	chunks  ChunkSource
	fogs    FogSource
	key     store.ChunkKey
	cur     cachedChunk
	primed  bool
	entries map[store.ChunkKey]cachedChunk
}

func newChunkCache(chunks ChunkSource, fogs FogSource) *chunkCache {
	return &chunkCache{chunks: chunks, fogs: fogs, entries: make(map[store.ChunkKey]cachedChunk)}
}

func (c *chunkCache) lookup(k store.ChunkKey) {
	if c.primed && k == c.key {
		return
	}
	c.primed = true
	c.key = k
	if e, ok := c.entries[k]; ok {
		c.cur = e
		return
	}
	var e cachedChunk
	e.ch, e.ok = c.chunks.Get(k)
	if c.fogs != nil {
		e.mask, _ = c.fogs.Mask(k)
	}
	c.entries[k] = e
	c.cur = e
}

// Frame draws terrain, then fog, then buildings and scouts for one view.
func (c Compositor) Frame(v View, chunks ChunkSource, fogs FogSource, ss []scouts.Scout, bs []economy.Building) *image.RGBA {
	if v.Scale <= 0 {
		v.Scale = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, v.Width, v.Height))
	cs := c.ChunkSize
	if cs <= 0 {
		cs = 512
	}
	cache := newChunkCache(chunks, fogs)

	for py := 0; py < v.Height; py++ {
		wy := v.Y + (float64(py)+0.5)/v.Scale
		for px := 0; px < v.Width; px++ {
			wx := v.X + (float64(px)+0.5)/v.Scale
			cache.lookup(store.ChunkKey{CX: gen.FloorDivF(wx, cs), CY: gen.FloorDivF(wy, cs)})
			if !cache.cur.ok {
				img.SetRGBA(px, py, voidColor)
				continue
			}
			lx := (wx - cache.cur.ch.WorldX) / float64(cs)
			ly := (wy - cache.cur.ch.WorldY) / float64(cs)
			rgba := c.terrainAt(cache.cur.ch, lx, ly)
			if cache.cur.mask != nil {
				mx := int(lx * float64(cache.cur.mask.Side))
				my := int(ly * float64(cache.cur.mask.Side))
				if mx >= 0 && my >= 0 && mx < cache.cur.mask.Side && my < cache.cur.mask.Side {
					if a := cache.cur.mask.Cells[mx+my*cache.cur.mask.Side]; a > 0 {
						rgba = darken(rgba, a)
					}
				}
			}
			img.SetRGBA(px, py, rgba)
		}
	}

	for _, b := range bs {
		size := b.Data().Size * v.Scale
		sx := (b.Pos.X - v.X) * v.Scale
		sy := (b.Pos.Y - v.Y) * v.Scale
		fillRect(img, sx, sy, sx+size, sy+size, buildingColor)
	}
	for _, s := range ss {
		sx := (s.Pos.X - v.X) * v.Scale
		sy := (s.Pos.Y - v.Y) * v.Scale
		fillRect(img, sx-3, sy-3, sx+3, sy+3, scoutColor)
	}
	return img
}

// terrainAt samples base and detail layers at a chunk-relative position in
// [0,1). Chunks without layers fall back to the tile's palette colour.
func (c Compositor) terrainAt(ch *store.Chunk, lx, ly float64) color.RGBA {
	if ch.Layers == nil || ch.Layers.Base == nil {
		tx := int(lx * float64(ch.TilesPerSide))
		ty := int(ly * float64(ch.TilesPerSide))
		t, ok := ch.TileAtLocal(tx, ty)
		if !ok {
			return voidColor
		}
		return t.Type.Props().Base
	}
	side := ch.Layers.Base.Bounds().Dx()
	x := int(lx * float64(side))
	y := int(ly * float64(side))
	out := ch.Layers.Base.RGBAAt(x, y)
	if ch.Layers.Detail != nil {
		d := ch.Layers.Detail.RGBAAt(x, y)
		if d.A > 0 {
			out = blend(out, d, 0.6)
		}
	}
	return out
}

// blend composites premultiplied src over dst at the given extra opacity.
func blend(dst, src color.RGBA, opacity float64) color.RGBA {
	a := float64(src.A) / 255 * opacity
	mix := func(d, s uint8) uint8 {
		return uint8(gen.Clamp(float64(s)*opacity+float64(d)*(1-a), 0, 255))
	}
	return color.RGBA{R: mix(dst.R, src.R), G: mix(dst.G, src.G), B: mix(dst.B, src.B), A: 255}
}

func darken(c color.RGBA, opacity uint8) color.RGBA {
	k := 1 - float64(opacity)/255
	return color.RGBA{
		R: uint8(float64(c.R) * k),
		G: uint8(float64(c.G) * k),
		B: uint8(float64(c.B) * k),
		A: 255,
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 float64, col color.NRGBA) {
	b := img.Bounds()
	ix0 := int(math.Max(math.Floor(x0), float64(b.Min.X)))
	iy0 := int(math.Max(math.Floor(y0), float64(b.Min.Y)))
	ix1 := int(math.Min(math.Ceil(x1), float64(b.Max.X)))
	iy1 := int(math.Min(math.Ceil(y1), float64(b.Max.Y)))
	for y := iy0; y < iy1; y++ {
		for x := ix0; x < ix1; x++ {
			img.Set(x, y, col)
		}
	}
}
