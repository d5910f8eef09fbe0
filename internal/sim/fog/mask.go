package fog

import (
	"math"

	"fjordcraft.ai/internal/sim/terrain/gen"
)

// Mask is a chunk's opacity grid. 255 is fully fogged, 0 fully clear.
type Mask struct {
	Side  int
	Cells []uint8

	touched bool
}

func newMask(side int, initial uint8) *Mask {
	m := &Mask{Side: side, Cells: make([]uint8, side*side)}
	for i := range m.Cells {
		m.Cells[i] = initial
	}
	return m
}

// Touched reports whether any cell has been cleared since creation or restore.
func (m *Mask) Touched() bool { return m.touched }

func (m *Mask) clone() *Mask {
	out := &Mask{Side: m.Side, Cells: make([]uint8, len(m.Cells)), touched: m.touched}
	copy(out.Cells, m.Cells)
	return out
}

// subtract scales a cell by (1-a). Opacity never increases.
func (m *Mask) subtract(i int, a float64) bool {
	if a <= 0 {
		return false
	}
	old := m.Cells[i]
	if old == 0 {
		return false
	}
	if a > 1 {
		a = 1
	}
	nv := uint8(math.Floor(float64(old) * (1 - a)))
	if nv >= old {
		return false
	}
	m.Cells[i] = nv
	m.touched = true
	return true
}

// merge keeps the lower opacity of each cell.
func (m *Mask) merge(o *Mask) {
	if o == nil || o.Side != m.Side {
		return
	}
	for i, v := range o.Cells {
		if v < m.Cells[i] {
			m.Cells[i] = v
			m.touched = true
		}
	}
}

// falloff is the fraction of fog removed at distance d from a reveal of
// current radius r: fully clear inside 0.7r, fading linearly to nothing at r.
func falloff(d, r float64) float64 {
	if r <= 0 || d >= r {
		return 0
	}
	inner := r * 0.7
	if d <= inner {
		return 1
	}
	return (r - d) / (r - inner)
}

// applyCircle clears fog around a world-space centre. origin is the chunk's
// world-space top-left corner.
func (m *Mask) applyCircle(origin, center gen.Vec2, radius float64, cellSize int) bool {
	cs := float64(cellSize)
	lx := center.X - origin.X
	ly := center.Y - origin.Y

	x0 := clampCell(int(math.Floor((lx-radius)/cs)), m.Side)
	x1 := clampCell(int(math.Floor((lx+radius)/cs)), m.Side)
	y0 := clampCell(int(math.Floor((ly-radius)/cs)), m.Side)
	y1 := clampCell(int(math.Floor((ly+radius)/cs)), m.Side)

	changed := false
	for cy := y0; cy <= y1; cy++ {
		py := (float64(cy)+0.5)*cs - ly
		for cx := x0; cx <= x1; cx++ {
			px := (float64(cx)+0.5)*cs - lx
			a := falloff(math.Hypot(px, py), radius)
			if m.subtract(cx+cy*m.Side, a) {
				changed = true
			}
		}
	}
	return changed
}

// applyRect clears a fixed fraction over a local-space rectangle.
func (m *Mask) applyRect(x0f, y0f, x1f, y1f float64, a float64, cellSize int) bool {
	cs := float64(cellSize)
	x0 := clampCell(int(math.Floor(x0f/cs)), m.Side)
	x1 := clampCell(int(math.Ceil(x1f/cs))-1, m.Side)
	y0 := clampCell(int(math.Floor(y0f/cs)), m.Side)
	y1 := clampCell(int(math.Ceil(y1f/cs))-1, m.Side)
	if x1f <= 0 || y1f <= 0 || x0f >= float64(m.Side)*cs || y0f >= float64(m.Side)*cs {
		return false
	}
	changed := false
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			if m.subtract(cx+cy*m.Side, a) {
				changed = true
			}
		}
	}
	return changed
}

func clampCell(v, side int) int {
	if v < 0 {
		return 0
	}
	if v >= side {
		return side - 1
	}
	return v
}
