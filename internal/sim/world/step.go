package world

import (
	"time"

	"fjordcraft.ai/internal/sim/terrain/store"
)

// TickSummary describes what one Step did.
type TickSummary struct {
	Tick          uint64 `json:"tick"`
	SimTimeMs     int64  `json:"sim_time_ms"`
	Loaded        int    `json:"loaded"`
	Evicted       int    `json:"evicted"`
	LoadedChunks  int    `json:"loaded_chunks"`
	Produced      int    `json:"produced"`
	Arrived       []int  `json:"arrived,omitempty"`
	ActiveReveals int    `json:"active_reveals"`
	Explored      int    `json:"explored"`
}

// Step advances the session by dt of simulation time. The order is fixed:
// clock, chunk window around the camera focus, production, scouts, fog.
func (w *World) Step(dt time.Duration) TickSummary {
	start := time.Now()
	if dt < 0 {
		dt = 0
	}
	w.clock += dt
	tick := w.tick.Add(1)

	focus := w.Focus()
	loaded := w.chunks.EnsureLoaded(focus)
	evicted := w.chunks.EvictDistant(focus)

	produced := w.town.Produce(w.clock, w.cfg.Tuning.ProductionInterval())

	arrived := w.fleet.Tick(dt, w.revealer())
	for _, id := range arrived {
		s, _ := w.fleet.Get(id)
		w.notify("Area explored!")
		w.emit(Event{Type: EventScoutArrived, ScoutID: id, X: s.Pos.X, Y: s.Pos.Y})
	}

	w.fog.Tick(w.clock)

	sum := TickSummary{
		Tick:          tick,
		SimTimeMs:     w.clock.Milliseconds(),
		Loaded:        len(loaded),
		Evicted:       len(evicted),
		LoadedChunks:  w.chunks.Len(),
		Produced:      produced,
		Arrived:       arrived,
		ActiveReveals: w.fog.Active(),
		Explored:      w.fog.ExploredCount(),
	}
	w.metrics.Store(Metrics{
		Tick:          tick,
		SimTimeMs:     sum.SimTimeMs,
		LoadedChunks:  sum.LoadedChunks,
		ActiveReveals: sum.ActiveReveals,
		Explored:      sum.Explored,
		Scouts:        w.fleet.Len(),
		Buildings:     len(w.town.Buildings),
		Observers:     len(w.observers),
		StepMS:        float64(time.Since(start).Microseconds()) / 1000,
	})
	if w.tickLogger != nil {
		if err := w.tickLogger.WriteTick(sum); err != nil {
			w.log.Printf("tick log: %v", err)
		}
	}
	w.stepObservers(sum, w.fog.TakeDirty())
	return sum
}

// Metrics is a read-only view of the last step, safe to read from any
// goroutine.
type Metrics struct {
	Tick          uint64  `json:"tick"`
	SimTimeMs     int64   `json:"sim_time_ms"`
	LoadedChunks  int     `json:"loaded_chunks"`
	ActiveReveals int     `json:"active_reveals"`
	Explored      int     `json:"explored"`
	Scouts        int     `json:"scouts"`
	Buildings     int     `json:"buildings"`
	Observers     int     `json:"observers"`
	StepMS        float64 `json:"step_ms"`
}

func (w *World) Metrics() Metrics {
	if m, ok := w.metrics.Load().(Metrics); ok {
		return m
	}
	return Metrics{}
}

// StepN runs n fixed steps and returns the last summary.
func (w *World) StepN(n int, dt time.Duration) TickSummary {
	var sum TickSummary
	for i := 0; i < n; i++ {
		sum = w.Step(dt)
	}
	return sum
}

// LoadedChunkKeys returns the loaded chunk keys in sorted order.
func (w *World) LoadedChunkKeys() []store.ChunkKey { return w.chunks.LoadedChunkKeys() }
