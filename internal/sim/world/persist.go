package world

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fjordcraft.ai/internal/persistence/kvstore"
	"fjordcraft.ai/internal/persistence/save"
	"fjordcraft.ai/internal/sim/economy"
	"fjordcraft.ai/internal/sim/scouts"
	"fjordcraft.ai/internal/sim/terrain/gen"
)

// Record captures the session as a persisted save.
func (w *World) Record() save.Record {
	rec := save.Record{
		Version: save.Version,
		Resources: save.Resources{
			Food: w.town.Resources.Food,
			Wood: w.town.Resources.Wood,
			Iron: w.town.Resources.Iron,
			Gold: w.town.Resources.Gold,
		},
		Population:    w.town.Population,
		Buildings:     make([]save.Building, 0, len(w.town.Buildings)),
		Camera:        save.Camera{X: w.camera.X, Y: w.camera.Y, Scale: w.camera.Scale},
		Scouts:        make([]save.Scout, 0, w.fleet.Len()),
		Seed:          w.seed,
		ExploredAreas: w.fog.ExploredKeys(),
		FogOfWarData:  w.fog.ExportBlobs(),
		SaveTime:      w.now().UnixMilli(),
		SimTimeMs:     w.clock.Milliseconds(),
	}
	for _, b := range w.town.Buildings {
		d := b.Data()
		rec.Buildings = append(rec.Buildings, save.Building{
			Type:       b.Type,
			X:          b.Pos.X,
			Y:          b.Pos.Y,
			Name:       d.Name,
			Icon:       d.Icon,
			Cost:       d.Cost,
			Produces:   d.Produces,
			Size:       d.Size,
			Level:      b.Level,
			Production: b.Production,
			LastUpdate: b.LastUpdate.Milliseconds(),
		})
	}
	for _, s := range w.fleet.All() {
		ss := save.Scout{
			X:         s.Pos.X,
			Y:         s.Pos.Y,
			Speed:     s.Speed,
			Range:     s.Range,
			Health:    s.Health,
			Exploring: s.Exploring,
		}
		if s.Target != nil {
			ss.Target = &save.Point{X: s.Target.X, Y: s.Target.Y}
		}
		rec.Scouts = append(rec.Scouts, ss)
	}
	return rec
}

// Save writes the session to the key-value store under save.StorageKey.
func (w *World) Save(ctx context.Context) (save.Record, error) {
	rec := w.Record()
	raw, err := save.Encode(rec)
	if err != nil {
		return rec, fmt.Errorf("encode save: %w", err)
	}
	if err := w.kv.Put(ctx, save.StorageKey, raw); err != nil {
		return rec, fmt.Errorf("write save: %w", err)
	}
	w.lastSave = w.clock
	w.notify("Game saved!")
	w.emit(Event{Type: EventSaveWritten, Message: fmt.Sprintf("%d bytes", len(raw))})
	return rec, nil
}

// Load restores the stored save. It reports false when there is nothing to
// load or the save was corrupt; a corrupt save is deleted and the session
// stays as it was.
func (w *World) Load(ctx context.Context) (bool, error) {
	raw, err := w.kv.Get(ctx, save.StorageKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read save: %w", err)
	}
	rec, err := save.Decode(raw)
	if errors.Is(err, save.ErrCorrupt) {
		w.log.Printf("load %s: %v; discarding", w.cfg.ID, err)
		if derr := w.kv.Delete(ctx, save.StorageKey); derr != nil && !errors.Is(derr, kvstore.ErrNotFound) {
			w.log.Printf("delete corrupt save: %v", derr)
		}
		w.notify("Save data corrupted, starting fresh")
		w.emit(Event{Type: EventSaveDiscarded, Message: err.Error()})
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := w.Restore(rec); err != nil {
		return false, err
	}
	w.notify("Game loaded successfully!")
	return true, nil
}

// Restore replaces the session with rec. Fog blobs are parked before any
// chunk loads so each chunk picks up its saved mask; chunks without one fall
// back to the explored-area approximation.
func (w *World) Restore(rec save.Record) error {
	w.status = save.CheckVersion(rec)
	if w.status != "" {
		w.log.Printf("load %s: %s", w.cfg.ID, w.status)
	}
	if err := w.rebuild(rec.Seed); err != nil {
		return err
	}
	w.clock = time.Duration(rec.SimTimeMs) * time.Millisecond
	w.lastSave = w.clock

	w.town = economy.NewSettlement()
	w.town.Resources = economy.Resources{
		Food: rec.Resources.Food,
		Wood: rec.Resources.Wood,
		Iron: rec.Resources.Iron,
		Gold: rec.Resources.Gold,
	}
	w.town.Population = rec.Population
	for _, b := range rec.Buildings {
		if _, ok := economy.GetBuildingData(b.Type); !ok {
			w.log.Printf("load %s: skipping unknown building %q", w.cfg.ID, b.Type)
			continue
		}
		last := time.Duration(b.LastUpdate) * time.Millisecond
		// Legacy saves stamp wall-clock milliseconds.
		if rec.SimTimeMs == 0 || last > w.clock {
			last = w.clock
		}
		level := b.Level
		if level <= 0 {
			level = 1
		}
		w.town.Buildings = append(w.town.Buildings, economy.Building{
			Type:       b.Type,
			Pos:        gen.Vec2{X: b.X, Y: b.Y},
			Level:      level,
			Production: b.Production,
			LastUpdate: last,
		})
	}

	w.camera = Camera{X: rec.Camera.X, Y: rec.Camera.Y, Scale: rec.Camera.Scale}
	if w.camera.Scale <= 0 {
		w.camera.Scale = 1
	}
	w.camera.Scale = gen.Clamp(w.camera.Scale, MinZoom, MaxZoom)

	if n := w.fog.RestoreExplored(rec.ExploredAreas); n > 0 {
		w.log.Printf("load %s: skipped %d explored keys", w.cfg.ID, n)
	}
	if n := w.fog.RestoreBlobs(rec.FogOfWarData); n > 0 {
		w.log.Printf("load %s: skipped %d fog blobs", w.cfg.ID, n)
	}
	w.chunks.EnsureLoaded(w.Focus())

	if len(rec.Scouts) == 0 {
		w.fleet.Spawn(w.Focus(), w.revealer())
		return nil
	}
	saved := make([]scouts.Scout, 0, len(rec.Scouts))
	for _, s := range rec.Scouts {
		sc := scouts.Scout{
			Pos:       gen.Vec2{X: s.X, Y: s.Y},
			Speed:     s.Speed,
			Range:     s.Range,
			Health:    s.Health,
			Exploring: s.Exploring,
		}
		if s.Target != nil {
			sc.Target = &gen.Vec2{X: s.Target.X, Y: s.Target.Y}
		}
		saved = append(saved, sc)
	}
	w.fleet.Restore(saved)
	return nil
}

// Reset starts a new map: new seed, starting settlement, one scout, and the
// stored save deleted.
func (w *World) Reset(ctx context.Context) error {
	if err := w.rebuild(w.seedSrc()); err != nil {
		return err
	}
	w.town = economy.NewSettlement()
	w.camera = Camera{Scale: 1}
	w.status = ""
	w.chunks.EnsureLoaded(w.Focus())
	w.fleet.Spawn(w.Focus(), w.revealer())

	if err := w.kv.Delete(ctx, save.StorageKey); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return fmt.Errorf("delete save: %w", err)
	}
	w.emit(Event{Type: EventReset, Message: fmt.Sprintf("seed %.0f", w.seed)})
	return nil
}
