package world

import (
	"encoding/json"
	"fmt"
	"sort"

	"fjordcraft.ai/internal/observerproto"
	"fjordcraft.ai/internal/sim/economy"
	"fjordcraft.ai/internal/sim/terrain/gen"
	"fjordcraft.ai/internal/sim/terrain/store"
)

// ObserverJoinRequest registers a read-only observer session that receives:
// - per-tick session state (tickOut)
// - chunk tiles, fog refreshes and evictions (dataOut)
//
// All observer state is maintained by the world loop goroutine.
type ObserverJoinRequest struct {
	SessionID string
	TickOut   chan []byte
	DataOut   chan []byte

	ChunkRadius int
	MaxChunks   int
}

// ObserverSubscribeRequest updates an existing observer session subscription settings.
type ObserverSubscribeRequest struct {
	SessionID   string
	ChunkRadius int
	MaxChunks   int
}

type observerClient struct {
	id      string
	tickOut chan []byte
	dataOut chan []byte

	chunkRadius int
	maxChunks   int

	// Chunks whose CHUNK message was enqueued.
	sent map[store.ChunkKey]bool
}

func clampInt(v, lo, hi, def int) int {
	if v == 0 {
		v = def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.TickOut == nil || req.DataOut == nil {
		return
	}
	if old := w.observers[req.SessionID]; old != nil {
		close(old.tickOut)
		close(old.dataOut)
	}
	w.observers[req.SessionID] = &observerClient{
		id:          req.SessionID,
		tickOut:     req.TickOut,
		dataOut:     req.DataOut,
		chunkRadius: clampInt(req.ChunkRadius, 0, 8, 2),
		maxChunks:   clampInt(req.MaxChunks, 1, 1024, 256),
		sent:        map[store.ChunkKey]bool{},
	}
}

func (w *World) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := w.observers[req.SessionID]
	if c == nil {
		return
	}
	c.chunkRadius = clampInt(req.ChunkRadius, 0, 8, c.chunkRadius)
	c.maxChunks = clampInt(req.MaxChunks, 1, 1024, c.maxChunks)
}

func (w *World) handleObserverLeave(sessionID string) {
	c := w.observers[sessionID]
	if c == nil {
		return
	}
	delete(w.observers, sessionID)
	close(c.tickOut)
	close(c.dataOut)
}

// dropObserverChunks tells every observer to forget its chunks after the
// terrain was rebuilt.
func (w *World) dropObserverChunks() {
	for _, c := range w.observers {
		for k := range c.sent {
			w.trySendData(c, w.evictMsg(k))
		}
		c.sent = map[store.ChunkKey]bool{}
	}
}

func (w *World) stepObservers(sum TickSummary, dirty []store.ChunkKey) {
	if len(w.observers) == 0 {
		return
	}
	tickBytes, err := json.Marshal(w.tickMsg(sum))
	if err != nil {
		w.log.Printf("observer tick: %v", err)
		return
	}
	dirtySet := make(map[store.ChunkKey]bool, len(dirty))
	for _, k := range dirty {
		dirtySet[k] = true
	}

	ids := make([]string, 0, len(w.observers))
	for id := range w.observers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := w.observers[id]
		w.stepObserverChunks(c, dirtySet)
		sendLatest(c.tickOut, tickBytes)
	}
}

// wantedChunks lists loaded chunks within the client's radius of the focus
// chunk, nearest first, capped at maxChunks.
func (w *World) wantedChunks(c *observerClient) []store.ChunkKey {
	center := w.chunks.ChunkKeyAt(w.Focus())
	var out []store.ChunkKey
	for _, k := range w.chunks.LoadedChunkKeys() {
		if k.Chebyshev(center) <= c.chunkRadius {
			out = append(out, k)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Chebyshev(center) < out[j].Chebyshev(center)
	})
	if len(out) > c.maxChunks {
		out = out[:c.maxChunks]
	}
	return out
}

func (w *World) stepObserverChunks(c *observerClient, dirty map[store.ChunkKey]bool) {
	wanted := w.wantedChunks(c)
	want := make(map[store.ChunkKey]bool, len(wanted))
	for _, k := range wanted {
		want[k] = true
	}

	var stale []store.ChunkKey
	for k := range c.sent {
		if !want[k] {
			stale = append(stale, k)
		}
	}
	sortChunkKeys(stale)
	for _, k := range stale {
		if w.trySendData(c, w.evictMsg(k)) {
			delete(c.sent, k)
		}
	}

	for _, k := range wanted {
		if !c.sent[k] {
			b, ok := w.chunkMsg(k)
			if ok && w.trySendData(c, b) {
				c.sent[k] = true
			}
			continue
		}
		if !dirty[k] {
			continue
		}
		b, ok := w.fogMsg(k)
		if !ok || !w.trySendData(c, b) {
			// Resend the full chunk once there is room.
			delete(c.sent, k)
		}
	}
}

func (w *World) trySendData(c *observerClient, b []byte) bool {
	if b == nil {
		return false
	}
	select {
	case c.dataOut <- b:
		return true
	default:
		return false
	}
}

func (w *World) chunkMsg(k store.ChunkKey) ([]byte, bool) {
	enc := w.chunks.ExportLoadedChunks([]store.ChunkKey{k})
	if len(enc) == 0 {
		return nil, false
	}
	blob, _ := w.fog.Blob(k)
	msg := observerproto.ChunkMsg{
		Type:            "CHUNK",
		ProtocolVersion: observerproto.Version,
		CX:              k.CX,
		CY:              k.CY,
		TilesPerSide:    enc[0].TilesPerSide,
		TilesRLE:        enc[0].TilesRLE,
		FogSide:         w.cfg.Tuning.ChunkSize / w.fog.Config().CellSize,
		Fog:             blob,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, false
	}
	return b, true
}

func (w *World) fogMsg(k store.ChunkKey) ([]byte, bool) {
	blob, ok := w.fog.Blob(k)
	if !ok {
		return nil, false
	}
	b, err := json.Marshal(observerproto.FogMsg{
		Type:            "FOG",
		ProtocolVersion: observerproto.Version,
		CX:              k.CX,
		CY:              k.CY,
		Fog:             blob,
	})
	if err != nil {
		return nil, false
	}
	return b, true
}

func (w *World) evictMsg(k store.ChunkKey) []byte {
	b, _ := json.Marshal(observerproto.ChunkEvictMsg{
		Type:            "CHUNK_EVICT",
		ProtocolVersion: observerproto.Version,
		CX:              k.CX,
		CY:              k.CY,
	})
	return b
}

func (w *World) tickMsg(sum TickSummary) observerproto.TickMsg {
	msg := observerproto.TickMsg{
		Type:            "TICK",
		ProtocolVersion: observerproto.Version,
		Tick:            sum.Tick,
		SimTimeMs:       sum.SimTimeMs,
		Camera:          observerproto.Camera{X: w.camera.X, Y: w.camera.Y, Scale: w.camera.Scale},
		Resources: map[string]float64{
			"food": w.town.Resources.Food,
			"wood": w.town.Resources.Wood,
			"iron": w.town.Resources.Iron,
			"gold": w.town.Resources.Gold,
		},
		Population:    w.town.Population,
		Buildings:     len(w.town.Buildings),
		ActiveReveals: sum.ActiveReveals,
		Explored:      sum.Explored,
		LoadedChunks:  sum.LoadedChunks,
		Arrived:       sum.Arrived,
		Status:        w.status,
	}
	for _, s := range w.fleet.All() {
		st := observerproto.ScoutState{
			ID:    s.ID,
			Pos:   [2]float64{s.Pos.X, s.Pos.Y},
			State: s.State().String(),
			Range: s.Range,
		}
		if s.Target != nil {
			st.Target = &[2]float64{s.Target.X, s.Target.Y}
		}
		msg.Scouts = append(msg.Scouts, st)
	}
	return msg
}

// Bootstrap describes the world for observer clients.
func (w *World) Bootstrap() observerproto.BootstrapResponse {
	p := w.cfg.Tuning
	resp := observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		WorldID:         w.cfg.ID,
		Tick:            w.tick.Load(),
		WorldParams: observerproto.WorldParams{
			TickRateHz:   p.TickRateHz,
			ChunkSize:    p.ChunkSize,
			TileSize:     p.TileSize,
			FogCellSize:  w.fog.Config().CellSize,
			LoadRadius:   p.LoadRadius,
			UnloadRadius: p.UnloadRadius(),
			Seed:         w.seed,
			NoiseBackend: p.Noise.Backend,
			Octaves:      p.Noise.Octaves,
		},
	}
	for _, t := range gen.AllTileTypes() {
		props := t.Props()
		resp.TilePalette = append(resp.TilePalette, observerproto.TileInfo{
			ID:       int(t),
			Name:     props.Name,
			Biome:    props.Biome.String(),
			Color:    fmt.Sprintf("#%02x%02x%02x", props.Base.R, props.Base.G, props.Base.B),
			Blocking: props.Blocking,
		})
	}
	for _, kind := range economy.BuildingTypes() {
		d, _ := economy.GetBuildingData(kind)
		resp.Buildings = append(resp.Buildings, observerproto.BuildingInfo{
			Type:     kind,
			Name:     d.Name,
			Icon:     d.Icon,
			Cost:     d.Cost,
			Produces: d.Produces,
			Size:     d.Size,
		})
	}
	return resp
}

func sortChunkKeys(keys []store.ChunkKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CY < keys[j].CY
	})
}
