package world

import (
	"context"
	"encoding/json"
	"testing"

	"fjordcraft.ai/internal/observerproto"
	"fjordcraft.ai/internal/sim/fog"
	"fjordcraft.ai/internal/sim/terrain/gen"
	"fjordcraft.ai/internal/sim/terrain/store"
)

func drain(ch chan []byte) []map[string]any {
	var out []map[string]any
	for {
		select {
		case b := <-ch:
			var m map[string]any
			if err := json.Unmarshal(b, &m); err == nil {
				m["_raw"] = string(b)
				out = append(out, m)
			}
		default:
			return out
		}
	}
}

func countType(msgs []map[string]any, typ string) int {
	n := 0
	for _, m := range msgs {
		if m["type"] == typ {
			n++
		}
	}
	return n
}

func TestObserverStreamsChunksFogAndTicks(t *testing.T) {
	w := newTestWorld(t, 42, Options{})
	tickOut := make(chan []byte, 1)
	dataOut := make(chan []byte, 256)
	w.handleObserverJoin(ObserverJoinRequest{SessionID: "O1", TickOut: tickOut, DataOut: dataOut, ChunkRadius: 1})

	w.Step(dt)
	msgs := drain(dataOut)
	if got := countType(msgs, "CHUNK"); got != 9 {
		t.Fatalf("CHUNK messages=%d want 9", got)
	}
	var first observerproto.ChunkMsg
	if err := json.Unmarshal([]byte(msgs[0]["_raw"].(string)), &first); err != nil {
		t.Fatalf("decode chunk: %v", err)
	}
	// Nearest chunk first: the one under the camera focus.
	if first.CX != 1 || first.CY != 0 {
		t.Fatalf("first chunk=%d,%d", first.CX, first.CY)
	}
	ids, err := store.DecodeTileIDs(store.EncodedChunk{
		Key:          store.ChunkKey{CX: first.CX, CY: first.CY},
		TilesPerSide: first.TilesPerSide,
		TilesRLE:     first.TilesRLE,
	})
	if err != nil || len(ids) != 256 {
		t.Fatalf("tiles: len=%d err=%v", len(ids), err)
	}
	m, err := fog.DecodeMask(first.Fog, first.FogSide)
	if err != nil || m.Side != 128 {
		t.Fatalf("fog: %v", err)
	}

	var tick observerproto.TickMsg
	if err := json.Unmarshal(<-tickOut, &tick); err != nil {
		t.Fatalf("decode tick: %v", err)
	}
	if tick.Type != "TICK" || tick.Tick != 1 || len(tick.Scouts) != 1 || tick.LoadedChunks != 9 {
		t.Fatalf("tick=%+v", tick)
	}
	if tick.Resources["food"] != 100 || tick.Population != 5 {
		t.Fatalf("tick economy=%+v", tick)
	}

	// The initial reveal keeps clearing the focus chunk.
	w.Step(dt)
	msgs = drain(dataOut)
	if countType(msgs, "FOG") == 0 || countType(msgs, "CHUNK") != 0 {
		t.Fatalf("second step: fog=%d chunk=%d", countType(msgs, "FOG"), countType(msgs, "CHUNK"))
	}

	w.MoveCamera(20000, 20000)
	w.Step(dt)
	msgs = drain(dataOut)
	if countType(msgs, "CHUNK_EVICT") != 9 || countType(msgs, "CHUNK") != 9 {
		t.Fatalf("after move: evict=%d chunk=%d", countType(msgs, "CHUNK_EVICT"), countType(msgs, "CHUNK"))
	}

	w.handleObserverLeave("O1")
	if _, ok := <-tickOut; ok {
		// Drain the buffered tick, then the channel must be closed.
		if _, ok := <-tickOut; ok {
			t.Fatalf("tick channel not closed")
		}
	}
}

func TestObserverResubscribeAndReset(t *testing.T) {
	w := newTestWorld(t, 42, Options{SeedSource: func() float64 { return 5 }})
	tickOut := make(chan []byte, 1)
	dataOut := make(chan []byte, 256)
	w.handleObserverJoin(ObserverJoinRequest{SessionID: "O1", TickOut: tickOut, DataOut: dataOut, ChunkRadius: 1})
	w.Step(dt)
	drain(dataOut)

	w.handleObserverSubscribe(ObserverSubscribeRequest{SessionID: "O1", MaxChunks: 1})
	w.Step(dt)
	msgs := drain(dataOut)
	if got := countType(msgs, "CHUNK_EVICT"); got != 8 {
		t.Fatalf("evictions after shrinking max_chunks=%d want 8", got)
	}

	if err := w.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	msgs = drain(dataOut)
	if got := countType(msgs, "CHUNK_EVICT"); got != 1 {
		t.Fatalf("evictions on reset=%d want 1", got)
	}
	w.Step(dt)
	msgs = drain(dataOut)
	if got := countType(msgs, "CHUNK"); got != 1 {
		t.Fatalf("chunks after reset=%d want 1", got)
	}
}

func TestRunServesRequests(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := newTestWorld(t, 42, Options{})
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	res, err := w.Submit(ctx, observerproto.CommandMsg{Command: "send_scout", X: 900, Y: 400})
	if err != nil || !res.OK {
		t.Fatalf("Submit: %+v err=%v", res, err)
	}
	boot, err := w.RequestBootstrap(ctx)
	if err != nil {
		t.Fatalf("RequestBootstrap: %v", err)
	}
	if boot.WorldID != "test" || boot.WorldParams.ChunkSize != 512 || len(boot.TilePalette) != len(gen.AllTileTypes()) || len(boot.Buildings) != 6 {
		t.Fatalf("bootstrap=%+v", boot.WorldParams)
	}
	img, err := w.RequestFrame(ctx, 64, 48)
	if err != nil || img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Fatalf("frame: %v", err)
	}

	w.Stop()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := w.Submit(ctx, observerproto.CommandMsg{Command: "save"}); err == nil {
		t.Fatalf("Submit after Stop should fail")
	}
}
