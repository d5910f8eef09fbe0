package observer

import (
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"fjordcraft.ai/internal/observerproto"
	"fjordcraft.ai/internal/sim/tuning"
	"fjordcraft.ai/internal/sim/world"
)

func startWorld(t *testing.T) (*world.World, *httptest.Server) {
	t.Helper()
	p := tuning.Desktop()
	p.LoadRadius = 1
	p.UnloadMargin = 1
	w, err := world.New(world.Config{ID: "obs", Seed: 42, Tuning: p}, world.Options{})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()

	s := NewServer(w, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/observer/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/v1/observer/frame.png", s.FrameHandler())
	mux.HandleFunc("/v1/observer/ws", s.WSHandler())
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return w, srv
}

func TestBootstrapAndFrame(t *testing.T) {
	_, srv := startWorld(t)

	resp, err := http.Get(srv.URL + "/v1/observer/bootstrap")
	if err != nil {
		t.Fatalf("GET bootstrap: %v", err)
	}
	defer resp.Body.Close()
	var boot observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&boot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if boot.WorldID != "obs" || boot.WorldParams.Seed != 42 || boot.WorldParams.TileSize != 32 || len(boot.TilePalette) == 0 {
		t.Fatalf("bootstrap=%+v", boot)
	}

	fr, err := http.Get(srv.URL + "/v1/observer/frame.png?w=40&h=30")
	if err != nil {
		t.Fatalf("GET frame: %v", err)
	}
	defer fr.Body.Close()
	if ct := fr.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content-type=%q", ct)
	}
	img, err := png.Decode(fr.Body)
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Fatalf("frame size=%v", b)
	}
}

func TestWSSubscribeAndCommand(t *testing.T) {
	w, srv := startWorld(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, ChunkRadius: 1}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	seen := map[string]int{}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for seen["TICK"] == 0 || seen["CHUNK"] < 9 {
		var m struct {
			Type string `json:"type"`
		}
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v (seen %v)", err, seen)
		}
		seen[m.Type]++
	}

	cmd := observerproto.CommandMsg{
		Type:            "COMMAND",
		ProtocolVersion: observerproto.Version,
		ID:              "z1",
		Command:         "set_zoom",
		Scale:           1.5,
	}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("command: %v", err)
	}
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read result: %v", err)
		}
		var res observerproto.CommandResultMsg
		if err := json.Unmarshal(raw, &res); err != nil || res.Type != "COMMAND_RESULT" {
			continue
		}
		if !res.OK || res.ID != "z1" {
			t.Fatalf("result=%+v", res)
		}
		break
	}
	if w.ID() != "obs" {
		t.Fatalf("world id=%q", w.ID())
	}
}

func TestNonLoopbackForbidden(t *testing.T) {
	s := NewServer(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/observer/bootstrap", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rec := httptest.NewRecorder()
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("code=%d", rec.Code)
	}
	if !isLoopbackRemote("[::1]:80") || isLoopbackRemote("192.168.0.1:80") {
		t.Fatalf("isLoopbackRemote mismatch")
	}
}
