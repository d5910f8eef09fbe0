package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fjordcraft.ai/internal/observerproto"
	"fjordcraft.ai/internal/sim/world"
)

func TestFetchStateDecodesMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/admin/v1/state" {
			http.Error(w, "unexpected request", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"world_id": "fjord_1",
			"metrics":  world.Metrics{Tick: 120, LoadedChunks: 25, ActiveReveals: 3, Explored: 7},
		})
	}))
	defer srv.Close()

	st, err := fetchState(srv.URL + "/")
	if err != nil {
		t.Fatalf("fetchState: %v", err)
	}
	m := st.Metrics
	if st.WorldID != "fjord_1" || m.Tick != 120 || m.LoadedChunks != 25 || m.ActiveReveals != 3 || m.Explored != 7 {
		t.Fatalf("state=%+v", st)
	}
}

func TestFetchStateRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden"}`))
	}))
	defer srv.Close()

	if _, err := fetchState(srv.URL); err == nil {
		t.Fatalf("expected error for 403")
	}
}

func TestRequestSaveFailsOnNotOK(t *testing.T) {
	reply := observerproto.CommandResultMsg{Type: "COMMAND_RESULT", Command: "save", OK: true}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !reply.OK {
			w.WriteHeader(http.StatusInternalServerError)
		}
		_ = json.NewEncoder(w).Encode(reply)
	}))
	defer srv.Close()

	if _, err := requestSave(srv.URL); err != nil {
		t.Fatalf("ok save: %v", err)
	}

	reply.OK = false
	reply.Error = "disk full"
	res, err := requestSave(srv.URL)
	if err == nil {
		t.Fatalf("expected error when ok=false")
	}
	if res.Error != "disk full" {
		t.Fatalf("error text not decoded: %+v", res)
	}
}
