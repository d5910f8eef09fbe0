package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"fjordcraft.ai/internal/observerproto"
	"fjordcraft.ai/internal/sim/world"
)

// worldState is the body of GET /admin/v1/state.
type worldState struct {
	WorldID string        `json:"world_id"`
	Metrics world.Metrics `json:"metrics"`
}

// callAdmin sends one request to the server's admin API and decodes the JSON
// reply into out. The status code is returned even when decoding fails.
func callAdmin(baseURL, method, path string, timeout time.Duration, out any) (int, error) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return 0, err
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

func fetchState(baseURL string) (worldState, error) {
	var st worldState
	code, err := callAdmin(baseURL, http.MethodGet, "/admin/v1/state", 5*time.Second, &st)
	if err != nil {
		return st, err
	}
	if code/100 != 2 {
		return st, fmt.Errorf("status %d", code)
	}
	return st, nil
}

// requestSave asks the server to persist the world now. A reply with ok=false
// is an error even when the status is 2xx.
func requestSave(baseURL string) (observerproto.CommandResultMsg, error) {
	var res observerproto.CommandResultMsg
	code, err := callAdmin(baseURL, http.MethodPost, "/admin/v1/save", 10*time.Second, &res)
	if err != nil {
		return res, err
	}
	if !res.OK || code/100 != 2 {
		return res, fmt.Errorf("status %d: %s", code, res.Error)
	}
	return res, nil
}

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	asJSON := fs.Bool("json", false, "print the raw state document")
	_ = fs.Parse(args)

	st, err := fetchState(*baseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "state:", err)
		os.Exit(1)
	}
	if *asJSON {
		printJSON(st)
		return
	}
	m := st.Metrics
	fmt.Printf("world=%s tick=%d sim_time=%s\n", st.WorldID, m.Tick, time.Duration(m.SimTimeMs)*time.Millisecond)
	fmt.Printf("chunks loaded=%d  fog active_reveals=%d explored=%d\n", m.LoadedChunks, m.ActiveReveals, m.Explored)
	fmt.Printf("scouts=%d buildings=%d observers=%d step=%.3fms\n", m.Scouts, m.Buildings, m.Observers, m.StepMS)
}

func saveCmd(args []string) {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	if _, err := requestSave(*baseURL); err != nil {
		fmt.Fprintln(os.Stderr, "save failed:", err)
		os.Exit(1)
	}
	fmt.Println("saved")
}
