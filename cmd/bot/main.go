package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"fjordcraft.ai/internal/observerproto"
)

// bot is an observer client that keeps the first scout exploring: whenever it
// goes idle it is sent to a random point around its current position.
func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/observer/ws", "observer ws url")
		radius = flag.Float64("radius", 800, "max distance of each exploration hop in world units")
		every  = flag.Uint64("every", 30, "consider a new hop every N ticks")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := observerproto.SubscribeMsg{
		Type:            "SUBSCRIBE",
		ProtocolVersion: observerproto.Version,
		ChunkRadius:     1,
		MaxChunks:       1,
	}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	var seq int
	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}
		switch base.Type {
		case "TICK":
			var tick observerproto.TickMsg
			if err := json.Unmarshal(msg, &tick); err != nil {
				continue
			}
			if len(tick.Arrived) > 0 {
				logger.Printf("tick=%d arrived=%v explored=%d", tick.Tick, tick.Arrived, tick.Explored)
			}
			if *every == 0 || tick.Tick%*every != 0 {
				continue
			}
			cmd, ok := nextHop(&tick, r, *radius)
			if !ok {
				continue
			}
			seq++
			cmd.ID = fmt.Sprintf("hop_%d", seq)
			_ = conn.WriteJSON(cmd)

		case "COMMAND_RESULT":
			var res observerproto.CommandResultMsg
			if err := json.Unmarshal(msg, &res); err != nil {
				continue
			}
			if !res.OK {
				logger.Printf("%s %s failed: %s", res.ID, res.Command, res.Error)
			}
		}
	}
}

func nextHop(tick *observerproto.TickMsg, r *rand.Rand, radius float64) (observerproto.CommandMsg, bool) {
	for _, s := range tick.Scouts {
		if s.State != "idle" {
			continue
		}
		a := r.Float64() * 2 * math.Pi
		d := radius * (0.5 + 0.5*r.Float64())
		return observerproto.CommandMsg{
			Type:            "COMMAND",
			ProtocolVersion: observerproto.Version,
			Command:         "send_scout",
			ScoutID:         s.ID,
			X:               s.Pos[0] + d*math.Cos(a),
			Y:               s.Pos[1] + d*math.Sin(a),
		}, true
	}
	return observerproto.CommandMsg{}, false
}
