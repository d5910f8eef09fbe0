package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"fjordcraft.ai/internal/observerproto"
	"fjordcraft.ai/internal/sim/world"
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		resp, err := s.world.RequestBootstrap(r.Context())
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

// FrameHandler renders the current camera view as PNG. Optional w and h
// query parameters override the viewport size.
func (s *Server) FrameHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		width, _ := strconv.Atoi(r.URL.Query().Get("w"))
		height, _ := strconv.Atoi(r.URL.Query().Get("h"))

		img, err := s.world.RequestFrame(r.Context(), width, height)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			s.log.Printf("observer frame: %v", err)
			http.Error(rw, "encode failed", http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "image/png")
		_, _ = rw.Write(buf.Bytes())
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sub, reason := readSubscribe(conn)
		if reason != "" {
			closeWith(conn, websocket.ClosePolicyViolation, reason)
			return
		}

		sess := &session{
			id:      fmt.Sprintf("O%d", s.nextID.Add(1)),
			conn:    conn,
			tickOut: make(chan []byte, 8),
			dataOut: make(chan []byte, 4096),
			replies: make(chan []byte, 16),
		}
		select {
		case s.world.ObserverJoin() <- world.ObserverJoinRequest{
			SessionID:   sess.id,
			TickOut:     sess.tickOut,
			DataOut:     sess.dataOut,
			ChunkRadius: sub.ChunkRadius,
			MaxChunks:   sub.MaxChunks,
		}:
		default:
			closeWith(conn, websocket.CloseTryAgainLater, "server busy")
			return
		}
		defer func() {
			select {
			case s.world.ObserverLeave() <- sess.id:
			default:
			}
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- sess.pump(ctx) }()

		s.readLoop(ctx, sess)

		cancel()
		closeWith(conn, websocket.CloseNormalClosure, "bye")
		select {
		case <-done:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// session is one observer connection. Only pump writes to conn.
type session struct {
	id      string
	conn    *websocket.Conn
	tickOut chan []byte
	dataOut chan []byte
	replies chan []byte
}

// readSubscribe waits for the opening SUBSCRIBE. A non-empty reason means the
// handshake failed.
func readSubscribe(conn *websocket.Conn) (observerproto.SubscribeMsg, string) {
	var sub observerproto.SubscribeMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return sub, "no subscribe"
	}
	if err := json.Unmarshal(raw, &sub); err != nil {
		return sub, "bad subscribe"
	}
	if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
		return sub, "expected SUBSCRIBE"
	}
	normalizeSubscribe(&sub)
	return sub, ""
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}

// pump forwards world output and command replies to the socket until the
// world closes the session or ctx ends.
func (sess *session) pump(ctx context.Context) error {
	for {
		var b []byte
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok = <-sess.dataOut:
		case b, ok = <-sess.tickOut:
		case b = <-sess.replies:
			ok = true
		}
		if !ok {
			return nil
		}
		_ = sess.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := sess.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return err
		}
	}
}

// readLoop handles SUBSCRIBE updates and COMMAND input until the client goes
// away.
func (s *Server) readLoop(ctx context.Context, sess *session) {
	for {
		_ = sess.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, raw, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}
		var env struct {
			Type            string `json:"type"`
			ProtocolVersion string `json:"protocol_version"`
		}
		if err := json.Unmarshal(raw, &env); err != nil || env.ProtocolVersion != observerproto.Version {
			continue
		}
		switch env.Type {
		case "SUBSCRIBE":
			var sub observerproto.SubscribeMsg
			if err := json.Unmarshal(raw, &sub); err != nil {
				continue
			}
			normalizeSubscribe(&sub)
			select {
			case s.world.ObserverSubscribe() <- world.ObserverSubscribeRequest{
				SessionID:   sess.id,
				ChunkRadius: sub.ChunkRadius,
				MaxChunks:   sub.MaxChunks,
			}:
			default:
				// Dropped under load; the client may resend.
			}
		case "COMMAND":
			var cmd observerproto.CommandMsg
			if err := json.Unmarshal(raw, &cmd); err != nil {
				continue
			}
			s.handleCommand(ctx, cmd, sess.replies)
		}
	}
}

func (s *Server) handleCommand(ctx context.Context, cmd observerproto.CommandMsg, out chan<- []byte) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	res, err := s.world.Submit(cctx, cmd)
	if err != nil {
		res = observerproto.CommandResultMsg{
			Type:            "COMMAND_RESULT",
			ProtocolVersion: observerproto.Version,
			ID:              cmd.ID,
			Command:         cmd.Command,
			Error:           err.Error(),
		}
	}
	if !res.OK {
		s.log.Printf("observer command %s: %s", cmd.Command, res.Error)
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	select {
	case out <- b:
	case <-ctx.Done():
	}
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if sub.ChunkRadius <= 0 {
		sub.ChunkRadius = 2
	}
	if sub.ChunkRadius > 8 {
		sub.ChunkRadius = 8
	}
	if sub.MaxChunks <= 0 {
		sub.MaxChunks = 256
	}
	if sub.MaxChunks > 1024 {
		sub.MaxChunks = 1024
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
