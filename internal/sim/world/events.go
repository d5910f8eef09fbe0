package world

import "time"

// Event is one entry of the exploration history.
type Event struct {
	Tick      uint64  `json:"tick"`
	SimTimeMs int64   `json:"sim_time_ms"`
	Type      string  `json:"type"`
	Chunk     string  `json:"chunk,omitempty"`
	ScoutID   int     `json:"scout_id,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Radius    float64 `json:"radius,omitempty"`
	Building  string  `json:"building,omitempty"`
	Message   string  `json:"message,omitempty"`
}

const (
	EventChunkLoaded    = "chunk_loaded"
	EventChunkEvicted   = "chunk_evicted"
	EventReveal         = "reveal"
	EventScoutArrived   = "scout_arrived"
	EventBuildingPlaced = "building_placed"
	EventSaveWritten    = "save_written"
	EventSaveDiscarded  = "save_discarded"
	EventReset          = "reset"
)

// TickLogger receives one summary per step. Implemented in
// internal/persistence/log.
type TickLogger interface {
	WriteTick(TickSummary) error
}

// EventLogger receives notable events. Implemented in internal/persistence/log.
type EventLogger interface {
	WriteEvent(Event) error
}

// Notification is a player-facing message.
type Notification struct {
	Message string        `json:"message"`
	At      time.Duration `json:"at"`
}

const maxNotifications = 20

func (w *World) notify(msg string) {
	w.notes = append(w.notes, Notification{Message: msg, At: w.clock})
	if len(w.notes) > maxNotifications {
		w.notes = append(w.notes[:0], w.notes[len(w.notes)-maxNotifications:]...)
	}
}

func (w *World) emit(e Event) {
	if w.eventLogger == nil {
		return
	}
	e.Tick = w.tick.Load()
	e.SimTimeMs = w.clock.Milliseconds()
	if err := w.eventLogger.WriteEvent(e); err != nil {
		w.log.Printf("event log: %v", err)
	}
}

// Notifications returns the most recent player-facing messages, oldest first.
func (w *World) Notifications() []Notification {
	out := make([]Notification, len(w.notes))
	copy(out, w.notes)
	return out
}

// Status is the last load warning, empty when the session is clean.
func (w *World) Status() string { return w.status }
