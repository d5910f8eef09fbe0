package world

import (
	"log"
	"time"

	"fjordcraft.ai/internal/persistence/kvstore"
	"fjordcraft.ai/internal/sim/tuning"
)

type Config struct {
	ID     string
	Seed   float64
	Tuning tuning.Profile
}

// Options carries the collaborators a world needs besides its config. Every
// field is optional.
type Options struct {
	Store  kvstore.Store
	Logger *log.Logger

	TickLogger  TickLogger
	EventLogger EventLogger

	// Now supplies wall-clock time for save timestamps.
	Now func() time.Time
	// SeedSource picks the seed for Reset.
	SeedSource func() float64

	// RenderLayers builds base and detail raster layers for every loaded
	// chunk. Headless servers leave it off.
	RenderLayers bool

	// SaveEvery autosaves from Run on the simulation clock. Zero disables.
	SaveEvery time.Duration
}
