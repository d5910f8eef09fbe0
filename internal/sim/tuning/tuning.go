package tuning

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProfileDesktop = "desktop"
	ProfileMobile  = "mobile"
)

// File is the on-disk tuning document: a default profile name plus named
// engine profiles.
type File struct {
	Profile  string             `yaml:"profile"`
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile carries every engine constant that differs between clients.
type Profile struct {
	ChunkSize    int     `yaml:"chunk_size"`
	TileSize     int     `yaml:"tile_size"`
	LoadRadius   int     `yaml:"load_radius"`
	UnloadMargin int     `yaml:"unload_margin"`
	FogCellSize  int     `yaml:"fog_cell_size"`
	FogOpacity   float64 `yaml:"fog_opacity"`

	RevealDurationMs int `yaml:"reveal_duration_ms"`

	Noise      Noise   `yaml:"noise"`
	BiomeScale float64 `yaml:"biome_scale"`

	Scout Scout `yaml:"scout"`

	ProductionIntervalMs int `yaml:"production_interval_ms"`

	Viewport   Viewport `yaml:"viewport"`
	TickRateHz int      `yaml:"tick_rate_hz"`
}

type Noise struct {
	Backend string `yaml:"backend"`
	Octaves int    `yaml:"octaves"`
}

type Scout struct {
	Speed         float64 `yaml:"speed"`
	Range         float64 `yaml:"range"`
	Health        float64 `yaml:"health"`
	ArriveEpsilon float64 `yaml:"arrive_epsilon"`
	InitialReveal float64 `yaml:"initial_reveal"`
	ArrivalFactor float64 `yaml:"arrival_factor"`
}

type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

func (p Profile) UnloadRadius() int { return p.LoadRadius + p.UnloadMargin }

func (p Profile) RevealDuration() time.Duration {
	return time.Duration(p.RevealDurationMs) * time.Millisecond
}

func (p Profile) ProductionInterval() time.Duration {
	return time.Duration(p.ProductionIntervalMs) * time.Millisecond
}

func (p Profile) TickInterval() time.Duration {
	if p.TickRateHz <= 0 {
		return 0
	}
	return time.Second / time.Duration(p.TickRateHz)
}

func Desktop() Profile {
	return Profile{
		ChunkSize:            512,
		TileSize:             32,
		LoadRadius:           3,
		UnloadMargin:         2,
		FogCellSize:          4,
		FogOpacity:           0.9,
		RevealDurationMs:     1000,
		Noise:                Noise{Backend: "trig", Octaves: 4},
		BiomeScale:           0.003,
		Scout:                defaultScout(),
		ProductionIntervalMs: 3000,
		Viewport:             Viewport{Width: 1280, Height: 720},
		TickRateHz:           30,
	}
}

func Mobile() Profile {
	return Profile{
		ChunkSize:            256,
		TileSize:             16,
		LoadRadius:           2,
		UnloadMargin:         1,
		FogCellSize:          4,
		FogOpacity:           0.9,
		RevealDurationMs:     1000,
		Noise:                Noise{Backend: "trig", Octaves: 3},
		BiomeScale:           0.003,
		Scout:                defaultScout(),
		ProductionIntervalMs: 3000,
		Viewport:             Viewport{Width: 390, Height: 844},
		TickRateHz:           30,
	}
}

func defaultScout() Scout {
	return Scout{Speed: 30, Range: 60, Health: 100, ArriveEpsilon: 5, InitialReveal: 80, ArrivalFactor: 1.5}
}

func defaults() File {
	return File{
		Profile: ProfileDesktop,
		Profiles: map[string]Profile{
			ProfileDesktop: Desktop(),
			ProfileMobile:  Mobile(),
		},
	}
}

// Defaults returns the built-in desktop and mobile profiles.
func Defaults() File {
	f := defaults()
	f.Normalize()
	return f
}

// Normalize settles the default profile name and canonicalises noise
// backends. Field values are left as decoded.
func (f *File) Normalize() {
	f.Profile = strings.TrimSpace(f.Profile)
	if f.Profile == "" {
		f.Profile = ProfileDesktop
	}
	if f.Profiles == nil {
		f.Profiles = map[string]Profile{}
	}
	for name, p := range f.Profiles {
		p.Noise.Backend = strings.ToLower(strings.TrimSpace(p.Noise.Backend))
		if p.Noise.Backend == "" {
			p.Noise.Backend = baseFor(name).Noise.Backend
		}
		f.Profiles[name] = p
	}
}

// baseFor is the built-in profile a named profile starts from: mobile for
// "mobile", desktop otherwise.
func baseFor(name string) Profile {
	if name == ProfileMobile {
		return Mobile()
	}
	return Desktop()
}

// fileDoc defers profile decoding so each profile can be decoded on top of
// its built-in base. Keys absent from the file keep the base value; keys
// present, zero included, win.
type fileDoc struct {
	Profile  string               `yaml:"profile"`
	Profiles map[string]yaml.Node `yaml:"profiles"`
}

func decodeFile(raw []byte, f *File) error {
	var doc fileDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc.Profile != "" {
		f.Profile = doc.Profile
	}
	names := make([]string, 0, len(doc.Profiles))
	for name := range doc.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		node := doc.Profiles[name]
		p := baseFor(name)
		if err := node.Decode(&p); err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
		f.Profiles[name] = p
	}
	return nil
}

func (f File) Validate() error {
	if len(f.Profiles) == 0 {
		return errors.New("no profiles")
	}
	if _, ok := f.Profiles[f.Profile]; !ok {
		return fmt.Errorf("default profile %q not defined", f.Profile)
	}
	names := make([]string, 0, len(f.Profiles))
	for name := range f.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := f.Profiles[name].Validate(); err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
	}
	return nil
}

func (p Profile) Validate() error {
	switch {
	case p.ChunkSize <= 0 || p.TileSize <= 0:
		return errors.New("chunk_size and tile_size must be positive")
	case p.ChunkSize%p.TileSize != 0:
		return fmt.Errorf("chunk_size %d not a multiple of tile_size %d", p.ChunkSize, p.TileSize)
	case p.FogCellSize <= 0 || p.ChunkSize%p.FogCellSize != 0:
		return fmt.Errorf("chunk_size %d not a multiple of fog_cell_size %d", p.ChunkSize, p.FogCellSize)
	case p.LoadRadius < 0 || p.UnloadMargin < 0:
		return errors.New("load_radius and unload_margin must be >= 0")
	case p.FogOpacity <= 0 || p.FogOpacity > 1:
		return fmt.Errorf("fog_opacity %v out of (0,1]", p.FogOpacity)
	case p.RevealDurationMs <= 0 || p.ProductionIntervalMs <= 0:
		return errors.New("durations must be positive")
	case p.Noise.Octaves < 1 || p.Noise.Octaves > 8:
		return fmt.Errorf("noise.octaves %d out of [1,8]", p.Noise.Octaves)
	case p.Noise.Backend != "trig" && p.Noise.Backend != "simplex":
		return fmt.Errorf("unknown noise.backend %q", p.Noise.Backend)
	case p.BiomeScale <= 0:
		return errors.New("biome_scale must be positive")
	case p.Scout.Speed <= 0 || p.Scout.Range <= 0 || p.Scout.ArriveEpsilon <= 0:
		return errors.New("scout speed, range and arrive_epsilon must be positive")
	case p.TickRateHz <= 0 || p.TickRateHz > 240:
		return fmt.Errorf("tick_rate_hz %d out of (0,240]", p.TickRateHz)
	}
	return nil
}

// Select returns the named profile, or the file's default for "".
func (f File) Select(name string) (Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = f.Profile
	}
	p, ok := f.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown tuning profile %q", name)
	}
	return p, nil
}

// Load reads a tuning file. An empty path yields the built-in profiles.
func Load(path string) (File, error) {
	f := defaults()
	if strings.TrimSpace(path) == "" {
		f.Normalize()
		return f, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := decodeFile(raw, &f); err != nil {
		return f, fmt.Errorf("tuning.yaml: %w", err)
	}
	f.Normalize()
	if err := f.Validate(); err != nil {
		return f, fmt.Errorf("tuning.yaml: %w", err)
	}
	return f, nil
}
