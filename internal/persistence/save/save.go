// Package save defines the persisted settlement record and its load-time
// validation.
package save

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	Version    = "1.0.1"
	StorageKey = "vikingSettlement"
)

var ErrCorrupt = errors.New("save data corrupted")

type Record struct {
	Version       string            `json:"version,omitempty"`
	Resources     Resources         `json:"resources"`
	Population    float64           `json:"population"`
	Buildings     []Building        `json:"buildings"`
	Camera        Camera            `json:"camera"`
	Scouts        []Scout           `json:"scouts"`
	Seed          float64           `json:"seed"`
	ExploredAreas []string          `json:"exploredAreas"`
	FogOfWarData  map[string]string `json:"fogOfWarData"`
	SaveTime      int64             `json:"saveTime"`

	// SimTimeMs is the simulation clock at save time. Legacy saves omit it.
	SimTimeMs int64 `json:"simTimeMs,omitempty"`
}

type Resources struct {
	Food float64 `json:"food"`
	Wood float64 `json:"wood"`
	Iron float64 `json:"iron"`
	Gold float64 `json:"gold"`
}

type Building struct {
	Type       string             `json:"type"`
	X          float64            `json:"x"`
	Y          float64            `json:"y"`
	Name       string             `json:"name,omitempty"`
	Icon       string             `json:"icon,omitempty"`
	Cost       map[string]float64 `json:"cost,omitempty"`
	Produces   map[string]float64 `json:"produces,omitempty"`
	Size       float64            `json:"size,omitempty"`
	Level      int                `json:"level"`
	Production float64            `json:"production"`
	LastUpdate int64              `json:"lastUpdate"`
}

type Camera struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Scout struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Speed     float64 `json:"speed"`
	Range     float64 `json:"range"`
	Health    float64 `json:"health"`
	Target    *Point  `json:"target"`
	Exploring bool    `json:"exploring"`
}

const schemaURL = "https://fjordcraft.ai/schemas/save.schema.json"

//go:embed save.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// ValidateSaveData checks the structural shape of a raw save. Any failure
// wraps ErrCorrupt.
func ValidateSaveData(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	s, err := compiled()
	if err != nil {
		return fmt.Errorf("save schema: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}

// Decode validates then unmarshals a raw save.
func Decode(raw []byte) (Record, error) {
	var rec Record
	if err := ValidateSaveData(raw); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return rec, nil
}

func Encode(rec Record) ([]byte, error) {
	if rec.Version == "" {
		rec.Version = Version
	}
	if rec.Buildings == nil {
		rec.Buildings = []Building{}
	}
	if rec.Scouts == nil {
		rec.Scouts = []Scout{}
	}
	if rec.ExploredAreas == nil {
		rec.ExploredAreas = []string{}
	}
	if rec.FogOfWarData == nil {
		rec.FogOfWarData = map[string]string{}
	}
	return json.Marshal(rec)
}

// CheckVersion returns a warning for legacy or mismatched saves and "" for
// current ones. A mismatch never blocks loading.
func CheckVersion(rec Record) string {
	switch rec.Version {
	case Version:
		return ""
	case "":
		return "Loading legacy save without version information"
	default:
		return fmt.Sprintf("Save version %s differs from game version %s, attempting to load anyway", rec.Version, Version)
	}
}
