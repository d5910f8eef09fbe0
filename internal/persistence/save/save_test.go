package save

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func validRecord() Record {
	return Record{
		Version:    Version,
		Resources:  Resources{Food: 100, Wood: 50, Iron: 25, Gold: 10},
		Population: 5,
		Buildings: []Building{{
			Type: "farm", X: 10, Y: 20, Name: "Farm", Size: 40, Level: 1, LastUpdate: 3000,
			Cost: map[string]float64{"wood": 15}, Produces: map[string]float64{"food": 2},
		}},
		Camera:        Camera{X: 1, Y: 2, Scale: 1},
		Scouts:        []Scout{{X: 3, Y: 4, Speed: 30, Range: 60, Health: 100, Target: &Point{X: 9, Y: 9}, Exploring: true}},
		Seed:          42,
		ExploredAreas: []string{"0,0", "32,0"},
		FogOfWarData:  map[string]string{"0,0": "AAAA"},
		SaveTime:      1700000000000,
	}
}

func TestEncodeDecodeValid(t *testing.T) {
	raw, err := Encode(validRecord())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	rec, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rec.Seed != 42 || rec.Scouts[0].Target == nil || rec.Scouts[0].Target.X != 9 || rec.Buildings[0].Type != "farm" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if w := CheckVersion(rec); w != "" {
		t.Fatalf("current version warned: %s", w)
	}
}

func mutate(t *testing.T, fn func(m map[string]any)) []byte {
	t.Helper()
	raw, _ := Encode(validRecord())
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	fn(m)
	out, _ := json.Marshal(m)
	return out
}

func TestValidateRejectsMissingPopulation(t *testing.T) {
	raw := mutate(t, func(m map[string]any) { delete(m, "population") })
	if err := ValidateSaveData(raw); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestValidateRejectsStringPopulation(t *testing.T) {
	raw := mutate(t, func(m map[string]any) { m["population"] = "5" })
	if _, err := Decode(raw); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestValidateStructuralChecks(t *testing.T) {
	cases := map[string]func(m map[string]any){
		"resources not object": func(m map[string]any) { m["resources"] = []any{} },
		"wood missing":         func(m map[string]any) { delete(m["resources"].(map[string]any), "wood") },
		"buildings not array":  func(m map[string]any) { m["buildings"] = map[string]any{} },
		"camera scale string":  func(m map[string]any) { m["camera"].(map[string]any)["scale"] = "1" },
		"scouts missing":       func(m map[string]any) { delete(m, "scouts") },
		"seed string":          func(m map[string]any) { m["seed"] = "42" },
	}
	for name, fn := range cases {
		if err := ValidateSaveData(mutate(t, fn)); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
	if err := ValidateSaveData([]byte("{not json")); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("garbage: expected ErrCorrupt, got %v", err)
	}
}

func TestLegacyAndMismatchedVersionsLoad(t *testing.T) {
	raw := mutate(t, func(m map[string]any) { delete(m, "version"); delete(m, "exploredAreas"); delete(m, "fogOfWarData") })
	rec, err := Decode(raw)
	if err != nil {
		t.Fatalf("legacy save rejected: %v", err)
	}
	if w := CheckVersion(rec); !strings.Contains(w, "legacy") {
		t.Fatalf("legacy warning=%q", w)
	}
	rec.Version = "0.9"
	if w := CheckVersion(rec); !strings.Contains(w, "0.9") {
		t.Fatalf("mismatch warning=%q", w)
	}
}

func TestEncodeEmptyRecordValidates(t *testing.T) {
	raw, err := Encode(Record{Camera: Camera{Scale: 1}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := ValidateSaveData(raw); err != nil {
		t.Fatalf("empty record should validate: %v", err)
	}
}
