package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fjordcraft.ai/internal/persistence/save"
)

func TestArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec := save.Record{
		Resources:     save.Resources{Food: 1, Wood: 2, Iron: 3, Gold: 4},
		Population:    7,
		Camera:        save.Camera{X: 10, Y: 20, Scale: 1.5},
		Scouts:        []save.Scout{{X: 1, Y: 2, Speed: 30, Range: 60}},
		Seed:          1234.5,
		ExploredAreas: []string{"0,0"},
		FogOfWarData:  map[string]string{"0,0": "blob"},
		SaveTime:      1700000000123,
	}
	path := ArchivePath(filepath.Join(dir, "snapshots"), rec.SaveTime)
	if filepath.Base(path) != "1700000000123.json.zst" {
		t.Fatalf("path=%s", path)
	}
	if err := WriteArchive(path, "main", rec); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
	hdr, got, err := ReadArchive(path)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if hdr.WorldID != "main" || hdr.Seed != 1234.5 || hdr.SaveVersion != save.Version {
		t.Fatalf("header=%+v", hdr)
	}
	if got.Population != 7 || got.Camera.Scale != 1.5 || got.FogOfWarData["0,0"] != "blob" {
		t.Fatalf("record=%+v", got)
	}
}

func TestReadArchiveRejectsPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.json.zst")
	if err := os.WriteFile(path, []byte("not zstd"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := ReadArchive(path); err == nil {
		t.Fatalf("expected error")
	}
	if _, _, err := ReadArchive(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}
