package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"fjordcraft.ai/internal/sim/world"
)

func TestEventLoggerWritesCompressedJSONL(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLogger(dir)
	want := []world.Event{
		{Tick: 1, Type: world.EventChunkLoaded, Chunk: "0,0"},
		{Tick: 2, Type: world.EventReveal, X: 10, Y: 20, Radius: 80},
	}
	for _, e := range want {
		if err := l.WriteEvent(e); err != nil {
			t.Fatalf("WriteEvent: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "events", "events-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	var got []world.Event
	for sc.Scan() {
		var e world.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %+v", got)
	}
}

func readTicks(t *testing.T, dir string) []world.TickSummary {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "ticks", "ticks-*.jsonl.zst"))
	if err != nil || len(files) == 0 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	var out []world.TickSummary
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		dec, err := zstd.NewReader(f)
		if err != nil {
			t.Fatalf("zstd: %v", err)
		}
		sc := bufio.NewScanner(dec)
		for sc.Scan() {
			var s world.TickSummary
			if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
				t.Fatalf("line %q: %v", sc.Text(), err)
			}
			out = append(out, s)
		}
		dec.Close()
		_ = f.Close()
	}
	return out
}

func TestTickLoggerSamplesQuietTicks(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	l.Every = 10
	for tick := uint64(1); tick <= 25; tick++ {
		s := world.TickSummary{Tick: tick}
		if tick == 7 {
			s.Arrived = []int{1}
		}
		if err := l.WriteTick(s); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got := readTicks(t, dir)
	if len(got) != 3 || got[0].Tick != 7 || got[1].Tick != 10 || got[2].Tick != 20 {
		t.Fatalf("got %+v", got)
	}
}
