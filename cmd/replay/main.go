package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"fjordcraft.ai/internal/persistence/snapshot"
	"fjordcraft.ai/internal/sim/tuning"
	"fjordcraft.ai/internal/sim/world"
)

func main() {
	var (
		archivePath = flag.String("archive", "", "path to <save_time>.json.zst")
		eventsDir   = flag.String("events", "", "events dir containing events-*.jsonl.zst (optional)")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (empty uses built-in profiles)")
		profile     = flag.String("profile", "", "tuning profile name")
		ticks       = flag.Int("ticks", 0, "simulate this many ticks after restoring")
		framePath   = flag.String("frame", "", "write the restored camera view as PNG (optional)")
	)
	flag.Parse()

	if *archivePath == "" {
		fmt.Fprintln(os.Stderr, "missing -archive")
		os.Exit(2)
	}

	hdr, rec, err := snapshot.ReadArchive(*archivePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read archive:", err)
		os.Exit(1)
	}
	fmt.Printf("archive v%d world=%s save=%s seed=%v buildings=%d scouts=%d explored=%d fog_chunks=%d sim_time_ms=%d\n",
		hdr.Version, hdr.WorldID, hdr.SaveVersion, rec.Seed,
		len(rec.Buildings), len(rec.Scouts), len(rec.ExploredAreas), len(rec.FogOfWarData), rec.SimTimeMs)

	tf, err := tuning.Load(*tuningPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	prof, err := tf.Select(*profile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tuning:", err)
		os.Exit(1)
	}

	w, err := world.New(world.Config{ID: hdr.WorldID, Seed: rec.Seed, Tuning: prof}, world.Options{RenderLayers: *framePath != ""})
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}
	if err := w.Restore(rec); err != nil {
		fmt.Fprintln(os.Stderr, "restore:", err)
		os.Exit(1)
	}

	if *ticks > 0 {
		sum := w.StepN(*ticks, prof.TickInterval())
		fmt.Printf("stepped %d ticks: sim_time=%s loaded_chunks=%d active_reveals=%d explored=%d\n",
			*ticks, w.SimTime(), sum.LoadedChunks, sum.ActiveReveals, sum.Explored)
		town := w.Settlement()
		fmt.Printf("resources food=%.1f wood=%.1f iron=%.1f gold=%.1f population=%.0f\n",
			town.Resources.Food, town.Resources.Wood, town.Resources.Iron, town.Resources.Gold, town.Population)
	}

	if *framePath != "" {
		if err := writeFrame(w, *framePath); err != nil {
			fmt.Fprintln(os.Stderr, "frame:", err)
			os.Exit(1)
		}
		fmt.Printf("frame written to %s\n", *framePath)
	}

	if *eventsDir == "" {
		return
	}
	files, err := listEventFiles(*eventsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *eventsDir)
		os.Exit(1)
	}
	counts := map[string]int{}
	for _, path := range files {
		if err := countEvents(path, counts); err != nil {
			fmt.Fprintln(os.Stderr, "events:", err)
			os.Exit(1)
		}
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("%-16s %d\n", t, counts[t])
	}
}

func writeFrame(w *world.World, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, w.RenderFrame(0, 0)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func listEventFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "events-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func countEvents(path string, counts map[string]int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var e world.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		counts[e.Type]++
	}
	return sc.Err()
}
