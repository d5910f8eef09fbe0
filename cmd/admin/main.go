package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fjordcraft.ai/internal/persistence/kvstore"
	"fjordcraft.ai/internal/persistence/save"
	"fjordcraft.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "archives":
			archivesCmd(os.Args[2:])
			return
		case "restore":
			restoreCmd(os.Args[2:])
			return
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "save":
			saveCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "worlds"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

func openWorldDB(dataDir, worldID string) *kvstore.SQLiteStore {
	if strings.TrimSpace(worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	db, err := kvstore.OpenSQLite(filepath.Join(dataDir, "worlds", worldID, "world.sqlite"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open db:", err)
		os.Exit(1)
	}
	return db
}

func archivesCmd(args []string) {
	fs := flag.NewFlagSet("archives", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	limit := fs.Int("limit", 20, "max rows (0 = all)")
	_ = fs.Parse(args)

	db := openWorldDB(*dataDir, *worldID)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := db.ListArchives(ctx, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		// The index is optional; fall back to the snapshots directory.
		rows = scanArchives(filepath.Join(*dataDir, "worlds", *worldID, "snapshots"))
	}
	printJSON(rows)
}

func scanArchives(dir string) []kvstore.ArchiveRow {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []kvstore.ArchiveRow
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json.zst") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		hdr, rec, err := snapshot.ReadArchive(path)
		if err != nil {
			continue
		}
		out = append(out, kvstore.ArchiveRow{
			SaveTime:  hdr.SaveTime,
			Path:      path,
			Seed:      rec.Seed,
			Buildings: len(rec.Buildings),
			Scouts:    len(rec.Scouts),
			Explored:  len(rec.ExploredAreas),
			FogChunks: len(rec.FogOfWarData),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SaveTime > out[j].SaveTime })
	return out
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	_ = fs.Parse(args)

	db := openWorldDB(*dataDir, *worldID)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	raw, err := db.Get(ctx, save.StorageKey)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read save:", err)
		os.Exit(1)
	}
	rec, err := save.Decode(raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, "decode save:", err)
		os.Exit(1)
	}
	printJSON(map[string]any{
		"version":     rec.Version,
		"seed":        rec.Seed,
		"save_time":   rec.SaveTime,
		"sim_time_ms": rec.SimTimeMs,
		"resources":   rec.Resources,
		"population":  rec.Population,
		"buildings":   len(rec.Buildings),
		"scouts":      len(rec.Scouts),
		"explored":    len(rec.ExploredAreas),
		"fog_chunks":  len(rec.FogOfWarData),
		"camera":      rec.Camera,
	})
}

// restoreCmd replaces the stored save with an archived one. Run it while the
// server is stopped: a running server overwrites the save on shutdown.
func restoreCmd(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	archivePath := fs.String("archive", "", "archive path (optional; defaults to latest)")
	_ = fs.Parse(args)

	db := openWorldDB(*dataDir, *worldID)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	path := strings.TrimSpace(*archivePath)
	if path == "" {
		if row, err := db.LatestArchive(ctx); err == nil {
			path = row.Path
		} else if rows := scanArchives(filepath.Join(*dataDir, "worlds", *worldID, "snapshots")); len(rows) > 0 {
			path = rows[0].Path
		}
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "no archive found")
		os.Exit(1)
	}

	hdr, rec, err := snapshot.ReadArchive(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read archive:", err)
		os.Exit(1)
	}
	if hdr.WorldID != "" && hdr.WorldID != *worldID {
		fmt.Fprintf(os.Stderr, "archive belongs to world %q\n", hdr.WorldID)
		os.Exit(1)
	}
	raw, err := save.Encode(rec)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode save:", err)
		os.Exit(1)
	}
	if err := db.Put(ctx, save.StorageKey, raw); err != nil {
		fmt.Fprintln(os.Stderr, "write save:", err)
		os.Exit(1)
	}
	fmt.Printf("restored %s (save_time=%d seed=%v)\n", path, rec.SaveTime, rec.Seed)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
