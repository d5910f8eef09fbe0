// Package snapshot writes save archives: a zstd stream holding one JSON
// header line followed by the JSON save record.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/zstd"

	"fjordcraft.ai/internal/persistence/save"
)

const FormatVersion = 1

type Header struct {
	Version     int     `json:"version"`
	WorldID     string  `json:"world_id"`
	SaveVersion string  `json:"save_version"`
	Seed        float64 `json:"seed"`
	SaveTime    int64   `json:"save_time"`
}

// ArchivePath is <dir>/<saveTime>.json.zst.
func ArchivePath(dir string, saveTime int64) string {
	return filepath.Join(dir, strconv.FormatInt(saveTime, 10)+".json.zst")
}

func WriteArchive(path, worldID string, rec save.Record) (err error) {
	raw, err := save.Encode(rec)
	if err != nil {
		return err
	}
	hdr := Header{
		Version:     FormatVersion,
		WorldID:     worldID,
		SaveVersion: rec.Version,
		Seed:        rec.Seed,
		SaveTime:    rec.SaveTime,
	}
	if hdr.SaveVersion == "" {
		hdr.SaveVersion = save.Version
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(hdr)
	if _, err = bw.Write(hb); err != nil {
		return err
	}
	if err = bw.WriteByte('\n'); err != nil {
		return err
	}
	if _, err = bw.Write(raw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = enc.Close(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadArchive decodes an archive. The record passes the same validation as a
// stored save.
func ReadArchive(path string) (Header, save.Record, error) {
	var hdr Header
	f, err := os.Open(path)
	if err != nil {
		return hdr, save.Record{}, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return hdr, save.Record{}, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return hdr, save.Record{}, fmt.Errorf("archive header: %w", err)
	}
	if err := json.Unmarshal(line, &hdr); err != nil {
		return hdr, save.Record{}, fmt.Errorf("archive header: %w", err)
	}
	if hdr.Version != FormatVersion {
		return hdr, save.Record{}, fmt.Errorf("unsupported archive version %d", hdr.Version)
	}
	raw, err := io.ReadAll(br)
	if err != nil {
		return hdr, save.Record{}, err
	}
	rec, err := save.Decode(raw)
	return hdr, rec, err
}
