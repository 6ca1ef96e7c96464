package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
	Digest  string `json:"digest,omitempty"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed      int64 `json:"seed"`
	TickRate  int   `json:"tick_rate_hz"`
	Height    int   `json:"height"`
	BoundaryR int   `json:"boundary_r"`

	// Palette the chunk ids refer to; checked against the catalog on import.
	PaletteDigest string `json:"palette_digest"`

	Pit       PitV1       `json:"pit"`
	Promotion PromotionV1 `json:"promotion"`

	Chunks []ChunkV1 `json:"chunks"`

	Counters CountersV1 `json:"counters"`
}

type PitV1 struct {
	MaxVolume int `json:"max_volume"`
	MaxTier   int `json:"max_tier"`
}

type PromotionV1 struct {
	Disabled  bool   `json:"disabled,omitempty"`
	IdealTier int    `json:"ideal_tier"`
	Family    string `json:"family"`
	Domain    string `json:"domain"`
	MaxVisits int    `json:"max_visits,omitempty"`
}

type CountersV1 struct {
	Conversions uint64 `json:"conversions"`
	Promotions  uint64 `json:"promotions"`
}

type ChunkV1 struct {
	CX     int      `json:"cx"`
	CY     int      `json:"cy"`
	CZ     int      `json:"cz"`
	Size   int      `json:"size"`
	Blocks []uint16 `json:"blocks"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := writeFile(tmp, snap); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeFile(path string, snap SnapshotV1) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	if err := encode(bufio.NewWriterSize(enc, 256*1024), snap); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func encode(bw *bufio.Writer, snap SnapshotV1) error {
	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return bw.Flush()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	hb, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var hdr Header
	if err := json.Unmarshal(hb, &hdr); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if hdr.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", hdr.Version)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var hdr Header
	f, err := os.Open(path)
	if err != nil {
		return hdr, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return hdr, err
	}
	defer dec.Close()

	hb, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return hdr, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(hb, &hdr); err != nil {
		return hdr, fmt.Errorf("header: %w", err)
	}
	return hdr, nil
}
