// Package snapshot persists and restores the engine's reconstructed state
// to the opaque binary ".pkl" file of spec §6 — the Go equivalent of the
// reference tool's Python pickle, reimplemented as gob encoding wrapped in
// zstd framing (the teacher's compression stack, given a concrete home
// here instead of Python's bespoke binary protocol).
package snapshot

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Measurement is the wire form of latseq.Measurement. LocalIDs values are
// flattened to string lists (a Single is a one-element list) so the type
// carries only gob-friendly exported fields.
type Measurement struct {
	TS        float64
	Dir       uint8
	Src       string
	Dst       string
	Props     map[string]string
	GlobalIDs map[string]string
	LocalIDs  map[string][]string
}

// Point is the wire form of latseq.Point.
type Point struct {
	Name     string
	Next     []string
	Count    int
	Dirs     []uint8
	Duration map[string]float64
}

// Hop is the wire form of latseq.Hop.
type Hop struct {
	Index int
	TS    float64
}

// Journey is the wire form of latseq.Journey. Only the fields a completed
// or incomplete journey's consumers need survive the round trip; the
// reconstructor's internal path-disambiguation cursors do not, since a
// loaded snapshot is never re-extended.
type Journey struct {
	UID       string
	Dir       uint8
	Glob      map[string]string
	TSIn      float64
	TSOut     float64
	PathID    int
	Completed bool
	Forked    bool
	Hops      []Hop
}

// FlatRecord is the wire form of latseq.FlatRecord.
type FlatRecord struct {
	Index int
	TS    float64
	Dir   uint8
	Src   string
	Dst   string
	UIDs  []string
}

// State is the full engine state persisted by Save and restored by Load.
type State struct {
	SourceFile   string
	Measurements []Measurement
	Points       []Point
	PathsD       [][]string
	PathsU       [][]string
	Journeys     []Journey
	Flat         []FlatRecord
	OrphanCount  int
}

// PathFor derives the snapshot path for a trace file per spec §6: the
// input file's base name with ".lseq" replaced by ".pkl", in the same
// directory.
func PathFor(traceFile string) string {
	dir := filepath.Dir(traceFile)
	base := filepath.Base(traceFile)
	base = strings.TrimSuffix(base, ".lseq")
	return filepath.Join(dir, base+".pkl")
}

// Save gob-encodes state and writes it zstd-compressed to path, via a
// temp-file-then-rename so a crash mid-write never leaves a truncated
// snapshot behind for a later Load to choke on.
func Save(path string, state State) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("snapshot: zstd writer: %w", err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(buf.Bytes(), make([]byte, 0, len(buf.Bytes())))

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("snapshot: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	return nil
}

// Load reads and decodes a snapshot written by Save. Any failure —
// missing file, corrupt frame, schema mismatch — is returned to the
// caller, who per spec §7 falls through to a full parse/reconstruct
// rather than treating a load failure as fatal.
func Load(path string) (*State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: zstd reader: %w", err)
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: decompress: %w", err)
	}

	var state State
	if err := gob.NewDecoder(bytes.NewReader(plain)).Decode(&state); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	return &state, nil
}
