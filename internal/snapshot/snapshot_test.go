package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathFor(t *testing.T) {
	assert.Equal(t, filepath.Join("traces", "run1.pkl"), PathFor(filepath.Join("traces", "run1.lseq")))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run1.pkl")

	want := State{
		SourceFile: "run1.lseq",
		Measurements: []Measurement{
			{
				TS:        0.001,
				Dir:       0,
				Src:       "ip",
				Dst:       "pdcp",
				Props:     map[string]string{},
				GlobalIDs: map[string]string{"rnti": "1"},
				LocalIDs:  map[string][]string{"sn": {"5"}},
			},
		},
		Points: []Point{
			{Name: "ip", Next: []string{"pdcp"}, Count: 1, Dirs: []uint8{0}, Duration: map[string]float64{"0": 0.001}},
		},
		PathsD:      [][]string{{"ip", "pdcp"}},
		PathsU:      nil,
		Journeys:    []Journey{{UID: "0", Dir: 0, Glob: map[string]string{"rnti": "1"}, TSIn: 0.001, Completed: true, PathID: 0, Hops: []Hop{{Index: 0, TS: 0.001}}}},
		Flat:        []FlatRecord{{Index: 0, TS: 0.001, Dir: 0, Src: "ip", Dst: "pdcp", UIDs: []string{"0"}}},
		OrphanCount: 2,
	}

	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	// Save writes through a temp file then renames; no ".tmp" should
	// survive a successful save.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.pkl"))
	assert.Error(t, err)
}

func TestLoadCorruptFrame(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.pkl")
	require.NoError(t, os.WriteFile(path, []byte("not a zstd frame"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
