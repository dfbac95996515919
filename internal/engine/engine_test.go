package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/flavienrj/latseq-go/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	return cfg
}

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func writeTrace(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run1.lseq")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEngineRunProducesStatsAndJourneys(t *testing.T) {
	path := writeTrace(t, ""+
		"0.000 D ip--pdcp :rnti1:sn5\n"+
		"0.001 D pdcp--phy.out.proc :rnti1:sn5\n")

	cfg := testConfig(t)
	cfg.Snapshot.Enabled = false
	eng := New(cfg, silentLogger())
	require.NoError(t, eng.Run(path, false))

	stats := eng.Stats()
	assert.Equal(t, path, stats.File)
	assert.Equal(t, 2, stats.RawCount)
	assert.Equal(t, 1, stats.JourneyCount)
	assert.Equal(t, 0, stats.OrphanCount)

	events := eng.JourneyEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "D", events[0].Dir)
	assert.Len(t, events[0].Hops, 2)

	var buf bytes.Buffer
	require.NoError(t, eng.WriteFlatJourneys(&buf))
	assert.Contains(t, buf.String(), "ip")
}

func TestEngineRunSnapshotRoundTrip(t *testing.T) {
	path := writeTrace(t, ""+
		"0.000 D ip--pdcp :rnti1:sn5\n"+
		"0.001 D pdcp--phy.out.proc :rnti1:sn5\n")

	cfg := testConfig(t)
	cfg.Snapshot.Enabled = true

	first := New(cfg, silentLogger())
	require.NoError(t, first.Run(path, false))
	firstStats := first.Stats()

	// A second Run over the same trace restores from the snapshot
	// instead of re-parsing; stats must match exactly.
	second := New(cfg, silentLogger())
	require.NoError(t, second.Run(path, false))
	assert.Equal(t, firstStats, second.Stats())
	require.Len(t, second.Journeys(), 1)
	assert.True(t, second.Journeys()[0].Completed)
}

func TestEngineRunCleanDiscardsSnapshot(t *testing.T) {
	path := writeTrace(t, ""+
		"0.000 D ip--pdcp :rnti1:sn5\n"+
		"0.001 D pdcp--phy.out.proc :rnti1:sn5\n")

	cfg := testConfig(t)
	cfg.Snapshot.Enabled = true

	first := New(cfg, silentLogger())
	require.NoError(t, first.Run(path, false))

	second := New(cfg, silentLogger())
	require.NoError(t, second.Run(path, true))
	assert.Equal(t, first.Stats().RawCount, second.Stats().RawCount)
}

func TestFromSnapshot(t *testing.T) {
	path := writeTrace(t, ""+
		"0.000 D ip--pdcp :rnti1:sn5\n"+
		"0.001 D pdcp--phy.out.proc :rnti1:sn5\n")

	cfg := testConfig(t)
	cfg.Snapshot.Enabled = true
	eng := New(cfg, silentLogger())
	require.NoError(t, eng.Run(path, false))

	snapPath := filepath.Join(filepath.Dir(path), "run1.pkl")
	loaded, err := FromSnapshot(snapPath, silentLogger())
	require.NoError(t, err)
	assert.Equal(t, eng.Stats().JourneyCount, loaded.Stats().JourneyCount)
	assert.Equal(t, eng.Points(), loaded.Points())
}
