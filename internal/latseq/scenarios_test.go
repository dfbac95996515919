package latseq

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testPointSet() PointSet {
	return PointSet{
		InD:  toSet("ip"),
		OutD: toSet("phy.out.proc"),
		InU:  toSet("phy.in.proc"),
		OutU: toSet("ip"),
	}
}

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

// runTrace drives the full C1-C6 pipeline over literal trace content and
// returns every stage's output, matching how internal/engine wires them.
func runTrace(t *testing.T, content string) ([]Measurement, map[string]*Point, []*Journey, []FlatRecord, int) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.lseq")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ms, _, err := LoadTrace(path, silentLogger())
	require.NoError(t, err)

	points := BuildGraph(ms)
	paths, err := BuildPaths(points, testPointSet(), silentLogger())
	require.NoError(t, err)

	journeys, _ := Reconstruct(ms, points, paths, testPointSet(), DefaultJourneyWindow, DefaultForkWindow)
	flat, orphans := BuildIndex(journeys, ms, points)
	return ms, points, journeys, flat, orphans
}

func completed(journeys []*Journey) []*Journey {
	var out []*Journey
	for _, j := range journeys {
		if j.Completed {
			out = append(out, j)
		}
	}
	return out
}

// S1 - single hop DL journey.
func TestScenarioS1SingleHopJourney(t *testing.T) {
	_, _, journeys, _, _ := runTrace(t, ""+
		"0.000 D ip--pdcp :rnti1:sn5\n"+
		"0.001 D pdcp--phy.out.proc :rnti1:sn5\n")

	done := completed(journeys)
	require.Len(t, done, 1)
	j := done[0]
	require.Equal(t, DL, j.Dir)
	require.Equal(t, 0.000, j.TSIn)
	require.Equal(t, 0.001, j.TSOut)
	require.Len(t, j.Set, 2)
}

// S2 - global-id mismatch: no completed journey.
func TestScenarioS2GlobalIDMismatch(t *testing.T) {
	_, _, journeys, _, _ := runTrace(t, ""+
		"0.000 D ip--pdcp :rnti1:sn5\n"+
		"0.001 D pdcp--phy.out.proc :rnti2:sn5\n")

	require.Empty(t, completed(journeys))
}

// S3 - segmentation fork: two completed journeys sharing the root hop.
func TestScenarioS3SegmentationFork(t *testing.T) {
	ms, _, journeys, flat, _ := runTrace(t, ""+
		"0.0000 D ip--rlc :rnti1:sn5\n"+
		"0.0005 D rlc--mac :rnti1:sn5.so0\n"+
		"0.0010 D rlc--mac :rnti1:sn5.so1\n"+
		"0.0015 D mac--phy.out.proc :rnti1:so0\n"+
		"0.0020 D mac--phy.out.proc :rnti1:so1\n")

	done := completed(journeys)
	require.Len(t, done, 2)
	require.NotEqual(t, done[0].UID, done[1].UID)

	// Each sibling must narrow "so" to its own branch's value, not
	// vacuously bind to whichever so0/so1 record the scan hits first.
	so0, ok0 := done[0].SetIDs["so"]
	so1, ok1 := done[1].SetIDs["so"]
	require.True(t, ok0)
	require.True(t, ok1)
	require.NotEqual(t, so0.Value(), so1.Value())
	gotSo := map[string]bool{so0.Value(): true, so1.Value(): true}
	require.True(t, gotSo["0"])
	require.True(t, gotSo["1"])

	var rootRec *FlatRecord
	for i := range flat {
		if ms[flat[i].Index].Src == "ip" {
			rootRec = &flat[i]
		}
	}
	require.NotNil(t, rootRec)
	require.Len(t, rootRec.UIDs, 2)
}

// S4 - window timeout: incomplete journey, no completed journeys.
func TestScenarioS4WindowTimeout(t *testing.T) {
	_, points, journeys, flat, orphans := runTrace(t, ""+
		"0.000 D ip--pdcp :rnti1:sn5\n"+
		"0.060 D pdcp--phy.out.proc :rnti1:sn5\n")

	require.Empty(t, completed(journeys))
	require.NotEmpty(t, journeys)
	require.False(t, journeys[0].Completed)
	require.Equal(t, 1, orphans)

	// An incomplete journey's bound hop must still be excluded from the
	// flat view and the per-point duration map, even though it's not an
	// orphan (it was claimed by journeys[0], just never completed).
	require.Empty(t, flat)
	require.Empty(t, points["ip"].Duration)
}

// S5 - sentinel filter: rnti65535 destinations never reach the
// canonicalized stream or any journey. The late pdcp--phy.out.proc line
// gives the graph a DL path (zero paths in both directions is fatal) but
// falls outside the journey window, so nothing completes.
func TestScenarioS5SentinelFilter(t *testing.T) {
	ms, _, journeys, _, _ := runTrace(t, ""+
		"0.000 D ip--pdcp :rnti1:sn5\n"+
		"0.001 D pdcp--rnti65535.phy.out.proc :rnti1:sn5\n"+
		"0.100 D pdcp--phy.out.proc :rnti1:sn5\n")

	require.Len(t, ms, 2)
	for _, m := range ms {
		require.NotContains(t, m.Dst, "rnti65535")
	}
	require.Empty(t, completed(journeys))
}

// S6 - concatenation: a repeated local-id key on one record aggregates,
// then narrows once a later hop disambiguates it.
func TestScenarioS6Concatenation(t *testing.T) {
	_, _, journeys, _, _ := runTrace(t, ""+
		"0.000 D ip--rlc :rnti1:sn5.sn6\n"+
		"0.001 D rlc--phy.out.proc :rnti1:sn5\n")

	done := completed(journeys)
	require.Len(t, done, 1)
	require.Len(t, done[0].Set, 2)
}
