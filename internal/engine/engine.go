// Package engine wires the latseq journey reconstruction core (C1-C6)
// together with configuration, snapshotting, metrics, and the downstream
// sinks spec §1 scopes out of the core but names as collaborators. It is
// the thing cmd/latseq and cmd/latseqd both sit on top of.
package engine

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/flavienrj/latseq-go/internal/config"
	"github.com/flavienrj/latseq-go/internal/latseq"
	"github.com/flavienrj/latseq-go/internal/metrics"
	"github.com/flavienrj/latseq-go/internal/snapshot"
	apperr "github.com/flavienrj/latseq-go/pkg/errors"

	"github.com/sirupsen/logrus"
)

// Engine holds one run's full reconstructed state: the canonicalized
// measurements, the point graph and enumerated paths, every journey the
// reconstructor produced, and the indexer's flat view and orphan count.
type Engine struct {
	cfg    *config.Config
	logger *logrus.Logger

	sourceFile string
	rawCount   int
	ms         []latseq.Measurement
	points     map[string]*latseq.Point
	paths      latseq.Paths
	pts        latseq.PointSet
	journeys   []*latseq.Journey
	pointAdded map[int][]string
	flat       []latseq.FlatRecord
	orphan     int
}

// Stats summarizes one run for the run-summary log line, matching the
// reference tool's get_log_file_stats. RawCount is taken from the
// measurements kept after parsing, so it equals CleanCount: lines dropped
// as malformed or as sentinel records are not counted.
type Stats struct {
	File         string
	RawCount     int
	CleanCount   int
	PointCount   int
	JourneyCount int
	OrphanCount  int
}

// New builds an Engine from configuration. The point set is read from
// config.Engine.Points, defaulting to the reference configuration when
// the config leaves it empty (applyDefaults already does this before
// ValidateConfig runs, so a validated Config always has one).
func New(cfg *config.Config, logger *logrus.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger, pts: pointSetFromConfig(cfg.Engine.Points)}
}

func pointSetFromConfig(p config.PointSetConfig) latseq.PointSet {
	return latseq.PointSet{
		InD:  toSet(p.InD),
		OutD: toSet(p.OutD),
		InU:  toSet(p.InU),
		OutU: toSet(p.OutU),
	}
}

func toSet(names []string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Run executes C1-C6 over traceFile, or restores a prior snapshot when
// one exists, is loadable, and clean was not requested. It is the single
// entrypoint cmd/latseq drives.
func (e *Engine) Run(traceFile string, clean bool) error {
	e.sourceFile = traceFile
	snapPath := snapshot.PathFor(traceFile)

	if clean {
		if err := os.Remove(snapPath); err != nil && !os.IsNotExist(err) {
			e.logger.WithError(err).Warn("latseq: failed to remove prior snapshot")
		}
	} else if e.cfg.Snapshot.Enabled {
		if st, err := snapshot.Load(snapPath); err == nil {
			e.loadFromSnapshot(st)
			metrics.RecordSnapshotOp("load", "success")
			e.logger.WithField("path", snapPath).Info("latseq: restored from snapshot")
			return nil
		} else if !os.IsNotExist(err) {
			e.logger.WithError(err).Warn("latseq: snapshot load failed, falling back to full parse")
			metrics.RecordSnapshotOp("load", "failure")
		}
	}

	if err := e.reconstruct(traceFile); err != nil {
		return err
	}

	if e.cfg.Snapshot.Enabled {
		if err := e.save(snapPath); err != nil {
			e.logger.WithError(err).Warn("latseq: snapshot write failed")
			metrics.RecordSnapshotOp("save", "failure")
		} else {
			metrics.RecordSnapshotOp("save", "success")
		}
	}
	return nil
}

func (e *Engine) reconstruct(traceFile string) error {
	phase := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		metrics.RecordPhaseDuration(name, time.Since(start))
		return err
	}

	if err := phase("parse", func() error {
		ms, _, err := latseq.LoadTrace(traceFile, e.logger)
		if err != nil {
			return err
		}
		e.rawCount = len(ms)
		e.ms = ms
		for _, m := range ms {
			metrics.RecordMeasurementParsed(m.Dir.String())
		}
		return nil
	}); err != nil {
		return err
	}

	if err := phase("graph", func() error {
		e.points = latseq.BuildGraph(e.ms)
		return nil
	}); err != nil {
		return err
	}

	if err := phase("paths", func() error {
		paths, err := latseq.BuildPaths(e.points, e.pts, e.logger)
		if err != nil {
			if ae, ok := apperr.AsAppError(err); ok && ae.Fatal() {
				return err
			}
		}
		e.paths = paths
		return nil
	}); err != nil {
		return err
	}

	journeyWindow := e.cfg.Engine.JourneyWindow
	forkWindow := e.cfg.Engine.ForkWindow
	if err := phase("reconstruct", func() error {
		e.journeys, e.pointAdded = latseq.Reconstruct(e.ms, e.points, e.paths, e.pts, journeyWindow, forkWindow)
		return nil
	}); err != nil {
		return err
	}

	if err := phase("index", func() error {
		e.flat, e.orphan = latseq.BuildIndex(e.journeys, e.ms, e.points)
		return nil
	}); err != nil {
		return err
	}

	e.recordJourneyMetrics()
	metrics.SetOrphanCount(e.orphan)

	e.logger.WithFields(logrus.Fields(e.Stats().fields())).Info("latseq: reconstruction complete")
	return nil
}

func (e *Engine) recordJourneyMetrics() {
	for _, j := range e.journeys {
		dir := j.Dir.String()
		switch {
		case j.Completed:
			metrics.RecordJourneyCompleted(dir)
		default:
			metrics.RecordJourneyIncomplete(dir)
		}
		if j.Forked {
			metrics.RecordJourneyForked(dir)
		}
	}
	for _, p := range e.points {
		for _, d := range p.Duration {
			metrics.RecordPointHopDuration(p.Name, d)
		}
	}
}

// Stats reports this run's headline counts.
func (e *Engine) Stats() Stats {
	return Stats{
		File:         e.sourceFile,
		RawCount:     e.rawCount,
		CleanCount:   len(e.ms),
		PointCount:   len(e.points),
		JourneyCount: len(e.journeys),
		OrphanCount:  e.orphan,
	}
}

func (s Stats) fields() map[string]interface{} {
	return map[string]interface{}{
		"file":         s.File,
		"raw":          s.RawCount,
		"measurements": s.CleanCount,
		"points":       s.PointCount,
		"journeys":     s.JourneyCount,
		"orphans":      s.OrphanCount,
	}
}

// PathsString renders every enumerated path per direction, matching the
// reference tool's paths_to_str debug dump.
func (e *Engine) PathsString() string { return e.paths.String() }

// Measurements returns the canonicalized, timestamp-sorted measurements.
func (e *Engine) Measurements() []latseq.Measurement { return e.ms }

// Points returns every point, sorted by name for deterministic output.
func (e *Engine) Points() []*latseq.Point {
	names := make([]string, 0, len(e.points))
	for n := range e.points {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*latseq.Point, 0, len(names))
	for _, n := range names {
		out = append(out, e.points[n])
	}
	return out
}

// Journeys returns every journey the reconstructor produced, complete or
// not, in creation order (uid order).
func (e *Engine) Journeys() []*latseq.Journey { return e.journeys }

// PathsJSON renders {"D": [...], "U": [...]} for the --paths CLI mode.
func (e *Engine) PathsJSON() map[string][]latseq.Path {
	return map[string][]latseq.Path{"D": e.paths.D, "U": e.paths.U}
}

// headerPointNames returns the sorted point names used as --csv columns.
func (e *Engine) headerPointNames() []string {
	names := make([]string, 0, len(e.points))
	for n := range e.points {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WriteFlatJourneys renders the ".lseqj" flat export (header + one line
// per indexed measurement) to w.
func (e *Engine) WriteFlatJourneys(w io.Writer) error {
	if _, err := io.WriteString(w, latseq.FlatHeaderLine(e.paths)+"\n"); err != nil {
		return err
	}
	for _, rec := range e.flat {
		if _, err := io.WriteString(w, latseq.FlatLine(rec, e.ms)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV renders the --csv export to w.
func (e *Engine) WriteCSV(w io.Writer) error {
	return latseq.WriteCSV(w, e.journeys, e.ms, e.headerPointNames())
}

// FlatSinkWriter is the subset of LocalFileSink's API the engine needs to
// hand it the flat journey export without importing internal/sinks
// (which already imports internal/config; engine stays the lower layer).
type FlatSinkWriter interface {
	WriteHeader(baseName, header string) error
	WriteLine(baseName, line string) error
}

// WriteFlatJourneysToSink renders the same content as WriteFlatJourneys
// through a FlatSinkWriter, naming the output after the source trace.
func (e *Engine) WriteFlatJourneysToSink(sink FlatSinkWriter) error {
	base := e.baseName()
	if err := sink.WriteHeader(base, latseq.FlatHeaderLine(e.paths)); err != nil {
		return err
	}
	for _, rec := range e.flat {
		if err := sink.WriteLine(base, latseq.FlatLine(rec, e.ms)); err != nil {
			return err
		}
	}
	return nil
}

// baseName is the source trace's file name with ".lseq" trimmed, used to
// name sink outputs after the trace they came from.
func (e *Engine) baseName() string {
	base := filepath.Base(e.sourceFile)
	return strings.TrimSuffix(base, ".lseq")
}

// JourneyEvents renders every completed journey as the sink payload
// shape, for callers that publish to the Kafka/local-file sinks.
func (e *Engine) JourneyEvents() []JourneyEvent {
	var out []JourneyEvent
	for _, j := range e.journeys {
		if !j.Completed {
			continue
		}
		ev := JourneyEvent{UID: j.UID, Dir: j.Dir.String(), PathID: j.PathID, TSIn: j.TSIn, TSOut: j.TSOut}
		for _, hop := range j.Set {
			ev.Hops = append(ev.Hops, JourneyHop{Point: e.ms[hop.Index].Src, TS: hop.TS})
		}
		out = append(out, ev)
	}
	return out
}

// JourneyEvent and JourneyHop mirror internal/sinks' wire shape without
// engine importing sinks, keeping the dependency edge one-directional
// (cmd wires engine's output into sinks' input type, not the reverse).
type JourneyEvent struct {
	UID    string
	Dir    string
	PathID int
	TSIn   float64
	TSOut  float64
	Hops   []JourneyHop
}

type JourneyHop struct {
	Point string
	TS    float64
}
