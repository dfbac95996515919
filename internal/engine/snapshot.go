package engine

import (
	"github.com/flavienrj/latseq-go/internal/latseq"
	"github.com/flavienrj/latseq-go/internal/snapshot"

	"github.com/sirupsen/logrus"
)

// FromSnapshot loads a previously-saved snapshot directly, with no config
// or trace file involved — the read-only path cmd/latseqd uses to serve
// a snapshot someone else's cmd/latseq run produced.
func FromSnapshot(path string, logger *logrus.Logger) (*Engine, error) {
	st, err := snapshot.Load(path)
	if err != nil {
		return nil, err
	}
	e := &Engine{logger: logger}
	e.loadFromSnapshot(st)
	return e, nil
}

// save converts the engine's current state to snapshot wire types and
// writes it to path.
func (e *Engine) save(path string) error {
	return snapshot.Save(path, snapshot.State{
		SourceFile:   e.sourceFile,
		Measurements: toWireMeasurements(e.ms),
		Points:       toWirePoints(e.points),
		PathsD:       toWirePaths(e.paths.D),
		PathsU:       toWirePaths(e.paths.U),
		Journeys:     toWireJourneys(e.journeys),
		Flat:         toWireFlat(e.flat),
		OrphanCount:  e.orphan,
	})
}

// loadFromSnapshot restores the engine's state from a previously-loaded
// snapshot, skipping the parse/graph/paths/reconstruct/index phases
// entirely.
func (e *Engine) loadFromSnapshot(st *snapshot.State) {
	e.sourceFile = st.SourceFile
	e.ms = fromWireMeasurements(st.Measurements)
	e.rawCount = len(e.ms)
	e.points = fromWirePoints(st.Points)
	e.paths = latseq.Paths{D: fromWirePaths(st.PathsD), U: fromWirePaths(st.PathsU)}
	e.journeys = fromWireJourneys(st.Journeys)
	e.flat = fromWireFlat(st.Flat)
	e.orphan = st.OrphanCount
}

func toWireMeasurements(ms []latseq.Measurement) []snapshot.Measurement {
	out := make([]snapshot.Measurement, len(ms))
	for i, m := range ms {
		local := make(map[string][]string, len(m.LocalIDs))
		for k, v := range m.LocalIDs {
			local[k] = v.Values()
		}
		out[i] = snapshot.Measurement{
			TS:        m.TS,
			Dir:       uint8(m.Dir),
			Src:       m.Src,
			Dst:       m.Dst,
			Props:     m.Props,
			GlobalIDs: m.GlobalIDs,
			LocalIDs:  local,
		}
	}
	return out
}

func fromWireMeasurements(ms []snapshot.Measurement) []latseq.Measurement {
	out := make([]latseq.Measurement, len(ms))
	for i, m := range ms {
		local := make(map[string]latseq.IDValue, len(m.LocalIDs))
		for k, v := range m.LocalIDs {
			local[k] = latseq.AggregateID(v)
		}
		out[i] = latseq.Measurement{
			TS:        m.TS,
			Dir:       latseq.Direction(m.Dir),
			Src:       m.Src,
			Dst:       m.Dst,
			Props:     m.Props,
			GlobalIDs: m.GlobalIDs,
			LocalIDs:  local,
		}
	}
	return out
}

func toWirePoints(points map[string]*latseq.Point) []snapshot.Point {
	out := make([]snapshot.Point, 0, len(points))
	for _, p := range points {
		dirs := make([]uint8, 0, len(p.Dirs))
		for d := range p.Dirs {
			dirs = append(dirs, uint8(d))
		}
		out = append(out, snapshot.Point{
			Name:     p.Name,
			Next:     p.NextSorted(),
			Count:    p.Count,
			Dirs:     dirs,
			Duration: p.Duration,
		})
	}
	return out
}

func fromWirePoints(points []snapshot.Point) map[string]*latseq.Point {
	out := make(map[string]*latseq.Point, len(points))
	for _, p := range points {
		next := make(map[string]struct{}, len(p.Next))
		for _, n := range p.Next {
			next[n] = struct{}{}
		}
		dirs := make(map[latseq.Direction]struct{}, len(p.Dirs))
		for _, d := range p.Dirs {
			dirs[latseq.Direction(d)] = struct{}{}
		}
		duration := p.Duration
		if duration == nil {
			duration = make(map[string]float64)
		}
		out[p.Name] = &latseq.Point{
			Name:     p.Name,
			Next:     next,
			Count:    p.Count,
			Dirs:     dirs,
			Duration: duration,
		}
	}
	return out
}

func toWirePaths(paths []latseq.Path) [][]string {
	out := make([][]string, len(paths))
	for i, p := range paths {
		out[i] = []string(p)
	}
	return out
}

func fromWirePaths(paths [][]string) []latseq.Path {
	out := make([]latseq.Path, len(paths))
	for i, p := range paths {
		out[i] = latseq.Path(p)
	}
	return out
}

func toWireJourneys(journeys []*latseq.Journey) []snapshot.Journey {
	out := make([]snapshot.Journey, len(journeys))
	for i, j := range journeys {
		hops := make([]snapshot.Hop, len(j.Set))
		for k, h := range j.Set {
			hops[k] = snapshot.Hop{Index: h.Index, TS: h.TS}
		}
		out[i] = snapshot.Journey{
			UID:       j.UID,
			Dir:       uint8(j.Dir),
			Glob:      j.Glob,
			TSIn:      j.TSIn,
			TSOut:     j.TSOut,
			PathID:    j.PathID,
			Completed: j.Completed,
			Forked:    j.Forked,
			Hops:      hops,
		}
	}
	return out
}

func fromWireJourneys(journeys []snapshot.Journey) []*latseq.Journey {
	out := make([]*latseq.Journey, len(journeys))
	for i, j := range journeys {
		hops := make([]latseq.Hop, len(j.Hops))
		for k, h := range j.Hops {
			hops[k] = latseq.Hop{Index: h.Index, TS: h.TS}
		}
		out[i] = &latseq.Journey{
			UID:       j.UID,
			Dir:       latseq.Direction(j.Dir),
			Glob:      j.Glob,
			TSIn:      j.TSIn,
			TSOut:     j.TSOut,
			PathID:    j.PathID,
			Completed: j.Completed,
			Forked:    j.Forked,
			Set:       hops,
		}
	}
	return out
}

func toWireFlat(flat []latseq.FlatRecord) []snapshot.FlatRecord {
	out := make([]snapshot.FlatRecord, len(flat))
	for i, r := range flat {
		out[i] = snapshot.FlatRecord{
			Index: r.Index,
			TS:    r.TS,
			Dir:   uint8(r.Dir),
			Src:   r.Src,
			Dst:   r.Dst,
			UIDs:  r.UIDs,
		}
	}
	return out
}

func fromWireFlat(flat []snapshot.FlatRecord) []latseq.FlatRecord {
	out := make([]latseq.FlatRecord, len(flat))
	for i, r := range flat {
		out[i] = latseq.FlatRecord{
			Index: r.Index,
			TS:    r.TS,
			Dir:   latseq.Direction(r.Dir),
			Src:   r.Src,
			Dst:   r.Dst,
			UIDs:  r.UIDs,
		}
	}
	return out
}
