package latseq

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// HeaderPoints returns every point name referenced by any enumerated
// path, in path order and deduplicated — the ".lseqj" flat export's
// "#funcId P1 P2 ..." header line content.
func HeaderPoints(paths Paths) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, dirPaths := range [][]Path{paths.D, paths.U} {
		for _, p := range dirPaths {
			for _, n := range p {
				add(n)
			}
		}
	}
	return out
}

// FlatHeaderLine renders the ".lseqj" header line for the given paths.
func FlatHeaderLine(paths Paths) string {
	return "#funcId " + strings.Join(HeaderPoints(paths), " ")
}

// FlatLine renders one data line of the flat journey export:
// "YYYYMMDD_HHMMSS.ffffff D|U (lenN)\tSRC--DST\tuidX[.uidY...].globals.locals".
func FlatLine(rec FlatRecord, ms []Measurement) string {
	m := ms[rec.Index]
	ts := time.Unix(0, int64(rec.TS*1e9)).UTC()

	lenTag := ""
	if l, ok := m.Props["len"]; ok {
		lenTag = fmt.Sprintf(" (len%s)", l)
	}

	return fmt.Sprintf("%s %s%s\t%s--%s\t%s",
		ts.Format("20060102_150405.000000"), rec.Dir.String(), lenTag,
		m.Src, m.Dst, idSuffix(rec.UIDs, m))
}

// idSuffix renders "uidX.uidY....globals.locals" for one flat record.
func idSuffix(uids []string, m Measurement) string {
	var parts []string
	parts = append(parts, strings.Join(uids, "."))
	if g := dotList(m.GlobalIDs); g != "" {
		parts = append(parts, g)
	}
	if l := dotListLocal(m.LocalIDs); l != "" {
		parts = append(parts, l)
	}
	return strings.Join(parts, ".")
}

func dotList(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tokens := make([]string, 0, len(keys))
	for _, k := range keys {
		tokens = append(tokens, k+m[k])
	}
	return strings.Join(tokens, ".")
}

// MeasurementView is the --inputs JSON rendering of one canonicalized
// measurement: a flat, fully-exported shape so json.Marshal needs no
// help from IDValue's unexported fields.
type MeasurementView struct {
	TS        float64             `json:"ts"`
	Dir       string              `json:"dir"`
	Src       string              `json:"src"`
	Dst       string              `json:"dst"`
	Props     map[string]string   `json:"properties,omitempty"`
	GlobalIDs map[string]string   `json:"global_ids,omitempty"`
	LocalIDs  map[string][]string `json:"local_ids,omitempty"`
}

// MeasurementViews renders every measurement for --inputs.
func MeasurementViews(ms []Measurement) []MeasurementView {
	out := make([]MeasurementView, len(ms))
	for i, m := range ms {
		local := make(map[string][]string, len(m.LocalIDs))
		for k, v := range m.LocalIDs {
			local[k] = v.Values()
		}
		out[i] = MeasurementView{
			TS: m.TS, Dir: m.Dir.String(), Src: m.Src, Dst: m.Dst,
			Props: m.Props, GlobalIDs: m.GlobalIDs, LocalIDs: local,
		}
	}
	return out
}

// PointView is the --points JSON rendering of one point: its fan-out
// edges and the per-journey hop durations recorded by the indexer.
type PointView struct {
	Name     string             `json:"name"`
	Next     []string           `json:"next"`
	Count    int                `json:"count"`
	Duration map[string]float64 `json:"duration"`
}

// PointViews renders every point for --points, in the order given
// (Engine.Points supplies them sorted by name).
func PointViews(points []*Point) []PointView {
	out := make([]PointView, len(points))
	for i, p := range points {
		out[i] = PointView{Name: p.Name, Next: p.NextSorted(), Count: p.Count, Duration: p.Duration}
	}
	return out
}

// JourneyHopView is one hop of a --journeys rendering.
type JourneyHopView struct {
	Point string  `json:"point"`
	TS    float64 `json:"ts"`
}

// JourneyView is the --journeys JSON rendering of one completed journey.
type JourneyView struct {
	UID       string           `json:"uid"`
	Dir       string           `json:"dir"`
	PathID    int              `json:"path_id"`
	TSIn      float64          `json:"ts_in"`
	TSOut     float64          `json:"ts_out"`
	Completed bool             `json:"completed"`
	Forked    bool             `json:"forked"`
	Hops      []JourneyHopView `json:"hops"`
}

// JourneyViews renders every completed journey for --journeys.
func JourneyViews(journeys []*Journey, ms []Measurement) []JourneyView {
	var out []JourneyView
	for _, j := range journeys {
		if !j.Completed {
			continue
		}
		v := JourneyView{
			UID: j.UID, Dir: j.Dir.String(), PathID: j.PathID,
			TSIn: j.TSIn, TSOut: j.TSOut, Completed: j.Completed, Forked: j.Forked,
		}
		for _, h := range j.Set {
			v.Hops = append(v.Hops, JourneyHopView{Point: ms[h.Index].Src, TS: h.TS})
		}
		out = append(out, v)
	}
	return out
}

// MarshalJSON renders an IDValue as its flattened element list, the same
// shape a Single or a narrowed Aggregate carries once bound.
func (v IDValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Values())
}

func dotListLocal(m map[string]IDValue) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tokens := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, v := range m[k].Values() {
			tokens = append(tokens, k+v)
		}
	}
	return strings.Join(tokens, ".")
}
