// Package latseq reconstructs end-to-end packet journeys through a layered
// protocol stack from a flat, append-only trace of latency-sequence
// measurements. See reconstruct.go for the reconstruction algorithm.
package latseq

import "sort"

// Direction is the transit direction of a measurement: Downlink (network to
// device) or Uplink (device to network). The point graph and the set of
// feasible paths are partitioned by Direction.
type Direction uint8

const (
	DL Direction = iota
	UL
)

func (d Direction) String() string {
	if d == UL {
		return "U"
	}
	return "D"
}

// IDValue is the value half of a local identifier. A hop normally binds a
// single value (Single); when a downstream hop carries a concatenation of
// several upstream packets the same key repeats on one record and the
// values accumulate into an Aggregate, narrowed to one element the first
// time a later hop matches against it (see matchIDs and extend in
// reconstruct.go, which record the matched element in Journey.SetIDs).
type IDValue struct {
	single     string
	aggregate  []string
	isAggregate bool
}

func SingleID(v string) IDValue { return IDValue{single: v} }

func aggregateID(values []string) IDValue {
	return IDValue{aggregate: values, isAggregate: true}
}

// AggregateID rebuilds an already-accumulated local-id value from its
// flattened element list, e.g. when restoring a snapshot's wire-format
// measurements. A one-element list round-trips as a Single, matching how
// add() would have produced it originally.
func AggregateID(values []string) IDValue {
	if len(values) == 1 {
		return SingleID(values[0])
	}
	return aggregateID(values)
}

func (v IDValue) IsAggregate() bool { return v.isAggregate }

// Value returns the bound single value, or the empty string for an
// unnarrowed aggregate.
func (v IDValue) Value() string { return v.single }

// Values returns the aggregate's elements, or a one-element slice wrapping
// the single value.
func (v IDValue) Values() []string {
	if v.isAggregate {
		return v.aggregate
	}
	return []string{v.single}
}

// add accumulates a repeated occurrence of the same local-id key within one
// record: the first occurrence is a Single, the second promotes it to an
// Aggregate, subsequent ones append.
func (v IDValue) add(value string) IDValue {
	if !v.isAggregate {
		if v.single == "" && len(v.aggregate) == 0 {
			return SingleID(value)
		}
		return aggregateID([]string{v.single, value})
	}
	v.aggregate = append(v.aggregate, value)
	return v
}

// Measurement is one parsed, canonicalized record of the trace. Measurements
// are immutable after parsing; the reconstructor only narrows copies of the
// LocalIDs map held in a *journey's* bound context, never the measurement
// slice itself, so the same measurement can feed more than one journey
// without the journeys corrupting each other's view of it.
type Measurement struct {
	TS        float64
	Dir       Direction
	Src       string
	Dst       string
	Props     map[string]string
	GlobalIDs map[string]string
	LocalIDs  map[string]IDValue
}

// SortByTimestamp sorts measurements in place by ascending TS, once after
// the raw trace has been read and parsed. The sort must be stable so that
// same-timestamp records preserve file order, which the forward-scanning
// reconstructor and its fork-detection window rely on.
func SortByTimestamp(ms []Measurement) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].TS < ms[j].TS })
}

// Point is a named checkpoint in the protocol stack graph. Next is
// populated by the graph builder from observed src->dst edges, including
// the dotted prefixes of multi-segment destination names.
type Point struct {
	Name     string
	Next     map[string]struct{}
	Count    int
	Dirs     map[Direction]struct{}
	Duration map[string]float64 // journey uid -> elapsed seconds since previous hop
}

func newPoint(name string) *Point {
	return &Point{
		Name:     name,
		Next:     make(map[string]struct{}),
		Dirs:     make(map[Direction]struct{}),
		Duration: make(map[string]float64),
	}
}

func (p *Point) NextSorted() []string {
	out := make([]string, 0, len(p.Next))
	for n := range p.Next {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Path is an immutable, ordered sequence of point names from a direction's
// input point to its output point.
type Path []string

func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	s := p[0]
	for _, n := range p[1:] {
		s += " -> " + n
	}
	return s
}

// Hop is one bound measurement within a Journey.set: the index into the
// canonicalized measurement slice, and its timestamp (duplicated for
// convenience — it is also Measurements[Index].TS).
type Hop struct {
	Index int
	TS    float64
}

// pathCursor tracks how far a still-plausible path has been consumed while
// a Journey's path id remains ambiguous.
type pathCursor struct {
	pathID int
	cursor int
}

// Journey is the reconstructed hop sequence of one packet, mutable while
// the reconstructor extends it.
type Journey struct {
	UID       string
	Dir       Direction
	Glob      map[string]string
	TSIn      float64
	TSOut     float64
	Set       []Hop
	SetIDs    map[string]IDValue
	NextPoint map[string]struct{}
	PathID    int // -1 until disambiguated
	Candidates []pathCursor
	Completed bool
	Forked    bool // true for a sibling spawned at a segmentation fork
}

func (j *Journey) pathDisambiguated() bool { return j.PathID >= 0 }
