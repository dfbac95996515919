package latseq

import "strings"

// PointSet declares the per-direction input and output checkpoints used to
// anchor journeys and terminate them. This is required explicitly rather
// than inferred dynamically from edge shape (see DESIGN.md); ReferencePointSet
// below is the default configuration for the reference protocol stack.
type PointSet struct {
	InD, OutD map[string]struct{}
	InU, OutU map[string]struct{}
}

// ReferencePointSet is the reference configuration: DL inputs
// {ip, rlc.tx.am}, DL outputs {phy.out.proc}, UL inputs {phy.in.proc}, UL
// outputs {ip}.
func ReferencePointSet() PointSet {
	return PointSet{
		InD:  toSet("ip", "rlc.tx.am"),
		OutD: toSet("phy.out.proc"),
		InU:  toSet("phy.in.proc"),
		OutU: toSet("ip"),
	}
}

func toSet(names ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (ps PointSet) in(dir Direction) map[string]struct{} {
	if dir == UL {
		return ps.InU
	}
	return ps.InD
}

func (ps PointSet) out(dir Direction) map[string]struct{} {
	if dir == UL {
		return ps.OutU
	}
	return ps.OutD
}

func (ps PointSet) isInput(dir Direction, name string) bool {
	_, ok := ps.in(dir)[name]
	return ok
}

func (ps PointSet) isOutput(dir Direction, name string) bool {
	_, ok := ps.out(dir)[name]
	return ok
}

// buildGraph implements C3, the Point Graph Builder: derive the directed
// graph of checkpoints from observed src->dst edges, tagging each node
// with the direction(s) it appears in and the dotted prefixes of every
// destination it has been seen to precede. This is what lets a
// coarse-grained "rlc" continuation match a finer "rlc.seg.um" measurement
// when intermediate hops were never logged.
func buildGraph(ms []Measurement) map[string]*Point {
	points := make(map[string]*Point)

	get := func(name string) *Point {
		p, ok := points[name]
		if !ok {
			p = newPoint(name)
			points[name] = p
		}
		return p
	}

	for _, m := range ms {
		src := get(m.Src)
		get(m.Dst) // ensure the destination node exists too

		for _, prefix := range dottedPrefixes(m.Dst) {
			src.Next[prefix] = struct{}{}
		}
		src.Dirs[m.Dir] = struct{}{}
		src.Count++
	}
	return points
}

// dottedPrefixes returns every dotted prefix of name, e.g. "rlc.seg.um" ->
// ["rlc", "rlc.seg", "rlc.seg.um"].
func dottedPrefixes(name string) []string {
	parts := strings.Split(name, ".")
	prefixes := make([]string, 0, len(parts))
	for i := range parts {
		prefixes = append(prefixes, strings.Join(parts[:i+1], "."))
	}
	return prefixes
}
