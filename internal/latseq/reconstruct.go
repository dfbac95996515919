package latseq

import (
	"sort"
	"strconv"
)

// Default extension windows. A caller may override them (internal/config
// exposes that knob for experimentation), but they match the reference
// protocol stack's expected scheduling jitter.
const (
	DefaultJourneyWindow = 0.050 // 50ms
	DefaultForkWindow    = 0.002 // 2ms
)

// matchIDs is the identifier-match predicate: every global key present on
// the candidate must agree with the journey's glob snapshot (and be
// present there at all); every local key common to the candidate and the
// journey's last-bound measurement L must agree, an aggregate on L
// matching if the candidate's value is one of its elements. It returns
// only the matched key/value pairs (folded into Journey.SetIDs for
// bookkeeping) — the candidate itself becomes the new L for the next
// hop once bound, so callers thread cand.LocalIDs forward rather than
// any value derived here.
func matchIDs(cand Measurement, journeyGlob map[string]string, lastLocal map[string]IDValue) (matched map[string]string, ok bool) {
	for k, v := range cand.GlobalIDs {
		jv, present := journeyGlob[k]
		if !present || jv != v {
			return nil, false
		}
	}

	matched = make(map[string]string)
	for k, cv := range cand.LocalIDs {
		lv, common := lastLocal[k]
		if !common {
			continue
		}
		if lv.IsAggregate() {
			found := false
			for _, elem := range lv.Values() {
				if elem == cv.Value() {
					found = true
					break
				}
			}
			if !found {
				return nil, false
			}
			matched[k] = cv.Value()
		} else {
			if lv.Value() != cv.Value() {
				return nil, false
			}
			matched[k] = cv.Value()
		}
	}
	return matched, true
}

func copyIDMap(m map[string]IDValue) map[string]IDValue {
	out := make(map[string]IDValue, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyCandidates(c []pathCursor) []pathCursor {
	if c == nil {
		return nil
	}
	out := make([]pathCursor, len(c))
	copy(out, c)
	return out
}

// initialCandidates seeds one cursor per path in a direction, cursor 0.
func initialCandidates(paths []Path) []pathCursor {
	out := make([]pathCursor, len(paths))
	for i := range paths {
		out[i] = pathCursor{pathID: i, cursor: 0}
	}
	return out
}

// filterCandidates drops every candidate path whose next expected node
// isn't point, and advances the survivors' cursors.
func filterCandidates(paths []Path, candidates []pathCursor, point string) []pathCursor {
	out := make([]pathCursor, 0, len(candidates))
	for _, c := range candidates {
		path := paths[c.pathID]
		if c.cursor >= len(path) || path[c.cursor] != point {
			continue
		}
		next := c.cursor
		if next+1 < len(path) {
			next++
		}
		out = append(out, pathCursor{pathID: c.pathID, cursor: next})
	}
	return out
}

func newJourney(uid string, rootIdx int, m Measurement, paths Paths, points map[string]*Point) *Journey {
	all := paths.forDir(m.Dir)
	cands := filterCandidates(all, initialCandidates(all), m.Src)
	j := &Journey{
		UID:       uid,
		Dir:       m.Dir,
		Glob:      copyStringMap(m.GlobalIDs),
		TSIn:      m.TS,
		Set:       []Hop{{Index: rootIdx, TS: m.TS}},
		SetIDs:    copyIDMap(m.LocalIDs),
		NextPoint: points[m.Src].Next,
		PathID:    -1,
	}
	if len(cands) == 1 {
		j.PathID = cands[0].pathID
	} else {
		j.Candidates = cands
	}
	return j
}

// forkTask is one unit of work for the reconstructor's explicit queue,
// which converts fork-spawn recursion into an iterative work queue to
// bound stack depth on long concatenation chains.
type forkTask struct {
	journey       *Journey
	startAt       int
	rootWindowEnd float64
	lastLocal     map[string]IDValue
}

// pendingFork is a segmentation-fork candidate recorded while extending a
// journey, finalized (and possibly turned into a forkTask) only once that
// journey completes. A journey that times out without completing drops
// any forks it detected along the way.
type pendingFork struct {
	truncateLen    int
	siblingIdx     int
	siblingTS      float64
	baseSetIDs     map[string]IDValue
	matched        map[string]string
	newLastLocal   map[string]IDValue
	postCandidates []pathCursor
	postPathID     int
	postNextPoint  map[string]struct{}
}

// reconstructor implements C5, the Journey Reconstructor.
type reconstructor struct {
	ms            []Measurement
	points        map[string]*Point
	paths         Paths
	pts           PointSet
	journeyWindow float64
	forkWindow    float64

	journeys   []*Journey
	pointAdded map[int][]string
	queue      []forkTask
}

func newReconstructor(ms []Measurement, points map[string]*Point, paths Paths, pts PointSet, journeyWindow, forkWindow float64) *reconstructor {
	return &reconstructor{
		ms:            ms,
		points:        points,
		paths:         paths,
		pts:           pts,
		journeyWindow: journeyWindow,
		forkWindow:    forkWindow,
		pointAdded:    make(map[int][]string),
	}
}

func (rc *reconstructor) newUID() string { return strconv.Itoa(len(rc.journeys)) }

func (rc *reconstructor) markAdded(idx int, uid string) {
	rc.pointAdded[idx] = append(rc.pointAdded[idx], uid)
}

// run is the root loop: advance over every measurement in timestamp order,
// spawning a journey at each one whose src_point is a declared input, then
// drain the fork work queue those journeys' extensions populate.
func (rc *reconstructor) run() ([]*Journey, map[int][]string) {
	n := len(rc.ms)
	for p := 0; p < n; p++ {
		m := rc.ms[p]
		if !rc.pts.isInput(m.Dir, m.Src) {
			continue
		}
		uid := rc.newUID()
		j := newJourney(uid, p, m, rc.paths, rc.points)
		rc.journeys = append(rc.journeys, j)
		rc.markAdded(p, uid)
		rc.queue = append(rc.queue, forkTask{
			journey:       j,
			startAt:       p + 1,
			rootWindowEnd: m.TS + rc.journeyWindow,
			lastLocal:     copyIDMap(m.LocalIDs),
		})
	}
	for len(rc.queue) > 0 {
		t := rc.queue[0]
		rc.queue = rc.queue[1:]
		rc.extend(t.journey, t.startAt, t.rootWindowEnd, t.lastLocal)
	}
	return rc.journeys, rc.pointAdded
}

// extend runs the inner extension loop for one journey from qStart,
// binding matching measurements forward while recording (but not yet
// acting on) segmentation-fork candidates.
func (rc *reconstructor) extend(j *Journey, qStart int, rootWindowEnd float64, lastLocal map[string]IDValue) {
	n := len(rc.ms)
	upper := sort.Search(n, func(i int) bool { return rc.ms[i].TS > rootWindowEnd })

	var forks []pendingFork
	q := qStart
	for !j.Completed && q < upper {
		cand := rc.ms[q]

		if cand.Dir != j.Dir {
			q++
			continue
		}
		if rc.pts.isInput(j.Dir, cand.Src) {
			q++
			continue
		}
		if _, ok := j.NextPoint[cand.Src]; !ok {
			q++
			continue
		}

		matched, ok := matchIDs(cand, j.Glob, lastLocal)
		if !ok {
			q++
			continue
		}

		baseSetIDs := copyIDMap(j.SetIDs)
		truncateLen := len(j.Set)

		forkEnd := cand.TS + rc.forkWindow
		fUpper := sort.Search(n, func(i int) bool { return rc.ms[i].TS > forkEnd })
		var siblings []pendingFork
		for qf := q + 1; qf < fUpper; qf++ {
			f := rc.ms[qf]
			if f.Dir != j.Dir || f.Src != cand.Src {
				continue
			}
			fm, fok := matchIDs(f, j.Glob, lastLocal)
			if !fok {
				continue
			}
			siblings = append(siblings, pendingFork{
				truncateLen:  truncateLen,
				siblingIdx:   qf,
				siblingTS:    f.TS,
				baseSetIDs:   baseSetIDs,
				matched:      fm,
				newLastLocal: copyIDMap(f.LocalIDs),
			})
		}

		// commit the main candidate
		rc.markAdded(q, j.UID)
		j.Set = append(j.Set, Hop{Index: q, TS: cand.TS})
		for k, v := range matched {
			j.SetIDs[k] = SingleID(v)
		}
		lastLocal = copyIDMap(cand.LocalIDs)
		if !j.pathDisambiguated() {
			j.Candidates = filterCandidates(rc.paths.forDir(j.Dir), j.Candidates, cand.Src)
			if len(j.Candidates) == 1 {
				j.PathID = j.Candidates[0].pathID
				j.Candidates = nil
			}
		}
		if rc.pts.isOutput(j.Dir, cand.Dst) {
			j.TSOut = cand.TS
			j.Completed = true
			j.NextPoint = nil
		} else {
			j.NextPoint = rc.points[cand.Src].Next
		}

		for _, s := range siblings {
			s.postCandidates = copyCandidates(j.Candidates)
			s.postPathID = j.PathID
			s.postNextPoint = j.NextPoint
			forks = append(forks, s)
		}
		q++
	}

	if !j.Completed {
		return
	}
	for _, fk := range forks {
		rc.spawnFork(j, fk, rootWindowEnd)
	}
}

// spawnFork realizes one recorded segmentation fork as a new sibling
// journey sharing the parent's prefix up to (excluding) the fork point.
// The sibling's further extension (if any) is enqueued rather than called
// recursively. parent.Set's prefix up to fk.truncateLen is stable once
// recorded: extension only ever appends, never rewrites, earlier hops.
func (rc *reconstructor) spawnFork(parent *Journey, fk pendingFork, rootWindowEnd float64) {
	uid := rc.newUID()

	setIDs := copyIDMap(fk.baseSetIDs)
	for k, v := range fk.matched {
		setIDs[k] = SingleID(v)
	}

	set := make([]Hop, fk.truncateLen, fk.truncateLen+1)
	copy(set, parent.Set[:fk.truncateLen])
	set = append(set, Hop{Index: fk.siblingIdx, TS: fk.siblingTS})

	sib := &Journey{
		UID:        uid,
		Dir:        parent.Dir,
		Glob:       parent.Glob,
		TSIn:       parent.TSIn,
		Set:        set,
		SetIDs:     setIDs,
		NextPoint:  fk.postNextPoint,
		PathID:     fk.postPathID,
		Candidates: fk.postCandidates,
		Forked:     true,
	}
	rc.journeys = append(rc.journeys, sib)
	rc.markAdded(fk.siblingIdx, uid)

	sibMeas := rc.ms[fk.siblingIdx]
	if rc.pts.isOutput(sib.Dir, sibMeas.Dst) {
		sib.TSOut = sibMeas.TS
		sib.Completed = true
		return
	}
	rc.queue = append(rc.queue, forkTask{
		journey:       sib,
		startAt:       fk.siblingIdx + 1,
		rootWindowEnd: rootWindowEnd,
		lastLocal:     fk.newLastLocal,
	})
}

// Reconstruct runs C5 over a canonicalized, timestamp-sorted measurement
// slice and returns every journey (complete or not) together with the
// point_added index (measurement index -> journey uids that bound it).
func Reconstruct(ms []Measurement, points map[string]*Point, paths Paths, pts PointSet, journeyWindow, forkWindow float64) ([]*Journey, map[int][]string) {
	rc := newReconstructor(ms, points, paths, pts, journeyWindow, forkWindow)
	return rc.run()
}
