package latseq

import "sort"

// FlatRecord is one row of the flat, per-measurement export: a single
// trace line annotated with every journey uid that bound it. A
// concatenated measurement legitimately carries more than one uid.
type FlatRecord struct {
	Index int
	TS    float64
	Dir   Direction
	Src   string
	Dst   string
	UIDs  []string
}

// BuildIndex implements C6, the Journey Indexer. It walks every
// *completed* journey's bound hops and folds them into one row per
// distinct measurement index (a measurement bound into several journeys
// gets one row carrying every uid, most-recently-processed journey
// first), and records each point's per-hop duration — an incomplete
// journey contributes to neither, matching spec's "given completed
// journeys, build two derived artifacts". Orphan counting is scoped to
// every journey regardless of completion: a measurement bound only by a
// journey that later timed out was still claimed, so it isn't an orphan.
func BuildIndex(journeys []*Journey, ms []Measurement, points map[string]*Point) (flat []FlatRecord, orphanCount int) {
	byIndex := make(map[int]*FlatRecord)
	boundAny := make(map[int]struct{})

	for _, j := range journeys {
		for i, hop := range j.Set {
			boundAny[hop.Index] = struct{}{}
			if !j.Completed {
				continue
			}

			m := ms[hop.Index]
			rec, ok := byIndex[hop.Index]
			if !ok {
				rec = &FlatRecord{
					Index: hop.Index,
					TS:    m.TS,
					Dir:   m.Dir,
					Src:   m.Src,
					Dst:   m.Dst,
				}
				byIndex[hop.Index] = rec
			}
			rec.UIDs = append([]string{j.UID}, rec.UIDs...)

			if i > 0 {
				prev := j.Set[i-1]
				dur := hop.TS - prev.TS
				points[m.Src].Duration[j.UID] = dur
			}
		}
	}

	flat = make([]FlatRecord, 0, len(byIndex))
	for _, rec := range byIndex {
		flat = append(flat, *rec)
	}
	sort.Slice(flat, func(i, k int) bool { return flat[i].TS < flat[k].TS })

	for idx := range ms {
		if _, bound := boundAny[idx]; !bound {
			orphanCount++
		}
	}
	return flat, orphanCount
}
