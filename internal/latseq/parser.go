package latseq

import (
	"regexp"
	"strings"
)

// idToken matches a (letters)(digits) identifier token, e.g. "rnti501" ->
// ("rnti", "501").
var idToken = regexp.MustCompile(`^([A-Za-z]+)([0-9]+)$`)

const sentinelUnassignedRNTI = "rnti65535"

// parseRecords implements C2, the Record Parser: split each raw record's
// id blob into properties/globals/locals, drop the sentinel
// "unassigned radio context" records, and accumulate repeated local-id
// keys into an IDValue aggregate, the concatenation encoding a downstream
// record carries when it represents several upstream packets at once.
// knownGlobalIDs collects every global-id key name observed across the
// whole trace.
func parseRecords(records []rawRecord) (measurements []Measurement, knownGlobalIDs map[string]struct{}) {
	knownGlobalIDs = make(map[string]struct{})
	measurements = make([]Measurement, 0, len(records))

	for _, r := range records {
		if strings.Contains(r.dst, sentinelUnassignedRNTI) {
			continue
		}

		groups := strings.SplitN(r.idblob, ":", 3)
		for len(groups) < 3 {
			groups = append(groups, "")
		}

		props := parseTokenGroup(groups[0])
		globals := parseTokenGroup(groups[1])
		for k := range globals {
			knownGlobalIDs[k] = struct{}{}
		}
		locals := parseLocalGroup(groups[2])

		measurements = append(measurements, Measurement{
			TS:        r.ts,
			Dir:       r.dir,
			Src:       r.src,
			Dst:       r.dst,
			Props:     props,
			GlobalIDs: globals,
			LocalIDs:  locals,
		})
	}
	return measurements, knownGlobalIDs
}

// parseTokenGroup parses a dot-separated list of (letters)(digits) tokens
// into a key->value map. Tokens that don't match are skipped silently; an
// empty group yields an empty (non-nil) map.
func parseTokenGroup(group string) map[string]string {
	out := make(map[string]string)
	if group == "" {
		return out
	}
	for _, tok := range strings.Split(group, ".") {
		m := idToken.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		out[m[1]] = m[2]
	}
	return out
}

// parseLocalGroup is parseTokenGroup's counterpart for the locals group:
// a key repeated within one record accumulates into an IDValue aggregate
// instead of being overwritten.
func parseLocalGroup(group string) map[string]IDValue {
	out := make(map[string]IDValue)
	if group == "" {
		return out
	}
	for _, tok := range strings.Split(group, ".") {
		m := idToken.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		key, val := m[1], m[2]
		out[key] = out[key].add(val)
	}
	return out
}
