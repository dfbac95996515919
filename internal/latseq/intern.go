package latseq

import (
	"github.com/cespare/xxhash/v2"
)

// interner maps point names and identifier keys to small stable integers in
// place of a fully dynamic map keyed by raw strings. Keys are looked up by
// their xxhash digest first so repeated point names across a
// multi-million-line trace cost one map lookup on a uint64 instead of a
// string compare chain.
// Not safe for concurrent use: each engine is single-threaded and owns its
// own interner, so no lock is needed here either.
type interner struct {
	byHash map[uint64]int
	names  []string
}

func newInterner() *interner {
	return &interner{byHash: make(map[uint64]int)}
}

// intern returns the stable id for name, assigning a new one on first sight.
func (in *interner) intern(name string) int {
	h := xxhash.Sum64String(name)
	if id, ok := in.byHash[h]; ok && in.names[id] == name {
		return id
	}
	id := len(in.names)
	in.names = append(in.names, name)
	in.byHash[h] = id
	return id
}

func (in *interner) name(id int) string {
	return in.names[id]
}
