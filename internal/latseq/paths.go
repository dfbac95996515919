package latseq

import (
	"fmt"
	"sort"

	apperr "github.com/flavienrj/latseq-go/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Paths holds the frozen, per-direction path sets built by the Path
// Enumerator (C4). A path's position within its direction's slice is its
// path id.
type Paths struct {
	D []Path
	U []Path
}

func (p Paths) forDir(dir Direction) []Path {
	if dir == UL {
		return p.U
	}
	return p.D
}

// buildPaths implements C4: enumerate all simple (no repeated node) paths
// from each declared input to each declared output, per direction, via
// depth-first traversal of the point graph. It is fatal if both directions
// yield zero paths, and a warning if only one does.
func buildPaths(points map[string]*Point, pts PointSet, logger *logrus.Logger) (Paths, error) {
	var out Paths
	out.D = enumerateDirection(points, pts.InD, pts.OutD)
	out.U = enumerateDirection(points, pts.InU, pts.OutU)

	if len(out.D) == 0 && len(out.U) == 0 {
		return out, apperr.NoPathsEitherDir("buildPaths",
			"no paths found in either Downlink or Uplink")
	}
	if len(out.D) == 0 {
		logger.Warn(apperr.NoPathsOneDir("buildPaths", "no paths found in Downlink").Error())
	}
	if len(out.U) == 0 {
		logger.Warn(apperr.NoPathsOneDir("buildPaths", "no paths found in Uplink").Error())
	}
	return out, nil
}

func enumerateDirection(points map[string]*Point, ins, outs map[string]struct{}) []Path {
	// Sort inputs/outputs for deterministic path-id ordering across runs.
	inNames := sortedKeys(ins)
	outNames := sortedKeys(outs)

	var paths []Path
	for _, in := range inNames {
		for _, out := range outNames {
			visited := make(map[string]struct{}, 8)
			var cur []string
			findAllPaths(points, in, out, cur, visited, &paths)
		}
	}
	return paths
}

func findAllPaths(points map[string]*Point, cur, end string, path []string, visited map[string]struct{}, out *[]Path) {
	path = append(path, cur)
	if cur == end {
		frozen := make(Path, len(path))
		copy(frozen, path)
		*out = append(*out, frozen)
		return
	}
	p, ok := points[cur]
	if !ok {
		return
	}
	visited[cur] = struct{}{}
	defer delete(visited, cur)
	for _, next := range p.NextSorted() {
		if _, seen := visited[next]; seen {
			continue
		}
		findAllPaths(points, next, end, path, visited, out)
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (p Paths) String() string {
	s := "Downlink paths\n"
	for i, path := range p.D {
		s += fmt.Sprintf("\tpath %d : %s\n", i, path.String())
	}
	s += "Uplink paths\n"
	for i, path := range p.U {
		s += fmt.Sprintf("\tpath %d : %s\n", i, path.String())
	}
	return s
}
