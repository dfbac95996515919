package latseq

import "github.com/sirupsen/logrus"

// LoadTrace implements C1 (Trace Reader) followed by C2 (Record Parser):
// read a `.lseq` file, drop comments and malformed lines, parse the
// remaining records into canonicalized measurements, and sort them by
// timestamp. knownGlobalIDs is the process-level set of global-id key
// names observed anywhere in the trace.
func LoadTrace(path string, logger *logrus.Logger) (measurements []Measurement, knownGlobalIDs map[string]struct{}, err error) {
	records, err := readTrace(path, logger)
	if err != nil {
		return nil, nil, err
	}
	measurements, knownGlobalIDs = parseRecords(records)
	SortByTimestamp(measurements)
	return measurements, knownGlobalIDs, nil
}

// BuildGraph implements C3, the Point Graph Builder.
func BuildGraph(ms []Measurement) map[string]*Point { return buildGraph(ms) }

// BuildPaths implements C4, the Path Enumerator.
func BuildPaths(points map[string]*Point, pts PointSet, logger *logrus.Logger) (Paths, error) {
	return buildPaths(points, pts, logger)
}
