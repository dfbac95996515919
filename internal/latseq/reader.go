package latseq

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	apperr "github.com/flavienrj/latseq-go/pkg/errors"
	"github.com/sirupsen/logrus"
)

// rawRecord is one line of the trace file after the cheapest possible
// split, before identifier parsing. Field order matches the `.lseq` line
// format: `TIMESTAMP DIRECTION SRC--DST IDBLOB`.
type rawRecord struct {
	line   int
	ts     float64
	dir    Direction
	src    string
	dst    string
	idblob string
}

// readTrace implements C1, the Trace Reader: read a `.lseq` file, drop
// comments and malformed lines (logging a warning for the latter), and
// return records in file order. Callers sort by timestamp separately
// (SortByTimestamp) once the records have been parsed into Measurements.
func readTrace(path string, logger *logrus.Logger) ([]rawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.TraceUnreadable("readTrace", fmt.Sprintf("open %s", path)).Wrap(err)
	}
	defer f.Close()

	var records []rawRecord
	names := newInterner()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			logger.WithFields(logrus.Fields{"line": lineNo, "text": line}).
				Warn("latseq: malformed line, skipping")
			continue
		}
		ts, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			logger.WithFields(logrus.Fields{"line": lineNo, "text": line}).
				Warn("latseq: malformed timestamp, skipping")
			continue
		}
		dir := DL
		if fields[1] == "U" {
			dir = UL
		} else if fields[1] != "D" {
			logger.WithFields(logrus.Fields{"line": lineNo, "text": line}).
				Warn("latseq: malformed direction, skipping")
			continue
		}
		points := strings.SplitN(fields[2], "--", 2)
		if len(points) != 2 {
			logger.WithFields(logrus.Fields{"line": lineNo, "text": line}).
				Warn("latseq: malformed segment, skipping")
			continue
		}
		// A production trace repeats the same handful of point names
		// across millions of lines; interning them keeps every
		// downstream map keyed by point name (points, NextPoint) keyed
		// off one shared string per name instead of one per occurrence.
		src := names.name(names.intern(points[0]))
		dst := names.name(names.intern(points[1]))
		records = append(records, rawRecord{
			line:   lineNo,
			ts:     ts,
			dir:    dir,
			src:    src,
			dst:    dst,
			idblob: fields[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, apperr.TraceUnreadable("readTrace", fmt.Sprintf("read %s", path)).Wrap(err)
	}
	return records, nil
}
