package latseq

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV implements the --csv export of spec §6: one row per completed
// journey with columns uid, dir, path_id, then one column per name in
// points, each cell holding the timestamp of the hop whose dst_point is
// that column's point (property 7 of spec §8). encoding/csv is used
// instead of a manual comma-join so a point name or id containing a
// comma can never corrupt the row.
func WriteCSV(w io.Writer, journeys []*Journey, ms []Measurement, points []string) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := make([]string, 0, 3+len(points))
	header = append(header, "uid", "dir", "path_id")
	header = append(header, points...)
	if err := cw.Write(header); err != nil {
		return err
	}

	colOf := make(map[string]int, len(points))
	for i, p := range points {
		colOf[p] = i
	}

	for _, j := range journeys {
		if !j.Completed {
			continue
		}
		row := make([]string, len(header))
		row[0] = j.UID
		row[1] = j.Dir.String()
		row[2] = strconv.Itoa(j.PathID)
		for _, hop := range j.Set {
			dst := ms[hop.Index].Dst
			if idx, ok := colOf[dst]; ok {
				row[3+idx] = strconv.FormatFloat(hop.TS, 'f', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}
