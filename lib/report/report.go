/*package report writes and reads the plain-text block report that cmd/meshreport
emits: one row per block, giving its logical location, rank, and cost, for
eyeballing a load-balance or a refinement cycle outside of a debugger.

This is a scoped-down version of the column-oriented text catalog reader the
teacher repo used for halo catalogs (lib/catio): the mesh subsystem needs a
small, fixed set of columns rather than an arbitrary user-specified column
map, so the general Reader interface is replaced by a single Row type and a
Write/Read pair.
*/
package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Row is one line of a block report.
type Row struct {
	GID    int
	Level  int
	Lx1    int64
	Lx2    int64
	Lx3    int64
	Rank   int
	Cost   float64
}

const header = "# gid level lx1 lx2 lx3 rank cost"

// Write emits rows as a whitespace-separated text table, one row per line,
// preceded by a comment header naming the columns.
func Write(w io.Writer, rows []Row) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, header); err != nil { return err }
	for _, r := range rows {
		_, err := fmt.Fprintf(bw, "%d %d %d %d %d %d %g\n",
			r.GID, r.Level, r.Lx1, r.Lx2, r.Lx3, r.Rank, r.Cost)
		if err != nil { return err }
	}
	return bw.Flush()
}

// Read parses a block report written by Write. Lines starting with '#' and
// blank lines are skipped.
func Read(r io.Reader) ([]Row, error) {
	sc := bufio.NewScanner(r)
	rows := []Row{}
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if len(line) == 0 || line[0] == '#' { continue }

		fields := strings.Fields(line)
		if len(fields) != 7 {
			return nil, fmt.Errorf(
				"line %d has %d fields, want 7 (gid level lx1 lx2 lx3 rank cost)",
				lineNo, len(fields))
		}

		row, err := parseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s", lineNo, err.Error())
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil { return nil, err }
	return rows, nil
}

func parseRow(fields []string) (Row, error) {
	ints := make([]int64, 6)
	for i := 0; i < 6; i++ {
		n, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return Row{}, fmt.Errorf("field %d ('%s') is not an integer",
				i+1, fields[i])
		}
		ints[i] = n
	}
	cost, err := strconv.ParseFloat(fields[6], 64)
	if err != nil {
		return Row{}, fmt.Errorf("field 7 ('%s') is not a float", fields[6])
	}

	return Row{
		GID: int(ints[0]), Level: int(ints[1]),
		Lx1: ints[2], Lx2: ints[3], Lx3: ints[4],
		Rank: int(ints[5]), Cost: cost,
	}, nil
}
