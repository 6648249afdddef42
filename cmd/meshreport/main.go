/*Command meshreport prints the block decomposition a configuration file
would produce, without running anything: every leaf's logical location,
the rank the load balancer assigns it to, and its seed cost. It's the tool
to reach for before a run, to sanity-check a mesh's refinement regions and
its balance across a prospective rank count.
*/
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/phil-mansfield/tesseract/lib/comm"
	"github.com/phil-mansfield/tesseract/lib/err"
	"github.com/phil-mansfield/tesseract/lib/format"
	"github.com/phil-mansfield/tesseract/lib/mesh"
	"github.com/phil-mansfield/tesseract/lib/report"
)

// reportRankContext returns a RankContext that only ever acts as rank 0 of
// size, good enough for NewMesh's balancing step: meshreport never drives
// an actual multi-process run, it only wants to see the balance nranks
// would produce.
func reportRankContext(size int) comm.RankContext {
	return comm.RankContext{Comm: &sizedComm{size: size}}
}

type sizedComm struct{ size int }

func (c *sizedComm) Rank() int { return 0 }
func (c *sizedComm) Size() int { return c.size }

func (c *sizedComm) SendRecv(peer int, tag int, send []byte) ([]byte, error) {
	return nil, fmt.Errorf("meshreport does not exchange boundary data")
}
func (c *sizedComm) AllreduceMinFloat64(x float64) float64    { return x }
func (c *sizedComm) AllreduceSumFloat64(x []float64) []float64 { return x }
func (c *sizedComm) AllgatherInt64(x int64) []int64            { return []int64{x} }
func (c *sizedComm) AllgathervFloat64(x []float64) []float64   { return x }
func (c *sizedComm) AllgathervInt64(x []int64) []int64         { return x }
func (c *sizedComm) Barrier()                                  {}

func main() {
	configFile := flag.String("config", "", "path to an INI-formatted mesh configuration file")
	nranks := flag.Int("nranks", 1, "number of ranks to balance the mesh across")
	ranksFilter := flag.String("ranks", "", "sequence format selecting which ranks' blocks to print (default: all)")
	out := flag.String("out", "-", "path to write the report to ('-' for stdout)")
	flag.Parse()

	if *configFile == "" {
		err.External("-config is required")
	}

	cfgBytes, rerr := os.ReadFile(*configFile)
	if rerr != nil {
		err.External("reading config file: %s", rerr.Error())
	}
	in, perr := mesh.ParseConfig(string(cfgBytes))
	if perr != nil {
		err.External("%s", perr.Error())
	}

	// testMode is true: meshreport previews a hypothetical nranks that may
	// exceed nbtotal, which NewMesh would otherwise reject outright.
	m, merr := mesh.NewMesh(in, reportRankContext(*nranks), true)
	if merr != nil {
		err.External("%s", merr.Error())
	}

	var wantRank map[int]bool
	if *ranksFilter != "" {
		ranks, ferr := format.ExpandSequenceFormat(*ranksFilter)
		if ferr != nil {
			err.External("-ranks: %s", ferr.Error())
		}
		wantRank = make(map[int]bool, len(ranks))
		for _, r := range ranks {
			wantRank[r] = true
		}
	}

	rows := make([]report.Row, 0, len(m.LocList))
	for gid, loc := range m.LocList {
		rank := m.RankList[gid]
		if wantRank != nil && !wantRank[rank] {
			continue
		}
		rows = append(rows, report.Row{
			GID: gid, Level: loc.Level, Lx1: loc.Lx1, Lx2: loc.Lx2, Lx3: loc.Lx3,
			Rank: rank, Cost: m.CostList[gid],
		})
	}

	w := os.Stdout
	if *out != "-" {
		f, cerr := os.Create(*out)
		if cerr != nil {
			err.Internal("creating %s: %s", *out, cerr.Error())
		}
		defer f.Close()
		w = f
	}
	if werr := report.Write(w, rows); werr != nil {
		err.Internal("writing report: %s", werr.Error())
	}
	if *out != "-" {
		fmt.Printf("wrote %d rows to %s\n", len(rows), *out)
	}
}
