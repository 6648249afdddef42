/*Command meshrestart inspects or rewrites a restart file: print its header
and per-block table, or read it back and write it out again, optionally
toggling zstd compression or correcting it against a Mesh rebuilt from a
configuration file.

This plays the role guppy's "check" and "convert" modes play for particle
snapshots: "check" validates a file rebuilds cleanly, "convert" rewrites it.
*/
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"

	"github.com/phil-mansfield/tesseract/lib/comm"
	"github.com/phil-mansfield/tesseract/lib/err"
	"github.com/phil-mansfield/tesseract/lib/mesh"
	"github.com/phil-mansfield/tesseract/lib/report"
)

func main() {
	in := flag.String("in", "", "path to a restart file")
	configFile := flag.String("config", "", "path to the INI configuration the restart file was written under")
	out := flag.String("out", "", "path to rewrite the restart file to (omit to only inspect)")
	compress := flag.Bool("compress", true, "zstd-compress each block's payload when rewriting")
	reportPath := flag.String("report", "", "path to write a block report to (use '-' for stdout)")
	flag.Parse()

	if *in == "" || *configFile == "" {
		err.External("-in and -config are both required")
	}

	cfgBytes, rerr := os.ReadFile(*configFile)
	if rerr != nil {
		err.External("reading config file: %s", rerr.Error())
	}
	cfg, perr := mesh.ParseConfig(string(cfgBytes))
	if perr != nil {
		err.External("%s", perr.Error())
	}

	f, oerr := os.Open(*in)
	if oerr != nil {
		err.External("opening restart file: %s", oerr.Error())
	}
	rd, rderr := mesh.OpenRestart(f)
	if rderr != nil {
		f.Close()
		err.External("%s", rderr.Error())
	}

	rc := comm.Local()
	m, berr := mesh.NewMeshFromRestart(cfg, rc, rd, false)
	f.Close()
	if berr != nil {
		err.External("rebuilding mesh: %s", berr.Error())
	}

	fmt.Printf("dim %d, nrbx %v, ncycle %d, time %g, %d leaves, %d local blocks\n",
		m.Dim, m.Nrbx, m.NCycle, m.Time, len(m.LocList), len(m.Blocks))

	if *reportPath != "" {
		writeBlockReport(m, *reportPath)
	}

	if *out != "" {
		rewriteRestart(m, *out, *compress)
	}
}

func writeBlockReport(m *mesh.Mesh, path string) {
	rows := make([]report.Row, len(m.LocList))
	for i, loc := range m.LocList {
		rows[i] = report.Row{
			GID: i, Level: loc.Level, Lx1: loc.Lx1, Lx2: loc.Lx2, Lx3: loc.Lx3,
			Rank: m.RankList[i], Cost: m.CostList[i],
		}
	}

	if path == "-" {
		if werr := report.Write(os.Stdout, rows); werr != nil {
			err.Internal("writing block report: %s", werr.Error())
		}
		return
	}
	out, cerr := os.Create(path)
	if cerr != nil {
		err.Internal("creating report file %s: %s", path, cerr.Error())
	}
	defer out.Close()
	if werr := report.Write(out, rows); werr != nil {
		err.Internal("writing block report: %s", werr.Error())
	}
}

func rewriteRestart(m *mesh.Mesh, path string, compress bool) {
	out, cerr := os.Create(path)
	if cerr != nil {
		err.Internal("creating %s: %s", path, cerr.Error())
	}
	defer out.Close()

	w := mesh.NewRestartWriter(binary.LittleEndian, compress)
	for i, loc := range m.LocList {
		b := m.FindBlock(i)
		if b == nil {
			// A block this rank does not own: rewriting a single-rank
			// view of a multi-rank restart file is not this tool's job.
			err.Internal("block %d (gid) is not local to this rank; run meshrestart per-rank restart file", i)
		}
		if werr := w.WriteBlock(loc, b.Cost, b.BlockSize, b.BCs, b.Fields); werr != nil {
			err.Internal("writing block %d: %s", i, werr.Error())
		}
	}
	if werr := w.Flush(out, m.Dim, m.Nrbx, int64(m.NCycle), m.Time, m.Dt, m.Size, m.BCs); werr != nil {
		err.Internal("flushing %s: %s", path, werr.Error())
	}
}
