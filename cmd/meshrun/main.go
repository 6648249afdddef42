/*Command meshrun drives a mesh through a sequence of cycles, the way
guppy's "convert" mode drives a sequence of snapshots: read a config file,
build or restore a Mesh, then repeatedly run the task engine, advance the
clock, and optionally checkpoint, until the cycle or time limit is
reached. It does not run refinement cycles.

meshrun does not contain any physics: there is no Riemann solver, equation
of state, or field integrator here (those are out of scope, per the core
this binary wraps). The single task it registers advances nothing; it
exists to exercise the task engine's bookkeeping end to end. A real
simulation links its own TaskList and BoundaryPhysics against lib/mesh and
calls the same entry points this file does.
*/
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/phil-mansfield/tesseract/lib/comm"
	"github.com/phil-mansfield/tesseract/lib/err"
	"github.com/phil-mansfield/tesseract/lib/format"
	"github.com/phil-mansfield/tesseract/lib/mesh"
)

func main() {
	configFile := flag.String("config", "", "path to an INI-formatted mesh configuration file")
	restartFile := flag.String("restart", "", "path to a restart file to resume from (omit for a fresh start)")
	outPrefix := flag.String("out", "", "path prefix for restart files written during the run (e.g. run/chk)")
	dumpCycles := flag.String("dump_cycles", "", "sequence format naming the cycles to checkpoint on, e.g. '0 + 100..1000-250'")
	compress := flag.Bool("compress", true, "zstd-compress each block's payload in written restart files")
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

	dumpSet := map[int]bool{}
	if *dumpCycles != "" {
		cycles, ferr := format.ExpandSequenceFormat(*dumpCycles)
		if ferr != nil {
			err.External("-dump_cycles: %s", ferr.Error())
		}
		for _, c := range cycles {
			dumpSet[c] = true
		}
	}

	rc := comm.NewRankContext()

	m, resFlag := buildMesh(in, rc, *restartFile)

	phys := &nullPhysics{cflNumber: in.Time.CflNumber}
	gen := func(b *mesh.MeshBlock) error {
		b.Fields.Add("density", 1, []float64{1})
		return nil
	}
	var genOrNil mesh.ProblemGenerator
	if resFlag == mesh.ResFlagFreshStart {
		genOrNil = gen
	}
	if ierr := m.Initialize(rc, resFlag, genOrNil, phys); ierr != nil {
		err.Internal("initializing mesh: %s", ierr.Error())
	}

	tasks := mesh.NewTaskList()
	if _, terr := tasks.AddTask("advance", 0, func(b *mesh.MeshBlock) (mesh.TaskStatus, error) {
		return mesh.TaskComplete, nil
	}); terr != nil {
		err.Internal("registering task list: %s", terr.Error())
	}

	nlim := in.Time.NLim
	if nlim <= 0 {
		nlim = -1
	}
	tlim := in.Time.TLim

	for nlim < 0 || m.NCycle < nlim {
		if m.Time >= tlim {
			break
		}
		if nerr := m.NewTimeStep(rc, tlim); nerr != nil {
			err.Internal("computing time step at cycle %d: %s", m.NCycle, nerr.Error())
		}
		if uerr := tasks.UpdateOneStep(m.Blocks); uerr != nil {
			err.Internal("cycle %d: %s", m.NCycle, uerr.Error())
		}
		m.Time += m.Dt
		m.NCycle++

		if rc.Comm.Rank() == 0 && m.NCycle%10 == 0 {
			log.Printf("cycle %d: time %g, dt %g, %d blocks", m.NCycle, m.Time, m.Dt, len(m.LocList))
		}
		if dumpSet[m.NCycle] {
			writeRestart(m, rc, *outPrefix, *compress)
		}
	}

	if _, cerr := m.TestConservation(rc); cerr != nil {
		err.Internal("final conservation check: %s", cerr.Error())
	}
	if *outPrefix != "" {
		writeRestart(m, rc, *outPrefix, *compress)
	}
}

// buildMesh constructs a fresh Mesh or restores one from restartFile, and
// reports which Initialize phase the caller should run.
func buildMesh(in *mesh.Input, rc comm.RankContext, restartFile string) (*mesh.Mesh, mesh.ResFlag) {
	if restartFile == "" {
		m, merr := mesh.NewMesh(in, rc, false)
		if merr != nil {
			err.External("%s", merr.Error())
		}
		return m, mesh.ResFlagFreshStart
	}

	f, ferr := os.Open(restartFile)
	if ferr != nil {
		err.External("opening restart file: %s", ferr.Error())
	}
	defer f.Close()

	rd, rerr := mesh.OpenRestart(f)
	if rerr != nil {
		err.External("%s", rerr.Error())
	}
	m, berr := mesh.NewMeshFromRestart(in, rc, rd, false)
	if berr != nil {
		err.External("%s", berr.Error())
	}
	return m, mesh.ResFlagRestart
}

// writeRestart serializes every local block and flushes it to
// "<prefix>.<cycle, 7 digits>.rank<rank>.tesseract". Each rank writing its own file rather than
// a single shared one keeps this driver free of any collective I/O
// dependency the task at hand doesn't need.
func writeRestart(m *mesh.Mesh, rc comm.RankContext, prefix string, compress bool) {
	if prefix == "" {
		return
	}
	name := fmt.Sprintf("%s.%07d.rank%d.tesseract", prefix, m.NCycle, rc.Comm.Rank())
	f, ferr := os.Create(name)
	if ferr != nil {
		err.Internal("creating restart file %s: %s", name, ferr.Error())
	}
	defer f.Close()

	w := mesh.NewRestartWriter(binary.LittleEndian, compress)
	for i, loc := range m.LocList {
		if m.RankList[i] != rc.Comm.Rank() {
			continue
		}
		b := m.FindBlock(i)
		if b == nil {
			err.Internal("restart writer: no local block found for gid %d", i)
		}
		if werr := w.WriteBlock(loc, b.Cost, b.BlockSize, b.BCs, b.Fields); werr != nil {
			err.Internal("writing block %d to restart file: %s", i, werr.Error())
		}
	}
	if werr := w.Flush(f, m.Dim, m.Nrbx, int64(m.NCycle), m.Time, m.Dt, m.Size, m.BCs); werr != nil {
		err.Internal("flushing restart file %s: %s", name, werr.Error())
	}
	if rc.Comm.Rank() == 0 {
		log.Printf("wrote %s", name)
	}
}

// nullPhysics is a BoundaryPhysics that performs no numerics: it exists so
// meshrun can exercise Initialize's sequencing without a real physics
// module linked in. ApplyPhysicalBoundaries and ProlongateCoarseFineBoundaries
// are no-ops because there is no field data layout to act on beyond what
// the problem generator already wrote.
type nullPhysics struct {
	cflNumber float64
}

func (p *nullPhysics) ApplyPhysicalBoundaries(b *mesh.MeshBlock) error { return nil }
func (p *nullPhysics) ProlongateCoarseFineBoundaries(b *mesh.MeshBlock) error { return nil }
func (p *nullPhysics) ConservedToPrimitive(b *mesh.MeshBlock) error { return nil }

func (p *nullPhysics) NewBlockTimeStep(b *mesh.MeshBlock) float64 {
	dx := (b.BlockSize.X1Max - b.BlockSize.X1Min) / float64(b.BlockSize.Nx1)
	cfl := p.cflNumber
	if cfl <= 0 {
		cfl = 0.3
	}
	return cfl * dx
}
