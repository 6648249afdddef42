package mesh

import (
	"encoding/binary"
	"fmt"
	"log"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/phil-mansfield/tesseract/lib/comm"
)

// ResFlag selects which phase of §4.7's initialize a call represents.
type ResFlag int

const (
	// ResFlagFreshStart runs the problem generator on every local block
	// before the rest of initialization.
	ResFlagFreshStart ResFlag = iota
	// ResFlagRestart skips the problem generator: field data already
	// came from the restart file.
	ResFlagRestart
	// ResFlagRefinement skips the problem generator and is used after a
	// refinement cycle reshapes the local block list.
	ResFlagRefinement
)

// ProblemGenerator populates one freshly-created block's field data on cold
// start, per §4.7's res_flag == 0 case. Owned by the physics layer.
type ProblemGenerator func(b *MeshBlock) error

// BoundaryPhysics is the physics-layer surface §4.7's initialize drives:
// applying physical boundary conditions, prolongating coarse-fine
// interfaces, and converting between conserved and primitive variables.
// The mesh core sequences these calls; it does not implement the
// numerics behind them (§1 Non-goals).
type BoundaryPhysics interface {
	ApplyPhysicalBoundaries(b *MeshBlock) error
	ProlongateCoarseFineBoundaries(b *MeshBlock) error
	ConservedToPrimitive(b *MeshBlock) error
	NewBlockTimeStep(b *MeshBlock) float64
}

// NewTimeStep implements §4.7's new_time_step: collect every local block's
// CFL-proposed step (last refreshed by Initialize) with floats.Min,
// min-reduce across ranks, then clamp to at most twice the previous step
// and to not overshoot tLim.
func (m *Mesh) NewTimeStep(rc comm.RankContext, tLim float64) error {
	if len(m.Blocks) == 0 {
		return fmt.Errorf("cannot compute a time step with no local blocks")
	}
	proposals := make([]float64, len(m.Blocks))
	for i, b := range m.Blocks {
		proposals[i] = b.Dt
	}
	local := floats.Min(proposals)
	dt := rc.Comm.AllreduceMinFloat64(local)

	if m.Dt > 0 && dt > 2*m.Dt {
		dt = 2 * m.Dt
	}
	if remaining := tLim - m.Time; remaining > 0 && dt > remaining {
		dt = remaining
	}
	m.Dt = dt
	return nil
}

// GetTotalCells implements §4.7's get_total_cells: nbtotal times the
// per-block active cell count, assuming homogeneous block sizes.
func (m *Mesh) GetTotalCells() uint64 {
	nx2, nx3 := m.BlockNx2, m.BlockNx3
	if nx2 < 1 { nx2 = 1 }
	if nx3 < 1 { nx3 = 1 }
	perBlock := uint64(m.BlockNx1) * uint64(nx2) * uint64(nx3)
	return uint64(len(m.LocList)) * perBlock
}

// TestConservation implements §4.7's test_conservation: for every field
// name carried by this rank's blocks, volume-weight and sum the local
// values with floats.Sum, sum-reduce the per-field totals across ranks,
// and report the global totals on rank 0.
func (m *Mesh) TestConservation(rc comm.RankContext) (map[string]float64, error) {
	names := m.localFieldNames()
	localSums := make([]float64, len(names))
	for i, name := range names {
		var total float64
		for _, b := range m.Blocks {
			f, ok := b.Fields[name]
			if !ok { continue }
			total += floats.Sum(f.Data) * cellVolume(b.BlockSize)
		}
		localSums[i] = total
	}

	globalSums := rc.Comm.AllreduceSumFloat64(localSums)
	result := make(map[string]float64, len(names))
	for i, name := range names {
		result[name] = globalSums[i]
	}

	if rc.Comm.Rank() == 0 {
		for _, name := range names {
			log.Printf("conservation: %s = %g", name, result[name])
		}
	}
	return result, nil
}

// localFieldNames returns the field names this rank's blocks carry, in a
// stable order so that AllreduceSumFloat64's positional sum lines up
// identically across every rank.
func (m *Mesh) localFieldNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, b := range m.Blocks {
		for name := range b.Fields {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func cellVolume(sz RegionSize) float64 {
	v := (sz.X1Max - sz.X1Min) / float64(sz.Nx1)
	if sz.Nx2 > 1 {
		v *= (sz.X2Max - sz.X2Min) / float64(sz.Nx2)
	}
	if sz.Nx3 > 1 {
		v *= (sz.X3Max - sz.X3Min) / float64(sz.Nx3)
	}
	return v
}

// Initialize implements §4.7's initialize: on a cold start, run the problem
// generator on every local block and check its boundary tags; on every
// start and after every refinement cycle, exchange hydro/field boundary
// buffers with every neighbor, apply physical boundary conditions,
// prolongate coarse-fine interfaces, convert conserved to primitive
// variables, and recompute each block's proposed time step.
func (m *Mesh) Initialize(rc comm.RankContext, resFlag ResFlag, gen ProblemGenerator, phys BoundaryPhysics) error {
	if resFlag == ResFlagFreshStart {
		if gen == nil {
			return fmt.Errorf("fresh start requires a problem generator")
		}
		for _, b := range m.Blocks {
			if gerr := gen(b); gerr != nil {
				return fmt.Errorf("generating initial conditions for block %d: %w", b.GID, gerr)
			}
			if berr := checkBoundaryTags(b.BCs); berr != nil {
				return fmt.Errorf("block %d: %w", b.GID, berr)
			}
		}
	}

	if eerr := m.exchangeBoundaryBuffers(rc); eerr != nil {
		return eerr
	}

	for _, b := range m.Blocks {
		if aerr := phys.ApplyPhysicalBoundaries(b); aerr != nil {
			return fmt.Errorf("applying boundaries on block %d: %w", b.GID, aerr)
		}
		if m.hasMultilevelNeighbor(b) {
			if perr := phys.ProlongateCoarseFineBoundaries(b); perr != nil {
				return fmt.Errorf("prolongating coarse-fine interface on block %d: %w", b.GID, perr)
			}
		}
		if cerr := phys.ConservedToPrimitive(b); cerr != nil {
			return fmt.Errorf("converting block %d to primitive variables: %w", b.GID, cerr)
		}
		b.Dt = phys.NewBlockTimeStep(b)
	}
	return nil
}

// exchangeBoundaryBuffers implements §4.7's "post receive intents, send
// hydro/field boundary buffers, await" step: for every local block, fill in
// its GhostBuffers from each neighbor's current field data, either by a
// direct lookup when the neighbor is owned by this same rank or by a
// blocking SendRecv round trip, keyed by buffer id, when it isn't. There is
// no separate ghost-cell storage in a block's Fields (§3); the buffer
// carries the neighbor's whole encoded field set, leaving how much of it to
// use to the physics layer.
func (m *Mesh) exchangeBoundaryBuffers(rc comm.RankContext) error {
	myRank := rc.Comm.Rank()
	for _, b := range m.Blocks {
		if b.GhostBuffers == nil {
			b.GhostBuffers = make(map[int][]byte, len(b.Neighbors))
		}
		for _, n := range b.Neighbors {
			if n.Rank == myRank {
				owner := m.FindBlock(n.GID)
				if owner == nil { continue }
				payload, eerr := encodeFieldSet(binary.LittleEndian, owner.Fields)
				if eerr != nil {
					return fmt.Errorf("encoding boundary buffer for block %d: %w", owner.GID, eerr)
				}
				b.GhostBuffers[n.BufferID] = payload
				continue
			}

			payload, eerr := encodeFieldSet(binary.LittleEndian, b.Fields)
			if eerr != nil {
				return fmt.Errorf("encoding boundary buffer for block %d: %w", b.GID, eerr)
			}
			recv, serr := rc.Comm.SendRecv(n.Rank, n.BufferID, payload)
			if serr != nil {
				return fmt.Errorf("exchanging boundary buffer between block %d and rank %d: %w", b.GID, n.Rank, serr)
			}
			b.GhostBuffers[n.BufferID] = recv
		}
	}
	return nil
}

func (m *Mesh) hasMultilevelNeighbor(b *MeshBlock) bool {
	for _, n := range b.Neighbors {
		if n.LevelDelta != 0 { return true }
	}
	return false
}

// checkBoundaryTags rejects a polar tag on an axis other than x2; every
// other tag combination §3 allows is passed through untouched.
func checkBoundaryTags(bcs BoundaryTags) error {
	for face, bc := range bcs {
		if bc == BoundaryPolar && face/2 != 1 {
			return fmt.Errorf("polar boundary tag is only valid on the x2 faces, found it on face %d", face)
		}
	}
	return nil
}

// FindBlock implements §4.7's find_block: a linear walk over local blocks,
// acceptable since the local list is small.
func (m *Mesh) FindBlock(gid int) *MeshBlock {
	for _, b := range m.Blocks {
		if b.GID == gid { return b }
	}
	return nil
}
