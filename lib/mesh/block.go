package mesh

import (
	"fmt"

	"github.com/phil-mansfield/tesseract/lib/fields"
)

// NGhost is the number of ghost cells padding each active side of a
// block's cell-index window, per §3.
const NGhost = 2

// CellIndexWindow names the active-cell range along one axis, ghost cells
// sitting just outside [Start, End), per §3.
type CellIndexWindow struct {
	Start, End int
}

// Width returns the number of active cells the window covers.
func (w CellIndexWindow) Width() int { return w.End - w.Start }

// MeshBlock is one leaf of the refinement tree together with the
// bookkeeping the task engine and communication layer need to drive it:
// its place in the tree, its physical extent, its boundary conditions, its
// cell-index windows at both its own resolution and the coarsened
// resolution ghost exchange with a coarser neighbor uses, and the
// scheduling state the task engine mutates every step (§3, §4.5).
type MeshBlock struct {
	GID  int
	Rank int
	Loc  LogicalLocation

	BlockSize RegionSize
	BCs       BoundaryTags

	// IX1, IX2, IX3 are the active-cell windows at this block's own
	// resolution; CX1, CX2, CX3 are the corresponding windows one level
	// coarser, used when restricting/prolonging across a resolution jump.
	IX1, IX2, IX3 CellIndexWindow
	CX1, CX2, CX3 CellIndexWindow

	Cost float64

	// Dt is this block's most recently computed CFL-limited time step
	// proposal, recomputed by Initialize and reduced across every block
	// and rank by Mesh.NewTimeStep (§4.7).
	Dt float64

	// Fields holds this block's physics payload (conservative variables,
	// GR primitives, face-centered field components): the data layout
	// the mesh core owns, per §6, even though the kernels that compute
	// and interpret it are out of scope (§1 Non-goals).
	Fields fields.Set

	Neighbors []NeighborBlock

	// GhostBuffers holds, per neighbor buffer slot, the raw encoded field
	// payload most recently exchanged with that neighbor (§4.7's boundary
	// buffer post/send/await step). Physical boundary conditions and
	// coarse-fine prolongation consume these; the mesh core only moves the
	// bytes, it does not interpret them (§1 Non-goals).
	GhostBuffers map[int][]byte

	// TaskBits records, one bit per registered task, whether that task has
	// completed for the current step (§4.5).
	TaskBits uint64
}

// NewMeshBlock derives a block's physical size and cell-index windows from
// its location within a mesh of the given root size and per-block cell
// counts, per §3's block-sizing rule: each refinement level halves the
// physical extent covered by a fixed number of active cells.
func NewMeshBlock(
	gid int, loc LogicalLocation, meshSize RegionSize,
	nx1, nx2, nx3 int, bcs BoundaryTags,
	gen1, gen2, gen3 MeshGenerator,
) (*MeshBlock, error) {
	if nx1 < 1 || nx2 < 1 || nx3 < 1 {
		return nil, fmt.Errorf("block cell counts (%d,%d,%d) must be positive", nx1, nx2, nx3)
	}

	b := &MeshBlock{GID: gid, Loc: loc, BCs: bcs, Fields: fields.NewSet()}
	b.IX1 = CellIndexWindow{Start: NGhost, End: NGhost + nx1}
	if nx2 > 1 {
		b.IX2 = CellIndexWindow{Start: NGhost, End: NGhost + nx2}
	} else {
		b.IX2 = CellIndexWindow{Start: 0, End: 1}
	}
	if nx3 > 1 {
		b.IX3 = CellIndexWindow{Start: NGhost, End: NGhost + nx3}
	} else {
		b.IX3 = CellIndexWindow{Start: 0, End: 1}
	}
	b.CX1 = coarsenWindow(b.IX1)
	b.CX2 = coarsenWindow(b.IX2)
	b.CX3 = coarsenWindow(b.IX3)

	size, err := blockRegionSize(loc, meshSize, nx1, nx2, nx3, gen1, gen2, gen3)
	if err != nil { return nil, err }
	b.BlockSize = size
	return b, nil
}

// coarsenWindow halves an active-cell window's width, preserving the same
// ghost depth, for the coarse-side buffer used against a finer neighbor.
func coarsenWindow(w CellIndexWindow) CellIndexWindow {
	width := w.Width()
	if width <= 1 { return CellIndexWindow{Start: 0, End: 1} }
	return CellIndexWindow{Start: NGhost, End: NGhost + width/2}
}

// blockRegionSize computes the physical extent a block at loc covers
// within meshSize, using the per-axis mesh generator to place its faces.
func blockRegionSize(
	loc LogicalLocation, meshSize RegionSize, nx1, nx2, nx3 int,
	gen1, gen2, gen3 MeshGenerator,
) (RegionSize, error) {
	scale := int64(1) << uint(loc.Level)
	rx1min, rx1max, err := axisFraction(loc.Lx1, scale, meshSize.Nx1, nx1)
	if err != nil { return RegionSize{}, err }
	rx2min, rx2max, err := axisFraction(loc.Lx2, scale, meshSize.Nx2, nx2)
	if err != nil { return RegionSize{}, err }
	rx3min, rx3max, err := axisFraction(loc.Lx3, scale, meshSize.Nx3, nx3)
	if err != nil { return RegionSize{}, err }

	return RegionSize{
		X1Min: gen1(rx1min, meshSize), X1Max: gen1(rx1max, meshSize),
		X2Min: gen2(rx2min, meshSize), X2Max: gen2(rx2max, meshSize),
		X3Min: gen3(rx3min, meshSize), X3Max: gen3(rx3max, meshSize),
		Nx1: nx1, Nx2: nx2, Nx3: nx3,
		X1Rat: meshSize.X1Rat, X2Rat: meshSize.X2Rat, X3Rat: meshSize.X3Rat,
	}, nil
}

// axisFraction returns the [min,max) fractional position, in [0,1], that
// block coordinate lx occupies along one axis at refinement scale, given
// the mesh's total root-level cell count and this block's own cell count.
func axisFraction(lx, scale int64, meshNx, blockNx int) (min, max float64, err error) {
	if blockNx <= 1 {
		return 0, 1, nil
	}
	totalBlocks := int64(meshNx) / int64(blockNx)
	if totalBlocks < 1 {
		return 0, 0, fmt.Errorf("mesh axis of %d cells cannot hold blocks of %d cells", meshNx, blockNx)
	}
	denom := float64(totalBlocks) * float64(scale)
	return float64(lx) / denom, float64(lx+1) / denom, nil
}

// TaskDone reports whether task bit i has been marked complete for the
// current step.
func (b *MeshBlock) TaskDone(i int) bool {
	return b.TaskBits&(1<<uint(i)) != 0
}

// MarkTaskDone sets task bit i.
func (b *MeshBlock) MarkTaskDone(i int) {
	b.TaskBits |= 1 << uint(i)
}

// ResetTasks clears every task bit, preparing the block for a new step.
func (b *MeshBlock) ResetTasks() {
	b.TaskBits = 0
}
