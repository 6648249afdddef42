package mesh

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/tesseract/lib/comm"
	"github.com/phil-mansfield/tesseract/lib/err"
)

// Mesh owns the global refinement tree and the bookkeeping every rank needs
// to find its own blocks within it: the Morton-ordered global arrays
// (LocList/CostList/RankList/NsList/NbList) and the local slice of
// MeshBlocks this rank actually holds, per §4.4.
type Mesh struct {
	Tree *BlockTree

	Dim  int
	Nrbx [3]int64
	Size RegionSize
	BCs  BoundaryTags

	BlockNx1, BlockNx2, BlockNx3 int
	NumThreads                   int

	Gen1, Gen2, Gen3 MeshGenerator

	LocList  []LogicalLocation
	CostList []float64
	RankList []int
	NsList   []int
	NbList   []int

	// Multilevel reports whether the current LocList spans more than one
	// refinement level; BuildNeighbors uses it to decide whether edge and
	// corner neighbors are worth resolving (§4.2).
	Multilevel bool

	// TestMode relaxes AssignRanks's nbtotal >= nranks requirement to a
	// warning, per §4.3/§7: set this for balance previews and other
	// non-production callers that want to see a hypothetical rank count
	// without a real run behind it.
	TestMode bool

	Blocks []*MeshBlock // this rank's own blocks, gid order

	NCycle int
	Time   float64
	Dt     float64

	NbNew, NbDel int // blocks created/destroyed by the most recent refinement cycle
}

// NewMesh constructs a fresh mesh from a parsed configuration, steps 1-6 of
// §4.4: validate the input, build the root grid, apply any static
// refinement regions, balance, and instantiate this rank's local blocks.
// testMode is passed through to AssignRanks (see Mesh.TestMode).
func NewMesh(in *Input, rc comm.RankContext, testMode bool) (*Mesh, error) {
	nrbx, dim, rerr := in.RootGrid()
	if rerr != nil {
		return nil, err.New(err.Config, "%s", rerr.Error())
	}
	size := in.RegionSize()
	if verr := size.Validate(); verr != nil {
		return nil, err.New(err.Config, "%s", verr.Error())
	}
	bcs, berr := in.BoundaryConditions()
	if berr != nil {
		return nil, err.New(err.Config, "%s", berr.Error())
	}
	if cerr := validateCfl(in.Time.CflNumber, dim); cerr != nil {
		return nil, err.New(err.Config, "%s", cerr.Error())
	}
	numThreads, terr := in.NumThreads()
	if terr != nil {
		return nil, err.New(err.Config, "%s", terr.Error())
	}

	tree, terr2 := CreateRoot(dim, nrbx)
	if terr2 != nil {
		return nil, err.New(err.Config, "%s", terr2.Error())
	}

	m := &Mesh{
		Tree: tree, Dim: dim, Nrbx: nrbx, Size: size, BCs: bcs,
		BlockNx1: in.MeshBlock.Nx1, BlockNx2: in.MeshBlock.Nx2, BlockNx3: in.MeshBlock.Nx3,
		NumThreads: numThreads, TestMode: testMode,
		Gen1: UniformMeshGeneratorX1, Gen2: UniformMeshGeneratorX2, Gen3: UniformMeshGeneratorX3,
	}

	for _, region := range in.RefinementRegions() {
		if rerr := m.applyStaticRefinement(region); rerr != nil {
			return nil, err.New(err.Config, "%s", rerr.Error())
		}
	}

	if rerr := m.rebuildGlobalArrays(rc.Comm.Size()); rerr != nil {
		return nil, rerr
	}
	if rerr := m.instantiateLocalBlocks(rc.Comm.Rank()); rerr != nil {
		return nil, rerr
	}
	return m, nil
}

// NewMeshFromRestart rebuilds a Mesh from a restart file already opened
// with OpenRestart, per §4.4's restart construction: rebuild the tree with
// AddWithoutRefine from every record's location, verify the leaf count
// matches nbtotal, rebalance, then instantiate this rank's local blocks and
// fill their field data from the matching records. testMode is passed
// through to AssignRanks (see Mesh.TestMode).
func NewMeshFromRestart(in *Input, rc comm.RankContext, rd *RestartReader, testMode bool) (*Mesh, error) {
	nrbx, dim, rerr := in.RootGrid()
	if rerr != nil {
		return nil, err.New(err.Config, "%s", rerr.Error())
	}
	if dim != int(rd.Header.Dim) {
		return nil, err.New(err.CorruptedRestart,
			"restart file is %dD, configuration describes a %dD mesh", rd.Header.Dim, dim)
	}
	if nrbx != rd.Header.Nrbx {
		return nil, err.New(err.CorruptedRestart,
			"restart file root grid %v does not match configuration's %v", rd.Header.Nrbx, nrbx)
	}

	size := in.RegionSize()
	if verr := size.Validate(); verr != nil {
		return nil, err.New(err.Config, "%s", verr.Error())
	}
	bcs, berr := in.BoundaryConditions()
	if berr != nil {
		return nil, err.New(err.Config, "%s", berr.Error())
	}
	if cerr := validateCfl(in.Time.CflNumber, dim); cerr != nil {
		return nil, err.New(err.Config, "%s", cerr.Error())
	}
	numThreads, nterr := in.NumThreads()
	if nterr != nil {
		return nil, err.New(err.Config, "%s", nterr.Error())
	}

	tree, terr := CreateRoot(dim, nrbx)
	if terr != nil {
		return nil, err.New(err.Config, "%s", terr.Error())
	}

	m := &Mesh{
		Tree: tree, Dim: dim, Nrbx: nrbx, Size: size, BCs: bcs,
		BlockNx1: in.MeshBlock.Nx1, BlockNx2: in.MeshBlock.Nx2, BlockNx3: in.MeshBlock.Nx3,
		NumThreads: numThreads, TestMode: testMode,
		Gen1: UniformMeshGeneratorX1, Gen2: UniformMeshGeneratorX2, Gen3: UniformMeshGeneratorX3,
		NCycle: int(rd.Header.NCycle), Time: rd.Header.Time, Dt: rd.Header.Dt,
	}

	nbtotal := int(rd.Header.NumBlocks)
	records := make([]BlockRecord, nbtotal)
	for i := 0; i < nbtotal; i++ {
		rec, recErr := rd.ReadBlock(i)
		if recErr != nil { return nil, recErr }
		if aerr := m.Tree.AddWithoutRefine(rec.Loc); aerr != nil {
			return nil, err.New(err.CorruptedRestart, "restoring block %d at %+v: %s", i, rec.Loc, aerr.Error())
		}
		records[i] = rec
	}
	if got := m.Tree.CountLeaves(); got != nbtotal {
		return nil, err.New(err.CorruptedRestart, "tree rebuilt with %d leaves, restart file declares %d", got, nbtotal)
	}

	if rerr := m.rebuildGlobalArrays(rc.Comm.Size()); rerr != nil {
		return nil, rerr
	}
	byLoc := make(map[LogicalLocation]BlockRecord, nbtotal)
	for _, rec := range records {
		byLoc[rec.Loc] = rec
	}
	for i, loc := range m.LocList {
		if rec, ok := byLoc[loc]; ok {
			m.CostList[i] = rec.Cost
		}
	}

	if rerr := m.instantiateLocalBlocks(rc.Comm.Rank()); rerr != nil {
		return nil, rerr
	}
	for _, b := range m.Blocks {
		rec, ok := byLoc[b.Loc]
		if !ok {
			return nil, err.New(err.CorruptedRestart, "no restart record found for rebuilt block at %+v", b.Loc)
		}
		b.Fields = rec.Fields
	}
	return m, nil
}

// validateCfl enforces mesh.cpp's cfl_number ceiling (~L129-137, ~L619-627):
// a 1D simulation only ever advects signal along one axis per step, so the
// stability limit is looser than the 0.5 a 2D or 3D mesh needs.
func validateCfl(cfl float64, dim int) error {
	if dim == 1 {
		if cfl > 1.0 {
			return fmt.Errorf("cfl_number %g must be <= 1.0 in a 1D simulation", cfl)
		}
		return nil
	}
	if cfl > 0.5 {
		return fmt.Errorf("cfl_number %g must be <= 0.5 in a %dD simulation", cfl, dim)
	}
	return nil
}

// applyStaticRefinement refines every root-grid block that overlaps a
// configured region down to its requested level, per §4.4's static
// refinement region support.
func (m *Mesh) applyStaticRefinement(region *RefinementSection) error {
	if region.Level <= 0 { return nil }
	leaves := m.Tree.EnumerateLeaves()
	for _, loc := range leaves {
		if loc.Level >= region.Level { continue }
		if !m.overlapsRegion(loc, region) { continue }
		if derr := m.refineDownTo(loc, region.Level, region); derr != nil {
			return derr
		}
	}
	return nil
}

// refineDownTo repeatedly splits the leaf at loc (and whichever of its
// descendants keep overlapping region) until it reaches targetLevel.
func (m *Mesh) refineDownTo(loc LogicalLocation, targetLevel int, region *RefinementSection) error {
	if loc.Level >= targetLevel { return nil }
	if aerr := m.Tree.AddLeaf(LogicalLocation{
		Level: loc.Level + 1, Lx1: loc.Lx1 << 1, Lx2: loc.Lx2 << 1, Lx3: loc.Lx3 << 1,
	}); aerr != nil {
		return aerr
	}
	n := 1 << uint(m.Dim)
	for octant := 0; octant < n; octant++ {
		child := loc.Child(octant)
		if !m.overlapsRegion(child, region) { continue }
		if derr := m.refineDownTo(child, targetLevel, region); derr != nil {
			return derr
		}
	}
	return nil
}

// overlapsRegion reports whether the physical extent of the block at loc
// intersects region's configured box.
func (m *Mesh) overlapsRegion(loc LogicalLocation, region *RefinementSection) bool {
	lo1, hi1 := m.axisExtent(loc, 0)
	lo2, hi2 := m.axisExtent(loc, 1)
	lo3, hi3 := m.axisExtent(loc, 2)
	if hi1 <= region.X1Min || lo1 >= region.X1Max { return false }
	if m.Dim >= 2 && region.X2Max > region.X2Min && (hi2 <= region.X2Min || lo2 >= region.X2Max) {
		return false
	}
	if m.Dim >= 3 && region.X3Max > region.X3Min && (hi3 <= region.X3Min || lo3 >= region.X3Max) {
		return false
	}
	return true
}

func (m *Mesh) axisExtent(loc LogicalLocation, axis int) (lo, hi float64) {
	scale := float64(int64(1) << uint(loc.Level))
	switch axis {
	case 0:
		n := float64(m.Nrbx[0])
		return m.Gen1(float64(loc.Lx1)/(n*scale), m.Size), m.Gen1(float64(loc.Lx1+1)/(n*scale), m.Size)
	case 1:
		n := float64(m.Nrbx[1])
		return m.Gen2(float64(loc.Lx2)/(n*scale), m.Size), m.Gen2(float64(loc.Lx2+1)/(n*scale), m.Size)
	default:
		n := float64(m.Nrbx[2])
		return m.Gen3(float64(loc.Lx3)/(n*scale), m.Size), m.Gen3(float64(loc.Lx3+1)/(n*scale), m.Size)
	}
}

// rebuildGlobalArrays re-derives LocList/CostList/RankList/NsList/NbList
// from the current tree state, per mesh.cpp's pattern of rebuilding these
// arrays after any tree mutation. Costs are reseeded to 1.0, the "simplest
// estimate, all blocks are equal" starting point mesh.cpp uses for a fresh
// build or a restart (whose caller overwrites CostList from the restart
// records immediately afterward). RefineCycle uses
// rebuildGlobalArraysAfterRefinement instead, which preserves measured
// costs across a refinement pass.
func (m *Mesh) rebuildGlobalArrays(nranks int) error {
	m.LocList = m.Tree.EnumerateLeaves()
	m.Multilevel = locListIsMultilevel(m.LocList)
	m.CostList = make([]float64, len(m.LocList))
	UpdateCostList(m.CostList)

	res, rerr := AssignRanks(m.CostList, nranks, m.TestMode)
	if rerr != nil {
		return err.New(err.Capacity, "%s", rerr.Error())
	}
	m.RankList, m.NsList, m.NbList = res.RankList, res.NsList, res.NbList
	return nil
}

// rebuildGlobalArraysAfterRefinement re-derives the global arrays the same
// way rebuildGlobalArrays does, but assigns costs per §4.6 step 7's
// inheritance contract instead of reseeding to 1.0: a block untouched by
// the refinement pass keeps its prior measured cost, a block born from a
// split gets an even share of its parent's former cost, and a block formed
// by a derefining collapse gets the sum of its former children's costs. A
// block this scheme can't trace to any prior block (shouldn't happen, since
// every new leaf is either a child or the product of a collapse) defaults
// to 1.0, matching rebuildGlobalArrays's fresh-build baseline.
func (m *Mesh) rebuildGlobalArraysAfterRefinement(nranks int, oldLocList []LogicalLocation, oldCostList []float64) error {
	oldCost := make(map[LogicalLocation]float64, len(oldLocList))
	for i, loc := range oldLocList {
		oldCost[loc] = oldCostList[i]
	}

	m.LocList = m.Tree.EnumerateLeaves()
	m.Multilevel = locListIsMultilevel(m.LocList)
	m.CostList = make([]float64, len(m.LocList))
	for i, loc := range m.LocList {
		m.CostList[i] = inheritedCost(loc, oldCost, m.Dim)
	}

	res, rerr := AssignRanks(m.CostList, nranks, m.TestMode)
	if rerr != nil {
		return err.New(err.Capacity, "%s", rerr.Error())
	}
	m.RankList, m.NsList, m.NbList = res.RankList, res.NsList, res.NbList
	return nil
}

// inheritedCost resolves loc's post-refinement cost against the prior
// cycle's cost-by-location map, per §4.6 step 7.
func inheritedCost(loc LogicalLocation, oldCost map[LogicalLocation]float64, dim int) float64 {
	if c, ok := oldCost[loc]; ok {
		return c
	}

	branch := float64(int64(1) << uint(dim))
	cur, depth := loc, 0
	for cur.Level > 0 {
		parent, _ := cur.Parent()
		depth++
		if c, ok := oldCost[parent]; ok {
			return c / math.Pow(branch, float64(depth))
		}
		cur = parent
	}

	if sum, ok := sumChildrenCost(loc, oldCost, dim); ok {
		return sum
	}
	return 1.0
}

// sumChildrenCost sums loc's 2^dim direct children's costs, returning ok
// only if every one of them was present in oldCost (i.e. loc is the result
// of a single-level derefining collapse).
func sumChildrenCost(loc LogicalLocation, oldCost map[LogicalLocation]float64, dim int) (float64, bool) {
	n := 1 << uint(dim)
	sum := 0.0
	for octant := 0; octant < n; octant++ {
		c, ok := oldCost[loc.Child(octant)]
		if !ok { return 0, false }
		sum += c
	}
	return sum, true
}

// locListIsMultilevel reports whether locs spans more than one refinement
// level.
func locListIsMultilevel(locs []LogicalLocation) bool {
	if len(locs) == 0 { return false }
	level := locs[0].Level
	for _, l := range locs[1:] {
		if l.Level != level { return true }
	}
	return false
}

// instantiateLocalBlocks builds MeshBlock objects for every gid this rank
// owns, including each block's neighbor table. faceOnly is derived from
// m.Multilevel per §4.2: a single-level mesh never needs edge/corner ghost
// exchange, since every neighbor is already at the same resolution.
func (m *Mesh) instantiateLocalBlocks(rank int) error {
	if rank < 0 || rank >= len(m.NsList) {
		return err.New(err.Capacity, "rank %d has no entry in a %d-rank balance", rank, len(m.NsList))
	}
	start, n := m.NsList[rank], m.NbList[rank]
	m.Blocks = make([]*MeshBlock, 0, n)
	for gid := start; gid < start+n; gid++ {
		loc := m.LocList[gid]
		b, berr := NewMeshBlock(gid, loc, m.Size, m.BlockNx1, m.BlockNx2, m.BlockNx3, m.faceBCs(loc),
			m.Gen1, m.Gen2, m.Gen3)
		if berr != nil {
			return err.New(err.Config, "%s", berr.Error())
		}
		b.Rank = rank
		b.Cost = m.CostList[gid]

		nbrs, nerr := BuildNeighbors(m.Tree, loc, m.BCs, m.Dim, m.Multilevel, !m.Multilevel)
		if nerr != nil {
			return fmt.Errorf("building neighbors for block %d: %w", gid, nerr)
		}
		for i := range nbrs {
			nbrs[i].GID, nbrs[i].Rank = m.gidAndRankOf(nbrs[i].Loc)
		}
		b.Neighbors = nbrs

		m.Blocks = append(m.Blocks, b)
	}
	return nil
}

// faceBCs reports, per face, whether loc sits on the domain boundary
// (using m.BCs) or is internal (shared with another block).
func (m *Mesh) faceBCs(loc LogicalLocation) BoundaryTags {
	var bcs BoundaryTags
	lx := [3]int64{loc.Lx1, loc.Lx2, loc.Lx3}
	for axis := 0; axis < 3; axis++ {
		inner, outer := 2*axis, 2*axis+1
		if axis >= m.Dim {
			bcs[inner], bcs[outer] = BoundaryInternal, BoundaryInternal
			continue
		}
		size := m.Tree.domainSize(axis, loc.Level)
		if lx[axis] == 0 {
			bcs[inner] = m.BCs[inner]
		} else {
			bcs[inner] = BoundaryInternal
		}
		if lx[axis] == size-1 {
			bcs[outer] = m.BCs[outer]
		} else {
			bcs[outer] = BoundaryInternal
		}
	}
	return bcs
}

// gidAndRankOf looks up loc's gid and owning rank in the current global
// arrays via a linear scan; the mesh's block counts are small enough
// (tens of thousands) that a sorted-slice binary search buys little over
// this, and it avoids keeping a second index in sync with LocList.
func (m *Mesh) gidAndRankOf(loc LogicalLocation) (gid, rank int) {
	for i, l := range m.LocList {
		if l == loc {
			return i, m.RankList[i]
		}
	}
	return -1, -1
}
