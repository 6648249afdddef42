package mesh

import (
	"fmt"

	"github.com/phil-mansfield/tesseract/lib/comm"
)

// RefineFlag is one block's vote in a refinement cycle, per §4.6.
type RefineFlag int

const (
	FlagNone     RefineFlag = 0
	FlagRefine   RefineFlag = 1
	FlagDerefine RefineFlag = -1
)

// RefineCycle runs one pass of §4.6 across the whole mesh: gather every
// rank's flags, filter derefinement down to fully-agreeing sibling groups,
// mutate the tree (propagating refinement where needed to hold the
// at-most-one-level face jump invariant), rebalance, and rebuild every
// rank's local block list. localFlags must have one entry per block this
// rank currently owns, in the same order as m.Blocks.
func (m *Mesh) RefineCycle(rc comm.RankContext, localFlags []RefineFlag) error {
	if len(localFlags) != len(m.Blocks) {
		return fmt.Errorf("got %d flags for %d local blocks", len(localFlags), len(m.Blocks))
	}

	localInts := make([]int64, len(localFlags))
	for i, f := range localFlags {
		localInts[i] = int64(f)
	}
	gathered := rc.Comm.AllgathervInt64(localInts)
	if len(gathered) != len(m.LocList) {
		return fmt.Errorf("gathered %d flags, expected one per block (%d)", len(gathered), len(m.LocList))
	}

	refineSet := map[LogicalLocation]bool{}
	derefineCandidates := map[LogicalLocation]bool{}
	for gid, v := range gathered {
		switch RefineFlag(v) {
		case FlagRefine:
			refineSet[m.LocList[gid]] = true
		case FlagDerefine:
			derefineCandidates[m.LocList[gid]] = true
		}
	}

	derefineSet := m.filterCompleteSiblingGroups(derefineCandidates)

	nbNew, nbDel := 0, 0
	work := make([]LogicalLocation, 0, len(refineSet))
	for loc := range refineSet {
		work = append(work, loc)
	}
	for len(work) > 0 {
		loc := work[len(work)-1]
		work = work[:len(work)-1]
		if m.Tree.IsLeaf(m.Tree.descendTo(loc)) == false {
			continue // already split by an earlier entry in this pass
		}
		if err := m.Tree.AddLeaf(loc.Child(0)); err != nil {
			return fmt.Errorf("refining %+v: %w", loc, err)
		}
		nbNew += (1 << uint(m.Dim)) - 1

		forced, ferr := m.enforceFaceBalance(loc)
		if ferr != nil { return ferr }
		work = append(work, forced...)
	}

	for parent := range derefineSet {
		idx := m.Tree.descendTo(parent)
		if idx == -1 || m.Tree.IsLeaf(idx) { continue }
		if m.wouldBreakFaceBalance(parent) { continue }
		m.Tree.collapse(idx)
		nbDel += (1 << uint(m.Dim)) - 1
	}

	m.NbNew, m.NbDel = nbNew, nbDel

	oldLocList, oldCostList := m.LocList, m.CostList
	if rerr := m.rebuildGlobalArraysAfterRefinement(rc.Comm.Size(), oldLocList, oldCostList); rerr != nil {
		return rerr
	}
	return m.instantiateLocalBlocks(rc.Comm.Rank())
}

// filterCompleteSiblingGroups keeps only those derefinement candidates
// whose full 2^dim sibling group voted to derefine, per §4.6: a single
// dissenting sibling blocks the whole group. The result maps each
// agreeing group's parent location to true.
func (m *Mesh) filterCompleteSiblingGroups(candidates map[LogicalLocation]bool) map[LogicalLocation]bool {
	byParent := map[LogicalLocation]int{}
	for loc := range candidates {
		if loc.Level == 0 { continue } // root blocks have no parent to collapse into
		parent, _ := loc.Parent()
		byParent[parent]++
	}
	n := 1 << uint(m.Dim)
	out := map[LogicalLocation]bool{}
	for parent, count := range byParent {
		if count == n {
			out[parent] = true
		}
	}
	return out
}

// enforceFaceBalance checks every face neighbor of the block just split at
// loc (now loc.Child(0..n-1)) and returns every neighbor leaf that would
// otherwise be more than one level coarser. The caller splits each of them
// the same way it splits a flagged block, which counts its new blocks and
// recursively checks its neighbors too.
func (m *Mesh) enforceFaceBalance(loc LogicalLocation) ([]LogicalLocation, error) {
	newLevel := loc.Level + 1
	var forced []LogicalLocation
	for _, d := range faceDirs(m.Dim) {
		idx := m.Tree.FindNeighbor(loc, d.ox1, d.ox2, d.ox3, m.BCs)
		if idx == -1 || !m.Tree.IsLeaf(idx) { continue }
		nloc := m.Tree.Loc(idx)
		if newLevel-nloc.Level > 1 {
			forced = append(forced, nloc)
		}
	}
	return forced, nil
}

// wouldBreakFaceBalance reports whether collapsing the leaf children of
// parent would leave any neighbor more than one level finer than parent,
// which the 2:1 balance invariant forbids.
func (m *Mesh) wouldBreakFaceBalance(parent LogicalLocation) bool {
	for _, d := range faceDirs(m.Dim) {
		idx := m.Tree.FindNeighbor(parent, d.ox1, d.ox2, d.ox3, m.BCs)
		if idx == -1 || m.Tree.IsLeaf(idx) { continue }
		// An interior node here is a neighbor one level finer than parent,
		// which is allowed; two levels finer means one of its children
		// facing parent is itself split.
		for octant := 0; octant < 1<<uint(m.Dim); octant++ {
			if !onNearFace(octant, d, m.Dim) { continue }
			if c := m.Tree.Child(idx, octant); c != -1 && !m.Tree.IsLeaf(c) {
				return true
			}
		}
	}
	return false
}

func faceDirs(dim int) []neighborDir {
	dirs := []neighborDir{{-1, 0, 0}, {1, 0, 0}}
	if dim >= 2 { dirs = append(dirs, neighborDir{0, -1, 0}, neighborDir{0, 1, 0}) }
	if dim >= 3 { dirs = append(dirs, neighborDir{0, 0, -1}, neighborDir{0, 0, 1}) }
	return dirs
}
