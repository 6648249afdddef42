package mesh

import "fmt"

// NeighborBlock describes one entry of a block's neighbor table (§4.2): the
// logical location of the neighbor, its global block id, its rank, and
// which of the canonical buffer slots this entry occupies.
type NeighborBlock struct {
	Loc      LogicalLocation
	GID      int
	Rank     int
	BufferID int
	// LevelDelta is the §4.2 level relationship for the neighbor: -1
	// (coarser), 0 (same level), or +1 (finer).
	LevelDelta int // neighbor.Level - loc.Level: -1, 0, or +1
	// Octant identifies, when LevelDelta == -1, the octant this block
	// occupies within its own parent, which locates it against the
	// coarser neighbor (needed for restriction targeting); when
	// LevelDelta == +1, the octant the finer neighbor occupies within its
	// parent; zero for same-level neighbors.
	Octant int
}

// neighborDir enumerates one of the 26 non-zero (ox1,ox2,ox3) offsets used
// to probe a block's face, edge, and corner neighbors.
type neighborDir struct {
	ox1, ox2, ox3 int
}

// buildDirs returns every direction relevant for the mesh's dimensionality:
// faces only in 1D, faces+edges in 2D, faces+edges+corners in 3D, matching
// §4.2's statement that edge/corner neighbors only exist when the relevant
// axes are active.
func buildDirs(dim int) []neighborDir {
	var dirs []neighborDir
	lo, hi := -1, 1
	for ox1 := lo; ox1 <= hi; ox1++ {
		for ox2 := lo; ox2 <= hi; ox2++ {
			for ox3 := lo; ox3 <= hi; ox3++ {
				if ox1 == 0 && ox2 == 0 && ox3 == 0 { continue }
				if dim < 2 && ox2 != 0 { continue }
				if dim < 3 && ox3 != 0 { continue }
				dirs = append(dirs, neighborDir{ox1, ox2, ox3})
			}
		}
	}
	return dirs
}

// BufferID reports how many distinct neighbor buffer slots a configuration
// needs, per §6's BufferID(dim, multilevel, face_only) collaborator: 2*dim
// faces, each split into up to 4 fine sub-offsets when the mesh is
// multilevel; plus, unless faceOnly, the edge slots a 2D or 3D mesh adds (4
// or 12, each split into up to 2 fine sub-offsets when multilevel) and the
// 8 corner slots a 3D mesh adds (corners have no fine sub-split, since a
// corner neighbor's 3 axes are already fully determined). This is a count
// only: the slot ids FindBufferID assigns follow its fixed layout and are
// not compacted into 0..BufferID-1, except in the 3D multilevel
// configuration, whose count equals MaxNeighbor.
func BufferID(dim int, multilevel, faceOnly bool) int {
	faceSub := 1
	if multilevel { faceSub = 4 }
	total := 2 * dim * faceSub
	if faceOnly { return total }

	edgeSub := 1
	if multilevel { edgeSub = 2 }
	switch dim {
	case 2:
		total += 4 * edgeSub
	case 3:
		total += 12*edgeSub + 8
	}
	return total
}

// FindBufferID returns the canonical buffer slot (§4.2) for a direction and,
// for coarser/finer neighbors, the fine-side octant bits that distinguish
// multiple neighbors sharing the same direction. The numbering groups faces
// (6), edges (12), and corners (8) in a fixed, dimension-independent order
// so that both sides of a connection agree on the slot without
// communication. maxneighbor bounds the resolved index; an index at or
// beyond it is an error. BuildNeighbors passes MaxNeighbor, the size of
// the whole layout.
func FindBufferID(ox1, ox2, ox3, fi1, fi2, maxneighbor int) (int, error) {
	nonzero := 0
	if ox1 != 0 { nonzero++ }
	if ox2 != 0 { nonzero++ }
	if ox3 != 0 { nonzero++ }

	var id int
	var err error
	switch nonzero {
	case 1:
		id, err = faceBufferID(ox1, ox2, ox3, fi1, fi2)
	case 2:
		id, err = edgeBufferID(ox1, ox2, ox3, fi1)
	case 3:
		id, err = cornerBufferID(ox1, ox2, ox3)
	default:
		return -1, fmt.Errorf("(%d,%d,%d) is not a valid neighbor direction", ox1, ox2, ox3)
	}
	if err != nil { return -1, err }
	if id >= maxneighbor {
		return -1, fmt.Errorf("buffer id %d exceeds the %d slots available for this configuration", id, maxneighbor)
	}
	return id, nil
}

// faceBufferID: 6 faces x 4 possible fine-side sub-offsets = 24 slots,
// starting at 0.
func faceBufferID(ox1, ox2, ox3, fi1, fi2 int) (int, error) {
	face := 0
	switch {
	case ox1 == -1:
		face = 0
	case ox1 == 1:
		face = 1
	case ox2 == -1:
		face = 2
	case ox2 == 1:
		face = 3
	case ox3 == -1:
		face = 4
	case ox3 == 1:
		face = 5
	}
	sub := fi1 + 2*fi2
	return face*4 + sub, nil
}

// edgeBufferID: 12 edges x 2 possible fine-side sub-offsets = 24 slots,
// starting right after the face block at 24.
func edgeBufferID(ox1, ox2, ox3, fi1 int) (int, error) {
	const base = 24
	var edge int
	switch {
	case ox3 == 0:
		edge = edgeIndex(ox1, ox2) // x1x2 edges: 0..3
	case ox2 == 0:
		edge = 4 + edgeIndex(ox1, ox3) // x1x3 edges: 4..7
	case ox1 == 0:
		edge = 8 + edgeIndex(ox2, ox3) // x2x3 edges: 8..11
	}
	return base + edge*2 + fi1, nil
}

func edgeIndex(a, b int) int {
	// a,b in {-1,1}; map (−1,−1)->0 (1,−1)->1 (−1,1)->2 (1,1)->3
	ia, ib := 0, 0
	if a == 1 { ia = 1 }
	if b == 1 { ib = 1 }
	return ia | ib<<1
}

// cornerBufferID: 8 corners, one slot each, starting right after the edge
// block at 48.
func cornerBufferID(ox1, ox2, ox3 int) (int, error) {
	const base = 48
	i, j, k := 0, 0, 0
	if ox1 == 1 { i = 1 }
	if ox2 == 1 { j = 1 }
	if ox3 == 1 { k = 1 }
	return base + (i | j<<1 | k<<2), nil
}

// MaxNeighbor is the size of FindBufferID's slot layout, the number of
// neighbor table entries a single block can have in the most demanding
// configuration: 6 faces x 4 finer sub-offsets (24), 12 edges x 2 finer
// sub-offsets (24), and 8 corners (8).
const MaxNeighbor = 56

// BuildNeighbors constructs the neighbor table for the block at loc within
// tree, resolving each of the 26 (or fewer, in lower dimensions) directions
// against the tree and, for coarser/finer connections, expanding to every
// fine-side sub-offset so that both sides of a differing-resolution
// interface are represented, per §4.2. faceOnly restricts the search to
// face neighbors only, for algorithms that don't need edge/corner ghost
// exchange; multilevel does not change the search, since coarser and finer
// neighbors are resolved from the tree either way. Buffer ids are
// FindBufferID's fixed-layout slots, bounded by MaxNeighbor.
func BuildNeighbors(
	tree *BlockTree, loc LogicalLocation, bcs BoundaryTags, dim int, multilevel, faceOnly bool,
) ([]NeighborBlock, error) {
	maxneighbor := MaxNeighbor
	dirs := buildDirs(dim)
	var out []NeighborBlock

	for _, d := range dirs {
		nonzero := 0
		if d.ox1 != 0 { nonzero++ }
		if d.ox2 != 0 { nonzero++ }
		if d.ox3 != 0 { nonzero++ }
		if faceOnly && nonzero != 1 { continue }

		idx := tree.FindNeighbor(loc, d.ox1, d.ox2, d.ox3, bcs)
		if idx == -1 { continue }

		nloc := tree.Loc(idx)
		if tree.IsLeaf(idx) {
			bufID, err := FindBufferID(d.ox1, d.ox2, d.ox3, 0, 0, maxneighbor)
			if err != nil { return nil, err }
			nb := NeighborBlock{
				Loc: nloc, BufferID: bufID, LevelDelta: nloc.Level - loc.Level,
			}
			if nb.LevelDelta == -1 {
				_, nb.Octant = loc.Parent()
			}
			out = append(out, nb)
			continue
		}

		// idx names an interior node: every leaf beneath it that touches
		// this block's face/edge/corner in the opposite direction is a
		// distinct finer neighbor.
		finer, err := finerNeighborsBeneath(tree, idx, d, dim, maxneighbor)
		if err != nil { return nil, err }
		out = append(out, finer...)
	}
	return out, nil
}

// finerNeighborsBeneath enumerates the leaves directly beneath interior
// node idx that lie on the face/edge/corner facing back toward the
// requesting block, i.e. those whose coordinate along each nonzero
// direction axis is on the near side.
func finerNeighborsBeneath(
	tree *BlockTree, idx int, d neighborDir, dim, maxneighbor int,
) ([]NeighborBlock, error) {
	var out []NeighborBlock
	n := 1 << uint(dim)
	for octant := 0; octant < n; octant++ {
		if !onNearFace(octant, d, dim) { continue }
		child := tree.Child(idx, octant)
		if child == -1 { continue }
		if !tree.IsLeaf(child) {
			// Should not happen once balance keeps at-most-one-level jumps,
			// but defend against a transient state during refinement.
			deeper, err := finerNeighborsBeneath(tree, child, d, dim, maxneighbor)
			if err != nil { return nil, err }
			out = append(out, deeper...)
			continue
		}
		nloc := tree.Loc(child)
		fi1, fi2 := fineSubOffsets(octant, d, dim)
		bufID, err := FindBufferID(d.ox1, d.ox2, d.ox3, fi1, fi2, maxneighbor)
		if err != nil { return nil, err }
		out = append(out, NeighborBlock{
			Loc: nloc, BufferID: bufID, LevelDelta: 1, Octant: octant,
		})
	}
	return out, nil
}

// onNearFace reports whether octant (a Child() bit pattern) sits on the
// side of its parent that faces back toward direction d's origin.
func onNearFace(octant int, d neighborDir, dim int) bool {
	bit1 := octant & 1
	bit2 := (octant >> 1) & 1
	bit3 := (octant >> 2) & 1
	if d.ox1 < 0 && bit1 != 1 { return false }
	if d.ox1 > 0 && bit1 != 0 { return false }
	if dim >= 2 {
		if d.ox2 < 0 && bit2 != 1 { return false }
		if d.ox2 > 0 && bit2 != 0 { return false }
	}
	if dim >= 3 {
		if d.ox3 < 0 && bit3 != 1 { return false }
		if d.ox3 > 0 && bit3 != 0 { return false }
	}
	return true
}

// fineSubOffsets extracts the two bits (among the axes not named by d) that
// distinguish this octant from its siblings, used to pick the fine-side
// buffer sub-slot.
func fineSubOffsets(octant int, d neighborDir, dim int) (fi1, fi2 int) {
	bits := []int{octant & 1, (octant >> 1) & 1, (octant >> 2) & 1}
	free := []int{}
	axes := []int{d.ox1, d.ox2, d.ox3}
	for a := 0; a < 3; a++ {
		if a >= dim { continue }
		if axes[a] == 0 { free = append(free, bits[a]) }
	}
	if len(free) > 0 { fi1 = free[0] }
	if len(free) > 1 { fi2 = free[1] }
	return fi1, fi2
}
