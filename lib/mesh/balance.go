package mesh

import (
	"fmt"
	"log"

	"github.com/phil-mansfield/tesseract/lib/cuckoo"
)

// LoadBalanceResult carries the per-block rank assignment and the derived
// per-rank slicing of the (Morton-ordered) block list, per §4.3.
type LoadBalanceResult struct {
	RankList []int     // ranklist[gid] = rank owning that block
	NsList   []int     // nslist[rank] = first gid owned by rank
	NbList   []int     // nblist[rank] = number of blocks owned by rank
}

// AssignRanks distributes costs (one entry per block, in the same Morton
// order as the tree's leaf enumeration) across nranks, per §4.3's
// assign_ranks: it sweeps gid from last to first, accumulating cost onto
// the highest-numbered open rank until that rank's share of the remaining
// total is met, then moves to the next rank down. Sweeping backward and
// assigning downward leaves rank 0 with whatever remains, keeping each
// rank's blocks a contiguous gid run in Morton order.
//
// If nbtotal < nranks, this fails with an error (which the Mesh callers
// report as an err.Capacity error) unless testMode is set, per §4.3's
// failure semantics and mesh.cpp's test_flag-gated "too few blocks" branch
// (L422-432, L696-706): in that case it logs a warning and proceeds,
// producing a rank assignment where some low-numbered ranks own no blocks
// at all.
func AssignRanks(costs []float64, nranks int, testMode bool) (*LoadBalanceResult, error) {
	nb := len(costs)
	if nranks < 1 {
		return nil, fmt.Errorf("nranks (%d) must be >= 1", nranks)
	}
	if nb < nranks {
		if !testMode {
			return nil, fmt.Errorf("too few blocks: nbtotal (%d) < nranks (%d)", nb, nranks)
		}
		log.Printf("load balance warning: too few blocks: nbtotal (%d) < nranks (%d)", nb, nranks)
	}

	total := 0.0
	uniform := true
	for _, c := range costs {
		if c <= 0 {
			return nil, fmt.Errorf("block cost %g must be positive", c)
		}
		total += c
		if c != costs[0] {
			uniform = false
		}
	}
	if uniform && nb%nranks != 0 {
		log.Printf("load balance warning: %d blocks cannot be divided evenly across %d ranks", nb, nranks)
	}

	rankList := make([]int, nb)
	rank := nranks - 1
	ranksLeft := nranks
	remaining := total
	acc := 0.0
	for gid := nb - 1; gid >= 0; gid-- {
		acc += costs[gid]
		rankList[gid] = rank
		target := remaining / float64(ranksLeft)
		if acc >= target && rank > 0 && gid > 0 {
			remaining -= acc
			ranksLeft--
			rank--
			acc = 0
		}
	}

	nsList, nbList, err := deriveSlices(rankList, nranks, nb < nranks)
	if err != nil { return nil, err }
	return &LoadBalanceResult{RankList: rankList, NsList: nsList, NbList: nbList}, nil
}

// deriveSlices recovers nslist/nblist from a rank assignment, requiring
// that each rank's blocks form a contiguous gid run — the invariant the
// balancer and the tree's Morton enumeration are jointly responsible for
// maintaining, per §4.3. It uses cuckoo.Bin to group gids by rank without
// comparing ranks against each other, then checks that the grouping it
// found is already the identity order: a rank assignment whose blocks
// aren't contiguous in gid order would come back permuted. allowEmpty
// permits a rank to own zero blocks, the expected shape of a test-mode
// assignment where nbtotal < nranks.
func deriveSlices(rankList []int, nranks int, allowEmpty bool) (nsList, nbList []int, err error) {
	for gid, rank := range rankList {
		if rank < 0 || rank >= nranks {
			return nil, nil, fmt.Errorf("block %d has out-of-range rank %d", gid, rank)
		}
	}

	order, offsets := cuckoo.Bin(len(rankList), nranks, func(gid int) int { return rankList[gid] })
	for gid, placed := range order {
		if placed != gid {
			return nil, nil, fmt.Errorf("rank %d's blocks are not contiguous", rankList[placed])
		}
	}

	nsList = offsets[:nranks]
	nbList = make([]int, nranks)
	for r := 0; r < nranks; r++ {
		nbList[r] = offsets[r+1] - offsets[r]
		if nbList[r] == 0 && !allowEmpty {
			return nil, nil, fmt.Errorf("rank %d was assigned no blocks", r)
		}
	}
	return nsList, nbList, nil
}

// UpdateCostList reseeds every block's cost to 1.0, the baseline the
// balancer starts from when the global arrays are built for a fresh mesh or
// a restart (a refinement cycle carries costs over instead), per
// mesh.cpp's UpdateCostList (its one production call site,
// mesh.cpp L438-439, comments it "the simplest estimate; all the blocks
// are equal").
func UpdateCostList(costs []float64) {
	for i := range costs { costs[i] = 1.0 }
}
