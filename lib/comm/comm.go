/*package comm provides the collective communication primitives the mesh
subsystem needs: point-to-point boundary-buffer exchange, allreduce for dt
and conservation totals, and allgather/allgatherv for refinement metadata and
cost lists.

The interface adapts the teacher repo's lib/mpi package into an ordinary
Go interface so it can be imported like any other library: the teacher's
own file is "package main" built directly against libmpi via cgo, which
can't be imported from another package. Its method set is rank and size
queries, SendRecv, the allreduce/allgather/allgatherv collectives, and
Barrier; broadcast, gather, scatter, and alltoallv are not part of it. The
default build here is Local(), a single-rank in-process implementation
good enough to run the whole mesh core without an MPI installation; a real
MPI-backed Communicator lives behind the "mpi" build tag in comm_mpi.go for
environments that have mpicc available.
*/
package comm

import "fmt"

// Communicator is the process-to-process messaging surface Mesh and its
// refinement cycle are built against. Every method blocks until the
// collective completes; there is no async variant here because the mesh
// subsystem's own suspension points (awaiting a boundary buffer) are
// expressed at a higher level by the TaskEngine, not by this interface.
type Communicator interface {
	Rank() int
	Size() int

	// SendRecv exchanges a boundary buffer with a single peer rank. It is
	// used when a NeighborBlock's rank differs from Rank().
	SendRecv(peer int, tag int, send []byte) (recv []byte, err error)

	// AllreduceMinFloat64 returns the minimum of x across every rank.
	AllreduceMinFloat64(x float64) float64
	// AllreduceSumFloat64 sums x elementwise across every rank.
	AllreduceSumFloat64(x []float64) []float64

	// AllgatherInt64 gathers one int64 from every rank, in rank order.
	AllgatherInt64(x int64) []int64
	// AllgathervFloat64 gathers variable-length float64 slices from every
	// rank, concatenated in rank order.
	AllgathervFloat64(x []float64) []float64
	// AllgathervInt64 gathers variable-length int64 slices from every rank,
	// concatenated in rank order.
	AllgathervInt64(x []int64) []int64

	// Barrier blocks until every rank has called Barrier.
	Barrier()
}

// RankContext carries the process-wide identity that Mesh construction and
// the refinement cycle need, replacing the teacher's global my_rank/nranks
// variables (Design Notes §9, "Global process state") with an explicit
// parameter.
type RankContext struct {
	Comm Communicator
}

// Local returns a RankContext backed by a single-process Communicator. It
// is the correct choice whenever the mesh is run without MPI: every
// collective degenerates to the identity operation on rank 0 of 1.
func Local() RankContext {
	return RankContext{Comm: &localComm{}}
}

// localComm is the nranks == 1 implementation of Communicator. Every
// collective is a no-op because there is exactly one participant.
type localComm struct{}

func (c *localComm) Rank() int { return 0 }
func (c *localComm) Size() int { return 1 }

func (c *localComm) SendRecv(peer int, tag int, send []byte) ([]byte, error) {
	if peer != 0 {
		return nil, fmt.Errorf("comm: local communicator has no peer rank %d", peer)
	}
	return send, nil
}

func (c *localComm) AllreduceMinFloat64(x float64) float64 { return x }

func (c *localComm) AllreduceSumFloat64(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	return out
}

func (c *localComm) AllgatherInt64(x int64) []int64 { return []int64{x} }

func (c *localComm) AllgathervFloat64(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	return out
}

func (c *localComm) AllgathervInt64(x []int64) []int64 {
	out := make([]int64, len(x))
	copy(out, x)
	return out
}

func (c *localComm) Barrier() {}
