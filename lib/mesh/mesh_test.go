package mesh

import (
	"testing"

	"github.com/phil-mansfield/tesseract/lib/comm"
)

const uniform2DConfig = `
[mesh]
nx1 = 32
nx2 = 32
nx3 = 1
x1min = 0.0
x1max = 1.0
x2min = 0.0
x2max = 1.0
x3min = 0.0
x3max = 1.0
ix1_bc = periodic
ox1_bc = periodic
ix2_bc = periodic
ox2_bc = periodic
ix3_bc = outflow
ox3_bc = outflow

[meshblock]
nx1 = 8
nx2 = 8
nx3 = 1
`

func TestNewMeshSingleRank(t *testing.T) {
	in, err := ParseConfig(uniform2DConfig)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err.Error())
	}
	m, merr := NewMesh(in, comm.Local(), false)
	if merr != nil {
		t.Fatalf("NewMesh: %s", merr.Error())
	}
	if got, want := len(m.LocList), 16; got != want {
		t.Fatalf("got %d root blocks, want %d (4x4 grid of 8-cell blocks)", got, want)
	}
	if got, want := len(m.Blocks), 16; got != want {
		t.Errorf("single rank should own all %d blocks, got %d", want, got)
	}
}

func TestNewMeshBlockHasPeriodicNeighbors(t *testing.T) {
	in, err := ParseConfig(uniform2DConfig)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err.Error())
	}
	m, merr := NewMesh(in, comm.Local(), false)
	if merr != nil {
		t.Fatalf("NewMesh: %s", merr.Error())
	}
	b := m.Blocks[0]
	if len(b.Neighbors) != 4 {
		t.Errorf("corner block has %d neighbors, want 4 (2D periodic, face neighbors only on a single-level mesh)", len(b.Neighbors))
	}
	for _, n := range b.Neighbors {
		if n.GID < 0 {
			t.Errorf("neighbor %+v failed to resolve a gid", n)
		}
	}
}

func TestNewMeshStaticRefinement(t *testing.T) {
	in, err := ParseConfig(uniform2DConfig + `
[refinement "center"]
x1min = 0.4
x1max = 0.6
x2min = 0.4
x2max = 0.6
level = 1
`)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err.Error())
	}
	m, merr := NewMesh(in, comm.Local(), false)
	if merr != nil {
		t.Fatalf("NewMesh: %s", merr.Error())
	}
	finer := 0
	for _, loc := range m.LocList {
		if loc.Level > 0 { finer++ }
	}
	if finer == 0 {
		t.Errorf("expected static refinement to produce at least one finer block")
	}
}

func TestNewMeshRejectsUnevenBlockDivision(t *testing.T) {
	in, err := ParseConfig(uniform2DConfig)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err.Error())
	}
	in.MeshBlock.Nx1 = 9
	if _, merr := NewMesh(in, comm.Local(), false); merr == nil {
		t.Errorf("expected an error when the block size does not divide the mesh size")
	}
}
