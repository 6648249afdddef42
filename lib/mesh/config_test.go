package mesh

import "testing"

const sampleConfig = `
[time]
cfl_number = 0.3
nlim = 1000
tlim = 10.0

[mesh]
nx1 = 64
nx2 = 64
nx3 = 1
x1min = 0.0
x1max = 1.0
x2min = 0.0
x2max = 1.0
x3min = -0.5
x3max = 0.5
ix1_bc = periodic
ox1_bc = periodic
ix2_bc = outflow
ox2_bc = outflow
ix3_bc = outflow
ox3_bc = outflow

[meshblock]
nx1 = 16
nx2 = 16
nx3 = 1

[refinement "clump"]
x1min = 0.4
x1max = 0.6
x2min = 0.4
x2max = 0.6
level = 2
`

func TestParseConfig(t *testing.T) {
	in, err := ParseConfig(sampleConfig)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err.Error())
	}
	if in.Time.NLim != 1000 {
		t.Errorf("Time.NLim = %d, want 1000", in.Time.NLim)
	}
	if in.Mesh.Nx1 != 64 {
		t.Errorf("Mesh.Nx1 = %d, want 64", in.Mesh.Nx1)
	}
	if len(in.Refinement) != 1 {
		t.Fatalf("got %d refinement regions, want 1", len(in.Refinement))
	}
	if in.Refinement["clump"].Level != 2 {
		t.Errorf("refinement region level = %d, want 2", in.Refinement["clump"].Level)
	}
}

func TestBoundaryConditions(t *testing.T) {
	in, err := ParseConfig(sampleConfig)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err.Error())
	}
	bcs, err := in.BoundaryConditions()
	if err != nil {
		t.Fatalf("BoundaryConditions: %s", err.Error())
	}
	if bcs[FaceInnerX1] != BoundaryPeriodic {
		t.Errorf("ix1_bc = %s, want periodic", bcs[FaceInnerX1])
	}
	if bcs[FaceInnerX2] != BoundaryOutflow {
		t.Errorf("ix2_bc = %s, want outflow", bcs[FaceInnerX2])
	}
}

func TestBoundaryConditionsRejectsMismatchedPeriodic(t *testing.T) {
	in, err := ParseConfig(sampleConfig)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err.Error())
	}
	in.Mesh.Ox1Bc = "outflow"
	if _, err := in.BoundaryConditions(); err == nil {
		t.Errorf("expected an error for one-sided periodic boundaries")
	}
}

func TestBoundaryConditionsRejectsUnknownTag(t *testing.T) {
	in, err := ParseConfig(sampleConfig)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err.Error())
	}
	in.Mesh.Ix1Bc = "nonsense"
	if _, err := in.BoundaryConditions(); err == nil {
		t.Errorf("expected an error for an unrecognized boundary tag")
	}
}

func TestRootGrid(t *testing.T) {
	in, err := ParseConfig(sampleConfig)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err.Error())
	}
	nrbx, dim, err := in.RootGrid()
	if err != nil {
		t.Fatalf("RootGrid: %s", err.Error())
	}
	if dim != 2 {
		t.Errorf("dim = %d, want 2", dim)
	}
	if nrbx != [3]int64{4, 4, 1} {
		t.Errorf("nrbx = %v, want [4 4 1]", nrbx)
	}
}

func TestRootGridRejectsUnevenDivision(t *testing.T) {
	in, err := ParseConfig(sampleConfig)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err.Error())
	}
	in.MeshBlock.Nx1 = 10
	if _, _, err := in.RootGrid(); err == nil {
		t.Errorf("expected an error when nx1 does not divide evenly by meshblock nx1")
	}
}

func TestNumThreadsDefaultsToOne(t *testing.T) {
	in, err := ParseConfig(sampleConfig)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err.Error())
	}
	n, nerr := in.NumThreads()
	if nerr != nil {
		t.Fatalf("NumThreads: %s", nerr.Error())
	}
	if n != 1 {
		t.Errorf("NumThreads() = %d, want 1", n)
	}
}

func TestNumThreadsRejectsNegative(t *testing.T) {
	in, err := ParseConfig(sampleConfig)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err.Error())
	}
	in.Mesh.NumThreads = -1
	if _, nerr := in.NumThreads(); nerr == nil {
		t.Errorf("expected an error for a negative num_threads")
	}
}

func TestRefinementRegionsSortedByName(t *testing.T) {
	in, err := ParseConfig(sampleConfig + `
[refinement "aardvark"]
x1min = 0
x1max = 0.1
level = 1
`)
	if err != nil {
		t.Fatalf("ParseConfig: %s", err.Error())
	}
	regions := in.RefinementRegions()
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(regions))
	}
	if regions[0].Level != 1 || regions[1].Level != 2 {
		t.Errorf("regions not sorted by name: %+v", regions)
	}
}
