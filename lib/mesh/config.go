package mesh

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/gcfg.v1"
)

// TimeSection holds the [time] section: the driver's stepping limits,
// independent of mesh topology.
type TimeSection struct {
	CflNumber float64
	NLim      int
	TLim      float64
}

// MeshSection holds the [mesh] section: the root domain's size, cell
// count, boundary conditions, and allowed refinement range.
type MeshSection struct {
	Nx1, Nx2, Nx3       int
	X1Min, X1Max        float64
	X2Min, X2Max        float64
	X3Min, X3Max        float64
	X1Rat, X2Rat, X3Rat float64
	Ix1Bc, Ox1Bc        string
	Ix2Bc, Ox2Bc        string
	Ix3Bc, Ox3Bc        string
	NumLevel            int
	RefineFactor        int
	NumThreads          int
}

// MeshBlockSection holds the [meshblock] section: the per-block cell
// count every leaf uses, regardless of its refinement level.
type MeshBlockSection struct {
	Nx1, Nx2, Nx3 int
}

// RefinementSection holds one named, repeatable [refinement "name"]
// subsection per §4.4's static refinement region support.
type RefinementSection struct {
	X1Min, X1Max float64
	X2Min, X2Max float64
	X3Min, X3Max float64
	Level        int
}

// Input is the full gcfg-parsed configuration document, grounded on the
// teacher's use of gopkg.in/gcfg.v1 for INI-style input with named
// repeatable subsections.
type Input struct {
	Time       TimeSection
	Mesh       MeshSection
	MeshBlock  MeshBlockSection
	Refinement map[string]*RefinementSection
}

// ParseConfig parses an INI-formatted configuration document.
func ParseConfig(data string) (*Input, error) {
	in := &Input{}
	if err := gcfg.ReadStringInto(in, data); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return in, nil
}

// BoundaryConditions resolves the [mesh] section's six face tags into a
// BoundaryTags, per §4.4 step 1's detailed axis validation.
func (in *Input) BoundaryConditions() (BoundaryTags, error) {
	tags := []struct {
		face int
		name string
		s    string
	}{
		{FaceInnerX1, "ix1_bc", in.Mesh.Ix1Bc}, {FaceOuterX1, "ox1_bc", in.Mesh.Ox1Bc},
		{FaceInnerX2, "ix2_bc", in.Mesh.Ix2Bc}, {FaceOuterX2, "ox2_bc", in.Mesh.Ox2Bc},
		{FaceInnerX3, "ix3_bc", in.Mesh.Ix3Bc}, {FaceOuterX3, "ox3_bc", in.Mesh.Ox3Bc},
	}
	var bcs BoundaryTags
	for _, tag := range tags {
		bc, err := parseBoundaryTag(tag.s)
		if err != nil {
			return bcs, fmt.Errorf("%s: %w", tag.name, err)
		}
		bcs[tag.face] = bc
	}

	if (bcs[FaceInnerX1] == BoundaryPeriodic) != (bcs[FaceOuterX1] == BoundaryPeriodic) {
		return bcs, fmt.Errorf("ix1_bc and ox1_bc must both be periodic or neither")
	}
	if (bcs[FaceInnerX2] == BoundaryPeriodic) != (bcs[FaceOuterX2] == BoundaryPeriodic) {
		return bcs, fmt.Errorf("ix2_bc and ox2_bc must both be periodic or neither")
	}
	if (bcs[FaceInnerX3] == BoundaryPeriodic) != (bcs[FaceOuterX3] == BoundaryPeriodic) {
		return bcs, fmt.Errorf("ix3_bc and ox3_bc must both be periodic or neither")
	}
	if bcs[FaceInnerX2] == BoundaryPolar && in.Mesh.Nx3 <= 1 {
		return bcs, fmt.Errorf("polar boundaries require a 3D mesh")
	}
	return bcs, nil
}

func parseBoundaryTag(s string) (BoundaryTag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reflecting":
		return BoundaryReflecting, nil
	case "outflow":
		return BoundaryOutflow, nil
	case "periodic":
		return BoundaryPeriodic, nil
	case "user":
		return BoundaryUser, nil
	case "polar":
		return BoundaryPolar, nil
	default:
		return 0, fmt.Errorf("unrecognized boundary condition %q", s)
	}
}

// RegionSize builds the [mesh] section's RegionSize, deriving ratios of
// 1.0 when unset (gcfg zero-values an unspecified float to 0, which is
// never a valid stretch ratio).
func (in *Input) RegionSize() RegionSize {
	rs := RegionSize{
		X1Min: in.Mesh.X1Min, X1Max: in.Mesh.X1Max,
		X2Min: in.Mesh.X2Min, X2Max: in.Mesh.X2Max,
		X3Min: in.Mesh.X3Min, X3Max: in.Mesh.X3Max,
		Nx1: in.Mesh.Nx1, Nx2: in.Mesh.Nx2, Nx3: in.Mesh.Nx3,
		X1Rat: orOne(in.Mesh.X1Rat), X2Rat: orOne(in.Mesh.X2Rat), X3Rat: orOne(in.Mesh.X3Rat),
	}
	return rs
}

func orOne(x float64) float64 {
	if x == 0 { return 1 }
	return x
}

// NumThreads resolves mesh.num_threads, defaulting to 1 when the config
// file leaves it unset, per §4.4 step 1's validation of
// num_mesh_threads_ (mesh.cpp ~L89-94, ~L587-592).
func (in *Input) NumThreads() (int, error) {
	n := in.Mesh.NumThreads
	if n == 0 { n = 1 }
	if n < 1 {
		return 0, fmt.Errorf("mesh.num_threads (%d) must be >= 1", n)
	}
	return n, nil
}

// RootGrid derives nrbx (the number of root-level blocks along each axis)
// and the mesh's dimensionality from the [mesh] and [meshblock] sections,
// per §4.4 step 1: each axis's cell count must divide evenly by its
// block's cell count.
func (in *Input) RootGrid() (nrbx [3]int64, dim int, err error) {
	axes := []struct {
		name          string
		meshN, blockN int
	}{
		{"x1", in.Mesh.Nx1, in.MeshBlock.Nx1},
		{"x2", in.Mesh.Nx2, in.MeshBlock.Nx2},
		{"x3", in.Mesh.Nx3, in.MeshBlock.Nx3},
	}
	for d, a := range axes {
		if a.blockN < 1 {
			return nrbx, 0, fmt.Errorf("meshblock %s cell count must be positive", a.name)
		}
		if a.meshN%a.blockN != 0 {
			return nrbx, 0, fmt.Errorf(
				"mesh %s cell count %d does not divide evenly by meshblock %s cell count %d",
				a.name, a.meshN, a.name, a.blockN)
		}
		nrbx[d] = int64(a.meshN / a.blockN)
	}

	dim = 1
	if in.Mesh.Nx2 > 1 { dim = 2 }
	if in.Mesh.Nx3 > 1 { dim = 3 }
	return nrbx, dim, nil
}

// RefinementRegions returns the configured static refinement regions in a
// stable order (sorted by name), per §4.4's multiple-region support.
func (in *Input) RefinementRegions() []*RefinementSection {
	names := make([]string, 0, len(in.Refinement))
	for name := range in.Refinement {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*RefinementSection, len(names))
	for i, name := range names {
		out[i] = in.Refinement[name]
	}
	return out
}
