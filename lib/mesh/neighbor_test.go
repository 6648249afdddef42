package mesh

import "testing"

func TestBuildDirsCountsByDimension(t *testing.T) {
	if got, want := len(buildDirs(1)), 2; got != want {
		t.Errorf("buildDirs(1) has %d entries, want %d", got, want)
	}
	if got, want := len(buildDirs(2)), 8; got != want {
		t.Errorf("buildDirs(2) has %d entries, want %d", got, want)
	}
	if got, want := len(buildDirs(3)), 26; got != want {
		t.Errorf("buildDirs(3) has %d entries, want %d", got, want)
	}
}

func TestFindBufferIDDistinctPerFace(t *testing.T) {
	seen := map[int]bool{}
	for _, d := range buildDirs(3) {
		nonzero := 0
		if d.ox1 != 0 { nonzero++ }
		if d.ox2 != 0 { nonzero++ }
		if d.ox3 != 0 { nonzero++ }
		if nonzero != 1 { continue }
		id, err := FindBufferID(d.ox1, d.ox2, d.ox3, 0, 0, MaxNeighbor)
		if err != nil {
			t.Fatalf("FindBufferID: %s", err.Error())
		}
		if seen[id] {
			t.Errorf("duplicate buffer id %d for face direction %+v", id, d)
		}
		seen[id] = true
	}
}

func TestFindBufferIDRejectsZeroDirection(t *testing.T) {
	if _, err := FindBufferID(0, 0, 0, 0, 0, MaxNeighbor); err == nil {
		t.Errorf("expected an error for the zero direction")
	}
}

func TestBuildNeighborsSameLevel(t *testing.T) {
	tr, err := CreateRoot(3, [3]int64{2, 2, 2})
	if err != nil {
		t.Fatalf("CreateRoot: %s", err.Error())
	}
	loc := LogicalLocation{Level: 0, Lx1: 0, Lx2: 0, Lx3: 0}
	nbrs, err := BuildNeighbors(tr, loc, uniformBCs(), 3, false, false)
	if err != nil {
		t.Fatalf("BuildNeighbors: %s", err.Error())
	}
	if len(nbrs) != 26 {
		t.Errorf("got %d neighbors, want 26 for a fully periodic 2x2x2 root grid",
			len(nbrs))
	}
	for _, n := range nbrs {
		if n.LevelDelta != 0 {
			t.Errorf("neighbor %+v has LevelDelta %d, want 0", n, n.LevelDelta)
		}
	}
}

func TestBuildNeighborsFaceOnly(t *testing.T) {
	tr, err := CreateRoot(3, [3]int64{2, 2, 2})
	if err != nil {
		t.Fatalf("CreateRoot: %s", err.Error())
	}
	loc := LogicalLocation{Level: 0, Lx1: 0, Lx2: 0, Lx3: 0}
	nbrs, err := BuildNeighbors(tr, loc, uniformBCs(), 3, false, true)
	if err != nil {
		t.Fatalf("BuildNeighbors: %s", err.Error())
	}
	if len(nbrs) != 6 {
		t.Errorf("got %d neighbors, want 6 face neighbors", len(nbrs))
	}
}

func TestBuildNeighborsFinerSideHasFourEntries(t *testing.T) {
	tr, err := CreateRoot(3, [3]int64{2, 2, 2})
	if err != nil {
		t.Fatalf("CreateRoot: %s", err.Error())
	}
	// Refine the +x1 neighbor of the origin block so it exposes 4 finer
	// blocks on its -x1 face. The inner x1 boundary is outflow so that the
	// periodic wrap does not also reach the refined block across the
	// origin block's -x1 face.
	if err := tr.AddLeaf(LogicalLocation{Level: 1, Lx1: 2, Lx2: 0, Lx3: 0}); err != nil {
		t.Fatalf("AddLeaf: %s", err.Error())
	}
	loc := LogicalLocation{Level: 0, Lx1: 0, Lx2: 0, Lx3: 0}
	bcs := uniformBCs()
	bcs[FaceInnerX1] = BoundaryOutflow
	nbrs, err := BuildNeighbors(tr, loc, bcs, 3, true, true)
	if err != nil {
		t.Fatalf("BuildNeighbors: %s", err.Error())
	}
	finerCount := 0
	for _, n := range nbrs {
		if n.LevelDelta == 1 { finerCount++ }
	}
	if finerCount != 4 {
		t.Errorf("got %d finer neighbors on the refined face, want 4", finerCount)
	}
}

func TestBufferIDScalesWithDimAndMultilevel(t *testing.T) {
	cases := []struct {
		dim                  int
		multilevel, faceOnly bool
		want                 int
	}{
		{1, false, false, 2},
		{1, true, false, 8},
		{3, false, true, 6},
		{3, true, true, 24},
		{2, false, false, 8},
		{3, false, false, 26},
		{3, true, false, 56},
	}
	for _, c := range cases {
		if got := BufferID(c.dim, c.multilevel, c.faceOnly); got != c.want {
			t.Errorf("BufferID(%d, %v, %v) = %d, want %d", c.dim, c.multilevel, c.faceOnly, got, c.want)
		}
	}
}
