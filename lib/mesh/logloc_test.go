package mesh

import "testing"

func TestValid(t *testing.T) {
	nrbx := [3]int64{2, 2, 2}
	ok := LogicalLocation{Level: 1, Lx1: 3, Lx2: 0, Lx3: 0}
	if err := ok.Valid(nrbx); err != nil {
		t.Errorf("expected valid, got %s", err.Error())
	}

	bad := LogicalLocation{Level: 1, Lx1: 4, Lx2: 0, Lx3: 0}
	if err := bad.Valid(nrbx); err == nil {
		t.Errorf("expected an out-of-range error")
	}

	badLevel := LogicalLocation{Level: 64}
	if err := badLevel.Valid(nrbx); err == nil {
		t.Errorf("expected a level-range error")
	}
}

func TestLessLevelDescending(t *testing.T) {
	coarse := LogicalLocation{Level: 0, Lx1: 0, Lx2: 0, Lx3: 0}
	fine := LogicalLocation{Level: 1, Lx1: 0, Lx2: 0, Lx3: 0}
	if !Less(fine, coarse) {
		t.Errorf("expected the finer location to sort first")
	}
	if Less(coarse, fine) {
		t.Errorf("expected the coarser location not to sort first")
	}
}

func TestLessMortonWithinLevel(t *testing.T) {
	a := LogicalLocation{Level: 2, Lx1: 0, Lx2: 0, Lx3: 0}
	b := LogicalLocation{Level: 2, Lx1: 1, Lx2: 0, Lx3: 0}
	c := LogicalLocation{Level: 2, Lx1: 0, Lx2: 1, Lx3: 0}
	if !Less(a, b) {
		t.Errorf("expected (0,0,0) before (1,0,0)")
	}
	if !Less(b, c) {
		t.Errorf("expected (1,0,0) before (0,1,0)")
	}
}

func TestParentChildRoundTrip(t *testing.T) {
	loc := LogicalLocation{Level: 3, Lx1: 5, Lx2: 2, Lx3: 7}
	parent, octant := loc.Parent()
	if got := parent.Child(octant); got != loc {
		t.Errorf("parent.Child(octant) = %+v, want %+v", got, loc)
	}
}

func TestSiblings(t *testing.T) {
	loc := LogicalLocation{Level: 1, Lx1: 0, Lx2: 0, Lx3: 0}
	sibs := loc.Siblings(3)
	if len(sibs) != 8 {
		t.Fatalf("got %d siblings, want 8", len(sibs))
	}
	parent, _ := loc.Parent()
	for _, s := range sibs {
		p, _ := s.Parent()
		if p != parent {
			t.Errorf("sibling %+v has parent %+v, want %+v", s, p, parent)
		}
	}
}
