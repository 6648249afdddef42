package fields

import "testing"

func TestTransfer(t *testing.T) {
	src := &Field{Name: "d", Data: []float64{4, 8, 15, 16, 23, 42}}
	from := []int{5, 4, 3, 2, 1, 0}
	to := []int{0, 1, 2, 3, 4, 5}

	dest := NewSet()
	src.CreateDestination(dest, len(from))

	if err := src.Transfer(dest, from, to); err != nil {
		t.Fatalf("Transfer: %s", err.Error())
	}

	want := []float64{42, 23, 16, 15, 8, 4}
	got := dest["d"].Data
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dest[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestTransferMismatchedLength(t *testing.T) {
	src := &Field{Name: "d", Data: []float64{1, 2}}
	dest := NewSet()
	src.CreateDestination(dest, 2)
	if err := src.Transfer(dest, []int{0}, []int{0, 1}); err == nil {
		t.Errorf("expected an error for mismatched from/to lengths")
	}
}

func TestRestrictProlong2D(t *testing.T) {
	// 2x2 coarse grid, 4x4 fine grid (dim=2, ratio 2 along x1/x2).
	fine := []float64{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}
	coarse := make([]float64, 4)
	if err := Restrict(coarse, fine, 2, 2, 2, 1); err != nil {
		t.Fatalf("Restrict: %s", err.Error())
	}
	want := []float64{1, 2, 3, 4}
	for i := range want {
		if coarse[i] != want[i] {
			t.Errorf("coarse[%d] = %g, want %g", i, coarse[i], want[i])
		}
	}

	backFine := make([]float64, 16)
	if err := Prolong(backFine, coarse, 2, 2, 2, 1); err != nil {
		t.Fatalf("Prolong: %s", err.Error())
	}
	for i := range fine {
		if backFine[i] != fine[i] {
			t.Errorf("backFine[%d] = %g, want %g", i, backFine[i], fine[i])
		}
	}
}

func TestRestrictLengthMismatch(t *testing.T) {
	coarse := make([]float64, 4)
	fine := make([]float64, 10) // wrong: should be 16 for a 2x2 coarse grid
	if err := Restrict(coarse, fine, 2, 2, 2, 1); err == nil {
		t.Errorf("expected a length-mismatch error")
	}
}
