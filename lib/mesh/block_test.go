package mesh

import "testing"

func uniformMeshForBlocks() RegionSize {
	return RegionSize{
		X1Min: 0, X1Max: 1, X2Min: 0, X2Max: 1, X3Min: 0, X3Max: 1,
		Nx1: 32, Nx2: 32, Nx3: 1,
		X1Rat: 1, X2Rat: 1, X3Rat: 1,
	}
}

func TestNewMeshBlockCellWindows(t *testing.T) {
	b, err := NewMeshBlock(0, LogicalLocation{}, uniformMeshForBlocks(), 8, 8, 1,
		BoundaryTags{}, UniformMeshGeneratorX1, UniformMeshGeneratorX2, UniformMeshGeneratorX3)
	if err != nil {
		t.Fatalf("NewMeshBlock: %s", err.Error())
	}
	if got, want := b.IX1.Width(), 8; got != want {
		t.Errorf("IX1.Width() = %d, want %d", got, want)
	}
	if got, want := b.IX1.Start, NGhost; got != want {
		t.Errorf("IX1.Start = %d, want %d", got, want)
	}
	if b.IX3 != (CellIndexWindow{Start: 0, End: 1}) {
		t.Errorf("IX3 = %+v, want the inactive 1-cell window", b.IX3)
	}
}

func TestNewMeshBlockCoarsenedWindow(t *testing.T) {
	b, err := NewMeshBlock(0, LogicalLocation{}, uniformMeshForBlocks(), 8, 8, 1,
		BoundaryTags{}, UniformMeshGeneratorX1, UniformMeshGeneratorX2, UniformMeshGeneratorX3)
	if err != nil {
		t.Fatalf("NewMeshBlock: %s", err.Error())
	}
	if got, want := b.CX1.Width(), 4; got != want {
		t.Errorf("CX1.Width() = %d, want %d", got, want)
	}
}

func TestNewMeshBlockSizeShrinksWithLevel(t *testing.T) {
	mesh := uniformMeshForBlocks()
	root, err := NewMeshBlock(0, LogicalLocation{Level: 0, Lx1: 0, Lx2: 0}, mesh, 8, 8, 1,
		BoundaryTags{}, UniformMeshGeneratorX1, UniformMeshGeneratorX2, UniformMeshGeneratorX3)
	if err != nil {
		t.Fatalf("NewMeshBlock: %s", err.Error())
	}
	child, err := NewMeshBlock(1, LogicalLocation{Level: 1, Lx1: 0, Lx2: 0}, mesh, 8, 8, 1,
		BoundaryTags{}, UniformMeshGeneratorX1, UniformMeshGeneratorX2, UniformMeshGeneratorX3)
	if err != nil {
		t.Fatalf("NewMeshBlock: %s", err.Error())
	}
	rootWidth := root.BlockSize.X1Max - root.BlockSize.X1Min
	childWidth := child.BlockSize.X1Max - child.BlockSize.X1Min
	if childWidth >= rootWidth {
		t.Errorf("child block width %g should be smaller than root width %g",
			childWidth, rootWidth)
	}
}

func TestTaskBits(t *testing.T) {
	b := &MeshBlock{}
	if b.TaskDone(3) {
		t.Errorf("expected task 3 to start incomplete")
	}
	b.MarkTaskDone(3)
	if !b.TaskDone(3) {
		t.Errorf("expected task 3 to be marked complete")
	}
	b.ResetTasks()
	if b.TaskDone(3) {
		t.Errorf("expected ResetTasks to clear task 3")
	}
}
