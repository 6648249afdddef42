package mesh

import "testing"

func TestUpdateOneStepRunsInDependencyOrder(t *testing.T) {
	tl := NewTaskList()
	var order []string
	t1, err := tl.AddTask("calc_flux", 0, func(b *MeshBlock) (TaskStatus, error) {
		order = append(order, "calc_flux")
		return TaskComplete, nil
	})
	if err != nil { t.Fatalf("AddTask: %s", err.Error()) }
	if _, err := tl.AddTask("update_cons", t1.Bit(), func(b *MeshBlock) (TaskStatus, error) {
		order = append(order, "update_cons")
		return TaskComplete, nil
	}); err != nil {
		t.Fatalf("AddTask: %s", err.Error())
	}

	blocks := []*MeshBlock{{GID: 0}}
	if err := tl.UpdateOneStep(blocks); err != nil {
		t.Fatalf("UpdateOneStep: %s", err.Error())
	}
	if len(order) != 2 || order[0] != "calc_flux" || order[1] != "update_cons" {
		t.Errorf("tasks ran in order %v, want [calc_flux update_cons]", order)
	}
}

func TestUpdateOneStepSuspendAndResume(t *testing.T) {
	tl := NewTaskList()
	calls := 0
	if _, err := tl.AddTask("recv_boundary", 0, func(b *MeshBlock) (TaskStatus, error) {
		calls++
		if calls < 3 {
			return TaskInProgress, nil
		}
		return TaskComplete, nil
	}); err != nil {
		t.Fatalf("AddTask: %s", err.Error())
	}

	blocks := []*MeshBlock{{GID: 0}}
	if err := tl.UpdateOneStep(blocks); err != nil {
		t.Fatalf("UpdateOneStep: %s", err.Error())
	}
	if calls != 3 {
		t.Errorf("task ran %d times, want 3 (suspended twice then completed)", calls)
	}
}

func TestUpdateOneStepMultipleBlocksIndependent(t *testing.T) {
	tl := NewTaskList()
	ran := map[int]bool{}
	if _, err := tl.AddTask("step", 0, func(b *MeshBlock) (TaskStatus, error) {
		ran[b.GID] = true
		return TaskComplete, nil
	}); err != nil {
		t.Fatalf("AddTask: %s", err.Error())
	}

	blocks := []*MeshBlock{{GID: 0}, {GID: 1}, {GID: 2}}
	if err := tl.UpdateOneStep(blocks); err != nil {
		t.Fatalf("UpdateOneStep: %s", err.Error())
	}
	for _, b := range blocks {
		if !ran[b.GID] {
			t.Errorf("block %d never ran its task", b.GID)
		}
	}
}

func TestUpdateOneStepDetectsStall(t *testing.T) {
	tl := NewTaskList()
	t1, err := tl.AddTask("a", 0, func(b *MeshBlock) (TaskStatus, error) {
		return TaskInProgress, nil
	})
	if err != nil { t.Fatalf("AddTask: %s", err.Error()) }
	_ = t1

	blocks := []*MeshBlock{{GID: 0}}
	if err := tl.UpdateOneStep(blocks); err == nil {
		t.Errorf("expected a stall error when a task never completes")
	}
}
