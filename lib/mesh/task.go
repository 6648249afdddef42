package mesh

import "fmt"

// TaskStatus is the outcome of one TaskFunc invocation for one block, per
// §4.5.
type TaskStatus int

const (
	// TaskComplete marks the task done for this block for the current
	// step.
	TaskComplete TaskStatus = iota
	// TaskInProgress suspends the task: it will be retried next round,
	// typically because it is waiting on a neighbor's boundary buffer.
	TaskInProgress
)

// TaskFunc implements one unit of per-block work.
type TaskFunc func(b *MeshBlock) (TaskStatus, error)

// Task is one registered unit of work, gated by the completion of any
// tasks named in Depends.
type Task struct {
	Name    string
	ID      int
	Depends uint64
	Run     TaskFunc
}

// TaskList is the ordered set of tasks a step's UpdateOneStep cycles
// through for every block, per §4.5. Tasks are identified by bit position
// in MeshBlock.TaskBits, so a TaskList can register at most 64 tasks.
type TaskList struct {
	tasks []Task
}

// NewTaskList returns an empty task list.
func NewTaskList() *TaskList { return &TaskList{} }

// AddTask registers a new task, gated on the bits named by depends (built
// from earlier AddTask calls' returned Task.ID).
func (tl *TaskList) AddTask(name string, depends uint64, run TaskFunc) (*Task, error) {
	if len(tl.tasks) >= 64 {
		return nil, fmt.Errorf("task list already has the maximum of 64 tasks")
	}
	tl.tasks = append(tl.tasks, Task{Name: name, ID: len(tl.tasks), Depends: depends, Run: run})
	return &tl.tasks[len(tl.tasks)-1], nil
}

// Bit returns the dependency bit for task t, for building later tasks'
// Depends masks.
func (t *Task) Bit() uint64 { return 1 << uint(t.ID) }

// UpdateOneStep drives every block through the task list cooperatively:
// each round, every block not yet finished attempts every task whose
// dependencies are satisfied and which it hasn't completed; a task that
// returns TaskInProgress is retried in a later round. UpdateOneStep
// returns once every block has completed every task, or an error once
// maxStalledRounds consecutive rounds (100) pass with no block making
// progress (a stalled dependency cycle or a task that never reports
// completion).
func (tl *TaskList) UpdateOneStep(blocks []*MeshBlock) error {
	const maxStalledRounds = 100
	for _, b := range blocks {
		b.ResetTasks()
	}

	stalled := 0
	for {
		allDone := true
		anyProgress := false
		for _, b := range blocks {
			if tl.isComplete(b) {
				continue
			}
			allDone = false
			progressed, rerr := tl.advanceBlock(b)
			if rerr != nil {
				return rerr
			}
			if progressed {
				anyProgress = true
			}
		}
		if allDone {
			return nil
		}
		if anyProgress {
			stalled = 0
			continue
		}
		stalled++
		if stalled >= maxStalledRounds {
			return fmt.Errorf("task list stalled: no block made progress in %d consecutive rounds", maxStalledRounds)
		}
	}
}

func (tl *TaskList) isComplete(b *MeshBlock) bool {
	for _, t := range tl.tasks {
		if !b.TaskDone(t.ID) {
			return false
		}
	}
	return true
}

func (tl *TaskList) advanceBlock(b *MeshBlock) (progressed bool, err error) {
	for _, t := range tl.tasks {
		if b.TaskDone(t.ID) {
			continue
		}
		if b.TaskBits&t.Depends != t.Depends {
			continue
		}
		status, rerr := t.Run(b)
		if rerr != nil {
			return progressed, fmt.Errorf("task %q on block %d: %w", t.Name, b.GID, rerr)
		}
		switch status {
		case TaskComplete:
			b.MarkTaskDone(t.ID)
			progressed = true
		case TaskInProgress:
			// retried next round
		}
	}
	return progressed, nil
}
