package publish

import "publisher/internal/tree"

// Phase names a pass over the task list.
type Phase string

const (
	PhaseValidate Phase = "validate"
	PhasePublish  Phase = "publish"
	PhaseFinalize Phase = "finalize"
)

// Outcome is the result of running one task in one phase. Passed is false
// when the task failed, with or without an error.
type Outcome struct {
	Phase  Phase
	Task   *tree.Task
	Passed bool
	Err    error
}

// TaskGenerator feeds tasks to a phase and receives each outcome before the
// next task runs. Returning an error from Report stops the phase; the
// manager returns that error unchanged.
type TaskGenerator interface {
	Next() (*tree.Task, bool)
	Report(Outcome) error
}

// RunnableTasks flattens the tasks phases execute: active, enabled tasks of
// effective items, in tree pre-order.
func RunnableTasks(t *tree.Tree) []*tree.Task {
	var tasks []*tree.Task
	for task := range t.Tasks() {
		if task.Runnable() {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// Generator walks a fixed task list. An optional inspect callback sees each
// outcome and may stop the phase.
type Generator struct {
	tasks    []*tree.Task
	next     int
	inspect  func(Outcome) error
	outcomes []Outcome
}

// NewGenerator snapshots the runnable tasks of t.
func NewGenerator(t *tree.Tree, inspect func(Outcome) error) *Generator {
	return NewTaskListGenerator(RunnableTasks(t), inspect)
}

// NewTaskListGenerator walks tasks in the order given.
func NewTaskListGenerator(tasks []*tree.Task, inspect func(Outcome) error) *Generator {
	return &Generator{tasks: tasks, inspect: inspect}
}

func (g *Generator) Next() (*tree.Task, bool) {
	if g.next >= len(g.tasks) {
		return nil, false
	}
	task := g.tasks[g.next]
	g.next++
	return task, true
}

func (g *Generator) Report(o Outcome) error {
	g.outcomes = append(g.outcomes, o)
	if g.inspect != nil {
		return g.inspect(o)
	}
	return nil
}

// Outcomes returns every outcome reported so far.
func (g *Generator) Outcomes() []Outcome { return g.outcomes }

// Len is the number of tasks the generator walks.
func (g *Generator) Len() int { return len(g.tasks) }
