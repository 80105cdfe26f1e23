package publish

import (
	"context"
	"fmt"

	"publisher/internal/faults"
	"publisher/internal/logging"
	"publisher/internal/plugin"
)

// Failure is one failing task; a nil Err means validate returned false.
type Failure = plugin.TaskFailure

// ValidationReport is the result of a validation pass.
type ValidationReport struct {
	// Tasks is the number of tasks that ran.
	Tasks int
	// Failures holds one entry per failing task, in execution order.
	Failures []Failure
	// Vetoed is set when the post-phase hook rejected a passing validation.
	Vetoed bool
}

// Passed reports whether every task validated and nothing vetoed the result.
func (r ValidationReport) Passed() bool {
	return len(r.Failures) == 0 && !r.Vetoed
}

// ByItem groups the failures by item.
func (r ValidationReport) ByItem() []plugin.ItemFailures {
	return plugin.GroupByItem(r.Failures)
}

// PhaseError is a publish or finalize failure. It unwraps to the task's own
// error.
type PhaseError struct {
	Phase  Phase
	// Task is the task's display name and Plugin the configured instance name.
	Task   string
	Plugin string
	Item   string
	Err    error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s failed for task %q on item %q: %v", e.Phase, e.Task, e.Item, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

func (m *Manager) generator(gen TaskGenerator) TaskGenerator {
	if gen == nil {
		return NewGenerator(m.tree, nil)
	}
	return gen
}

// Validate runs validate on every task gen yields. Failing tasks are
// collected and the pass continues. The post-phase hook then sees the
// failures grouped by item and may veto the result.
func (m *Manager) Validate(ctx context.Context, gen TaskGenerator) (ValidationReport, error) {
	ctx = logging.WithPhase(ctx, string(PhaseValidate))
	logger := logging.WithContext(ctx, m.logger)
	gen = m.generator(gen)
	logger.Info("running validation pass")

	var report ValidationReport
	for {
		task, ok := gen.Next()
		if !ok {
			break
		}
		report.Tasks++
		valid, err := task.Validate(ctx)
		outcome := Outcome{Phase: PhaseValidate, Task: task, Passed: valid && err == nil, Err: err}
		if !outcome.Passed {
			report.Failures = append(report.Failures, Failure{Task: task, Err: err})
			logger.Warn("task failed validation",
				logging.String(logging.FieldTask, task.Name()),
				logging.String(logging.FieldItem, task.Item().Name()),
				logging.Bool("raised", err != nil),
			)
		}
		if err := gen.Report(outcome); err != nil {
			return report, err
		}
	}

	if m.postPhase != nil {
		verdict, err := m.postPhase.PostValidate(ctx, m.tree, report.ByItem())
		if err != nil {
			return report, err
		}
		if verdict == plugin.Veto && len(report.Failures) == 0 {
			logger.Warn("post-phase hook vetoed validation")
			report.Vetoed = true
		}
	}
	logger.Info("validation pass complete",
		logging.Int("tasks", report.Tasks),
		logging.Int("failures", len(report.Failures)),
		logging.Bool("vetoed", report.Vetoed),
	)
	return report, nil
}

// Publish runs publish on every task gen yields. The first failure stops the
// pass and comes back as a *PhaseError.
func (m *Manager) Publish(ctx context.Context, gen TaskGenerator) error {
	return m.runPhase(ctx, PhasePublish, m.generator(gen))
}

// Finalize runs finalize on every task gen yields. The first failure stops
// the pass and comes back as a *PhaseError.
func (m *Manager) Finalize(ctx context.Context, gen TaskGenerator) error {
	return m.runPhase(ctx, PhaseFinalize, m.generator(gen))
}

func (m *Manager) runPhase(ctx context.Context, phase Phase, gen TaskGenerator) error {
	ctx = logging.WithPhase(ctx, string(phase))
	logger := logging.WithContext(ctx, m.logger)
	logger.Info("running " + string(phase) + " pass")

	count := 0
	for {
		task, ok := gen.Next()
		if !ok {
			break
		}
		count++
		var err error
		if phase == PhasePublish {
			err = task.Publish(ctx)
		} else {
			err = task.Finalize(ctx)
		}
		if rerr := gen.Report(Outcome{Phase: phase, Task: task, Passed: err == nil, Err: err}); rerr != nil {
			return rerr
		}
		if err != nil {
			logging.ErrorWithContext(logger, string(phase)+" failed", string(phase)+"_failed",
				"fix the failing task and run again",
				logging.String(logging.FieldTask, task.Name()),
				logging.String(logging.FieldPlugin, task.Plugin().Name()),
				logging.String(logging.FieldItem, task.Item().Name()),
				logging.Error(err),
			)
			return &PhaseError{
				Phase:  phase,
				Task:   task.Name(),
				Plugin: task.Plugin().Name(),
				Item:   task.Item().Name(),
				Err:    err,
			}
		}
	}

	if m.postPhase != nil {
		var err error
		if phase == PhasePublish {
			err = m.postPhase.PostPublish(ctx, m.tree)
		} else {
			err = m.postPhase.PostFinalize(ctx, m.tree)
		}
		if err != nil {
			return faults.Wrap(faults.ErrHook, "publish", "post "+string(phase), "post-phase hook failed", err)
		}
	}
	logger.Info(string(phase)+" pass complete", logging.Int("tasks", count))
	return nil
}
