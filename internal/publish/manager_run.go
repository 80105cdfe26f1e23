package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"publisher/internal/faults"
	"publisher/internal/logging"
	"publisher/internal/tracking"
)

// RunRecorder stores run history. *tracking.Store satisfies it.
type RunRecorder interface {
	StartRun(ctx context.Context, id, contextLabel string, tasks int) (*tracking.Run, error)
	FinishRun(ctx context.Context, run *tracking.Run) error
}

// RunResult summarizes one Run call.
type RunResult struct {
	ID         string
	Status     tracking.RunStatus
	Validation ValidationReport
	// Phase is the phase that stopped the run, empty on success.
	Phase Phase
	// LogPath is the run log file, empty when run logs are off.
	LogPath string
}

// Run validates, publishes, and finalizes the runnable tasks. Validation
// failures stop the run before anything is published and are reported with
// an ErrValidation error.
func (m *Manager) Run(ctx context.Context) (RunResult, error) {
	result := RunResult{ID: uuid.NewString()}
	ctx = logging.WithRunID(ctx, result.ID)
	if runCtx, path, detach := m.attachRunLog(ctx, result.ID); detach != nil {
		defer detach()
		ctx = runCtx
		result.LogPath = path
	}
	logger := logging.WithContext(ctx, m.logger)

	tasks := RunnableTasks(m.tree)
	record := m.startRun(ctx, result.ID, len(tasks))
	logger.Info("publish run started", logging.Int("tasks", len(tasks)))

	report, err := m.Validate(ctx, NewTaskListGenerator(tasks, nil))
	result.Validation = report
	switch {
	case err != nil:
		result.Phase = PhaseValidate
	case !report.Passed():
		result.Phase = PhaseValidate
		err = faults.Wrap(faults.ErrValidation, "publish", "run", validationSummary(report), nil)
	default:
		if err = m.Publish(ctx, NewTaskListGenerator(tasks, nil)); err != nil {
			result.Phase = PhasePublish
		} else if err = m.Finalize(ctx, NewTaskListGenerator(tasks, nil)); err != nil {
			result.Phase = PhaseFinalize
		}
	}

	switch {
	case err == nil:
		result.Status = tracking.RunSucceeded
	case errors.Is(err, faults.ErrValidation):
		result.Status = tracking.RunValidationFailed
	default:
		result.Status = tracking.RunFailed
	}
	m.finishRun(ctx, record, result, err)

	if err != nil {
		logger.Warn("publish run stopped",
			logging.String("status", string(result.Status)),
			logging.String(logging.FieldPhase, string(result.Phase)),
			logging.Error(err),
		)
		return result, err
	}
	logger.Info("publish run complete")
	return result, nil
}

// attachRunLog opens a fresh run log and returns a context carrying it, so
// every logger derived through logging.WithContext during the run (manager,
// plugin instances, Lua hooks) also writes there. detach closes the file and
// is nil when run logs are off or the file cannot be opened.
func (m *Manager) attachRunLog(ctx context.Context, id string) (runCtx context.Context, path string, detach func()) {
	if m.runLogDir == "" {
		return ctx, "", nil
	}
	logging.PruneRunLogs(m.logger, m.runLogDir, m.runLogDays)
	runLog, err := logging.OpenRunLog(m.runLogDir, id)
	if err != nil {
		logging.WithContext(ctx, m.logger).Warn("run log unavailable", logging.Error(err))
		return ctx, "", nil
	}
	return logging.WithTee(ctx, runLog.Handler()), runLog.Path(), func() {
		if err := runLog.Close(); err != nil {
			m.logger.Warn("close run log", logging.String("path", runLog.Path()), logging.Error(err))
		}
	}
}

func validationSummary(report ValidationReport) string {
	if report.Vetoed {
		return "validation vetoed by post-phase hook"
	}
	if len(report.Failures) == 1 {
		return "1 task failed validation"
	}
	return fmt.Sprintf("%d tasks failed validation", len(report.Failures))
}

// startRun and finishRun only log history errors; a broken history store
// never fails a publish.
func (m *Manager) startRun(ctx context.Context, id string, tasks int) *tracking.Run {
	if m.history == nil {
		return nil
	}
	run, err := m.history.StartRun(ctx, id, m.session.Context.String(), tasks)
	if err != nil {
		logging.WithContext(ctx, m.logger).Warn("run history unavailable", logging.Error(err))
		return nil
	}
	return run
}

func (m *Manager) finishRun(ctx context.Context, run *tracking.Run, result RunResult, err error) {
	if m.history == nil || run == nil {
		return
	}
	run.Status = result.Status
	run.Failures = len(result.Validation.Failures)
	run.Phase = string(result.Phase)
	if err != nil {
		run.Error = err.Error()
	}
	if ferr := m.history.FinishRun(ctx, run); ferr != nil {
		logging.WithContext(ctx, m.logger).Warn("failed to record run", logging.Error(ferr))
	}
}
