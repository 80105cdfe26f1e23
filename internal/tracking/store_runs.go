package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"publisher/internal/faults"
)

// StartRun records a run in the running state.
func (s *Store) StartRun(ctx context.Context, id, contextLabel string, tasks int) (*Run, error) {
	run := Run{ID: id, Context: contextLabel, Status: RunRunning, Tasks: tasks, StartedAt: nowUTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, context, status, tasks, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, nullableString(run.Context), run.Status, run.Tasks, formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &run, nil
}

// FinishRun stores the final state of a run.
func (s *Store) FinishRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	finished := nowUTC()
	run.FinishedAt = &finished
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, failures = ?, phase = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		run.Status, run.Failures, nullableString(run.Phase), nullableString(run.Error), formatTime(finished), run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return faults.Wrap(faults.ErrNotFound, "tracking", "finish run", run.ID, nil)
	}
	return nil
}

// Runs returns recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, context, status, tasks, failures, phase, error_message, started_at, finished_at
        FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                          Run
			contextLabel, phase, message sql.NullString
			startedAt                    string
			finishedAt                   sql.NullString
		)
		if err := rows.Scan(&run.ID, &contextLabel, &run.Status, &run.Tasks, &run.Failures,
			&phase, &message, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Context = contextLabel.String
		run.Phase = phase.String
		run.Error = message.String
		run.StartedAt = parseTime(startedAt)
		if finishedAt.Valid {
			t := parseTime(finishedAt.String)
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
