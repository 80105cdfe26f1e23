package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const runLogExt = ".log"

// RunLog is a JSON log file holding every record of one publish run,
// debug included, regardless of the configured console level.
type RunLog struct {
	path    string
	file    *os.File
	handler slog.Handler
}

// OpenRunLog creates dir/<runID>.log.
func OpenRunLog(dir, runID string) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure run log directory: %w", err)
	}
	path := filepath.Join(dir, runID+runLogExt)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	return &RunLog{
		path:    path,
		file:    file,
		handler: newJSONHandler(file, level, false),
	}, nil
}

// Path returns the log file location.
func (l *RunLog) Path() string { return l.path }

// Handler returns the file handler, suitable for WithTee.
func (l *RunLog) Handler() slog.Handler { return l.handler }

func (l *RunLog) Close() error {
	return l.file.Close()
}
