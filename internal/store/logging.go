package store

import (
	"context"
	"strings"
	"time"

	"lwfm/internal/lwfmerr"
	"lwfm/pkg/lwfm"
)

// PutLogging appends a log record, queryable later by workflowId or
// jobId.
func (s *Store) PutLogging(ctx context.Context, level, workflowID, jobID, message string) error {
	rec := lwfm.LogRecord{
		Timestamp:  time.Now().UTC(),
		Level:      level,
		WorkflowID: workflowID,
		JobID:      jobID,
		Message:    message,
	}
	data := rec.Timestamp.Format(time.RFC3339Nano) + "\t" + level + "\t" + workflowID + "\t" + jobID + "\t" + message
	key := jobID
	if key == "" {
		key = workflowID
	}
	return s.put(ctx, tableLogging, "local", "run.log."+level, key, data)
}

// FindLogsByJob returns every log record attributed to jobID, newest
// first.
func (s *Store) FindLogsByJob(ctx context.Context, jobID string) ([]string, error) {
	const q = `SELECT data FROM ` + tableLogging + ` WHERE pillar LIKE 'run.log.%' AND key=? ORDER BY ts DESC`
	rows, err := s.db.QueryContext(ctx, q, jobID)
	if err != nil {
		return nil, lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.FindLogsByJob", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// FindLogsByWorkflow returns every log record whose embedded workflowId
// field matches workflowID, newest first.
func (s *Store) FindLogsByWorkflow(ctx context.Context, workflowID string) ([]string, error) {
	const q = `SELECT data FROM ` + tableLogging + ` WHERE pillar LIKE 'run.log.%' ORDER BY ts DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.FindLogsByWorkflow", err)
	}
	defer rows.Close()
	all, err := scanStrings(rows)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range all {
		if containsField(line, workflowID) {
			out = append(out, line)
		}
	}
	return out, nil
}

// AllLogs returns every log record, newest first.
func (s *Store) AllLogs(ctx context.Context) ([]string, error) {
	const q = `SELECT data FROM ` + tableLogging + ` ORDER BY ts DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.AllLogs", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func scanStrings(rows interface {
	Next() bool
	Scan(...any) error
}) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// containsField reports whether the workflowId field (the third
// tab-separated field written by PutLogging) of line equals value.
func containsField(line, value string) bool {
	if value == "" {
		return false
	}
	fields := strings.SplitN(line, "\t", 4)
	return len(fields) > 2 && fields[2] == value
}
