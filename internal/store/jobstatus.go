package store

import (
	"context"
	"database/sql"
	"errors"

	"lwfm/internal/lwfmerr"
	"lwfm/internal/serializer"
	"lwfm/pkg/lwfm"
)

// PutJobStatus appends a status observation. Malformed input (nil datum
// or a datum with no jobId) is logged to the LoggingStore, not written,
// and rejected with a malformed-input error.
func (s *Store) PutJobStatus(ctx context.Context, status *lwfm.JobStatus) error {
	if status == nil || status.Context == nil || status.Context.JobID == "" {
		_ = s.PutLogging(ctx, "ERROR", "", "", "PutJobStatus called with no job id")
		return lwfmerr.New(lwfmerr.CodeMalformedInput, "store.PutJobStatus", nil)
	}
	data, err := serializer.Serialize(status)
	if err != nil {
		return lwfmerr.New(lwfmerr.CodeSerialization, "store.PutJobStatus", err)
	}
	return s.put(ctx, tableJobStatus, status.Context.SiteName, pillarJobStatus, status.Context.JobID, data)
}

// GetAllJobStatuses returns every status recorded for jobId, newest
// first, matching the "monotonically non-increasing in emitTime" reader
// contract of §5.
func (s *Store) GetAllJobStatuses(ctx context.Context, jobID string) ([]*lwfm.JobStatus, error) {
	const q = `SELECT data FROM ` + tableJobStatus + ` WHERE pillar=? AND key=? ORDER BY ts DESC`
	rows, err := s.db.QueryContext(ctx, q, pillarJobStatus, jobID)
	if err != nil {
		return nil, lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.GetAllJobStatuses", err)
	}
	defer rows.Close()

	var out []*lwfm.JobStatus
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}
		st, err := serializer.Deserialize[lwfm.JobStatus](data)
		if err != nil {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// GetJobStatus returns the newest status for jobId, or nil if none
// exists.
func (s *Store) GetJobStatus(ctx context.Context, jobID string) (*lwfm.JobStatus, error) {
	const q = `SELECT data FROM ` + tableJobStatus + ` WHERE pillar=? AND key=? ORDER BY ts DESC LIMIT 1`
	var data string
	err := s.db.QueryRowContext(ctx, q, pillarJobStatus, jobID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.GetJobStatus", err)
	}
	st, err := serializer.Deserialize[lwfm.JobStatus](data)
	if err != nil {
		return nil, lwfmerr.New(lwfmerr.CodeSerialization, "store.GetJobStatus", err)
	}
	return st, nil
}

// StatusesForWorkflow returns every status ever recorded for any job
// belonging to workflowId, newest first; used by the aggregation logic
// in the façade's dumpWorkflow.
func (s *Store) StatusesForWorkflow(ctx context.Context, workflowID string) ([]*lwfm.JobStatus, error) {
	const q = `SELECT data FROM ` + tableJobStatus + ` WHERE pillar=? ORDER BY ts DESC`
	rows, err := s.db.QueryContext(ctx, q, pillarJobStatus)
	if err != nil {
		return nil, lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.StatusesForWorkflow", err)
	}
	defer rows.Close()

	var out []*lwfm.JobStatus
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}
		st, err := serializer.Deserialize[lwfm.JobStatus](data)
		if err != nil {
			continue
		}
		if st.Context != nil && st.Context.WorkflowID == workflowID {
			out = append(out, st)
		}
	}
	return out, nil
}
