package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"lwfm/internal/lwfmerr"
	"lwfm/internal/serializer"
	"lwfm/pkg/lwfm"
)

// PutWorkflow appends a row for workflow; reads return the newest row for
// a given workflowId (append-on-update, per §3).
func (s *Store) PutWorkflow(ctx context.Context, wf *lwfm.Workflow) error {
	data, err := serializer.Serialize(wf)
	if err != nil {
		return lwfmerr.New(lwfmerr.CodeSerialization, "store.PutWorkflow", err)
	}
	return s.put(ctx, tableWorkflow, "local", pillarWorkflow, wf.WorkflowID, data)
}

// GetWorkflow returns the newest row for workflowId, or nil if none
// exists.
func (s *Store) GetWorkflow(ctx context.Context, workflowID string) (*lwfm.Workflow, error) {
	const q = `SELECT data FROM ` + tableWorkflow + ` WHERE pillar=? AND key=? ORDER BY ts DESC LIMIT 1`
	var data string
	err := s.db.QueryRowContext(ctx, q, pillarWorkflow, workflowID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.GetWorkflow", err)
	}
	wf, err := serializer.Deserialize[lwfm.Workflow](data)
	if err != nil {
		return nil, lwfmerr.New(lwfmerr.CodeSerialization, "store.GetWorkflow", err)
	}
	return wf, nil
}

// FindWorkflows returns every workflow whose Props satisfy every (field,
// regex) clause in query, AND-combined, matched against a JSON rendering
// of Props the same way metasheet find() matches the key column.
func (s *Store) FindWorkflows(ctx context.Context, query map[string]string) ([]*lwfm.Workflow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, data FROM `+tableWorkflow+` WHERE pillar=? ORDER BY ts DESC`, pillarWorkflow)
	if err != nil {
		return nil, lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.FindWorkflows", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	var out []*lwfm.Workflow
	for rows.Next() {
		var key, data string
		if err := rows.Scan(&key, &data); err != nil {
			continue
		}
		if seen[key] {
			continue
		}
		wf, err := serializer.Deserialize[lwfm.Workflow](data)
		if err != nil {
			continue
		}
		propsJSON, _ := json.Marshal(wf.Props)
		if matchesAll(string(propsJSON), query) {
			out = append(out, wf)
		}
		seen[key] = true
	}
	return out, nil
}
