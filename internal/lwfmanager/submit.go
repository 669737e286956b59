package lwfmanager

import (
	"context"
	"time"

	"lwfm/internal/serializer"
	"lwfm/pkg/lwfm"
)

// Submit dispatches defn to siteName, building a fresh child context
// under parent (or a seminal context if parent is nil), persists the
// resulting status, and — if the site is flagged remote — installs a
// RemoteJobEvent so the event processor polls it through to completion.
func (m *Manager) Submit(ctx context.Context, siteName string, defn *lwfm.JobDefn, parent *lwfm.JobContext, computeType string, runArgs map[string]string) (*lwfm.JobStatus, error) {
	jobID := m.GenerateID()
	var jctx *lwfm.JobContext
	if parent != nil {
		jctx = lwfm.NewChildJobContext(jobID, parent)
	} else {
		jctx = lwfm.NewJobContext(jobID)
	}
	jctx.SiteName = siteName
	jctx.ComputeType = computeType

	pending := lwfm.NewJobStatus(jctx)
	pending.Status = lwfm.StatusPending
	pending.EmitTime = time.Now().UTC()
	if err := m.EmitStatus(ctx, pending); err != nil {
		return nil, err
	}

	status, err := m.disp.Submit(ctx, siteName, defn, jctx, computeType, runArgs)
	if err != nil {
		failed := lwfm.NewJobStatus(jctx)
		failed.Status = lwfm.StatusFailed
		failed.NativeInfo = err.Error()
		failed.EmitTime = time.Now().UTC()
		_ = m.EmitStatus(ctx, failed)
		return nil, err
	}
	if status.EmitTime.IsZero() {
		status.EmitTime = time.Now().UTC()
	}
	if err := m.EmitStatus(ctx, status); err != nil {
		return nil, err
	}

	if m.disp.IsRemoteSite(siteName) && !status.IsTerminal() {
		evt := lwfm.NewRemoteJobEvent(m.GenerateID(), status.Context.NativeID, siteName, jctx)
		_ = m.store.PutWfEvent(ctx, evt)
	}

	return status, nil
}

// EmitStatus persists status, auto-creating its workflow record on first
// sight of a new workflowId, triggers metadata-event evaluation when the
// status is INFO, and wakes the event processor so any JOB trigger
// watching this job's new state is evaluated promptly.
func (m *Manager) EmitStatus(ctx context.Context, status *lwfm.JobStatus) error {
	if status == nil || status.Context == nil {
		return nil
	}
	if status.EmitTime.IsZero() {
		status.EmitTime = time.Now().UTC()
	}

	if wf, err := m.store.GetWorkflow(ctx, status.Context.WorkflowID); err == nil && wf == nil {
		_ = m.store.PutWorkflow(ctx, lwfm.NewWorkflow(status.Context.WorkflowID, status.Context.WorkflowID, ""))
	}

	if err := m.store.PutJobStatus(ctx, status); err != nil {
		return err
	}
	if m.log != nil {
		m.log.JobEvent(status.JobID(), status.Context.WorkflowID, status.Context.SiteName, string(status.Status))
	}

	if status.Status == lwfm.StatusInfo && status.NativeInfo != "" && m.proc != nil {
		if ms, err := serializer.Deserialize[lwfm.Metasheet](status.NativeInfo); err == nil && ms != nil {
			m.proc.CheckDataEvent(ctx, ms.Props, func(query map[string]string) bool {
				return matchesMetasheetQuery(ms.Props, query)
			})
		}
	}

	if m.proc != nil {
		m.proc.Wake()
	}
	return nil
}

// Cancel requests that jobID's job be canceled at whatever site it was
// last known to be running on.
func (m *Manager) Cancel(ctx context.Context, jobID string) (bool, error) {
	status, err := m.store.GetJobStatus(ctx, jobID)
	if err != nil || status == nil || status.Context == nil {
		return false, err
	}
	ok, err := m.disp.Cancel(ctx, status.Context.SiteName, jobID)
	if err != nil {
		return false, err
	}
	if ok {
		cancelled := lwfm.NewJobStatus(status.Context)
		cancelled.Status = lwfm.StatusCancelled
		cancelled.EmitTime = time.Now().UTC()
		_ = m.EmitStatus(ctx, cancelled)
	}
	return ok, nil
}

// Wait blocks until jobID reaches a terminal status, using the same
// progressive backoff as the originating implementation: sleep 1s, then
// +3s increments while the sleep is under 60s (1, 4, ..., 58, 61s), then
// +60s increments while it is under 6000s, after which it stays fixed.
// It returns early if ctx is canceled.
func (m *Manager) Wait(ctx context.Context, jobID string) (*lwfm.JobStatus, error) {
	status, err := m.store.GetJobStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, nil
	}
	if status.IsTerminal() {
		return status, nil
	}

	const (
		increment = 3 * time.Second
		wMax      = 60 * time.Second
		maxMax    = 6000 * time.Second
	)
	sleep := time.Second
	for {
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-time.After(sleep):
		}
		if sleep < wMax {
			sleep += increment
		} else if sleep < maxMax {
			sleep += wMax
		}

		status, err = m.store.GetJobStatus(ctx, jobID)
		if err != nil {
			return status, err
		}
		if status != nil && status.IsTerminal() {
			return status, nil
		}
	}
}
