package lwfmanager

import (
	"context"

	"lwfm/pkg/lwfm"
)

// SetEvent registers a trigger and returns the seminal READY status of
// the job it will eventually fire, so a caller can start tracking the
// future job's id immediately.
func (m *Manager) SetEvent(ctx context.Context, evt *lwfm.WorkflowEvent) (*lwfm.JobStatus, error) {
	if err := m.store.PutWfEvent(ctx, evt); err != nil {
		return nil, err
	}
	if m.proc != nil {
		m.proc.Wake()
	}
	if evt.Type == lwfm.EventTypeRemote {
		return nil, nil
	}

	parent := evt.OriginContext
	child := lwfm.NewChildJobContext(evt.FireJobID, parent)
	if evt.RuleJobID != "" {
		child.ParentJobID = evt.RuleJobID
	}
	ready := lwfm.NewJobStatus(child)
	ready.Status = lwfm.StatusReady
	if err := m.store.PutJobStatus(ctx, ready); err != nil {
		return nil, err
	}
	return ready, nil
}

// UnsetEvent removes a registered trigger before it has a chance to
// fire.
func (m *Manager) UnsetEvent(ctx context.Context, eventID string) error {
	_, err := m.store.DeleteWfEvent(ctx, eventID)
	return err
}

// GetActiveWfEvents returns every still-registered trigger across all
// three event types.
func (m *Manager) GetActiveWfEvents(ctx context.Context) ([]*lwfm.WorkflowEvent, error) {
	var out []*lwfm.WorkflowEvent
	for _, t := range []lwfm.EventType{lwfm.EventTypeJob, lwfm.EventTypeData, lwfm.EventTypeRemote} {
		evts, err := m.store.GetAllWfEvents(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, evts...)
	}
	return out, nil
}
