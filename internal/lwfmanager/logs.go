package lwfmanager

import "context"

// GetLogsByWorkflow returns every log line recorded under workflowID.
func (m *Manager) GetLogsByWorkflow(ctx context.Context, workflowID string) ([]string, error) {
	return m.store.FindLogsByWorkflow(ctx, workflowID)
}

// GetLogsByJob returns every log line recorded under jobID.
func (m *Manager) GetLogsByJob(ctx context.Context, jobID string) ([]string, error) {
	return m.store.FindLogsByJob(ctx, jobID)
}

// GetAllLogs returns every log line the store holds.
func (m *Manager) GetAllLogs(ctx context.Context) ([]string, error) {
	return m.store.AllLogs(ctx)
}
