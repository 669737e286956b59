// Package lwfmanager implements component C6: the public façade a
// workflow or site driver calls to submit work, emit and query status,
// register triggers, and notate provenance. It is the single point where
// the store, the site bridge, and the event processor are wired together.
package lwfmanager

import (
	"context"
	"os"
	"sort"
	"sync"

	"lwfm/internal/config"
	"lwfm/internal/idgen"
	"lwfm/internal/logging"
	"lwfm/pkg/lwfm"
)

// Store defines the persistence operations the façade needs, narrowed to
// this package's own call surface.
type Store interface {
	PutWorkflow(ctx context.Context, wf *lwfm.Workflow) error
	GetWorkflow(ctx context.Context, workflowID string) (*lwfm.Workflow, error)
	FindWorkflows(ctx context.Context, query map[string]string) ([]*lwfm.Workflow, error)

	PutJobStatus(ctx context.Context, status *lwfm.JobStatus) error
	GetJobStatus(ctx context.Context, jobID string) (*lwfm.JobStatus, error)
	GetAllJobStatuses(ctx context.Context, jobID string) ([]*lwfm.JobStatus, error)
	StatusesForWorkflow(ctx context.Context, workflowID string) ([]*lwfm.JobStatus, error)

	PutMetasheet(ctx context.Context, ms *lwfm.Metasheet) error
	FindMetasheet(ctx context.Context, queryRegExs map[string]string) ([]*lwfm.Metasheet, error)

	PutWfEvent(ctx context.Context, evt *lwfm.WorkflowEvent) error
	GetAllWfEvents(ctx context.Context, eventType lwfm.EventType) ([]*lwfm.WorkflowEvent, error)
	DeleteWfEvent(ctx context.Context, eventID string) (bool, error)

	PutLogging(ctx context.Context, level, workflowID, jobID, message string) error
	FindLogsByJob(ctx context.Context, jobID string) ([]string, error)
	FindLogsByWorkflow(ctx context.Context, workflowID string) ([]string, error)
	AllLogs(ctx context.Context) ([]string, error)
}

// Dispatcher is the subset of the site bridge the façade invokes
// directly (submit/status/cancel/repo verbs and site-descriptor lookup
// for the auto-installed remote poll).
type Dispatcher interface {
	Submit(ctx context.Context, siteName string, defn *lwfm.JobDefn, parent *lwfm.JobContext, computeType string, runArgs map[string]string) (*lwfm.JobStatus, error)
	GetStatus(ctx context.Context, siteName, jobID string) (*lwfm.JobStatus, error)
	Cancel(ctx context.Context, siteName, jobID string) (bool, error)
	Put(ctx context.Context, siteName, localPath, siteObjPath string) (*lwfm.Metasheet, error)
	Get(ctx context.Context, siteName, siteObjPath, localPath string) (*lwfm.Metasheet, error)
	FindRemote(ctx context.Context, siteName string, query map[string]string) ([]*lwfm.Metasheet, error)
	IsRemoteSite(siteName string) bool
}

// EventProcessor is the subset of the event processor the façade drives:
// nudge it after any state change that might satisfy a trigger, and run
// the inline metadata-match pass a freshly notated metasheet requires.
type EventProcessor interface {
	Wake()
	CheckDataEvent(ctx context.Context, props map[string]string, matches func(query map[string]string) bool)
}

// Manager is the façade. One instance is built per running service and
// shared by every request handler and debug-CLI invocation.
type Manager struct {
	store Store
	disp  Dispatcher
	proc  EventProcessor
	cfg   *config.Config
	log   *logging.Logger

	mu      sync.Mutex
	context *lwfm.JobContext
}

// New builds a Manager over the given collaborators.
func New(store Store, disp Dispatcher, proc EventProcessor, cfg *config.Config, log *logging.Logger) *Manager {
	return &Manager{store: store, disp: disp, proc: proc, cfg: cfg, log: log}
}

// GenerateID returns a fresh unique identifier, suitable for a job id, a
// workflow id, or any other caller purpose.
func (m *Manager) GenerateID() string {
	return idgen.New()
}

// SetContext pins the ambient job context used by calls that accept no
// explicit context, such as NotatePut/NotateGet.
func (m *Manager) SetContext(ctx *lwfm.JobContext) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.context = ctx
}

// GetContext returns the pinned ambient context, falling back to the
// job id carried in the environment (per config.JobIDEnvVar) if none has
// been set explicitly.
func (m *Manager) GetContext(ctx context.Context) *lwfm.JobContext {
	m.mu.Lock()
	pinned := m.context
	m.mu.Unlock()
	if pinned != nil {
		return pinned
	}

	envVar := config.JobIDEnvVar
	if m.cfg != nil && m.cfg.JobIDEnvVar != "" {
		envVar = m.cfg.JobIDEnvVar
	}
	jobID, ok := os.LookupEnv(envVar)
	if !ok || jobID == "" {
		return nil
	}
	if status, err := m.store.GetJobStatus(ctx, jobID); err == nil && status != nil {
		return status.Context
	}
	return lwfm.NewJobContext(jobID)
}

// VerifySiteCredential reports whether candidate matches siteName's
// configured bearer secret, for authenticating an inbound status
// callback from a site that pushes rather than waits to be polled. A
// Manager built without a config (as in tests) rejects every
// credential.
func (m *Manager) VerifySiteCredential(siteName, candidate string) bool {
	if m.cfg == nil {
		return false
	}
	return m.cfg.VerifySiteSecret(siteName, candidate)
}

// PutWorkflow persists wf and returns the stored copy.
func (m *Manager) PutWorkflow(ctx context.Context, wf *lwfm.Workflow) (*lwfm.Workflow, error) {
	if err := m.store.PutWorkflow(ctx, wf); err != nil {
		return nil, err
	}
	return m.store.GetWorkflow(ctx, wf.WorkflowID)
}

// GetWorkflow returns the workflow record for workflowID, or nil if none
// exists.
func (m *Manager) GetWorkflow(ctx context.Context, workflowID string) (*lwfm.Workflow, error) {
	return m.store.GetWorkflow(ctx, workflowID)
}

// GetAllWorkflows returns every stored workflow.
func (m *Manager) GetAllWorkflows(ctx context.Context) ([]*lwfm.Workflow, error) {
	return m.store.FindWorkflows(ctx, nil)
}

// FindWorkflows returns every workflow whose properties satisfy the
// AND-combined wildcard query.
func (m *Manager) FindWorkflows(ctx context.Context, query map[string]string) ([]*lwfm.Workflow, error) {
	return m.store.FindWorkflows(ctx, query)
}

// GetStatus returns the most recent status recorded for jobID.
func (m *Manager) GetStatus(ctx context.Context, jobID string) (*lwfm.JobStatus, error) {
	return m.store.GetJobStatus(ctx, jobID)
}

// GetAllStatus returns every status ever recorded for jobID, newest
// first.
func (m *Manager) GetAllStatus(ctx context.Context, jobID string) ([]*lwfm.JobStatus, error) {
	return m.store.GetAllJobStatuses(ctx, jobID)
}

// GetAllJobStatusesForWorkflow returns every status ever recorded for any
// job belonging to workflowID, newest first, unfiltered.
func (m *Manager) GetAllJobStatusesForWorkflow(ctx context.Context, workflowID string) ([]*lwfm.JobStatus, error) {
	return m.store.StatusesForWorkflow(ctx, workflowID)
}

// GetJobStatusesForWorkflow collapses the workflow's status history down
// to one representative status per job: its terminal status if it ever
// reached one, otherwise its newest status. This is the richer
// aggregation rule dumpWorkflow relies on, preferring a job's outcome
// over a later but non-terminal observation (e.g. a stray INFO emitted
// after COMPLETE).
func (m *Manager) GetJobStatusesForWorkflow(ctx context.Context, workflowID string) ([]*lwfm.JobStatus, error) {
	all, err := m.store.StatusesForWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	best := map[string]*lwfm.JobStatus{}
	for _, st := range all {
		jobID := st.JobID()
		cur, ok := best[jobID]
		if !ok {
			best[jobID] = st
			continue
		}
		if cur.IsTerminal() {
			continue
		}
		if st.IsTerminal() || st.EmitTime.After(cur.EmitTime) {
			best[jobID] = st
		}
	}

	out := make([]*lwfm.JobStatus, 0, len(best))
	for _, st := range best {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmitTime.After(out[j].EmitTime) })
	return out, nil
}

// WorkflowDump is the rendered shape dumpWorkflow returns: the workflow
// record, the aggregated per-job status, and every metasheet notated
// under it.
type WorkflowDump struct {
	Workflow   *lwfm.Workflow
	Jobs       []*lwfm.JobStatus
	Metasheets []*lwfm.Metasheet
}

// DumpWorkflow assembles a WorkflowDump for workflowID, or nil if the
// workflow is not known.
func (m *Manager) DumpWorkflow(ctx context.Context, workflowID string) (*WorkflowDump, error) {
	wf, err := m.store.GetWorkflow(ctx, workflowID)
	if err != nil || wf == nil {
		return nil, err
	}
	jobs, err := m.GetJobStatusesForWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	sheets, err := m.store.FindMetasheet(ctx, map[string]string{lwfm.PropWorkflowID: workflowID})
	if err != nil {
		return nil, err
	}
	return &WorkflowDump{Workflow: wf, Jobs: presentJobStatuses(jobs), Metasheets: sheets}, nil
}

// presentJobStatuses applies the dashboard-only "INFO-only implies
// success" rule: a job whose aggregated status is INFO (meaning it
// never reached a terminal status) is displayed as COMPLETE. This is
// presentational only — it operates on a copy, never on what
// GetJobStatusesForWorkflow returns to an event-processor caller, since
// the underlying INFO status still matters for data-event evaluation.
func presentJobStatuses(jobs []*lwfm.JobStatus) []*lwfm.JobStatus {
	out := make([]*lwfm.JobStatus, len(jobs))
	for i, st := range jobs {
		if st.Status != lwfm.StatusInfo {
			out[i] = st
			continue
		}
		display := *st
		display.Status = lwfm.StatusComplete
		out[i] = &display
	}
	return out
}
