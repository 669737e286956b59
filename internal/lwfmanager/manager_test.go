package lwfmanager

import (
	"context"
	"sync"
	"testing"
	"time"

	"lwfm/internal/serializer"
	"lwfm/pkg/lwfm"
)

type fakeStore struct {
	mu         sync.Mutex
	workflows  map[string]*lwfm.Workflow
	statuses   map[string][]*lwfm.JobStatus
	metasheets []*lwfm.Metasheet
	events     map[string]*lwfm.WorkflowEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		workflows: map[string]*lwfm.Workflow{},
		statuses:  map[string][]*lwfm.JobStatus{},
		events:    map[string]*lwfm.WorkflowEvent{},
	}
}

func (f *fakeStore) PutWorkflow(ctx context.Context, wf *lwfm.Workflow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workflows[wf.WorkflowID] = wf
	return nil
}
func (f *fakeStore) GetWorkflow(ctx context.Context, id string) (*lwfm.Workflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.workflows[id], nil
}
func (f *fakeStore) FindWorkflows(ctx context.Context, query map[string]string) ([]*lwfm.Workflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*lwfm.Workflow
	for _, wf := range f.workflows {
		out = append(out, wf)
	}
	return out, nil
}
func (f *fakeStore) PutJobStatus(ctx context.Context, st *lwfm.JobStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[st.JobID()] = append(f.statuses[st.JobID()], st)
	return nil
}
func (f *fakeStore) GetJobStatus(ctx context.Context, jobID string) (*lwfm.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hist := f.statuses[jobID]
	if len(hist) == 0 {
		return nil, nil
	}
	return hist[len(hist)-1], nil
}
func (f *fakeStore) GetAllJobStatuses(ctx context.Context, jobID string) ([]*lwfm.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[jobID], nil
}
func (f *fakeStore) StatusesForWorkflow(ctx context.Context, workflowID string) ([]*lwfm.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*lwfm.JobStatus
	for _, hist := range f.statuses {
		for _, st := range hist {
			if st.Context != nil && st.Context.WorkflowID == workflowID {
				out = append(out, st)
			}
		}
	}
	return out, nil
}
func (f *fakeStore) PutMetasheet(ctx context.Context, ms *lwfm.Metasheet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metasheets = append(f.metasheets, ms)
	return nil
}
func (f *fakeStore) FindMetasheet(ctx context.Context, query map[string]string) ([]*lwfm.Metasheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*lwfm.Metasheet
	for _, ms := range f.metasheets {
		if matchesMetasheetQuery(ms.Props, query) {
			out = append(out, ms)
		}
	}
	return out, nil
}
func (f *fakeStore) PutWfEvent(ctx context.Context, evt *lwfm.WorkflowEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[evt.EventID] = evt
	return nil
}
func (f *fakeStore) GetAllWfEvents(ctx context.Context, t lwfm.EventType) ([]*lwfm.WorkflowEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*lwfm.WorkflowEvent
	for _, e := range f.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeStore) DeleteWfEvent(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[id]; !ok {
		return false, nil
	}
	delete(f.events, id)
	return true, nil
}
func (f *fakeStore) PutLogging(ctx context.Context, level, workflowID, jobID, message string) error {
	return nil
}
func (f *fakeStore) FindLogsByJob(ctx context.Context, jobID string) ([]string, error) { return nil, nil }
func (f *fakeStore) FindLogsByWorkflow(ctx context.Context, workflowID string) ([]string, error) {
	return nil, nil
}
func (f *fakeStore) AllLogs(ctx context.Context) ([]string, error) { return nil, nil }

type fakeDispatcher struct {
	submitStatus *lwfm.JobStatus
	submitErr    error
	remote       map[string]bool
}

func (f *fakeDispatcher) Submit(ctx context.Context, siteName string, defn *lwfm.JobDefn, parent *lwfm.JobContext, computeType string, runArgs map[string]string) (*lwfm.JobStatus, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	st := lwfm.NewJobStatus(parent)
	st.Status = lwfm.StatusRunning
	if f.submitStatus != nil {
		st.Status = f.submitStatus.Status
		st.Context.NativeID = f.submitStatus.Context.NativeID
	}
	return st, nil
}
func (f *fakeDispatcher) GetStatus(ctx context.Context, siteName, jobID string) (*lwfm.JobStatus, error) {
	return nil, nil
}
func (f *fakeDispatcher) Cancel(ctx context.Context, siteName, jobID string) (bool, error) {
	return true, nil
}
func (f *fakeDispatcher) Put(ctx context.Context, siteName, localPath, siteObjPath string) (*lwfm.Metasheet, error) {
	return nil, nil
}
func (f *fakeDispatcher) Get(ctx context.Context, siteName, siteObjPath, localPath string) (*lwfm.Metasheet, error) {
	return nil, nil
}
func (f *fakeDispatcher) FindRemote(ctx context.Context, siteName string, query map[string]string) ([]*lwfm.Metasheet, error) {
	return nil, nil
}
func (f *fakeDispatcher) IsRemoteSite(siteName string) bool {
	return f.remote != nil && f.remote[siteName]
}

type fakeProcessor struct {
	wakeCount               int
	checkDataEventCalls     int
	lastCheckDataEventProps map[string]string
}

func (f *fakeProcessor) Wake() { f.wakeCount++ }
func (f *fakeProcessor) CheckDataEvent(ctx context.Context, props map[string]string, matches func(query map[string]string) bool) {
	f.checkDataEventCalls++
	f.lastCheckDataEventProps = props
}

func TestSubmitPersistsPendingThenSiteStatus(t *testing.T) {
	store := newFakeStore()
	disp := &fakeDispatcher{}
	proc := &fakeProcessor{}
	mgr := New(store, disp, proc, nil, nil)

	status, err := mgr.Submit(context.Background(), "local", lwfm.NewShellJobDefn("echo hi"), nil, "", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	hist, _ := store.GetAllJobStatuses(context.Background(), status.JobID())
	if len(hist) != 2 {
		t.Fatalf("expected PENDING then RUNNING recorded, got %d", len(hist))
	}
	if hist[0].Status != lwfm.StatusPending {
		t.Fatalf("expected first status PENDING, got %s", hist[0].Status)
	}
	if proc.wakeCount == 0 {
		t.Fatal("expected EmitStatus to wake the event processor")
	}
}

func TestSubmitToRemoteSiteInstallsRemoteJobEvent(t *testing.T) {
	store := newFakeStore()
	origin := lwfm.NewJobContext("origin")
	disp := &fakeDispatcher{
		remote: map[string]bool{"hpc": true},
		submitStatus: func() *lwfm.JobStatus {
			st := lwfm.NewJobStatus(origin)
			st.Status = lwfm.StatusRunning
			st.Context.NativeID = "native-42"
			return st
		}(),
	}
	mgr := New(store, disp, &fakeProcessor{}, nil, nil)

	_, err := mgr.Submit(context.Background(), "hpc", lwfm.NewShellJobDefn("echo hi"), nil, "", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	remoteEvents, _ := store.GetAllWfEvents(context.Background(), lwfm.EventTypeRemote)
	if len(remoteEvents) != 1 {
		t.Fatalf("expected a RemoteJobEvent to be installed, got %d", len(remoteEvents))
	}
}

func TestNotatePutThenFindByJobID(t *testing.T) {
	store := newFakeStore()
	mgr := New(store, &fakeDispatcher{}, &fakeProcessor{}, nil, nil)
	jctx := lwfm.NewJobContext("job-1")

	if _, err := mgr.NotatePut(context.Background(), "local", "/tmp/a.txt", "repo:/a.txt", jctx, nil); err != nil {
		t.Fatalf("NotatePut: %v", err)
	}
	found, err := mgr.Find(context.Background(), map[string]string{lwfm.PropJobID: "job-1"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 metasheet, got %d", len(found))
	}

	hist, _ := store.GetAllJobStatuses(context.Background(), "job-1")
	if len(hist) != 1 || hist[0].Status != lwfm.StatusInfo {
		t.Fatalf("expected a single INFO status from notate, got %+v", hist)
	}
}

func TestWaitReturnsImmediatelyOnTerminalStatus(t *testing.T) {
	store := newFakeStore()
	mgr := New(store, &fakeDispatcher{}, &fakeProcessor{}, nil, nil)
	jctx := lwfm.NewJobContext("job-done")
	done := lwfm.NewJobStatus(jctx)
	done.Status = lwfm.StatusComplete
	store.PutJobStatus(context.Background(), done)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := mgr.Wait(ctx, "job-done")
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got.Status != lwfm.StatusComplete {
		t.Fatalf("expected COMPLETE, got %s", got.Status)
	}
}

func TestGetJobStatusesForWorkflowPrefersTerminal(t *testing.T) {
	store := newFakeStore()
	mgr := New(store, &fakeDispatcher{}, &fakeProcessor{}, nil, nil)
	jctx := lwfm.NewJobContext("job-a")
	jctx.WorkflowID = "wf-1"

	running := lwfm.NewJobStatus(jctx)
	running.Status = lwfm.StatusRunning
	running.EmitTime = time.Now().Add(-time.Minute)
	store.PutJobStatus(context.Background(), running)

	complete := lwfm.NewJobStatus(jctx)
	complete.Status = lwfm.StatusComplete
	complete.EmitTime = time.Now().Add(-30 * time.Second)
	store.PutJobStatus(context.Background(), complete)

	// A stray INFO arrives after COMPLETE; the terminal status must win.
	info := lwfm.NewJobStatus(jctx)
	info.Status = lwfm.StatusInfo
	info.EmitTime = time.Now()
	store.PutJobStatus(context.Background(), info)

	jobs, err := mgr.GetJobStatusesForWorkflow(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("GetJobStatusesForWorkflow: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != lwfm.StatusComplete {
		t.Fatalf("expected the terminal COMPLETE status to be preferred, got %+v", jobs)
	}
}

func TestDumpWorkflowPresentsInfoOnlyJobAsComplete(t *testing.T) {
	store := newFakeStore()
	mgr := New(store, &fakeDispatcher{}, &fakeProcessor{}, nil, nil)
	jctx := lwfm.NewJobContext("job-info-only")
	jctx.WorkflowID = "wf-info"
	store.PutWorkflow(context.Background(), lwfm.NewWorkflow("wf-info", "wf-info", ""))

	info := lwfm.NewJobStatus(jctx)
	info.Status = lwfm.StatusInfo
	info.EmitTime = time.Now()
	store.PutJobStatus(context.Background(), info)

	dump, err := mgr.DumpWorkflow(context.Background(), "wf-info")
	if err != nil {
		t.Fatalf("DumpWorkflow: %v", err)
	}
	if len(dump.Jobs) != 1 || dump.Jobs[0].Status != lwfm.StatusComplete {
		t.Fatalf("expected an INFO-only job to be presented as COMPLETE, got %+v", dump.Jobs)
	}

	// The underlying aggregation used for event-processor decisions must
	// still report INFO, not the dashboard-only COMPLETE substitution.
	raw, err := mgr.GetJobStatusesForWorkflow(context.Background(), "wf-info")
	if err != nil {
		t.Fatalf("GetJobStatusesForWorkflow: %v", err)
	}
	if len(raw) != 1 || raw[0].Status != lwfm.StatusInfo {
		t.Fatalf("expected the raw aggregation to keep INFO, got %+v", raw)
	}
}

// TestEmitStatusEvaluatesDataEventOnInfo confirms EmitStatus itself, not
// just the notate() call path, runs DATA-trigger evaluation against an
// INFO status's carried metasheet. This is the path an authenticated
// remote-site status callback exercises directly, bypassing notate().
func TestEmitStatusEvaluatesDataEventOnInfo(t *testing.T) {
	store := newFakeStore()
	proc := &fakeProcessor{}
	mgr := New(store, &fakeDispatcher{}, proc, nil, nil)

	ms := lwfm.NewMetasheet("sheet-1", "job-remote", "site", "/local", "remote/obj",
		map[string]string{"case": "final"})
	encoded, err := serializer.Serialize(ms)
	if err != nil {
		t.Fatalf("serializer.Serialize: %v", err)
	}

	jctx := lwfm.NewJobContext("job-remote")
	info := lwfm.NewJobStatus(jctx)
	info.Status = lwfm.StatusInfo
	info.NativeInfo = encoded

	if err := mgr.EmitStatus(context.Background(), info); err != nil {
		t.Fatalf("EmitStatus: %v", err)
	}
	if proc.checkDataEventCalls != 1 {
		t.Fatalf("expected EmitStatus to run exactly one CheckDataEvent pass, got %d", proc.checkDataEventCalls)
	}
	if proc.lastCheckDataEventProps["case"] != "final" {
		t.Fatalf("expected CheckDataEvent to see the carried metasheet's props, got %+v", proc.lastCheckDataEventProps)
	}
}
