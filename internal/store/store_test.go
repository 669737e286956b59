package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"lwfm/pkg/lwfm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	s, err := Open(ctx, dbPath, nil)
	if err != nil {
		t.Fatalf("Open store failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestJobStatusRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	jc := lwfm.NewJobContext("job-1")
	jc.WorkflowID = "wf-1"
	st := lwfm.NewJobStatus(jc)
	st.Status = lwfm.StatusRunning
	st.EmitTime = time.Now().UTC()

	if err := s.PutJobStatus(ctx, st); err != nil {
		t.Fatalf("PutJobStatus: %v", err)
	}

	got, err := s.GetJobStatus(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJobStatus: %v", err)
	}
	if got == nil || got.Status != lwfm.StatusRunning || got.JobID() != "job-1" {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestJobStatusHistoryOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	jc := lwfm.NewJobContext("job-2")
	for _, v := range []lwfm.JobStatusValue{lwfm.StatusReady, lwfm.StatusPending, lwfm.StatusRunning, lwfm.StatusComplete} {
		st := lwfm.NewJobStatus(jc)
		st.Status = v
		if err := s.PutJobStatus(ctx, st); err != nil {
			t.Fatalf("PutJobStatus(%s): %v", v, err)
		}
	}

	history, err := s.GetAllJobStatuses(ctx, "job-2")
	if err != nil {
		t.Fatalf("GetAllJobStatuses: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 statuses, got %d", len(history))
	}
	if history[0].Status != lwfm.StatusComplete {
		t.Fatalf("expected newest-first, got %s first", history[0].Status)
	}
}

func TestMetasheetFindWildcard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cases := []string{"put1", "get1", "other"}
	for i, c := range cases {
		ms := lwfm.NewMetasheet("sheet-"+string(rune('a'+i)), "job-x", "local", "/tmp/f", "site:/f",
			map[string]string{"case": c})
		if err := s.PutMetasheet(ctx, ms); err != nil {
			t.Fatalf("PutMetasheet: %v", err)
		}
	}

	found, err := s.FindMetasheet(ctx, map[string]string{"case": "*1"})
	if err != nil {
		t.Fatalf("FindMetasheet: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(found))
	}
}

func TestMetasheetFindAbsentKeyFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ms := lwfm.NewMetasheet("sheet-1", "job-y", "local", "/tmp/f", "site:/f", map[string]string{"sampleId": "X7"})
	if err := s.PutMetasheet(ctx, ms); err != nil {
		t.Fatalf("PutMetasheet: %v", err)
	}

	found, err := s.FindMetasheet(ctx, map[string]string{"sampleId": "X7", "missingKey": ".*"})
	if err != nil {
		t.Fatalf("FindMetasheet: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("expected no matches when a query key is absent from all metasheets, got %d", len(found))
	}
}

func TestWorkflowPutGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	wf := lwfm.NewWorkflow("wf-42", "demo", "a demo workflow")
	wf.Props["owner"] = "alice"
	if err := s.PutWorkflow(ctx, wf); err != nil {
		t.Fatalf("PutWorkflow: %v", err)
	}

	got, err := s.GetWorkflow(ctx, "wf-42")
	if err != nil {
		t.Fatalf("GetWorkflow: %v", err)
	}
	if got == nil || got.Name != "demo" || got.Props["owner"] != "alice" {
		t.Fatalf("unexpected workflow: %+v", got)
	}
}

func TestEventPutFindDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	evt := lwfm.NewJobEvent("evt-1", "job-a", lwfm.StatusComplete,
		lwfm.NewShellJobDefn("echo B"), "local", "job-b", lwfm.NewJobContext("job-a"))
	if err := s.PutWfEvent(ctx, evt); err != nil {
		t.Fatalf("PutWfEvent: %v", err)
	}

	all, err := s.GetAllWfEvents(ctx, lwfm.EventTypeJob)
	if err != nil {
		t.Fatalf("GetAllWfEvents: %v", err)
	}
	if len(all) != 1 || all[0].EventID != "evt-1" {
		t.Fatalf("unexpected events: %+v", all)
	}

	if deleted, err := s.DeleteWfEvent(ctx, "evt-1"); err != nil || !deleted {
		t.Fatalf("DeleteWfEvent: deleted=%v err=%v", deleted, err)
	}
	if deleted, err := s.DeleteWfEvent(ctx, "evt-1"); err != nil || deleted {
		t.Fatalf("expected a second delete of the same event to report deleted=false, got %v err=%v", deleted, err)
	}
	all, err = s.GetAllWfEvents(ctx, lwfm.EventTypeJob)
	if err != nil {
		t.Fatalf("GetAllWfEvents after delete: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected event store empty after delete, got %d", len(all))
	}
}

func TestLoggingFindByJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutLogging(ctx, "INFO", "wf-1", "job-1", "started"); err != nil {
		t.Fatalf("PutLogging: %v", err)
	}
	if err := s.PutLogging(ctx, "ERROR", "wf-1", "job-1", "failed"); err != nil {
		t.Fatalf("PutLogging: %v", err)
	}

	lines, err := s.FindLogsByJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("FindLogsByJob: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
}
