package sitebridge

import (
	"context"
	"errors"
	"testing"

	"lwfm/internal/serializer"
	"lwfm/pkg/lwfm"
)

type fakeRunPillar struct {
	status *lwfm.JobStatus
	err    error
}

func (f *fakeRunPillar) Submit(ctx context.Context, defn *lwfm.JobDefn, parent *lwfm.JobContext, computeType string, runArgs map[string]string) (*lwfm.JobStatus, error) {
	return f.status, f.err
}
func (f *fakeRunPillar) GetStatus(ctx context.Context, jobID string) (*lwfm.JobStatus, error) {
	return f.status, f.err
}
func (f *fakeRunPillar) Cancel(ctx context.Context, jobID string) (bool, error) { return true, f.err }

type fakeDriver struct{ run *fakeRunPillar }

func (d *fakeDriver) Auth() lwfm.AuthPillar { return nil }
func (d *fakeDriver) Run() lwfm.RunPillar   { return d.run }
func (d *fakeDriver) Repo() lwfm.RepoPillar { return nil }
func (d *fakeDriver) Spin() lwfm.SpinPillar { return nil }

func TestSubmitInProcess(t *testing.T) {
	jc := lwfm.NewJobContext("job-1")
	want := lwfm.NewJobStatus(jc)
	want.Status = lwfm.StatusRunning

	b := New(nil)
	b.RegisterDriver("local", &fakeDriver{run: &fakeRunPillar{status: want}})

	got, err := b.Submit(context.Background(), "local", lwfm.NewShellJobDefn("echo hi"), jc, "", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.JobID() != "job-1" || got.Status != lwfm.StatusRunning {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestSubmitIsolatedDecodesResultMarker(t *testing.T) {
	jc := lwfm.NewJobContext("job-2")
	want := lwfm.NewJobStatus(jc)
	want.Status = lwfm.StatusComplete
	encoded, err := serializer.Serialize(want)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	b := New(nil)
	b.RegisterSite(lwfm.SiteDescriptor{Name: "remote-hpc", Class: "sites.hpc", Venv: "/opt/venvs/hpc"})
	b.SetExecFunc(func(ctx context.Context, venv, command string) ([]byte, error) {
		if venv != "/opt/venvs/hpc" {
			t.Fatalf("expected venv to be forwarded, got %q", venv)
		}
		return []byte("some incidental log line\n" + ResultMarker + encoded + "\n"), nil
	})

	got, err := b.Submit(context.Background(), "remote-hpc", lwfm.NewShellJobDefn("echo hi"), jc, "", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.JobID() != "job-2" || got.Status != lwfm.StatusComplete {
		t.Fatalf("unexpected decoded status: %+v", got)
	}
}

func TestSubmitIsolatedExecFailure(t *testing.T) {
	b := New(nil)
	b.RegisterSite(lwfm.SiteDescriptor{Name: "remote-hpc", Class: "sites.hpc", Venv: "/opt/venvs/hpc"})
	b.SetExecFunc(func(ctx context.Context, venv, command string) ([]byte, error) {
		return []byte("traceback..."), errors.New("exit status 1")
	})

	_, err := b.Submit(context.Background(), "remote-hpc", lwfm.NewShellJobDefn("echo hi"), lwfm.NewJobContext("job-3"), "", nil)
	if err == nil {
		t.Fatal("expected error from failed isolated invocation")
	}
}

func TestSubmitUnknownSite(t *testing.T) {
	b := New(nil)
	if _, err := b.Submit(context.Background(), "nope", lwfm.NewShellJobDefn("echo hi"), lwfm.NewJobContext("job-4"), "", nil); err == nil {
		t.Fatal("expected error for unregistered site")
	}
}
