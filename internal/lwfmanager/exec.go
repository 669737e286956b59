package lwfmanager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lwfm/internal/lwfmerr"
	"lwfm/pkg/lwfm"
)

// ExecSiteEndpoint resolves defn's dotted "pillar.method" entry point
// against its target site and invokes it, optionally bracketing the call
// with PENDING/RUNNING/COMPLETE-or-FAILED status emissions. It is a
// convenience shorthand over calling the site bridge directly, letting a
// workflow author write one JobDefn instead of choosing a Dispatcher
// method by hand.
func (m *Manager) ExecSiteEndpoint(ctx context.Context, defn *lwfm.JobDefn, jctx *lwfm.JobContext, emitStatus bool) (any, error) {
	if defn == nil {
		return nil, lwfmerr.New(lwfmerr.CodeMalformedInput, "lwfmanager.ExecSiteEndpoint", fmt.Errorf("nil job definition"))
	}
	if defn.EntryPointType != lwfm.EntryPointSite {
		return nil, lwfmerr.New(lwfmerr.CodeMalformedInput, "lwfmanager.ExecSiteEndpoint", fmt.Errorf("entry point %q is not a SITE reference", defn.EntryPoint))
	}
	pillar, method, ok := strings.Cut(defn.EntryPoint, ".")
	if !ok {
		return nil, lwfmerr.New(lwfmerr.CodeMalformedInput, "lwfmanager.ExecSiteEndpoint", fmt.Errorf("invalid site endpoint format: %q", defn.EntryPoint))
	}
	if jctx == nil {
		jctx = lwfm.NewJobContext(m.GenerateID())
	}

	if emitStatus {
		pending := lwfm.NewJobStatus(jctx)
		pending.Status = lwfm.StatusPending
		pending.EmitTime = time.Now().UTC()
		_ = m.EmitStatus(ctx, pending)
	}

	result, err := m.dispatchSiteEndpoint(ctx, defn, jctx, lwfm.Pillar(pillar), method)

	if emitStatus {
		final := lwfm.NewJobStatus(jctx)
		final.EmitTime = time.Now().UTC()
		if err != nil {
			final.Status = lwfm.StatusFailed
			final.NativeInfo = err.Error()
		} else {
			final.Status = lwfm.StatusComplete
		}
		_ = m.EmitStatus(ctx, final)
	}
	return result, err
}

func (m *Manager) dispatchSiteEndpoint(ctx context.Context, defn *lwfm.JobDefn, jctx *lwfm.JobContext, pillar lwfm.Pillar, method string) (any, error) {
	switch {
	case pillar == lwfm.PillarRun && method == "submit":
		if len(defn.JobArgs) == 0 {
			return nil, lwfmerr.New(lwfmerr.CodeMalformedInput, "lwfmanager.ExecSiteEndpoint", fmt.Errorf("run.submit requires a command argument"))
		}
		child := lwfm.NewShellJobDefn(defn.JobArgs[0], defn.JobArgs[1:]...)
		return m.Submit(ctx, defn.SiteName, child, jctx, defn.ComputeType, nil)
	case pillar == lwfm.PillarRun && method == "getStatus":
		if len(defn.JobArgs) < 1 {
			return nil, lwfmerr.New(lwfmerr.CodeMalformedInput, "lwfmanager.ExecSiteEndpoint", fmt.Errorf("run.getStatus requires a job id argument"))
		}
		return m.disp.GetStatus(ctx, defn.SiteName, defn.JobArgs[0])
	case pillar == lwfm.PillarRun && method == "cancel":
		if len(defn.JobArgs) < 1 {
			return nil, lwfmerr.New(lwfmerr.CodeMalformedInput, "lwfmanager.ExecSiteEndpoint", fmt.Errorf("run.cancel requires a job id argument"))
		}
		return m.disp.Cancel(ctx, defn.SiteName, defn.JobArgs[0])
	case pillar == lwfm.PillarRepo && method == "put":
		if len(defn.JobArgs) < 2 {
			return nil, lwfmerr.New(lwfmerr.CodeMalformedInput, "lwfmanager.ExecSiteEndpoint", fmt.Errorf("repo.put requires local and site object paths"))
		}
		return m.NotatePut(ctx, defn.SiteName, defn.JobArgs[0], defn.JobArgs[1], jctx, nil)
	case pillar == lwfm.PillarRepo && method == "get":
		if len(defn.JobArgs) < 2 {
			return nil, lwfmerr.New(lwfmerr.CodeMalformedInput, "lwfmanager.ExecSiteEndpoint", fmt.Errorf("repo.get requires site object and local paths"))
		}
		return m.NotateGet(ctx, defn.SiteName, defn.JobArgs[1], defn.JobArgs[0], jctx)
	case pillar == lwfm.PillarRepo && method == "find":
		query := map[string]string{}
		for i := 0; i+1 < len(defn.JobArgs); i += 2 {
			query[defn.JobArgs[i]] = defn.JobArgs[i+1]
		}
		return m.disp.FindRemote(ctx, defn.SiteName, query)
	default:
		return nil, lwfmerr.New(lwfmerr.CodeMalformedInput, "lwfmanager.ExecSiteEndpoint", fmt.Errorf("unsupported site endpoint %s.%s", pillar, method))
	}
}
