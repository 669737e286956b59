// Package sitebridge implements component C5: uniform invocation of site
// driver methods whether the driver lives in this process or in an
// isolated dependency closure spawned as a child interpreter.
package sitebridge

import (
	"context"
	"fmt"

	"lwfm/internal/lwfmerr"
	"lwfm/internal/logging"
	"lwfm/pkg/lwfm"
)

// ResultMarker prefixes the line of child stdout carrying the serialized
// return value, so mixed logging output and a return value can share one
// stream.
const ResultMarker = "RESULT_MARKER: "

// ExecFunc runs an isolated invocation and returns its combined
// stdout/stderr; overridable in tests.
type ExecFunc func(ctx context.Context, venv string, command string) ([]byte, error)

// Bridge invokes site-driver methods either in-process (direct call on a
// registered lwfm.Driver) or out-of-process (isolated venv), per §4.3.
type Bridge struct {
	drivers map[string]lwfm.Driver
	sites   map[string]lwfm.SiteDescriptor
	exec    ExecFunc
	log     *logging.Logger
}

// New returns a Bridge with no registered sites.
func New(log *logging.Logger) *Bridge {
	return &Bridge{
		drivers: map[string]lwfm.Driver{},
		sites:   map[string]lwfm.SiteDescriptor{},
		exec:    defaultExec,
		log:     log,
	}
}

// RegisterDriver associates an in-process driver implementation with a
// site name, for sites whose descriptor carries no venv.
func (b *Bridge) RegisterDriver(siteName string, d lwfm.Driver) {
	b.drivers[siteName] = d
}

// RegisterSite installs a site descriptor; Isolated() on it determines
// whether Submit, GetStatus, Put and Get spawn a child interpreter.
func (b *Bridge) RegisterSite(desc lwfm.SiteDescriptor) {
	b.sites[desc.Name] = desc
}

// SetExecFunc overrides the isolated-invocation exec hook; used by tests.
func (b *Bridge) SetExecFunc(fn ExecFunc) {
	b.exec = fn
}

// IsRemoteSite reports whether siteName's descriptor is flagged remote,
// meaning jobs submitted there need a RemoteJobEvent poll rather than
// relying on the site to push status back.
func (b *Bridge) IsRemoteSite(siteName string) bool {
	desc, ok := b.sites[siteName]
	return ok && desc.Remote
}

// Submit invokes the run pillar's Submit method on siteName, choosing
// in-process or isolated invocation per the site's descriptor.
func (b *Bridge) Submit(ctx context.Context, siteName string, defn *lwfm.JobDefn, parent *lwfm.JobContext, computeType string, runArgs map[string]string) (*lwfm.JobStatus, error) {
	desc, known := b.sites[siteName]
	if !known || !desc.Isolated() {
		driver, ok := b.drivers[siteName]
		if !ok || driver.Run() == nil {
			return nil, lwfmerr.New(lwfmerr.CodeDispatch, "sitebridge.Submit", fmt.Errorf("no run pillar registered for site %q", siteName))
		}
		return driver.Run().Submit(ctx, defn, parent, computeType, runArgs)
	}
	return b.invokeIsolatedSubmit(ctx, desc, defn, parent, computeType, runArgs)
}

// GetStatus invokes the run pillar's GetStatus method on siteName.
func (b *Bridge) GetStatus(ctx context.Context, siteName, jobID string) (*lwfm.JobStatus, error) {
	desc, known := b.sites[siteName]
	if !known || !desc.Isolated() {
		driver, ok := b.drivers[siteName]
		if !ok || driver.Run() == nil {
			return nil, lwfmerr.New(lwfmerr.CodeDispatch, "sitebridge.GetStatus", fmt.Errorf("no run pillar registered for site %q", siteName))
		}
		return driver.Run().GetStatus(ctx, jobID)
	}
	return b.invokeIsolatedGetStatus(ctx, desc, jobID)
}

// Cancel invokes the run pillar's Cancel method on siteName.
func (b *Bridge) Cancel(ctx context.Context, siteName, jobID string) (bool, error) {
	driver, ok := b.drivers[siteName]
	if !ok || driver.Run() == nil {
		return false, lwfmerr.New(lwfmerr.CodeDispatch, "sitebridge.Cancel", fmt.Errorf("no run pillar registered for site %q", siteName))
	}
	return driver.Run().Cancel(ctx, jobID)
}

// Put invokes the repo pillar's Put method on siteName.
func (b *Bridge) Put(ctx context.Context, siteName, localPath, siteObjPath string) (*lwfm.Metasheet, error) {
	desc, known := b.sites[siteName]
	if !known || !desc.Isolated() {
		driver, ok := b.drivers[siteName]
		if !ok || driver.Repo() == nil {
			return nil, lwfmerr.New(lwfmerr.CodeDispatch, "sitebridge.Put", fmt.Errorf("no repo pillar registered for site %q", siteName))
		}
		return driver.Repo().Put(ctx, localPath, siteObjPath)
	}
	out, err := b.runIsolated(ctx, desc, lwfm.PillarRepo, "put", map[string]any{"localPath": localPath, "siteObjPath": siteObjPath})
	if err != nil {
		return nil, err
	}
	return decodeResult[lwfm.Metasheet](out, "sitebridge.Put")
}

// Get invokes the repo pillar's Get method on siteName.
func (b *Bridge) Get(ctx context.Context, siteName, siteObjPath, localPath string) (*lwfm.Metasheet, error) {
	desc, known := b.sites[siteName]
	if !known || !desc.Isolated() {
		driver, ok := b.drivers[siteName]
		if !ok || driver.Repo() == nil {
			return nil, lwfmerr.New(lwfmerr.CodeDispatch, "sitebridge.Get", fmt.Errorf("no repo pillar registered for site %q", siteName))
		}
		return driver.Repo().Get(ctx, siteObjPath, localPath)
	}
	out, err := b.runIsolated(ctx, desc, lwfm.PillarRepo, "get", map[string]any{"siteObjPath": siteObjPath, "localPath": localPath})
	if err != nil {
		return nil, err
	}
	return decodeResult[lwfm.Metasheet](out, "sitebridge.Get")
}

// FindRemote invokes the repo pillar's Find method on siteName, for
// querying a remote site's own catalog rather than the local metasheet
// store.
func (b *Bridge) FindRemote(ctx context.Context, siteName string, query map[string]string) ([]*lwfm.Metasheet, error) {
	driver, ok := b.drivers[siteName]
	if !ok || driver.Repo() == nil {
		return nil, lwfmerr.New(lwfmerr.CodeDispatch, "sitebridge.FindRemote", fmt.Errorf("no repo pillar registered for site %q", siteName))
	}
	return driver.Repo().Find(ctx, query)
}
