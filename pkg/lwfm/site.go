package lwfm

import "context"

// ErrJobNotFound is the distinguished condition a Run pillar raises from
// GetStatus when the site has no record of jobId (e.g. it purges
// completed jobs); the event processor treats it as terminal.
type ErrJobNotFound struct {
	JobID string
}

func (e *ErrJobNotFound) Error() string {
	return "job not found: " + e.JobID
}

// AuthPillar authenticates the caller against a site.
type AuthPillar interface {
	Login(ctx context.Context) (bool, error)
}

// RunPillar submits, queries, and cancels jobs on a site.
type RunPillar interface {
	Submit(ctx context.Context, defn *JobDefn, parent *JobContext, computeType string, runArgs map[string]string) (*JobStatus, error)
	GetStatus(ctx context.Context, jobID string) (*JobStatus, error)
	Cancel(ctx context.Context, jobID string) (bool, error)
}

// RepoPillar moves and finds data objects.
type RepoPillar interface {
	Put(ctx context.Context, localPath, siteObjPath string) (*Metasheet, error)
	Get(ctx context.Context, siteObjPath, localPath string) (*Metasheet, error)
	Find(ctx context.Context, query map[string]string) ([]*Metasheet, error)
}

// SpinPillar manages compute-resource lifecycle at a site (provisioning,
// scaling); present for completeness, no core operation depends on it.
type SpinPillar interface {
	Spin(ctx context.Context, computeType string, count int) error
}

// Driver is the full four-pillar contract a site implementation provides.
// A site need not implement every pillar; nil pillars are treated as
// unsupported by the bridge.
type Driver interface {
	Auth() AuthPillar
	Run() RunPillar
	Repo() RepoPillar
	Spin() SpinPillar
}

// SiteDescriptor configures one named site: which driver to use, whether
// it requires isolation in a separate interpreter (Venv non-empty), and
// whether newly submitted jobs should be polled remotely. Class is the
// fallback driver class for any pillar that has no override; AuthClass,
// RunClass, RepoClass, and SpinClass let a site mix pillar
// implementations from different modules, e.g. an auth pillar shared
// across sites with a site-specific run pillar.
type SiteDescriptor struct {
	Name       string
	Class      string
	AuthClass  string
	RunClass   string
	RepoClass  string
	SpinClass  string
	Venv       string
	Remote     bool
	AuthSecret string
	Props      map[string]string
}

// Isolated reports whether this site requires out-of-process invocation.
func (d SiteDescriptor) Isolated() bool {
	return d.Venv != ""
}

// ClassFor resolves the driver class for pillar, falling back to Class
// when the pillar has no dedicated override configured.
func (d SiteDescriptor) ClassFor(pillar Pillar) string {
	var override string
	switch pillar {
	case PillarAuth:
		override = d.AuthClass
	case PillarRun:
		override = d.RunClass
	case PillarRepo:
		override = d.RepoClass
	case PillarSpin:
		override = d.SpinClass
	}
	if override != "" {
		return override
	}
	return d.Class
}
