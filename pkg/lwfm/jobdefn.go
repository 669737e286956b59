package lwfm

// EntryPointType distinguishes how JobDefn.EntryPoint should be
// interpreted by the site bridge.
type EntryPointType string

const (
	// EntryPointShell is a literal shell command string.
	EntryPointShell EntryPointType = "SHELL"
	// EntryPointSite is a dotted "pillar.method" reference resolved
	// against the target site's driver, e.g. "run.submit".
	EntryPointSite EntryPointType = "SITE"
	// EntryPointString is an opaque caller-defined string passed through
	// verbatim to the site driver.
	EntryPointString EntryPointType = "STRING"
)

// Pillar names a site driver capability.
type Pillar string

const (
	PillarAuth Pillar = "auth"
	PillarRun  Pillar = "run"
	PillarRepo Pillar = "repo"
	PillarSpin Pillar = "spin"
)

// JobDefn is an inert description of work: what to run, how to interpret
// it, and on which site/compute type.
type JobDefn struct {
	EntryPoint     string
	EntryPointType EntryPointType
	JobArgs        []string
	SiteName       string
	ComputeType    string
}

// NewShellJobDefn returns a JobDefn whose entry point is a literal shell
// command.
func NewShellJobDefn(cmd string, args ...string) *JobDefn {
	return &JobDefn{EntryPoint: cmd, EntryPointType: EntryPointShell, JobArgs: args}
}

// NewSiteJobDefn returns a JobDefn whose entry point is a dotted
// "pillar.method" reference into a site driver.
func NewSiteJobDefn(pillarMethod string, args ...string) *JobDefn {
	return &JobDefn{EntryPoint: pillarMethod, EntryPointType: EntryPointSite, JobArgs: args}
}

// RepoOp names a repo-pillar verb for log-record construction.
type RepoOp string

const (
	RepoOpPut  RepoOp = "put"
	RepoOpGet  RepoOp = "get"
	RepoOpFind RepoOp = "find"
)
