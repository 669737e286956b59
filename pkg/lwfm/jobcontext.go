package lwfm

// JobContext is the runtime execution identity of a single job instance.
// jobId is immutable once assigned; workflowId is inherited from a parent
// context on construction, or self-rooted when there is no parent.
type JobContext struct {
	JobID        string
	NativeID     string
	ParentJobID  string
	OriginJobID  string
	WorkflowID   string
	Name         string
	SiteName     string
	ComputeType  string
	Group        string
	User         string
}

// NewJobContext returns a seminal JobContext: its own originator, no
// parent, workflowId equal to its own jobId until an emit inherits a
// different one.
func NewJobContext(jobID string) *JobContext {
	return &JobContext{
		JobID:       jobID,
		NativeID:    jobID,
		OriginJobID: jobID,
		WorkflowID:  jobID,
		Name:        jobID,
		SiteName:    "local",
	}
}

// NewChildJobContext returns a new JobContext that is a child of parent:
// same workflow, group, user, and site by default; a fresh jobId and
// parentJobId set to parent's jobId, per the inheritance rule in §4.3/§4.4
// of the trigger-firing design (workflowId always comes from the parent's
// context, never from the triggering event).
func NewChildJobContext(jobID string, parent *JobContext) *JobContext {
	c := NewJobContext(jobID)
	if parent == nil {
		return c
	}
	c.ParentJobID = parent.JobID
	c.OriginJobID = parent.OriginJobID
	c.WorkflowID = parent.WorkflowID
	c.Group = parent.Group
	c.User = parent.User
	c.SiteName = parent.SiteName
	return c
}
