package lwfm

// EventType tags the WorkflowEvent variant stored in the EventStore
// bucket ("run.event.{JOB|DATA|REMOTE}").
type EventType string

const (
	EventTypeJob    EventType = "JOB"
	EventTypeData   EventType = "DATA"
	EventTypeRemote EventType = "REMOTE"
)

// WorkflowEvent is a registered trigger: a tagged union over JobEvent,
// MetadataEvent, and RemoteJobEvent. Exactly one of the type-specific
// blocks below is populated, selected by Type.
type WorkflowEvent struct {
	EventID string
	Type    EventType

	// Common to all variants: what fires and where, and the pre-allocated
	// id of the job that fire will produce.
	FireDefn *JobDefn
	FireSite string
	FireJobID string

	// Context of whatever triggered registration of this event (the job
	// being watched, or the job that requested a data watch); used for
	// workflow/parent inheritance when the trigger is satisfied.
	OriginContext *JobContext

	// JobEvent fields.
	RuleJobID string
	RuleStatus JobStatusValue

	// MetadataEvent fields: AND-combined field -> regex clauses.
	QueryRegExs map[string]string

	// RemoteJobEvent fields: the remote job being polled and the site's
	// native status map, so polling results can be translated.
	RemoteJobID  string
	RemoteSite   string
}

// NewJobEvent returns a JobEvent-variant WorkflowEvent.
func NewJobEvent(eventID, ruleJobID string, ruleStatus JobStatusValue, fireDefn *JobDefn, fireSite, fireJobID string, origin *JobContext) *WorkflowEvent {
	return &WorkflowEvent{
		EventID:       eventID,
		Type:          EventTypeJob,
		FireDefn:      fireDefn,
		FireSite:      fireSite,
		FireJobID:     fireJobID,
		OriginContext: origin,
		RuleJobID:     ruleJobID,
		RuleStatus:    ruleStatus,
	}
}

// NewMetadataEvent returns a MetadataEvent-variant WorkflowEvent.
func NewMetadataEvent(eventID string, query map[string]string, fireDefn *JobDefn, fireSite, fireJobID string, origin *JobContext) *WorkflowEvent {
	return &WorkflowEvent{
		EventID:       eventID,
		Type:          EventTypeData,
		FireDefn:      fireDefn,
		FireSite:      fireSite,
		FireJobID:     fireJobID,
		OriginContext: origin,
		QueryRegExs:   query,
	}
}

// NewRemoteJobEvent returns a RemoteJobEvent-variant WorkflowEvent,
// installed automatically when a job is submitted to a site flagged
// remote=true.
func NewRemoteJobEvent(eventID, remoteJobID, remoteSite string, origin *JobContext) *WorkflowEvent {
	return &WorkflowEvent{
		EventID:       eventID,
		Type:          EventTypeRemote,
		FireJobID:     remoteJobID,
		FireSite:      remoteSite,
		OriginContext: origin,
		RemoteJobID:   remoteJobID,
		RemoteSite:    remoteSite,
	}
}
