// Package eventproc implements component C4: the singleton background
// process that evaluates registered triggers and fires the jobs they
// describe. One timer goroutine walks the event store on an adaptive
// cadence; firing itself happens off a worker so a slow or hung dispatch
// never stalls the next evaluation cycle.
package eventproc

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lwfm/internal/logging"
	"lwfm/internal/metrics"
	"lwfm/pkg/lwfm"
)

const (
	minInterval  = 5 * time.Second
	maxInterval  = 300 * time.Second
	intervalStep = 10 * time.Second
	minWakeGap   = 30 * time.Second

	remotePollRate  = 5 // remote status polls per second, across all REMOTE events
	remotePollBurst = 10
)

// Store defines the persistence operations the event processor needs;
// narrowed to exactly what this package calls, per the pattern worker.go
// uses for its own Store interface.
type Store interface {
	GetAllWfEvents(ctx context.Context, eventType lwfm.EventType) ([]*lwfm.WorkflowEvent, error)
	DeleteWfEvent(ctx context.Context, eventID string) (bool, error)
	GetJobStatus(ctx context.Context, jobID string) (*lwfm.JobStatus, error)
	PutJobStatus(ctx context.Context, status *lwfm.JobStatus) error
}

// Dispatcher defines the site-invocation operations the event processor
// needs to fire a job and to poll a remote site for status.
type Dispatcher interface {
	Submit(ctx context.Context, siteName string, defn *lwfm.JobDefn, parent *lwfm.JobContext, computeType string, runArgs map[string]string) (*lwfm.JobStatus, error)
	GetStatus(ctx context.Context, siteName, jobID string) (*lwfm.JobStatus, error)
}

// Processor is the singleton event evaluation loop. Construct one with
// New and call Start once; Wake nudges it to re-evaluate sooner than its
// current adaptive interval would otherwise allow.
type Processor struct {
	store      Store
	dispatcher Dispatcher
	log        *logging.Logger
	limiter    *rate.Limiter

	mu       sync.Mutex
	interval time.Duration
	lastWake time.Time

	wakeCh chan struct{}
	doneCh chan struct{}
}

// New builds a Processor. It does not start evaluating until Start is
// called.
func New(store Store, dispatcher Dispatcher, log *logging.Logger) *Processor {
	return &Processor{
		store:      store,
		dispatcher: dispatcher,
		log:        log,
		limiter:    rate.NewLimiter(rate.Limit(remotePollRate), remotePollBurst),
		interval:   minInterval,
		wakeCh:     make(chan struct{}, 1),
	}
}

// Start launches the background timer goroutine; it runs until ctx is
// canceled or Stop is called.
func (p *Processor) Start(ctx context.Context) {
	p.doneCh = make(chan struct{})
	go p.run(ctx)
}

// Stop blocks until the background loop has exited.
func (p *Processor) Stop() {
	if p.doneCh != nil {
		<-p.doneCh
	}
}

// Wake requests an immediate evaluation cycle rather than waiting out the
// current adaptive interval. Calls within minWakeGap of the last wake are
// coalesced into a no-op; the loop will still run on its own schedule.
func (p *Processor) Wake() {
	p.mu.Lock()
	now := time.Now()
	if now.Sub(p.lastWake) < minWakeGap {
		p.mu.Unlock()
		return
	}
	p.lastWake = now
	p.mu.Unlock()

	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

func (p *Processor) run(ctx context.Context) {
	defer close(p.doneCh)
	for {
		start := time.Now()
		fired := p.checkJobEvents(ctx)
		advanced := p.checkRemoteJobEvents(ctx)
		metrics.ObserveCycleDuration(time.Since(start))

		p.mu.Lock()
		if fired || advanced {
			p.interval = minInterval
		} else if p.interval < maxInterval {
			p.interval += intervalStep
			if p.interval > maxInterval {
				p.interval = maxInterval
			}
		}
		sleep := p.interval
		p.mu.Unlock()
		metrics.SetAdaptiveInterval(sleep)

		select {
		case <-ctx.Done():
			return
		case <-p.wakeCh:
		case <-time.After(sleep):
		}
	}
}

// checkJobEvents evaluates every registered JOB event and fires those
// whose watched job has reached the rule status. Returns true if at
// least one event fired.
func (p *Processor) checkJobEvents(ctx context.Context) bool {
	events, err := p.store.GetAllWfEvents(ctx, lwfm.EventTypeJob)
	if err != nil {
		if p.log != nil {
			p.log.EventEvalFailed("*", err)
		}
		return false
	}

	fired := false
	for _, evt := range events {
		if ctx.Err() != nil {
			return fired
		}
		ruleStatus, err := p.store.GetJobStatus(ctx, evt.RuleJobID)
		if err != nil {
			if p.log != nil {
				p.log.EventEvalFailed(evt.EventID, err)
			}
			continue
		}
		if ruleStatus == nil || ruleStatus.Status != evt.RuleStatus {
			continue
		}
		if p.fireEvent(ctx, evt, ruleStatus.Context) {
			fired = true
		}
	}
	return fired
}

// checkRemoteJobEvents polls every registered REMOTE event against its
// site, recording a mirrored local status. A not-found remote job is
// treated as a terminal outcome. Returns true if at least one poll
// produced progress (a status change or a terminal resolution).
func (p *Processor) checkRemoteJobEvents(ctx context.Context) bool {
	events, err := p.store.GetAllWfEvents(ctx, lwfm.EventTypeRemote)
	if err != nil {
		if p.log != nil {
			p.log.EventEvalFailed("*", err)
		}
		return false
	}

	advanced := false
	for _, evt := range events {
		if ctx.Err() != nil {
			return advanced
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return advanced
		}
		metrics.ObserveRemotePoll(evt.RemoteSite)

		status, err := p.dispatcher.GetStatus(ctx, evt.RemoteSite, evt.RemoteJobID)
		if _, notFound := err.(*lwfm.ErrJobNotFound); notFound {
			_, _ = p.store.DeleteWfEvent(ctx, evt.EventID)
			advanced = true
			continue
		}
		if err != nil {
			if p.log != nil {
				p.log.EventEvalFailed(evt.EventID, err)
			}
			continue
		}
		if status == nil {
			continue
		}

		mirrored := mirrorRemoteStatus(status, evt)
		prev, _ := p.store.GetJobStatus(ctx, mirrored.JobID())
		if err := p.store.PutJobStatus(ctx, mirrored); err != nil {
			if p.log != nil {
				p.log.EventEvalFailed(evt.EventID, err)
			}
			continue
		}
		if prev == nil || prev.Status != mirrored.Status {
			advanced = true
		}
		if status.IsTerminal() {
			_, _ = p.store.DeleteWfEvent(ctx, evt.EventID)
			advanced = true
		}
	}
	return advanced
}

// mirrorRemoteStatus rewrites a polled remote status onto the local
// job/workflow identity the REMOTE event was registered against.
func mirrorRemoteStatus(status *lwfm.JobStatus, evt *lwfm.WorkflowEvent) *lwfm.JobStatus {
	ctx := evt.OriginContext
	if ctx == nil {
		ctx = lwfm.NewJobContext(evt.FireJobID)
	}
	mirrored := lwfm.NewJobStatus(ctx)
	mirrored.Status = status.Status
	mirrored.NativeStatus = status.NativeStatus
	mirrored.NativeInfo = status.NativeInfo
	mirrored.EmitTime = status.EmitTime
	return mirrored
}

// fireEvent performs the at-most-once firing sequence: delete the
// trigger before dispatch so a crash between the two never double-fires,
// build the fired job's context (workflowId and group/user inherited
// from parentStatusCtx, falling back to the event's OriginContext when it
// is nil), and dispatch. For JOB events parentStatusCtx is the watched
// job's status context; CheckDataEvent passes the event's OriginContext,
// so a DATA-fired job inherits from the event, not from the job whose
// INFO status carried the metasheet.
// Deletion doubles as the race arbiter when the same event could be
// evaluated concurrently (CheckDataEvent runs inline on a caller's own
// goroutine rather than the single timer loop): only the caller whose
// delete actually removed a row proceeds to dispatch.
func (p *Processor) fireEvent(ctx context.Context, evt *lwfm.WorkflowEvent, parentStatusCtx *lwfm.JobContext) bool {
	deleted, err := p.store.DeleteWfEvent(ctx, evt.EventID)
	if err != nil {
		if p.log != nil {
			p.log.EventEvalFailed(evt.EventID, err)
		}
		return false
	}
	if !deleted {
		return false
	}

	parent := parentStatusCtx
	if parent == nil {
		parent = evt.OriginContext
	}
	child := lwfm.NewChildJobContext(evt.FireJobID, parent)
	if evt.RuleJobID != "" {
		child.ParentJobID = evt.RuleJobID
	}

	ready := lwfm.NewJobStatus(child)
	ready.Status = lwfm.StatusReady
	ready.EmitTime = time.Now().UTC()
	_ = p.store.PutJobStatus(ctx, ready)

	go func() {
		fireCtx := context.Background()
		_, err := p.dispatcher.Submit(fireCtx, evt.FireSite, evt.FireDefn, child, "", nil)
		if err != nil {
			metrics.ObserveDispatchError(evt.FireSite)
			if p.log != nil {
				p.log.DispatchFailed(evt.FireJobID, evt.FireSite, err)
			}
			failed := lwfm.NewJobStatus(child)
			failed.Status = lwfm.StatusFailed
			failed.NativeInfo = err.Error()
			failed.EmitTime = time.Now().UTC()
			_ = p.store.PutJobStatus(fireCtx, failed)
			return
		}
		metrics.ObserveEventFired(string(evt.Type))
		if p.log != nil {
			p.log.TriggerFired(evt.EventID, string(evt.Type), evt.FireJobID, evt.FireSite)
		}
	}()
	return true
}

// CheckDataEvent evaluates every registered DATA (metadata) event against
// a freshly written metasheet's key-value properties, firing any whose
// AND-combined query matches. Called inline from the façade's EmitStatus
// whenever an INFO status carries a metasheet (which is how NotatePut and
// NotateGet record one), not from the timer loop, since metadata triggers
// must fire the moment the matching data appears.
func (p *Processor) CheckDataEvent(ctx context.Context, props map[string]string, matches func(query map[string]string) bool) {
	events, err := p.store.GetAllWfEvents(ctx, lwfm.EventTypeData)
	if err != nil {
		if p.log != nil {
			p.log.EventEvalFailed("*", err)
		}
		return
	}
	for _, evt := range events {
		if !matches(evt.QueryRegExs) {
			continue
		}
		p.fireEvent(ctx, evt, evt.OriginContext)
	}
}
