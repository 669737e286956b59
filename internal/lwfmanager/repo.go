package lwfmanager

import (
	"context"
	"regexp"
	"strings"
	"time"

	"lwfm/internal/serializer"
	"lwfm/pkg/lwfm"
)

// NotatePut records a Metasheet for a data object just written to
// siteName, folds in the reserved provenance properties, persists it,
// evaluates any registered metadata trigger against it inline, and emits
// an INFO status carrying the metasheet so the put is visible in the
// job's history.
func (m *Manager) NotatePut(ctx context.Context, siteName, localPath, siteObjPath string, jctx *lwfm.JobContext, ms *lwfm.Metasheet) (*lwfm.Metasheet, error) {
	return m.notate(ctx, siteName, localPath, siteObjPath, jctx, ms, lwfm.DirectionPut)
}

// NotateGet records a Metasheet for a data object just read from
// siteName.
func (m *Manager) NotateGet(ctx context.Context, siteName, localPath, siteObjPath string, jctx *lwfm.JobContext) (*lwfm.Metasheet, error) {
	ms := lwfm.NewMetasheet(m.GenerateID(), "", siteName, localPath, siteObjPath, nil)
	return m.notate(ctx, siteName, localPath, siteObjPath, jctx, ms, lwfm.DirectionGet)
}

func (m *Manager) notate(ctx context.Context, siteName, localPath, siteObjPath string, jctx *lwfm.JobContext, ms *lwfm.Metasheet, direction string) (*lwfm.Metasheet, error) {
	if jctx == nil {
		jctx = m.GetContext(ctx)
	}
	if jctx == nil {
		jctx = lwfm.NewJobContext(m.GenerateID())
	}
	if ms == nil {
		ms = lwfm.NewMetasheet(m.GenerateID(), jctx.JobID, siteName, localPath, siteObjPath, nil)
	}
	ms.JobID = jctx.JobID
	ms.Props[lwfm.PropDirection] = direction
	ms.Props[lwfm.PropSiteName] = siteName
	ms.Props[lwfm.PropLocalPath] = localPath
	ms.Props[lwfm.PropSiteObjPath] = siteObjPath
	ms.Props[lwfm.PropWorkflowID] = jctx.WorkflowID
	ms.Props[lwfm.PropJobID] = jctx.JobID

	if err := m.store.PutMetasheet(ctx, ms); err != nil {
		return nil, err
	}

	// NativeInfo carries the metasheet itself (not just its id) so
	// EmitStatus can evaluate DATA triggers against it without a second
	// store round trip, and so any INFO status that carries a metasheet —
	// however it was emitted — gets the same trigger evaluation.
	encoded, err := serializer.Serialize(ms)
	if err != nil {
		return nil, err
	}

	info := lwfm.NewJobStatus(jctx)
	info.Status = lwfm.StatusInfo
	info.NativeInfo = encoded
	info.EmitTime = time.Now().UTC()
	if err := m.EmitStatus(ctx, info); err != nil {
		return ms, err
	}
	return ms, nil
}

// Find returns every metasheet whose properties satisfy the AND-combined
// wildcard query.
func (m *Manager) Find(ctx context.Context, query map[string]string) ([]*lwfm.Metasheet, error) {
	return m.store.FindMetasheet(ctx, query)
}

// matchesMetasheetQuery reports whether every (field, regex) clause in
// query is satisfied by props, mirroring the AND/wildcard semantics the
// store applies to its persisted JSON blobs, but evaluated directly
// against the in-memory property map a fresh notate() call already holds.
func matchesMetasheetQuery(props map[string]string, query map[string]string) bool {
	for field, pattern := range query {
		value, ok := props[field]
		if !ok {
			return false
		}
		re, err := regexp.Compile(translateWildcard(pattern))
		if err != nil || !re.MatchString(value) {
			return false
		}
	}
	return true
}

func translateWildcard(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}
