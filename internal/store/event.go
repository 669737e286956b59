package store

import (
	"context"

	"lwfm/internal/lwfmerr"
	"lwfm/internal/serializer"
	"lwfm/pkg/lwfm"
)

func eventPillar(t lwfm.EventType) string {
	return "run.event." + string(t)
}

// PutWfEvent persists a registered trigger.
func (s *Store) PutWfEvent(ctx context.Context, evt *lwfm.WorkflowEvent) error {
	data, err := serializer.Serialize(evt)
	if err != nil {
		return lwfmerr.New(lwfmerr.CodeSerialization, "store.PutWfEvent", err)
	}
	return s.put(ctx, tableEvent, evt.FireSite, eventPillar(evt.Type), evt.EventID, data)
}

// GetAllWfEvents returns every registered event, optionally filtered to a
// single EventType, newest first.
func (s *Store) GetAllWfEvents(ctx context.Context, eventType lwfm.EventType) ([]*lwfm.WorkflowEvent, error) {
	var (
		rows interface {
			Next() bool
			Scan(...any) error
			Close() error
		}
		err error
	)
	if eventType != "" {
		rows, err = s.db.QueryContext(ctx, `SELECT data FROM `+tableEvent+` WHERE pillar=? ORDER BY ts DESC`, eventPillar(eventType))
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT data FROM `+tableEvent+` WHERE pillar LIKE 'run.event.%' ORDER BY ts DESC`)
	}
	if err != nil {
		return nil, lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.GetAllWfEvents", err)
	}
	defer rows.Close()

	var out []*lwfm.WorkflowEvent
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}
		evt, err := serializer.Deserialize[lwfm.WorkflowEvent](data)
		if err != nil {
			continue
		}
		out = append(out, evt)
	}
	return out, nil
}

// DeleteWfEvent removes eventId across all event-type pillars and
// reports whether a row actually matched. The rows-affected signal lets
// a caller racing another deleter of the same event (e.g. two concurrent
// inline CheckDataEvent evaluations) tell whether it won the race, which
// the at-most-once firing rule in §4.2 depends on.
func (s *Store) DeleteWfEvent(ctx context.Context, eventID string) (bool, error) {
	const q = `DELETE FROM ` + tableEvent + ` WHERE key=? AND pillar LIKE 'run.event.%'`
	res, err := s.db.ExecContext(ctx, q, eventID)
	if err != nil {
		return false, lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.DeleteWfEvent", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.DeleteWfEvent", err)
	}
	return n > 0, nil
}
