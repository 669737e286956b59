package store

import (
	"context"
	"encoding/json"
	"strings"

	"lwfm/internal/lwfmerr"
	"lwfm/internal/serializer"
	"lwfm/pkg/lwfm"
)

// PutMetasheet persists ms. The reserved provenance fields are folded
// into the JSON-serialized key column (not just the data payload) so
// FindMetasheet can match on them via the SQL REGEXP predicate, mirroring
// the original implementation's putMetasheet.
func (s *Store) PutMetasheet(ctx context.Context, ms *lwfm.Metasheet) error {
	keyProps := make(map[string]string, len(ms.Props)+4)
	for k, v := range ms.Props {
		keyProps[k] = v
	}
	keyProps[lwfm.PropJobID] = ms.JobID
	keyProps[lwfm.PropSiteName] = ms.SiteName
	keyProps["_sheetId"] = ms.SheetID

	keyJSON, err := json.Marshal(keyProps)
	if err != nil {
		return lwfmerr.New(lwfmerr.CodeSerialization, "store.PutMetasheet", err)
	}
	data, err := serializer.Serialize(ms)
	if err != nil {
		return lwfmerr.New(lwfmerr.CodeSerialization, "store.PutMetasheet", err)
	}
	return s.put(ctx, tableMetasheet, ms.SiteName, pillarMetasheet, string(keyJSON), data)
}

// FindMetasheet returns every metasheet whose key-JSON satisfies every
// (field, regex) clause in queryRegExs, AND-combined. Wildcards '*' and
// '?' in each regex are translated before compilation; an absent field
// fails the match for that clause.
func (s *Store) FindMetasheet(ctx context.Context, queryRegExs map[string]string) ([]*lwfm.Metasheet, error) {
	var clauses []string
	var args []any
	for field, regex := range queryRegExs {
		clauses = append(clauses, "key REGEXP ?")
		args = append(args, fieldPattern(field, regex))
	}

	q := "SELECT data FROM " + tableMetasheet
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY ts DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.FindMetasheet", err)
	}
	defer rows.Close()

	var out []*lwfm.Metasheet
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}
		ms, err := serializer.Deserialize[lwfm.Metasheet](data)
		if err != nil {
			continue
		}
		out = append(out, ms)
	}
	return out, nil
}
