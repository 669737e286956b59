// Package store provides SQLite-backed persistence for workflows, job
// statuses, events, metasheets, and logs (component C3). Schema is
// uniform across five buckets: (id, ts, site, pillar, key, data), where
// data is an opaque serialized payload. Writers retry on "database is
// locked" with bounded exponential backoff; readers never retry.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"regexp"
	"strings"
	"time"

	"modernc.org/sqlite"

	"lwfm/internal/lwfmerr"
	"lwfm/internal/logging"
	"lwfm/internal/metrics"
)

const (
	defaultBusyTimeout = 5 * time.Second

	tableWorkflow  = "workflow_store"
	tableJobStatus = "job_status_store"
	tableEvent     = "event_store"
	tableMetasheet = "metasheet_store"
	tableLogging   = "logging_store"

	pillarWorkflow  = "run.wf"
	pillarJobStatus = "run.status"
	pillarMetasheet = "repo.meta"

	maxPutRetries  = 5
	retryBaseDelay = 100 * time.Millisecond
)

func init() {
	// Custom REGEXP(pattern, value) predicate, used by metasheet and
	// workflow find() to evaluate per-field regex clauses against the
	// JSON-serialized key column.
	_ = sqlite.RegisterScalarFunction("regexp", 2, regexpSQL)
}

func regexpSQL(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	pattern, _ := args[0].(string)
	value, _ := args[1].(string)
	matched, err := regexp.MatchString(pattern, value)
	if err != nil {
		return false, nil
	}
	return matched, nil
}

// Store wraps a SQLite database connection and provides typed accessors
// over the five uniform buckets.
type Store struct {
	db  *sql.DB
	log *logging.Logger
}

// Open opens (or creates) a SQLite database at path, applies connection
// pragmas, creates the schema if absent, and returns a ready Store.
func Open(ctx context.Context, path string, log *logging.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		path, int(defaultBusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.Open", err)
	}
	db.SetConnMaxLifetime(0)
	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(8)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.Open.ping", err)
	}

	s := &Store{db: db, log: log}
	if err := s.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) createSchema(ctx context.Context) error {
	ddl := func(table string) string {
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id   INTEGER PRIMARY KEY,
  ts   INTEGER NOT NULL,
  site TEXT NOT NULL,
  pillar TEXT NOT NULL,
  key  TEXT NOT NULL,
  data TEXT NOT NULL
);`, table)
	}
	for _, table := range []string{tableWorkflow, tableJobStatus, tableEvent, tableMetasheet, tableLogging} {
		if _, err := s.db.ExecContext(ctx, ddl(table)); err != nil {
			return lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.createSchema", err)
		}
	}
	idx := []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_key ON %s(pillar, key);", tableJobStatus, tableJobStatus),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_pillar ON %s(pillar);", tableEvent, tableEvent),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_key ON %s(key);", tableWorkflow, tableWorkflow),
	}
	for _, stmt := range idx {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.createSchema.index", err)
		}
	}
	return nil
}

// put inserts a new row into table, retrying on "database is locked" with
// bounded exponential backoff (five attempts starting at 100ms), per §4.1.
// If key is empty, the row's own timestamp is used as its key.
func (s *Store) put(ctx context.Context, table, site, pillar, key, data string) error {
	ts := time.Now().UnixNano()
	if key == "" {
		key = fmt.Sprintf("%d", ts)
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, site, pillar, key, data) VALUES (?, ?, ?, ?, ?)", table)

	delay := retryBaseDelay
	var lastErr error
	for attempt := 0; attempt < maxPutRetries; attempt++ {
		_, err := s.db.ExecContext(ctx, q, ts, site, pillar, key, data)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isBusy(err) {
			return lwfmerr.New(lwfmerr.CodeStoragePersistent, "store.put", err)
		}
		if s.log != nil {
			s.log.StoreRetry(table, attempt+1, err)
		}
		metrics.ObserveStoreRetry(table)
		if attempt < maxPutRetries-1 {
			select {
			case <-ctx.Done():
				return lwfmerr.New(lwfmerr.CodeStorageTransient, "store.put", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return lwfmerr.New(lwfmerr.CodeStorageTransient, "store.put", lastErr)
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
