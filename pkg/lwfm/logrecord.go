package lwfm

import "time"

// LogRecord is an append-only entry in the LoggingStore bucket, queryable
// by WorkflowID or JobID.
type LogRecord struct {
	Timestamp  time.Time
	Level      string
	Site       string
	WorkflowID string
	JobID      string
	Message    string
}
