package domain

import "time"

// AuditRecord describes a single HTTP request/response cycle. One record is
// produced per non-excluded request and persisted append-only after the
// response has been finalized.
type AuditRecord struct {
	ID          int64
	Timestamp   time.Time
	Method      string
	Path        string
	QueryString string
	ClientIP    string
	UserAgent   string
	UserID      *int64
	RequestBody string
	StatusCode  int
	DurationMS  int64
	ErrorText   string
	ErrorType   string
	StackTrace  string
}
