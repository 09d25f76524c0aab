package constants

// JobStatus is the canonical status for rows in parse_runs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusParsed  JobStatus = "PARSED" // record extracted and stored
	JobStatusFailed  JobStatus = "FAILED" // terminal failure
)

// ParserVersion is reported in document info and stored with every parse run.
const ParserVersion = "2.0.0"
