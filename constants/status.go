package constants

// JobStatus is the canonical status for rows in extract_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"   // accepted, not started
	JobStatusRunning JobStatus = "RUNNING"  // in progress
	JobStatusPagesOK JobStatus = "PAGES_OK" // stage 1 completed (page bitmaps loaded)
	JobStatusParsed  JobStatus = "PARSED"   // stage 2 completed (fields extracted)
	JobStatusFailed  JobStatus = "FAILED"   // terminal failure
)
