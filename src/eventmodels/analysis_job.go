package eventmodels

import "time"

type JobStatus string

const (
	JobStatusIdle    JobStatus = "idle"
	JobStatusRunning JobStatus = "running"
	JobStatusStale   JobStatus = "stale"
	JobStatusDone    JobStatus = "done"
	JobStatusError   JobStatus = "error"
)

type JobProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// AnalysisResult is one completed target of a batch analysis job. Err is set
// when the analyst failed for this target; the job continues regardless.
type AnalysisResult struct {
	Ticker     string  `json:"ticker"`
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Err        string  `json:"error,omitempty"`
}

// AnalysisJobSnapshot is the server-authoritative view a client polls to
// resume a job across reloads. Results are append-only and preserve target
// order; LastHeartbeat older than the staleness window means the job is
// treated as abandoned.
type AnalysisJobSnapshot struct {
	Targets       []string         `json:"targets"`
	Results       []AnalysisResult `json:"results"`
	Progress      JobProgress      `json:"progress"`
	Status        JobStatus        `json:"status"`
	StartedAt     time.Time        `json:"started_at"`
	LastHeartbeat time.Time        `json:"last_heartbeat"`
}
