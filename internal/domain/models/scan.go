package models

import "time"

type ScanTrigger string

const (
	TriggerScheduled ScanTrigger = "scheduled"
	TriggerManual    ScanTrigger = "manual"
	TriggerAsync     ScanTrigger = "async"
)

type AssetOutcome string

const (
	OutcomeSaved   AssetOutcome = "saved"
	OutcomeSkipped AssetOutcome = "skipped"
	OutcomeError   AssetOutcome = "error"
)

// AssetResult is one asset's line in a scan summary.
type AssetResult struct {
	Asset    string       `json:"asset"`
	Outcome  AssetOutcome `json:"outcome"`
	Score    int          `json:"oracle_score,omitempty"`
	Type     SignalType   `json:"signal_type,omitempty"`
	SignalID int64        `json:"signal_id,omitempty"`
	Fidelity Fidelity     `json:"fidelity,omitempty"`
	Error    string       `json:"error,omitempty"`
	Duration float64      `json:"duration_ms"`
}

// ScanSummary is produced by every scan, including the failed parts.
type ScanSummary struct {
	ID          string            `json:"id"`
	Trigger     ScanTrigger       `json:"trigger"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Scanned     int               `json:"scanned"`
	Saved       int               `json:"saved"`
	Skipped     int               `json:"skipped"`
	Errors      int               `json:"errors"`
	AssetErrors map[string]string `json:"asset_errors,omitempty"`
	SignalIDs   []int64           `json:"signal_ids"`
	Results     []AssetResult     `json:"results"`
}

// Add folds one asset result into the counters.
func (s *ScanSummary) Add(r AssetResult) {
	s.Scanned++
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeSaved:
		s.Saved++
		s.SignalIDs = append(s.SignalIDs, r.SignalID)
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeError:
		s.Errors++
		if s.AssetErrors == nil {
			s.AssetErrors = make(map[string]string)
		}
		s.AssetErrors[r.Asset] = r.Error
	}
}

type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// ScanJob tracks an asynchronous scan request.
type ScanJob struct {
	ID        string       `json:"id"`
	State     JobState     `json:"state"`
	Assets    []string     `json:"assets,omitempty"`
	Summary   *ScanSummary `json:"summary,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
