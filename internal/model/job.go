package model

import (
	"encoding/json"
	"time"
)

// JobStatus represents the current state of a research job.
type JobStatus string

const (
	JobStatusNotStarted JobStatus = "not_started"
	JobStatusPending    JobStatus = "pending"
	JobStatusRunning    JobStatus = "running"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Active reports whether the status counts against the one-active-job-per-city
// constraint.
func (s JobStatus) Active() bool {
	return s == JobStatusPending || s == JobStatusRunning
}

// Terminal reports whether the job has reached a final state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ResearchJob tracks one deep-research request for a city.
type ResearchJob struct {
	ID            string          `json:"id"`
	CityID        string          `json:"city_id"`
	Status        JobStatus       `json:"status"`
	InteractionID string          `json:"interaction_id,omitempty"`
	RawResult     string          `json:"raw_result,omitempty"`
	Result        json.RawMessage `json:"result,omitempty"`
	Error         string          `json:"error,omitempty"`
	LeadsCreated  int             `json:"leads_created"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// CandidateLead is a provisional lead extracted from agent output. It is
// never persisted standalone; the reconciler merges it into the lead book.
type CandidateLead struct {
	Name        string      `json:"name"`
	Company     string      `json:"company,omitempty"`
	LeadType    string      `json:"lead_type,omitempty"`
	Email       string      `json:"email,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Instagram   string      `json:"instagram,omitempty"`
	Telegram    string      `json:"telegram,omitempty"`
	Website     string      `json:"website,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	Temperature Temperature `json:"temperature,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

// ResearchResult is the structured payload expected from the research agent.
type ResearchResult struct {
	Leads []CandidateLead `json:"leads"`
}

// PollSummary reports the outcome of one poll sweep over running jobs.
type PollSummary struct {
	Processed int `json:"processed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
