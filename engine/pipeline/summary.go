package pipeline

import "time"

// SourceReport is the per-source part of the run summary.
type SourceReport struct {
	Source           string   `json:"source"`
	Fetched          int      `json:"fetched"`
	Normalized       int      `json:"normalized"`
	Dropped          int      `json:"dropped"`
	Attributed       int      `json:"attributed"`
	FailedCategories []string `json:"failed_categories,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// Succeeded reports whether the source completed and wrote its exports.
// Individual failed categories do not fail the source.
func (r SourceReport) Succeeded() bool { return r.Error == "" }

// Summary describes one pipeline run.
type Summary struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Sources    []SourceReport `json:"sources"`
}

// Succeeded counts sources that completed and exported.
func (s Summary) Succeeded() int {
	n := 0
	for _, r := range s.Sources {
		if r.Succeeded() {
			n++
		}
	}
	return n
}
