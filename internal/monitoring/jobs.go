package monitoring

import (
	"sort"
	"sync"
	"time"
)

// JobSummary describes the run history of one background job.
type JobSummary struct {
	Job                 string        `json:"job"`
	TotalRuns           uint64        `json:"total_runs"`
	Failures            uint64        `json:"failures"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastSuccessAt       time.Time     `json:"last_success_at,omitempty"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
}

// JobTracker keeps the latest outcome of each maintenance job in memory.
type JobTracker struct {
	mu   sync.Mutex
	jobs map[string]*JobSummary
}

func NewJobTracker() *JobTracker {
	return &JobTracker{jobs: make(map[string]*JobSummary)}
}

// Register makes a job visible before its first run.
func (t *JobTracker) Register(job string) {
	if t == nil || job == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.jobs[job]; !ok {
		t.jobs[job] = &JobSummary{Job: job}
	}
}

// RecordRun stores the outcome of a job execution.
func (t *JobTracker) RecordRun(job string, at time.Time, duration time.Duration, err error) {
	if t == nil || job == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	summary, ok := t.jobs[job]
	if !ok {
		summary = &JobSummary{Job: job}
		t.jobs[job] = summary
	}
	summary.TotalRuns++
	summary.LastRunAt = at
	summary.LastDuration = duration
	if err != nil {
		summary.Failures++
		summary.ConsecutiveFailures++
		summary.LastError = err.Error()
		return
	}
	summary.ConsecutiveFailures = 0
	summary.LastSuccessAt = at
	summary.LastError = ""
}

// Jobs returns a snapshot sorted by job name.
func (t *JobTracker) Jobs() []JobSummary {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	out := make([]JobSummary, 0, len(t.jobs))
	for _, summary := range t.jobs {
		out = append(out, *summary)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}
