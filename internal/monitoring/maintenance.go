package monitoring

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlesng35/studyhall/pkg/metrics"
)

// MaintenanceJobSummary reports the recent history of one background job.
type MaintenanceJobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}

var (
	jobsMu sync.Mutex
	jobs   = make(map[string]*MaintenanceJobSummary)
)

// RecordMaintenanceRun records the completion of a maintenance job. A nil err is a success.
func RecordMaintenanceRun(job string, err error, duration time.Duration) {
	job = strings.TrimSpace(job)
	if job == "" {
		job = "unknown"
	}
	if duration < 0 {
		duration = 0
	}

	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.MaintenanceRuns.WithLabelValues(job, result).Inc()

	now := time.Now()

	jobsMu.Lock()
	defer jobsMu.Unlock()

	entry, ok := jobs[job]
	if !ok {
		entry = &MaintenanceJobSummary{Job: job}
		jobs[job] = entry
	}
	entry.LastStatus = result
	entry.LastRunAt = now
	entry.LastDuration = duration
	entry.TotalRuns++
	if err != nil {
		entry.LastError = err.Error()
		entry.ConsecutiveFailures++
		return
	}
	entry.LastError = ""
	entry.ConsecutiveFailures = 0
	entry.LastSuccessAt = now
}

// MaintenanceJobs returns a snapshot of every recorded job ordered by name.
func MaintenanceJobs() []MaintenanceJobSummary {
	jobsMu.Lock()
	defer jobsMu.Unlock()

	out := make([]MaintenanceJobSummary, 0, len(jobs))
	for _, entry := range jobs {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

// ResetMaintenanceJobs forgets every recorded run.
func ResetMaintenanceJobs() {
	jobsMu.Lock()
	defer jobsMu.Unlock()
	jobs = make(map[string]*MaintenanceJobSummary)
}
