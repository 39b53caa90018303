package monitoring_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/studyhall/internal/monitoring"
)

func TestHealthManagerEvaluate(t *testing.T) {
	manager := monitoring.NewHealthManager(
		monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
			return monitoring.ProbeResult{Status: monitoring.StatusUp}
		}),
		monitoring.NewCheck("code_cache", func(ctx context.Context) monitoring.ProbeResult {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "slow"}
		}),
	)

	report := manager.Evaluate(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "database", report.Checks[0].Component)
	require.Equal(t, "code_cache", report.Checks[1].Component)

	manager.Register(monitoring.NewCheck("broken", nil))
	report = manager.Evaluate(context.Background())
	require.Equal(t, monitoring.StatusDown, report.Status)
}

func TestHealthManagerRecoversPanics(t *testing.T) {
	manager := monitoring.NewHealthManager(monitoring.NewCheck("panicky", func(context.Context) monitoring.ProbeResult {
		panic("boom")
	}))

	report := manager.Evaluate(context.Background())
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Equal(t, "panicky", report.Checks[0].Component)
	require.Equal(t, "boom", report.Checks[0].Details)
}

func TestResultFromError(t *testing.T) {
	require.Equal(t, monitoring.StatusUp, monitoring.ResultFromError("db", nil, time.Second).Status)
	require.Equal(t, monitoring.StatusDegraded, monitoring.ResultFromError("db", context.DeadlineExceeded, 0).Status)

	result := monitoring.ResultFromError("db", errors.New("refused"), -time.Second)
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Equal(t, "refused", result.Details)
	require.Zero(t, result.Duration)
}

func TestHandler(t *testing.T) {
	healthy := monitoring.NewHealthManager(monitoring.NewCheck("database", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))

	recorder := httptest.NewRecorder()
	monitoring.Handler(healthy).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var report monitoring.HealthReport
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &report))
	require.True(t, report.Success)

	failing := monitoring.NewHealthManager(monitoring.NewCheck("database", nil))
	recorder = httptest.NewRecorder()
	monitoring.Handler(failing).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestRecordMaintenanceRun(t *testing.T) {
	monitoring.ResetMaintenanceJobs()
	t.Cleanup(monitoring.ResetMaintenanceJobs)

	monitoring.RecordMaintenanceRun("invitation_sweep", nil, time.Millisecond)
	monitoring.RecordMaintenanceRun("audit_retention", errors.New("disk full"), time.Millisecond)
	monitoring.RecordMaintenanceRun("audit_retention", errors.New("disk full"), time.Millisecond)

	jobs := monitoring.MaintenanceJobs()
	require.Len(t, jobs, 2)
	require.Equal(t, "audit_retention", jobs[0].Job)
	require.Equal(t, uint64(2), jobs[0].ConsecutiveFailures)
	require.Equal(t, "disk full", jobs[0].LastError)
	require.True(t, jobs[0].LastSuccessAt.IsZero())

	monitoring.RecordMaintenanceRun("audit_retention", nil, time.Millisecond)
	jobs = monitoring.MaintenanceJobs()
	require.Zero(t, jobs[0].ConsecutiveFailures)
	require.Equal(t, uint64(3), jobs[0].TotalRuns)
	require.Empty(t, jobs[0].LastError)
}
