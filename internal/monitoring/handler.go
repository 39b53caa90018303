package monitoring

import (
	"encoding/json"
	"net/http"
)

// Handler serves the health report as JSON, answering 503 unless every probe is up.
func Handler(manager *HealthManager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := manager.Evaluate(r.Context())

		status := http.StatusOK
		if !report.Success {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	})
}
