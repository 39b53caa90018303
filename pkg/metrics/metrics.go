package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts records role logins by role and result (success|failure).
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_login_attempts_total",
			Help: "Total number of role login attempts",
		},
		[]string{"role", "result"},
	)

	// Invitations counts invitation lifecycle events (issued|redeemed|consumed|purged|rejected).
	Invitations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_invitations_total",
			Help: "Total number of invitation code events",
		},
		[]string{"event"},
	)

	// ActiveInvitations tracks unexpired invitation codes as of the last maintenance sweep.
	ActiveInvitations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studyhall_active_invitations",
			Help: "Number of unexpired invitation codes",
		},
	)

	// ForumWrites counts successful post and reply mutations.
	ForumWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_forum_writes_total",
			Help: "Total number of forum writes",
		},
		[]string{"entity", "action"},
	)

	// OTPEvents counts one-time password events (issued|consumed|rejected|revoked).
	OTPEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_otp_events_total",
			Help: "Total number of one-time password events",
		},
		[]string{"event"},
	)

	// StorageFaults counts statements rejected by the database, by store operation.
	StorageFaults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_storage_faults_total",
			Help: "Total number of storage faults",
		},
		[]string{"operation"},
	)

	// MaintenanceRuns counts background job runs by job and result (success|failure).
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_maintenance_runs_total",
			Help: "Total number of maintenance job runs",
		},
		[]string{"job", "result"},
	)
)
