package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/studyhall/internal/monitoring"
	"github.com/charlesng35/studyhall/internal/services"
	"github.com/charlesng35/studyhall/internal/store"
	"github.com/charlesng35/studyhall/pkg/logger"
	"github.com/charlesng35/studyhall/pkg/metrics"
)

const (
	defaultAuditRetentionDays = 90
	defaultInvitationSpec     = "@every 5m"
	defaultAuditSpec          = "@daily"

	jobInvitationSweep = "invitation_sweep"
	jobAuditRetention  = "audit_retention"
)

// Cleaner coordinates background maintenance tasks: purging expired invitation codes and
// pruning stale audit logs.
type Cleaner struct {
	store     *store.Store
	audit     *services.AuditService
	cron      *cron.Cron
	log       *zap.Logger
	enabled   bool
	retention int

	invitationSchedule string
	auditSchedule      string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithInvitationSchedule overrides the cron specification for the invitation sweep.
func WithInvitationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.invitationSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(st *store.Store, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		store:              st,
		audit:              audit,
		retention:          defaultAuditRetentionDays,
		invitationSchedule: defaultInvitationSpec,
		auditSchedule:      defaultAuditSpec,
		log:                logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.store != nil || cleaner.audit != nil

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.store != nil {
		if _, err := c.cron.AddFunc(c.invitationSchedule, func() {
			if err := c.sweepInvitations(context.Background()); err != nil {
				c.log.Warn("invitation sweep failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("schedule invitation sweep: %w", err)
		}
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			if err := c.pruneAudit(context.Background()); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("schedule audit cleanup: %w", err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.store != nil {
		errs = multierr.Append(errs, c.sweepInvitations(ctx))
	}

	if c.audit != nil && c.retention > 0 {
		errs = multierr.Append(errs, c.pruneAudit(ctx))
	}

	return errs
}

func (c *Cleaner) sweepInvitations(ctx context.Context) error {
	start := time.Now()
	stats, err := SweepInvitations(ctx, c.store)
	monitoring.RecordMaintenanceRun(jobInvitationSweep, err, time.Since(start))
	if err == nil && stats.Purged > 0 {
		c.log.Debug("expired invitations purged", zap.Int64("purged", stats.Purged), zap.Int64("active", stats.Active))
	}
	return err
}

func (c *Cleaner) pruneAudit(ctx context.Context) error {
	start := time.Now()
	removed, err := c.audit.CleanupOlderThan(ctx, c.retention)
	monitoring.RecordMaintenanceRun(jobAuditRetention, err, time.Since(start))
	if err == nil && removed > 0 {
		c.log.Debug("audit logs pruned", zap.Int64("removed", removed), zap.Int("retention_days", c.retention))
	}
	return err
}

// InvitationSweepStats captures the outcome of one invitation sweep.
type InvitationSweepStats struct {
	Purged int64
	Active int64
}

// SweepInvitations deletes every expired invitation code and refreshes the active gauge.
func SweepInvitations(ctx context.Context, st *store.Store) (InvitationSweepStats, error) {
	if st == nil {
		return InvitationSweepStats{}, errors.New("sweep invitations: store is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stats := InvitationSweepStats{}

	purged, err := st.PurgeAllExpiredInvitations(ctx)
	if err != nil {
		return stats, fmt.Errorf("sweep invitations: purge: %w", err)
	}
	stats.Purged = purged
	if purged > 0 {
		metrics.Invitations.WithLabelValues("purged").Add(float64(purged))
	}

	active, err := st.CountActiveInvitations(ctx)
	if err != nil {
		return stats, fmt.Errorf("sweep invitations: count: %w", err)
	}
	stats.Active = active
	metrics.ActiveInvitations.Set(float64(active))

	return stats, nil
}
