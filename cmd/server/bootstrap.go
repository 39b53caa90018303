package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/studyhall/internal/app"
	"github.com/charlesng35/studyhall/internal/app/maintenance"
	"github.com/charlesng35/studyhall/internal/cache"
	"github.com/charlesng35/studyhall/internal/database"
	"github.com/charlesng35/studyhall/internal/monitoring"
	"github.com/charlesng35/studyhall/internal/monitoring/checks"
	"github.com/charlesng35/studyhall/internal/services"
	"github.com/charlesng35/studyhall/internal/store"
	"github.com/charlesng35/studyhall/pkg/logger"
)

// runtimeStack bundles the long-lived store, services and background jobs.
type runtimeStack struct {
	DB    *gorm.DB
	Store *store.Store
	Codes cache.Store

	Audit       *services.AuditService
	Forum       *services.ForumService
	Auth        *services.AuthService
	Invitations *services.InvitationService
	OTP         *services.OTPService
	Accounts    *services.AccountService
	Search      *services.SearchService

	Cleaner *maintenance.Cleaner
	Metrics *http.Server
}

// bootstrapRuntime initialises the database, code cache, services and maintenance jobs.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			if shutdownErr := stack.Shutdown(context.Background(), log); shutdownErr != nil {
				log.Warn("partial bootstrap cleanup", zap.Error(shutdownErr))
			}
		}
	}()

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Store, err = store.New(stack.DB,
		store.WithInvitationTTL(cfg.Invitations.TTL),
		store.WithCodeLength(cfg.Invitations.CodeLength),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise store: %w", err)
	}

	stack.Codes = initialiseCodeCache(ctx, cfg, log)

	if err := stack.initialiseServices(); err != nil {
		return nil, err
	}

	if err := seedAdministrator(ctx, stack.Store, stack.Accounts, cfg.Bootstrap.Admin, log); err != nil {
		return nil, err
	}

	stack.Cleaner = maintenance.NewCleaner(stack.Store, stack.Audit,
		maintenance.WithInvitationSchedule(cfg.Maintenance.InvitationSchedule),
		maintenance.WithAuditSchedule(cfg.Maintenance.AuditSchedule),
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	if cfg.Monitoring.Prometheus.Enabled {
		health := monitoring.NewHealthManager(
			checks.Database(stack.DB, 0),
			checks.CodeCache(stack.Codes, 0),
			checks.Maintenance(0),
		)
		stack.Metrics = newMetricsServer(cfg.Monitoring.Prometheus, health)
	}

	success = true
	return stack, nil
}

func (s *runtimeStack) initialiseServices() error {
	var err error

	if s.Audit, err = services.NewAuditService(s.DB); err != nil {
		return fmt.Errorf("initialise audit service: %w", err)
	}
	if s.Forum, err = services.NewForumService(s.Store); err != nil {
		return fmt.Errorf("initialise forum service: %w", err)
	}
	if s.Invitations, err = services.NewInvitationService(s.Store, s.Audit); err != nil {
		return fmt.Errorf("initialise invitation service: %w", err)
	}
	if s.OTP, err = services.NewOTPService(s.Store, s.Codes, services.WithOTPAudit(s.Audit)); err != nil {
		return fmt.Errorf("initialise otp service: %w", err)
	}
	if s.Auth, err = services.NewAuthService(s.Store, services.WithOneTimePasswords(s.OTP)); err != nil {
		return fmt.Errorf("initialise auth service: %w", err)
	}
	if s.Accounts, err = services.NewAccountService(s.Store, s.Invitations,
		services.WithAccountAudit(s.Audit),
		services.WithAccountOTP(s.OTP),
	); err != nil {
		return fmt.Errorf("initialise account service: %w", err)
	}
	if s.Search, err = services.NewSearchService(s.Store); err != nil {
		return fmt.Errorf("initialise search service: %w", err)
	}
	return nil
}

// Shutdown stops background jobs and releases resources, reporting every failure.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) error {
	if s == nil {
		return nil
	}

	var errs error

	if s.Metrics != nil {
		if err := s.Metrics.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = multierr.Append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		<-stopCtx.Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Codes != nil {
		if err := s.Codes.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("code cache: %w", err))
		}
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("database: %w", err))
		}
	}

	return errs
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

// initialiseCodeCache prefers Redis when enabled and reachable, falling back to process memory.
func initialiseCodeCache(ctx context.Context, cfg *app.Config, log *zap.Logger) cache.Store {
	if cfg.Cache.Redis.Enabled {
		redisStore, err := cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig())
		if err == nil {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
			return redisStore
		}
		log.Warn("redis unavailable; keeping one-time passwords in memory", zap.Error(err))
	}
	return cache.NewMemoryStore()
}

// seedAdministrator creates the configured first administrator when no account exists yet.
func seedAdministrator(ctx context.Context, st *store.Store, accounts *services.AccountService, admin app.BootstrapAdminConfig, log *zap.Logger) error {
	if !admin.Enabled() {
		return nil
	}

	empty, err := st.IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("check for existing accounts: %w", err)
	}
	if !empty {
		log.Debug("accounts exist; skipping administrator bootstrap")
		return nil
	}

	_, err = accounts.BootstrapAdmin(ctx, services.AccountInput{
		Username:        strings.TrimSpace(admin.Username),
		Password:        admin.Password,
		ConfirmPassword: admin.Password,
		Profile: services.ProfileInput{
			FirstName: strings.TrimSpace(admin.FirstName),
			LastName:  strings.TrimSpace(admin.LastName),
			Email:     strings.TrimSpace(admin.Email),
		},
	})
	if err != nil {
		return fmt.Errorf("bootstrap administrator: %w", err)
	}
	return nil
}

func newMetricsServer(cfg app.PrometheusConfig, health *monitoring.HealthManager) *http.Server {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(endpoint, promhttp.Handler())
	mux.Handle("/healthz", monitoring.Handler(health))
	return &http.Server{
		Addr:    cfg.Address,
		Handler: mux,
	}
}
