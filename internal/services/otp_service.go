package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/studyhall/internal/cache"
	"github.com/charlesng35/studyhall/internal/store"
	"github.com/charlesng35/studyhall/pkg/crypto"
	"github.com/charlesng35/studyhall/pkg/logger"
	"github.com/charlesng35/studyhall/pkg/metrics"
)

const otpKeyPrefix = "otp:"

// OTPOption customises OTPService behaviour.
type OTPOption func(*OTPService)

// WithOTPGenerator replaces the six digit code generator.
func WithOTPGenerator(gen func() (string, error)) OTPOption {
	return func(s *OTPService) {
		if gen != nil {
			s.generate = gen
		}
	}
}

// WithOTPAudit records issue and revoke events.
func WithOTPAudit(audit *AuditService) OTPOption {
	return func(s *OTPService) {
		s.audit = audit
	}
}

// OTPService manages one outstanding one-time password per user. Codes never expire;
// they disappear when consumed, replaced or revoked.
type OTPService struct {
	store    *store.Store
	cache    cache.Store
	audit    *AuditService
	generate func() (string, error)
	log      *zap.Logger
}

// NewOTPService constructs an OTPService over the user store and a code cache.
func NewOTPService(st *store.Store, codes cache.Store, opts ...OTPOption) (*OTPService, error) {
	if st == nil {
		return nil, errors.New("otp service: store is required")
	}
	if codes == nil {
		return nil, errors.New("otp service: cache is required")
	}
	s := &OTPService{
		store:    st,
		cache:    codes,
		generate: crypto.GenerateOneTimeCode,
		log:      logger.WithModule("otp"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue creates a code for an existing user, replacing any earlier one.
// Unknown users fail with store.ErrUserNotFound.
func (s *OTPService) Issue(ctx context.Context, issuedBy, username string) (string, error) {
	ctx = ensureContext(ctx)

	user, err := s.store.FindUser(ctx, username)
	if err != nil {
		return "", err
	}

	code, err := s.generate()
	if err != nil {
		return "", wrapUnexpected("otp service", "generate", err)
	}
	if err := s.cache.Set(ctx, otpKey(user.Username), []byte(code), 0); err != nil {
		return "", wrapUnexpected("otp service", "store", err)
	}

	metrics.OTPEvents.WithLabelValues("issued").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		Username: issuedBy,
		Action:   AuditOTPIssue,
		Resource: user.Username,
		Result:   AuditResultSuccess,
	})
	return code, nil
}

// HasActive reports whether username holds an unconsumed code.
func (s *OTPService) HasActive(ctx context.Context, username string) (bool, error) {
	_, ok, err := s.cache.Get(ensureContext(ctx), otpKey(username))
	if err != nil {
		return false, wrapUnexpected("otp service", "lookup", err)
	}
	return ok, nil
}

// Consume reports whether candidate matches the outstanding code and removes it on a match.
// The check and the removal happen as one step, so a code is accepted at most once.
func (s *OTPService) Consume(ctx context.Context, username, candidate string) (bool, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(username) == "" || candidate == "" {
		metrics.OTPEvents.WithLabelValues("rejected").Inc()
		return false, nil
	}

	ok, err := s.cache.CompareAndDelete(ctx, otpKey(username), []byte(candidate))
	if err != nil {
		return false, wrapUnexpected("otp service", "consume", err)
	}
	if !ok {
		metrics.OTPEvents.WithLabelValues("rejected").Inc()
		return false, nil
	}
	metrics.OTPEvents.WithLabelValues("consumed").Inc()
	return true, nil
}

// Revoke drops any outstanding code for username.
func (s *OTPService) Revoke(ctx context.Context, revokedBy, username string) error {
	ctx = ensureContext(ctx)
	if err := s.cache.Delete(ctx, otpKey(username)); err != nil {
		return wrapUnexpected("otp service", "revoke", err)
	}
	metrics.OTPEvents.WithLabelValues("revoked").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		Username: revokedBy,
		Action:   AuditOTPRevoke,
		Resource: strings.TrimSpace(username),
		Result:   AuditResultSuccess,
	})
	return nil
}

func otpKey(username string) string {
	return otpKeyPrefix + strings.TrimSpace(username)
}
