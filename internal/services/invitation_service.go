package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/studyhall/internal/models"
	"github.com/charlesng35/studyhall/internal/store"
	"github.com/charlesng35/studyhall/pkg/logger"
	"github.com/charlesng35/studyhall/pkg/metrics"
	"github.com/charlesng35/studyhall/pkg/validator"
)

// InvitationService issues and redeems invitation codes.
type InvitationService struct {
	store *store.Store
	audit *AuditService
	log   *zap.Logger
}

// NewInvitationService constructs an InvitationService. audit may be nil.
func NewInvitationService(st *store.Store, audit *AuditService) (*InvitationService, error) {
	if st == nil {
		return nil, errors.New("invitation service: store is required")
	}
	return &InvitationService{store: st, audit: audit, log: logger.WithModule("invitations")}, nil
}

// GenerateInvitation issues a code for email and role. Expired codes for the same email are
// purged first. Outstanding unexpired codes are not checked; callers that want one code per
// email call HasUnexpiredInvitation beforehand.
func (s *InvitationService) GenerateInvitation(ctx context.Context, issuedBy, email string, role models.Role) (*models.InvitationCode, error) {
	ctx = ensureContext(ctx)

	email = strings.TrimSpace(email)
	if err := validator.ValidateEmail(email); err != nil {
		metrics.Invitations.WithLabelValues("rejected").Inc()
		return nil, err
	}
	resolved, err := resolveRole(role)
	if err != nil {
		metrics.Invitations.WithLabelValues("rejected").Inc()
		return nil, err
	}

	purged, err := s.store.PurgeExpiredInvitations(ctx, email)
	if err != nil {
		return nil, wrapUnexpected("invitation service", "purge expired", err)
	}
	if purged > 0 {
		metrics.Invitations.WithLabelValues("purged").Add(float64(purged))
	}

	invitation, err := s.store.CreateInvitation(ctx, email, resolved)
	if err != nil {
		return nil, wrapUnexpected("invitation service", "create", err)
	}

	metrics.Invitations.WithLabelValues("issued").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		Username: issuedBy,
		Action:   AuditInvitationIssue,
		Resource: invitation.Email,
		Result:   AuditResultSuccess,
		Metadata: map[string]any{
			"role":       string(invitation.Role),
			"expires_at": invitation.ExpiresAt,
		},
	})
	s.log.Info("invitation issued",
		zap.String("email", invitation.Email),
		zap.String("role", string(invitation.Role)),
		zap.Time("expires_at", invitation.ExpiresAt),
	)
	return invitation, nil
}

// HasUnexpiredInvitation reports whether email already holds a redeemable code.
func (s *InvitationService) HasUnexpiredInvitation(ctx context.Context, email string) (bool, error) {
	return s.store.HasUnexpiredInvitationForEmail(ensureContext(ctx), email)
}

// RedeemInvitation returns the email and role bound to an unexpired code without consuming it.
// Absent and expired codes both fail with store.ErrInvitationNotFound.
func (s *InvitationService) RedeemInvitation(ctx context.Context, code string) (*models.InvitationCode, error) {
	invitation, err := s.store.FindActiveInvitation(ensureContext(ctx), code)
	if err != nil {
		return nil, err
	}
	metrics.Invitations.WithLabelValues("redeemed").Inc()
	return invitation, nil
}

// ConsumeInvitation deletes a code after its account has been created. It is idempotent.
func (s *InvitationService) ConsumeInvitation(ctx context.Context, code string) error {
	ok, err := s.store.ConsumeInvitation(ensureContext(ctx), code)
	if err != nil {
		return wrapUnexpected("invitation service", "consume", err)
	}
	if ok {
		metrics.Invitations.WithLabelValues("consumed").Inc()
	}
	return nil
}
