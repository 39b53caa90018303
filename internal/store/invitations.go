package store

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/studyhall/internal/models"
)

// CreateInvitation stores a fresh code for email and role expiring after the invitation TTL.
// Colliding codes are regenerated a bounded number of times.
func (s *Store) CreateInvitation(ctx context.Context, email string, role models.Role) (*models.InvitationCode, error) {
	invitation := models.InvitationCode{
		Email: normaliseEmail(email),
		Role:  role,
	}
	if err := models.Validate(&invitation, "Invitation requires an email address and a known role."); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxInvitationAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return nil, s.fault("invitation.generate", err)
		}

		now := s.Now()
		invitation.Code = normaliseCode(code)
		invitation.CreatedAt = now
		invitation.ExpiresAt = now.Add(s.invitationTTL)

		err = s.conn(ctx).Create(&invitation).Error
		if err == nil {
			return &invitation, nil
		}
		if !isUniqueConstraintError(err) {
			return nil, s.fault("invitation.create", err)
		}
		lastErr = err
		s.log.Debug("invitation code collision", zap.Int("attempt", attempt+1))
	}
	return nil, ErrDuplicateCode.WithInternal(lastErr)
}

// FindActiveInvitation returns the invitation for code unless it is absent or expired.
// Expired rows are left in place.
func (s *Store) FindActiveInvitation(ctx context.Context, code string) (*models.InvitationCode, error) {
	code = normaliseCode(code)
	if code == "" {
		return nil, ErrInvitationNotFound
	}

	var invitation models.InvitationCode
	result := s.conn(ctx).
		Where("code = ? AND expires_at > ?", code, s.Now()).
		Limit(1).
		Find(&invitation)
	if result.Error != nil {
		return nil, s.fault("invitation.find", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrInvitationNotFound
	}
	return &invitation, nil
}

// ConsumeInvitation deletes the code if present. It is idempotent.
func (s *Store) ConsumeInvitation(ctx context.Context, code string) (bool, error) {
	result := s.conn(ctx).Where("code = ?", normaliseCode(code)).Delete(&models.InvitationCode{})
	if result.Error != nil {
		return false, s.fault("invitation.consume", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ClaimInvitation deletes an unexpired code and returns what it granted. Only one caller
// can claim a given code; the rest get ErrInvitationNotFound. Run it inside
// WithinTransaction so a failed account insert puts the code back.
func (s *Store) ClaimInvitation(ctx context.Context, code string) (*models.InvitationCode, error) {
	invitation, err := s.FindActiveInvitation(ctx, code)
	if err != nil {
		return nil, err
	}

	result := s.conn(ctx).
		Where("code = ? AND expires_at > ?", invitation.Code, s.Now()).
		Delete(&models.InvitationCode{})
	if result.Error != nil {
		return nil, s.fault("invitation.claim", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrInvitationNotFound
	}
	return invitation, nil
}

// PurgeExpiredInvitations deletes the expired codes issued to email.
func (s *Store) PurgeExpiredInvitations(ctx context.Context, email string) (int64, error) {
	result := s.conn(ctx).
		Where("email_address = ? AND expires_at <= ?", normaliseEmail(email), s.Now()).
		Delete(&models.InvitationCode{})
	if result.Error != nil {
		return 0, s.fault("invitation.purge_email", result.Error)
	}
	return result.RowsAffected, nil
}

// PurgeAllExpiredInvitations deletes every expired code.
func (s *Store) PurgeAllExpiredInvitations(ctx context.Context) (int64, error) {
	result := s.conn(ctx).Where("expires_at <= ?", s.Now()).Delete(&models.InvitationCode{})
	if result.Error != nil {
		return 0, s.fault("invitation.purge_all", result.Error)
	}
	return result.RowsAffected, nil
}

// HasUnexpiredInvitationForEmail reports whether email holds a redeemable code.
func (s *Store) HasUnexpiredInvitationForEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.InvitationCode{}).
		Where("email_address = ? AND expires_at > ?", normaliseEmail(email), s.Now()).
		Count(&count).Error
	if err != nil {
		return false, s.fault("invitation.has_unexpired", err)
	}
	return count > 0, nil
}

// CountActiveInvitations returns the number of redeemable codes.
func (s *Store) CountActiveInvitations(ctx context.Context) (int64, error) {
	var count int64
	if err := s.conn(ctx).Model(&models.InvitationCode{}).Where("expires_at > ?", s.Now()).Count(&count).Error; err != nil {
		return 0, s.fault("invitation.count_active", err)
	}
	return count, nil
}

// normaliseCode upper-cases codes so lookups ignore the case a user typed.
func normaliseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
