package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/studyhall/internal/models"
	"github.com/charlesng35/studyhall/internal/store"
	"github.com/charlesng35/studyhall/pkg/crypto"
	apperrors "github.com/charlesng35/studyhall/pkg/errors"
	"github.com/charlesng35/studyhall/pkg/logger"
	"github.com/charlesng35/studyhall/pkg/metrics"
	"github.com/charlesng35/studyhall/pkg/validator"
)

// ProfileInput carries the personal fields of an account.
type ProfileInput struct {
	FirstName          string
	MiddleName         string
	LastName           string
	PreferredFirstName string
	Email              string
}

// AccountInput describes a new account.
type AccountInput struct {
	Username        string
	Password        string
	ConfirmPassword string
	Profile         ProfileInput
}

// UserSummary is the admin listing view of an account.
type UserSummary struct {
	Username    string
	DisplayName string
	Email       string
	Roles       string
}

// AccountOption customises AccountService behaviour.
type AccountOption func(*AccountService)

// WithAccountAudit records account administration events.
func WithAccountAudit(audit *AuditService) AccountOption {
	return func(s *AccountService) {
		s.audit = audit
	}
}

// WithAccountOTP revokes outstanding one-time passwords of deleted users.
func WithAccountOTP(otp *OTPService) AccountOption {
	return func(s *AccountService) {
		s.otp = otp
	}
}

// AccountService manages account creation, profile edits and administration.
type AccountService struct {
	store       *store.Store
	invitations *InvitationService
	otp         *OTPService
	audit       *AuditService
	log         *zap.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(st *store.Store, invitations *InvitationService, opts ...AccountOption) (*AccountService, error) {
	if st == nil {
		return nil, errors.New("account service: store is required")
	}
	if invitations == nil {
		return nil, errors.New("account service: invitation service is required")
	}
	s := &AccountService{store: st, invitations: invitations, log: logger.WithModule("accounts")}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BootstrapAdmin creates the first account with only the Admin role. It is refused once
// any account exists. Profile fields are optional here and checked only when present.
func (s *AccountService) BootstrapAdmin(ctx context.Context, input AccountInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	if err := validateCredentials(input); err != nil {
		return nil, err
	}
	if err := validatePartialProfile(input.Profile); err != nil {
		return nil, err
	}

	user, err := newUser(input, input.Profile.Email, models.RoleSetOf(models.RoleAdmin))
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTransaction(ctx, func(tx *store.Store) error {
		empty, err := tx.IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return ErrAdminExists
		}
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, wrapUnexpected("account service", "bootstrap admin", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Username: user.Username,
		Action:   AuditUserBootstrap,
		Resource: user.Username,
		Result:   AuditResultSuccess,
	})
	s.log.Info("first administrator created", zap.String("username", user.Username))
	return user, nil
}

// Register redeems an invitation code and creates the account with the invited role.
// An empty profile email falls back to the invited address. The code is claimed and the
// account created in one transaction, so concurrent registrations on one code yield one account.
func (s *AccountService) Register(ctx context.Context, code string, input AccountInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	invitation, err := s.invitations.RedeemInvitation(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := validateCredentials(input); err != nil {
		return nil, err
	}
	profile := input.Profile
	if strings.TrimSpace(profile.Email) == "" {
		profile.Email = invitation.Email
	}
	if err := validator.ValidateAllFields(profile.FirstName, profile.MiddleName, profile.LastName, profile.PreferredFirstName, profile.Email); err != nil {
		return nil, err
	}
	input.Profile = profile

	user, err := newUser(input, profile.Email, models.RoleSetOf(invitation.Role))
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTransaction(ctx, func(tx *store.Store) error {
		claimed, err := tx.ClaimInvitation(ctx, invitation.Code)
		if err != nil {
			return err
		}
		user.Roles = models.RoleSetOf(claimed.Role)
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, wrapUnexpected("account service", "register", err)
	}

	metrics.Invitations.WithLabelValues("consumed").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		Username: user.Username,
		Action:   AuditUserRegister,
		Resource: user.Username,
		Result:   AuditResultSuccess,
		Metadata: map[string]any{"role": string(invitation.Role)},
	})
	return user, nil
}

// UpdateProfileField validates and stores one profile field.
func (s *AccountService) UpdateProfileField(ctx context.Context, username string, field models.ProfileField, value string) error {
	ctx = ensureContext(ctx)

	if err := validateProfileField(field, value); err != nil {
		return err
	}
	if field == models.FieldEmail {
		value = strings.ToLower(strings.TrimSpace(value))
	}

	ok, err := s.store.UpdateUserField(ctx, username, field, value)
	if err != nil {
		return wrapUnexpected("account service", "update profile", err)
	}
	if !ok {
		return store.ErrUserNotFound
	}
	return nil
}

// ChangePassword replaces the password after checking confirmation and policy.
func (s *AccountService) ChangePassword(ctx context.Context, username, password, confirm string) error {
	ctx = ensureContext(ctx)

	if password != confirm {
		return ErrPasswordMismatch
	}
	if err := validator.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return wrapUnexpected("account service", "hash password", err)
	}

	ok, err := s.store.UpdateUserPassword(ctx, username, hash)
	if err != nil {
		return wrapUnexpected("account service", "change password", err)
	}
	if !ok {
		return store.ErrUserNotFound
	}
	return nil
}

// SetRole grants or removes a role. Only administrators may call it and an administrator
// cannot drop their own Admin role. Accounts may end up with no role at all.
func (s *AccountService) SetRole(ctx context.Context, actor, username string, role models.Role, enabled bool) error {
	ctx = ensureContext(ctx)

	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}
	resolved, err := resolveRole(role)
	if err != nil {
		return err
	}
	if strings.TrimSpace(actor) == strings.TrimSpace(username) && resolved == models.RoleAdmin && !enabled {
		return ErrSelfAdminRemoval
	}

	ok, err := s.store.SetUserRole(ctx, username, resolved, enabled)
	if err != nil {
		return wrapUnexpected("account service", "set role", err)
	}
	if !ok {
		return store.ErrUserNotFound
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Username: actor,
		Action:   AuditUserRole,
		Resource: strings.TrimSpace(username),
		Result:   AuditResultSuccess,
		Metadata: map[string]any{"role": string(resolved), "enabled": enabled},
	})
	return nil
}

// DeleteUser removes an account. Only administrators may call it and never on themselves.
// Posts and replies written by the account stay in place under its username.
func (s *AccountService) DeleteUser(ctx context.Context, actor, username string) error {
	ctx = ensureContext(ctx)

	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}
	if strings.TrimSpace(actor) == strings.TrimSpace(username) {
		return ErrSelfDelete
	}

	removed, err := s.store.DeleteUser(ctx, username)
	if err != nil {
		return wrapUnexpected("account service", "delete user", err)
	}
	if !removed {
		return store.ErrUserNotFound
	}

	if s.otp != nil {
		if err := s.otp.Revoke(ctx, actor, username); err != nil {
			s.log.Warn("revoke one-time password of deleted user", zap.String("username", username), zap.Error(err))
		}
	}
	recordAudit(s.audit, ctx, AuditEntry{
		Username: actor,
		Action:   AuditUserDelete,
		Resource: strings.TrimSpace(username),
		Result:   AuditResultSuccess,
	})
	return nil
}

// GetUser loads an account.
func (s *AccountService) GetUser(ctx context.Context, username string) (*models.User, error) {
	return s.store.FindUser(ensureContext(ctx), username)
}

// ListUsers returns every account ordered by username.
func (s *AccountService) ListUsers(ctx context.Context) ([]UserSummary, error) {
	users, err := s.store.ListUsers(ensureContext(ctx))
	if err != nil {
		return nil, wrapUnexpected("account service", "list users", err)
	}
	summaries := make([]UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, UserSummary{
			Username:    u.Username,
			DisplayName: u.DisplayName(),
			Email:       u.Email,
			Roles:       u.Roles.String(),
		})
	}
	return summaries, nil
}

func (s *AccountService) requireAdmin(ctx context.Context, actor string) error {
	user, err := s.store.FindUser(ctx, actor)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrAdminRequired
		}
		return wrapUnexpected("account service", "load actor", err)
	}
	if !user.Roles.Has(models.RoleAdmin) {
		return ErrAdminRequired
	}
	return nil
}

func validateCredentials(input AccountInput) error {
	if err := validator.ValidateUsername(input.Username); err != nil {
		return err
	}
	if input.Password != input.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return validator.ValidatePassword(input.Password)
}

func validatePartialProfile(p ProfileInput) error {
	fields := []struct {
		field models.ProfileField
		value string
	}{
		{models.FieldFirstName, p.FirstName},
		{models.FieldMiddleName, p.MiddleName},
		{models.FieldLastName, p.LastName},
		{models.FieldPreferredFirstName, p.PreferredFirstName},
		{models.FieldEmail, p.Email},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := validateProfileField(f.field, f.value); err != nil {
			return err
		}
	}
	return nil
}

func validateProfileField(field models.ProfileField, value string) error {
	switch field {
	case models.FieldFirstName:
		return validator.ValidateName(value, validator.LabelFirstName)
	case models.FieldMiddleName:
		return validator.ValidateName(value, validator.LabelMiddleName)
	case models.FieldLastName:
		return validator.ValidateName(value, validator.LabelLastName)
	case models.FieldPreferredFirstName:
		return validator.ValidateName(value, validator.LabelPreferredFirstName)
	case models.FieldEmail:
		return validator.ValidateEmail(strings.TrimSpace(value))
	default:
		return apperrors.NewValidation("Unknown profile field.")
	}
}

func newUser(input AccountInput, email string, roles models.RoleSet) (*models.User, error) {
	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, wrapUnexpected("account service", "hash password", err)
	}
	return &models.User{
		Username:           strings.TrimSpace(input.Username),
		Password:           hash,
		FirstName:          input.Profile.FirstName,
		MiddleName:         input.Profile.MiddleName,
		LastName:           input.Profile.LastName,
		PreferredFirstName: input.Profile.PreferredFirstName,
		Email:              strings.ToLower(strings.TrimSpace(email)),
		Roles:              roles,
	}, nil
}
