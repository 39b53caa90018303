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
)

// verifyUnknownAccount stands in for the password check when no account matched.
var verifyUnknownAccount = crypto.VerifyDecoyPassword

// AuthService checks role logins. It keeps no session state; each call stands alone.
type AuthService struct {
	store *store.Store
	otp   *OTPService
	log   *zap.Logger
}

// AuthOption customises AuthService behaviour.
type AuthOption func(*AuthService)

// WithOneTimePasswords lets LoginWithOneTimePassword consume codes issued by otp.
func WithOneTimePasswords(otp *OTPService) AuthOption {
	return func(s *AuthService) {
		s.otp = otp
	}
}

// NewAuthService constructs an AuthService.
func NewAuthService(st *store.Store, opts ...AuthOption) (*AuthService, error) {
	if st == nil {
		return nil, errors.New("auth service: store is required")
	}
	s := &AuthService{store: st, log: logger.WithModule("auth")}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LoginAs reports whether username and password match an account holding role.
// Unknown users, wrong passwords and missing roles all report false without an error.
func (s *AuthService) LoginAs(ctx context.Context, username, password string, role models.Role) (bool, error) {
	ctx = ensureContext(ctx)

	user, err := s.lookup(ctx, username, role)
	if err != nil {
		return false, err
	}
	if user == nil {
		return verifyUnknownAccount(password), nil
	}
	if !crypto.VerifyPassword(user.Password, password) {
		return s.reject(role, "bad_password", username), nil
	}
	if !user.Roles.Has(role) {
		return s.reject(role, "missing_role", username), nil
	}
	metrics.LoginAttempts.WithLabelValues(string(role), "success").Inc()
	return true, nil
}

// LoginAsAdmin is LoginAs for the Admin role.
func (s *AuthService) LoginAsAdmin(ctx context.Context, username, password string) (bool, error) {
	return s.LoginAs(ctx, username, password, models.RoleAdmin)
}

// LoginAsStudent is LoginAs for the Student role.
func (s *AuthService) LoginAsStudent(ctx context.Context, username, password string) (bool, error) {
	return s.LoginAs(ctx, username, password, models.RoleStudent)
}

// LoginAsStaff is LoginAs for the Staff role.
func (s *AuthService) LoginAsStaff(ctx context.Context, username, password string) (bool, error) {
	return s.LoginAs(ctx, username, password, models.RoleStaff)
}

// LoginWithOneTimePassword accepts an outstanding one-time password in place of the
// account password. The code is consumed only when the account holds role.
func (s *AuthService) LoginWithOneTimePassword(ctx context.Context, username, code string, role models.Role) (bool, error) {
	ctx = ensureContext(ctx)
	if s.otp == nil {
		return false, errors.New("auth service: one-time passwords are not configured")
	}

	user, err := s.lookup(ctx, username, role)
	if err != nil || user == nil {
		return false, err
	}
	if !user.Roles.Has(role) {
		return s.reject(role, "missing_role", username), nil
	}

	ok, err := s.otp.Consume(ctx, user.Username, code)
	if err != nil {
		return false, err
	}
	if !ok {
		return s.reject(role, "bad_otp", username), nil
	}
	metrics.LoginAttempts.WithLabelValues(string(role), "success").Inc()
	return true, nil
}

// lookup returns nil without error when the login must fail quietly.
func (s *AuthService) lookup(ctx context.Context, username string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidation("Please choose a valid role.")
	}
	if strings.TrimSpace(username) == "" {
		s.reject(role, "empty_username", username)
		return nil, nil
	}

	user, err := s.store.FindUser(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.reject(role, "unknown_user", username)
			return nil, nil
		}
		metrics.LoginAttempts.WithLabelValues(string(role), "error").Inc()
		return nil, wrapUnexpected("auth service", "login", err)
	}
	return user, nil
}

func (s *AuthService) reject(role models.Role, reason, username string) bool {
	metrics.LoginAttempts.WithLabelValues(string(role), "failure").Inc()
	s.log.Debug("login rejected",
		zap.String("role", string(role)),
		zap.String("reason", reason),
		zap.String("username", username),
	)
	return false
}
