package store

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/studyhall/internal/models"
	apperrors "github.com/charlesng35/studyhall/pkg/errors"
)

// CreateUser inserts a new account. A taken username fails with ErrDuplicateUsername.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return apperrors.NewValidation("User is required.")
	}
	user.Username = strings.TrimSpace(user.Username)
	if err := models.Validate(user, "User record is incomplete."); err != nil {
		return err
	}

	now := s.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := s.conn(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateUsername.WithInternal(err)
		}
		return s.fault("user.create", err)
	}
	return nil
}

// FindUser loads an account by username.
func (s *Store) FindUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	result := s.conn(ctx).Where("username = ?", strings.TrimSpace(username)).Limit(1).Find(&user)
	if result.Error != nil {
		return nil, s.fault("user.find", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// ListUsernames returns every username in ascending order.
func (s *Store) ListUsernames(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.conn(ctx).Model(&models.User{}).Order("username ASC").Pluck("username", &names).Error; err != nil {
		return nil, s.fault("user.list_usernames", err)
	}
	return names, nil
}

// ListUsers returns every account ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.conn(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, s.fault("user.list", err)
	}
	return users, nil
}

// DeleteUser removes the account and reports whether a row was removed. Posts and
// replies written by the user are kept.
func (s *Store) DeleteUser(ctx context.Context, username string) (bool, error) {
	result := s.conn(ctx).Where("username = ?", strings.TrimSpace(username)).Delete(&models.User{})
	if result.Error != nil {
		return false, s.fault("user.delete", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateUserField writes one profile column. Unknown usernames are a logged no-op.
func (s *Store) UpdateUserField(ctx context.Context, username string, field models.ProfileField, value string) (bool, error) {
	if !field.Valid() {
		return false, apperrors.NewValidation("Unknown profile field.")
	}
	return s.updateUser(ctx, "user.update_field", username, map[string]interface{}{
		string(field): value,
	})
}

// UpdateUserPassword replaces the stored password hash.
func (s *Store) UpdateUserPassword(ctx context.Context, username, hash string) (bool, error) {
	if hash == "" {
		return false, apperrors.NewValidation("Password is required.")
	}
	return s.updateUser(ctx, "user.update_password", username, map[string]interface{}{
		"password": hash,
	})
}

// SetUserRole toggles a single role flag.
func (s *Store) SetUserRole(ctx context.Context, username string, role models.Role, enabled bool) (bool, error) {
	if !role.Valid() {
		return false, apperrors.NewValidation("Unknown role.")
	}
	return s.updateUser(ctx, "user.set_role", username, map[string]interface{}{
		role.Column(): enabled,
	})
}

// CountUsers returns the number of accounts.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.conn(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, s.fault("user.count", err)
	}
	return count, nil
}

// IsEmpty reports whether no account exists yet.
func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	count, err := s.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func (s *Store) updateUser(ctx context.Context, op, username string, updates map[string]interface{}) (bool, error) {
	username = strings.TrimSpace(username)
	updates["updated_at"] = s.Now()

	result := s.conn(ctx).Model(&models.User{}).Where("username = ?", username).Updates(updates)
	if result.Error != nil {
		return false, s.fault(op, result.Error)
	}
	if result.RowsAffected == 0 {
		s.log.Warn("update skipped for unknown user", zap.String("operation", op), zap.String("username", username))
		return false, nil
	}
	return true, nil
}
