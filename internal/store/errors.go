package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/studyhall/pkg/errors"
	"github.com/charlesng35/studyhall/pkg/metrics"
)

var (
	ErrUserNotFound       = apperrors.NewNotFound("User not found.")
	ErrInvitationNotFound = apperrors.NewNotFound("Invitation code is invalid or has expired.")
	ErrPostNotFound       = apperrors.NewNotFound("That post no longer exists.")
	ErrReplyNotFound      = apperrors.NewNotFound("That reply no longer exists.")
	ErrDuplicateUsername  = apperrors.NewDuplicate("That username is already taken.")
	ErrDuplicateCode      = apperrors.NewDuplicate("Could not allocate a unique invitation code.")
)

// fault logs a rejected statement with full detail and returns the generic storage error.
func (s *Store) fault(operation string, err error) error {
	s.log.Error("storage fault", zap.String("operation", operation), zap.Error(err))
	metrics.StorageFaults.WithLabelValues(operation).Inc()
	return apperrors.ErrStorageFault.WithInternal(fmt.Errorf("%s: %w", operation, err))
}

func isAppError(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr)
}

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate")
}
