// Package store persists users, invitation codes, posts and replies.
//
// Lookups of absent rows fail with an error matching apperrors.ErrNotFound. Writes that
// target absent rows are no-ops reporting false. Any statement the database rejects is
// logged here and surfaced as apperrors.ErrStorageFault.
package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/studyhall/pkg/crypto"
	"github.com/charlesng35/studyhall/pkg/logger"
)

const (
	DefaultInvitationTTL  = 15 * time.Minute
	DefaultCodeLength     = 6
	maxInvitationAttempts = 6
)

// Option customises Store behaviour.
type Option func(*Store)

// WithClock injects a custom clock primarily for testing.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithInvitationTTL overrides how long an invitation code stays redeemable.
func WithInvitationTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.invitationTTL = ttl
		}
	}
}

// WithCodeGenerator replaces the invitation code generator.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Store) {
		if gen != nil {
			s.generateCode = gen
		}
	}
}

// WithCodeLength adjusts the length of generated invitation codes.
func WithCodeLength(length int) Option {
	return func(s *Store) {
		if length > 0 {
			s.generateCode = func() (string, error) {
				return crypto.GenerateInvitationCode(length)
			}
		}
	}
}

// WithLogger overrides the logger used for storage faults.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// Store is the record store backed by gorm.
type Store struct {
	db            *gorm.DB
	log           *zap.Logger
	now           func() time.Time
	invitationTTL time.Duration
	generateCode  func() (string, error)
}

// New constructs a Store over an already migrated database.
func New(db *gorm.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("store: db is required")
	}

	s := &Store{
		db:            db,
		log:           logger.WithModule("store"),
		now:           time.Now,
		invitationTTL: DefaultInvitationTTL,
		generateCode: func() (string, error) {
			return crypto.GenerateInvitationCode(DefaultCodeLength)
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// InvitationTTL reports the configured invitation lifetime.
func (s *Store) InvitationTTL() time.Duration {
	return s.invitationTTL
}

// Now returns the store clock in UTC.
func (s *Store) Now() time.Time {
	return s.now().UTC()
}

// WithinTransaction runs fn against a Store bound to a single transaction. Returning an
// error from fn rolls every write back.
func (s *Store) WithinTransaction(ctx context.Context, fn func(tx *Store) error) error {
	ctx = ensureContext(ctx)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bound := *s
		bound.db = tx
		return fn(&bound)
	})
	if err == nil || isAppError(err) {
		return err
	}
	return s.fault("transaction", err)
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ensureContext(ctx))
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
