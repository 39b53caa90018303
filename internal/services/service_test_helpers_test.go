package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/studyhall/internal/cache"
	"github.com/charlesng35/studyhall/internal/database/testutil"
	"github.com/charlesng35/studyhall/internal/models"
	"github.com/charlesng35/studyhall/internal/store"
	"github.com/charlesng35/studyhall/pkg/crypto"
)

const testPassword = "Passw0rd!"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db          *gorm.DB
	clock       *testClock
	store       *store.Store
	codes       *cache.MemoryStore
	audit       *AuditService
	forum       *ForumService
	auth        *AuthService
	invitations *InvitationService
	otp         *OTPService
	accounts    *AccountService
	search      *SearchService
}

func newTestEnv(t *testing.T, opts ...store.Option) *testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	st, err := store.New(db, append([]store.Option{store.WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)

	env := &testEnv{db: db, clock: clock, store: st, codes: cache.NewMemoryStore()}

	env.audit, err = NewAuditService(db, WithAuditClock(clock.Now))
	require.NoError(t, err)
	env.forum, err = NewForumService(st)
	require.NoError(t, err)
	env.invitations, err = NewInvitationService(st, env.audit)
	require.NoError(t, err)
	env.otp, err = NewOTPService(st, env.codes, WithOTPAudit(env.audit))
	require.NoError(t, err)
	env.auth, err = NewAuthService(st, WithOneTimePasswords(env.otp))
	require.NoError(t, err)
	env.accounts, err = NewAccountService(st, env.invitations, WithAccountAudit(env.audit), WithAccountOTP(env.otp))
	require.NoError(t, err)
	env.search, err = NewSearchService(st)
	require.NoError(t, err)

	return env
}

func (e *testEnv) createUser(t *testing.T, username string, roles ...models.Role) *models.User {
	t.Helper()
	hash, err := crypto.HashPassword(testPassword)
	require.NoError(t, err)
	user := &models.User{
		Username: username,
		Password: hash,
		Email:    username + "@example.com",
		Roles:    models.RoleSetOf(roles...),
	}
	require.NoError(t, e.store.CreateUser(context.Background(), user))
	return user
}

func fixedCodes(codes ...string) func() (string, error) {
	var mu sync.Mutex
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return code, nil
	}
}
