package services

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/studyhall/internal/models"
	apperrors "github.com/charlesng35/studyhall/pkg/errors"
)

func TestOTPServiceSingleUse(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createUser(t, "alice", models.RoleAdmin)

	code, err := env.otp.Issue(ctx, "alice", "alice")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), code)

	ok, err := env.otp.Consume(ctx, "alice", code)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = env.otp.Consume(ctx, "alice", code)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOTPServiceUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.otp.Issue(context.Background(), "alice", "ghost")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.Equal(t, 0, env.codes.Len())
}

func TestOTPServiceReissueReplacesCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createUser(t, "carol", models.RoleStudent)

	otp, err := NewOTPService(env.store, env.codes, WithOTPGenerator(fixedCodes("000042", "123456")))
	require.NoError(t, err)

	first, err := otp.Issue(ctx, "alice", "carol")
	require.NoError(t, err)
	require.Equal(t, "000042", first)
	second, err := otp.Issue(ctx, "alice", "carol")
	require.NoError(t, err)
	require.Equal(t, "123456", second)

	ok, err := otp.Consume(ctx, "carol", first)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = otp.Consume(ctx, "carol", second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestOTPServiceRevoke(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createUser(t, "carol", models.RoleStudent)

	code, err := env.otp.Issue(ctx, "alice", "carol")
	require.NoError(t, err)
	require.NoError(t, env.otp.Revoke(ctx, "alice", "carol"))
	require.NoError(t, env.otp.Revoke(ctx, "alice", "carol"))

	active, err := env.otp.HasActive(ctx, "carol")
	require.NoError(t, err)
	require.False(t, active)

	ok, err := env.otp.Consume(ctx, "carol", code)
	require.NoError(t, err)
	require.False(t, ok)

	_, total, err := env.audit.List(ctx, AuditListOptions{Filters: AuditFilters{Action: AuditOTPRevoke}})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
}

func TestOTPServiceConcurrentConsumeHasOneWinner(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createUser(t, "carol", models.RoleStudent)

	code, err := env.otp.Issue(ctx, "alice", "carol")
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := env.otp.Consume(ctx, "carol", code); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins.Load())
}

func TestNewOTPServiceRequiresDependencies(t *testing.T) {
	env := newTestEnv(t)
	_, err := NewOTPService(nil, env.codes)
	require.Error(t, err)
	_, err = NewOTPService(env.store, nil)
	require.Error(t, err)
}
