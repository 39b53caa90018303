package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/studyhall/internal/database/testutil"
)

func TestAuditServiceLogAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewAuditService(db, WithAuditClock(clock.Now))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.Log(ctx, AuditEntry{
		Username: "alice",
		Action:   AuditInvitationIssue,
		Resource: "bob@example.com",
		Result:   AuditResultSuccess,
		Metadata: map[string]any{"role": "Student"},
	}))
	clock.Advance(time.Minute)
	require.NoError(t, svc.Log(ctx, AuditEntry{
		Username: "alice",
		Action:   AuditUserDelete,
		Resource: "carol",
		Result:   AuditResultFailure,
	}))

	logs, total, err := svc.List(ctx, AuditListOptions{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, logs, 2)
	require.Equal(t, AuditUserDelete, logs[0].Action)
	require.NotEmpty(t, logs[0].ID)
	require.Equal(t, "Student", logs[1].Metadata["role"])

	logs, total, err = svc.List(ctx, AuditListOptions{Filters: AuditFilters{Result: AuditResultSuccess}})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "bob@example.com", logs[0].Resource)

	require.Error(t, svc.Log(ctx, AuditEntry{Result: AuditResultSuccess}))
	require.Error(t, svc.Log(ctx, AuditEntry{Action: AuditOTPIssue}))
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc, err := NewAuditService(db, WithAuditClock(clock.Now))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.Log(ctx, AuditEntry{Action: "old.action", Result: AuditResultSuccess}))
	clock.Advance(9 * 24 * time.Hour)
	require.NoError(t, svc.Log(ctx, AuditEntry{Action: "new.action", Result: AuditResultSuccess}))
	clock.Advance(24 * time.Hour)

	rows, err := svc.CleanupOlderThan(ctx, 5)
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	_, err = svc.CleanupOlderThan(ctx, 0)
	require.Error(t, err)
}
