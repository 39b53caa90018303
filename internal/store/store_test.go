package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/studyhall/internal/database"
	"github.com/charlesng35/studyhall/internal/database/testutil"
	"github.com/charlesng35/studyhall/internal/models"
	apperrors "github.com/charlesng35/studyhall/pkg/errors"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
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

func newTestStore(t *testing.T, opts ...Option) (*Store, *testClock) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := newTestClock()
	s, err := New(db, append([]Option{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return s, clock
}

func TestNewRequiresDB(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	empty, err := s.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "carol", Password: "hash", Roles: models.RoleSetOf(models.RoleStudent)}))
	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "alice", Password: "hash", Roles: models.RoleSetOf(models.RoleAdmin)}))

	err = s.CreateUser(ctx, &models.User{Username: "carol", Password: "other"})
	require.ErrorIs(t, err, apperrors.ErrDuplicateKey)

	names, err := s.ListUsernames(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "carol"}, names)

	count, err := s.CountUsers(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	ok, err := s.UpdateUserField(ctx, "carol", models.FieldFirstName, "Carol")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.SetUserRole(ctx, "carol", models.RoleStaff, true)
	require.NoError(t, err)
	require.True(t, ok)

	user, err := s.FindUser(ctx, "carol")
	require.NoError(t, err)
	require.Equal(t, "Carol", user.FirstName)
	require.True(t, user.Roles.Has(models.RoleStudent))
	require.True(t, user.Roles.Has(models.RoleStaff))
	require.False(t, user.Roles.Has(models.RoleAdmin))

	ok, err = s.UpdateUserField(ctx, "nobody", models.FieldLastName, "X")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.UpdateUserField(ctx, "carol", models.ProfileField("password"), "x")
	require.True(t, apperrors.IsValidation(err))

	removed, err := s.DeleteUser(ctx, "carol")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = s.DeleteUser(ctx, "carol")
	require.NoError(t, err)
	require.False(t, removed)

	_, err = s.FindUser(ctx, "carol")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateUserPassword(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "dave", Password: "old"}))

	ok, err := s.UpdateUserPassword(ctx, "dave", "new")
	require.NoError(t, err)
	require.True(t, ok)

	user, err := s.FindUser(ctx, "dave")
	require.NoError(t, err)
	require.Equal(t, "new", user.Password)
}

func TestInvitationExpiry(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	invitation, err := s.CreateInvitation(ctx, "bob@example.com", models.RoleStudent)
	require.NoError(t, err)
	require.Len(t, invitation.Code, DefaultCodeLength)
	require.True(t, clock.Now().Add(15*time.Minute).Equal(invitation.ExpiresAt))

	found, err := s.FindActiveInvitation(ctx, invitation.Code)
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", found.Email)
	require.Equal(t, models.RoleStudent, found.Role)

	has, err := s.HasUnexpiredInvitationForEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	require.True(t, has)

	clock.Advance(16 * time.Minute)

	_, err = s.FindActiveInvitation(ctx, invitation.Code)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	has, err = s.HasUnexpiredInvitationForEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	require.False(t, has)

	purged, err := s.PurgeExpiredInvitations(ctx, "bob@example.com")
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	consumed, err := s.ConsumeInvitation(ctx, invitation.Code)
	require.NoError(t, err)
	require.False(t, consumed)
}

func TestInvitationExpiresAtExactInstant(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	invitation, err := s.CreateInvitation(ctx, "erin@example.com", models.RoleStaff)
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	_, err = s.FindActiveInvitation(ctx, invitation.Code)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConsumeInvitationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	invitation, err := s.CreateInvitation(ctx, "Bob@Example.com ", models.RoleStaff)
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", invitation.Email)

	consumed, err := s.ConsumeInvitation(ctx, invitation.Code)
	require.NoError(t, err)
	require.True(t, consumed)

	consumed, err = s.ConsumeInvitation(ctx, invitation.Code)
	require.NoError(t, err)
	require.False(t, consumed)
}

func TestClaimInvitationSucceedsOnce(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithCodeGenerator(func() (string, error) { return "ab12cd", nil }))

	invitation, err := s.CreateInvitation(ctx, "bob@example.com", models.RoleStudent)
	require.NoError(t, err)
	require.Equal(t, "AB12CD", invitation.Code)

	found, err := s.FindActiveInvitation(ctx, "ab12cd")
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", found.Email)

	claimed, err := s.ClaimInvitation(ctx, "Ab12Cd")
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, claimed.Role)

	_, err = s.ClaimInvitation(ctx, "AB12CD")
	require.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestClaimInvitationRejectsExpiredCode(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	invitation, err := s.CreateInvitation(ctx, "bob@example.com", models.RoleStaff)
	require.NoError(t, err)

	clock.Advance(DefaultInvitationTTL)
	_, err = s.ClaimInvitation(ctx, invitation.Code)
	require.ErrorIs(t, err, ErrInvitationNotFound)

	purged, err := s.PurgeAllExpiredInvitations(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)
}

func TestClaimInvitationRollsBackWithTransaction(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	invitation, err := s.CreateInvitation(ctx, "bob@example.com", models.RoleStudent)
	require.NoError(t, err)

	failure := errors.New("account insert failed")
	err = s.WithinTransaction(ctx, func(tx *Store) error {
		if _, err := tx.ClaimInvitation(ctx, invitation.Code); err != nil {
			return err
		}
		return failure
	})
	require.ErrorIs(t, err, failure)

	_, err = s.FindActiveInvitation(ctx, invitation.Code)
	require.NoError(t, err)
}

func TestCreateInvitationRejectsUnknownRole(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.CreateInvitation(context.Background(), "bob@example.com", models.Role("Guest"))
	require.True(t, apperrors.IsValidation(err))
}

func TestCreateInvitationRetriesCollisions(t *testing.T) {
	ctx := context.Background()
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	var calls int
	gen := func() (string, error) {
		code := codes[calls]
		calls++
		return code, nil
	}
	s, _ := newTestStore(t, WithCodeGenerator(gen))

	first, err := s.CreateInvitation(ctx, "a@example.com", models.RoleStudent)
	require.NoError(t, err)
	require.Equal(t, "AAAAAA", first.Code)

	second, err := s.CreateInvitation(ctx, "b@example.com", models.RoleStudent)
	require.NoError(t, err)
	require.Equal(t, "BBBBBB", second.Code)
	require.Equal(t, 3, calls)
}

func TestCreateInvitationGivesUpAfterRepeatedCollisions(t *testing.T) {
	ctx := context.Background()
	var calls int
	s, _ := newTestStore(t, WithCodeGenerator(func() (string, error) {
		calls++
		return "SAME01", nil
	}))

	_, err := s.CreateInvitation(ctx, "a@example.com", models.RoleStudent)
	require.NoError(t, err)

	_, err = s.CreateInvitation(ctx, "b@example.com", models.RoleStudent)
	require.ErrorIs(t, err, apperrors.ErrDuplicateKey)
	require.Equal(t, 1+maxInvitationAttempts, calls)
}

func TestCreateInvitationSurfacesGeneratorFailure(t *testing.T) {
	s, _ := newTestStore(t, WithCodeGenerator(func() (string, error) {
		return "", errors.New("entropy exhausted")
	}))
	_, err := s.CreateInvitation(context.Background(), "a@example.com", models.RoleStudent)
	require.ErrorIs(t, err, apperrors.ErrStorageFault)
}

func TestPurgeAllExpiredInvitations(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	for i := 0; i < 3; i++ {
		_, err := s.CreateInvitation(ctx, fmt.Sprintf("user%d@example.com", i), models.RoleStudent)
		require.NoError(t, err)
	}
	clock.Advance(10 * time.Minute)
	_, err := s.CreateInvitation(ctx, "late@example.com", models.RoleStaff)
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)

	active, err := s.CountActiveInvitations(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, active)

	purged, err := s.PurgeAllExpiredInvitations(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, purged)
}

func TestPostRoundTripAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	id, err := s.CreatePost(ctx, "carol", "Hi", "Hello world", models.ThreadGeneral)
	require.NoError(t, err)
	require.EqualValues(t, 1, id)

	post, err := s.GetPost(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "carol", post.AuthorUsername)
	require.Equal(t, "Hi", post.Title)
	require.Equal(t, "Hello world", post.Body)
	require.Equal(t, models.ThreadGeneral, post.Thread)
	require.False(t, post.IsDeleted)
	created := post.CreatedAt

	clock.Advance(time.Minute)
	ok, err := s.UpdatePost(ctx, id, "Hi again", "Edited")
	require.NoError(t, err)
	require.True(t, ok)

	post, err = s.GetPost(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Edited", post.Body)
	require.True(t, post.UpdatedAt.After(created))
	require.True(t, post.CreatedAt.Equal(created))

	replyID, err := s.CreateReply(ctx, id, "dave", "First!")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ok, err = s.SoftDeletePost(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
	}

	post, err = s.GetPost(ctx, id)
	require.NoError(t, err)
	require.True(t, post.IsDeleted)

	reply, err := s.GetReply(ctx, replyID)
	require.NoError(t, err)
	require.Equal(t, id, reply.PostID)

	ok, err = s.SoftDeletePost(ctx, 999)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCreatePostRejectsUnknownThread(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.CreatePost(context.Background(), "carol", "t", "b", models.Thread("Random"))
	require.True(t, apperrors.IsValidation(err))
}

func TestListPostsOrderingAndFilters(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	first, err := s.CreatePost(ctx, "carol", "One", "body", models.ThreadGeneral)
	require.NoError(t, err)
	clock.Advance(time.Second)
	second, err := s.CreatePost(ctx, "dave", "Two", "body", models.ThreadLectures)
	require.NoError(t, err)
	clock.Advance(time.Second)
	third, err := s.CreatePost(ctx, "carol", "Three", "body", models.ThreadGeneral)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = s.UpdatePost(ctx, first, "One", "edited")
	require.NoError(t, err)
	_, err = s.SoftDeletePost(ctx, third)
	require.NoError(t, err)

	posts, err := s.ListPosts(ctx, PostFilter{})
	require.NoError(t, err)
	require.Equal(t, []uint{first, second}, postIDs(posts))

	posts, err = s.ListPosts(ctx, PostFilter{IncludeDeleted: true})
	require.NoError(t, err)
	require.Equal(t, []uint{third, first, second}, postIDs(posts))

	posts, err = s.ListPosts(ctx, PostFilter{Author: "carol", IncludeDeleted: true, Thread: "General"})
	require.NoError(t, err)
	require.Equal(t, []uint{third, first}, postIDs(posts))

	posts, err = s.ListPosts(ctx, PostFilter{Thread: models.AllThreads})
	require.NoError(t, err)
	require.Len(t, posts, 2)

	_, err = s.ListPosts(ctx, PostFilter{Thread: "Random"})
	require.True(t, apperrors.IsValidation(err))
}

func TestPostIDsAreMonotonic(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var last uint
	for i := 0; i < 5; i++ {
		id, err := s.CreatePost(ctx, "carol", "t", "b", models.ThreadSocial)
		require.NoError(t, err)
		require.Greater(t, id, last)
		last = id
	}
}

func TestReplyLifecycle(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	postID, err := s.CreatePost(ctx, "carol", "Hi", "Hello", models.ThreadGeneral)
	require.NoError(t, err)

	_, err = s.CreateReply(ctx, postID+100, "dave", "lost")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	first, err := s.CreateReply(ctx, postID, "dave", "one")
	require.NoError(t, err)
	second, err := s.CreateReply(ctx, postID, "erin", "two")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	ok, err := s.UpdateReply(ctx, first, "one edited")
	require.NoError(t, err)
	require.True(t, ok)

	replies, err := s.ListReplies(ctx, postID)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	require.Equal(t, first, replies[0].ID)
	require.Equal(t, "one edited", replies[0].Body)
	require.Equal(t, second, replies[1].ID)

	count, err := s.CountReplies(ctx, postID)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	ok, err = s.DeleteReply(ctx, first)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = s.GetReply(ctx, first)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	ok, err = s.DeleteReply(ctx, first)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.UpdateReply(ctx, first, "ghost")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeletedAuthorRowsRemainQueryable(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "carol", Password: "hash"}))
	postID, err := s.CreatePost(ctx, "carol", "Hi", "Hello", models.ThreadGeneral)
	require.NoError(t, err)
	replyID, err := s.CreateReply(ctx, postID, "carol", "self reply")
	require.NoError(t, err)

	_, err = s.DeleteUser(ctx, "carol")
	require.NoError(t, err)

	_, err = s.GetPost(ctx, postID)
	require.NoError(t, err)
	_, err = s.GetReply(ctx, replyID)
	require.NoError(t, err)
}

func TestWithinTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	sentinel := apperrors.NewForbidden("stop")
	err := s.WithinTransaction(ctx, func(tx *Store) error {
		require.NoError(t, tx.CreateUser(ctx, &models.User{Username: "ghost", Password: "hash"}))
		return sentinel
	})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = s.FindUser(ctx, "ghost")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStorageFaultWhenDatabaseClosed(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, database.Close(s.db))

	_, err := s.CountUsers(ctx)
	require.ErrorIs(t, err, apperrors.ErrStorageFault)
	require.Equal(t, "Operation failed", apperrors.UserMessage(err))
}

func postIDs(posts []models.Post) []uint {
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}
