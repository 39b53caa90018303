package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/studyhall/internal/models"
)

func TestSearchServiceMatchesPostsAndReplies(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createUser(t, "carol", models.RoleStudent)

	lecture, err := env.forum.CreatePost(ctx, "carol", "Lecture 3 recap", "Slides covered Recursion and trees.", "Lectures")
	require.NoError(t, err)
	env.clock.Advance(time.Minute)

	social, err := env.forum.CreatePost(ctx, "carol", "Pizza night", "Friday at seven.", "Social")
	require.NoError(t, err)
	replyID, err := env.forum.CreateReply(ctx, social, "carol", "Bring notes on recursion please")
	require.NoError(t, err)
	env.clock.Advance(time.Minute)

	_, err = env.forum.CreatePost(ctx, "carol", "Unrelated", "Nothing to see.", "General")
	require.NoError(t, err)

	results, err := env.search.Search(ctx, "RECURSION", models.AllThreads)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Equal(t, social, results[0].Post.ID)
	require.Equal(t, MatchReply, results[0].MatchType)
	require.Equal(t, replyID, results[0].ReplyID)

	require.Equal(t, lecture, results[1].Post.ID)
	require.Equal(t, MatchPost, results[1].MatchType)
	require.Zero(t, results[1].ReplyID)

	results, err = env.search.Search(ctx, "recursion", "Lectures")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, lecture, results[0].Post.ID)
}

func TestSearchServiceIncludesDeletedPosts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createUser(t, "carol", models.RoleStudent)

	id, err := env.forum.CreatePost(ctx, "carol", "Midterm", "Room change", "General")
	require.NoError(t, err)
	require.NoError(t, env.forum.DeletePost(ctx, id))

	results, err := env.search.Search(ctx, "midterm", "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Post.IsDeleted)
}

func TestSearchServiceRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.search.Search(context.Background(), "   ", "")
	require.ErrorIs(t, err, ErrSearchKeywordNeeded)

	_, err = env.search.Search(context.Background(), "x", "Gossip")
	require.Error(t, err)
}

func TestMatchSnippet(t *testing.T) {
	snippet, ok := matchSnippet("short text", "TEXT")
	require.True(t, ok)
	require.Equal(t, "short text", snippet)

	long := "The quick brown fox jumps over the lazy dog\nand keeps running far away"
	snippet, ok = matchSnippet(long, "lazy")
	require.True(t, ok)
	require.Equal(t, "... fox jumps over the lazy dog and keeps runni...", snippet)

	_, ok = matchSnippet(long, "cat")
	require.False(t, ok)

	snippet, ok = matchSnippet("ÉCOLE d'été", "école")
	require.True(t, ok)
	require.Equal(t, "ÉCOLE d'été", snippet)
}
