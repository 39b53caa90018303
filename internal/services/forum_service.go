package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/studyhall/internal/models"
	"github.com/charlesng35/studyhall/internal/store"
	apperrors "github.com/charlesng35/studyhall/pkg/errors"
	"github.com/charlesng35/studyhall/pkg/logger"
	"github.com/charlesng35/studyhall/pkg/metrics"
	"github.com/charlesng35/studyhall/pkg/validator"
)

// ForumService applies the post and reply rules on top of the record store.
//
// It validates content and guards the deleted-post invariant, but it does not know who is
// calling: ownership is a precondition the caller checks first, for example with
// AuthorizePostChange and AuthorizeReplyChange.
type ForumService struct {
	store *store.Store
	log   *zap.Logger
}

// NewForumService constructs a ForumService.
func NewForumService(st *store.Store) (*ForumService, error) {
	if st == nil {
		return nil, errors.New("forum service: store is required")
	}
	return &ForumService{store: st, log: logger.WithModule("forum")}, nil
}

// CreatePost validates and stores a post. A blank thread files it under General.
func (s *ForumService) CreatePost(ctx context.Context, author, title, body, thread string) (uint, error) {
	ctx = ensureContext(ctx)

	if err := validator.ValidatePostFields(title, body); err != nil {
		return 0, err
	}
	resolved, err := resolveThread(thread)
	if err != nil {
		return 0, err
	}

	id, err := s.store.CreatePost(ctx, strings.TrimSpace(author), strings.TrimSpace(title), strings.TrimSpace(body), resolved)
	if err != nil {
		return 0, wrapUnexpected("forum service", "create post", err)
	}
	metrics.ForumWrites.WithLabelValues("post", "create").Inc()
	return id, nil
}

// UpdatePost validates and replaces title and body. Ownership and deleted state are
// caller preconditions.
func (s *ForumService) UpdatePost(ctx context.Context, id uint, title, body string) error {
	ctx = ensureContext(ctx)

	if err := validator.ValidatePostFields(title, body); err != nil {
		return err
	}
	ok, err := s.store.UpdatePost(ctx, id, strings.TrimSpace(title), strings.TrimSpace(body))
	if err != nil {
		return wrapUnexpected("forum service", "update post", err)
	}
	if !ok {
		return store.ErrPostNotFound
	}
	metrics.ForumWrites.WithLabelValues("post", "update").Inc()
	return nil
}

// DeletePost soft-deletes a post. Deleting an absent or already deleted post is a no-op.
func (s *ForumService) DeletePost(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	ok, err := s.store.SoftDeletePost(ctx, id)
	if err != nil {
		return wrapUnexpected("forum service", "delete post", err)
	}
	if !ok {
		s.log.Debug("soft delete skipped for unknown post", zap.Uint("post_id", id))
		return nil
	}
	metrics.ForumWrites.WithLabelValues("post", "delete").Inc()
	return nil
}

// CreateReply validates the body and stores it unless the parent post is gone or deleted.
func (s *ForumService) CreateReply(ctx context.Context, postID uint, author, body string) (uint, error) {
	ctx = ensureContext(ctx)

	if err := validator.ValidateReplyBody(body); err != nil {
		return 0, err
	}

	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, ErrPostGone
		}
		return 0, wrapUnexpected("forum service", "create reply", err)
	}
	if post.IsDeleted {
		return 0, ErrReplyToDeletedPost
	}

	id, err := s.store.CreateReply(ctx, postID, strings.TrimSpace(author), strings.TrimSpace(body))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, ErrPostGone
		}
		return 0, wrapUnexpected("forum service", "create reply", err)
	}
	metrics.ForumWrites.WithLabelValues("reply", "create").Inc()
	return id, nil
}

// UpdateReply validates and replaces a reply body, whatever the state of its post.
func (s *ForumService) UpdateReply(ctx context.Context, id uint, body string) error {
	ctx = ensureContext(ctx)

	if err := validator.ValidateReplyBody(body); err != nil {
		return err
	}
	ok, err := s.store.UpdateReply(ctx, id, strings.TrimSpace(body))
	if err != nil {
		return wrapUnexpected("forum service", "update reply", err)
	}
	if !ok {
		return store.ErrReplyNotFound
	}
	metrics.ForumWrites.WithLabelValues("reply", "update").Inc()
	return nil
}

// DeleteReply removes a reply permanently. Absent replies are a no-op.
func (s *ForumService) DeleteReply(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	ok, err := s.store.DeleteReply(ctx, id)
	if err != nil {
		return wrapUnexpected("forum service", "delete reply", err)
	}
	if ok {
		metrics.ForumWrites.WithLabelValues("reply", "delete").Inc()
	}
	return nil
}

// GetPost returns a post, deleted or not.
func (s *ForumService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.store.GetPost(ensureContext(ctx), id)
}

// ListPosts lists posts most recently updated first.
func (s *ForumService) ListPosts(ctx context.Context, filter store.PostFilter) ([]models.Post, error) {
	return s.store.ListPosts(ensureContext(ctx), filter)
}

// ListReplies lists the replies of a post, oldest first.
func (s *ForumService) ListReplies(ctx context.Context, postID uint) ([]models.Reply, error) {
	return s.store.ListReplies(ensureContext(ctx), postID)
}

// PostThread is a post together with its replies.
type PostThread struct {
	Post    models.Post
	Replies []models.Reply
}

// GetThread loads a post and its replies.
func (s *ForumService) GetThread(ctx context.Context, postID uint) (*PostThread, error) {
	ctx = ensureContext(ctx)

	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	replies, err := s.store.ListReplies(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &PostThread{Post: *post, Replies: replies}, nil
}

// AuthorizePostChange checks that actor wrote the post and that it is still live.
func (s *ForumService) AuthorizePostChange(ctx context.Context, id uint, actor string) (*models.Post, error) {
	post, err := s.store.GetPost(ensureContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if post.AuthorUsername != strings.TrimSpace(actor) {
		return nil, ErrNotPostAuthor
	}
	if post.IsDeleted {
		return nil, ErrPostDeleted
	}
	return post, nil
}

// AuthorizeReplyChange checks that actor wrote the reply. The parent post may be deleted.
func (s *ForumService) AuthorizeReplyChange(ctx context.Context, id uint, actor string) (*models.Reply, error) {
	reply, err := s.store.GetReply(ensureContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if reply.AuthorUsername != strings.TrimSpace(actor) {
		return nil, ErrNotReplyAuthor
	}
	return reply, nil
}
