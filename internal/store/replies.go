package store

import (
	"context"

	"github.com/charlesng35/studyhall/internal/models"
	apperrors "github.com/charlesng35/studyhall/pkg/errors"
)

// CreateReply stores a reply under postID and returns its identifier. The parent post must
// exist, deleted or not; the domain layer decides whether deleted posts accept replies.
func (s *Store) CreateReply(ctx context.Context, postID uint, author, body string) (uint, error) {
	if author == "" {
		return 0, apperrors.NewValidation("Reply requires an author.")
	}

	now := s.Now()
	reply := models.Reply{
		PostID:         postID,
		AuthorUsername: author,
		Body:           body,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.WithinTransaction(ctx, func(tx *Store) error {
		var count int64
		if err := tx.conn(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
			return tx.fault("reply.parent_lookup", err)
		}
		if count == 0 {
			return ErrPostNotFound
		}
		if err := tx.conn(ctx).Create(&reply).Error; err != nil {
			return tx.fault("reply.create", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reply.ID, nil
}

// GetReply loads a reply by identifier.
func (s *Store) GetReply(ctx context.Context, id uint) (*models.Reply, error) {
	var reply models.Reply
	result := s.conn(ctx).Where("id = ?", id).Limit(1).Find(&reply)
	if result.Error != nil {
		return nil, s.fault("reply.get", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrReplyNotFound
	}
	return &reply, nil
}

// ListReplies returns the replies of a post, oldest first.
func (s *Store) ListReplies(ctx context.Context, postID uint) ([]models.Reply, error) {
	var replies []models.Reply
	err := s.conn(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&replies).Error
	if err != nil {
		return nil, s.fault("reply.list", err)
	}
	return replies, nil
}

// CountReplies returns how many replies a post has.
func (s *Store) CountReplies(ctx context.Context, postID uint) (int64, error) {
	var count int64
	if err := s.conn(ctx).Model(&models.Reply{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, s.fault("reply.count", err)
	}
	return count, nil
}

// UpdateReply replaces the body and bumps the update timestamp.
func (s *Store) UpdateReply(ctx context.Context, id uint, body string) (bool, error) {
	result := s.conn(ctx).Model(&models.Reply{}).Where("id = ?", id).Updates(map[string]interface{}{
		"body":       body,
		"updated_at": s.Now(),
	})
	if result.Error != nil {
		return false, s.fault("reply.update", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteReply removes the reply permanently.
func (s *Store) DeleteReply(ctx context.Context, id uint) (bool, error) {
	result := s.conn(ctx).Where("id = ?", id).Delete(&models.Reply{})
	if result.Error != nil {
		return false, s.fault("reply.delete", result.Error)
	}
	return result.RowsAffected > 0, nil
}
