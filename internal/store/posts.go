package store

import (
	"context"

	"github.com/charlesng35/studyhall/internal/models"
	apperrors "github.com/charlesng35/studyhall/pkg/errors"
)

// PostFilter narrows ListPosts. Zero values select every live post in every thread.
type PostFilter struct {
	Author         string
	IncludeDeleted bool
	Thread         string
}

// CreatePost stores a post and returns its identifier.
func (s *Store) CreatePost(ctx context.Context, author, title, body string, thread models.Thread) (uint, error) {
	now := s.Now()
	post := models.Post{
		AuthorUsername: author,
		Title:          title,
		Body:           body,
		Thread:         thread,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := models.Validate(&post, "Post requires an author and a known thread."); err != nil {
		return 0, err
	}

	if err := s.conn(ctx).Create(&post).Error; err != nil {
		return 0, s.fault("post.create", err)
	}
	return post.ID, nil
}

// GetPost loads a post whether or not it is soft-deleted.
func (s *Store) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	result := s.conn(ctx).Where("id = ?", id).Limit(1).Find(&post)
	if result.Error != nil {
		return nil, s.fault("post.get", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrPostNotFound
	}
	return &post, nil
}

// ListPosts returns posts matching filter, most recently updated first.
func (s *Store) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	query := s.conn(ctx).Model(&models.Post{})
	if filter.Author != "" {
		query = query.Where("author_username = ?", filter.Author)
	}
	if !filter.IncludeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	if !models.IsAllThreads(filter.Thread) {
		thread, ok := models.ParseThread(filter.Thread)
		if !ok {
			return nil, apperrors.NewValidation("Unknown thread.")
		}
		query = query.Where("thread = ?", thread)
	}

	var posts []models.Post
	if err := query.Order("updated_at DESC").Order("id DESC").Find(&posts).Error; err != nil {
		return nil, s.fault("post.list", err)
	}
	return posts, nil
}

// UpdatePost replaces title and body and bumps the update timestamp.
func (s *Store) UpdatePost(ctx context.Context, id uint, title, body string) (bool, error) {
	return s.updatePost(ctx, "post.update", id, map[string]interface{}{
		"title": title,
		"body":  body,
	})
}

// SoftDeletePost flags the post as deleted. Replies are untouched and repeated calls succeed.
func (s *Store) SoftDeletePost(ctx context.Context, id uint) (bool, error) {
	return s.updatePost(ctx, "post.soft_delete", id, map[string]interface{}{
		"is_deleted": true,
	})
}

func (s *Store) updatePost(ctx context.Context, op string, id uint, updates map[string]interface{}) (bool, error) {
	updates["updated_at"] = s.Now()
	result := s.conn(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return false, s.fault(op, result.Error)
	}
	return result.RowsAffected > 0, nil
}
