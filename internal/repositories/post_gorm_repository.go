package repositories

import (
	"errors"
	"fmt"

	"feedstream/internal/apperror"
	"feedstream/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMPostRepository is a GORM implementation of PostRepository.
type GORMPostRepository struct {
	db *gorm.DB
}

// NewGORMPostRepository creates a new instance of GORMPostRepository.
func NewGORMPostRepository(db *gorm.DB) *GORMPostRepository {
	return &GORMPostRepository{
		db: db,
	}
}

// List retrieves a page of posts, newest first, with creators preloaded.
func (r *GORMPostRepository) List(offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.Preload("Creator").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// Count returns the total number of posts.
func (r *GORMPostRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&models.Post{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

// GetByID retrieves a single post with its creator loaded.
func (r *GORMPostRepository) GetByID(id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.Preload("Creator").First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFoundMsg("Post not found!")
		}
		return nil, fmt.Errorf("failed to get post by ID %s: %w", id, err)
	}
	return &post, nil
}

// Create inserts a new post. The creator relation is a foreign key, so
// the owner's post set and the post row change in one atomic write.
func (r *GORMPostRepository) Create(post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if err := r.db.Create(post).Error; err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// Update persists changed post fields.
func (r *GORMPostRepository) Update(post *models.Post) error {
	// Detach the preloaded creator so Save does not upsert the user row.
	post.Creator = nil
	res := r.db.Save(post)
	if res.Error != nil {
		return fmt.Errorf("failed to update post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFoundMsg("Post not found!")
	}
	return nil
}

// Delete removes a post by its ID.
func (r *GORMPostRepository) Delete(id string) error {
	res := r.db.Delete(&models.Post{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFoundMsg("Post not found!")
	}
	return nil
}
