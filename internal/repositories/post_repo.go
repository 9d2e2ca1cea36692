package repositories

import (
	"feedstream/internal/models"
)

// PostRepository defines the interface for post data access.
type PostRepository interface {
	// List returns posts ordered by creation time descending with the
	// creator loaded, skipping offset rows and returning at most limit.
	List(offset, limit int) ([]models.Post, error)
	Count() (int64, error)
	GetByID(id string) (*models.Post, error)
	Create(post *models.Post) error
	Update(post *models.Post) error
	Delete(id string) error
}
