package repositories

import (
	"sort"
	"sync"
	"time"

	"feedstream/internal/apperror"
	"feedstream/internal/models"

	"github.com/google/uuid"
)

// MockPostRepository is an in-memory implementation of PostRepository.
type MockPostRepository struct {
	posts map[string]models.Post
	mu    sync.RWMutex
}

// NewMockPostRepository creates a new instance of MockPostRepository.
func NewMockPostRepository() *MockPostRepository {
	return &MockPostRepository{
		posts: make(map[string]models.Post),
	}
}

// List returns a page of posts ordered by creation time descending.
func (r *MockPostRepository) List(offset, limit int) ([]models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]models.Post, 0, len(r.posts))
	for _, p := range r.posts {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []models.Post{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// Count returns the number of stored posts.
func (r *MockPostRepository) Count() (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.posts)), nil
}

// GetByID returns a post by its ID.
func (r *MockPostRepository) GetByID(id string) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, apperror.NotFoundMsg("Post not found!")
	}
	return &post, nil
}

// Create adds a new post.
func (r *MockPostRepository) Create(post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	post.UpdatedAt = time.Now()
	r.posts[post.ID] = *post
	return nil
}

// Update modifies an existing post.
func (r *MockPostRepository) Update(post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[post.ID]; !ok {
		return apperror.NotFoundMsg("Post not found!")
	}
	post.UpdatedAt = time.Now()
	r.posts[post.ID] = *post
	return nil
}

// Delete removes a post by its ID.
func (r *MockPostRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return apperror.NotFoundMsg("Post not found!")
	}
	delete(r.posts, id)
	return nil
}
