package services

import (
	"log"
	"mime/multipart"

	"feedstream/internal/apperror"
	"feedstream/internal/models"
	"feedstream/internal/repositories"
	"feedstream/internal/storage"
	"feedstream/pkg/broadcast"
	"feedstream/pkg/rabbitmq"
)

// PageSize is the fixed number of posts per feed page.
const PageSize = 2

// PostService orchestrates the post lifecycle: paginated listing,
// creation with an attached image, ownership-checked edit/delete, the
// backing image file's lifecycle, and change notifications.
type PostService struct {
	postRepo repositories.PostRepository
	userRepo repositories.UserRepository
	images   *storage.ImageStore
	hub      *broadcast.Hub
	mqClient *rabbitmq.Client
}

// NewPostService creates a new PostService. hub and mqClient may be
// nil; publishing then becomes a no-op for that channel.
func NewPostService(
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	images *storage.ImageStore,
	hub *broadcast.Hub,
	mqClient *rabbitmq.Client,
) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		images:   images,
		hub:      hub,
		mqClient: mqClient,
	}
}

// eventPost is the broadcast payload: the post fields plus a creator
// summary limited to id and name.
type eventPost struct {
	models.Post
	Creator models.PublicProfile `json:"creator"`
}

// ListPosts returns one page of the feed, newest first, together with
// the total number of posts. An empty feed is an empty page, not an
// error.
func (s *PostService) ListPosts(page int) ([]models.Post, int64, error) {
	if page < 1 {
		page = 1
	}

	total, err := s.postRepo.Count()
	if err != nil {
		return nil, 0, err
	}

	posts, err := s.postRepo.List((page-1)*PageSize, PageSize)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// CreatePost stores the image, persists the post under the creator's
// id, and notifies connected clients.
func (s *PostService) CreatePost(creatorID, title, content string, image *multipart.FileHeader) (*models.Post, *models.User, error) {
	if image == nil {
		return nil, nil, apperror.Validation("Image is missing!", nil)
	}

	creator, err := s.userRepo.GetByID(creatorID)
	if err != nil {
		return nil, nil, err
	}

	imageURL, err := s.images.Save(image)
	if err != nil {
		return nil, nil, err
	}

	post := &models.Post{
		Title:     title,
		Content:   content,
		ImageURL:  imageURL,
		CreatorID: creatorID,
	}
	if err := s.postRepo.Create(post); err != nil {
		// The post never existed, so its image must not linger.
		s.images.Remove(imageURL)
		return nil, nil, err
	}
	post.Creator = creator

	s.publish(broadcast.Event{
		Action: "create",
		Post:   eventPost{Post: *post, Creator: creator.Public()},
	})
	return post, creator, nil
}

// GetPost returns a single post by id.
func (s *PostService) GetPost(postID string) (*models.Post, error) {
	return s.postRepo.GetByID(postID)
}

// EditPost updates title, content, and image of the requester's own
// post. The image resolves from a fresh upload or, absent one, from
// the existing reference the client sends back. A replaced image file
// is removed best-effort.
func (s *PostService) EditPost(requesterID, postID, title, content string, image *multipart.FileHeader, imageURL string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(postID)
	if err != nil {
		return nil, err
	}
	if post.CreatorID != requesterID {
		return nil, apperror.Forbidden("Unauthorized to edit post!")
	}

	if image != nil {
		imageURL, err = s.images.Save(image)
		if err != nil {
			return nil, err
		}
	}
	if imageURL == "" {
		return nil, apperror.Validation("No file picked!", nil)
	}
	if imageURL != post.ImageURL {
		s.images.Remove(post.ImageURL)
	}

	creator := post.Creator
	post.Title = title
	post.Content = content
	post.ImageURL = imageURL
	if err := s.postRepo.Update(post); err != nil {
		return nil, err
	}
	post.Creator = creator

	event := broadcast.Event{Action: "update", Post: *post}
	if creator != nil {
		event.Post = eventPost{Post: *post, Creator: creator.Public()}
	}
	s.publish(event)
	return post, nil
}

// DeletePost removes the requester's own post together with its image
// file and notifies connected clients with the deleted id.
func (s *PostService) DeletePost(requesterID, postID string) error {
	post, err := s.postRepo.GetByID(postID)
	if err != nil {
		return err
	}
	if post.CreatorID != requesterID {
		return apperror.Forbidden("Unauthorized to edit post!")
	}

	s.images.Remove(post.ImageURL)
	if err := s.postRepo.Delete(postID); err != nil {
		return err
	}

	s.publish(broadcast.Event{Action: "delete", PostID: postID})
	return nil
}

// publish fans the event out to websocket clients and, when a broker
// is configured, to the post-events queue. Neither delivery failing is
// fatal to the request that triggered it.
func (s *PostService) publish(event broadcast.Event) {
	if s.hub != nil {
		s.hub.Publish(event)
	}
	if s.mqClient != nil {
		if err := s.mqClient.PublishPostEvent(event); err != nil {
			log.Printf("Failed to publish post event to broker: %v", err)
		}
	}
}
