package handlers

import (
	"mime/multipart"
	"strings"

	"feedstream/internal/apperror"
	"feedstream/internal/middleware"
	"feedstream/internal/services"
	"feedstream/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// FeedHandler handles HTTP requests for the post collection.
type FeedHandler struct {
	postService *services.PostService
	validate    *validator.Validate
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(postService *services.PostService) *FeedHandler {
	return &FeedHandler{
		postService: postService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the feed routes, all behind the guard.
func (h *FeedHandler) RegisterRoutes(router fiber.Router, authGuard fiber.Handler) {
	feedRoutes := router.Group("/feeds", authGuard)
	feedRoutes.Get("/posts", h.HandleFetchPosts)
	feedRoutes.Post("/post", h.HandleCreatePost)
	feedRoutes.Get("/post/:postId", h.HandleFetchPost)
	feedRoutes.Put("/post/:postId", h.HandleEditPost)
	feedRoutes.Delete("/post/:postId", h.HandleDeletePost)
}

// HandleFetchPosts returns one page of the feed.
func (h *FeedHandler) HandleFetchPosts(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)

	posts, total, err := h.postService.ListPosts(page)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"posts":      posts,
		"totalItems": total,
	})
}

// PostRequest carries the validated form fields of a create or edit.
type PostRequest struct {
	Title   string `validate:"required,min=5"`
	Content string `validate:"required,min=5"`
}

// HandleCreatePost publishes a new post with its image attachment.
func (h *FeedHandler) HandleCreatePost(c *fiber.Ctx) error {
	req := PostRequest{
		Title:   strings.TrimSpace(c.FormValue("title")),
		Content: strings.TrimSpace(c.FormValue("content")),
	}
	if err := h.validate.Struct(req); err != nil {
		return apperror.Validation("Validations failed!", validationDetail(err))
	}

	image, err := h.imageFile(c)
	if err != nil {
		return err
	}

	post, creator, err := h.postService.CreatePost(middleware.UserID(c), req.Title, req.Content, image)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Post created successfully!",
		"post":    post,
		"creator": creator.Public(),
	})
}

// HandleFetchPost returns a single post.
func (h *FeedHandler) HandleFetchPost(c *fiber.Ctx) error {
	post, err := h.postService.GetPost(c.Params("postId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"post": post})
}

// HandleEditPost updates a post owned by the caller. The image comes
// from a fresh upload or from the "image" form field carrying the
// existing reference.
func (h *FeedHandler) HandleEditPost(c *fiber.Ctx) error {
	req := PostRequest{
		Title:   strings.TrimSpace(c.FormValue("title")),
		Content: strings.TrimSpace(c.FormValue("content")),
	}
	if err := h.validate.Struct(req); err != nil {
		return apperror.Validation("Validations failed!", validationDetail(err))
	}

	image, err := h.imageFile(c)
	if err != nil {
		return err
	}

	post, err := h.postService.EditPost(
		middleware.UserID(c),
		c.Params("postId"),
		req.Title,
		req.Content,
		image,
		c.FormValue("image"),
	)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Post updated successfully!",
		"post":    post,
	})
}

// HandleDeletePost removes a post owned by the caller.
func (h *FeedHandler) HandleDeletePost(c *fiber.Ctx) error {
	if err := h.postService.DeletePost(middleware.UserID(c), c.Params("postId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully!"})
}

// imageFile pulls the optional multipart image out of the request and
// rejects disallowed extensions before anything touches the service.
func (h *FeedHandler) imageFile(c *fiber.Ctx) (*multipart.FileHeader, error) {
	image, err := c.FormFile("image")
	if err != nil {
		// No file attached; create treats that as a validation error,
		// edit falls back to the existing reference.
		return nil, nil
	}
	if !storage.ValidExtension(image.Filename) {
		return nil, apperror.Validation("Only images are allowed", nil)
	}
	return image, nil
}
