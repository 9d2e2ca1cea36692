package handlers

import (
	"fmt"
	"strings"

	"feedstream/internal/apperror"
	"feedstream/internal/middleware"
	"feedstream/internal/models"
	"feedstream/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for signup, signin, and the user
// status field.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the auth routes. The status endpoints sit
// behind the bearer-token guard; signup and signin are public.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, authGuard fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Put("/signup", h.HandleSignup)
	authRoutes.Post("/signin", h.HandleSignin)
	authRoutes.Get("/status", authGuard, h.HandleGetStatus)
	authRoutes.Patch("/status", authGuard, h.HandleUpdateStatus)
}

// SignupRequest represents the request body for signup.
type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
}

// HandleSignup handles new user registration.
func (h *AuthHandler) HandleSignup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Invalid request body", nil)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Password = strings.TrimSpace(req.Password)

	if err := h.validate.Struct(req); err != nil {
		return apperror.Validation("Validations failed!", validationDetail(err))
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}
	if err := h.authService.Register(&user); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully!",
		"userId":  user.ID,
	})
}

// SigninRequest represents the request body for signin.
type SigninRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleSignin verifies credentials and issues a bearer token.
func (h *AuthHandler) HandleSignin(c *fiber.Ctx) error {
	var req SigninRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Invalid request body", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		return apperror.Unauthorized("Authentication failed")
	}

	creds, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(creds)
}

// HandleGetStatus returns the caller's status line.
func (h *AuthHandler) HandleGetStatus(c *fiber.Ctx) error {
	status, err := h.authService.GetStatus(middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": status})
}

// StatusRequest represents the request body for a status update.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleUpdateStatus replaces the caller's status line.
func (h *AuthHandler) HandleUpdateStatus(c *fiber.Ctx) error {
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Invalid request body", nil)
	}
	req.Status = strings.TrimSpace(req.Status)
	if err := h.validate.Struct(req); err != nil {
		return apperror.Validation("Validations failed!", validationDetail(err))
	}

	if err := h.authService.UpdateStatus(middleware.UserID(c), req.Status); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Status updated successfully!"})
}

// validationDetail flattens validator errors into field→message pairs
// for the error response's data payload.
func validationDetail(err error) map[string]string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	detail := make(map[string]string)
	for _, e := range validationErrors {
		detail[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return detail
}
