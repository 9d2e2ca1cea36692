package services

import (
	"errors"
	"fmt"
	"time"

	"feedstream/internal/apperror"
	"feedstream/internal/models"
	"feedstream/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// AuthService handles business logic for registration, sign-in, token
// issue/verification, and the user status field.
type AuthService struct {
	userRepo  repositories.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  time.Hour,
	}
}

// Credentials is the payload returned on a successful sign-in.
type Credentials struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	ExpiresIn int    `json:"expiresIn"`
}

// Register stores a new user with a one-way hashed password. A reused
// email fails validation; the plaintext password is never persisted.
func (s *AuthService) Register(user *models.User) error {
	if existing, err := s.userRepo.GetByEmail(user.Email); err == nil && existing != nil {
		return apperror.Validation("E-mail ID already exists!", nil)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)

	if err := s.userRepo.Create(user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

// Login verifies the credentials and issues a signed bearer token
// carrying the user's email and id, valid for one hour.
func (s *AuthService) Login(email, password string) (*Credentials, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, apperror.Unauthorized("User with this Email ID doesn't exist")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperror.Unauthorized("Password is incorrect!")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":  user.Email,
		"userId": user.ID,
		"exp":    now.Add(s.tokenTTL).Unix(),
		"iat":    now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &Credentials{
		Token:     tokenString,
		UserID:    user.ID,
		ExpiresIn: int(s.tokenTTL.Seconds()),
	}, nil
}

// ValidateToken verifies signature and expiry and returns the embedded
// user id. An expired token is an auth fault; a token that cannot be
// decoded at all surfaces as a plain error and maps to a server fault,
// matching the status split the API has always exposed.
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return "", apperror.Unauthorized("Token expired!")
		}
		return "", fmt.Errorf("error decoding token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", apperror.Unauthorized("Invalid token!")
	}
	userID, ok := claims["userId"].(string)
	if !ok || userID == "" {
		return "", apperror.Unauthorized("Invalid token!")
	}
	return userID, nil
}

// GetStatus returns the user's status line.
func (s *AuthService) GetStatus(userID string) (string, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.NotFoundMsg("User not found!")
		}
		return "", err
	}
	return user.Status, nil
}

// UpdateStatus replaces the user's status line.
func (s *AuthService) UpdateStatus(userID, status string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFoundMsg("User not found!")
		}
		return err
	}
	user.Status = status
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}
