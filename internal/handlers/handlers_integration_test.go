package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"feedstream/internal/handlers"
	"feedstream/internal/middleware"
	"feedstream/internal/models"
	"feedstream/internal/repositories"
	"feedstream/internal/services"
	"feedstream/internal/storage"
	"feedstream/pkg/broadcast"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupApp builds a Fiber app for testing with an isolated in-memory
// SQLite database and all handlers/services wired like main does it.
func setupApp(t *testing.T) (*fiber.App, *broadcast.Hub) {
	t.Helper()

	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}))

	images, err := storage.NewImageStore(t.TempDir())
	require.NoError(t, err)

	userRepo := repositories.NewGORMUserRepository(db)
	postRepo := repositories.NewGORMPostRepository(db)

	hub := broadcast.NewHub()
	authService := services.NewAuthService(userRepo, jwtSecret)
	postService := services.NewPostService(postRepo, userRepo, images, hub, nil)

	authHandler := handlers.NewAuthHandler(authService)
	feedHandler := handlers.NewFeedHandler(postService)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
	})

	authGuard := middleware.AuthRequired(authService)
	authHandler.RegisterRoutes(app, authGuard)
	feedHandler.RegisterRoutes(app, authGuard)

	return app, hub
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func doMultipart(t *testing.T, app *fiber.App, method, path, token string, fields map[string]string, imageName string) (*http.Response, map[string]interface{}) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if imageName != "" {
		part, err := writer.CreateFormFile("image", imageName)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return decoded
}

func signupAndSignin(t *testing.T, app *fiber.App, name, email, password string) (string, string) {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPut, "/auth/signup", "", fiber.Map{
		"name":     name,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	userID := body["userId"].(string)

	resp, body = doJSON(t, app, http.MethodPost, "/auth/signin", "", fiber.Map{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["token"].(string), userID
}

func TestSignupValidation(t *testing.T) {
	app, _ := setupApp(t)

	// Malformed email
	resp, _ := doJSON(t, app, http.MethodPut, "/auth/signup", "", fiber.Map{
		"name":     "Ann",
		"email":    "not-an-email",
		"password": "abcde",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Password below minimum length
	resp, body := doJSON(t, app, http.MethodPut, "/auth/signup", "", fiber.Map{
		"name":     "Ann",
		"email":    "ann@x.com",
		"password": "abcd",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["data"], "Password")

	// Empty name
	resp, _ = doJSON(t, app, http.MethodPut, "/auth/signup", "", fiber.Map{
		"name":     "",
		"email":    "ann@x.com",
		"password": "abcde",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Valid signup, then the same email again
	resp, _ = doJSON(t, app, http.MethodPut, "/auth/signup", "", fiber.Map{
		"name":     "Ann",
		"email":    "ann@x.com",
		"password": "abcde",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPut, "/auth/signup", "", fiber.Map{
		"name":     "Another Ann",
		"email":    "ann@x.com",
		"password": "abcde",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "E-mail ID already exists!", body["message"])
}

func TestSigninFailures(t *testing.T) {
	app, _ := setupApp(t)
	signupAndSignin(t, app, "Ann", "ann@x.com", "abcde")

	resp, _ := doJSON(t, app, http.MethodPost, "/auth/signin", "", fiber.Map{
		"email":    "nobody@x.com",
		"password": "abcde",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/auth/signin", "", fiber.Map{
		"email":    "ann@x.com",
		"password": "wrongpass",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAccessGuard(t *testing.T) {
	app, _ := setupApp(t)

	// Absent credential is a client auth fault.
	resp, body := doJSON(t, app, http.MethodGet, "/feeds/posts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Not authenticated!", body["message"])

	// An undecodable token surfaces as a server-side decode fault.
	resp, _ = doJSON(t, app, http.MethodGet, "/feeds/posts", "garbage-token", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestUserStatus(t *testing.T) {
	app, _ := setupApp(t)
	token, _ := signupAndSignin(t, app, "Ann", "ann@x.com", "abcde")

	resp, body := doJSON(t, app, http.MethodGet, "/auth/status", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "I am new!", body["status"])

	resp, _ = doJSON(t, app, http.MethodPatch, "/auth/status", token, fiber.Map{
		"status": "Hacking away",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/auth/status", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hacking away", body["status"])

	// An empty status fails validation.
	resp, _ = doJSON(t, app, http.MethodPatch, "/auth/status", token, fiber.Map{
		"status": "  ",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestPostLifecycle(t *testing.T) {
	app, hub := setupApp(t)
	annToken, annID := signupAndSignin(t, app, "Ann", "ann@x.com", "abcde")
	bobToken, _ := signupAndSignin(t, app, "Bob", "bob@x.com", "fghij")

	events, cancel := hub.Subscribe()
	defer cancel()

	// Create
	resp, body := doMultipart(t, app, http.MethodPost, "/feeds/post", annToken, map[string]string{
		"title":   "Hello world",
		"content": "First post!",
	}, "valid.png")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := body["post"].(map[string]interface{})
	postID := post["id"].(string)
	assert.Equal(t, annID, post["creatorId"])
	creator := body["creator"].(map[string]interface{})
	assert.Equal(t, "Ann", creator["name"])

	var frame struct {
		Event string `json:"event"`
		Data  struct {
			Action string `json:"action"`
			PostID string `json:"postId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(<-events, &frame))
	assert.Equal(t, "posts", frame.Event)
	assert.Equal(t, "create", frame.Data.Action)

	// Listing carries the post enriched with its creator.
	resp, body = doJSON(t, app, http.MethodGet, "/feeds/posts", bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["totalItems"])
	posts := body["posts"].([]interface{})
	require.Len(t, posts, 1)
	listed := posts[0].(map[string]interface{})
	assert.Equal(t, "Hello world", listed["title"])
	assert.Equal(t, "Ann", listed["creator"].(map[string]interface{})["name"])

	// Fetch one
	resp, body = doJSON(t, app, http.MethodGet, "/feeds/post/"+postID, annToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello world", body["post"].(map[string]interface{})["title"])

	// Bob cannot edit or delete Ann's post.
	resp, _ = doMultipart(t, app, http.MethodPut, "/feeds/post/"+postID, bobToken, map[string]string{
		"title":   "Hijacked post",
		"content": "Bob was here",
		"image":   listed["imageUrl"].(string),
	}, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/feeds/post/"+postID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Ann edits her post, keeping the existing image.
	resp, body = doMultipart(t, app, http.MethodPut, "/feeds/post/"+postID, annToken, map[string]string{
		"title":   "Hello again",
		"content": "Edited post!",
		"image":   listed["imageUrl"].(string),
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello again", body["post"].(map[string]interface{})["title"])

	require.NoError(t, json.Unmarshal(<-events, &frame))
	assert.Equal(t, "update", frame.Data.Action)

	// Ann deletes her post.
	resp, _ = doJSON(t, app, http.MethodDelete, "/feeds/post/"+postID, annToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, json.Unmarshal(<-events, &frame))
	assert.Equal(t, "delete", frame.Data.Action)
	assert.Equal(t, postID, frame.Data.PostID)

	resp, _ = doJSON(t, app, http.MethodGet, "/feeds/post/"+postID, annToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// An empty feed is an empty page, not an error.
	resp, body = doJSON(t, app, http.MethodGet, "/feeds/posts", annToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["totalItems"])
}

func TestCreatePostValidation(t *testing.T) {
	app, _ := setupApp(t)
	token, _ := signupAndSignin(t, app, "Ann", "ann@x.com", "abcde")

	// Title too short
	resp, _ := doMultipart(t, app, http.MethodPost, "/feeds/post", token, map[string]string{
		"title":   "Hey",
		"content": "Long enough content",
	}, "valid.png")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Missing image
	resp, body := doMultipart(t, app, http.MethodPost, "/feeds/post", token, map[string]string{
		"title":   "Hello world",
		"content": "First post!",
	}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Image is missing!", body["message"])

	// Disallowed extension
	resp, body = doMultipart(t, app, http.MethodPost, "/feeds/post", token, map[string]string{
		"title":   "Hello world",
		"content": "First post!",
	}, "evil.exe")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Only images are allowed", body["message"])

	// Nothing was persisted.
	resp, body = doJSON(t, app, http.MethodGet, "/feeds/posts", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["totalItems"])
}

func TestFeedPagination(t *testing.T) {
	app, _ := setupApp(t)
	token, _ := signupAndSignin(t, app, "Ann", "ann@x.com", "abcde")

	titles := []string{"First post title", "Second post title", "Third post title"}
	for _, title := range titles {
		resp, _ := doMultipart(t, app, http.MethodPost, "/feeds/post", token, map[string]string{
			"title":   title,
			"content": "Some post content",
		}, "valid.png")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	collect := func(page string) []string {
		resp, body := doJSON(t, app, http.MethodGet, "/feeds/posts?page="+page, token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 3, body["totalItems"])
		var got []string
		for _, p := range body["posts"].([]interface{}) {
			got = append(got, p.(map[string]interface{})["title"].(string))
		}
		return got
	}

	// Two per page, newest first; no overlap between pages.
	assert.Equal(t, []string{"Third post title", "Second post title"}, collect("1"))
	assert.Equal(t, []string{"First post title"}, collect("2"))

	// The page parameter defaults to 1.
	resp, body := doJSON(t, app, http.MethodGet, "/feeds/posts", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["posts"].([]interface{}), 2)
}
