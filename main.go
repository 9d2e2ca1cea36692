package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"feedstream/internal/handlers"
	"feedstream/internal/middleware"
	"feedstream/internal/models"
	"feedstream/internal/repositories"
	"feedstream/internal/services"
	"feedstream/internal/storage"
	"feedstream/pkg/broadcast"
	"feedstream/pkg/rabbitmq"
)

// newApp wires repositories, services, and handlers onto a Fiber app.
// The hub and broker client are owned by the caller; mqClient may be
// nil when no broker is configured.
func newApp(db *gorm.DB, hub *broadcast.Hub, mqClient *rabbitmq.Client, jwtSecret, imageDir string) (*fiber.App, error) {
	if err := db.AutoMigrate(&models.User{}, &models.Post{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	images, err := storage.NewImageStore(imageDir)
	if err != nil {
		return nil, err
	}

	userRepo := repositories.NewGORMUserRepository(db)
	postRepo := repositories.NewGORMPostRepository(db)

	authService := services.NewAuthService(userRepo, jwtSecret)
	postService := services.NewPostService(postRepo, userRepo, images, hub, mqClient)

	authHandler := handlers.NewAuthHandler(authService)
	feedHandler := handlers.NewFeedHandler(postService)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
	})
	app.Use(logger.New())

	authGuard := middleware.AuthRequired(authService)
	authHandler.RegisterRoutes(app, authGuard)
	feedHandler.RegisterRoutes(app, authGuard)

	// Uploaded images are addressed by the imageUrl stored on each post.
	app.Static("/assets/images", imageDir)

	// Real-time feed updates.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(hub.ServeWS))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "healthy",
			"time":    time.Now().Format(time.RFC3339),
			"clients": hub.ClientCount(),
		})
	})

	return app, nil
}

func main() {
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=feedstream port=5432 sslmode=disable")
	viper.SetDefault("JWT_SECRET", "supersecretkey")
	viper.SetDefault("IMAGE_DIR", "assets/images")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.AutomaticEnv()

	db, err := gorm.Open(postgres.Open(viper.GetString("DATABASE_DSN")), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// The one hub for this process; every mutation fans out through it.
	hub := broadcast.NewHub()

	var mqClient *rabbitmq.Client
	if url := viper.GetString("RABBITMQ_URL"); url != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: url})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()

		if err := mqClient.ConsumePostEvents(func(msg amqp.Delivery) error {
			log.Printf("Post event (tag %d): %s", msg.DeliveryTag, string(msg.Body))
			return nil
		}); err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
	}

	app, err := newApp(db, hub, mqClient, viper.GetString("JWT_SECRET"), viper.GetString("IMAGE_DIR"))
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	appPort := viper.GetString("APP_PORT")
	log.Printf("Starting server on port %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}
