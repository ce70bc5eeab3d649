package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/Sapan02206/VendorGo/database"
	"github.com/Sapan02206/VendorGo/internal/models"
	"github.com/Sapan02206/VendorGo/internal/routes"
	"github.com/Sapan02206/VendorGo/internal/services"
	"github.com/Sapan02206/VendorGo/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	// Initialize storage
	var store storage.Store

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		if err := database.DB.AutoMigrate(
			&models.Vendor{},
			&models.Product{},
		); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}

	// Session state: in-memory by default, Redis when configured so
	// onboarding survives a restart.
	var sessionStore services.SessionStore
	if os.Getenv("SESSION_STORE") == "redis" {
		redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
		rs, err := services.NewRedisSessionStore(
			getEnvDefault("REDIS_ADDR", "localhost:6379"),
			os.Getenv("REDIS_PASSWORD"),
			redisDB,
		)
		if err != nil {
			log.Fatal("Failed to connect to Redis session store:", err)
		}
		sessionStore = rs
		log.Println("✅ Using Redis session storage")
	} else {
		sessionStore = services.NewMemorySessionStore()
		log.Println("✅ Using in-memory session storage")
	}

	sessionManager := services.NewSessionManager(sessionStore)

	// Initialize Twilio transport (optional in local development)
	twilioService, err := services.NewTwilioService()
	if err != nil {
		log.Printf("⚠️  Twilio not configured - replies will only be logged: %v", err)
		twilioService = nil
	} else {
		log.Println("✅ Twilio service initialized")
	}

	// The conversational bot itself
	bot := services.NewWhatsAppService(store, sessionManager)

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "VendorGo Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	routes.SetupRoutes(app, store, sessionManager, bot, twilioService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 VendorGo Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", storageType())
	log.Printf("📱 WhatsApp: %s", whatsappStatus(twilioService))
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func getEnvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func storageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func whatsappStatus(twilioService *services.TwilioService) string {
	if twilioService == nil {
		return "Not configured"
	}
	return "Configured"
}
