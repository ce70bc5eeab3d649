package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/Sapan02206/VendorGo/internal/handlers"
	"github.com/Sapan02206/VendorGo/internal/middleware"
	"github.com/Sapan02206/VendorGo/internal/services"
	"github.com/Sapan02206/VendorGo/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store storage.Store, sessions *services.SessionManager, bot *services.WhatsAppService, twilioService *services.TwilioService) {
	healthHandler := handlers.NewHealthHandler("1.0.0", store, sessions)
	whatsappHandler := handlers.NewWhatsAppHandler(bot, twilioService)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to VendorGo Backend!",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health":        "/health",
				"status":        "/status",
				"webhook":       "/webhook/whatsapp",
				"test_whatsapp": "/test/whatsapp",
			},
		})
	})

	app.Get("/health", healthHandler.Check)
	app.Get("/status", healthHandler.Status)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		// Development: skip validation for ngrok
		webhooks.Post("/whatsapp", whatsappHandler.HandleWebhook)
		log.Println("⚠️  WhatsApp webhook validation DISABLED for development")
	} else {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(), whatsappHandler.HandleWebhook)
	}

	// Test endpoint for exercising the bot without Twilio
	app.Post("/test/whatsapp", whatsappHandler.HandleTestWebhook)
}
