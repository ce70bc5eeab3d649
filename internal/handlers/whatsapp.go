package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Sapan02206/VendorGo/internal/services"
)

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	bot           *services.WhatsAppService
	twilioService *services.TwilioService
}

// NewWhatsAppHandler creates a new WhatsApp handler. twilioService may be
// nil in local development; replies are then only logged.
func NewWhatsAppHandler(bot *services.WhatsAppService, twilioService *services.TwilioService) *WhatsAppHandler {
	return &WhatsAppHandler{
		bot:           bot,
		twilioService: twilioService,
	}
}

// TwilioWebhookPayload represents an incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid        string `form:"MessageSid"`
	AccountSid        string `form:"AccountSid"`
	From              string `form:"From"` // "whatsapp:+919876543210"
	To                string `form:"To"`
	Body              string `form:"Body"`
	NumMedia          string `form:"NumMedia"`
	MediaUrl0         string `form:"MediaUrl0"`
	MediaContentType0 string `form:"MediaContentType0"`
}

// HandleWebhook processes incoming WhatsApp messages
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	// Status callbacks carry no sender; acknowledge and move on.
	if payload.From == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	log.Printf("📱 WhatsApp message from %s: %s", payload.From, payload.Body)

	msg := services.InboundMessage{
		From:      payload.From,
		Body:      payload.Body,
		MediaKind: mediaKindOf(payload),
		MediaURL:  payload.MediaUrl0,
	}

	response, err := h.bot.ProcessMessage(msg)
	if err != nil {
		log.Printf("Error processing message: %v", err)
		response = "❌ Sorry, something went wrong. Please try again."
	}

	if h.twilioService != nil && response != "" {
		identity := strings.TrimPrefix(payload.From, "whatsapp:")
		if err := h.twilioService.SendWhatsAppMessage(strings.TrimPrefix(identity, "+"), response); err != nil {
			log.Printf("❌ Failed to send WhatsApp response: %v", err)
		}
	} else if response != "" {
		log.Printf("📤 Response (not sent - Twilio not configured): %s", response)
	}

	return c.SendStatus(fiber.StatusOK)
}

// mediaKindOf maps the Twilio payload onto the bot's media enum.
func mediaKindOf(payload TwilioWebhookPayload) services.MediaKind {
	if payload.NumMedia == "" || payload.NumMedia == "0" {
		return services.MediaText
	}
	contentType := strings.ToLower(payload.MediaContentType0)
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return services.MediaImage
	case strings.HasPrefix(contentType, "audio/"):
		return services.MediaVoice
	}
	return services.MediaText
}

// TestWebhookPayload is used to exercise the bot without Twilio
type TestWebhookPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// HandleTestWebhook processes test WhatsApp messages (for development)
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	response, err := h.bot.ProcessMessage(services.InboundMessage{
		From:      payload.From,
		Body:      payload.Message,
		MediaKind: services.MediaText,
	})
	if err != nil {
		log.Printf("Error processing test message: %v", err)
		response = "❌ Sorry, something went wrong. Please try again."
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"response": response,
	})
}
