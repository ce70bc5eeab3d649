package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Sapan02206/VendorGo/internal/services"
	"github.com/Sapan02206/VendorGo/internal/storage"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	Version  string
	store    storage.Store
	sessions *services.SessionManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, store storage.Store, sessions *services.SessionManager) *HealthHandler {
	return &HealthHandler{
		Version:  version,
		store:    store,
		sessions: sessions,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "OK",
		"service": "VendorGo Backend",
		"version": h.Version,
	})
}

// Status returns operational counters for monitoring
func (h *HealthHandler) Status(c *fiber.Ctx) error {
	vendorCount := -1
	if vendors, err := h.store.GetAllVendors(); err == nil {
		vendorCount = len(vendors)
	}

	return c.JSON(fiber.Map{
		"service": "VendorGo Backend",
		"version": h.Version,
		"status":  "healthy",
		"vendors": vendorCount,
		"bot": fiber.Map{
			"sessions": h.sessions.ActiveSessionCount(),
		},
	})
}
