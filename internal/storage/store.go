package storage

import (
	"errors"

	"github.com/Sapan02206/VendorGo/internal/models"
)

var (
	// ErrNotFound means no record matches the lookup. Permanent.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicatePhone means the phone identity is already enrolled. Permanent.
	ErrDuplicatePhone = errors.New("phone already registered")
)

// Store defines the interface for vendor persistence. The two sentinel
// errors above are permanent; anything else is treated as transient and the
// participant is told to try again.
type Store interface {
	CreateVendor(vendor *models.Vendor) (*models.Vendor, error)
	GetVendorByID(vendorID string) (*models.Vendor, error)
	GetVendorByPhone(phone string) (*models.Vendor, error)
	GetAllVendors() ([]*models.Vendor, error)
	UpdateVendorName(vendorID string, name string) error
	ReplaceVendorProducts(vendorID string, products []models.Product) error
	DeleteVendor(vendorID string) error
}
