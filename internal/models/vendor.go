package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// VendorCategory is one of the four fixed business categories offered
// during onboarding.
type VendorCategory string

const (
	CategoryFood        VendorCategory = "food"
	CategoryClothing    VendorCategory = "clothing"
	CategoryElectronics VendorCategory = "electronics"
	CategoryAccessories VendorCategory = "accessories"
)

// DisplayName returns the customer-facing label for a category.
func (c VendorCategory) DisplayName() string {
	switch c {
	case CategoryFood:
		return "Food & Beverages"
	case CategoryClothing:
		return "Clothing & Fashion"
	case CategoryElectronics:
		return "Electronics & Gadgets"
	case CategoryAccessories:
		return "Accessories & Others"
	}
	return string(c)
}

// Vendor represents a street vendor's digital storefront
type Vendor struct {
	gorm.Model

	// VendorID is the opaque external reference handed back to the bot
	// once a profile is created.
	VendorID string         `json:"vendor_id" gorm:"uniqueIndex"`
	Name     string         `json:"name"`
	Phone    string         `json:"phone" gorm:"uniqueIndex"` // WhatsApp number - unique
	Category VendorCategory `json:"category"`
	Location string         `json:"location"`
	IsOpen   bool           `json:"is_open" gorm:"default:true"`
	IsActive bool           `json:"is_active" gorm:"default:true"`
	UPIID    string         `json:"upi_id"`

	Products []Product `json:"products" gorm:"foreignKey:VendorRef;references:VendorID;constraint:OnDelete:CASCADE"`
}

// Product is a single item on a vendor's storefront
type Product struct {
	gorm.Model

	VendorRef   string `json:"vendor_ref" gorm:"index"`
	Name        string `json:"name"`
	Price       int    `json:"price"` // whole rupees
	Description string `json:"description"`
	Available   bool   `json:"available" gorm:"default:true"`
}

// BeforeCreate hook to auto-generate VendorID and normalize data
func (v *Vendor) BeforeCreate(tx *gorm.DB) error {
	if v.VendorID == "" {
		v.VendorID = fmt.Sprintf("VND%d%03d", time.Now().Unix(), time.Now().Nanosecond()%1000)
	}

	v.Phone = NormalizePhone(v.Phone)

	// Default UPI handle derived from the phone number, same as the
	// payment channel expects.
	if v.UPIID == "" && len(v.Phone) >= 10 {
		v.UPIID = v.Phone[len(v.Phone)-10:] + "@paytm"
	}

	return nil
}

// NormalizePhone strips everything but digits from a phone-like identity so
// the same participant always maps to the same vendor record.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
