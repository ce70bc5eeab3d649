package storage

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Sapan02206/VendorGo/internal/models"
)

// DatabaseStore persists vendors in PostgreSQL via GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a new database-backed storage
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (d *DatabaseStore) CreateVendor(vendor *models.Vendor) (*models.Vendor, error) {
	vendor.Phone = models.NormalizePhone(vendor.Phone)

	var count int64
	if err := d.db.Model(&models.Vendor{}).Where("phone = ?", vendor.Phone).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicatePhone
	}

	if err := d.db.Create(vendor).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicatePhone
		}
		return nil, err
	}
	return vendor, nil
}

func (d *DatabaseStore) GetVendorByID(vendorID string) (*models.Vendor, error) {
	var vendor models.Vendor
	err := d.db.Preload("Products").Where("vendor_id = ?", vendorID).First(&vendor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &vendor, nil
}

func (d *DatabaseStore) GetVendorByPhone(phone string) (*models.Vendor, error) {
	var vendor models.Vendor
	err := d.db.Preload("Products").Where("phone = ?", models.NormalizePhone(phone)).First(&vendor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &vendor, nil
}

func (d *DatabaseStore) GetAllVendors() ([]*models.Vendor, error) {
	var vendors []*models.Vendor
	if err := d.db.Preload("Products").Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

func (d *DatabaseStore) UpdateVendorName(vendorID string, name string) error {
	result := d.db.Model(&models.Vendor{}).
		Where("vendor_id = ?", vendorID).
		Update("name", strings.TrimSpace(name))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceVendorProducts swaps the vendor's product list wholesale, matching
// the bot's "persist the full current list" delta model.
func (d *DatabaseStore) ReplaceVendorProducts(vendorID string, products []models.Product) error {
	var vendor models.Vendor
	if err := d.db.Where("vendor_id = ?", vendorID).First(&vendor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("vendor_ref = ?", vendorID).Delete(&models.Product{}).Error; err != nil {
			return err
		}
		for i := range products {
			products[i].ID = 0
			products[i].VendorRef = vendorID
			if products[i].Description == "" {
				products[i].Description = products[i].Name
			}
			products[i].Available = true
		}
		if len(products) == 0 {
			return nil
		}
		return tx.Create(&products).Error
	})
}

// DeleteVendor removes the vendor and its products for good. Hard delete,
// not gorm's soft delete: a soft-deleted row would keep the phone in the
// unique index and block the same number from ever onboarding again.
func (d *DatabaseStore) DeleteVendor(vendorID string) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("vendor_ref = ?", vendorID).Delete(&models.Product{}).Error; err != nil {
			return err
		}
		result := tx.Unscoped().Where("vendor_id = ?", vendorID).Delete(&models.Vendor{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
