package storage

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Sapan02206/VendorGo/internal/models"
)

// MemoryStore holds all data in memory for testing and local development
type MemoryStore struct {
	vendors map[string]*models.Vendor // keyed by VendorID

	mu      sync.RWMutex
	counter int
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vendors: make(map[string]*models.Vendor),
	}
}

func (m *MemoryStore) CreateVendor(vendor *models.Vendor) (*models.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	phone := models.NormalizePhone(vendor.Phone)
	for _, v := range m.vendors {
		if v.Phone == phone {
			return nil, ErrDuplicatePhone
		}
	}

	m.counter++
	stored := *vendor
	stored.Phone = phone
	if stored.VendorID == "" {
		stored.VendorID = fmt.Sprintf("VND%05d", m.counter)
	}
	if stored.UPIID == "" && len(phone) >= 10 {
		stored.UPIID = phone[len(phone)-10:] + "@paytm"
	}
	stored.IsOpen = true
	stored.IsActive = true
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = time.Now()
	for i := range stored.Products {
		stored.Products[i].VendorRef = stored.VendorID
	}

	m.vendors[stored.VendorID] = &stored
	return cloneVendor(&stored), nil
}

func (m *MemoryStore) GetVendorByID(vendorID string) (*models.Vendor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	vendor, exists := m.vendors[vendorID]
	if !exists {
		return nil, ErrNotFound
	}
	return cloneVendor(vendor), nil
}

func (m *MemoryStore) GetVendorByPhone(phone string) (*models.Vendor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	normalized := models.NormalizePhone(phone)
	for _, vendor := range m.vendors {
		if vendor.Phone == normalized {
			return cloneVendor(vendor), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetAllVendors() ([]*models.Vendor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	vendors := make([]*models.Vendor, 0, len(m.vendors))
	for _, vendor := range m.vendors {
		vendors = append(vendors, cloneVendor(vendor))
	}
	return vendors, nil
}

func (m *MemoryStore) UpdateVendorName(vendorID string, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	vendor, exists := m.vendors[vendorID]
	if !exists {
		return ErrNotFound
	}

	vendor.Name = strings.TrimSpace(name)
	vendor.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) ReplaceVendorProducts(vendorID string, products []models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	vendor, exists := m.vendors[vendorID]
	if !exists {
		return ErrNotFound
	}

	replaced := make([]models.Product, len(products))
	copy(replaced, products)
	for i := range replaced {
		replaced[i].VendorRef = vendorID
		if replaced[i].Description == "" {
			replaced[i].Description = replaced[i].Name
		}
		replaced[i].Available = true
	}

	vendor.Products = replaced
	vendor.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) DeleteVendor(vendorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.vendors[vendorID]; !exists {
		return ErrNotFound
	}
	delete(m.vendors, vendorID)
	return nil
}

// cloneVendor copies a vendor so callers can't mutate store internals.
func cloneVendor(v *models.Vendor) *models.Vendor {
	clone := *v
	clone.Products = make([]models.Product, len(v.Products))
	copy(clone.Products, v.Products)
	return &clone
}
