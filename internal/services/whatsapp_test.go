package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sapan02206/VendorGo/internal/models"
	"github.com/Sapan02206/VendorGo/internal/storage"
)

// mockStore implements storage.Store with call counters so tests can assert
// on persistence effects, and a failAll switch to simulate an outage.
type mockStore struct {
	mu      sync.Mutex
	vendors map[string]*models.Vendor // keyed by VendorID
	counter int

	failAll bool

	createCalls     int
	replaceCalls    int
	updateNameCalls int
	deleteCalls     int
}

func newMockStore() *mockStore {
	return &mockStore{vendors: make(map[string]*models.Vendor)}
}

var errMockOutage = errors.New("mock store outage")

func (m *mockStore) CreateVendor(vendor *models.Vendor) (*models.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.failAll {
		return nil, errMockOutage
	}
	for _, v := range m.vendors {
		if v.Phone == vendor.Phone {
			return nil, storage.ErrDuplicatePhone
		}
	}
	m.counter++
	vendor.VendorID = fmt.Sprintf("VND%05d", m.counter)
	for i := range vendor.Products {
		vendor.Products[i].VendorRef = vendor.VendorID
	}
	vendor.IsOpen = true
	vendor.IsActive = true
	m.vendors[vendor.VendorID] = vendor
	return vendor, nil
}

func (m *mockStore) GetVendorByID(vendorID string) (*models.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errMockOutage
	}
	vendor, ok := m.vendors[vendorID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return vendor, nil
}

func (m *mockStore) GetVendorByPhone(phone string) (*models.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errMockOutage
	}
	for _, v := range m.vendors {
		if v.Phone == phone {
			return v, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockStore) GetAllVendors() ([]*models.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errMockOutage
	}
	all := make([]*models.Vendor, 0, len(m.vendors))
	for _, v := range m.vendors {
		all = append(all, v)
	}
	return all, nil
}

func (m *mockStore) UpdateVendorName(vendorID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateNameCalls++
	if m.failAll {
		return errMockOutage
	}
	vendor, ok := m.vendors[vendorID]
	if !ok {
		return storage.ErrNotFound
	}
	vendor.Name = name
	return nil
}

func (m *mockStore) ReplaceVendorProducts(vendorID string, products []models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceCalls++
	if m.failAll {
		return errMockOutage
	}
	vendor, ok := m.vendors[vendorID]
	if !ok {
		return storage.ErrNotFound
	}
	for i := range products {
		products[i].VendorRef = vendorID
	}
	vendor.Products = products
	return nil
}

func (m *mockStore) DeleteVendor(vendorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.failAll {
		return errMockOutage
	}
	if _, ok := m.vendors[vendorID]; !ok {
		return storage.ErrNotFound
	}
	delete(m.vendors, vendorID)
	return nil
}

func newTestBot() (*WhatsAppService, *mockStore, *MemorySessionStore) {
	store := newMockStore()
	sessions := NewMemorySessionStore()
	bot := NewWhatsAppService(store, NewSessionManager(sessions))
	return bot, store, sessions
}

func send(t *testing.T, bot *WhatsAppService, from, body string) string {
	t.Helper()
	reply, err := bot.ProcessMessage(InboundMessage{From: from, Body: body, MediaKind: MediaText})
	require.NoError(t, err)
	require.NotEmpty(t, reply)
	return reply
}

func seedVendor(store *mockStore, phone string, products ...models.Product) *models.Vendor {
	vendor, err := store.CreateVendor(&models.Vendor{
		Name:     "Raju Tea Stall",
		Phone:    phone,
		Category: models.CategoryFood,
		Location: "Near City Mall, MG Road",
		Products: products,
	})
	if err != nil {
		panic(err)
	}
	store.mu.Lock()
	store.createCalls = 0
	store.mu.Unlock()
	return vendor
}

const testPhone = "919876543210"

func TestFullOnboardingFlow(t *testing.T) {
	bot, store, sessions := newTestBot()

	reply := send(t, bot, testPhone, "hi")
	assert.Contains(t, reply, "Welcome to VendorGo")

	reply = send(t, bot, testPhone, "Raju Tea Stall")
	assert.Contains(t, reply, "Nice to meet you, Raju Tea Stall")

	reply = send(t, bot, testPhone, "1")
	assert.Contains(t, reply, "business it is")

	reply = send(t, bot, testPhone, "Near City Mall, MG Road")
	assert.Contains(t, reply, "Location saved")

	reply = send(t, bot, testPhone, "Samosa ₹15, Tea Rs 10")
	assert.Contains(t, reply, "2 products")

	reply = send(t, bot, testPhone, "done")
	assert.Contains(t, reply, "Is this correct")

	reply = send(t, bot, testPhone, "yes")
	assert.Contains(t, reply, "CONGRATULATIONS")

	assert.Equal(t, 1, store.createCalls)

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Equal(t, StepActive, session.Step)
	assert.NotEmpty(t, session.VendorRef)
	assert.Len(t, session.Draft.Products, 2)
}

func TestWelcome_NonGreetingPrompts(t *testing.T) {
	bot, _, sessions := newTestBot()

	reply := send(t, bot, testPhone, "xyz")
	assert.Contains(t, reply, `Type "start"`)

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Equal(t, StepWelcome, session.Step)
}

func TestWelcome_ReturningVendorNeverReEnrolled(t *testing.T) {
	bot, store, sessions := newTestBot()
	seedVendor(store, testPhone,
		models.Product{Name: "Tea", Price: 10},
		models.Product{Name: "Coffee", Price: 20},
	)

	reply := send(t, bot, testPhone, "hello")
	assert.Contains(t, reply, "Welcome back, Raju Tea Stall")
	assert.Equal(t, 0, store.createCalls)

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Equal(t, StepActive, session.Step)
	assert.Len(t, session.Draft.Products, 2)

	// A lost session (process restart) still binds instead of re-onboarding.
	require.NoError(t, sessions.Delete(testPhone))
	reply = send(t, bot, testPhone, "hello")
	assert.Contains(t, reply, "Welcome back")
	assert.Equal(t, 0, store.createCalls)
}

func TestProcessMessage_NormalizesIdentity(t *testing.T) {
	bot, _, sessions := newTestBot()

	send(t, bot, "whatsapp:+91 98765-43210", "hi")

	_, err := sessions.Load(testPhone)
	assert.NoError(t, err)
}

func TestProcessMessage_RejectsEmptyIdentity(t *testing.T) {
	bot, _, _ := newTestBot()

	_, err := bot.ProcessMessage(InboundMessage{From: "whatsapp:", Body: "hi"})
	assert.Error(t, err)
}

func TestCollectProducts_DoneWithNothingAdded(t *testing.T) {
	bot, _, sessions := newTestBot()
	send(t, bot, testPhone, "hi")
	send(t, bot, testPhone, "Raju Tea Stall")
	send(t, bot, testPhone, "food")
	send(t, bot, testPhone, "Near City Mall, MG Road")

	reply := send(t, bot, testPhone, "done")
	assert.Contains(t, reply, "haven't added any products yet")

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Equal(t, StepCollectProducts, session.Step)
}

func TestCollectProducts_GivesUpAfterThreeFailures(t *testing.T) {
	bot, _, sessions := newTestBot()
	send(t, bot, testPhone, "hi")
	send(t, bot, testPhone, "Raju Tea Stall")
	send(t, bot, testPhone, "food")
	send(t, bot, testPhone, "Near City Mall, MG Road")

	reply := send(t, bot, testPhone, "zzqq wwxx")
	assert.Contains(t, reply, "couldn't find product information")
	reply = send(t, bot, testPhone, "zzqq wwxx")
	assert.Contains(t, reply, "couldn't find product information")

	reply = send(t, bot, testPhone, "zzqq wwxx")
	assert.Contains(t, reply, "Let's move on")
	assert.Contains(t, reply, "Is this correct")

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Equal(t, StepConfirmProfile, session.Step)
}

func TestCollectProducts_SuccessResetsFailureCount(t *testing.T) {
	bot, _, sessions := newTestBot()
	send(t, bot, testPhone, "hi")
	send(t, bot, testPhone, "Raju Tea Stall")
	send(t, bot, testPhone, "food")
	send(t, bot, testPhone, "Near City Mall, MG Road")

	send(t, bot, testPhone, "zzqq wwxx")
	send(t, bot, testPhone, "zzqq wwxx")
	send(t, bot, testPhone, "Samosa ₹15")

	// Two more failures should not trip the bound that two-plus-two would.
	reply := send(t, bot, testPhone, "zzqq wwxx")
	assert.Contains(t, reply, "couldn't find product information")
	reply = send(t, bot, testPhone, "zzqq wwxx")
	assert.Contains(t, reply, "couldn't find product information")

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Equal(t, StepCollectProducts, session.Step)
}

func TestConfirmProfile_NoReturnsToProducts(t *testing.T) {
	bot, _, sessions := newTestBot()
	send(t, bot, testPhone, "hi")
	send(t, bot, testPhone, "Raju Tea Stall")
	send(t, bot, testPhone, "food")
	send(t, bot, testPhone, "Near City Mall, MG Road")
	send(t, bot, testPhone, "Samosa ₹15")
	send(t, bot, testPhone, "done")

	reply := send(t, bot, testPhone, "no")
	assert.Contains(t, reply, "update your products")

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Equal(t, StepCollectProducts, session.Step)
}

func TestConfirmProfile_BindsExistingVendorInsteadOfCreating(t *testing.T) {
	bot, store, sessions := newTestBot()
	vendor := seedVendor(store, testPhone)

	// A confirmation arriving for an already-enrolled phone must bind, not
	// enroll twice.
	confirm := NewSession(testPhone)
	confirm.Transition(StepConfirmProfile)
	confirm.Draft = DraftProfile{
		Name:     "Raju Tea Stall",
		Category: models.CategoryFood,
		Location: "Near City Mall, MG Road",
	}
	require.NoError(t, sessions.Save(confirm))

	reply := send(t, bot, testPhone, "yes")
	assert.Contains(t, reply, "Welcome back")
	assert.Equal(t, 0, store.createCalls)

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Equal(t, vendor.VendorID, session.VendorRef)
	assert.Equal(t, StepActive, session.Step)
}

func TestActive_AddProductPersists(t *testing.T) {
	bot, store, sessions := newTestBot()
	seedVendor(store, testPhone, models.Product{Name: "Tea", Price: 10})
	send(t, bot, testPhone, "hi")

	reply := send(t, bot, testPhone, "Vada Pav ₹12")
	assert.Contains(t, reply, "Added 1 product")
	assert.Contains(t, reply, "Total products: 2")
	assert.Equal(t, 1, store.replaceCalls)

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Len(t, session.Draft.Products, 2)
	assert.Equal(t, "Vada Pav", session.Draft.Products[1].Name)
}

func TestActive_DeleteProduct(t *testing.T) {
	bot, store, _ := newTestBot()
	seedVendor(store, testPhone,
		models.Product{Name: "Tea", Price: 10},
		models.Product{Name: "Coffee", Price: 20},
	)
	send(t, bot, testPhone, "hi")

	reply := send(t, bot, testPhone, "delete tea")
	assert.Contains(t, reply, `Deleted "Tea"`)
	assert.Contains(t, reply, "Remaining products: 1")
	assert.Equal(t, 1, store.replaceCalls)
}

func TestActive_DeleteUnknownProduct(t *testing.T) {
	bot, store, _ := newTestBot()
	seedVendor(store, testPhone, models.Product{Name: "Tea", Price: 10})
	send(t, bot, testPhone, "hi")

	reply := send(t, bot, testPhone, "delete jalebi")
	assert.Contains(t, reply, `"jalebi" not found`)
	assert.Equal(t, 0, store.replaceCalls)
}

func TestActive_ShowProducts(t *testing.T) {
	bot, store, _ := newTestBot()
	seedVendor(store, testPhone,
		models.Product{Name: "Tea", Price: 10},
		models.Product{Name: "Coffee", Price: 20},
	)
	send(t, bot, testPhone, "hi")

	reply := send(t, bot, testPhone, "show products")
	assert.Contains(t, reply, "1. Tea - ₹10")
	assert.Contains(t, reply, "2. Coffee - ₹20")
}

func TestActive_QuestionRoutesToHelp(t *testing.T) {
	bot, store, _ := newTestBot()
	seedVendor(store, testPhone)
	send(t, bot, testPhone, "hi")

	reply := send(t, bot, testPhone, "how do customers find me")
	assert.Contains(t, reply, "Customer Discovery")
}

func TestRenameFlow(t *testing.T) {
	bot, store, sessions := newTestBot()
	seedVendor(store, testPhone)
	send(t, bot, testPhone, "hi")

	reply := send(t, bot, testPhone, "change name")
	assert.Contains(t, reply, "Change Shop Name")

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	require.Equal(t, StepRenameShop, session.Step)

	reply = send(t, bot, testPhone, "cancel")
	assert.Contains(t, reply, "Name change cancelled")
	assert.Equal(t, 0, store.updateNameCalls)

	send(t, bot, testPhone, "change name")
	reply = send(t, bot, testPhone, "Sharma Chaat Corner")
	assert.Contains(t, reply, "Shop Name Updated")
	assert.Equal(t, 1, store.updateNameCalls)

	session, err = sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Equal(t, StepActive, session.Step)
	assert.Equal(t, "Sharma Chaat Corner", session.Draft.Name)
}

func TestDeleteShop_RequiresExactConfirmation(t *testing.T) {
	bot, store, _ := newTestBot()
	seedVendor(store, testPhone)
	send(t, bot, testPhone, "hi")

	reply := send(t, bot, testPhone, "delete shop")
	assert.Contains(t, reply, "PERMANENTLY DELETE")
	assert.Equal(t, 0, store.deleteCalls)

	// Anything short of the exact phrase is not a confirmation.
	send(t, bot, testPhone, "yes delete")
	assert.Equal(t, 0, store.deleteCalls)
}

func TestDeleteShop_ConfirmedDeletesAndTearsDownSession(t *testing.T) {
	bot, store, sessions := newTestBot()
	seedVendor(store, testPhone)
	send(t, bot, testPhone, "hi")
	send(t, bot, testPhone, "delete shop")

	reply := send(t, bot, testPhone, "YES DELETE SHOP")
	assert.Contains(t, reply, "permanently deleted")
	assert.Equal(t, 1, store.deleteCalls)

	_, err := sessions.Load(testPhone)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// The identity can onboard again from scratch.
	reply = send(t, bot, testPhone, "start")
	assert.Contains(t, reply, "Welcome to VendorGo")
}

func TestStoreOutage_ApologizesAndKeepsState(t *testing.T) {
	bot, store, sessions := newTestBot()
	store.failAll = true

	reply := send(t, bot, testPhone, "hi")
	assert.Contains(t, reply, "trouble reaching our servers")

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Equal(t, StepWelcome, session.Step)

	// Recovery: the same greeting works once the store is back.
	store.failAll = false
	reply = send(t, bot, testPhone, "hi")
	assert.Contains(t, reply, "Welcome to VendorGo")
}

func TestRenameOutage_StaysInRenameStep(t *testing.T) {
	bot, store, sessions := newTestBot()
	seedVendor(store, testPhone)
	send(t, bot, testPhone, "hi")
	send(t, bot, testPhone, "change name")

	store.failAll = true
	reply := send(t, bot, testPhone, "Sharma Chaat Corner")
	assert.Contains(t, reply, "trouble reaching our servers")

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Equal(t, StepRenameShop, session.Step)
	assert.Equal(t, "Raju Tea Stall", session.Draft.Name)
}

func TestActiveWithoutVendorRefResets(t *testing.T) {
	bot, _, sessions := newTestBot()

	corrupt := NewSession(testPhone)
	corrupt.Transition(StepActive)
	require.NoError(t, sessions.Save(corrupt))

	reply := send(t, bot, testPhone, "xyz")
	assert.Contains(t, reply, `Type "start"`)

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Equal(t, StepWelcome, session.Step)
	assert.Empty(t, session.VendorRef)
}

func TestMedia_RejectedOutsideProductEntry(t *testing.T) {
	bot, _, _ := newTestBot()

	reply, err := bot.ProcessMessage(InboundMessage{
		From:      testPhone,
		MediaKind: MediaImage,
		MediaURL:  "https://example.com/menu.jpg",
	})
	require.NoError(t, err)
	assert.Contains(t, reply, "text message for now")
}

func TestMedia_RejectedWhileActive(t *testing.T) {
	bot, store, sessions := newTestBot()
	seedVendor(store, testPhone)
	send(t, bot, testPhone, "hi")

	reply, err := bot.ProcessMessage(InboundMessage{
		From:      testPhone,
		MediaKind: MediaImage,
		MediaURL:  "https://example.com/menu.jpg",
	})
	require.NoError(t, err)
	assert.Contains(t, reply, "text message for now")

	session, lerr := sessions.Load(testPhone)
	require.NoError(t, lerr)
	assert.Equal(t, StepActive, session.Step)
}

func TestMedia_UnsupportedDuringProductEntry(t *testing.T) {
	bot, _, sessions := newTestBot()
	send(t, bot, testPhone, "hi")
	send(t, bot, testPhone, "Raju Tea Stall")
	send(t, bot, testPhone, "food")
	send(t, bot, testPhone, "Near City Mall, MG Road")

	reply, err := bot.ProcessMessage(InboundMessage{
		From:      testPhone,
		MediaKind: MediaVoice,
		MediaURL:  "https://example.com/note.ogg",
	})
	require.NoError(t, err)
	assert.Contains(t, reply, "can't read photos or voice notes")

	session, lerr := sessions.Load(testPhone)
	require.NoError(t, lerr)
	assert.Equal(t, StepCollectProducts, session.Step)
}

func TestCriticalStepSuppressesQuestionDetection(t *testing.T) {
	bot, _, sessions := newTestBot()
	send(t, bot, testPhone, "hi")

	// A name that reads like a question is still collected as the name.
	reply := send(t, bot, testPhone, "What A Dosa")
	assert.Contains(t, reply, "Nice to meet you, What A Dosa")

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Equal(t, "What A Dosa", session.Draft.Name)
	assert.Equal(t, StepCollectCategory, session.Step)
}

func TestCollectName_RejectsTooShort(t *testing.T) {
	bot, _, sessions := newTestBot()
	send(t, bot, testPhone, "hi")

	reply := send(t, bot, testPhone, "R")
	assert.Contains(t, reply, "valid name")

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Equal(t, StepCollectName, session.Step)
}

func TestDispatch_EveryStepAlwaysReplies(t *testing.T) {
	steps := []Step{
		StepWelcome, StepCollectName, StepCollectCategory, StepCollectLocation,
		StepCollectProducts, StepConfirmProfile, StepRenameShop, StepActive,
	}
	inputs := []string{
		"hi", "done", "help", "cancel", "xyz", "Samosa ₹15",
		"how do I add products?", "delete shop", "yes", "no",
	}

	for _, step := range steps {
		for _, input := range inputs {
			bot, store, sessions := newTestBot()
			session := NewSession(testPhone)
			session.Transition(step)
			if step == StepActive || step == StepRenameShop {
				vendor := seedVendor(store, testPhone)
				session.VendorRef = vendor.VendorID
				session.Draft.Name = vendor.Name
			}
			require.NoError(t, sessions.Save(session))

			reply, err := bot.ProcessMessage(InboundMessage{From: testPhone, Body: input, MediaKind: MediaText})
			require.NoError(t, err, "step %s input %q", step, input)
			assert.NotEmpty(t, reply, "step %s input %q", step, input)
		}
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input string
		want  models.VendorCategory
		ok    bool
	}{
		{"1", models.CategoryFood, true},
		{"Food & Beverages", models.CategoryFood, true},
		{"2", models.CategoryClothing, true},
		{"fashion", models.CategoryClothing, true},
		{"3", models.CategoryElectronics, true},
		{"gadgets", models.CategoryElectronics, true},
		{"4", models.CategoryAccessories, true},
		{"others", models.CategoryAccessories, true},
		{"zzz", "", false},
	}

	for _, tt := range tests {
		got, ok := parseCategory(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestCollectCategory_RetriesOnNonsense(t *testing.T) {
	bot, _, sessions := newTestBot()
	send(t, bot, testPhone, "hi")
	send(t, bot, testPhone, "Raju Tea Stall")

	reply := send(t, bot, testPhone, "zzz")
	assert.Contains(t, reply, "valid category")

	session, err := sessions.Load(testPhone)
	require.NoError(t, err)
	assert.Equal(t, StepCollectCategory, session.Step)
	assert.Equal(t, 1, session.RetryCount)
}
