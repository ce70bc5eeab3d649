package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Sapan02206/VendorGo/internal/models"
	"github.com/Sapan02206/VendorGo/internal/storage"
)

// maxProductRetries bounds malformed-input retries in the product
// collection step. The other collection steps re-prompt indefinitely,
// matching the original bot's behavior.
const maxProductRetries = 3

// InboundMessage is one message received from the transport.
type InboundMessage struct {
	From      string
	Body      string
	MediaKind MediaKind
	MediaURL  string
}

type stepHandler func(s *Session, msg InboundMessage, intent Intent) string

// WhatsAppService walks a vendor through onboarding and services the bound
// profile afterwards. All state lives in the session; persistence happens
// through the storage.Store collaborator after a handler has decided what
// to keep.
type WhatsAppService struct {
	store       storage.Store
	sessions    *SessionManager
	extractor   *ExtractionService
	classifier  *IntentClassifier
	help        *HelpService
	transcriber MediaTranscriber

	handlers map[Step]stepHandler
}

// NewWhatsAppService creates the message processor.
func NewWhatsAppService(store storage.Store, sessions *SessionManager) *WhatsAppService {
	extractor := NewExtractionService()
	w := &WhatsAppService{
		store:       store,
		sessions:    sessions,
		extractor:   extractor,
		classifier:  NewIntentClassifier(extractor),
		help:        NewHelpService(),
		transcriber: NoopTranscriber{},
	}

	// Every reachable step has exactly one handler; dispatch never
	// silently no-ops.
	w.handlers = map[Step]stepHandler{
		StepWelcome:         w.handleWelcome,
		StepCollectName:     w.handleCollectName,
		StepCollectCategory: w.handleCollectCategory,
		StepCollectLocation: w.handleCollectLocation,
		StepCollectProducts: w.handleCollectProducts,
		StepConfirmProfile:  w.handleConfirmProfile,
		StepRenameShop:      w.handleRenameShop,
		StepActive:          w.handleActive,
	}

	return w
}

// SetTranscriber swaps the media-to-text stub (used when an image/voice
// pipeline is configured).
func (w *WhatsAppService) SetTranscriber(t MediaTranscriber) {
	w.transcriber = t
}

// criticalSteps are the collection steps where free text is the answer to a
// direct prompt; question detection is suppressed there so "What's my shop
// called? Raju Tea Stall" can't derail name collection.
var criticalSteps = map[Step]bool{
	StepCollectName:     true,
	StepCollectCategory: true,
	StepCollectLocation: true,
	StepConfirmProfile:  true,
	StepRenameShop:      true,
}

// ProcessMessage handles one inbound message end to end and returns the
// reply to send. Messages for the same identity are processed one at a
// time.
func (w *WhatsAppService) ProcessMessage(msg InboundMessage) (string, error) {
	identity := models.NormalizePhone(strings.TrimPrefix(msg.From, "whatsapp:"))
	if identity == "" {
		return "", fmt.Errorf("inbound message has no usable identity: %q", msg.From)
	}

	var reply string
	err := w.sessions.WithSession(identity, func(session *Session) error {
		reply = w.dispatch(session, msg)
		return nil
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (w *WhatsAppService) dispatch(session *Session, msg InboundMessage) string {
	session.Record("in", msg.Body)

	// Invariant: active requires a bound vendor. A violation is fatal for
	// this session only; reset to welcome instead of crashing.
	if session.Step == StepActive && !session.Onboarded() {
		log.Printf("Invariant violation for %s: active step without vendor ref, resetting session", session.Identity)
		history := session.History
		*session = *NewSession(session.Identity)
		session.History = history
	}

	if msg.MediaKind != MediaText && msg.MediaKind != "" {
		text, handled := w.resolveMedia(session, &msg)
		if handled != "" {
			session.Record("out", handled)
			return handled
		}
		msg.Body = text
	}

	intent := w.classifier.Classify(msg.Body)

	handler, ok := w.handlers[session.Step]
	if !ok {
		log.Printf("Unknown step %q for %s, resetting to welcome", session.Step, session.Identity)
		session.Transition(StepWelcome)
		handler = w.handleWelcome
	}

	var reply string
	if intent.Kind == IntentQuestion && !criticalSteps[session.Step] {
		reply = w.help.Respond(msg.Body, session)
	} else {
		reply = handler(session, msg, intent)
	}

	if reply == "" {
		reply = `I didn't understand that. Type "help" for assistance.`
	}

	session.Record("out", reply)
	return reply
}

// resolveMedia turns an image/voice payload into text for the extraction
// pipeline. Non-text media only makes sense while collecting products;
// everywhere else the vendor is asked to type. The second return value, if
// non-empty, is a terminal reply.
func (w *WhatsAppService) resolveMedia(session *Session, msg *InboundMessage) (string, string) {
	if session.Step != StepCollectProducts {
		return "", `Please answer with a text message for now — photos and voice notes come in handy later, when you add products.`
	}

	text, err := w.transcriber.Transcribe(msg.MediaKind, msg.MediaURL)
	if err != nil {
		log.Printf("Media transcription unavailable for %s (%s): %v", session.Identity, msg.MediaKind, err)
		return "", `📸 I can't read photos or voice notes yet.

Please type your products instead:
"Samosa ₹15, Tea Rs 10"`
	}
	msg.MediaKind = MediaText
	return text, ""
}

// --- step handlers ---

func (w *WhatsAppService) handleWelcome(session *Session, msg InboundMessage, intent Intent) string {
	lower := strings.ToLower(msg.Body)
	greeted := intent.Command == CmdStart ||
		strings.Contains(lower, "start") || strings.Contains(lower, "hello") || strings.Contains(lower, "hi")

	if !greeted {
		return `👋 Hello! I'm your VendorGo assistant.

I help street vendors and small businesses get online presence.

Type "start" to begin creating your digital store!`
	}

	// Returning identity: bind the existing profile, never re-onboard.
	vendor, err := w.store.GetVendorByPhone(session.Identity)
	switch {
	case err == nil:
		w.bindVendor(session, vendor)
		return w.welcomeBackMessage(vendor)

	case errors.Is(err, storage.ErrNotFound):
		session.Transition(StepCollectName)
		return `🎉 Welcome to VendorGo!

I'll help you create your digital storefront in just 2 minutes.

First, what's your name or business name?`

	default:
		log.Printf("Vendor lookup failed for %s: %v", session.Identity, err)
		return collaboratorApology
	}
}

func (w *WhatsAppService) handleCollectName(session *Session, msg InboundMessage, intent Intent) string {
	name := strings.TrimSpace(msg.Body)
	if len(name) < 2 {
		session.RetryCount++
		return "Please enter a valid name for your business."
	}

	session.Draft.Name = name
	session.Transition(StepCollectCategory)

	return fmt.Sprintf(`Great! Nice to meet you, %s! 👋

What type of business do you run?

Reply with:
1️⃣ Food & Beverages
2️⃣ Clothing & Fashion
3️⃣ Electronics & Gadgets
4️⃣ Accessories & Others

Just type the number or category name.`, name)
}

func (w *WhatsAppService) handleCollectCategory(session *Session, msg InboundMessage, intent Intent) string {
	category, ok := parseCategory(msg.Body)
	if !ok {
		session.RetryCount++
		return `Please select a valid category:

1️⃣ Food & Beverages
2️⃣ Clothing & Fashion
3️⃣ Electronics & Gadgets
4️⃣ Accessories & Others`
	}

	session.Draft.Category = category
	session.Transition(StepCollectLocation)

	return fmt.Sprintf(`Perfect! %s business it is! 🏪

Now, where is your business located?

Please share your location or describe where customers can find you.

Example: "Near City Mall, MG Road" or "Street 5, Sector 12"`, category.DisplayName())
}

func (w *WhatsAppService) handleCollectLocation(session *Session, msg InboundMessage, intent Intent) string {
	location := strings.TrimSpace(msg.Body)
	if len(location) < 5 {
		session.RetryCount++
		return "Please provide a more detailed location so customers can find you easily."
	}

	session.Draft.Location = location
	session.Transition(StepCollectProducts)

	return fmt.Sprintf(`Excellent! Location saved: %s 📍

Now let's add your products! This is the exciting part! 🛍️

You can:
📝 Type your products (e.g., "Samosa ₹10, Tea ₹5, Sandwich ₹25")
📸 Send photos of your products
🎤 Send voice message describing what you sell

What would you like to do?`, location)
}

func (w *WhatsAppService) handleCollectProducts(session *Session, msg InboundMessage, intent Intent) string {
	if intent.Command == CmdDone {
		if len(session.Draft.Products) == 0 {
			return `You haven't added any products yet!

Please add at least one product first:

*Formats:*
• Single: "Samosa ₹10"
• Multiple: "Samosa ₹10, Tea Rs 5, Coffee ₹15"

*Supported:*
• ₹ symbol
• Rs or rs
• Rupees or rupees`
		}

		session.Transition(StepConfirmProfile)
		return w.profileSummary(&session.Draft)
	}

	products := w.extractor.ExtractProducts(msg.Body)
	if len(products) == 0 {
		session.RetryCount++
		if session.RetryCount >= maxProductRetries {
			// Give up and move on with whatever was collected, even if
			// that is nothing. Inherited behavior.
			session.Transition(StepConfirmProfile)
			return "Let's move on — you can always add products later.\n\n" + w.profileSummary(&session.Draft)
		}
		return noProductsFoundMessage
	}

	session.Draft.Products = append(session.Draft.Products, products...)
	session.RetryCount = 0

	countMsg := "this product"
	if len(products) > 1 {
		countMsg = fmt.Sprintf("%d products", len(products))
	}

	return fmt.Sprintf(`Great! I found %s: 📦

%s

Want to add more?
• Type more products
• Type "done" when finished

*Tip:* Add multiple at once:
"Item1 ₹10, Item2 Rs 20, Item3 ₹30"`, countMsg, bulletList(products))
}

func (w *WhatsAppService) handleConfirmProfile(session *Session, msg InboundMessage, intent Intent) string {
	lower := strings.ToLower(msg.Body)

	confirmed := intent.Command == CmdYes ||
		strings.Contains(lower, "yes") || strings.Contains(lower, "confirm") || strings.Contains(lower, "correct")
	declined := intent.Command == CmdNo ||
		strings.Contains(lower, "no") || strings.Contains(lower, "change") || strings.Contains(lower, "edit")

	switch {
	case confirmed:
		return w.createOrBindVendor(session)
	case declined:
		session.Transition(StepCollectProducts)
		return `No problem! Let's update your products.

Send me the correct product information:`
	default:
		return `Please reply with "Yes" to confirm or "No" to make changes.`
	}
}

func (w *WhatsAppService) handleRenameShop(session *Session, msg InboundMessage, intent Intent) string {
	if intent.Command == CmdCancel {
		session.Transition(StepActive)
		return fmt.Sprintf(`❌ Name change cancelled.

Your shop name remains: %s

Type "help" for more options.`, session.Draft.Name)
	}

	newName := strings.TrimSpace(msg.Body)
	if len(newName) < 2 {
		session.RetryCount++
		return "❌ Name too short. Please enter a valid shop name (at least 2 characters)."
	}

	if err := w.store.UpdateVendorName(session.VendorRef, newName); err != nil {
		log.Printf("Rename failed for %s (%s): %v", session.Identity, session.VendorRef, err)
		return collaboratorApology
	}

	oldName := session.Draft.Name
	session.Draft.Name = newName
	session.Transition(StepActive)

	return fmt.Sprintf(`✅ *Shop Name Updated!*

Old name: %s
New name: %s

Your shop name has been changed successfully!

Type "help" for more options.`, oldName, newName)
}

func (w *WhatsAppService) handleActive(session *Session, msg InboundMessage, intent Intent) string {
	switch intent.Command {
	case CmdRenameShop:
		session.Transition(StepRenameShop)
		return fmt.Sprintf(`✏️ *Change Shop Name*

Current name: %s

What would you like to rename your shop to?

Type the new name or "cancel" to keep current name.`, session.Draft.Name)

	case CmdDeleteShop:
		return `⚠️ Are you sure you want to PERMANENTLY DELETE your entire shop?

This will remove:
• All your products
• Your store from the map
• All customer access
• Your digital presence

Type "YES DELETE SHOP" to confirm or "cancel" to keep your shop.`

	case CmdConfirmDeleteShop:
		return w.deleteShop(session)

	case CmdCheckStatus:
		return w.help.Diagnose(session)

	case CmdShowProducts:
		return w.showProducts(session)

	case CmdDeleteProduct:
		return w.deleteProduct(session, intent.Arg)

	case CmdOrders:
		return w.ordersSummary(session)

	case CmdHelp:
		return activeHelpMenu

	case CmdCancel:
		return w.statusReply(session)
	}

	// Anything else is a product-add attempt.
	products := w.extractor.ExtractProducts(msg.Body)
	if len(products) > 0 {
		session.Draft.Products = append(session.Draft.Products, products...)
		warning := w.persistProducts(session)

		plural := ""
		if len(products) > 1 {
			plural = "s"
		}
		return fmt.Sprintf(`✅ Added %d product%s:

%s

Total products: %d

Type "show products" to see all products.%s`,
			len(products), plural, bulletList(products), len(session.Draft.Products), warning)
	}

	if len(strings.TrimSpace(msg.Body)) > 3 {
		return noProductsFoundMessage
	}

	return w.statusReply(session)
}

// --- effect helpers (decide first, persist after) ---

// createOrBindVendor completes onboarding. It re-checks the identity before
// creating so the same phone is never enrolled twice, even if two
// confirmations race across restarts.
func (w *WhatsAppService) createOrBindVendor(session *Session) string {
	existing, err := w.store.GetVendorByPhone(session.Identity)
	switch {
	case err == nil:
		session.VendorRef = existing.VendorID
		if len(session.Draft.Products) > 0 {
			if warning := w.persistProducts(session); warning != "" {
				log.Printf("Product sync on re-bind deferred for %s", session.Identity)
			}
		}
		session.Transition(StepActive)
		return w.welcomeBackMessage(existing)

	case errors.Is(err, storage.ErrNotFound):
		// fall through to create

	default:
		log.Printf("Vendor lookup failed for %s: %v", session.Identity, err)
		return collaboratorApology
	}

	vendor := &models.Vendor{
		Name:     session.Draft.Name,
		Phone:    session.Identity,
		Category: session.Draft.Category,
		Location: session.Draft.Location,
		Products: draftsToProducts(session.Draft.Products),
	}

	created, err := w.store.CreateVendor(vendor)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicatePhone) {
			// Lost a race with ourselves; bind whatever exists.
			if existing, lookupErr := w.store.GetVendorByPhone(session.Identity); lookupErr == nil {
				session.VendorRef = existing.VendorID
				session.Transition(StepActive)
				return w.welcomeBackMessage(existing)
			}
		}
		log.Printf("Vendor create failed for %s: %v", session.Identity, err)
		return collaboratorApology
	}

	session.VendorRef = created.VendorID
	session.Transition(StepActive)

	return fmt.Sprintf(`🎉 CONGRATULATIONS! Your digital store is LIVE!

🌐 Your Store Link: https://vendorgo.app/store/%s

✅ What you now have:
• Digital storefront visible to customers
• Online ordering system
• Payment integration
• Customer reviews system

📈 Start sharing your link with customers!

Need help? Just message me anytime! 💬`, created.VendorID)
}

// deleteShop performs the destructive external delete and tears down the
// session so "start" begins a fresh onboarding. The delete must be
// acknowledged before the reply claims success.
func (w *WhatsAppService) deleteShop(session *Session) string {
	if err := w.store.DeleteVendor(session.VendorRef); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("Shop delete failed for %s (%s): %v", session.Identity, session.VendorRef, err)
		return collaboratorApology
	}

	session.Terminate()

	return `🗑️ Your shop has been permanently deleted.

All products and store information have been removed.

If you want to start again, type "start" to create a new shop.

Thank you for using VendorGo! 👋`
}

func (w *WhatsAppService) showProducts(session *Session) string {
	if len(session.Draft.Products) == 0 {
		return `📦 You don't have any products yet.

Add products by typing:
"Product Name ₹Price" or "Product Name Rs Price"

Examples:
• Single: "Samosa ₹15"
• Multiple: "Samosa ₹15, Tea Rs 10, Coffee ₹20"`
	}

	var lines []string
	for i, p := range session.Draft.Products {
		lines = append(lines, fmt.Sprintf("%d. %s - ₹%d", i+1, p.Name, p.Price))
	}

	return fmt.Sprintf(`📦 Your Products:

%s

💡 Commands:
• Add: "Product ₹Price" or "Product Rs Price"
• Add Multiple: "Item1 ₹10, Item2 Rs 20"
• Delete: "delete [product name]"
• Delete Shop: "delete shop"
• Help: "help"`, strings.Join(lines, "\n"))
}

func (w *WhatsAppService) deleteProduct(session *Session, name string) string {
	if len(session.Draft.Products) == 0 {
		return "❌ No products found to delete."
	}

	target := strings.ToLower(strings.TrimSpace(name))
	index := -1
	for i, p := range session.Draft.Products {
		if strings.Contains(strings.ToLower(p.Name), target) {
			index = i
			break
		}
	}

	if index == -1 {
		return fmt.Sprintf(`❌ Product "%s" not found.

Type "show products" to see your product list.`, name)
	}

	deleted := session.Draft.Products[index]
	session.Draft.Products = append(session.Draft.Products[:index], session.Draft.Products[index+1:]...)
	warning := w.persistProducts(session)

	return fmt.Sprintf(`✅ Deleted "%s" from your store.

Remaining products: %d

Type "show products" to see updated list.%s`, deleted.Name, len(session.Draft.Products), warning)
}

// persistProducts pushes the current product list to storage. Product
// deltas are allowed to be eventually consistent: a transient failure keeps
// the in-memory list and surfaces a sync note instead of rolling back.
func (w *WhatsAppService) persistProducts(session *Session) string {
	if session.VendorRef == "" {
		return ""
	}
	if err := w.store.ReplaceVendorProducts(session.VendorRef, draftsToProducts(session.Draft.Products)); err != nil {
		log.Printf("Product sync failed for %s (%s): %v", session.Identity, session.VendorRef, err)
		return "\n\n⚠️ Saving is running slow — your changes will sync shortly."
	}
	return ""
}

func (w *WhatsAppService) ordersSummary(session *Session) string {
	return fmt.Sprintf(`📊 Your recent orders:

• 0 new orders today
• ₹0 total sales

Orders will show up here as customers discover your store.
Your store link: https://vendorgo.app/store/%s`, session.VendorRef)
}

func (w *WhatsAppService) statusReply(session *Session) string {
	name := session.Draft.Name
	if name == "" {
		name = "Vendor"
	}
	return fmt.Sprintf(`Hi %s! 👋

Your store is running well! 📈

Recent activity:
• %d products listed
• Store is OPEN

💡 Commands:
• "show products" - View products
• "add [item] ₹[price]" - Add product
• "delete [item]" - Remove product
• "help" - More options`, name, len(session.Draft.Products))
}

func (w *WhatsAppService) profileSummary(draft *DraftProfile) string {
	productList := "• (no products yet)"
	if len(draft.Products) > 0 {
		productList = bulletList(draft.Products)
	}

	return fmt.Sprintf(`🎯 Here's your digital store preview:

👤 *%s*
📍 %s
🏪 %s

🛍️ *Products:*
%s

Is this correct? Reply "Yes" to go live or "No" to make changes.`,
		draft.Name, draft.Location, draft.Category.DisplayName(), productList)
}

func (w *WhatsAppService) welcomeBackMessage(vendor *models.Vendor) string {
	status := "🔴 CLOSED"
	if vendor.IsOpen {
		status = "🟢 OPEN"
	}

	return fmt.Sprintf(`👋 Welcome back, %s!

✅ Your shop is already active!

📊 *Shop Status:*
• Name: %s
• Products: %d
• Status: %s
• Location: %s

💡 *What you can do:*
• "change name" - Change shop name
• "show products" - View all products
• "Samosa ₹15" - Add new product
• "delete [product]" - Remove product
• "delete shop" - Remove entire shop
• Ask any question and I'll help!

How can I help you today?`,
		vendor.Name, vendor.Name, len(vendor.Products), status, vendor.Location)
}

// bindVendor populates the session from an existing profile and moves it
// straight to active.
func (w *WhatsAppService) bindVendor(session *Session, vendor *models.Vendor) {
	session.VendorRef = vendor.VendorID
	session.Draft = DraftProfile{
		Name:     vendor.Name,
		Category: vendor.Category,
		Location: vendor.Location,
		Products: productsToDrafts(vendor.Products),
	}
	session.Transition(StepActive)
}

func parseCategory(text string) (models.VendorCategory, bool) {
	msg := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(msg, "1"), strings.Contains(msg, "food"), strings.Contains(msg, "beverage"):
		return models.CategoryFood, true
	case strings.Contains(msg, "2"), strings.Contains(msg, "cloth"), strings.Contains(msg, "fashion"):
		return models.CategoryClothing, true
	case strings.Contains(msg, "3"), strings.Contains(msg, "electronic"), strings.Contains(msg, "gadget"):
		return models.CategoryElectronics, true
	case strings.Contains(msg, "4"), strings.Contains(msg, "accessor"), strings.Contains(msg, "other"):
		return models.CategoryAccessories, true
	}
	return "", false
}

func draftsToProducts(drafts []ProductDraft) []models.Product {
	products := make([]models.Product, len(drafts))
	for i, d := range drafts {
		description := d.Description
		if description == "" {
			description = d.Name
		}
		products[i] = models.Product{
			Name:        d.Name,
			Price:       d.Price,
			Description: description,
			Available:   true,
		}
	}
	return products
}

func productsToDrafts(products []models.Product) []ProductDraft {
	drafts := make([]ProductDraft, len(products))
	for i, p := range products {
		drafts[i] = ProductDraft{Name: p.Name, Price: p.Price, Description: p.Description}
	}
	return drafts
}

func bulletList(products []ProductDraft) string {
	var lines []string
	for _, p := range products {
		lines = append(lines, fmt.Sprintf("• %s - ₹%d", p.Name, p.Price))
	}
	return strings.Join(lines, "\n")
}

const collaboratorApology = `😓 Sorry, I'm having trouble reaching our servers right now.

Nothing was lost — please send that message again in a moment.`

const noProductsFoundMessage = `❌ I couldn't find product information in that format.

📝 *Please use one of these:*

*Single Product:*
• "Samosa ₹15"
• "Tea Rs 10"
• "Coffee rupees 20"

*Multiple Products (comma-separated):*
• "Samosa ₹15, Tea Rs 10"
• "Burger Rs 50, Fries ₹30, Coke ₹25"

Try again!`

const activeHelpMenu = `🆘 VendorGo Help:

*Shop Management:*
• "change name" - Change shop name
• "show products" - View all products
• "delete shop" - Remove entire shop

*Product Management:*
• "Samosa ₹15" - Add single product
• "Tea Rs 10, Coffee ₹20" - Add multiple products
• "delete samosa" - Remove a product

*Supported Price Formats:*
• ₹ symbol: "Samosa ₹15"
• Rs: "Tea Rs 10"
• Rupees: "Coffee rupees 20"

*Diagnostics & Help:*
• "check status" - Run shop diagnostics
• "My shop is not showing" - I'll investigate
• Ask any question in plain English!

*Other Commands:*
• "orders" - Check recent orders
• "help" - Show this message

What do you need help with?`
