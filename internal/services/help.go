package services

import (
	"fmt"
	"regexp"
	"strings"
)

// HelpTopic identifies one canned explanation the responder knows.
type HelpTopic string

const (
	TopicAddProducts    HelpTopic = "how_to_add_products"
	TopicDeleteProduct  HelpTopic = "how_to_delete_product"
	TopicDeleteShop     HelpTopic = "how_to_delete_shop"
	TopicChangePrice    HelpTopic = "how_to_change_price"
	TopicUpdateLocation HelpTopic = "how_to_update_location"
	TopicCustomers      HelpTopic = "how_customers_find"
	TopicOrders         HelpTopic = "how_orders_work"
	TopicPayments       HelpTopic = "how_payment_works"
	TopicWhatIsThis     HelpTopic = "what_is_platform"
	TopicTroubleshoot   HelpTopic = "troubleshooting"
	TopicPricing        HelpTopic = "pricing_question"
	TopicVisibility     HelpTopic = "visibility_question"
	TopicGeneral        HelpTopic = "general"
)

// topicPatterns are checked in order; the first topic with a matching
// pattern wins. Specific topics come before the broad troubleshooting
// catch-all.
var topicPatterns = []struct {
	topic    HelpTopic
	patterns []*regexp.Regexp
}{
	{TopicAddProducts, compileAll(
		`how (do i|can i|to) add (products?|items?)`,
		`add (new )?products?`,
		`how (do i|to) list (products?|items?)`,
		`what (is the )?format (for|to) add`,
	)},
	{TopicDeleteProduct, compileAll(
		`how (do i|can i|to) (delete|remove) (a )?products?`,
		`(delete|remove) (a )?products?`,
	)},
	{TopicDeleteShop, compileAll(
		`how (do i|can i|to) (delete|remove|close) (my )?(shop|store|business)`,
		`permanently (delete|remove|close)`,
		`shut down (my )?(shop|store)`,
	)},
	{TopicChangePrice, compileAll(
		`how (do i|can i|to) (change|update|modify) (the )?price`,
		`(change|update|edit) price`,
	)},
	{TopicUpdateLocation, compileAll(
		`how (do i|can i|to) (change|update) (my )?location`,
		`(change|update) (my )?address`,
		`move (my )?(shop|store)`,
	)},
	{TopicCustomers, compileAll(
		`how (do|will) customers? find me`,
		`how (do i|to) get customers?`,
		`where (do|will) (i|my shop) appear`,
		`how (do|can) people see (my )?(shop|store)`,
	)},
	{TopicOrders, compileAll(
		`how (do|will) orders? work`,
		`how (do i|to) (get|receive) orders?`,
		`what happens when (someone|a customer) orders?`,
	)},
	{TopicPayments, compileAll(
		`how (do|does) payments? work`,
		`how (do i|to) (get|receive) (money|payments?)`,
		`upi`,
	)},
	{TopicWhatIsThis, compileAll(
		`what is (this|vendorgo)`,
		`tell me about vendorgo`,
		`what (does|can) (this|vendorgo) do`,
	)},
	{TopicPricing, compileAll(
		`how much (does|is|cost)`,
		`(is it|it'?s) free`,
		`do i (have to|need to) pay`,
		`(fee|charge|commission)`,
	)},
	{TopicVisibility, compileAll(
		`can customers? see`,
		`(visible|visibility)`,
		`show (up|on) (the )?(map|google)`,
		`not (showing|appearing|visible)`,
	)},
	{TopicTroubleshoot, compileAll(
		`(not|doesn'?t|isn'?t|can'?t) (work|working|show|showing|appear)`,
		`(problem|issue|error|trouble)`,
		`why (is|isn'?t|doesn'?t|can'?t)`,
		`(fix|solve)`,
	)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(`(?i)` + p)
	}
	return res
}

// HelpService resolves free-text questions to canned, context-aware
// explanations.
type HelpService struct{}

// NewHelpService creates a new help responder
func NewHelpService() *HelpService {
	return &HelpService{}
}

// ResolveTopic picks the best-matching topic for a question.
func (h *HelpService) ResolveTopic(question string) HelpTopic {
	msg := strings.ToLower(strings.TrimSpace(question))
	for _, tp := range topicPatterns {
		for _, re := range tp.patterns {
			if re.MatchString(msg) {
				return tp.topic
			}
		}
	}
	return TopicGeneral
}

// Respond answers a question using the session for context. Troubleshooting
// is the one topic that reasons over session state instead of returning a
// static template.
func (h *HelpService) Respond(question string, session *Session) string {
	switch h.ResolveTopic(question) {
	case TopicAddProducts:
		reply := `📦 *How to Add Products:*

*Single Product:*
Just type: Product Name ₹Price
Example: "Samosa ₹15"

*Multiple Products (comma-separated):*
Type: Product1 ₹Price1, Product2 Rs Price2
Example: "Samosa ₹15, Tea Rs 10, Coffee ₹20"

*Supported Price Formats:*
• ₹ symbol: "Samosa ₹15"
• Rs: "Tea Rs 10"
• Rupees: "Coffee rupees 20"`
		if n := len(session.Draft.Products); n > 0 {
			reply += fmt.Sprintf("\n\n✅ You currently have %d product(s).\nType \"show products\" to see them.", n)
		} else {
			reply += "\n\n💡 Try adding your first product now!"
		}
		return reply

	case TopicDeleteProduct:
		if len(session.Draft.Products) == 0 {
			return `❌ You don't have any products yet.

First, add some products:
"Product Name ₹Price"

Then you can delete them with:
"delete [product name]"`
		}
		examples := session.Draft.Products
		if len(examples) > 3 {
			examples = examples[:3]
		}
		var lines []string
		for _, p := range examples {
			lines = append(lines, "• delete "+strings.ToLower(p.Name))
		}
		return fmt.Sprintf(`🗑️ *How to Delete a Product:*

*Command:*
delete [product name]

*Examples:*
%s

Type "show products" to see all products.`, strings.Join(lines, "\n"))

	case TopicDeleteShop:
		return `🗑️ *How to Delete Your Entire Shop:*

⚠️ *Warning:* This is PERMANENT and will remove:
• All your products
• Your store from the map
• All customer access

*Steps:*
1. Type: "delete shop"
2. Confirm by typing: "YES DELETE SHOP" (exact phrase)

Are you sure you want to delete? Type "delete shop" to proceed.`

	case TopicChangePrice:
		return `💰 *How to Change a Product Price:*

1. Delete the old product: "delete [product name]"
2. Add it again with the new price: "Product Name ₹NewPrice"

*Example:* to change Samosa from ₹15 to ₹20:
1. Type: "delete samosa"
2. Type: "Samosa ₹20"`

	case TopicUpdateLocation:
		return `📍 *Updating Your Location:*

Location changes aren't available over chat yet.

If your stall has moved, delete your shop ("delete shop") and
create it again with "start" — onboarding takes 2 minutes.`

	case TopicCustomers:
		return `🎯 *Customer Discovery:*

✅ Your shop appears on the map automatically
✅ Customers see you in the customer app
✅ No extra steps needed!

Share your store link with customers to get started.`

	case TopicOrders:
		return `📊 *How Orders Work:*

1. A customer finds your shop and places an order
2. You get a message with the order details
3. Prepare the order and hand it over
4. Payment goes straight to your UPI

Type "orders" to see your recent orders.`

	case TopicPayments:
		return `💰 *Payments:*

🔐 Direct UPI to your account
✅ No commission
✅ Instant payment
💯 Keep 100% of earnings

Money goes straight to you!`

	case TopicWhatIsThis:
		return `🏪 *VendorGo* helps street vendors and small businesses get
a free digital storefront over WhatsApp.

• Customers find you on the map
• Online ordering, direct UPI payments
• Manage everything by chatting with me

Type "start" to create your shop!`

	case TopicPricing:
		return `💰 *Pricing:*

🆓 *100% FREE*
❌ No hidden fees
💯 Zero commission
✅ Keep all your earnings

Ready to start? Type "start"!`

	case TopicVisibility, TopicTroubleshoot:
		return h.Diagnose(session)

	default:
		return `👋 *I'm here to help!*

*Ask me:*
• "How do I add products?"
• "How do customers find me?"
• "How much does it cost?"
• "How do payments work?"

*Or type:*
• "start" - Create shop
• "help" - Show commands

What would you like to know?`
	}
}

// Diagnose inspects the session and reports which preconditions for shop
// visibility are unmet, with a fix for each gap.
func (h *HelpService) Diagnose(session *Session) string {
	var report strings.Builder
	report.WriteString("🔍 *Shop Diagnostic Report:*\n\n")

	var issues, fixes []string

	if session.VendorRef == "" {
		report.WriteString("❌ *Shop Status:* Not created\n")
		issues = append(issues, "Shop not in database")
		fixes = append(fixes, `Complete onboarding: type "start"`)
	} else {
		report.WriteString(fmt.Sprintf("✅ *Shop Status:* Created (ID: %s)\n", session.VendorRef))
	}

	if n := len(session.Draft.Products); n == 0 {
		report.WriteString("❌ *Products:* None added\n")
		issues = append(issues, "No products")
		fixes = append(fixes, `Add products: "Product ₹Price"`)
	} else {
		report.WriteString(fmt.Sprintf("✅ *Products:* %d item(s)\n", n))
	}

	if session.Draft.Location != "" {
		report.WriteString(fmt.Sprintf("✅ *Location:* %s\n", session.Draft.Location))
	} else {
		report.WriteString("❌ *Location:* Not set\n")
		issues = append(issues, "Location missing")
		fixes = append(fixes, "Complete onboarding to set your location")
	}

	if session.Draft.Name != "" {
		report.WriteString(fmt.Sprintf("✅ *Name:* %s\n", session.Draft.Name))
	} else {
		report.WriteString("❌ *Name:* Not set\n")
	}

	report.WriteString("\n")

	if len(issues) == 0 {
		report.WriteString("🎉 *All checks passed!*\n\nYour shop should be visible to customers.\n\nStill not showing? Tell me what's wrong and I'll investigate!")
	} else {
		report.WriteString(fmt.Sprintf("⚠️ *Found %d issue(s):*\n", len(issues)))
		for i, issue := range issues {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, issue))
		}
		report.WriteString("\n*Recommended Fixes:*\n")
		for i, fix := range fixes {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, fix))
		}
		report.WriteString("\n*Need help?* Just ask me!")
	}

	return report.String()
}
