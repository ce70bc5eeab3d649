package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// ProductDraft is a validated (name, price) candidate extracted from a
// vendor's message. Price is in whole rupees.
type ProductDraft struct {
	Name        string `json:"name"`
	Price       int    `json:"price"`
	Description string `json:"description"`
}

const (
	minProductNameLen = 2
	maxProductNameLen = 50
	minProductPrice   = 1
	maxProductPrice   = 10000000 // up to 1 crore
)

// productPattern binds a regex to the capture-group positions of name and
// price, since the price-first shape reverses them.
type productPattern struct {
	re         *regexp.Regexp
	nameGroup  int
	priceGroup int
}

var productPatterns = []productPattern{
	// "samosa ₹15", "tea rs 10", "coffee rupees 20", "samsung s25 ultra ₹50,000"
	{
		re:         regexp.MustCompile(`(?i)([a-zA-Z][a-zA-Z\d\s]{0,48}?)\s*(?:₹|\brs\.?|\brupees?)\s*([\d,]+)`),
		nameGroup:  1,
		priceGroup: 2,
	},
	// "₹15 samosa", "rs 10 tea"
	{
		re:         regexp.MustCompile(`(?i)(?:₹|\brs\.?|\brupees?)\s*([\d,]+)\s+([a-zA-Z][a-zA-Z\d\s]{0,48})`),
		nameGroup:  2,
		priceGroup: 1,
	},
	// "samosa - 15", "tea: 10"
	{
		re:         regexp.MustCompile(`([a-zA-Z][a-zA-Z\d\s]{0,48}?)\s*[-:]\s*([\d,]+)`),
		nameGroup:  1,
		priceGroup: 2,
	},
}

// priceMarkerPattern recognizes price-bearing text for intent
// classification. A bare hyphen is deliberately excluded here so that
// ordinary prose with dashes is not mistaken for product data.
var priceMarkerPattern = regexp.MustCompile(`(?i)(₹|\brs\.?\s*\d|\brupees?\s*\d)`)

// productStoplist rejects grammatical fillers and session-control keywords
// so command words never turn into products.
var productStoplist = map[string]struct{}{}

func init() {
	words := []string{
		"the", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by",
		"is", "are", "was", "were", "i", "you", "he", "she", "it", "we", "they",
		"this", "that", "these", "those", "my", "your", "his", "her", "our", "their",
		"sell", "have", "has", "had", "do", "does", "did", "will", "would", "could",
		"should", "can", "may", "might", "must", "want", "need", "like",
		"get", "got", "make", "made", "add", "new", "product", "item",
		"done", "finish", "complete", "delete", "remove", "show", "list",
		"help", "start", "cancel", "yes", "no", "shop", "why", "how", "what",
	}
	for _, w := range words {
		productStoplist[w] = struct{}{}
	}
}

// ExtractionService turns free text into validated product drafts
type ExtractionService struct{}

// NewExtractionService creates a new extraction service
func NewExtractionService() *ExtractionService {
	return &ExtractionService{}
}

type extractedCandidate struct {
	pos   int
	draft ProductDraft
}

// ExtractProducts runs the full pattern cascade over one line of text and
// returns validated drafts in input order. Candidates with the same
// normalized name are folded, last occurrence winning. An empty result
// means "no products found", not an error.
func (e *ExtractionService) ExtractProducts(text string) []ProductDraft {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var candidates []extractedCandidate
	for _, pattern := range productPatterns {
		matches := pattern.re.FindAllStringSubmatchIndex(text, -1)
		for _, m := range matches {
			name := submatch(text, m, pattern.nameGroup)
			priceStr := strings.ReplaceAll(submatch(text, m, pattern.priceGroup), ",", "")

			price, err := strconv.Atoi(priceStr)
			if err != nil {
				continue
			}

			name = cleanProductName(name)
			if !isValidProduct(name, price) {
				continue
			}

			display := normalizeDisplayName(name)
			candidates = append(candidates, extractedCandidate{
				pos: m[0],
				draft: ProductDraft{
					Name:        display,
					Price:       price,
					Description: display,
				},
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].pos < candidates[j].pos
	})

	return foldByName(candidates)
}

// HasPriceMarker reports whether text contains a currency marker followed by
// digits, the signal that a message is product data rather than a question.
func (e *ExtractionService) HasPriceMarker(text string) bool {
	return priceMarkerPattern.MatchString(text)
}

func submatch(text string, m []int, group int) string {
	start, end := m[2*group], m[2*group+1]
	if start < 0 || end < 0 {
		return ""
	}
	return text[start:end]
}

// cleanProductName strips surrounding noise before validation.
func cleanProductName(name string) string {
	return strings.Trim(strings.TrimSpace(name), ".,;:-–")
}

func isValidProduct(name string, price int) bool {
	if len(name) < minProductNameLen || len(name) > maxProductNameLen {
		return false
	}
	if price < minProductPrice || price > maxProductPrice {
		return false
	}

	// Must contain at least one letter, so bare numbers never become
	// product names.
	hasLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return false
	}

	lower := strings.ToLower(name)
	if _, stopped := productStoplist[lower]; stopped {
		return false
	}

	// Completion keywords buried inside a longer name still indicate the
	// vendor was talking to the bot, not naming an item.
	for _, kw := range []string{"done", "finish", "complete"} {
		if strings.Contains(lower, kw) {
			return false
		}
	}

	return true
}

// normalizeDisplayName trims, collapses internal whitespace and
// title-cases each word.
func normalizeDisplayName(name string) string {
	fields := strings.Fields(name)
	for i, f := range fields {
		lower := strings.ToLower(f)
		fields[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(fields, " ")
}

// foldByName deduplicates candidates case-insensitively, keeping the slot
// of the first occurrence but the values of the last.
func foldByName(candidates []extractedCandidate) []ProductDraft {
	if len(candidates) == 0 {
		return nil
	}

	products := make([]ProductDraft, 0, len(candidates))
	index := make(map[string]int)
	for _, c := range candidates {
		key := strings.ToLower(c.draft.Name)
		if i, seen := index[key]; seen {
			products[i] = c.draft
			continue
		}
		index[key] = len(products)
		products = append(products, c.draft)
	}
	return products
}
