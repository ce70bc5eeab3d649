package services

import (
	"strings"
)

// IntentKind is the coarse category an inbound message falls into.
type IntentKind int

const (
	IntentCommand IntentKind = iota
	IntentDataPayload
	IntentQuestion
)

func (k IntentKind) String() string {
	switch k {
	case IntentCommand:
		return "command"
	case IntentDataPayload:
		return "data"
	case IntentQuestion:
		return "question"
	}
	return "unknown"
}

// Command is a fixed-vocabulary control instruction.
type Command string

const (
	CmdNone              Command = ""
	CmdStart             Command = "start"
	CmdDone              Command = "done"
	CmdYes               Command = "yes"
	CmdNo                Command = "no"
	CmdCancel            Command = "cancel"
	CmdHelp              Command = "help"
	CmdShowProducts      Command = "show_products"
	CmdDeleteShop        Command = "delete_shop"
	CmdConfirmDeleteShop Command = "confirm_delete_shop"
	CmdDeleteProduct     Command = "delete_product"
	CmdRenameShop        Command = "rename_shop"
	CmdCheckStatus       Command = "check_status"
	CmdOrders            Command = "orders"
)

// Intent is the classification result for one inbound message.
type Intent struct {
	Kind    IntentKind
	Command Command
	Arg     string // product name for delete_product
}

// IntentClassifier decides whether a message is a command, product data,
// or a free-text question. Commands always win so the state machine stays
// deterministic, and price-bearing text always beats question detection
// because product entry routinely reads like a question.
type IntentClassifier struct {
	extractor *ExtractionService
}

// NewIntentClassifier creates a new intent classifier
func NewIntentClassifier(extractor *ExtractionService) *IntentClassifier {
	return &IntentClassifier{extractor: extractor}
}

var questionStarters = []string{
	"how", "what", "why", "when", "where", "who", "can", "do", "does",
	"is", "are", "will", "would", "could", "should",
}

var helpVocabulary = []string{
	"help", "assist", "support", "explain", "tell me", "show me", "guide",
}

var problemVocabulary = []string{
	"problem", "issue", "error", "not working", "doesn't work", "can't",
	"cant", "unable", "not showing", "not appearing",
}

// prefixCommands maps recognized spellings to canonical commands, longest
// spellings checked first so "delete shop" is never read as "delete <item>".
var prefixCommands = []struct {
	phrase string
	cmd    Command
}{
	{"yes delete shop", CmdConfirmDeleteShop},
	{"show products", CmdShowProducts},
	{"list products", CmdShowProducts},
	{"my products", CmdShowProducts},
	{"delete shop", CmdDeleteShop},
	{"close shop", CmdDeleteShop},
	{"remove shop", CmdDeleteShop},
	{"change name", CmdRenameShop},
	{"rename shop", CmdRenameShop},
	{"edit name", CmdRenameShop},
	{"check status", CmdCheckStatus},
	{"check shop", CmdCheckStatus},
	{"diagnose", CmdCheckStatus},
	{"orders", CmdOrders},
	{"done", CmdDone},
	{"finish", CmdDone},
	{"complete", CmdDone},
	{"cancel", CmdCancel},
	{"help", CmdHelp},
	{"start", CmdStart},
	{"hello", CmdStart},
	{"hi", CmdStart},
	{"yes", CmdYes},
	{"no", CmdNo},
}

// Classify categorizes one line of text. First match wins in the order:
// command vocabulary, price-bearing payload, question heuristics, then a
// default payload attempt.
func (c *IntentClassifier) Classify(text string) Intent {
	msg := strings.ToLower(strings.TrimSpace(text))

	if cmd, arg, ok := c.matchCommand(msg); ok {
		return Intent{Kind: IntentCommand, Command: cmd, Arg: arg}
	}

	// Price-bearing text is data even when it reads like a question
	// ("why tea ₹10" is data entry, not a question).
	if c.extractor.HasPriceMarker(msg) {
		return Intent{Kind: IntentDataPayload}
	}

	if c.isQuestion(msg) {
		return Intent{Kind: IntentQuestion}
	}

	return Intent{Kind: IntentDataPayload}
}

func (c *IntentClassifier) matchCommand(msg string) (Command, string, bool) {
	for _, pc := range prefixCommands {
		if msg == pc.phrase || strings.HasPrefix(msg, pc.phrase+" ") {
			return pc.cmd, "", true
		}
	}

	// "delete <item>" — but not when phrased as a question
	if strings.HasPrefix(msg, "delete ") && !strings.Contains(msg, "?") {
		arg := strings.TrimSpace(strings.TrimPrefix(msg, "delete "))
		if arg != "" {
			return CmdDeleteProduct, arg, true
		}
	}

	return CmdNone, "", false
}

func (c *IntentClassifier) isQuestion(msg string) bool {
	if strings.Contains(msg, "?") {
		return true
	}
	for _, w := range questionStarters {
		if strings.HasPrefix(msg, w+" ") {
			return true
		}
	}
	for _, w := range helpVocabulary {
		if strings.Contains(msg, w) {
			return true
		}
	}
	for _, w := range problemVocabulary {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}
