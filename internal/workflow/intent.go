package workflow

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/antavlouros/tempo/internal/llm"
)

// Intent is what the user wants from this turn.
type Intent string

const (
	IntentGenerate Intent = "generate"
	IntentStatus   Intent = "status"
	IntentList     Intent = "list"
	IntentMenu     Intent = "menu"
	IntentGeneral  Intent = "general"
	IntentDelete   Intent = "delete"
	IntentComment  Intent = "comment"
	IntentQuit     Intent = "quit"
	IntentUnknown  Intent = "unknown"
)

// intentByAction maps the single-letter action codes the classifier prompt
// uses to intents. Anything else is coerced to unknown.
var intentByAction = map[string]Intent{
	"T":  IntentGenerate,
	"S":  IntentStatus,
	"L":  IntentList,
	"M":  IntentMenu,
	"GM": IntentGeneral,
	"D":  IntentDelete,
	"C":  IntentComment,
	"Q":  IntentQuit,
}

// classifyLexical recognizes unmistakable commands without a model call.
// Returns IntentUnknown when the input needs real classification.
func classifyLexical(input string) Intent {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "q", "quit", "exit", "bye":
		return IntentQuit
	case "l", "list", "ls", "list tasks", "show tasks":
		return IntentList
	case "m", "menu", "help", "?":
		return IntentMenu
	default:
		return IntentUnknown
	}
}

// classify determines the intent of a user message, trying the lexical
// shortcuts first and falling back to the model. Classification failures
// degrade to IntentGeneral so the conversation never dead-ends.
func (c *Controller) classify(ctx context.Context, input string) Intent {
	if intent := classifyLexical(input); intent != IntentUnknown {
		return intent
	}

	var raw string
	err := llm.Do(ctx, c.retry, func(ctx context.Context) error {
		var err error
		raw, err = c.completer.Complete(ctx, classifySystemPrompt, input)
		return err
	})
	if err != nil {
		return IntentGeneral
	}

	doc, err := llm.ExtractJSON(raw)
	if err != nil {
		return IntentGeneral
	}

	var parsed struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return IntentGeneral
	}

	intent, ok := intentByAction[strings.ToUpper(strings.TrimSpace(parsed.Action))]
	if !ok {
		return IntentGeneral
	}
	return intent
}
