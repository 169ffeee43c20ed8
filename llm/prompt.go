package llm

// Params tunes model generation. All fields are optional pointers so absence
// can be distinguished from zero values; providers apply their own defaults
// for unset fields.
type Params struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// Float returns a *float64 for use in Params literals.
func Float(v float64) *float64 { return &v }

// Int returns an *int for use in Params literals.
func Int(v int) *int { return &v }

// Prompt is an ordered, append-only list of messages plus generation
// parameters. Prompts are immutable: all update methods return a copy with a
// freshly allocated message slice, so a Prompt value can be shared across
// goroutines without synchronization.
type Prompt struct {
	// ID names the prompt for correlation in logs and events.
	ID string
	// Messages in conversation order.
	Messages []Message
	// Params applied to every model request built from this prompt.
	Params Params
}

// NewPrompt constructs a prompt from the given messages.
func NewPrompt(id string, messages ...Message) Prompt {
	return Prompt{ID: id, Messages: messages}
}

// Append returns a copy of the prompt with messages appended.
func (p Prompt) Append(messages ...Message) Prompt {
	merged := make([]Message, 0, len(p.Messages)+len(messages))
	merged = append(merged, p.Messages...)
	merged = append(merged, messages...)

	p.Messages = merged

	return p
}

// WithMessages returns a copy of the prompt whose message list is the result
// of applying fn to a copy of the current list. fn may filter, rewrite or
// reorder; the receiver is never mutated.
func (p Prompt) WithMessages(fn func(messages []Message) []Message) Prompt {
	snapshot := make([]Message, len(p.Messages))
	copy(snapshot, p.Messages)

	p.Messages = fn(snapshot)

	return p
}

// WithParams returns a copy of the prompt with replaced generation parameters.
func (p Prompt) WithParams(params Params) Prompt {
	p.Params = params
	return p
}

// LastMessage returns the trailing message, or nil for an empty prompt.
func (p Prompt) LastMessage() Message {
	if len(p.Messages) == 0 {
		return nil
	}

	return p.Messages[len(p.Messages)-1]
}

// System returns the concatenated system instructions of the prompt.
func (p Prompt) System() string {
	var out string
	for _, m := range p.Messages {
		if sm, ok := m.(SystemMessage); ok {
			if out != "" {
				out += "\n"
			}
			out += sm.Content
		}
	}

	return out
}
