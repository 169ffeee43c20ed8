package llm

// Provider identifies a model vendor.
type Provider string

const (
	// ProviderOpenAI is the OpenAI Chat Completions API.
	ProviderOpenAI Provider = "openai"
	// ProviderAnthropic is the Anthropic Messages API.
	ProviderAnthropic Provider = "anthropic"
	// ProviderMock is the in-memory deterministic executor used in tests.
	ProviderMock Provider = "mock"
)

// Capability flags an optional model feature.
type Capability string

const (
	// CapabilityTools marks models that accept tool definitions.
	CapabilityTools Capability = "tools"
	// CapabilityStreaming marks models that support incremental output.
	CapabilityStreaming Capability = "streaming"
)

// Model describes a concrete model an executor can drive.
type Model struct {
	Provider     Provider     `json:"provider"`
	ID           string       `json:"id"`
	Capabilities []Capability `json:"capabilities,omitempty"`
}

// Supports reports whether the model declares the given capability.
func (m Model) Supports(c Capability) bool {
	for _, have := range m.Capabilities {
		if have == c {
			return true
		}
	}

	return false
}

// Common model descriptors. Callers needing other ids construct Model
// literals directly.
var (
	OpenAIGPT4oMini = Model{
		Provider:     ProviderOpenAI,
		ID:           "gpt-4o-mini",
		Capabilities: []Capability{CapabilityTools, CapabilityStreaming},
	}

	OpenAIGPT4o = Model{
		Provider:     ProviderOpenAI,
		ID:           "gpt-4o",
		Capabilities: []Capability{CapabilityTools, CapabilityStreaming},
	}

	AnthropicClaude35Sonnet = Model{
		Provider:     ProviderAnthropic,
		ID:           "claude-3-5-sonnet-20241022",
		Capabilities: []Capability{CapabilityTools},
	}

	MockModel = Model{
		Provider:     ProviderMock,
		ID:           "mock",
		Capabilities: []Capability{CapabilityTools, CapabilityStreaming},
	}
)
