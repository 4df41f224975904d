package agents

import (
	"github.com/stormwatch/agentic/chatmodel"
	"github.com/stormwatch/agentic/pkg/llms"
	"github.com/stormwatch/agentic/store"
	"github.com/stormwatch/agentic/tools"
)

const (
	// DefaultMaxToolCalls is the round cap: the number of tool invocations
	// allowed within a single Execute call before it is declared divergent.
	DefaultMaxToolCalls = 5
	// DefaultMaxMessages bounds the working transcript length.
	DefaultMaxMessages = 100
	// DefaultMaxContentSize bounds the working transcript content size,
	// in bytes.
	DefaultMaxContentSize = 256 * 1024
	// DefaultMaxRetries is how many empty engine responses are retried
	// before the call fails.
	DefaultMaxRetries = 3
)

// Config accumulates the functional options applied at construction.
type Config struct {
	Name        string
	Description string

	Tools           []tools.ITool
	CallbackHandler Callback
	Store           store.MessageStore
	PromptInput     map[string]any
	Examples        chatmodel.FewShotExamples

	MaxToolCalls   int
	MaxMessages    int
	MaxContentSize uint64
	MaxRetries     int

	// SkipMessageHistory disables persisting the query and final answer to
	// the message store.
	SkipMessageHistory bool
	// SkipToolHistory excludes tool turns from the persisted history.
	SkipToolHistory bool

	model          string
	maxTokens      int
	temperature    float64
	modelSet       bool
	maxTokensSet   bool
	temperatureSet bool
}

// Option mutates the agent configuration.
type Option func(*Config)

// NewConfig returns a Config with defaults applied, then the options.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		MaxToolCalls:   DefaultMaxToolCalls,
		MaxMessages:    DefaultMaxMessages,
		MaxContentSize: DefaultMaxContentSize,
		MaxRetries:     DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// GetCallOptions returns the model call options configured on the agent,
// with any extra options appended.
func (c *Config) GetCallOptions(extra ...llms.CallOption) []llms.CallOption {
	var callOpts []llms.CallOption
	if c.modelSet {
		callOpts = append(callOpts, llms.WithModel(c.model))
	}
	if c.maxTokensSet {
		callOpts = append(callOpts, llms.WithMaxTokens(c.maxTokens))
	}
	if c.temperatureSet {
		callOpts = append(callOpts, llms.WithTemperature(c.temperature))
	}
	return append(callOpts, extra...)
}

// WithName sets the agent name.
func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithDescription sets the agent description, used when the agent is listed
// in another agent's prompt.
func WithDescription(description string) Option {
	return func(c *Config) {
		c.Description = description
	}
}

// WithTools binds tools to the agent.
func WithTools(list ...tools.ITool) Option {
	return func(c *Config) {
		c.Tools = append(c.Tools, list...)
	}
}

// WithCallback sets the callback handler notified of loop events.
func WithCallback(cb Callback) Option {
	return func(c *Config) {
		c.CallbackHandler = cb
	}
}

// WithStore sets the message store used to persist conversation turns
// across Execute calls.
func WithStore(s store.MessageStore) Option {
	return func(c *Config) {
		c.Store = s
	}
}

// WithPromptInput sets additional inputs for the system prompt template.
func WithPromptInput(input map[string]any) Option {
	return func(c *Config) {
		c.PromptInput = input
	}
}

// WithExamples sets few-shot examples appended after the system prompt.
func WithExamples(examples chatmodel.FewShotExamples) Option {
	return func(c *Config) {
		c.Examples = examples
	}
}

// WithMaxToolCalls sets the tool-invocation round cap per Execute call.
func WithMaxToolCalls(limit int) Option {
	return func(c *Config) {
		c.MaxToolCalls = limit
	}
}

// WithMaxMessages sets the working transcript message-count budget.
func WithMaxMessages(limit int) Option {
	return func(c *Config) {
		c.MaxMessages = limit
	}
}

// WithMaxContentSize sets the working transcript content-size budget.
func WithMaxContentSize(limit uint64) Option {
	return func(c *Config) {
		c.MaxContentSize = limit
	}
}

// WithMaxRetries sets how many empty engine responses are retried.
func WithMaxRetries(limit int) Option {
	return func(c *Config) {
		c.MaxRetries = limit
	}
}

// WithSkipMessageHistory disables persisting turns to the message store.
func WithSkipMessageHistory(skip bool) Option {
	return func(c *Config) {
		c.SkipMessageHistory = skip
	}
}

// WithSkipToolHistory excludes tool turns from persisted history.
func WithSkipToolHistory(skip bool) Option {
	return func(c *Config) {
		c.SkipToolHistory = skip
	}
}

// WithModel overrides the engine model for this agent's calls.
func WithModel(model string) Option {
	return func(c *Config) {
		c.model = model
		c.modelSet = true
	}
}

// WithMaxTokens sets the completion token limit for this agent's calls.
func WithMaxTokens(maxTokens int) Option {
	return func(c *Config) {
		c.maxTokens = maxTokens
		c.maxTokensSet = true
	}
}

// WithTemperature sets the sampling temperature for this agent's calls.
func WithTemperature(temperature float64) Option {
	return func(c *Config) {
		c.temperature = temperature
		c.temperatureSet = true
	}
}
