// Package openai implements the llms.Model boundary on top of the
// OpenAI chat-completion API, including Azure OpenAI deployments.
package openai

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/stormwatch/agentic/pkg/llms"
)

// ErrEmptyResponse is returned when the API returns no choices.
var ErrEmptyResponse = errors.New("no response")

// Config describes a single OpenAI-compatible endpoint.
type Config struct {
	// Token is the API key.
	Token string
	// Model is the default model name used when the call does not override it.
	Model string
	// BaseURL overrides the API endpoint; required for Azure.
	BaseURL string
	// APIType is one of OPENAI, AZURE, AZURE_AD.
	APIType string
	// APIVersion is the Azure API version, e.g. 2024-02-01.
	APIVersion string
	// Deployment is the Azure deployment name; defaults to the model name.
	Deployment string
}

// LLM implements llms.Model over the OpenAI chat completion API.
type LLM struct {
	client   *openai.Client
	model    string
	provider llms.ProviderType
}

var _ llms.Model = (*LLM)(nil)

// New creates a new chat model client from the config.
func New(cfg *Config) (*LLM, error) {
	if cfg == nil || cfg.Token == "" {
		return nil, errors.New("openai: token is not set")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai: model is not set")
	}

	provider := llms.ProviderOpenAI
	var ccfg openai.ClientConfig
	switch strings.ToUpper(cfg.APIType) {
	case "AZURE", "AZURE_AD":
		if cfg.BaseURL == "" {
			return nil, errors.New("openai: base URL is required for Azure")
		}
		ccfg = openai.DefaultAzureConfig(cfg.Token, cfg.BaseURL)
		if strings.ToUpper(cfg.APIType) == "AZURE_AD" {
			ccfg.APIType = openai.APITypeAzureAD
			provider = llms.ProviderAzureAD
		} else {
			provider = llms.ProviderAzure
		}
		if cfg.APIVersion != "" {
			ccfg.APIVersion = cfg.APIVersion
		}
		if cfg.Deployment != "" {
			deployment := cfg.Deployment
			ccfg.AzureModelMapperFunc = func(string) string {
				return deployment
			}
		}
	default:
		ccfg = openai.DefaultConfig(cfg.Token)
		if cfg.BaseURL != "" {
			ccfg.BaseURL = cfg.BaseURL
		}
	}

	return &LLM{
		client:   openai.NewClientWithConfig(ccfg),
		model:    cfg.Model,
		provider: provider,
	}, nil
}

// GetName returns the model name used for requests.
func (o *LLM) GetName() string {
	return o.model
}

// GetProviderType returns the type of provider.
func (o *LLM) GetProviderType() llms.ProviderType {
	return o.provider
}

// GenerateContent sends the transcript to the chat completion API and maps
// the response, including any tool-call requests, back to llms types.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model: o.model,
	}
	for _, opt := range options {
		opt(&opts)
	}

	chatMsgs, err := toChatMessages(messages)
	if err != nil {
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    chatMsgs,
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}
	for _, tool := range opts.Tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			},
		})
	}
	if opts.ToolChoice != nil {
		req.ToolChoice = opts.ToolChoice
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.WithStack(ErrEmptyResponse)
	}

	choices := make([]*llms.ContentChoice, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		choice := &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
			GenerationInfo: map[string]any{
				"InputTokens":  resp.Usage.PromptTokens,
				"OutputTokens": resp.Usage.CompletionTokens,
				"TotalTokens":  resp.Usage.TotalTokens,
			},
		}
		for _, tc := range c.Message.ToolCalls {
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		choices = append(choices, choice)
	}

	return &llms.ContentResponse{Choices: choices}, nil
}

func toChatMessages(messages []llms.Message) ([]openai.ChatCompletionMessage, error) {
	chatMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{}
		switch m.Role {
		case llms.RoleSystem:
			msg.Role = openai.ChatMessageRoleSystem
		case llms.RoleHuman:
			msg.Role = openai.ChatMessageRoleUser
		case llms.RoleAI:
			msg.Role = openai.ChatMessageRoleAssistant
		case llms.RoleTool:
			msg.Role = openai.ChatMessageRoleTool
		default:
			return nil, errors.WithMessagef(llms.ErrUnexpectedRole, "%s", m.Role)
		}

		for _, p := range m.Parts {
			switch part := p.(type) {
			case llms.TextContent:
				msg.Content += part.Text
			case llms.ToolCall:
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   part.ID,
					Type: openai.ToolType(part.Type),
					Function: openai.FunctionCall{
						Name:      part.FunctionCall.Name,
						Arguments: part.FunctionCall.Arguments,
					},
				})
			case llms.ToolCallResponse:
				msg.ToolCallID = part.ToolCallID
				msg.Name = part.Name
				msg.Content = part.Content
			default:
				return nil, errors.Newf("unsupported content part %T", p)
			}
		}
		chatMsgs = append(chatMsgs, msg)
	}
	return chatMsgs, nil
}
