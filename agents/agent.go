package agents

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/stormwatch/agentic/chatmodel"
	"github.com/stormwatch/agentic/pkg/llms"
	"github.com/stormwatch/agentic/pkg/llmutils"
	"github.com/stormwatch/agentic/pkg/metricskey"
	"github.com/stormwatch/agentic/pkg/prompts"
	"github.com/stormwatch/agentic/tools"
)

// Agent drives a reasoning model through tool-invocation rounds until the
// model produces a plain answer. The agent is stateless across Execute
// calls: the working transcript is call-local and conversation continuity
// comes from the caller-supplied history and the optional message store.
type Agent struct {
	llm    llms.Model
	prompt prompts.FormatPrompter
	cfg    *Config

	toolsByName map[string]tools.ITool
	toolList    []tools.ITool
	llmTools    []llms.Tool
}

var _ IAgent = (*Agent)(nil)

// New creates an agent bound to a reasoning model and a system prompt.
// Construction is the only place this package returns a Go error: a nil
// model or prompt, a nil or duplicate tool, or a model without tool-calling
// support when tools are bound.
func New(llm llms.Model, prompt prompts.FormatPrompter, opts ...Option) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("reasoning model is required")
	}
	if prompt == nil {
		return nil, errors.New("system prompt is required")
	}

	cfg := NewConfig(opts...)

	a := &Agent{
		llm:         llm,
		prompt:      prompt,
		cfg:         cfg,
		toolsByName: map[string]tools.ITool{},
	}

	for _, tool := range cfg.Tools {
		if tool == nil {
			return nil, errors.New("nil tool provided")
		}
		key := strings.ToLower(tool.Name())
		if _, ok := a.toolsByName[key]; ok {
			return nil, errors.Newf("duplicate tool name: %s", tool.Name())
		}
		a.toolsByName[key] = tool
		a.toolList = append(a.toolList, tool)
		a.llmTools = append(a.llmTools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}

	if len(a.toolList) > 0 && !llm.GetProviderType().Supports(llms.CapabilityFunctionCalling) {
		return nil, errors.Newf("model %s does not support tool calling", llm.GetName())
	}

	return a, nil
}

// Name returns the agent name.
func (a *Agent) Name() string {
	return values.StringsCoalesce(a.cfg.Name, "Agent")
}

// Description returns the agent description.
func (a *Agent) Description() string {
	return a.cfg.Description
}

// Tools returns the bound tool set.
func (a *Agent) Tools() []tools.ITool {
	return a.toolList
}

// GetSystemPrompt renders the system prompt with the configured inputs,
// plus the built-in `tools` and `tool_names` listings.
func (a *Agent) GetSystemPrompt() (string, error) {
	names := make([]string, 0, len(a.toolList))
	for _, tool := range a.toolList {
		names = append(names, tool.Name())
	}
	inputs := llmutils.MergeInputs(map[string]any{
		"tools":      tools.GetDescriptions(a.toolList...),
		"tool_names": strings.Join(names, ", "),
	}, a.cfg.PromptInput)

	pv, err := a.prompt.FormatPrompt(inputs)
	if err != nil {
		return "", errors.WithMessage(err, "failed to format system prompt")
	}
	return llmutils.EnsureEndsWithNewline(pv.String()), nil
}

// Execute processes one user query against the prior conversation. It is
// total: every failure, including a panic below this frame, is reported
// through the Error field of the result.
func (a *Agent) Execute(ctx context.Context, query string, history []llms.Message) (res *ExecutionResult) {
	started := time.Now()
	defer func() {
		metricskey.PerfAgentCall.MeasureSince(started, a.Name())
		if r := recover(); r != nil {
			logger.ContextKV(ctx, xlog.ERROR,
				"agent", a.Name(),
				"status", "panic_recovered",
				"err", r,
			)
			metricskey.StatsAgentCallsFailed.IncrCounter(1, a.Name())
			res = &ExecutionResult{Error: errors.Newf("unable to process the query: %v", r).Error()}
		}
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return &ExecutionResult{Error: "Empty query provided"}
	}

	cb := a.cfg.CallbackHandler
	if cb != nil {
		cb.OnAgentStart(ctx, a, query)
	}

	res, err := a.run(ctx, query, NormalizeHistory(history))
	if err != nil {
		metricskey.StatsAgentCallsFailed.IncrCounter(1, a.Name())
		res.Error = err.Error()
		res.Answer = ""
	} else {
		metricskey.StatsAgentCallsSucceeded.IncrCounter(1, a.Name())
	}
	if cb != nil {
		cb.OnAgentEnd(ctx, a, query, res)
	}
	return res
}

// run executes the decision loop. The returned result always carries the
// scratch pad and transcript accumulated so far, even on error.
func (a *Agent) run(ctx context.Context, query string, history []llms.Message) (*ExecutionResult, error) {
	res := &ExecutionResult{}

	systemPrompt, err := a.GetSystemPrompt()
	if err != nil {
		return res, err
	}

	transcript := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, systemPrompt),
	}
	for _, ex := range a.cfg.Examples {
		transcript = append(transcript,
			llms.MessageFromTextParts(llms.RoleHuman, ex.Prompt),
			llms.MessageFromTextParts(llms.RoleAI, ex.Completion),
		)
	}

	if a.cfg.Store != nil {
		stored, err := a.cfg.Store.Messages(ctx)
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", a.Name(),
				"status", "store_read_failed",
				"err", err.Error(),
			)
		} else {
			transcript = append(transcript, stored...)
		}
	}

	transcript = append(transcript, history...)
	transcript = append(transcript, llms.MessageFromTextParts(llms.RoleHuman, query))
	runStart := len(transcript) - 1

	callOpts := a.cfg.GetCallOptions()
	if len(a.llmTools) > 0 {
		callOpts = append(callOpts, llms.WithTools(a.llmTools))
	}

	cb := a.cfg.CallbackHandler
	model := a.llm.GetName()

	toolCalls := 0
	retries := 0
	for {
		res.Messages = transcript

		if len(transcript) > a.cfg.MaxMessages {
			return res, errors.Newf("conversation exceeded %d messages", a.cfg.MaxMessages)
		}
		size := llmutils.CountMessagesContentSize(transcript)
		if size > a.cfg.MaxContentSize {
			return res, errors.Newf("conversation content exceeded %d bytes", a.cfg.MaxContentSize)
		}

		if cb != nil {
			cb.OnAgentLLMCallStart(ctx, a, a.llm, transcript)
		}
		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(transcript)), a.Name(), model)
		metricskey.StatsLLMBytesSent.IncrCounter(float64(size), a.Name(), model)

		resp, err := a.llm.GenerateContent(ctx, transcript, callOpts...)
		if err != nil {
			return res, errors.WithMessage(err, "failed to generate content")
		}
		if cb != nil {
			cb.OnAgentLLMCallEnd(ctx, a, a.llm, resp)
		}

		metricskey.StatsLLMBytesReceived.IncrCounter(float64(llmutils.CountResponseContentSize(resp)), a.Name(), model)
		in, out, _ := llmutils.CountTokens(resp)
		if in > 0 {
			metricskey.StatsLLMInputTokens.IncrCounter(float64(in), a.Name(), model)
		}
		if out > 0 {
			metricskey.StatsLLMOutputTokens.IncrCounter(float64(out), a.Name(), model)
		}

		if len(resp.Choices) == 0 {
			retries++
			if retries >= a.cfg.MaxRetries {
				return res, errors.Newf("model returned no response after %d attempts", a.cfg.MaxRetries)
			}
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", a.Name(),
				"status", "empty_response_retry",
				"attempt", retries,
			)
			continue
		}
		retries = 0

		choice := resp.Choices[0]
		if len(choice.ToolCalls) == 0 {
			res.Answer = choice.Content
			transcript = append(transcript, llms.MessageFromTextParts(llms.RoleAI, choice.Content))
			res.Messages = transcript
			a.persist(ctx, transcript[runStart:])
			return res, nil
		}

		if toolCalls >= a.cfg.MaxToolCalls {
			return res, errors.Newf("tool call limit of %d exceeded without a final answer", a.cfg.MaxToolCalls)
		}

		// One tool per round: only the first requested call is executed,
		// and the model re-decides after seeing its result.
		transcript, err = a.executeToolCall(ctx, res, transcript, choice.ToolCalls[0], toolCalls)
		if err != nil {
			res.Messages = transcript
			return res, err
		}
		toolCalls++
	}
}

// executeToolCall appends the tool-call turn and its response turn to the
// transcript, records the step in the scratch pad, and returns the grown
// transcript. Unmarshal failures are fed back to the model as the tool
// response; an unknown tool name aborts the call.
func (a *Agent) executeToolCall(ctx context.Context, res *ExecutionResult, transcript []llms.Message, tc llms.ToolCall, ordinal int) ([]llms.Message, error) {
	if tc.FunctionCall == nil {
		return transcript, errors.New("malformed tool call: missing function")
	}
	tc.ID = values.StringsCoalesce(tc.ID, tc.FunctionCall.Name)
	tc.Type = values.StringsCoalesce(tc.Type, "function")
	name := tc.FunctionCall.Name

	cb := a.cfg.CallbackHandler

	tool := a.toolsByName[strings.ToLower(name)]
	if tool == nil {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
		if cb != nil {
			cb.OnToolNotFound(ctx, a, name)
		}
		return transcript, errors.Newf("requested unknown tool: %s", name)
	}

	transcript = append(transcript, llms.MessageFromToolCalls(llms.RoleAI, tc))

	input := tc.FunctionCall.Arguments
	if cb != nil {
		cb.OnToolStart(ctx, tool, a.Name(), input)
	}

	started := time.Now()
	output, err := tool.Call(ctx, input)
	metricskey.PerfToolCall.MeasureSince(started, name)

	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, name)
		if cb != nil {
			cb.OnToolError(ctx, tool, a.Name(), input, err)
		}
		if !errors.Is(err, chatmodel.ErrFailedUnmarshalInput) {
			return transcript, errors.WithMessagef(err, "failed to call tool %s", name)
		}
		// Send the schema mismatch back so the model can correct itself.
		output = err.Error()
	} else {
		metricskey.StatsToolCallsSucceeded.IncrCounter(1, name)
		if cb != nil {
			cb.OnToolEnd(ctx, tool, a.Name(), input, output)
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"agent", a.Name(),
		"tool", name,
		"round", ordinal+1,
		"response_size", len(output),
	)

	toolResp := llms.ToolCallResponse{
		ToolCallID: tc.ID,
		Name:       name,
		Content:    output,
	}
	transcript = append(transcript, llms.MessageFromToolResponse(llms.RoleTool, toolResp))
	res.Steps = append(res.Steps, ToolStep{Call: tc, Response: toolResp})
	return transcript, nil
}

// persist appends this run's turns to the message store, if configured.
func (a *Agent) persist(ctx context.Context, turns []llms.Message) {
	if a.cfg.Store == nil || a.cfg.SkipMessageHistory {
		return
	}
	if a.cfg.SkipToolHistory {
		kept := make([]llms.Message, 0, len(turns))
		for _, m := range turns {
			if m.Role == llms.RoleTool {
				continue
			}
			if m.Role == llms.RoleAI {
				if _, ok := m.Parts[0].(llms.ToolCall); ok {
					continue
				}
			}
			kept = append(kept, m)
		}
		turns = kept
	}
	if err := a.cfg.Store.Add(ctx, turns...); err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"agent", a.Name(),
			"status", "store_write_failed",
			"err", err.Error(),
		)
	}
}
