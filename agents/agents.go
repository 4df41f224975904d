package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/effective-security/xlog"
	"github.com/stormwatch/agentic/pkg/llms"
	"github.com/stormwatch/agentic/tools"
)

var logger = xlog.NewPackageLogger("github.com/stormwatch/agentic", "agents")

//go:generate mockgen -destination=../mocks/mockllms/llms_mock.gen.go -package mockllms github.com/stormwatch/agentic/pkg/llms Model

// IAgent is the operation set every agent exposes to external callers.
type IAgent interface {
	// Name returns the name of the Agent.
	Name() string
	// Description returns the description of the Agent, to be used in the
	// prompt of other Agents or LLMs. Should not exceed LLM model limit.
	Description() string
	// Tools returns the bound tool set.
	Tools() []tools.ITool

	// Execute processes one user query against the prior conversation.
	// It is total: it always returns a result value and never panics or
	// returns a Go error.
	Execute(ctx context.Context, query string, history []llms.Message) *ExecutionResult
}

// ToolStep is one (tool-call request, tool result) pair recorded in the
// call-local scratch pad, in causal order.
type ToolStep struct {
	Call     llms.ToolCall
	Response llms.ToolCallResponse
}

// ExecutionResult is the tagged outcome of an Execute call: exactly one of
// Answer or Error is set.
type ExecutionResult struct {
	// Answer is the final natural-language answer.
	Answer string
	// Error describes why the call failed.
	Error string
	// Steps is the scratch pad: the tool rounds performed during this call.
	Steps []ToolStep
	// Messages is the working transcript at the end of the call, including
	// the system prompt and all tool turns. It is discarded by the loop;
	// callers may inspect or persist it.
	Messages []llms.Message
}

// Failed reports whether the call produced an error outcome.
func (r *ExecutionResult) Failed() bool {
	return r.Error != ""
}

// GetDescriptions renders a listing of agents for use in prompts.
func GetDescriptions(list ...IAgent) string {
	var ts strings.Builder
	for _, item := range list {
		ts.WriteString(fmt.Sprintf("- `%s`: %s\n", item.Name(), item.Description()))
	}
	return ts.String()
}
