package agents

import (
	"context"
	"fmt"
	"io"

	"github.com/effective-security/xlog"
	"github.com/stormwatch/agentic/pkg/llms"
	"github.com/stormwatch/agentic/pkg/llmutils"
	"github.com/stormwatch/agentic/tools"
)

// Callback receives notifications as the execution loop progresses.
// Implementations must be cheap and must not panic.
type Callback interface {
	tools.Callback

	OnAgentStart(ctx context.Context, agent IAgent, query string)
	OnAgentEnd(ctx context.Context, agent IAgent, query string, res *ExecutionResult)
	OnAgentLLMCallStart(ctx context.Context, agent IAgent, llm llms.Model, payload []llms.Message)
	OnAgentLLMCallEnd(ctx context.Context, agent IAgent, llm llms.Model, resp *llms.ContentResponse)
	OnToolNotFound(ctx context.Context, agent IAgent, tool string)
}

// NoopCallback ignores all notifications. Embed it to implement only a
// subset of Callback.
type NoopCallback struct{}

var _ Callback = NoopCallback{}

func (NoopCallback) OnAgentStart(context.Context, IAgent, string)                       {}
func (NoopCallback) OnAgentEnd(context.Context, IAgent, string, *ExecutionResult)       {}
func (NoopCallback) OnAgentLLMCallStart(context.Context, IAgent, llms.Model, []llms.Message) {
}
func (NoopCallback) OnAgentLLMCallEnd(context.Context, IAgent, llms.Model, *llms.ContentResponse) {
}
func (NoopCallback) OnToolNotFound(context.Context, IAgent, string)                  {}
func (NoopCallback) OnToolStart(context.Context, tools.ITool, string, string)        {}
func (NoopCallback) OnToolEnd(context.Context, tools.ITool, string, string, string)  {}
func (NoopCallback) OnToolError(context.Context, tools.ITool, string, string, error) {}

// PrinterCallback writes a trace of the loop to a writer, for CLI use.
type PrinterCallback struct {
	NoopCallback
	W io.Writer
}

// NewPrinterCallback returns a callback tracing loop progress to w.
func NewPrinterCallback(w io.Writer) *PrinterCallback {
	return &PrinterCallback{W: w}
}

func (p *PrinterCallback) OnAgentStart(_ context.Context, agent IAgent, query string) {
	fmt.Fprintf(p.W, "[%s] query: %s\n", agent.Name(), query)
}

func (p *PrinterCallback) OnAgentEnd(_ context.Context, agent IAgent, _ string, res *ExecutionResult) {
	if res.Failed() {
		fmt.Fprintf(p.W, "[%s] failed: %s\n", agent.Name(), res.Error)
		return
	}
	fmt.Fprintf(p.W, "[%s] answer: %s\n", agent.Name(), res.Answer)
}

func (p *PrinterCallback) OnAgentLLMCallStart(_ context.Context, agent IAgent, llm llms.Model, payload []llms.Message) {
	fmt.Fprintf(p.W, "[%s] calling %s with %d messages\n", agent.Name(), llm.GetName(), len(payload))
}

func (p *PrinterCallback) OnToolStart(_ context.Context, tool tools.ITool, agentName string, input string) {
	fmt.Fprintf(p.W, "[%s] tool %s: %s\n", agentName, tool.Name(), llmutils.CleanJSON([]byte(input)))
}

func (p *PrinterCallback) OnToolEnd(_ context.Context, tool tools.ITool, agentName string, _ string, output string) {
	fmt.Fprintf(p.W, "[%s] tool %s returned %d bytes\n", agentName, tool.Name(), len(output))
}

func (p *PrinterCallback) OnToolError(_ context.Context, tool tools.ITool, agentName string, _ string, err error) {
	fmt.Fprintf(p.W, "[%s] tool %s error: %s\n", agentName, tool.Name(), err.Error())
}

// LogCallback traces loop progress through the package logger.
type LogCallback struct {
	NoopCallback
}

func (LogCallback) OnAgentStart(ctx context.Context, agent IAgent, query string) {
	logger.ContextKV(ctx, xlog.DEBUG,
		"agent", agent.Name(),
		"status", "started",
		"query", query,
	)
}

func (LogCallback) OnAgentEnd(ctx context.Context, agent IAgent, _ string, res *ExecutionResult) {
	if res.Failed() {
		logger.ContextKV(ctx, xlog.WARNING,
			"agent", agent.Name(),
			"status", "failed",
			"err", res.Error,
		)
		return
	}
	logger.ContextKV(ctx, xlog.DEBUG,
		"agent", agent.Name(),
		"status", "completed",
		"tool_calls", len(res.Steps),
	)
}

func (LogCallback) OnAgentLLMCallEnd(ctx context.Context, agent IAgent, llm llms.Model, resp *llms.ContentResponse) {
	logger.ContextKV(ctx, xlog.DEBUG,
		"agent", agent.Name(),
		"model", llm.GetName(),
		"choices", llmutils.ToYAML(resp.Choices),
	)
}

func (LogCallback) OnToolEnd(ctx context.Context, tool tools.ITool, agentName string, input string, output string) {
	logger.ContextKV(ctx, xlog.DEBUG,
		"agent", agentName,
		"tool", tool.Name(),
		"input", string(llmutils.CleanJSON([]byte(input))),
		"response_size", len(output),
	)
}

func (LogCallback) OnToolNotFound(ctx context.Context, agent IAgent, tool string) {
	logger.ContextKV(ctx, xlog.WARNING,
		"agent", agent.Name(),
		"status", "tool_not_found",
		"tool", tool,
	)
}
