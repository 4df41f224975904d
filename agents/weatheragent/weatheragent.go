// Package weatheragent assembles an agent that answers questions about
// active US weather alerts through the alerts lookup tool.
package weatheragent

import (
	"github.com/cockroachdb/errors"
	"github.com/stormwatch/agentic/agents"
	"github.com/stormwatch/agentic/pkg/llms"
	"github.com/stormwatch/agentic/pkg/prompts"
	"github.com/stormwatch/agentic/tools/weather"
)

// AgentName identifies the agent in logs, metrics and prompts.
const AgentName = "WeatherAssistant"

const systemPromptTemplate = `You are a weather assistant that provides weather alerts for US states using the {{ tool_name }} tool.

For every user query:
1. Identify the US state mentioned in the query.
2. If the state is given by name (e.g. California), convert it to its UPPERCASE two-letter code (e.g. CA).
3. Call the {{ tool_name }} tool with that code.
4. Return the tool output to the user. If no US state can be identified, or the tool returns nothing, say so instead of guessing.

Available tools: {{ tools }}`

// New builds the weather agent around the given reasoning model and alerts
// tool. Additional options are applied after the defaults, so callers can
// override the name, budgets or callback.
func New(llm llms.Model, alerts *weather.Tool, opts ...agents.Option) (*agents.Agent, error) {
	if alerts == nil {
		return nil, errors.New("weather tool is required")
	}

	prompt := prompts.NewPromptTemplate(systemPromptTemplate, []string{"tool_name", "tools"})

	options := append([]agents.Option{
		agents.WithName(AgentName),
		agents.WithDescription("Reports active weather alerts for US states."),
		agents.WithTools(alerts),
		agents.WithPromptInput(map[string]any{
			"tool_name": alerts.Name(),
		}),
	}, opts...)

	return agents.New(llm, prompt, options...)
}
