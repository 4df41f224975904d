package prompts_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stormwatch/agentic/pkg/llms"
	"github.com/stormwatch/agentic/pkg/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptTemplate_Format(t *testing.T) {
	p := prompts.NewPromptTemplate(
		"You answer questions about {{ topic }} using {{ tool_name }}.",
		[]string{"topic", "tool_name"},
	)

	out, err := p.Format(map[string]any{
		"topic":     "weather",
		"tool_name": "GetWeatherAlerts",
	})
	require.NoError(t, err)
	assert.Equal(t, "You answer questions about weather using GetWeatherAlerts.", out)
}

func TestPromptTemplate_MissingVariable(t *testing.T) {
	p := prompts.NewPromptTemplate("Hello {{ name }}", []string{"name"})

	_, err := p.Format(map[string]any{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, prompts.ErrInputVariableMissing))
}

func TestPromptTemplate_ExtraValuesIgnored(t *testing.T) {
	p := prompts.NewPromptTemplate("Hello {{ name }}", []string{"name"})

	out, err := p.Format(map[string]any{"name": "world", "unused": 1})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)
}

func TestPromptTemplate_FormatPrompt(t *testing.T) {
	p := prompts.NewPromptTemplate("static prompt", nil)

	pv, err := p.FormatPrompt(nil)
	require.NoError(t, err)
	assert.Equal(t, "static prompt", pv.String())
	require.Len(t, pv.Messages(), 1)
}

func TestChatPromptValue(t *testing.T) {
	pv := prompts.ChatPromptValue{
		llms.MessageFromTextParts(llms.RoleSystem, "be helpful"),
		llms.MessageFromTextParts(llms.RoleHuman, "alerts for CA?"),
	}
	assert.Equal(t, "be helpful\nalerts for CA?\n", pv.String())
	require.Len(t, pv.Messages(), 2)
}
