package weatheragent_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stormwatch/agentic/agents/weatheragent"
	"github.com/stormwatch/agentic/mocks/mockllms"
	"github.com/stormwatch/agentic/pkg/llms"
	"github.com/stormwatch/agentic/tools/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newMockModel(ctrl *gomock.Controller) *mockllms.MockModel {
	llm := mockllms.NewMockModel(ctrl)
	llm.EXPECT().GetName().Return("gpt-4o").AnyTimes()
	llm.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	return llm
}

func newAlertsTool(t *testing.T, handler http.HandlerFunc) *weather.Tool {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tool, err := weather.New(weather.Config{
		APIBase:   srv.URL,
		UserAgent: "stormwatch-test/1.0",
	})
	require.NoError(t, err)
	return tool.WithHTTPClient(srv.Client())
}

func TestNew_RequiresTool(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)

	_, err := weatheragent.New(llm, nil)
	assert.EqualError(t, err, "weather tool is required")
}

func TestNew_SystemPrompt(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)
	tool := newAlertsTool(t, func(http.ResponseWriter, *http.Request) {})

	agent, err := weatheragent.New(llm, tool)
	require.NoError(t, err)
	assert.Equal(t, weatheragent.AgentName, agent.Name())
	require.Len(t, agent.Tools(), 1)

	prompt, err := agent.GetSystemPrompt()
	require.NoError(t, err)
	assert.Contains(t, prompt, weather.ToolName)
	assert.Contains(t, prompt, "two-letter code")
}

func TestExecute_AlertsFlow(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)
	tool := newAlertsTool(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alerts/active/area/TX", r.URL.Path)
		_, _ = w.Write([]byte(`{"features": [{"properties": {"event": "Tornado Warning"}}]}`))
	})

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llms.ContentResponse{
			Choices: []*llms.ContentChoice{{
				ToolCalls: []llms.ToolCall{{
					ID:   "call_1",
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      weather.ToolName,
						Arguments: `{"Code":"TX"}`,
					},
				}},
			}},
		}, nil)
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			tr, ok := msgs[len(msgs)-1].Parts[0].(llms.ToolCallResponse)
			require.True(t, ok)
			assert.Contains(t, tr.Content, "Tornado Warning")
			return &llms.ContentResponse{
				Choices: []*llms.ContentChoice{{Content: "There is a Tornado Warning in Texas."}},
			}, nil
		})

	agent, err := weatheragent.New(llm, tool)
	require.NoError(t, err)

	res := agent.Execute(context.Background(), "Any alerts for Texas?", nil)
	require.False(t, res.Failed())
	assert.Equal(t, "There is a Tornado Warning in Texas.", res.Answer)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, weather.ToolName, res.Steps[0].Call.FunctionCall.Name)
}
