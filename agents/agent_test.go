package agents_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stormwatch/agentic/agents"
	"github.com/stormwatch/agentic/chatmodel"
	"github.com/stormwatch/agentic/mocks/mockllms"
	"github.com/stormwatch/agentic/mocks/mocktools"
	"github.com/stormwatch/agentic/pkg/llms"
	"github.com/stormwatch/agentic/pkg/prompts"
	"github.com/stormwatch/agentic/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testPrompt() *prompts.PromptTemplate {
	return prompts.NewPromptTemplate("You are a helpful assistant.", nil)
}

func newMockModel(ctrl *gomock.Controller) *mockllms.MockModel {
	llm := mockllms.NewMockModel(ctrl)
	llm.EXPECT().GetName().Return("gpt-4o").AnyTimes()
	llm.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	return llm
}

func newMockTool(ctrl *gomock.Controller, name string) *mocktools.MockITool {
	tool := mocktools.NewMockITool(ctrl)
	tool.EXPECT().Name().Return(name).AnyTimes()
	tool.EXPECT().Description().Return("test tool").AnyTimes()
	tool.EXPECT().Parameters().Return(map[string]any{"type": "object"}).AnyTimes()
	return tool
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}
}

func toolCallResponse(id, name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				ID:   id,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      name,
					Arguments: args,
				},
			}},
		}},
	}
}

func TestNew_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)

	_, err := agents.New(nil, testPrompt())
	assert.EqualError(t, err, "reasoning model is required")

	_, err = agents.New(llm, nil)
	assert.EqualError(t, err, "system prompt is required")

	_, err = agents.New(llm, testPrompt(), agents.WithTools(nil))
	assert.EqualError(t, err, "nil tool provided")

	t1 := newMockTool(ctrl, "Lookup")
	t2 := newMockTool(ctrl, "lookup")
	_, err = agents.New(llm, testPrompt(), agents.WithTools(t1, t2))
	assert.EqualError(t, err, "duplicate tool name: lookup")
}

func TestExecute_EmptyQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)

	agent, err := agents.New(llm, testPrompt())
	require.NoError(t, err)

	res := agent.Execute(context.Background(), "   \n\t ", nil)
	require.True(t, res.Failed())
	assert.Equal(t, "Empty query provided", res.Error)
	assert.Empty(t, res.Answer)
	assert.Empty(t, res.Steps)
}

func TestExecute_DirectAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			require.Len(t, msgs, 2)
			assert.Equal(t, llms.RoleSystem, msgs[0].Role)
			assert.Equal(t, llms.RoleHuman, msgs[1].Role)
			return textResponse("Paris"), nil
		})

	agent, err := agents.New(llm, testPrompt())
	require.NoError(t, err)

	res := agent.Execute(context.Background(), "What is the capital of France?", nil)
	require.False(t, res.Failed())
	assert.Equal(t, "Paris", res.Answer)
	assert.Empty(t, res.Steps)
	// transcript ends with the final answer turn
	require.NotEmpty(t, res.Messages)
	assert.Equal(t, llms.RoleAI, res.Messages[len(res.Messages)-1].Role)
}

func TestExecute_SingleToolRound(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)
	tool := newMockTool(ctrl, "GetWeatherAlerts")

	const args = `{"Code":"CA"}`
	tool.EXPECT().Call(gomock.Any(), args).Return("Event: Flood Watch", nil).Times(1)

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse("call_1", "GetWeatherAlerts", args), nil)
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			// the tool-call turn and its response turn precede the re-decision
			require.GreaterOrEqual(t, len(msgs), 4)
			callTurn := msgs[len(msgs)-2]
			respTurn := msgs[len(msgs)-1]
			assert.Equal(t, llms.RoleAI, callTurn.Role)
			assert.Equal(t, llms.RoleTool, respTurn.Role)
			tr, ok := respTurn.Parts[0].(llms.ToolCallResponse)
			require.True(t, ok)
			assert.Equal(t, "call_1", tr.ToolCallID)
			assert.Equal(t, "Event: Flood Watch", tr.Content)
			return textResponse("There is a Flood Watch in CA."), nil
		})

	agent, err := agents.New(llm, testPrompt(), agents.WithTools(tool))
	require.NoError(t, err)

	res := agent.Execute(context.Background(), "Any alerts for California?", nil)
	require.False(t, res.Failed())
	assert.Equal(t, "There is a Flood Watch in CA.", res.Answer)

	require.Len(t, res.Steps, 1)
	assert.Equal(t, "GetWeatherAlerts", res.Steps[0].Call.FunctionCall.Name)
	assert.Equal(t, args, res.Steps[0].Call.FunctionCall.Arguments)
	assert.Equal(t, "Event: Flood Watch", res.Steps[0].Response.Content)
}

func TestExecute_UnknownTool(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)
	tool := newMockTool(ctrl, "GetWeatherAlerts")

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse("call_1", "GetStockQuote", `{}`), nil)

	agent, err := agents.New(llm, testPrompt(), agents.WithTools(tool))
	require.NoError(t, err)

	res := agent.Execute(context.Background(), "quote for ACME", nil)
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, "GetStockQuote")
	assert.Empty(t, res.Answer)
}

func TestExecute_ToolInputRecovery(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)
	tool := newMockTool(ctrl, "GetWeatherAlerts")

	badArgs := `{"State":"California"}`
	goodArgs := `{"Code":"CA"}`

	tool.EXPECT().Call(gomock.Any(), badArgs).
		Return("", errors.WithMessage(chatmodel.ErrFailedUnmarshalInput, "unknown field State"))
	tool.EXPECT().Call(gomock.Any(), goodArgs).Return("No alerts found for the given state.", nil)

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse("call_1", "GetWeatherAlerts", badArgs), nil)
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			// the schema mismatch is surfaced to the model as tool output
			tr, ok := msgs[len(msgs)-1].Parts[0].(llms.ToolCallResponse)
			require.True(t, ok)
			assert.Contains(t, tr.Content, "failed to unmarshal input")
			return toolCallResponse("call_2", "GetWeatherAlerts", goodArgs), nil
		})
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(textResponse("No active alerts for CA."), nil)

	agent, err := agents.New(llm, testPrompt(), agents.WithTools(tool))
	require.NoError(t, err)

	res := agent.Execute(context.Background(), "alerts for California", nil)
	require.False(t, res.Failed())
	assert.Equal(t, "No active alerts for CA.", res.Answer)
	assert.Len(t, res.Steps, 2)
}

func TestExecute_ToolCallLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)
	tool := newMockTool(ctrl, "GetWeatherAlerts")

	const args = `{"Code":"CA"}`
	tool.EXPECT().Call(gomock.Any(), args).Return("Event: Flood Watch", nil).Times(2)

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse("call", "GetWeatherAlerts", args), nil).
		Times(3)

	agent, err := agents.New(llm, testPrompt(),
		agents.WithTools(tool),
		agents.WithMaxToolCalls(2),
	)
	require.NoError(t, err)

	res := agent.Execute(context.Background(), "alerts for CA", nil)
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, "tool call limit")
	assert.Len(t, res.Steps, 2)
}

func TestExecute_EmptyResponseRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llms.ContentResponse{}, nil).
		Times(3)

	agent, err := agents.New(llm, testPrompt())
	require.NoError(t, err)

	res := agent.Execute(context.Background(), "hello", nil)
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, "no response after 3 attempts")
}

func TestExecute_EngineFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection reset"))

	agent, err := agents.New(llm, testPrompt())
	require.NoError(t, err)

	res := agent.Execute(context.Background(), "hello", nil)
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, "failed to generate content")
	assert.Contains(t, res.Error, "connection reset")
}

func TestExecute_PanicRecovered(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, []llms.Message, ...llms.CallOption) (*llms.ContentResponse, error) {
			panic("boom")
		})

	agent, err := agents.New(llm, testPrompt())
	require.NoError(t, err)

	res := agent.Execute(context.Background(), "hello", nil)
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, "unable to process the query")
	assert.Contains(t, res.Error, "boom")
}

func TestExecute_HistoryNormalizedAndNotMutated(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)

	history := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "earlier question"),
		{Role: "developer", Parts: []llms.ContentPart{llms.TextPart("bad role")}},
		{Role: llms.RoleAI},
		llms.MessageFromTextParts(llms.RoleAI, "earlier answer"),
	}
	original := make([]llms.Message, len(history))
	copy(original, history)

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			// system + 2 surviving history turns + query
			require.Len(t, msgs, 4)
			assert.Equal(t, "earlier question\n", msgs[1].GetContent())
			assert.Equal(t, "earlier answer\n", msgs[2].GetContent())
			return textResponse("done"), nil
		})

	agent, err := agents.New(llm, testPrompt())
	require.NoError(t, err)

	res := agent.Execute(context.Background(), "follow-up", history)
	require.False(t, res.Failed())
	assert.Equal(t, original, history)
}

func TestExecute_FewShotExamplesPrecedeHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			require.Len(t, msgs, 4)
			assert.Equal(t, llms.RoleSystem, msgs[0].Role)
			assert.Equal(t, "example question\n", msgs[1].GetContent())
			assert.Equal(t, "example answer\n", msgs[2].GetContent())
			return textResponse("ok"), nil
		})

	agent, err := agents.New(llm, testPrompt(),
		agents.WithExamples(chatmodel.FewShotExamples{
			{Prompt: "example question", Completion: "example answer"},
		}),
	)
	require.NoError(t, err)

	res := agent.Execute(context.Background(), "real question", nil)
	require.False(t, res.Failed())
}

func TestExecute_StoreRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)
	mem := store.NewMemoryStore()

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(textResponse("first answer"), nil)
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			// system + persisted turns from the first call + new query
			require.Len(t, msgs, 4)
			assert.Equal(t, "first question\n", msgs[1].GetContent())
			assert.Equal(t, "first answer\n", msgs[2].GetContent())
			return textResponse("second answer"), nil
		})

	agent, err := agents.New(llm, testPrompt(), agents.WithStore(mem))
	require.NoError(t, err)

	ctx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("chat1", nil))

	res := agent.Execute(ctx, "first question", nil)
	require.False(t, res.Failed())

	res = agent.Execute(ctx, "second question", nil)
	require.False(t, res.Failed())
	assert.Equal(t, "second answer", res.Answer)
}

func TestGetDescriptions(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newMockModel(ctrl)

	agent, err := agents.New(llm, testPrompt(),
		agents.WithName("WeatherAssistant"),
		agents.WithDescription("Reports weather alerts."),
	)
	require.NoError(t, err)

	listing := agents.GetDescriptions(agent)
	assert.Equal(t, "- `WeatherAssistant`: Reports weather alerts.\n", listing)
}
