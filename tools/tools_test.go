package tools_test

import (
	"testing"

	"github.com/stormwatch/agentic/mocks/mocktools"
	"github.com/stormwatch/agentic/tools"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestGetDescriptions(t *testing.T) {
	ctrl := gomock.NewController(t)

	tool := mocktools.NewMockITool(ctrl)
	tool.EXPECT().Name().Return("GetWeatherAlerts").AnyTimes()
	tool.EXPECT().Description().Return("Get active weather alerts for a US state.").AnyTimes()

	exp := "\n```json\n{\n\t\"Tools\": [\n\t\t{\n\t\t\t\"Name\": \"GetWeatherAlerts\",\n\t\t\t\"Description\": \"Get active weather alerts for a US state.\"\n\t\t}\n\t]\n}\n```\n"
	assert.Equal(t, exp, tools.GetDescriptions(tool))
}
