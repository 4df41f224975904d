package llmfactory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stormwatch/agentic/llmfactory"
	"github.com/stormwatch/agentic/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
providers:
  - name: openai
    token: ${TEST_OPENAI_TOKEN}
    default_model: gpt-4o
  - name: azure
    token: azure-secret
    default_model: gpt-4o-mini
    openai:
      api_type: AZURE
      base_url: https://example.openai.azure.com
      api_version: 2024-02-01
      deployment: gpt4o-mini-prod
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "llm.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	return file
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEST_OPENAI_TOKEN", "sk-test")

	cfg, err := llmfactory.LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "sk-test", cfg.Providers[0].Token)
	assert.Equal(t, "gpt4o-mini-prod", cfg.Providers[1].OpenAI.Deployment)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := llmfactory.LoadConfig(writeConfig(t, "providers: []"))
	assert.Error(t, err)

	_, err = llmfactory.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFactory_Models(t *testing.T) {
	t.Setenv("TEST_OPENAI_TOKEN", "sk-test")

	cfg, err := llmfactory.LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	f := llmfactory.New(cfg)

	def, err := f.DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", def.GetName())
	assert.Equal(t, llms.ProviderOpenAI, def.GetProviderType())

	// cached per provider
	again, err := f.ModelByName("openai")
	require.NoError(t, err)
	assert.Same(t, def, again)

	az, err := f.ModelByType(llms.ProviderAzure)
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAzure, az.GetProviderType())

	_, err = f.ModelByName("unknown")
	assert.Error(t, err)

	_, err = f.ModelByType(llms.ProviderAzureAD)
	assert.Error(t, err)
}
