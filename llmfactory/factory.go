package llmfactory

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/stormwatch/agentic/pkg/llms"
	"github.com/stormwatch/agentic/pkg/llms/openai"
)

var logger = xlog.NewPackageLogger("github.com/stormwatch/agentic", "llmfactory")

// Factory creates and caches chat model clients per provider.
type Factory struct {
	cfg *Config

	mu      sync.Mutex
	clients map[string]llms.Model
}

// New returns a factory over the given config.
func New(cfg *Config) *Factory {
	return &Factory{
		cfg:     cfg,
		clients: map[string]llms.Model{},
	}
}

// DefaultModel returns the client for the first configured provider.
func (f *Factory) DefaultModel() (llms.Model, error) {
	if len(f.cfg.Providers) == 0 {
		return nil, errors.New("no providers configured")
	}
	return f.model(f.cfg.Providers[0])
}

// ModelByName returns the client for the named provider.
func (f *Factory) ModelByName(name string) (llms.Model, error) {
	for _, p := range f.cfg.Providers {
		if strings.EqualFold(p.Name, name) {
			return f.model(p)
		}
	}
	return nil, errors.Newf("provider not found: %s", name)
}

// ModelByType returns the first provider client of the given type.
func (f *Factory) ModelByType(typ llms.ProviderType) (llms.Model, error) {
	for _, p := range f.cfg.Providers {
		if providerType(p) == typ {
			return f.model(p)
		}
	}
	return nil, errors.Newf("no provider of type %s configured", typ)
}

func providerType(p *ProviderConfig) llms.ProviderType {
	switch strings.ToUpper(p.OpenAI.APIType) {
	case "AZURE":
		return llms.ProviderAzure
	case "AZURE_AD":
		return llms.ProviderAzureAD
	default:
		return llms.ProviderOpenAI
	}
}

func (f *Factory) model(p *ProviderConfig) (llms.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.clients[p.Name]; ok {
		return client, nil
	}

	client, err := openai.New(&openai.Config{
		Token:      p.Token,
		Model:      p.DefaultModel,
		BaseURL:    p.OpenAI.BaseURL,
		APIType:    p.OpenAI.APIType,
		APIVersion: p.OpenAI.APIVersion,
		Deployment: p.OpenAI.Deployment,
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create client for provider %s", p.Name)
	}

	logger.KV(xlog.DEBUG,
		"status", "client_created",
		"provider", p.Name,
		"model", p.DefaultModel,
	)

	f.clients[p.Name] = client
	return client, nil
}
