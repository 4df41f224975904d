// Package llmfactory builds chat model clients from a provider
// configuration file, caching one client per provider.
package llmfactory

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

// OpenAIConfig is the endpoint part of a provider entry.
type OpenAIConfig struct {
	// BaseURL overrides the API endpoint; required for Azure.
	BaseURL string `json:"base_url" yaml:"base_url"`
	// APIType is one of OPENAI, AZURE, AZURE_AD. Defaults to OPENAI.
	APIType string `json:"api_type" yaml:"api_type"`
	// APIVersion is the Azure API version.
	APIVersion string `json:"api_version" yaml:"api_version"`
	// Deployment is the Azure deployment name.
	Deployment string `json:"deployment" yaml:"deployment"`
}

// ProviderConfig describes one model provider.
type ProviderConfig struct {
	// Name identifies the provider in the config and in ModelByName.
	Name string `json:"name" yaml:"name" validate:"required"`
	// Token is the API key. Supports ${ENV} expansion via the loader.
	Token string `json:"token" yaml:"token" validate:"required"`
	// DefaultModel is the model used when a call does not override it.
	DefaultModel string `json:"default_model" yaml:"default_model" validate:"required"`

	OpenAI OpenAIConfig `json:"openai" yaml:"openai"`
}

// Config is the top-level factory configuration. The first provider is the
// default.
type Config struct {
	Providers []*ProviderConfig `json:"providers" yaml:"providers" validate:"required,min=1,dive,required"`
}

// LoadConfig reads the YAML config from file, expanding ${ENV} variables.
func LoadConfig(file string) (*Config, error) {
	var cfg Config
	if err := configloader.UnmarshalAndExpand(file, &cfg); err != nil {
		return nil, errors.WithMessage(err, "failed to load LLM config")
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, errors.WithMessage(err, "invalid LLM config")
	}
	return &cfg, nil
}
