package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Provider is the closed set of supported LLM backends. The set is small and
// fixed, so request/response shaping dispatches on this enum rather than on
// open polymorphism.
type Provider string

const (
	ProviderOpenAI           Provider = "openai"
	ProviderAnthropic        Provider = "anthropic"
	ProviderGemini           Provider = "gemini"
	ProviderOpenAICompatible Provider = "openai-compatible"
)

// ParseProvider normalizes a provider string, accepting the aliases users
// actually type for Anthropic and relay-style gateways.
func ParseProvider(input string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "openai":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "gemini":
		return ProviderGemini, nil
	case "openai-compatible", "openai_compatible", "relay", "cc-switch", "ccswitch":
		return ProviderOpenAICompatible, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse provider",
			fmt.Errorf("unsupported provider %q, use openai|anthropic|gemini|openai-compatible", input))
	}
}

// ProviderProfile is a named credential set for one LLM backend.
type ProviderProfile struct {
	Name     string   `json:"name" yaml:"name"`
	Provider Provider `json:"provider" yaml:"provider"`
	BaseURL  string   `json:"base_url" yaml:"base_url"`
	APIKey   string   `json:"api_key" yaml:"api_key"`
	Model    string   `json:"model" yaml:"model"`
	Enabled  bool     `json:"enabled" yaml:"enabled"`
}

// ValidateProfiles enforces the exactly-one-enabled invariant at save time so
// profile selection never depends on incidental ordering.
func ValidateProfiles(profiles []ProviderProfile) error {
	var enabled []string
	for _, p := range profiles {
		if strings.TrimSpace(p.Name) == "" {
			return WrapError(ErrInvalidInput, "validate profiles", errors.New("profile name must not be empty"))
		}
		if _, err := ParseProvider(string(p.Provider)); err != nil {
			return err
		}
		if p.Enabled {
			enabled = append(enabled, p.Name)
		}
	}
	if len(enabled) > 1 {
		return WrapError(ErrInvalidInput, "validate profiles",
			fmt.Errorf("multiple profiles enabled (%s), enable exactly one", strings.Join(enabled, ", ")))
	}
	return nil
}

// ActiveProfile returns the enabled profile. Stores written by older builds
// may carry several enabled entries; the first one in list order wins there,
// matching what those builds did.
func ActiveProfile(profiles []ProviderProfile) (ProviderProfile, error) {
	for _, p := range profiles {
		if p.Enabled {
			return p, nil
		}
	}
	return ProviderProfile{}, WrapError(ErrConfigMissing, "resolve credentials",
		errors.New("no enabled provider profile, load or configure one"))
}
