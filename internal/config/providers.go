package config

import "os"

const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
	ProviderCompatible = "compatible"
)

var providerKeyEnv = map[string][]string{
	ProviderOpenAI:     {"OPENAI_API_KEY"},
	ProviderAnthropic:  {"ANTHROPIC_API_KEY"},
	ProviderGemini:     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	ProviderCompatible: {"OPENAI_API_KEY"},
}

func lookupProviderKey(provider string) string {
	for _, name := range providerKeyEnv[provider] {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}
	return ""
}
