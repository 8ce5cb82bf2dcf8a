package censor

import "github.com/BaSui01/censorgate/types"

// Provider is the closed enumeration of supported moderation providers.
// Unknown names fail at configuration-load time, never at dispatch.
type Provider string

const (
	ProviderBaidu   Provider = "baidu"
	ProviderOpenAI  Provider = "openai"
	ProviderKeyword Provider = "keyword"
)

// Providers lists every supported provider.
func Providers() []Provider {
	return []Provider{ProviderBaidu, ProviderOpenAI, ProviderKeyword}
}

// ParseProvider resolves a configured provider name.
func ParseProvider(name string) (Provider, error) {
	switch Provider(name) {
	case ProviderBaidu, ProviderOpenAI, ProviderKeyword:
		return Provider(name), nil
	default:
		return "", types.NewConfigurationError("unknown moderation provider: " + name)
	}
}
