package factory

import (
	"fmt"

	"service-resolver-be/pkg/llm"
	"service-resolver-be/pkg/llm/ollama"
	"service-resolver-be/pkg/llm/qwen"
)

func NewLLMProvider(providerType, modelName, baseURL string) (llm.LLMProvider, error) {
	switch providerType {
	case "qwen":
		if baseURL == "" {
			return nil, fmt.Errorf("qwen provider requires a base URL")
		}
		return qwen.NewQwenProvider(baseURL, modelName), nil
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
