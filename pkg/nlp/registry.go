package nlp

import "slices"

// TaskCapability represents a specific task that a model can perform.
type TaskCapability string

const (
	// TaskEmbedding represents text embedding generation.
	TaskEmbedding TaskCapability = "embedding"
	// TaskSummarization represents text summarization.
	TaskSummarization TaskCapability = "summarization"
	// TaskQuestionAnswering represents answering a question from supplied documents.
	TaskQuestionAnswering TaskCapability = "question_answering"
	// TaskTextGeneration represents open-ended text generation (chat/completion).
	TaskTextGeneration TaskCapability = "text_generation"
)

// ProviderID represents a unique identifier for an AI provider.
type ProviderID string

const (
	ProviderOpenAI           ProviderID = "openai"
	ProviderOpenAICompatible ProviderID = "openai_compatible"
	ProviderAnthropic        ProviderID = "anthropic"
	// ProviderHashing is the offline feature-hashing embedder.
	ProviderHashing ProviderID = "hashing"
	// ProviderNone disables answer generation.
	ProviderNone ProviderID = "none"
)

// Provider represents an AI model provider.
type Provider struct {
	ID          ProviderID
	Name        string
	Description string
	IsLocal     bool
}

// Model represents a specific AI model.
type Model struct {
	ID           string
	ProviderID   ProviderID
	Capabilities []TaskCapability
	// Dimensions is the native embedding size; zero for chat models.
	Dimensions int
}

// BuiltInProviders contains the supported providers.
var BuiltInProviders = map[ProviderID]Provider{
	ProviderOpenAI: {
		ID:          ProviderOpenAI,
		Name:        "OpenAI",
		Description: "Hosted chat and embedding models",
	},
	ProviderOpenAICompatible: {
		ID:          ProviderOpenAICompatible,
		Name:        "OpenAI Compatible",
		Description: "Any server speaking the OpenAI API (vLLM, Ollama)",
	},
	ProviderAnthropic: {
		ID:          ProviderAnthropic,
		Name:        "Anthropic",
		Description: "Hosted Claude models",
	},
	ProviderHashing: {
		ID:          ProviderHashing,
		Name:        "Hashing",
		Description: "Deterministic feature-hashing embeddings for offline use and tests",
		IsLocal:     true,
	},
}

// BuiltInModels lists models with known capabilities.
var BuiltInModels = []Model{
	{ID: "text-embedding-3-small", ProviderID: ProviderOpenAI, Capabilities: []TaskCapability{TaskEmbedding}, Dimensions: 1536},
	{ID: "text-embedding-3-large", ProviderID: ProviderOpenAI, Capabilities: []TaskCapability{TaskEmbedding}, Dimensions: 3072},
	{ID: "text-embedding-ada-002", ProviderID: ProviderOpenAI, Capabilities: []TaskCapability{TaskEmbedding}, Dimensions: 1536},
	{ID: "gpt-4o-mini", ProviderID: ProviderOpenAI, Capabilities: []TaskCapability{TaskTextGeneration, TaskQuestionAnswering, TaskSummarization}},
	{ID: "gpt-4o", ProviderID: ProviderOpenAI, Capabilities: []TaskCapability{TaskTextGeneration, TaskQuestionAnswering, TaskSummarization}},
	{ID: "claude-3-5-haiku-latest", ProviderID: ProviderAnthropic, Capabilities: []TaskCapability{TaskTextGeneration, TaskQuestionAnswering, TaskSummarization}},
	{ID: "feature-hash", ProviderID: ProviderHashing, Capabilities: []TaskCapability{TaskEmbedding}},
}

// GetProvider returns the provider with the given ID.
func GetProvider(id ProviderID) (Provider, bool) {
	p, ok := BuiltInProviders[id]
	return p, ok
}

// GetModel returns the model with the given ID.
func GetModel(id string) (Model, bool) {
	for _, m := range BuiltInModels {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// GetModelsByCapability returns all models capable of a specific task.
func GetModelsByCapability(capability TaskCapability) []Model {
	var models []Model
	for _, m := range BuiltInModels {
		if slices.Contains(m.Capabilities, capability) {
			models = append(models, m)
		}
	}
	return models
}
