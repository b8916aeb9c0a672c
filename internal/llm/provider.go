package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// CompletionProvider is a single-shot text generation call. Implementations
// must be safe for concurrent use.
type CompletionProvider interface {
	Generate(ctx context.Context, systemInstructions, userContent string) (string, error)
}

const defaultModel = "gemini-2.0-flash"

// The companion has to be able to talk about self-harm without the model
// refusing, so every category is set to block only high-severity content.
var safetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
}

// GeminiProvider generates text through the Gemini API. The underlying
// client is constructed once and is read-only afterwards, so a single
// provider may serve arbitrarily many concurrent calls.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a provider for the given API key. Callers that
// have no key configured should skip construction entirely and leave the
// completion client without a provider.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, systemInstructions, userContent string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstructions, genai.RoleUser),
		SafetySettings:    safetySettings,
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(userContent), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}
