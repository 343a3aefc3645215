package generator

import "context"

// Request describes a single image generation call against a backend.
type Request struct {
	Prompt         string
	AspectRatio    string // must be a natively supported ratio string
	NegativePrompt string // what to avoid; backends without native support merge it into the prompt
}

// Provider is an image generation backend.
type Provider interface {
	// Name identifies the provider in results and diagnostics.
	Name() string
	// Generate produces raw image bytes for the request, or an error.
	// Errors are classified by Classify to decide retry behavior.
	Generate(ctx context.Context, req Request) ([]byte, error)
}

// Descriptor configures one entry of the fallback chain: a provider plus
// its retry budget. The chain order is the priority order.
type Descriptor struct {
	Provider   Provider
	MaxRetries int // additional attempts after the first
}

// mergeNegativePrompt folds a negative prompt into the main prompt for
// backends without a dedicated parameter.
func mergeNegativePrompt(prompt, negative string) string {
	if negative == "" {
		return prompt
	}
	return prompt + ". Avoid: " + negative
}
