package generator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIImageModel = "gpt-image-1"

// OpenAIProvider generates images through the OpenAI images API. The API
// takes pixel sizes rather than aspect ratios, so supported ratios are
// mapped to the nearest size of the same orientation.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI image provider.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = defaultOpenAIImageModel
	}
	return &OpenAIProvider{client: &client, model: model}
}

func (p *OpenAIProvider) Name() string {
	return p.model
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) ([]byte, error) {
	prompt := mergeNegativePrompt(req.Prompt, req.NegativePrompt)

	result, err := p.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(p.model),
		N:      openai.Int(1),
		Size:   sizeForRatio(req.AspectRatio),
	})
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}

	if len(result.Data) == 0 {
		return nil, errors.New("no image generated by OpenAI")
	}

	if result.Data[0].B64JSON == "" {
		return nil, errors.New("OpenAI response contained no image data")
	}

	data, err := base64.StdEncoding.DecodeString(result.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image data: %w", err)
	}

	return data, nil
}

// sizeForRatio maps a supported ratio string to an OpenAI image size with
// the same orientation.
func sizeForRatio(aspectRatio string) openai.ImageGenerateParamsSize {
	switch aspectRatio {
	case "9:16", "3:4":
		return openai.ImageGenerateParamsSize1024x1536
	case "16:9", "4:3":
		return openai.ImageGenerateParamsSize1536x1024
	default:
		return openai.ImageGenerateParamsSize1024x1024
	}
}
