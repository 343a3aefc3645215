package generator

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const defaultImagenModel = "imagen-3.0-generate-002"

// ImagenProvider generates images with an Imagen model through the
// dedicated image generation API. Typically configured as a fallback
// behind the Gemini image provider.
type ImagenProvider struct {
	client *genai.Client
	model  string
}

// NewImagenProvider creates an Imagen provider sharing the Gemini API key.
func NewImagenProvider(ctx context.Context, apiKey, model string) (*ImagenProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Imagen client: %w", err)
	}

	if model == "" {
		model = defaultImagenModel
	}

	return &ImagenProvider{client: client, model: model}, nil
}

func (p *ImagenProvider) Name() string {
	return p.model
}

func (p *ImagenProvider) Generate(ctx context.Context, req Request) ([]byte, error) {
	config := &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    req.AspectRatio,
	}
	if req.NegativePrompt != "" {
		config.NegativePrompt = req.NegativePrompt
	}

	resp, err := p.client.Models.GenerateImages(ctx, p.model, req.Prompt, config)
	if err != nil {
		return nil, fmt.Errorf("imagen API error: %w", err)
	}

	if len(resp.GeneratedImages) == 0 {
		return nil, errors.New("no images generated by Imagen")
	}

	img := resp.GeneratedImages[0]
	if img.Image == nil || len(img.Image.ImageBytes) == 0 {
		return nil, errors.New("empty image returned by Imagen")
	}

	return img.Image.ImageBytes, nil
}
