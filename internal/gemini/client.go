package gemini

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"imagegen-bot/internal/models"
)

// DefaultModel - единственная модель Gemini, которая умеет возвращать изображения.
const DefaultModel = "gemini-2.0-flash-preview-image-generation"

// contentGenerator - подмножество *genai.Models, которое нужно клиенту.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config конфигурация клиента Gemini.
type Config struct {
	APIKey string `env:"GEMINI_API_KEY" env-required:"true"`
	Model  string `env:"GEMINI_MODEL" env-default:"gemini-2.0-flash-preview-image-generation"`
}

// Client превращает текстовый промпт в файл изображения.
type Client struct {
	generator contentGenerator
	model     string
	logger    *zap.Logger
}

// NewClient создает клиента поверх google.golang.org/genai (Gemini Developer API).
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key (GEMINI_API_KEY) is not configured")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return newClient(gc.Models, cfg.Model, logger), nil
}

func newClient(generator contentGenerator, model string, logger *zap.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		generator: generator,
		model:     model,
		logger:    logger.Named("GeminiClient"),
	}
}

// Generate делает ровно один запрос к Gemini и записывает первое изображение
// из ответа в destinationPath. Повторных попыток нет.
func (c *Client) Generate(ctx context.Context, prompt, destinationPath string) error {
	log := c.logger.With(zap.String("model", c.model), zap.String("path", destinationPath))
	log.Info("Generating image", zap.Int("prompt_length", len(prompt)))

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
	}
	resp, err := c.generator.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		log.Error("Gemini API call failed", zap.Error(err))
		return models.NewTransportError(fmt.Sprintf("failed to generate image: %v", err), err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		log.Warn("Gemini returned no candidates")
		return models.NewGenerationError("No candidates returned from Gemini API")
	}

	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		log.Warn("Gemini returned no content parts")
		return models.NewGenerationError("No content parts returned from Gemini API")
	}

	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			log.Debug("Gemini response text", zap.String("text", part.Text))
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			if err := os.WriteFile(destinationPath, part.InlineData.Data, 0644); err != nil {
				log.Error("Failed to save image to file", zap.Error(err))
				return models.NewDeliveryError(fmt.Sprintf("failed to save image: %v", err), err)
			}
			log.Info("Image saved to file",
				zap.Int("size_bytes", len(part.InlineData.Data)),
				zap.String("mime_type", part.InlineData.MIMEType),
			)
			return nil
		}
	}

	log.Warn("Gemini response contained no image data")
	return models.NewGenerationError("No image data found in Gemini API response")
}
