package recognition

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"nutriscan/internal/infrastructure/config"
	"nutriscan/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// FallbackClient calls the cheaper hosted vision model through the
// OpenRouter chat-completions API.
type FallbackClient struct {
	client *resty.Client
	cfg    *config.FallbackConfig
}

// NewFallbackClient creates the fallback model client.
func NewFallbackClient(cfg *config.FallbackConfig) *FallbackClient {
	client := resty.New().
		SetBaseURL("https://openrouter.ai/api/v1").
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("X-Title", "nutriscan")

	return &FallbackClient{
		client: client,
		cfg:    cfg,
	}
}

// Recognize sends the image and prompt to the fallback model and returns the
// generated text.
func (c *FallbackClient) Recognize(ctx context.Context, image []byte, prompt string) (string, error) {
	imageURL := fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(image))

	body := map[string]interface{}{
		"model": c.cfg.Model,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "text", "text": prompt},
					{"type": "image_url", "image_url": map[string]string{"url": imageURL}},
				},
			},
		},
		"max_tokens": c.cfg.MaxTokens,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")

	if err != nil {
		return "", fmt.Errorf("failed to send request to fallback model: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("fallback model API returned status %d", resp.StatusCode())
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse fallback model response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in fallback model response")
	}

	return result.Choices[0].Message.Content, nil
}

// FallbackStrategy is the cheaper recognition path. It carries no token
// budget.
type FallbackStrategy struct {
	client *FallbackClient
}

// NewFallbackStrategy creates the fallback strategy.
func NewFallbackStrategy(client *FallbackClient) *FallbackStrategy {
	return &FallbackStrategy{client: client}
}

// Name identifies the strategy in logs.
func (s *FallbackStrategy) Name() string { return "fallback" }

// Recognize runs the fallback model over the image.
func (s *FallbackStrategy) Recognize(ctx context.Context, image []byte, useOCR bool) (Outcome, error) {
	text, err := s.client.Recognize(ctx, image, promptFor(useOCR))
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Text:     text,
		Strategy: s.Name(),
	}, nil
}
