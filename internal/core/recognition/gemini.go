package recognition

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"nutriscan/internal/core/quota"
	"nutriscan/internal/infrastructure/config"
	"nutriscan/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// GeminiClient calls the hosted generative model.
type GeminiClient struct {
	client *resty.Client
	cfg    *config.GeminiConfig
}

// NewGeminiClient creates a client for the generateContent API.
func NewGeminiClient(cfg *config.GeminiConfig) *GeminiClient {
	client := resty.New().
		SetBaseURL("https://generativelanguage.googleapis.com/v1beta").
		SetTimeout(cfg.Timeout)

	return &GeminiClient{
		client: client,
		cfg:    cfg,
	}
}

// Generate sends the image and prompt to the model and returns the generated
// text.
func (c *GeminiClient) Generate(ctx context.Context, image []byte, prompt string) (string, error) {
	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
					{
						"inline_data": map[string]string{
							"mime_type": "image/jpeg",
							"data":      base64.StdEncoding.EncodeToString(image),
						},
					},
				},
			},
		},
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("key", c.cfg.APIKey).
		SetBody(body).
		Post(fmt.Sprintf("/models/%s:generateContent", c.cfg.Model))

	if err != nil {
		return "", fmt.Errorf("failed to send request to model: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("model API returned status %d", resp.StatusCode())
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse model response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in model response")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}

// GeminiStrategy is the costly recognition path: the generative model
// guarded by the monthly token budget.
type GeminiStrategy struct {
	client *GeminiClient
	budget *quota.TokenBudget
}

// NewGeminiStrategy wires the model client to its token budget.
func NewGeminiStrategy(client *GeminiClient, budget *quota.TokenBudget) *GeminiStrategy {
	return &GeminiStrategy{
		client: client,
		budget: budget,
	}
}

// Name identifies the strategy in logs.
func (s *GeminiStrategy) Name() string { return "gemini" }

// Recognize generates text for the image and charges the answer's word count
// against the token budget. A refused charge denies the costly result and
// forces the caller onto the fallback strategy.
func (s *GeminiStrategy) Recognize(ctx context.Context, image []byte, useOCR bool) (Outcome, error) {
	text, err := s.client.Generate(ctx, image, promptFor(useOCR))
	if err != nil {
		return Outcome{}, err
	}

	tokensUsed := common.CountWords(text)
	if !s.budget.TryCharge(ctx, int64(tokensUsed)) {
		common.LogWarn("generated answer refused by token budget",
			zap.Int("tokens_used", tokensUsed),
		)
		return Outcome{}, fmt.Errorf("monthly token budget exhausted")
	}

	return Outcome{
		Text:       text,
		TokensUsed: tokensUsed,
		Strategy:   s.Name(),
	}, nil
}
