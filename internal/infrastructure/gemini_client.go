package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"infinixai/internal/entities"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"
	geminiMaxAttempts  = 3
)

// GeminiClient completes prompts with the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	// backoff between attempts on 503; zero in tests.
	backoff func(attempt int) time.Duration
}

// NewGeminiClient connects to the Gemini API. baseURL is optional.
func NewGeminiClient(ctx context.Context, apiKey, model, baseURL string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{
		client: client,
		model:  model,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
	}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (entities.Completion, error) {
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	}}

	result, err := c.generateWithRetry(ctx, contents)
	if err != nil {
		return entities.Completion{}, fmt.Errorf("gemini completion: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return entities.Completion{}, errors.New("no response from gemini")
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			text.WriteString(part.Text)
		}
	}

	out := entities.Completion{Text: text.String(), Model: c.model}
	if result.UsageMetadata != nil {
		out.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}

	logrus.WithFields(logrus.Fields{
		"model":         c.model,
		"input_tokens":  out.InputTokens,
		"output_tokens": out.OutputTokens,
	}).Debug("[GEMINI] Chat completed")

	return out, nil
}

func (c *GeminiClient) generateWithRetry(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	var lastErr error
	for attempt := 0; attempt < geminiMaxAttempts; attempt++ {
		result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
		if err == nil {
			return result, nil
		}
		if !strings.Contains(err.Error(), "503") {
			return nil, err
		}
		lastErr = err
		logrus.WithField("attempt", attempt+1).Warn("[GEMINI] Model overloaded, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff(attempt)):
		}
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
