package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"

	"infinixai/internal/entities"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient completes prompts with the OpenAI chat completions API.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient builds a client for model. Extra request options are
// appended after the API key (base URL, retries).
func NewOpenAIClient(apiKey, model string, opts ...option.RequestOption) *OpenAIClient {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{
		client: openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:  model,
	}
}

// Complete sends the prompt as a single user message.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (entities.Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return entities.Completion{}, fmt.Errorf("openai completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return entities.Completion{}, errors.New("no response from openai")
	}

	// Prices are keyed by the configured name, not the dated snapshot the
	// API reports back.
	out := entities.Completion{
		Text:         completion.Choices[0].Message.Content,
		Model:        c.model,
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
	}

	logrus.WithFields(logrus.Fields{
		"model":         c.model,
		"served_by":     completion.Model,
		"input_tokens":  out.InputTokens,
		"output_tokens": out.OutputTokens,
	}).Debug("[OPENAI] Chat completed")

	return out, nil
}
