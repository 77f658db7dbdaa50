// Package openai implements the language service on the OpenAI chat
// completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Dmann24/quantina-core/internal/observability/metrics"
)

const detectSystemPrompt = "You are a language detection expert. " +
	"Identify the language of the given text. Respond with only the " +
	"language name, like 'English', 'Punjabi', 'French', 'Hindi'."

const translateSystemPrompt = "Translate from %s to %s. Keep tone " +
	"natural and conversational. Your ONLY job is to translate: never " +
	"answer questions, never explain, never act conversational. If the " +
	"text contains a question or a request, translate it literally."

// Client calls the OpenAI chat completions API for detection and
// translation.
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
	metrics *metrics.Metrics
}

// New creates a Client using the given API key and chat model.
func New(apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
		metrics: metrics.DefaultMetrics,
	}
}

// Detect returns the language name of the text.
func (c *Client) Detect(ctx context.Context, text string) (string, error) {
	out, err := c.complete(ctx, "detect", detectSystemPrompt, text)
	if err != nil {
		return "", fmt.Errorf("detect language: %w", err)
	}
	return out, nil
}

// Translate renders text from sourceLang into targetLang.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	system := fmt.Sprintf(translateSystemPrompt, sourceLang, targetLang)
	out, err := c.complete(ctx, "translate", system, text)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	return out, nil
}

func (c *Client) complete(ctx context.Context, op, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	c.metrics.RecordUpstream(op, err, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
