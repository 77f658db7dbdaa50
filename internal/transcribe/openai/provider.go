// Package openai provides a transcription provider backed by the
// OpenAI audio transcriptions API.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Dmann24/quantina-core/internal/observability/metrics"
)

// Provider implements transcribe.Provider on the OpenAI API.
type Provider struct {
	client  openai.Client
	model   string
	timeout time.Duration
	metrics *metrics.Metrics
}

// New creates a Provider using the given API key and transcription
// model, e.g. "gpt-4o-mini-transcribe" or "whisper-1".
func New(apiKey, model string, timeout time.Duration) *Provider {
	return &Provider{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
		metrics: metrics.DefaultMetrics,
	}
}

// Transcribe sends the audio payload to the transcriptions endpoint.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(p.model),
		File:  openai.File(bytes.NewReader(audio), filenameFor(mimeType), mimeType),
	})
	p.metrics.RecordUpstream("transcribe", err, time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// filenameFor gives the multipart file part an extension matching the
// content type; the API refuses extensionless uploads.
func filenameFor(mimeType string) string {
	switch mimeType {
	case "audio/mpeg", "audio/mp3":
		return "audio.mp3"
	case "audio/wav":
		return "audio.wav"
	case "audio/ogg":
		return "audio.ogg"
	case "audio/m4a", "audio/x-m4a":
		return "audio.m4a"
	default:
		return "audio.webm"
	}
}
