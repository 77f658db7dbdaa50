// Package google provides a Google Cloud Speech-to-Text transcription
// provider.
package google

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"

	"github.com/Dmann24/quantina-core/internal/observability/metrics"
)

// Provider implements transcribe.Provider using the unary Recognize
// API. The pipeline submits one complete payload per message, so the
// streaming API buys nothing here.
type Provider struct {
	client  *speech.Client
	timeout time.Duration
	metrics *metrics.Metrics
}

// New creates a new Google transcription provider.
// Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
func New(ctx context.Context, timeout time.Duration) (*Provider, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Provider{
		client:  c,
		timeout: timeout,
		metrics: metrics.DefaultMetrics,
	}, nil
}

// Transcribe runs one Recognize call over the audio payload and joins
// the alternatives of all result segments.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encodingFor(mimeType),
			SampleRateHertz: 48000,
			LanguageCode:    "en-US",
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	p.metrics.RecordUpstream("transcribe", err, time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		parts = append(parts, r.Alternatives[0].Transcript)
	}
	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}

func encodingFor(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	switch mimeType {
	case "audio/webm":
		return speechpb.RecognitionConfig_WEBM_OPUS
	case "audio/ogg":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "audio/wav":
		return speechpb.RecognitionConfig_LINEAR16
	default:
		// WAV/FLAC headers carry their own encoding; everything else is
		// rejected at the ingress allow-list before reaching here.
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
