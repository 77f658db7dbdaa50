// Package transcribe defines the interface for speech-to-text
// providers.
package transcribe

import "context"

// Provider converts a complete audio payload into text. Implementations
// exist for OpenAI (default), Google Cloud Speech, and a mock used in
// tests and credential-less development.
type Provider interface {
	// Transcribe returns the transcript of the audio. mimeType is the
	// upload's content type, e.g. "audio/webm". An empty transcript
	// with a nil error is a valid outcome: silence is not an error.
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// SupportedMIMETypes is the allow-list for voice uploads. Anything else
// is rejected at the ingress boundary before the pipeline runs.
var SupportedMIMETypes = map[string]bool{
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/wav":   true,
	"audio/ogg":   true,
	"audio/m4a":   true,
	"audio/x-m4a": true,
	"audio/webm":  true,
}
