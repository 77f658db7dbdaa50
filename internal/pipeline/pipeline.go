// Package pipeline orchestrates one inbound message end-to-end:
// transcribe, detect, resolve preference, translate, persist, update
// preference, fan out, acknowledge.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dmann24/quantina-core/internal/events"
	"github.com/Dmann24/quantina-core/internal/language"
	"github.com/Dmann24/quantina-core/internal/models"
	"github.com/Dmann24/quantina-core/internal/observability/logging"
	"github.com/Dmann24/quantina-core/internal/observability/metrics"
	"github.com/Dmann24/quantina-core/internal/store"
	"github.com/Dmann24/quantina-core/internal/transcribe"
)

var (
	// ErrValidation marks requests with missing identities. Surfaced to
	// the caller as a 4xx.
	ErrValidation = errors.New("sender and receiver identities are required")

	// ErrTranscription marks a failed voice transcription. The one hard
	// upstream failure: without text there is nothing to process.
	ErrTranscription = errors.New("transcription failed")
)

// Delivery fans an event out to a user's live connections. Satisfied by
// *registry.Registry.
type Delivery interface {
	FanOut(userID string, event any) int
}

// Request is one inbound message.
type Request struct {
	SenderID   string
	ReceiverID string
	Mode       models.Mode

	// Text carries the body for text mode.
	Text string

	// Audio and AudioMIMEType carry the payload for voice mode.
	Audio         []byte
	AudioMIMEType string
}

// Pipeline holds the collaborators for message processing. All state
// lives in the injected stores and registry; the pipeline itself is
// safe for concurrent use.
type Pipeline struct {
	language        language.Service
	transcriber     transcribe.Provider
	preferences     store.PreferenceStore
	log             store.MessageLog
	delivery        Delivery
	publisher       *events.Publisher
	defaultLanguage string
	metrics         *metrics.Metrics
	now             func() time.Time
}

// Config wires a Pipeline.
type Config struct {
	Language        language.Service
	Transcriber     transcribe.Provider
	Preferences     store.PreferenceStore
	MessageLog      store.MessageLog
	Delivery        Delivery
	Publisher       *events.Publisher
	DefaultLanguage string
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		language:        cfg.Language,
		transcriber:     cfg.Transcriber,
		preferences:     cfg.Preferences,
		log:             cfg.MessageLog,
		delivery:        cfg.Delivery,
		publisher:       cfg.Publisher,
		defaultLanguage: cfg.DefaultLanguage,
		metrics:         metrics.DefaultMetrics,
		now:             time.Now,
	}
}

// Process runs the full orchestration for one message.
//
// Detection, translation and storage failures degrade to fallback
// values so a flaky dependency cannot take down the message path. Only
// validation and transcription failures surface to the caller.
func (p *Pipeline) Process(ctx context.Context, req Request) (models.Ack, error) {
	start := p.now()

	if req.SenderID == "" || req.ReceiverID == "" {
		p.metrics.RecordMessage(string(req.Mode), "validation_error", p.now().Sub(start))
		return models.Ack{}, ErrValidation
	}

	logger := logging.WithMessage(req.SenderID, req.ReceiverID)

	// Step 1-2: resolve the effective text.
	text := req.Text
	if req.Mode == models.ModeVoice {
		transcript, err := p.transcriber.Transcribe(ctx, req.Audio, req.AudioMIMEType)
		if err != nil {
			logger.Error().Err(err).Str("step", "transcribe").Msg("Transcription failed")
			p.metrics.RecordMessage(string(req.Mode), "transcription_error", p.now().Sub(start))
			return models.Ack{}, fmt.Errorf("%w: %v", ErrTranscription, err)
		}
		text = transcript
	}
	text = strings.TrimSpace(text)

	// Step 3: nothing to process is a soft success, not an error.
	// Nothing is persisted, delivered, or learned from an empty input.
	if text == "" {
		logger.Debug().Msg("Empty effective text, returning soft success")
		p.metrics.RecordMessage(string(req.Mode), "soft_empty", p.now().Sub(start))
		return models.Ack{
			Success:          true,
			SenderLanguage:   models.LanguageUnknown,
			ReceiverLanguage: p.defaultLanguage,
		}, nil
	}

	// Step 4: detect the sender's language; degrade to Unknown.
	detected, err := p.language.Detect(ctx, text)
	if err != nil || detected == "" {
		stepLogger := logging.WithStep(req.SenderID, req.ReceiverID, "detect")
		stepLogger.Warn().
			Err(err).
			Msg("Language detection failed, using Unknown")
		detected = models.LanguageUnknown
	}

	// Step 5: resolve the receiver's preferred language; degrade to the
	// configured default.
	receiverLang, err := p.preferences.Get(ctx, req.ReceiverID)
	if err != nil {
		stepLogger := logging.WithStep(req.SenderID, req.ReceiverID, "preference_get")
		stepLogger.Warn().
			Err(err).
			Msg("Preference lookup failed, using default language")
		p.metrics.RecordStoreError("preferences", "get")
		receiverLang = p.defaultLanguage
	}

	// Steps 6-7: translate unless the languages already match. The
	// compare is exact (case-insensitive), not fuzzy. Translation
	// failure degrades to the original text.
	translated := text
	if !strings.EqualFold(detected, receiverLang) {
		out, err := p.language.Translate(ctx, text, detected, receiverLang)
		stepLogger := logging.WithStep(req.SenderID, req.ReceiverID, "translate")
		switch {
		case err != nil:
			stepLogger.Warn().
				Err(err).
				Msg("Translation failed, delivering original text")
		case strings.TrimSpace(out) == "":
			// An empty completion is a failure in disguise; the receiver
			// always gets text when the sender sent text.
			stepLogger.Warn().Msg("Translation returned empty text, delivering original text")
		default:
			translated = out
		}
	}

	msg := &models.Message{
		SenderID:         req.SenderID,
		ReceiverID:       req.ReceiverID,
		Mode:             req.Mode,
		Original:         text,
		Translated:       translated,
		SenderLanguage:   detected,
		ReceiverLanguage: receiverLang,
		CreatedAt:        p.now().UTC(),
	}

	// Step 8: persist. A storage outage must not block live delivery,
	// so append failure is absorbed.
	if err := p.log.Append(ctx, msg); err != nil {
		stepLogger := logging.WithStep(req.SenderID, req.ReceiverID, "log_append")
		stepLogger.Error().
			Err(err).
			Msg("Message log append failed")
		p.metrics.RecordStoreError("messages", "append")
	}

	// Step 9: the sender's stored language becomes whatever was just
	// detected. Last write wins under concurrent sends.
	if err := p.preferences.Set(ctx, req.SenderID, detected); err != nil {
		stepLogger := logging.WithStep(req.SenderID, req.ReceiverID, "preference_set")
		stepLogger.Warn().
			Err(err).
			Msg("Preference update failed")
		p.metrics.RecordStoreError("preferences", "set")
	}

	// Step 10: best-effort push to the receiver's live connections.
	delivered := p.delivery.FanOut(req.ReceiverID, models.DeliveryEvent{
		Type:             "new_message",
		SenderID:         msg.SenderID,
		Original:         msg.Original,
		Translated:       msg.Translated,
		SenderLanguage:   msg.SenderLanguage,
		ReceiverLanguage: msg.ReceiverLanguage,
		Timestamp:        msg.CreatedAt,
	})

	if p.publisher != nil {
		// Outside the delivery path; the publisher logs its own errors.
		_ = p.publisher.Publish(ctx, msg.SenderID, events.NewMessageProcessed(msg, delivered))
	}

	logger.Info().
		Str("mode", string(req.Mode)).
		Str("senderLanguage", detected).
		Str("receiverLanguage", receiverLang).
		Int("delivered", delivered).
		Msg("Message processed")
	p.metrics.RecordMessage(string(req.Mode), "ok", p.now().Sub(start))

	// Step 11: the caller gets the same translated payload the receiver
	// was pushed.
	return models.Ack{
		Success:          true,
		SenderLanguage:   detected,
		ReceiverLanguage: receiverLang,
		Original:         text,
		Translated:       translated,
	}, nil
}
