// Package language defines the capability interface for language
// detection and translation, plus composition helpers for the offline
// fast path and the translation cache.
package language

import (
	"context"

	"github.com/Dmann24/quantina-core/internal/language/cache"
	"github.com/Dmann24/quantina-core/internal/observability/logging"
	"github.com/Dmann24/quantina-core/internal/observability/metrics"
)

// Service detects the language of a text and translates text into a
// target language. Pure request/response, no state.
type Service interface {
	// Detect returns the language name of the text, e.g. "English",
	// "Punjabi", "French".
	Detect(ctx context.Context, text string) (string, error)

	// Translate renders text from sourceLang into targetLang.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Detector is a local, offline language detector consulted before the
// remote service.
type Detector interface {
	// Detect returns the language name and whether the detector is
	// confident enough for the result to be used.
	Detect(text string) (string, bool)
}

// LocalFirst wraps a Service so that Detect consults the local detector
// before falling back to the remote call. Translate passes through.
func LocalFirst(local Detector, remote Service) Service {
	return &localFirst{local: local, remote: remote}
}

type localFirst struct {
	local  Detector
	remote Service
}

func (s *localFirst) Detect(ctx context.Context, text string) (string, error) {
	if s.local != nil {
		if lang, ok := s.local.Detect(text); ok {
			return lang, nil
		}
	}
	return s.remote.Detect(ctx, text)
}

func (s *localFirst) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return s.remote.Translate(ctx, text, sourceLang, targetLang)
}

// WithCache wraps a Service with a persistent translation cache.
// Lookups and stores are best effort: a broken cache degrades to
// calling the underlying service. name is mixed into the cache key so
// entries from different models do not collide.
func WithCache(svc Service, c *cache.Cache, name string) Service {
	return &cached{
		svc:     svc,
		cache:   c,
		name:    name,
		metrics: metrics.DefaultMetrics,
	}
}

type cached struct {
	svc     Service
	cache   *cache.Cache
	name    string
	metrics *metrics.Metrics
}

func (s *cached) Detect(ctx context.Context, text string) (string, error) {
	return s.svc.Detect(ctx, text)
}

func (s *cached) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	key := cache.GenerateKey(s.name, sourceLang, targetLang, text)

	if entry, ok := s.cache.Get(key); ok {
		s.metrics.CacheHits.Inc()
		return entry.Text, nil
	}
	s.metrics.CacheMisses.Inc()

	translated, err := s.svc.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		return "", err
	}

	if err := s.cache.Set(key, &cache.Entry{Text: translated}, cache.DefaultTTL); err != nil {
		logger := logging.WithComponent("language")
		logger.Warn().Err(err).Msg("Translation cache store failed")
	}
	return translated, nil
}
