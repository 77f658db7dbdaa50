// Package app composes the relay's components into a runnable service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Dmann24/quantina-core/internal/config"
	"github.com/Dmann24/quantina-core/internal/events"
	relayhttp "github.com/Dmann24/quantina-core/internal/http"
	"github.com/Dmann24/quantina-core/internal/language"
	langcache "github.com/Dmann24/quantina-core/internal/language/cache"
	"github.com/Dmann24/quantina-core/internal/language/lingua"
	langopenai "github.com/Dmann24/quantina-core/internal/language/openai"
	"github.com/Dmann24/quantina-core/internal/observability"
	"github.com/Dmann24/quantina-core/internal/observability/logging"
	"github.com/Dmann24/quantina-core/internal/pipeline"
	"github.com/Dmann24/quantina-core/internal/registry"
	"github.com/Dmann24/quantina-core/internal/store"
	"github.com/Dmann24/quantina-core/internal/transcribe"
	sttgoogle "github.com/Dmann24/quantina-core/internal/transcribe/google"
	sttmock "github.com/Dmann24/quantina-core/internal/transcribe/mock"
	sttopenai "github.com/Dmann24/quantina-core/internal/transcribe/openai"
	"github.com/Dmann24/quantina-core/internal/ws"
)

// Application holds process-wide state for the relay service.
type Application struct {
	StartupTime time.Time
	Cfg         *config.Config

	Registry  *registry.Registry
	Stores    store.Manager
	Publisher *events.Publisher
	Pipeline  *pipeline.Pipeline

	cache     *langcache.Cache
	stt       transcribe.Provider
	server    *http.Server
	obsServer *observability.Server
}

// New wires every component from the provided configuration. Nothing
// starts listening until Start is called.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	a := &Application{
		Cfg:      cfg,
		Registry: registry.New(),
	}
	appLogger := logging.WithComponent("application")

	stores, err := buildStores(cfg)
	if err != nil {
		return nil, fmt.Errorf("stores: %w", err)
	}
	a.Stores = stores

	lang, err := a.buildLanguage(cfg)
	if err != nil {
		a.Stores.Close()
		return nil, fmt.Errorf("language service: %w", err)
	}

	stt, err := buildTranscriber(ctx, cfg)
	if err != nil {
		a.Stores.Close()
		return nil, fmt.Errorf("transcriber: %w", err)
	}
	a.stt = stt

	a.Publisher = events.New(&events.Config{
		Enabled: cfg.Kafka.Enabled,
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	})

	a.Pipeline = pipeline.New(pipeline.Config{
		Language:        lang,
		Transcriber:     stt,
		Preferences:     stores.Preferences(),
		MessageLog:      stores.Messages(),
		Delivery:        a.Registry,
		Publisher:       a.Publisher,
		DefaultLanguage: cfg.Service.DefaultLanguage,
	})

	live := ws.NewHandler(a.Registry, a.Pipeline, []byte(cfg.Auth.JWTSecret))
	router := relayhttp.NewRouter(relayhttp.RouterConfig{
		Pipeline:      a.Pipeline,
		Messages:      stores.Messages(),
		Preferences:   stores.Preferences(),
		Live:          live,
		JWTSecret:     []byte(cfg.Auth.JWTSecret),
		TokenValidity: cfg.Auth.TokenValidity,
	})

	a.server = &http.Server{
		Addr:         ":" + cfg.Service.HTTPPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	a.obsServer = observability.NewServer(":" + cfg.Observability.Port)

	appLogger.Info().
		Str("transcriptionProvider", cfg.Transcription.Provider).
		Bool("linguaEnabled", cfg.Language.UseLingua).
		Bool("postgresEnabled", cfg.Storage.PostgresDSN != "").
		Bool("kafkaEnabled", cfg.Kafka.Enabled).
		Msg("Relay application created")
	return a, nil
}

// Start begins serving API and observability traffic. It returns once
// the API listener stops; callers drive shutdown via Shutdown.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.obsServer.Start()

	startLogger := logging.WithComponent("application")
	startLogger.Info().
		Str("addr", a.server.Addr).
		Time("startupTime", a.StartupTime).
		Msg("Relay service starting")

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listeners and releases every held resource.
func (a *Application) Shutdown(ctx context.Context) {
	shutdownLogger := logging.WithComponent("application")
	shutdownLogger.Info().Msg("Relay service shutting down")

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownLogger.Error().Err(err).Msg("API server shutdown failed")
	}
	if err := a.obsServer.Shutdown(ctx); err != nil {
		shutdownLogger.Error().Err(err).Msg("Observability server shutdown failed")
	}
	if err := a.Publisher.Close(); err != nil {
		shutdownLogger.Error().Err(err).Msg("Publisher close failed")
	}
	if closer, ok := a.stt.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			shutdownLogger.Error().Err(err).Msg("Transcriber close failed")
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			shutdownLogger.Error().Err(err).Msg("Language cache close failed")
		}
	}
	if err := a.Stores.Close(); err != nil {
		shutdownLogger.Error().Err(err).Msg("Store close failed")
	}
}

func buildStores(cfg *config.Config) (store.Manager, error) {
	if cfg.Storage.PostgresDSN == "" {
		storeLogger := logging.WithComponent("store")
		storeLogger.Info().Msg("No Postgres DSN configured, using in-memory stores")
		return store.NewInMemoryManager(cfg.Service.DefaultLanguage), nil
	}
	return store.NewPostgresManager(cfg.Storage.PostgresDSN, cfg.Service.DefaultLanguage)
}

func (a *Application) buildLanguage(cfg *config.Config) (language.Service, error) {
	svc := language.Service(langopenai.New(
		cfg.Language.OpenAIAPIKey,
		cfg.Language.ChatModel,
		cfg.Language.Timeout,
	))

	if cfg.Language.UseLingua {
		svc = language.LocalFirst(lingua.New(), svc)
	}

	if cfg.Language.CacheDir != "" {
		c, err := langcache.Open(cfg.Language.CacheDir)
		if err != nil {
			return nil, err
		}
		a.cache = c
		svc = language.WithCache(svc, c, cfg.Language.ChatModel)
	}
	return svc, nil
}

func buildTranscriber(ctx context.Context, cfg *config.Config) (transcribe.Provider, error) {
	switch cfg.Transcription.Provider {
	case "google":
		return sttgoogle.New(ctx, cfg.Transcription.Timeout)
	case "mock":
		sttLogger := logging.WithComponent("transcribe")
		sttLogger.Warn().Msg("Using mock transcription provider")
		return sttmock.New(), nil
	case "openai":
		return sttopenai.New(cfg.Language.OpenAIAPIKey, cfg.Transcription.Model, cfg.Transcription.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.Transcription.Provider)
	}
}
