package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/example/journey-sms-activity/internal/activity"
	"github.com/example/journey-sms-activity/internal/config"
	"github.com/example/journey-sms-activity/internal/events"
	"github.com/example/journey-sms-activity/internal/kafka/producer"
	"github.com/example/journey-sms-activity/internal/logger"
	"github.com/example/journey-sms-activity/internal/provider"
	"github.com/example/journey-sms-activity/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fail("logger init", err)
	}
	log := baseLogger.With().Str("service", "sms-activity").Logger()

	variant, err := activity.ParseVariant(cfg.Activity.PayloadVariant)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid payload variant")
	}
	builder := &activity.Builder{
		Variant:           variant,
		DefaultRecipients: cfg.Activity.DefaultRecipients,
		Originator:        cfg.Activity.Originator,
	}

	client, err := provider.NewClient(provider.Config{
		URL:           cfg.Provider.URL,
		BasicAuth:     cfg.Provider.BasicAuth,
		BearerToken:   cfg.Provider.BearerToken,
		Timeout:       cfg.Provider.Timeout,
		RetryAttempts: cfg.Provider.RetryAttempts,
		RetryBackoff:  cfg.Provider.RetryBackoff,
		StubMode:      cfg.Provider.StubMode,
		MaxInFlight:   cfg.Provider.MaxInFlight,
	}, log.With().Str("component", "provider-client").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise provider client")
	}

	var publisher *events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		prod, err := producer.New(cfg.Kafka.Brokers, log.With().Str("component", "kafka").Logger())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create kafka producer")
		}
		defer func() {
			if err := prod.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close kafka producer")
			}
		}()
		publisher = events.NewPublisher(prod, cfg.Kafka.StatusTopic, log.With().Str("component", "status-publisher").Logger())
	}

	srv, err := server.New(server.Options{
		Logger:         log.With().Str("component", "http").Logger(),
		Client:         client,
		Builder:        builder,
		Store:          server.NewMemoryStore(),
		Publisher:      publisher,
		BaseURL:        cfg.App.BaseURL,
		StaticTestData: cfg.Activity.StaticTestData,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise server")
	}

	log.Info().
		Int("port", cfg.App.Port).
		Str("variant", string(variant)).
		Bool("stub_mode", cfg.Provider.StubMode).
		Msg("activity server started")

	if err := srv.Run(ctx, cfg.App.Port); err != nil {
		log.Error().Err(err).Msg("server terminated with error")
	}
}

func fail(stage string, err error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	logger.Fatal().Err(err).Str("stage", stage).Msg("activity server init failed")
}
