// Package main provides the media generation worker. It consumes
// media requests from the event bus and reconciles async jobs on a
// schedule.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dukex/newscast/pkg/cmd"
	"github.com/dukex/newscast/pkg/config"
	"github.com/dukex/newscast/pkg/events"
	"github.com/dukex/newscast/pkg/log"
	"github.com/dukex/newscast/pkg/media"
	"github.com/dukex/newscast/pkg/otelhelper"
	"github.com/dukex/newscast/pkg/services"
)

func main() {
	logger := log.WithModule("worker")

	command := &cli.Command{
		Name:                  "newscast-worker",
		Usage:                 "Generate broadcast media and reconcile async jobs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus transport (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "providers-config",
				Usage:   "Path to the provider configuration YAML",
				Sources: cli.EnvVars("PROVIDERS_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "reconcile-cron",
				Usage:   "Cron expression for the async job reconciliation pass",
				Value:   "@every 1m",
				Sources: cli.EnvVars("RECONCILE_CRON"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Newscast worker")

			providers := config.LoadProvidersOrDefault(command.String("providers-config"))
			if err := config.ValidateProviders(providers); err != nil {
				return fmt.Errorf("invalid provider configuration: %w", err)
			}

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "newscast-worker", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			tracer, err := otelhelper.NewTracer(ctx, "newscast-worker")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}

			audio := media.NewAudioGenerator(providers.TTS.BaseURL, providers.TTS.APIKey, providers.TTS.CDNBase)
			video := media.NewVideoGenerator(providers.Video.BaseURL, providers.Video.APIKey)

			voices := make(map[string]services.VoiceDefaults, len(providers.Voices))
			for language, voice := range providers.Voices {
				voices[language] = services.VoiceDefaults{
					VoiceID:   voice.VoiceID,
					Stability: voice.Stability,
					Clarity:   voice.Clarity,
				}
			}

			broadcastService := services.NewBroadcasts(store, eventBus, audio, video, video, voices, logger)

			err = eventBus.Handle(events.BroadcastMediaRequestedEvent, func(ctx context.Context, event any) error {
				requested, ok := event.(*events.BroadcastMediaRequested)
				if !ok {
					return fmt.Errorf("unexpected event payload %T", event)
				}

				ctx, span := otelhelper.StartSpan(ctx, tracer, "broadcast.generate_media",
					attribute.String(otelhelper.BroadcastIDKey, requested.BroadcastID),
					attribute.String(otelhelper.ArticleIDKey, requested.ArticleID),
					attribute.String(otelhelper.AvatarIDKey, requested.AvatarID),
				)
				defer span.End()

				if err := broadcastService.GenerateMedia(ctx, requested.BroadcastID); err != nil {
					otelhelper.SetError(span, err)
					logger.ErrorContext(ctx, "media generation failed",
						"broadcast_id", requested.BroadcastID, "error", err)

					// The failure is recorded on the broadcast; the
					// message must not be redelivered.
					if services.IsExternalError(err) || services.IsValidationError(err) {
						return nil
					}

					return err
				}

				return nil
			})
			if err != nil {
				return err
			}

			if err := eventBus.Subscribe(ctx); err != nil {
				return fmt.Errorf("failed to subscribe to events: %w", err)
			}

			scheduler := cron.New()

			_, err = scheduler.AddFunc(command.String("reconcile-cron"), func() {
				ctx, span := otelhelper.StartSpan(ctx, tracer, "broadcast.reconcile_pending")
				defer span.End()

				settled, err := broadcastService.ReconcilePending(ctx)
				if err != nil {
					otelhelper.SetError(span, err)
					logger.ErrorContext(ctx, "reconciliation pass failed", "error", err)

					return
				}

				if settled > 0 {
					logger.InfoContext(ctx, "reconciliation pass settled broadcasts", "count", settled)
				}
			})
			if err != nil {
				return fmt.Errorf("invalid reconcile cron expression: %w", err)
			}

			scheduler.Start()
			defer scheduler.Stop()

			logger.InfoContext(ctx, "Newscast worker started")

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			logger.InfoContext(ctx, "Shutting down Newscast worker")

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
