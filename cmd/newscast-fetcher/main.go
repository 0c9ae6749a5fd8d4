// Package main provides the feed ingestion scheduler. It periodically
// fetches every feed whose refresh interval has elapsed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/newscast/pkg/clients/factcheck"
	"github.com/dukex/newscast/pkg/clients/summary"
	"github.com/dukex/newscast/pkg/cmd"
	"github.com/dukex/newscast/pkg/config"
	"github.com/dukex/newscast/pkg/log"
	"github.com/dukex/newscast/pkg/rss"
	"github.com/dukex/newscast/pkg/services"
)

func main() {
	logger := log.WithModule("fetcher")

	command := &cli.Command{
		Name:                  "newscast-fetcher",
		Usage:                 "Ingest RSS feeds on their refresh schedule",
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
				Name:    "fetch-cron",
				Usage:   "Cron expression for the due-feed ingestion pass",
				Value:   "@every 1m",
				Sources: cli.EnvVars("FETCH_CRON"),
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

			logger.InfoContext(ctx, "Initializing Newscast fetcher")

			providers := config.LoadProvidersOrDefault(command.String("providers-config"))

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "newscast-fetcher", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			feedService := services.NewFeeds(
				store,
				rss.NewFetcher(),
				rss.NewScraper(),
				factcheck.NewClient(providers.FactCheck.BaseURL, providers.FactCheck.APIKey),
				summary.NewClient(providers.Summary.BaseURL, providers.Summary.APIKey),
				eventBus,
				nil,
				logger,
			)

			scheduler := cron.New()

			_, err = scheduler.AddFunc(command.String("fetch-cron"), func() {
				created, err := feedService.FetchDue(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "ingestion pass failed", "error", err)

					return
				}

				if created > 0 {
					logger.InfoContext(ctx, "ingestion pass stored new articles", "count", created)
				}
			})
			if err != nil {
				return fmt.Errorf("invalid fetch cron expression: %w", err)
			}

			scheduler.Start()
			defer scheduler.Stop()

			logger.InfoContext(ctx, "Newscast fetcher started")

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			logger.InfoContext(ctx, "Shutting down Newscast fetcher")

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
