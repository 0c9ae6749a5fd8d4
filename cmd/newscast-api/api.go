package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dukex/newscast/pkg/cache"
	"github.com/dukex/newscast/pkg/clients/factcheck"
	"github.com/dukex/newscast/pkg/clients/summary"
	"github.com/dukex/newscast/pkg/config"
	"github.com/dukex/newscast/pkg/engine"
	"github.com/dukex/newscast/pkg/eventbus"
	"github.com/dukex/newscast/pkg/media"
	"github.com/dukex/newscast/pkg/persistence"
	"github.com/dukex/newscast/pkg/rss"
	"github.com/dukex/newscast/pkg/services"
	"github.com/dukex/newscast/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	cache       *cache.Cache
	providers   config.Providers
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	c *cache.Cache,
	providers config.Providers,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		cache:       c,
		providers:   providers,
	}
}

func (a *API) App() *fiber.App {
	audio := media.NewAudioGenerator(a.providers.TTS.BaseURL, a.providers.TTS.APIKey, a.providers.TTS.CDNBase)
	video := media.NewVideoGenerator(a.providers.Video.BaseURL, a.providers.Video.APIKey)

	articleService := services.NewArticles(a.persistence, a.cache, a.logger)
	broadcastService := services.NewBroadcasts(a.persistence, a.eventBus, audio, video, video, voiceDefaults(a.providers), a.logger)
	avatarService := services.NewAvatars(a.persistence, a.logger)
	feedService := services.NewFeeds(
		a.persistence,
		rss.NewFetcher(),
		rss.NewScraper(),
		factcheck.NewClient(a.providers.FactCheck.BaseURL, a.providers.FactCheck.APIKey),
		summary.NewClient(a.providers.Summary.BaseURL, a.providers.Summary.APIKey),
		a.eventBus,
		a.cache,
		a.logger,
	)
	workflowService := services.NewWorkflows(
		a.persistence,
		engine.NewClient(a.providers.Engine.BaseURL, a.providers.Engine.APIKey),
		a.eventBus,
		a.logger,
	)

	handlers := web.NewAPIHandlers(articleService, broadcastService, avatarService, feedService, workflowService)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Newscast API")
	})

	web.RegisterRoutes(app, handlers)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}

// voiceDefaults maps the configured per-language voices into the shape
// the broadcast service consumes.
func voiceDefaults(providers config.Providers) map[string]services.VoiceDefaults {
	voices := make(map[string]services.VoiceDefaults, len(providers.Voices))
	for language, voice := range providers.Voices {
		voices[language] = services.VoiceDefaults{
			VoiceID:   voice.VoiceID,
			Stability: voice.Stability,
			Clarity:   voice.Clarity,
		}
	}

	return voices
}
