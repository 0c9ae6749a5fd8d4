package web

import "github.com/gofiber/fiber/v3"

// RegisterRoutes mounts every API endpoint on app.
func RegisterRoutes(app *fiber.App, h *APIHandlers) {
	app.Get("/health", h.HealthCheck)

	a := app.Group("/articles")
	a.Get("/", h.GetArticles)
	a.Post("/", h.CreateArticle)
	a.Get("/:id", h.GetArticle)
	a.Patch("/:id", h.UpdateArticle)
	a.Delete("/:id", h.DeleteArticle)
	a.Post("/:id/approve", h.ApproveArticle)
	a.Post("/:id/archive", h.ArchiveArticle)

	b := app.Group("/broadcasts")
	b.Get("/", h.GetBroadcasts)
	b.Post("/", h.ScheduleBroadcast)
	// The static prefix must be registered before the :id wildcard.
	b.Get("/next/:avatarId", h.GetNextBroadcast)
	b.Get("/:id", h.GetBroadcast)
	b.Patch("/:id/status", h.UpdateBroadcastStatus)
	b.Post("/:id/retry", h.RetryBroadcast)

	av := app.Group("/avatars")
	av.Get("/", h.GetAvatars)
	av.Post("/", h.CreateAvatar)
	av.Get("/:id", h.GetAvatar)
	av.Patch("/:id", h.UpdateAvatar)
	av.Delete("/:id", h.DeleteAvatar)

	f := app.Group("/feeds")
	f.Get("/", h.GetFeeds)
	f.Post("/", h.CreateFeed)
	f.Get("/:id", h.GetFeed)
	f.Patch("/:id", h.UpdateFeed)
	f.Delete("/:id", h.DeleteFeed)
	f.Post("/:id/fetch", h.FetchFeed)
	f.Get("/:id/articles", h.GetFeedArticles)
	f.Post("/:id/articles/:articleId/fact-check", h.FactCheckFeedArticle)
	f.Post("/:id/articles/:articleId/summarize", h.SummarizeFeedArticle)

	w := app.Group("/workflows")
	w.Get("/", h.GetWorkflowsList)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Patch("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/activate", h.ActivateWorkflow)
	w.Post("/:id/deactivate", h.DeactivateWorkflow)
	w.Post("/:id/execute", h.ExecuteWorkflow)
	w.Get("/:id/executions", h.GetWorkflowExecutions)
	w.Post("/:id/executions/:executionId/sync", h.SyncExecution)
}
