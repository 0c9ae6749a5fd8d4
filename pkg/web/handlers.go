// Package web provides the HTTP handlers of the backoffice REST API.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/dukex/newscast/pkg/models"
	"github.com/dukex/newscast/pkg/persistence"
	"github.com/dukex/newscast/pkg/services"
)

type APIHandlers struct {
	articles   *services.Articles
	broadcasts *services.Broadcasts
	avatars    *services.Avatars
	feeds      *services.Feeds
	workflows  *services.Workflows
}

func NewAPIHandlers(
	articles *services.Articles,
	broadcasts *services.Broadcasts,
	avatars *services.Avatars,
	feeds *services.Feeds,
	workflows *services.Workflows,
) *APIHandlers {
	return &APIHandlers{
		articles:   articles,
		broadcasts: broadcasts,
		avatars:    avatars,
		feeds:      feeds,
		workflows:  workflows,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.articles.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Newscast API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Newscast API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// Articles

func (h *APIHandlers) GetArticles(c fiber.Ctx) error {
	params, err := h.parseListArticlesParams(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.articles.List(c.Context(), *params)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"articles":   result.Items,
		"pagination": result.Pagination,
	})
}

func (h *APIHandlers) parseListArticlesParams(c fiber.Ctx) (*persistence.ListArticlesParams, error) {
	params := &persistence.ListArticlesParams{
		Status:   models.ArticleStatus(c.Query("status")),
		Priority: models.Priority(c.Query("priority")),
		Category: c.Query("category"),
		Language: c.Query("language"),
		Search:   c.Query("search"),
		SortBy:   c.Query("sort_by"),
	}

	var err error

	if params.Page, err = parseIntQuery(c, "page"); err != nil {
		return nil, err
	}

	if params.Limit, err = parseIntQuery(c, "limit"); err != nil {
		return nil, err
	}

	if sortDesc := c.Query("sort_desc"); sortDesc != "" {
		if params.SortDesc, err = strconv.ParseBool(sortDesc); err != nil {
			return nil, err
		}
	}

	return params, nil
}

func (h *APIHandlers) GetArticle(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Article ID is required")
	}

	article, err := h.articles.Get(c.Context(), id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Article not found")
		}

		return internalError(c, err)
	}

	return c.JSON(article)
}

func (h *APIHandlers) CreateArticle(c fiber.Ctx) error {
	var req services.CreateArticleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	article, err := h.articles.Create(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(article)
}

func (h *APIHandlers) UpdateArticle(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Article ID is required")
	}

	var req services.UpdateArticleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	article, err := h.articles.Update(c.Context(), id, req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(article)
}

type approveArticleRequest struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
}

func (h *APIHandlers) ApproveArticle(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Article ID is required")
	}

	var req approveArticleRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	article, err := h.articles.Approve(c.Context(), id, c.Query("updated_by"), req.ScheduledAt)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(article)
}

func (h *APIHandlers) ArchiveArticle(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Article ID is required")
	}

	article, err := h.articles.Archive(c.Context(), id, c.Query("updated_by"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(article)
}

func (h *APIHandlers) DeleteArticle(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Article ID is required")
	}

	if err := h.articles.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Broadcasts

func (h *APIHandlers) GetBroadcasts(c fiber.Ctx) error {
	params := persistence.ListBroadcastsParams{
		Status:   models.BroadcastStatus(c.Query("status")),
		AvatarID: c.Query("avatar_id"),
	}

	var err error

	if params.Page, err = parseIntQuery(c, "page"); err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	if params.Limit, err = parseIntQuery(c, "limit"); err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.broadcasts.List(c.Context(), params)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"broadcasts": result.Items,
		"pagination": result.Pagination,
	})
}

func (h *APIHandlers) GetBroadcast(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Broadcast ID is required")
	}

	broadcast, err := h.broadcasts.Get(c.Context(), id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Broadcast not found")
		}

		return internalError(c, err)
	}

	return c.JSON(broadcast)
}

func (h *APIHandlers) ScheduleBroadcast(c fiber.Ctx) error {
	var req services.ScheduleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	broadcast, err := h.broadcasts.Schedule(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(broadcast)
}

func (h *APIHandlers) UpdateBroadcastStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Broadcast ID is required")
	}

	var req services.UpdateStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if req.Status == "" {
		return badRequest(c, "Status is required")
	}

	broadcast, err := h.broadcasts.UpdateStatus(c.Context(), id, req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(broadcast)
}

func (h *APIHandlers) RetryBroadcast(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Broadcast ID is required")
	}

	broadcast, err := h.broadcasts.Retry(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(broadcast)
}

// GetNextBroadcast serves the playout pull endpoint. An empty queue is
// a 204, not an error.
func (h *APIHandlers) GetNextBroadcast(c fiber.Ctx) error {
	avatarID := c.Params("avatarId")
	if avatarID == "" {
		return badRequest(c, "Avatar ID is required")
	}

	next, err := h.broadcasts.GetNext(c.Context(), avatarID)
	if err != nil {
		return handleServiceError(c, err)
	}

	if next == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return c.JSON(next)
}

// Avatars

func (h *APIHandlers) GetAvatars(c fiber.Ctx) error {
	activeOnly, err := parseBoolQuery(c, "active_only")
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	avatars, err := h.avatars.List(c.Context(), activeOnly)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"avatars": avatars})
}

func (h *APIHandlers) GetAvatar(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Avatar ID is required")
	}

	avatar, err := h.avatars.Get(c.Context(), id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Avatar not found")
		}

		return internalError(c, err)
	}

	return c.JSON(avatar)
}

func (h *APIHandlers) CreateAvatar(c fiber.Ctx) error {
	var req services.CreateAvatarRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	avatar, err := h.avatars.Create(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(avatar)
}

func (h *APIHandlers) UpdateAvatar(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Avatar ID is required")
	}

	var req services.UpdateAvatarRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	avatar, err := h.avatars.Update(c.Context(), id, req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(avatar)
}

func (h *APIHandlers) DeleteAvatar(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Avatar ID is required")
	}

	if err := h.avatars.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Feeds

func (h *APIHandlers) GetFeeds(c fiber.Ctx) error {
	activeOnly, err := parseBoolQuery(c, "active_only")
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	feeds, err := h.feeds.List(c.Context(), activeOnly)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"feeds": feeds})
}

func (h *APIHandlers) GetFeed(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Feed ID is required")
	}

	feed, err := h.feeds.Get(c.Context(), id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Feed not found")
		}

		return internalError(c, err)
	}

	return c.JSON(feed)
}

func (h *APIHandlers) CreateFeed(c fiber.Ctx) error {
	var req services.CreateFeedRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	feed, err := h.feeds.Create(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(feed)
}

func (h *APIHandlers) UpdateFeed(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Feed ID is required")
	}

	var req services.UpdateFeedRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	feed, err := h.feeds.Update(c.Context(), id, req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(feed)
}

func (h *APIHandlers) DeleteFeed(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Feed ID is required")
	}

	if err := h.feeds.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) FetchFeed(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Feed ID is required")
	}

	created, err := h.feeds.FetchFeed(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"new_articles": created})
}

func (h *APIHandlers) GetFeedArticles(c fiber.Ctx) error {
	params := persistence.ListFeedArticlesParams{
		FeedID:          c.Params("id"),
		FactCheckStatus: models.FactCheckStatus(c.Query("fact_check_status")),
	}

	var err error

	if params.Page, err = parseIntQuery(c, "page"); err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	if params.Limit, err = parseIntQuery(c, "limit"); err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.feeds.ListArticles(c.Context(), params)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"feed_articles": result.Items,
		"pagination":    result.Pagination,
	})
}

func (h *APIHandlers) FactCheckFeedArticle(c fiber.Ctx) error {
	id := c.Params("articleId")
	if id == "" {
		return badRequest(c, "Feed article ID is required")
	}

	article, err := h.feeds.FactCheckArticle(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(article)
}

func (h *APIHandlers) SummarizeFeedArticle(c fiber.Ctx) error {
	id := c.Params("articleId")
	if id == "" {
		return badRequest(c, "Feed article ID is required")
	}

	article, err := h.feeds.SummarizeArticle(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(article)
}

// Workflows

func (h *APIHandlers) GetWorkflowsList(c fiber.Ctx) error {
	activeOnly, err := parseBoolQuery(c, "active_only")
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	workflows, err := h.workflows.List(c.Context(), activeOnly)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflows.Get(c.Context(), id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req services.CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	workflow, err := h.workflows.Create(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req services.UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	workflow, err := h.workflows.Update(c.Context(), id, req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflows.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflows.Activate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeactivateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflows.Deactivate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

type executeWorkflowRequest struct {
	Input       map[string]any `json:"input"`
	TriggeredBy string         `json:"triggered_by"`
}

func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req executeWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	execution, err := h.workflows.Execute(c.Context(), id, req.Input, req.TriggeredBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	page, err := parseIntQuery(c, "page")
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	limit, err := parseIntQuery(c, "limit")
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.workflows.ListExecutions(c.Context(), id, page, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions": result.Items,
		"pagination": result.Pagination,
	})
}

func (h *APIHandlers) SyncExecution(c fiber.Ctx) error {
	id := c.Params("executionId")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.workflows.SyncExecution(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func parseIntQuery(c fiber.Ctx, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}

	return strconv.Atoi(raw)
}

func parseBoolQuery(c fiber.Ctx, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}

	return strconv.ParseBool(raw)
}
