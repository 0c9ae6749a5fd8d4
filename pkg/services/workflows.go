package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/newscast/pkg/engine"
	"github.com/dukex/newscast/pkg/eventbus"
	"github.com/dukex/newscast/pkg/events"
	"github.com/dukex/newscast/pkg/models"
	"github.com/dukex/newscast/pkg/persistence"
	"github.com/dukex/newscast/pkg/workflowdef"
)

// Workflows manages automation workflows and mirrors them onto the
// external engine. The engine is the execution authority; local
// records track what was pushed and how runs ended.
type Workflows struct {
	store     persistence.Persistence
	engine    *engine.Client
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

// NewWorkflows creates the workflow service.
func NewWorkflows(store persistence.Persistence, eng *engine.Client, publisher eventbus.EventPublisher, logger *slog.Logger) *Workflows {
	return &Workflows{store: store, engine: eng, publisher: publisher, logger: logger}
}

// CreateWorkflowRequest registers a new automation.
type CreateWorkflowRequest struct {
	Name          string         `json:"name"         validate:"required,min=3"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	TriggerType   string         `json:"trigger_type" validate:"required"`
	TriggerConfig map[string]any `json:"trigger_config"`
	Definition    map[string]any `json:"definition"   validate:"required"`
	CreatedBy     string         `json:"created_by"`
}

// Create validates a workflow definition, registers it on the engine
// and stores the local mirror. The engine is called before the local
// save so a stored workflow always has an engine counterpart.
func (s *Workflows) Create(ctx context.Context, req CreateWorkflowRequest) (*models.Workflow, error) {
	if err := validate.Struct(req); err != nil {
		return nil, NewValidationError("create workflow", "invalid_workflow", err.Error(), ErrInvalidRequest)
	}

	if err := workflowdef.Validate(req.Definition); err != nil {
		return nil, NewValidationError("create workflow", "invalid_definition", err.Error(), ErrInvalidRequest)
	}

	existing, err := s.store.Workflows().GetByName(ctx, req.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check workflow name: %w", err)
	}

	if existing != nil {
		return nil, &ServiceError{
			Op:      "create workflow",
			Code:    "duplicate_workflow",
			Message: fmt.Sprintf("a workflow named %q already exists", req.Name),
			Err:     ErrDuplicateWorkflow,
		}
	}

	engineID, err := s.engine.CreateWorkflow(ctx, engine.Workflow{
		Name:       req.Name,
		Active:     false,
		Definition: req.Definition,
	})
	if err != nil {
		return nil, NewExternalError("create workflow", "automation engine", err)
	}

	workflow := &models.Workflow{
		Name:             req.Name,
		Description:      req.Description,
		Category:         req.Category,
		TriggerType:      req.TriggerType,
		TriggerConfig:    req.TriggerConfig,
		Definition:       req.Definition,
		EngineWorkflowID: engineID,
		IsActive:         false,
		CreatedBy:        req.CreatedBy,
		UpdatedBy:        req.CreatedBy,
	}

	if err := s.store.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	s.logger.InfoContext(ctx, "workflow created",
		"workflow_id", workflow.ID, "engine_workflow_id", engineID)

	return workflow, nil
}

// UpdateWorkflowRequest carries editable workflow fields.
type UpdateWorkflowRequest struct {
	Description   *string        `json:"description,omitempty"`
	Category      *string        `json:"category,omitempty"`
	TriggerType   *string        `json:"trigger_type,omitempty"`
	TriggerConfig map[string]any `json:"trigger_config,omitempty"`
	Definition    map[string]any `json:"definition,omitempty"`
	UpdatedBy     string         `json:"updated_by"`
}

// Update edits a workflow and pushes a definition change to the engine.
func (s *Workflows) Update(ctx context.Context, id string, req UpdateWorkflowRequest) (*models.Workflow, error) {
	workflow, err := s.store.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}

	if req.Description != nil {
		workflow.Description = *req.Description
	}

	if req.Category != nil {
		workflow.Category = *req.Category
	}

	if req.TriggerType != nil {
		workflow.TriggerType = *req.TriggerType
	}

	if req.TriggerConfig != nil {
		workflow.TriggerConfig = req.TriggerConfig
	}

	if req.Definition != nil {
		if err := workflowdef.Validate(req.Definition); err != nil {
			return nil, NewValidationError("update workflow", "invalid_definition", err.Error(), ErrInvalidRequest)
		}

		workflow.Definition = req.Definition

		if workflow.EngineWorkflowID != "" {
			err := s.engine.UpdateWorkflow(ctx, workflow.EngineWorkflowID, engine.Workflow{
				Name:       workflow.Name,
				Active:     workflow.IsActive,
				Definition: workflow.Definition,
			})
			if err != nil {
				return nil, NewExternalError("update workflow", "automation engine", err)
			}
		}
	}

	workflow.UpdatedBy = req.UpdatedBy

	if err := s.store.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Get loads one workflow.
func (s *Workflows) Get(ctx context.Context, id string) (*models.Workflow, error) {
	return s.store.Workflows().GetByID(ctx, id)
}

// List returns workflows, optionally only active ones.
func (s *Workflows) List(ctx context.Context, activeOnly bool) ([]*models.Workflow, error) {
	return s.store.Workflows().List(ctx, activeOnly)
}

// Activate enables a workflow locally and on the engine.
func (s *Workflows) Activate(ctx context.Context, id string) (*models.Workflow, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate disables a workflow locally and on the engine.
func (s *Workflows) Deactivate(ctx context.Context, id string) (*models.Workflow, error) {
	return s.setActive(ctx, id, false)
}

func (s *Workflows) setActive(ctx context.Context, id string, active bool) (*models.Workflow, error) {
	workflow, err := s.store.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}

	if workflow.EngineWorkflowID == "" {
		return nil, NewValidationError("toggle workflow", "workflow_not_linked",
			fmt.Sprintf("workflow %s has no engine counterpart", workflow.ID), ErrWorkflowNotLinked)
	}

	if active {
		err = s.engine.Activate(ctx, workflow.EngineWorkflowID)
	} else {
		err = s.engine.Deactivate(ctx, workflow.EngineWorkflowID)
	}

	if err != nil {
		return nil, NewExternalError("toggle workflow", "automation engine", err)
	}

	workflow.IsActive = active

	if err := s.store.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Delete deactivates the engine side best effort and soft deletes the
// local record.
func (s *Workflows) Delete(ctx context.Context, id string) error {
	workflow, err := s.store.Workflows().GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load workflow: %w", err)
	}

	if workflow.EngineWorkflowID != "" {
		if err := s.engine.Deactivate(ctx, workflow.EngineWorkflowID); err != nil {
			s.logger.WarnContext(ctx, "failed to deactivate workflow on engine",
				"workflow_id", workflow.ID, "error", err)
		}
	}

	return s.store.Workflows().Delete(ctx, id)
}

// Execute triggers a workflow run on the engine and records it
// locally as RUNNING.
func (s *Workflows) Execute(ctx context.Context, id string, input map[string]any, triggeredBy string) (*models.Execution, error) {
	workflow, err := s.store.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}

	if !workflow.IsActive {
		return nil, NewValidationError("execute workflow", "workflow_inactive",
			fmt.Sprintf("workflow %s is inactive", workflow.ID), ErrWorkflowInactive)
	}

	if workflow.EngineWorkflowID == "" {
		return nil, NewValidationError("execute workflow", "workflow_not_linked",
			fmt.Sprintf("workflow %s has no engine counterpart", workflow.ID), ErrWorkflowNotLinked)
	}

	engineExec, err := s.engine.Execute(ctx, workflow.EngineWorkflowID, input)
	if err != nil {
		return nil, NewExternalError("execute workflow", "automation engine", err)
	}

	execution := &models.Execution{
		WorkflowID:        workflow.ID,
		Status:            models.ExecutionStatusRunning,
		InputData:         input,
		EngineExecutionID: engineExec.ID,
		TriggeredBy:       triggeredBy,
		StartedAt:         time.Now().UTC(),
	}

	if err := s.store.Executions().Save(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to save execution: %w", err)
	}

	if s.publisher != nil {
		event := events.ExecutionStarted{
			BaseEvent:         events.NewBaseEvent(events.ExecutionStartedEvent),
			ExecutionID:       execution.ID,
			WorkflowID:        workflow.ID,
			EngineExecutionID: engineExec.ID,
		}

		if err := s.publisher.Publish(ctx, execution.ID, event); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish execution started event",
				"execution_id", execution.ID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "workflow executed",
		"workflow_id", workflow.ID, "execution_id", execution.ID,
		"engine_execution_id", engineExec.ID)

	return execution, nil
}

// SyncExecution refreshes a local execution from the engine. The
// engine status wins over whatever is stored locally.
func (s *Workflows) SyncExecution(ctx context.Context, executionID string) (*models.Execution, error) {
	execution, err := s.store.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution: %w", err)
	}

	if execution.EngineExecutionID == "" {
		return nil, NewValidationError("sync execution", "execution_not_linked",
			fmt.Sprintf("execution %s has no engine counterpart", execution.ID), ErrWorkflowNotLinked)
	}

	engineExec, err := s.engine.GetExecution(ctx, execution.EngineExecutionID)
	if err != nil {
		return nil, NewExternalError("sync execution", "automation engine", err)
	}

	execution.Status = mapEngineStatus(engineExec.Status)
	execution.OutputData = engineExec.Data
	execution.Error = engineExec.Error
	execution.FinishedAt = engineExec.StoppedAt

	if err := s.store.Executions().Save(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to save execution: %w", err)
	}

	if s.publisher != nil {
		event := events.ExecutionSynced{
			BaseEvent:   events.NewBaseEvent(events.ExecutionSyncedEvent),
			ExecutionID: execution.ID,
			Status:      string(execution.Status),
		}

		if err := s.publisher.Publish(ctx, execution.ID, event); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish execution synced event",
				"execution_id", execution.ID, "error", err)
		}
	}

	return execution, nil
}

// GetExecution loads one execution.
func (s *Workflows) GetExecution(ctx context.Context, id string) (*models.Execution, error) {
	return s.store.Executions().GetByID(ctx, id)
}

// ListExecutions returns a page of runs of one workflow.
func (s *Workflows) ListExecutions(ctx context.Context, workflowID string, page, limit int) (*persistence.ListResult[models.Execution], error) {
	return s.store.Executions().ListByWorkflow(ctx, workflowID, page, limit)
}

// mapEngineStatus folds the engine status vocabulary into the local
// three-state model. Unknown statuses are treated as still running.
func mapEngineStatus(status string) models.ExecutionStatus {
	switch status {
	case "success":
		return models.ExecutionStatusSuccess
	case "error", "failed", "crashed":
		return models.ExecutionStatusFailed
	default:
		return models.ExecutionStatusRunning
	}
}
