package models

import "time"

// ExecutionStatus is the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning ExecutionStatus = "RUNNING"
	ExecutionStatusSuccess ExecutionStatus = "SUCCESS"
	ExecutionStatusFailed  ExecutionStatus = "FAILED"
)

// Workflow mirrors an automation defined on the external engine.
// Definition holds the nodes+connections graph that is pushed to the
// engine; EngineWorkflowID links the local record to it.
type Workflow struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"        validate:"required,min=3"`
	Description      string         `json:"description,omitempty"`
	Category         string         `json:"category,omitempty"`
	TriggerType      string         `json:"trigger_type" validate:"required"`
	TriggerConfig    map[string]any `json:"trigger_config,omitempty"`
	Definition       map[string]any `json:"definition"  validate:"required"`
	EngineWorkflowID string         `json:"engine_workflow_id,omitempty"`
	IsActive         bool           `json:"is_active"`
	CreatedBy        string         `json:"created_by,omitempty"`
	UpdatedBy        string         `json:"updated_by,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        *time.Time     `json:"deleted_at,omitempty"`
}

// Execution is one run of a workflow on the external engine.
// EngineExecutionID is the join key for status reconciliation; the local
// status never contradicts the last successfully fetched engine status
// (last-write-wins on sync).
type Execution struct {
	ID                string          `json:"id"`
	WorkflowID        string          `json:"workflow_id" validate:"required"`
	Status            ExecutionStatus `json:"status"`
	InputData         map[string]any  `json:"input_data,omitempty"`
	OutputData        map[string]any  `json:"output_data,omitempty"`
	Error             string          `json:"error,omitempty"`
	EngineExecutionID string          `json:"engine_execution_id,omitempty"`
	TriggeredBy       string          `json:"triggered_by,omitempty"`
	StartedAt         time.Time       `json:"started_at"`
	FinishedAt        *time.Time      `json:"finished_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
