package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/dukex/newscast/pkg/models"
	"github.com/dukex/newscast/pkg/persistence"
)

var executionColumns = []string{
	"id", "workflow_id", "engine_execution_id", "status", "input_data",
	"output_data", "error", "triggered_by", "started_at", "finished_at",
	"created_at", "updated_at",
}

// ExecutionRepository handles workflow execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// Save inserts or updates an execution record. Updates overwrite the
// stored status unconditionally; the engine is the source of truth.
func (r *ExecutionRepository) Save(ctx context.Context, execution *models.Execution) error {
	now := time.Now().UTC()

	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}

	execution.UpdatedAt = now

	if execution.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate execution ID: %w", err)
		}

		execution.ID = id.String()
	}

	inputJSON, err := marshalNullable(execution.InputData)
	if err != nil {
		return fmt.Errorf("failed to marshal input data: %w", err)
	}

	outputJSON, err := marshalNullable(execution.OutputData)
	if err != nil {
		return fmt.Errorf("failed to marshal output data: %w", err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, engine_execution_id, status,
			input_data, output_data, error, triggered_by, started_at,
			finished_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			engine_execution_id = EXCLUDED.engine_execution_id,
			status = EXCLUDED.status,
			input_data = EXCLUDED.input_data,
			output_data = EXCLUDED.output_data,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.EngineExecutionID,
		execution.Status,
		inputJSON,
		outputJSON,
		execution.Error,
		execution.TriggeredBy,
		execution.StartedAt,
		execution.FinishedAt,
		execution.CreatedAt,
		execution.UpdatedAt,
	)
	if err != nil {
		return translateError("save execution", err)
	}

	return nil
}

// GetByID returns an execution by its ID or persistence.ErrNotFound.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	query, args, err := psql.Select(executionColumns...).
		From("executions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build execution query: %w", err)
	}

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// ListByWorkflow returns a page of executions of one workflow, newest
// first.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, page, limit int) (*persistence.ListResult[models.Execution], error) {
	page, limit = persistence.NormalizePage(page, limit)

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM executions WHERE workflow_id = $1", workflowID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count executions: %w", err)
	}

	query, args, err := psql.Select(executionColumns...).
		From("executions").
		Where(sq.Eq{"workflow_id": workflowID}).
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build execution list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return &persistence.ListResult[models.Execution]{
		Items:      executions,
		Pagination: persistence.NewPagination(page, limit, total),
	}, nil
}

func marshalNullable(data map[string]any) (any, error) {
	if data == nil {
		return nil, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return raw, nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution  models.Execution
		inputJSON  []byte
		outputJSON []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.EngineExecutionID,
		&execution.Status,
		&inputJSON,
		&outputJSON,
		&execution.Error,
		&execution.TriggeredBy,
		&execution.StartedAt,
		&execution.FinishedAt,
		&execution.CreatedAt,
		&execution.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(inputJSON) > 0 {
		if err := json.Unmarshal(inputJSON, &execution.InputData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal input data: %w", err)
		}
	}

	if len(outputJSON) > 0 {
		if err := json.Unmarshal(outputJSON, &execution.OutputData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal output data: %w", err)
		}
	}

	return &execution, nil
}
