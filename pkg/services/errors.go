// Package services implements the business rules of the publication
// pipeline: article and broadcast state machines, feed ingestion and
// the workflow execution bridge.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest     = errors.New("invalid request")
	ErrIllegalTransition  = errors.New("illegal status transition")
	ErrArticleNotApproved = errors.New("article must be approved before scheduling")
	ErrFactCheckDisabled  = errors.New("fact checking is disabled for this feed")
	ErrSummaryDisabled    = errors.New("AI summaries are disabled for this feed")
	ErrFeedInactive       = errors.New("feed is inactive")
	ErrWorkflowInactive   = errors.New("workflow is inactive")

	// Business Logic Conflicts (409 Conflict).
	ErrAlreadyScheduled  = errors.New("article is already scheduled")
	ErrDuplicateFeedURL  = errors.New("a feed with this URL already exists")
	ErrDuplicateWorkflow = errors.New("a workflow with this name already exists")

	// Upstream Failures (502 Bad Gateway).
	ErrExternalService = errors.New("external service failure")

	// Linkage errors.
	ErrWorkflowNotLinked = errors.New("workflow is not linked to the engine")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrArticleNotApproved) ||
		errors.Is(err, ErrFactCheckDisabled) ||
		errors.Is(err, ErrSummaryDisabled) ||
		errors.Is(err, ErrFeedInactive) ||
		errors.Is(err, ErrWorkflowInactive) ||
		errors.Is(err, ErrWorkflowNotLinked)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrAlreadyScheduled) ||
		errors.Is(err, ErrDuplicateFeedURL) ||
		errors.Is(err, ErrDuplicateWorkflow)
}

// IsExternalError checks if an error comes from an upstream provider and should return HTTP 502.
func IsExternalError(err error) bool {
	return errors.Is(err, ErrExternalService)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewExternalError wraps an upstream provider failure with context.
func NewExternalError(op, provider string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    "external_service_error",
		Message: fmt.Sprintf("%s: %v", provider, err),
		Err:     fmt.Errorf("%w: %s: %w", ErrExternalService, provider, err),
	}
}
