package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/newscast/pkg/engine"
	"github.com/dukex/newscast/pkg/models"
	"github.com/dukex/newscast/pkg/persistence/memory"
)

// fakeEngine is an in-process automation engine API.
type fakeEngine struct {
	mu          sync.Mutex
	activations map[string]bool
	executions  map[string]engine.Execution
	nextStatus  string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		activations: map[string]bool{},
		executions:  map[string]engine.Execution{},
		nextStatus:  "running",
	}
}

func (f *fakeEngine) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/workflows", func(w http.ResponseWriter, r *http.Request) {
		var wf engine.Workflow
		_ = json.NewDecoder(r.Body).Decode(&wf)
		wf.ID = "eng-wf-1"
		_ = json.NewEncoder(w).Encode(wf)
	})

	mux.HandleFunc("PUT /api/v1/workflows/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /api/v1/workflows/{id}/activate", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.activations[r.PathValue("id")] = true
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /api/v1/workflows/{id}/deactivate", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.activations[r.PathValue("id")] = false
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /api/v1/workflows/{id}/execute", func(w http.ResponseWriter, r *http.Request) {
		exec := engine.Execution{
			ID:         "eng-exec-1",
			WorkflowID: r.PathValue("id"),
			Status:     "running",
		}

		f.mu.Lock()
		f.executions[exec.ID] = exec
		f.mu.Unlock()

		_ = json.NewEncoder(w).Encode(exec)
	})

	mux.HandleFunc("GET /api/v1/executions/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		exec, ok := f.executions[r.PathValue("id")]
		status := f.nextStatus
		f.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		exec.Status = status
		if status == "success" {
			exec.Data = map[string]any{"published": true}
		}

		_ = json.NewEncoder(w).Encode(exec)
	})

	return mux
}

func validDefinition() map[string]any {
	return map[string]any{
		"nodes": []any{
			map[string]any{"id": "trigger", "type": "schedule"},
			map[string]any{"id": "publish", "type": "http_request"},
		},
		"connections": map[string]any{
			"trigger": []any{"publish"},
		},
	}
}

func newWorkflowsService(t *testing.T) (*Workflows, *memory.Persistence, *fakeEngine) {
	t.Helper()

	fake := newFakeEngine()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	store := memory.NewPersistence()
	svc := NewWorkflows(store, engine.NewClient(server.URL, "test-key"), nil, testLogger())

	return svc, store, fake
}

func TestWorkflowsCreateRegistersOnEngine(t *testing.T) {
	svc, _, _ := newWorkflowsService(t)

	workflow, err := svc.Create(context.Background(), CreateWorkflowRequest{
		Name:        "publish-morning-digest",
		TriggerType: "schedule",
		Definition:  validDefinition(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, workflow.ID)
	assert.Equal(t, "eng-wf-1", workflow.EngineWorkflowID)
	assert.False(t, workflow.IsActive)
}

func TestWorkflowsCreateRejectsDuplicateName(t *testing.T) {
	svc, _, _ := newWorkflowsService(t)

	_, err := svc.Create(context.Background(), CreateWorkflowRequest{
		Name:        "publish-morning-digest",
		TriggerType: "schedule",
		Definition:  validDefinition(),
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateWorkflowRequest{
		Name:        "publish-morning-digest",
		TriggerType: "webhook",
		Definition:  validDefinition(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateWorkflow)
	assert.True(t, IsConflictError(err))
}

func TestWorkflowsCreateRejectsInvalidDefinition(t *testing.T) {
	svc, _, _ := newWorkflowsService(t)

	_, err := svc.Create(context.Background(), CreateWorkflowRequest{
		Name:        "broken-graph",
		TriggerType: "schedule",
		Definition:  map[string]any{"connections": map[string]any{}},
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.True(t, strings.Contains(err.Error(), "nodes"))
}

func TestWorkflowsActivateTogglesEngine(t *testing.T) {
	svc, _, fake := newWorkflowsService(t)

	workflow, err := svc.Create(context.Background(), CreateWorkflowRequest{
		Name:        "publish-morning-digest",
		TriggerType: "schedule",
		Definition:  validDefinition(),
	})
	require.NoError(t, err)

	activated, err := svc.Activate(context.Background(), workflow.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	fake.mu.Lock()
	assert.True(t, fake.activations["eng-wf-1"])
	fake.mu.Unlock()

	deactivated, err := svc.Deactivate(context.Background(), workflow.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)
}

func TestWorkflowsExecuteRequiresActive(t *testing.T) {
	svc, _, _ := newWorkflowsService(t)

	workflow, err := svc.Create(context.Background(), CreateWorkflowRequest{
		Name:        "publish-morning-digest",
		TriggerType: "schedule",
		Definition:  validDefinition(),
	})
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), workflow.ID, nil, "scheduler")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorkflowInactive)
}

func TestWorkflowsExecuteRequiresEngineLink(t *testing.T) {
	svc, store, _ := newWorkflowsService(t)

	workflow := &models.Workflow{
		Name:        "orphan-workflow",
		TriggerType: "manual",
		Definition:  validDefinition(),
		IsActive:    true,
	}
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	_, err := svc.Execute(context.Background(), workflow.ID, nil, "editor")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorkflowNotLinked)
}

func TestWorkflowsExecuteAndSync(t *testing.T) {
	svc, _, fake := newWorkflowsService(t)

	workflow, err := svc.Create(context.Background(), CreateWorkflowRequest{
		Name:        "publish-morning-digest",
		TriggerType: "schedule",
		Definition:  validDefinition(),
	})
	require.NoError(t, err)

	_, err = svc.Activate(context.Background(), workflow.ID)
	require.NoError(t, err)

	execution, err := svc.Execute(context.Background(), workflow.ID,
		map[string]any{"edition": "morning"}, "scheduler")
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)
	assert.Equal(t, "eng-exec-1", execution.EngineExecutionID)

	// Engine still running: local status untouched.
	synced, err := svc.SyncExecution(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, synced.Status)

	fake.mu.Lock()
	fake.nextStatus = "success"
	fake.mu.Unlock()

	synced, err = svc.SyncExecution(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusSuccess, synced.Status)
	assert.Equal(t, true, synced.OutputData["published"])
}

func TestWorkflowsSyncMapsFailureStatuses(t *testing.T) {
	assert.Equal(t, models.ExecutionStatusFailed, mapEngineStatus("error"))
	assert.Equal(t, models.ExecutionStatusFailed, mapEngineStatus("failed"))
	assert.Equal(t, models.ExecutionStatusFailed, mapEngineStatus("crashed"))
	assert.Equal(t, models.ExecutionStatusSuccess, mapEngineStatus("success"))
	assert.Equal(t, models.ExecutionStatusRunning, mapEngineStatus("waiting"))
	assert.Equal(t, models.ExecutionStatusRunning, mapEngineStatus("running"))
}

func TestWorkflowsListExecutions(t *testing.T) {
	svc, _, _ := newWorkflowsService(t)

	workflow, err := svc.Create(context.Background(), CreateWorkflowRequest{
		Name:        "publish-morning-digest",
		TriggerType: "schedule",
		Definition:  validDefinition(),
	})
	require.NoError(t, err)

	_, err = svc.Activate(context.Background(), workflow.ID)
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), workflow.ID, nil, "scheduler")
	require.NoError(t, err)

	page, err := svc.ListExecutions(context.Background(), workflow.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Total)
}
