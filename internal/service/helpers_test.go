package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight/internal/domain"
	"freight/internal/service"
)

const (
	orgA = "org-a"
	orgB = "org-b"
)

var (
	dispatcher = domain.Actor{UserID: "user-dispatch", OrganizationID: orgA, Role: domain.RoleDispatcher}
	accountant = domain.Actor{UserID: "user-acct", OrganizationID: orgA, Role: domain.RoleAccountant}
	admin      = domain.Actor{UserID: "user-admin", OrganizationID: orgA, Role: domain.RoleAdmin}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string {
	return &s
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func requireCode(t *testing.T, err error, code service.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, service.CodeOf(err), "error: %v", err)
}

// ──────────────────────────────────────────────
// RECORDING COLLABORATORS
// ──────────────────────────────────────────────

type assignedCall struct {
	LoadID   string
	DriverID string
}

type statusCall struct {
	LoadID    string
	OldStatus domain.LoadStatus
	NewStatus domain.LoadStatus
	ActorID   string
}

type recordingNotifier struct {
	mu       sync.Mutex
	assigned []assignedCall
	statuses []statusCall

	// Error injection
	AssignedError error
	StatusError   error
}

func (n *recordingNotifier) NotifyAssigned(ctx context.Context, loadID, driverID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assigned = append(n.assigned, assignedCall{loadID, driverID})
	return n.AssignedError
}

func (n *recordingNotifier) NotifyStatusChanged(ctx context.Context, loadID string, oldStatus, newStatus domain.LoadStatus, actorID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, statusCall{loadID, oldStatus, newStatus, actorID})
	return n.StatusError
}

func (n *recordingNotifier) Assigned() []assignedCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]assignedCall(nil), n.assigned...)
}

func (n *recordingNotifier) Statuses() []statusCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]statusCall(nil), n.statuses...)
}

type emittedEvent struct {
	Name    string
	Payload map[string]interface{}
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emittedEvent

	EmitError error
}

func (e *recordingEmitter) Emit(ctx context.Context, name string, payload map[string]interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emittedEvent{name, payload})
	return e.EmitError
}

func (e *recordingEmitter) Names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		names = append(names, ev.Name)
	}
	return names
}

type stubCompletion struct {
	mu    sync.Mutex
	calls []string

	Result *service.CompletionResult
	Err    error
}

func (c *stubCompletion) HandleCompletion(ctx context.Context, orgID, loadID string) (*service.CompletionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, loadID)
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Result != nil {
		return c.Result, nil
	}
	return &service.CompletionResult{Success: true}, nil
}

func (c *stubCompletion) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

var errCollaborator = errors.New("collaborator unavailable")
