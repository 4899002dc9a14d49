package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight/internal/domain"
	"freight/internal/service"
)

type recordingSink struct {
	mu   sync.Mutex
	sent []service.Notification
	err  error
}

func (s *recordingSink) Deliver(ctx context.Context, n service.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return s.err
}

func TestNotificationService_FansOutToSinks(t *testing.T) {
	t.Parallel()
	first, second := &recordingSink{}, &recordingSink{}
	svc := service.NewNotificationService(first, second)

	require.NoError(t, svc.NotifyAssigned(context.Background(), "L1", "D1"))

	for _, sink := range []*recordingSink{first, second} {
		require.Len(t, sink.sent, 1)
		n := sink.sent[0]
		assert.Equal(t, service.NotificationLoadAssigned, n.Type)
		assert.Equal(t, "D1", n.RecipientID)
		assert.Equal(t, "L1", n.Data["load_id"])
		assert.NotEmpty(t, n.ID)
		assert.False(t, n.CreatedAt.IsZero())
	}
}

func TestNotificationService_FailingSinkDoesNotStopOthers(t *testing.T) {
	t.Parallel()
	failing := &recordingSink{err: errors.New("telegram down")}
	healthy := &recordingSink{}
	svc := service.NewNotificationService(failing, healthy)

	err := svc.NotifyStatusChanged(context.Background(), "L1", domain.LoadStatusAssigned, domain.LoadStatusDelivered, "user-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram down")
	require.Len(t, healthy.sent, 1)
	assert.Equal(t, service.NotificationLoadStatusChanged, healthy.sent[0].Type)
	assert.Equal(t, domain.LoadStatusDelivered, healthy.sent[0].Data["new_status"])
}

func TestNotificationService_NoSinksOnlyLogs(t *testing.T) {
	t.Parallel()
	svc := service.NewNotificationService()
	assert.NoError(t, svc.NotifyAssigned(context.Background(), "L1", "D1"))
}
