package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"freight/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationLoadAssigned      NotificationType = "LOAD_ASSIGNED"
	NotificationLoadStatusChanged NotificationType = "LOAD_STATUS_CHANGED"
)

// Notification represents a notification to be sent.
type Notification struct {
	ID          string
	Type        NotificationType
	RecipientID string // driver or user ID
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationSink delivers notifications over one channel.
type NotificationSink interface {
	Deliver(ctx context.Context, n Notification) error
}

// Notifier is the notification dispatcher consumed by the load lifecycle.
type Notifier interface {
	NotifyAssigned(ctx context.Context, loadID, driverID string) error
	NotifyStatusChanged(ctx context.Context, loadID string, oldStatus, newStatus domain.LoadStatus, actorID string) error
}

// NotificationService logs every notification and fans it out to the configured sinks.
type NotificationService struct {
	sinks []NotificationSink
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(sinks ...NotificationSink) *NotificationService {
	return &NotificationService{sinks: sinks}
}

// NotifyAssigned notifies a driver that a load has been assigned to them.
func (s *NotificationService) NotifyAssigned(ctx context.Context, loadID, driverID string) error {
	return s.send(ctx, Notification{
		Type:        NotificationLoadAssigned,
		RecipientID: driverID,
		Title:       "Load Assigned",
		Message:     fmt.Sprintf("Load %s has been assigned to you", loadID),
		Data: map[string]interface{}{
			"load_id":   loadID,
			"driver_id": driverID,
		},
	})
}

// NotifyStatusChanged notifies dispatch that a load moved to a new status.
func (s *NotificationService) NotifyStatusChanged(ctx context.Context, loadID string, oldStatus, newStatus domain.LoadStatus, actorID string) error {
	return s.send(ctx, Notification{
		Type:        NotificationLoadStatusChanged,
		RecipientID: actorID,
		Title:       "Load Status Changed",
		Message:     fmt.Sprintf("Load %s changed from %s to %s", loadID, oldStatus, newStatus),
		Data: map[string]interface{}{
			"load_id":    loadID,
			"old_status": oldStatus,
			"new_status": newStatus,
			"changed_by": actorID,
		},
	})
}

// send logs the notification and delivers it to every sink. A failing sink
// does not stop delivery to the others.
func (s *NotificationService) send(ctx context.Context, n Notification) error {
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()

	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Title=%s, Message=%s",
		n.Type, n.RecipientID, n.Title, n.Message)

	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Deliver(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
