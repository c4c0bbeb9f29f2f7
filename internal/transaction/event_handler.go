package transaction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/finance-dashboard/internal/core/events"
)

type EventHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewEventHandler(service *Service, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger,
	}
}

// HandleUserDeleted removes the account's transactions. It runs synchronously
// before the user row is dropped.
func (h *EventHandler) HandleUserDeleted(ctx context.Context, event events.Event) error {
	deletedEvent, ok := event.(*events.UserDeletedEvent)
	if !ok {
		h.logger.Error("invalid event type for user deleted handler", "event_type", event.EventType())
		return fmt.Errorf("expected UserDeletedEvent, got %T", event)
	}

	deleted, err := h.service.DeleteAllForUser(ctx, deletedEvent.UserID)
	if err != nil {
		h.logger.Error("failed to delete transactions of deleted user",
			"error", err,
			"user_id", deletedEvent.UserID,
			"event_id", deletedEvent.EventID())
		return err
	}

	h.logger.Info("transactions of deleted user removed",
		"user_id", deletedEvent.UserID,
		"deleted", deleted,
		"event_id", deletedEvent.EventID())
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeUserDeleted, h.HandleUserDeleted)

	h.logger.Info("transaction event handlers registered",
		"handlers", []string{events.EventTypeUserDeleted})
}
