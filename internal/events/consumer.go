package events

import (
	"context"
	"encoding/json"

	"github.com/macrotracker/intake-service/internal/intakes"
	"github.com/macrotracker/intake-service/internal/logger"
)

// UserDeletionConsumer erases a deleted user's intake data in bounded
// batches. A full batch means more rows may remain, so the consumer
// re-publishes the event instead of looping in place; each pass is a
// separate, acknowledged delivery and a crash between passes loses
// nothing.
type UserDeletionConsumer struct {
	intakes *intakes.Service
	bus     Bus
	log     *logger.Logger
}

func NewUserDeletionConsumer(intakeService *intakes.Service, bus Bus, log *logger.Logger) *UserDeletionConsumer {
	return &UserDeletionConsumer{intakes: intakeService, bus: bus, log: log}
}

// Handle processes one user-deleted payload. Malformed payloads are
// acknowledged: they can never succeed and would otherwise be
// redelivered forever.
func (c *UserDeletionConsumer) Handle(ctx context.Context, payload []byte) error {
	var event UserDeletedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		c.log.Error("dropping malformed user-deleted event", "payload", string(payload), "error", err)
		return nil
	}

	deleted, err := c.intakes.DeleteUserBatch(ctx, event.UserID)
	if err != nil {
		return err
	}
	c.log.Info("deleted intake batch for erased user", "user_id", event.UserID, "deleted", deleted)

	if deleted >= c.intakes.BatchSize() {
		if err := c.bus.PublishUserDeleted(ctx, event); err != nil {
			// Without the follow-up event the remaining rows would be
			// orphaned; keep this delivery pending instead.
			return err
		}
	}
	return nil
}
