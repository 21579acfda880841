// Package notify delivers DashboardChanged events to subscribers: in-process
// SSE clients, an SQS queue and a Kafka topic.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"hubwatch/internal/types"
)

// Notifier delivers one DashboardChanged event. Delivery is fire-and-forget
// from the scheduler's point of view; errors are only logged.
type Notifier interface {
	Notify(ctx context.Context, ev types.DashboardChanged) error
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, ev types.DashboardChanged) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewDashboardChanged builds the event emitted at the end of a tick.
func NewDashboardChanged(at time.Time, changedHubs []string) types.DashboardChanged {
	return types.DashboardChanged{
		ID:          uuid.NewString(),
		Msg:         "updated",
		OccurredAt:  at.UTC(),
		ChangedHubs: changedHubs,
	}
}
