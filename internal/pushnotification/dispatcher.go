package pushnotification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kazz187/eisenhower/internal/eventbus"
)

// Dispatcher notifies users when a scheduling run finishes.
type Dispatcher struct {
	eventBus *eventbus.Bus
	sender   *Sender
}

func NewDispatcher(eventBus *eventbus.Bus, sender *Sender) *Dispatcher {
	return &Dispatcher{eventBus: eventBus, sender: sender}
}

func (d *Dispatcher) Start(ctx context.Context) {
	subID, ch := d.eventBus.Subscribe(256)
	defer d.eventBus.Unsubscribe(subID)

	slog.Info("push notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("push notification dispatcher stopped")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if payload := payloadFor(event); payload != nil {
				d.sender.SendToUser(ctx, event.UserID, payload)
			}
		}
	}
}

func payloadFor(event *eventbus.Event) *NotificationPayload {
	switch event.Type {
	case eventbus.ScheduleCompleted:
		body := "Your calendar was updated."
		if n := event.Metadata["scheduled"]; n != "" {
			body = fmt.Sprintf("%s task(s) were scheduled.", n)
		}
		return &NotificationPayload{Title: "Schedule updated", Body: body, URL: "/calendar", Tag: event.ID}
	case eventbus.ScheduleFailed:
		return &NotificationPayload{Title: "Scheduling failed", Body: "Automatic scheduling could not finish. Try again later.", URL: "/calendar", Tag: event.ID}
	}
	return nil
}
