package services

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/maxaizer/vacancy-matcher/internal/events"
	"github.com/maxaizer/vacancy-matcher/internal/logger"
	log "github.com/sirupsen/logrus"
)

const activitySinkTimeout = 15 * time.Second

type ActivitySink interface {
	Record(ctx context.Context, activity entities.Activity) error
}

// ActivityNotifier publishes activity records on the event bus. Every sink receives them
// asynchronously; sink failures are logged and never reach the publisher.
type ActivityNotifier struct {
	bus EventBus.Bus
}

func NewActivityNotifier(bus EventBus.Bus, sinks ...ActivitySink) (*ActivityNotifier, error) {
	for _, sink := range sinks {
		if err := bus.SubscribeAsync(events.ActivityRecordedTopic, deliverTo(sink), false); err != nil {
			return nil, err
		}
	}
	return &ActivityNotifier{bus: bus}, nil
}

func deliverTo(sink ActivitySink) func(event events.ActivityRecorded) {
	return func(event events.ActivityRecorded) {
		ctx, cancel := context.WithTimeout(context.Background(), activitySinkTimeout)
		defer cancel()

		if err := sink.Record(ctx, event.Activity); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeActivity).
				Errorf("failed to record activity %q: %v", event.Activity.Title, err)
		}
	}
}

func (n *ActivityNotifier) Record(activity entities.Activity) {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	n.bus.Publish(events.ActivityRecordedTopic, events.ActivityRecorded{Activity: activity})
}

// Wait blocks until all sinks have handled the published records.
func (n *ActivityNotifier) Wait() {
	n.bus.WaitAsync()
}

// LogActivitySink writes activity records to the application log.
type LogActivitySink struct{}

func (LogActivitySink) Record(_ context.Context, activity entities.Activity) error {
	entry := log.WithFields(log.Fields{
		"activity_type":   activity.Type,
		"activity_status": activity.Status,
	})
	for key, value := range activity.Metadata {
		entry = entry.WithField(key, value)
	}
	entry.Infof("%s: %s", activity.Title, activity.Description)
	return nil
}
