package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/refund-claim-service/internal/events"
)

// StartAuditWorker subscribes to case lifecycle events and writes them to
// the structured log, giving operators a trail of pipeline activity.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	audit := logger.Named("audit")

	log := func(event events.Event) {
		audit.Info(string(event.Type),
			zap.String("event_id", event.ID),
			zap.String("case_id", event.CaseID),
			zap.String("user_id", event.UserID),
			zap.Any("payload", event.Payload),
		)
	}

	for _, eventType := range []events.EventType{
		events.EventCaseCreated,
		events.EventCaseDeleted,
		events.EventStageCompleted,
		events.EventLetterGenerated,
	} {
		dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			log(event)
			return nil
		})
	}

	dispatcher.Subscribe(events.EventStageFailed, func(_ context.Context, event events.Event) error {
		audit.Warn(string(event.Type),
			zap.String("event_id", event.ID),
			zap.String("case_id", event.CaseID),
			zap.String("user_id", event.UserID),
			zap.Any("payload", event.Payload),
		)
		return nil
	})
}
