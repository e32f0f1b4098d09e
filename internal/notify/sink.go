package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/HarmlessHarm/AoC-LeaderBot/internal/leaderboard"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/metrics"
)

// EventSink adapts a Notifier to the polling scheduler: it renders
// detected change events and hands them to the chat.
type EventSink struct {
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewEventSink(notifier Notifier, m *metrics.Metrics, logger *zap.Logger) *EventSink {
	return &EventSink{
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// DeliverChanges renders and sends the event list.
func (s *EventSink) DeliverChanges(ctx context.Context, chatID string, events []leaderboard.Event) error {
	messages := FormatChanges(events)
	if len(messages) == 0 {
		return nil
	}
	if err := s.notifier.SendMessages(ctx, chatID, messages); err != nil {
		s.metrics.ObserveDelivery("error")
		return err
	}
	s.metrics.ObserveDelivery("success")
	return nil
}

// DeliverText sends a plain message, used for one-off notices like a
// disabled task.
func (s *EventSink) DeliverText(ctx context.Context, chatID, text string) error {
	if err := s.notifier.SendMessage(ctx, chatID, text); err != nil {
		s.metrics.ObserveDelivery("error")
		return err
	}
	s.metrics.ObserveDelivery("success")
	return nil
}
