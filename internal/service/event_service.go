package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/outreach-engine/internal/connector"
	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"github.com/kursadbilgin/outreach-engine/internal/observability"
	"github.com/kursadbilgin/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

type EventService struct {
	events   repository.EventRepository
	messages repository.MessageRepository
	recorder EventRecorder
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewEventService(
	events repository.EventRepository,
	messages repository.MessageRepository,
	recorder EventRecorder,
	logger *zap.Logger,
) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{
		events:   events,
		messages: messages,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *EventService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Log appends the event and then updates the counters of the variant the
// referenced message was drafted from. The counter update is best effort:
// its failures are logged and never undo the append.
func (s *EventService) Log(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return fmt.Errorf("%w: event is required", domain.ErrValidation)
	}
	if !event.Kind.IsValid() {
		return fmt.Errorf("%w: invalid event kind %q", domain.ErrValidation, event.Kind)
	}
	if strings.TrimSpace(event.ID) == "" {
		event.ID = uuid.NewString()
	}
	if event.TS.IsZero() {
		event.TS = s.now().UTC()
	}

	if err := s.events.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to store event: %w", err)
	}
	s.metrics.IncEvent(event.Kind.String())

	if strings.TrimSpace(event.MessageID) == "" {
		return nil
	}

	msg, err := s.messages.GetByID(ctx, event.MessageID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("failed to load message for event",
				zap.String("eventId", event.ID),
				zap.String("messageId", event.MessageID),
				zap.Error(err),
			)
		}
		return nil
	}

	if _, err := s.recorder.RecordMessage(ctx, msg, event.Kind.String()); err != nil {
		s.logger.Warn("failed to update variant stats",
			zap.String("eventId", event.ID),
			zap.String("messageId", event.MessageID),
			zap.Error(err),
		)
	}
	return nil
}

// SyncReplies stores replies received after the last replied event and logs
// a replied event for each of them. It returns the number of new replies.
func (s *EventService) SyncReplies(ctx context.Context, clientSlug string, conn connector.Connector) (int, error) {
	last, err := s.events.LastTS(ctx, domain.EventReplied)
	if err != nil {
		return 0, fmt.Errorf("failed to read last reply time: %w", err)
	}
	since := time.Unix(0, 0).UTC()
	if last != nil {
		since = last.UTC()
	}

	replies, err := conn.ListReplies(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("failed to list replies: %w", err)
	}

	synced := 0
	for i := range replies {
		reply := replies[i]
		if last != nil && !reply.TS.After(since) {
			continue
		}

		if reply.ID != "" {
			reply.SetMeta(connector.MetaProviderMessageID, reply.ID)
		}
		reply.ID = uuid.NewString()
		reply.ClientSlug = clientSlug
		reply.Role = domain.RoleUser
		if reply.Status == "" {
			reply.Status = domain.StatusSent
		}
		if err := s.messages.Create(ctx, &reply); err != nil {
			return synced, fmt.Errorf("failed to store reply: %w", err)
		}

		event := &domain.Event{
			ClientSlug: clientSlug,
			Kind:       domain.EventReplied,
			ContactID:  reply.ContactID,
			MessageID:  reply.MetaString(domain.MetaInReplyTo),
			TS:         reply.TS,
		}
		if err := s.Log(ctx, event); err != nil {
			return synced, err
		}
		synced++
	}

	s.logger.Info("replies synced",
		zap.String("client", clientSlug),
		zap.Int("replies", synced),
	)
	return synced, nil
}
