package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/outreach-engine/internal/connector"
	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"github.com/kursadbilgin/outreach-engine/internal/observability"
	"github.com/kursadbilgin/outreach-engine/internal/ratelimit"
	"github.com/kursadbilgin/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

const defaultSendLimit = 50

type OutboxService struct {
	messages    repository.MessageRepository
	attempts    repository.AttemptRepository
	events      EventLogger
	connector   connector.Connector
	rateLimiter ratelimit.RateLimiter
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// ApproveResult lists the ids that moved to approved and those left as is.
type ApproveResult struct {
	Approved []string
	Skipped  []string
}

// SendResult counts the outcome of one send pass.
type SendResult struct {
	Sent     int
	Failed   int
	Requeued int
}

func NewOutboxService(
	messages repository.MessageRepository,
	attempts repository.AttemptRepository,
	events EventLogger,
	conn connector.Connector,
	rateLimiter ratelimit.RateLimiter,
	logger *zap.Logger,
) *OutboxService {
	if rateLimiter == nil {
		rateLimiter = ratelimit.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxService{
		messages:    messages,
		attempts:    attempts,
		events:      events,
		connector:   conn,
		rateLimiter: rateLimiter,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *OutboxService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Approve moves drafts to approved in request order. With a daily approval
// cap only the first cap-minus-approved-today ids are considered; the rest
// are skipped untouched. Unknown ids and non-draft messages inside that
// window still use a slot and are skipped without an error. An absent cap
// approves every draft.
func (s *OutboxService) Approve(ctx context.Context, ids []string, approvalCap domain.Optional[int]) (ApproveResult, error) {
	result := ApproveResult{Approved: []string{}, Skipped: []string{}}
	now := s.now().UTC()

	window := len(ids)
	if capValue, ok := approvalCap.Get(); ok {
		approvedToday, err := s.messages.CountApprovedSince(ctx, startOfDayUTC(now))
		if err != nil {
			return result, fmt.Errorf("failed to count approvals: %w", err)
		}
		window = min(window, max(capValue-int(approvedToday), 0))
	}

	for i, id := range ids {
		if i >= window {
			result.Skipped = append(result.Skipped, id)
			continue
		}

		msg, err := s.messages.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			return result, fmt.Errorf("failed to load message %s: %w", id, err)
		}
		if msg.Status != domain.StatusDraft {
			result.Skipped = append(result.Skipped, id)
			continue
		}

		approvedAt := now
		msg.Status = domain.StatusApproved
		msg.ApprovedAt = &approvedAt
		if err := s.messages.Save(ctx, msg); err != nil {
			return result, fmt.Errorf("failed to approve message %s: %w", id, err)
		}
		result.Approved = append(result.Approved, id)
	}

	s.logger.Info("messages approved",
		zap.Int("requested", len(ids)),
		zap.Int("approved", len(result.Approved)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

// SendApproved sends up to limit approved or queued messages. Transient
// connector failures put the message back in the queue; terminal failures
// mark it failed.
func (s *OutboxService) SendApproved(ctx context.Context, clientSlug string, limit int) (SendResult, error) {
	var result SendResult
	if limit <= 0 {
		limit = defaultSendLimit
	}

	pending, err := s.messages.ListByStatus(ctx, []domain.Status{domain.StatusApproved, domain.StatusQueued}, limit)
	if err != nil {
		return result, fmt.Errorf("failed to list pending messages: %w", err)
	}

	for i := range pending {
		outcome, err := s.sendOne(ctx, clientSlug, pending[i])
		if err != nil {
			return result, err
		}
		switch outcome {
		case domain.StatusSent:
			result.Sent++
		case domain.StatusQueued:
			result.Requeued++
		default:
			result.Failed++
		}
	}

	s.logger.Info("send pass completed",
		zap.String("client", clientSlug),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("requeued", result.Requeued),
	)
	return result, nil
}

func (s *OutboxService) sendOne(ctx context.Context, clientSlug string, msg domain.Message) (domain.Status, error) {
	channel := msg.Channel.String()
	if err := s.rateLimiter.Wait(ctx, clientSlug, channel); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	previous, err := s.attempts.CountByMessageID(ctx, msg.ID)
	if err != nil {
		return "", fmt.Errorf("failed to count attempts: %w", err)
	}

	sendStart := s.now()
	sent, sendErr := s.connector.Send(ctx, msg)
	s.metrics.ObserveSendDuration(channel, s.now().Sub(sendStart))

	if err := s.recordAttempt(ctx, msg.ID, int(previous)+1, sendErr); err != nil {
		return "", fmt.Errorf("failed to record attempt: %w", err)
	}

	if sendErr == nil {
		if err := s.messages.Save(ctx, &sent); err != nil {
			return "", fmt.Errorf("failed to save message %s: %w", msg.ID, err)
		}
		if sent.Status != domain.StatusSent {
			s.metrics.IncFailed(clientSlug, sent.MetaString(domain.MetaError))
			return sent.Status, nil
		}
		s.metrics.IncSent(clientSlug, channel)
		s.logEvent(ctx, clientSlug, domain.EventSent, &sent, nil)
		return domain.StatusSent, nil
	}

	if connector.IsTransient(sendErr) {
		msg.Status = domain.StatusQueued
		if err := s.messages.Save(ctx, &msg); err != nil {
			return "", fmt.Errorf("failed to requeue message %s: %w", msg.ID, err)
		}
		s.metrics.IncRateLimited(clientSlug)
		s.logEvent(ctx, clientSlug, domain.EventRateLimited, &msg, map[string]any{domain.MetaError: sendErr.Error()})
		s.logger.Warn("send deferred",
			zap.String("messageId", msg.ID),
			zap.Error(sendErr),
		)
		return domain.StatusQueued, nil
	}

	msg.Status = domain.StatusFailed
	msg.SetMeta(domain.MetaError, sendErr.Error())
	if err := s.messages.Save(ctx, &msg); err != nil {
		return "", fmt.Errorf("failed to mark message %s failed: %w", msg.ID, err)
	}
	s.metrics.IncFailed(clientSlug, "terminal_error")
	s.logger.Error("send failed",
		zap.String("messageId", msg.ID),
		zap.Error(sendErr),
	)
	return domain.StatusFailed, nil
}

func (s *OutboxService) logEvent(ctx context.Context, clientSlug string, kind domain.EventKind, msg *domain.Message, meta map[string]any) {
	if s.events == nil {
		return
	}
	event := &domain.Event{
		ClientSlug: clientSlug,
		Kind:       kind,
		ContactID:  msg.ContactID,
		MessageID:  msg.ID,
		TS:         s.now().UTC(),
		Meta:       meta,
	}
	if err := s.events.Log(ctx, event); err != nil {
		s.logger.Warn("failed to log send event",
			zap.String("messageId", msg.ID),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
	}
}

func (s *OutboxService) recordAttempt(ctx context.Context, messageID string, attemptNumber int, sendErr error) error {
	var attemptErr *string
	if sendErr != nil {
		value := sendErr.Error()
		attemptErr = &value
	}

	attempt := &domain.SendAttempt{
		ID:            uuid.NewString(),
		MessageID:     messageID,
		AttemptNumber: attemptNumber,
		Transient:     connector.IsTransient(sendErr),
		Error:         attemptErr,
		CreatedAt:     s.now().UTC(),
	}
	return s.attempts.Create(ctx, attempt)
}
