package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/connector"
	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"go.uber.org/zap"
)

func TestOutboxServiceApproveRespectsDailyCap(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	store := map[string]*domain.Message{
		"m1": {ID: "m1", Status: domain.StatusDraft},
		"m2": {ID: "m2", Status: domain.StatusSent},
		"m3": {ID: "m3", Status: domain.StatusDraft},
		"m4": {ID: "m4", Status: domain.StatusDraft},
	}
	var saved, loaded []string
	messages := &fakeMessageRepo{
		countApprovedSinceFn: func(ctx context.Context, since time.Time) (int64, error) {
			if want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC); !since.Equal(want) {
				t.Errorf("since = %v, want %v", since, want)
			}
			return 1, nil
		},
		getByIDFn: func(ctx context.Context, id string) (*domain.Message, error) {
			loaded = append(loaded, id)
			m, ok := store[id]
			if !ok {
				return nil, domain.ErrNotFound
			}
			copied := *m
			return &copied, nil
		},
		saveFn: func(ctx context.Context, m *domain.Message) error {
			if m.Status != domain.StatusApproved {
				t.Errorf("saved status = %s, want approved", m.Status)
			}
			if m.ApprovedAt == nil || !m.ApprovedAt.Equal(fixed) {
				t.Errorf("approved_at = %v, want %v", m.ApprovedAt, fixed)
			}
			saved = append(saved, m.ID)
			return nil
		},
	}

	svc := NewOutboxService(messages, &fakeAttemptRepo{}, &fakeEventLogger{}, &fakeConnector{}, nil, zap.NewNop())
	svc.now = func() time.Time { return fixed }

	result, err := svc.Approve(context.Background(), []string{"m1", "missing", "m2", "m3", "m4"}, domain.Some(4))
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	if want := []string{"m1"}; !reflect.DeepEqual(result.Approved, want) {
		t.Fatalf("approved = %v, want %v", result.Approved, want)
	}
	if want := []string{"missing", "m2", "m3", "m4"}; !reflect.DeepEqual(result.Skipped, want) {
		t.Fatalf("skipped = %v, want %v", result.Skipped, want)
	}
	if !reflect.DeepEqual(saved, result.Approved) {
		t.Fatalf("saved = %v, want %v", saved, result.Approved)
	}
	if want := []string{"m1", "missing", "m2"}; !reflect.DeepEqual(loaded, want) {
		t.Fatalf("loaded = %v, want %v", loaded, want)
	}
}

func TestOutboxServiceApproveCapExhausted(t *testing.T) {
	t.Parallel()

	messages := &fakeMessageRepo{
		countApprovedSinceFn: func(ctx context.Context, since time.Time) (int64, error) {
			return 5, nil
		},
		getByIDFn: func(ctx context.Context, id string) (*domain.Message, error) {
			t.Fatal("GetByID should not be called when the cap is used up")
			return nil, nil
		},
	}

	svc := NewOutboxService(messages, &fakeAttemptRepo{}, nil, &fakeConnector{}, nil, nil)
	result, err := svc.Approve(context.Background(), []string{"m1", "m2"}, domain.Some(5))
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if len(result.Approved) != 0 || len(result.Skipped) != 2 {
		t.Fatalf("result = %+v, want all skipped", result)
	}
}

func TestOutboxServiceApproveWithoutCap(t *testing.T) {
	t.Parallel()

	messages := &fakeMessageRepo{
		countApprovedSinceFn: func(ctx context.Context, since time.Time) (int64, error) {
			t.Fatal("approvals should not be counted without a cap")
			return 0, nil
		},
		getByIDFn: func(ctx context.Context, id string) (*domain.Message, error) {
			return &domain.Message{ID: id, Status: domain.StatusDraft}, nil
		},
	}

	svc := NewOutboxService(messages, &fakeAttemptRepo{}, nil, &fakeConnector{}, nil, nil)
	result, err := svc.Approve(context.Background(), []string{"m1", "m2", "m3"}, domain.None[int]())
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if len(result.Approved) != 3 {
		t.Fatalf("approved = %v, want 3", result.Approved)
	}
}

func TestOutboxServiceSendApprovedOutcomes(t *testing.T) {
	t.Parallel()

	pending := []domain.Message{
		{ID: "ok", ContactID: "c1", Channel: domain.ChannelGmail, Status: domain.StatusApproved},
		{ID: "busy", ContactID: "c2", Channel: domain.ChannelGmail, Status: domain.StatusQueued},
		{ID: "bad", ContactID: "c3", Channel: domain.ChannelGmail, Status: domain.StatusApproved},
	}

	savedStatus := make(map[string]domain.Status)
	var savedBadError string
	messages := &fakeMessageRepo{
		listByStatusFn: func(ctx context.Context, statuses []domain.Status, limit int) ([]domain.Message, error) {
			if want := []domain.Status{domain.StatusApproved, domain.StatusQueued}; !reflect.DeepEqual(statuses, want) {
				t.Errorf("statuses = %v, want %v", statuses, want)
			}
			if limit != 10 {
				t.Errorf("limit = %d, want 10", limit)
			}
			return pending, nil
		},
		saveFn: func(ctx context.Context, m *domain.Message) error {
			savedStatus[m.ID] = m.Status
			if m.ID == "bad" {
				savedBadError = m.MetaString(domain.MetaError)
			}
			return nil
		},
	}

	var attempts []domain.SendAttempt
	attemptRepo := &fakeAttemptRepo{
		countByMessageIDFn: func(ctx context.Context, messageID string) (int64, error) {
			if messageID == "busy" {
				return 2, nil
			}
			return 0, nil
		},
		createFn: func(ctx context.Context, a *domain.SendAttempt) error {
			attempts = append(attempts, *a)
			return nil
		},
	}

	conn := &fakeConnector{
		sendFn: func(ctx context.Context, msg domain.Message) (domain.Message, error) {
			switch msg.ID {
			case "busy":
				return msg, &connector.ConnectorError{StatusCode: 429, Transient: true}
			case "bad":
				return msg, &connector.ConnectorError{StatusCode: 400, Message: "rejected"}
			}
			msg.MarkSent(time.Unix(1_700_000_000, 0))
			return msg, nil
		},
	}

	var events []domain.Event
	logger := &fakeEventLogger{
		logFn: func(ctx context.Context, event *domain.Event) error {
			events = append(events, *event)
			return nil
		},
	}

	var limiterCalls int
	limiter := &fakeRateLimiter{
		waitFn: func(ctx context.Context, tenant, channel string) error {
			limiterCalls++
			if tenant != "acme" || channel != "gmail" {
				t.Errorf("limiter key = %s/%s, want acme/gmail", tenant, channel)
			}
			return nil
		},
	}

	svc := NewOutboxService(messages, attemptRepo, logger, conn, limiter, zap.NewNop())
	result, err := svc.SendApproved(context.Background(), "acme", 10)
	if err != nil {
		t.Fatalf("SendApproved() error = %v", err)
	}

	if result != (SendResult{Sent: 1, Failed: 1, Requeued: 1}) {
		t.Fatalf("result = %+v", result)
	}
	if limiterCalls != 3 {
		t.Fatalf("limiter calls = %d, want 3", limiterCalls)
	}

	wantStatus := map[string]domain.Status{
		"ok":   domain.StatusSent,
		"busy": domain.StatusQueued,
		"bad":  domain.StatusFailed,
	}
	if !reflect.DeepEqual(savedStatus, wantStatus) {
		t.Fatalf("saved statuses = %v, want %v", savedStatus, wantStatus)
	}
	if savedBadError == "" {
		t.Fatal("terminal failure should record the error meta")
	}

	if len(attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(attempts))
	}
	if attempts[1].AttemptNumber != 3 || !attempts[1].Transient || attempts[1].Error == nil {
		t.Fatalf("transient attempt = %+v", attempts[1])
	}
	if attempts[2].Transient {
		t.Fatal("terminal attempt should not be transient")
	}

	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Kind != domain.EventSent || events[0].MessageID != "ok" || events[0].ContactID != "c1" {
		t.Fatalf("sent event = %+v", events[0])
	}
	if events[1].Kind != domain.EventRateLimited || events[1].MessageID != "busy" {
		t.Fatalf("rate limited event = %+v", events[1])
	}
}

func TestOutboxServiceSendApprovedRejectedStatus(t *testing.T) {
	t.Parallel()

	messages := &fakeMessageRepo{
		listByStatusFn: func(ctx context.Context, statuses []domain.Status, limit int) ([]domain.Message, error) {
			return []domain.Message{{ID: "m1", Status: domain.StatusApproved}}, nil
		},
	}
	conn := &fakeConnector{
		sendFn: func(ctx context.Context, msg domain.Message) (domain.Message, error) {
			msg.Status = domain.StatusSent
			msg.RejectSend()
			return msg, nil
		},
	}
	logger := &fakeEventLogger{
		logFn: func(ctx context.Context, event *domain.Event) error {
			t.Fatal("no event should be logged for a rejected send")
			return nil
		},
	}

	svc := NewOutboxService(messages, &fakeAttemptRepo{}, logger, conn, nil, nil)
	result, err := svc.SendApproved(context.Background(), "acme", 0)
	if err != nil {
		t.Fatalf("SendApproved() error = %v", err)
	}
	if result.Failed != 1 || result.Sent != 0 {
		t.Fatalf("result = %+v, want one failure", result)
	}
}

func TestOutboxServiceSendApprovedRateLimiterError(t *testing.T) {
	t.Parallel()

	messages := &fakeMessageRepo{
		listByStatusFn: func(ctx context.Context, statuses []domain.Status, limit int) ([]domain.Message, error) {
			return []domain.Message{{ID: "m1", Status: domain.StatusApproved}}, nil
		},
	}
	conn := &fakeConnector{
		sendFn: func(ctx context.Context, msg domain.Message) (domain.Message, error) {
			t.Fatal("connector should not be called when the limiter fails")
			return msg, nil
		},
	}
	limiter := &fakeRateLimiter{
		waitFn: func(ctx context.Context, tenant, channel string) error {
			return context.Canceled
		},
	}

	svc := NewOutboxService(messages, &fakeAttemptRepo{}, nil, conn, limiter, nil)
	if _, err := svc.SendApproved(context.Background(), "acme", 5); !errors.Is(err, context.Canceled) {
		t.Fatalf("SendApproved() error = %v, want context.Canceled", err)
	}
}
