package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
)

func metricsFixture() (*fakeMessageRepo, *fakeEventRepo, *fakeVariantStatRepo) {
	messages := &fakeMessageRepo{
		countByStatusFn: func(ctx context.Context, status domain.Status) (int64, error) {
			switch status {
			case domain.StatusDraft:
				return 3, nil
			case domain.StatusSent:
				return 8, nil
			}
			return 0, nil
		},
	}
	events := &fakeEventRepo{
		countByKindFn: func(ctx context.Context, kind domain.EventKind) (int64, error) {
			switch kind {
			case domain.EventReplied:
				return 2, nil
			case domain.EventMeeting:
				return 1, nil
			}
			return 0, nil
		},
	}
	stats := &fakeVariantStatRepo{
		listFn: func(ctx context.Context) ([]domain.VariantStat, error) {
			return []domain.VariantStat{
				{VariantSet: "baseline", VariantID: "A", Sent: 4, Replies: 1, Meetings: 1},
				{VariantSet: "baseline", VariantID: "B"},
			}, nil
		},
	}
	return messages, events, stats
}

func TestMetricsServiceCompute(t *testing.T) {
	t.Parallel()

	messages, events, stats := metricsFixture()
	svc := NewMetricsService(messages, events, stats, nil)
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	got, err := svc.Compute(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if got.EmailsDrafted != 3 || got.EmailsSent != 8 || got.Replies != 2 || got.Meetings != 1 {
		t.Fatalf("Compute() counts = %+v", got)
	}
	if got.ReplyRate != 0.25 {
		t.Fatalf("ReplyRate = %v, want 0.25", got.ReplyRate)
	}
	if !got.GeneratedAt.Equal(now) {
		t.Fatalf("GeneratedAt = %v, want %v", got.GeneratedAt, now)
	}
	if len(got.Variants) != 2 {
		t.Fatalf("variants = %d, want 2", len(got.Variants))
	}
	if got.Variants[0].ReplyRate != 0.25 || got.Variants[0].ConversionRate != 0.25 {
		t.Fatalf("variant A = %+v", got.Variants[0])
	}
	if got.Variants[1].ReplyRate != 0 {
		t.Fatalf("variant B reply rate = %v, want 0", got.Variants[1].ReplyRate)
	}
}

func TestMetricsServiceComputeEmptyTenant(t *testing.T) {
	t.Parallel()

	svc := NewMetricsService(&fakeMessageRepo{}, &fakeEventRepo{}, &fakeVariantStatRepo{}, nil)
	got, err := svc.Compute(context.Background(), "empty")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if got.ReplyRate != 0 {
		t.Fatalf("ReplyRate = %v, want 0", got.ReplyRate)
	}
	if got.Variants == nil {
		t.Fatal("Variants = nil, want empty slice")
	}
}

func TestMetricsServiceComputeErrors(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("db closed")
	tests := []struct {
		name     string
		messages *fakeMessageRepo
		events   *fakeEventRepo
		stats    *fakeVariantStatRepo
	}{
		{
			name: "message count",
			messages: &fakeMessageRepo{countByStatusFn: func(ctx context.Context, status domain.Status) (int64, error) {
				return 0, storeErr
			}},
			events: &fakeEventRepo{},
			stats:  &fakeVariantStatRepo{},
		},
		{
			name:     "event count",
			messages: &fakeMessageRepo{},
			events: &fakeEventRepo{countByKindFn: func(ctx context.Context, kind domain.EventKind) (int64, error) {
				return 0, storeErr
			}},
			stats: &fakeVariantStatRepo{},
		},
		{
			name:     "variant stats",
			messages: &fakeMessageRepo{},
			events:   &fakeEventRepo{},
			stats: &fakeVariantStatRepo{listFn: func(ctx context.Context) ([]domain.VariantStat, error) {
				return nil, storeErr
			}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := NewMetricsService(tt.messages, tt.events, tt.stats, nil)
			if _, err := svc.Compute(context.Background(), "acme"); !errors.Is(err, storeErr) {
				t.Fatalf("Compute() error = %v, want %v", err, storeErr)
			}
		})
	}
}

func TestMetricsServiceWriteReport(t *testing.T) {
	t.Parallel()

	messages, events, stats := metricsFixture()
	svc := NewMetricsService(messages, events, stats, nil)
	dir := filepath.Join(t.TempDir(), "acme")

	if _, err := svc.WriteReport(context.Background(), "acme", dir); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, MetricsReportFile))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var report map[string]any
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"emails_drafted", "emails_sent", "replies", "meetings", "reply_rate", "variant_perf", "ts_utc"} {
		if _, ok := report[key]; !ok {
			t.Fatalf("report missing %q: %s", key, data)
		}
	}
	if report["emails_sent"] != float64(8) {
		t.Fatalf("emails_sent = %v, want 8", report["emails_sent"])
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dir entries = %d, want only the report", len(entries))
	}
}
