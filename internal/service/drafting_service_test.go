package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"github.com/kursadbilgin/outreach-engine/internal/learning"
	"go.uber.org/zap"
)

func latestPlan(targets ...string) *fakePlanRepo {
	return &fakePlanRepo{
		latestFn: func(ctx context.Context, clientSlug string) (*domain.OutreachPlan, error) {
			return &domain.OutreachPlan{ClientSlug: clientSlug, Targets: targets}, nil
		},
	}
}

func TestDraftingServiceDraftAttributesVariant(t *testing.T) {
	t.Parallel()

	var stored []domain.Message
	messages := &fakeMessageRepo{
		createFn: func(ctx context.Context, m *domain.Message) error {
			stored = append(stored, *m)
			return nil
		},
	}
	chooser := &fakeChooser{
		chooseFn: func(ctx context.Context, variants []domain.Variant, variantSet string, epsilon float64) (*learning.Choice, error) {
			if variantSet != "spring" {
				t.Errorf("variantSet = %q, want spring", variantSet)
			}
			if epsilon != 0.2 {
				t.Errorf("epsilon = %v, want 0.2", epsilon)
			}
			return &learning.Choice{Variant: variants[1]}, nil
		},
	}

	svc := NewDraftingService(latestPlan("2", "1", "ghost"), messages, chooser, &fakeConnector{}, zap.NewNop())

	c1 := contact("1", "a@x.com", 1)
	c1.FirstName = domain.Some("Ada")
	drafted, err := svc.Draft(context.Background(), DraftInput{
		ClientSlug: "acme",
		Contacts:   []domain.Contact{c1, contact("2", "b@x.com", 2)},
		Variants: []domain.Variant{
			{ID: "A", Name: "Plain", SubjectTemplate: "Hello", BodyTemplate: "Body"},
			{ID: "B", Name: "Named", SubjectTemplate: "Hi {first_name}", BodyTemplate: "Dear {first_name}"},
		},
		VariantSet: "spring",
		Epsilon:    0.2,
	})
	if err != nil {
		t.Fatalf("Draft() error = %v", err)
	}
	if len(drafted) != 2 || len(stored) != 2 {
		t.Fatalf("drafted = %d, stored = %d, want 2", len(drafted), len(stored))
	}

	first := stored[0]
	if first.ContactID != "2" || first.ClientSlug != "acme" {
		t.Fatalf("first draft = %+v, want contact 2 of acme", first)
	}
	if first.MetaString(domain.MetaVariantID) != "B" || first.MetaString(domain.MetaVariantSet) != "spring" {
		t.Fatalf("attribution = %v", first.Meta)
	}
	if first.MetaString(domain.MetaTo) != "b@x.com" {
		t.Fatalf("to = %q, want b@x.com", first.MetaString(domain.MetaTo))
	}
	if first.Subject != "Named" || first.MetaString(domain.MetaFallback) != "subject,body" {
		t.Fatalf("contact without first name should fall back, got subject %q meta %v", first.Subject, first.Meta)
	}

	second := stored[1]
	if second.Subject != "Hi Ada" || second.Body != "Dear Ada" {
		t.Fatalf("second draft = %q / %q", second.Subject, second.Body)
	}
	if _, ok := second.Meta[domain.MetaFallback]; ok {
		t.Fatal("rendered draft should not carry fallback meta")
	}
}

func TestDraftingServiceDraftWithoutVariantsUsesDefaultRenderer(t *testing.T) {
	t.Parallel()

	var stored domain.Message
	messages := &fakeMessageRepo{
		createFn: func(ctx context.Context, m *domain.Message) error {
			stored = *m
			return nil
		},
	}
	svc := NewDraftingService(latestPlan("1"), messages, learning.NewSelector(&fakeVariantStatRepo{}, nil), &fakeConnector{}, nil)

	_, err := svc.Draft(context.Background(), DraftInput{
		ClientSlug: "acme",
		Contacts:   []domain.Contact{contact("1", "a@x.com", 1)},
		BrandVoice: "Friendly, direct",
		Offer:      "Free audit",
	})
	if err != nil {
		t.Fatalf("Draft() error = %v", err)
	}

	if stored.Subject != "Friendly for a@x.com" {
		t.Fatalf("subject = %q", stored.Subject)
	}
	if !strings.Contains(stored.Body, "Free audit") {
		t.Fatalf("body = %q, want offer", stored.Body)
	}
	if _, _, ok := stored.Attribution(); ok {
		t.Fatal("default-rendered draft must not carry attribution")
	}
}

func TestDraftingServiceDraftErrors(t *testing.T) {
	t.Parallel()

	chooseErr := errors.New("stats unavailable")

	tests := []struct {
		name    string
		plans   *fakePlanRepo
		chooser *fakeChooser
		wantErr error
	}{
		{
			name:    "no plan",
			plans:   &fakePlanRepo{},
			chooser: &fakeChooser{},
			wantErr: domain.ErrNotFound,
		},
		{
			name:  "selector failure",
			plans: latestPlan("1"),
			chooser: &fakeChooser{
				chooseFn: func(ctx context.Context, variants []domain.Variant, variantSet string, epsilon float64) (*learning.Choice, error) {
					return nil, chooseErr
				},
			},
			wantErr: chooseErr,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := NewDraftingService(tt.plans, &fakeMessageRepo{}, tt.chooser, &fakeConnector{}, nil)
			_, err := svc.Draft(context.Background(), DraftInput{
				ClientSlug: "acme",
				Contacts:   []domain.Contact{contact("1", "a@x.com", 1)},
				Variants:   []domain.Variant{{ID: "A"}},
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Draft() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
