package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"github.com/kursadbilgin/outreach-engine/internal/service"
)

type ReportService interface {
	Metrics(ctx context.Context, slug string) (service.OutreachMetrics, error)
	Variants(ctx context.Context, slug string) ([]service.VariantPerformance, error)
	LatestPlan(ctx context.Context, slug string) (*domain.OutreachPlan, error)
}

type ReportHandler struct {
	service ReportService
}

func NewReportHandler(service ReportService) (*ReportHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("report service is required")
	}
	return &ReportHandler{service: service}, nil
}

func RegisterReportRoutes(router fiber.Router, service ReportService) error {
	h, err := NewReportHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/clients/:slug/metrics", h.GetMetrics)
	v1.Get("/clients/:slug/variants", h.ListVariants)
	v1.Get("/clients/:slug/plan", h.GetPlan)

	return nil
}

type planResponse struct {
	ClientSlug       string            `json:"client_slug"`
	GeneratedAt      string            `json:"generated_at"`
	Targets          []string          `json:"targets"`
	DailyCap         int               `json:"daily_cap"`
	Variant          string            `json:"variant"`
	ReasonsByContact map[string]string `json:"reasons_by_contact"`
}

type variantsResponse struct {
	Data []service.VariantPerformance `json:"data"`
}

func (h *ReportHandler) GetMetrics(c *fiber.Ctx) error {
	slug, err := slugParam(c)
	if err != nil {
		return toHTTPError(err)
	}

	metrics, err := h.service.Metrics(c.Context(), slug)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(metrics)
}

func (h *ReportHandler) ListVariants(c *fiber.Ctx) error {
	slug, err := slugParam(c)
	if err != nil {
		return toHTTPError(err)
	}

	variants, err := h.service.Variants(c.Context(), slug)
	if err != nil {
		return toHTTPError(err)
	}
	if variants == nil {
		variants = []service.VariantPerformance{}
	}

	return c.Status(fiber.StatusOK).JSON(variantsResponse{Data: variants})
}

func (h *ReportHandler) GetPlan(c *fiber.Ctx) error {
	slug, err := slugParam(c)
	if err != nil {
		return toHTTPError(err)
	}

	plan, err := h.service.LatestPlan(c.Context(), slug)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toPlanResponse(plan))
}

func slugParam(c *fiber.Ctx) (string, error) {
	slug := strings.TrimSpace(c.Params("slug"))
	if slug == "" {
		return "", fmt.Errorf("%w: client slug is required", domain.ErrValidation)
	}
	return slug, nil
}

func toPlanResponse(p *domain.OutreachPlan) planResponse {
	if p == nil {
		return planResponse{}
	}

	targets := p.Targets
	if targets == nil {
		targets = []string{}
	}
	reasons := p.ReasonsByContact
	if reasons == nil {
		reasons = map[string]string{}
	}

	return planResponse{
		ClientSlug:       p.ClientSlug,
		GeneratedAt:      p.GeneratedAt.UTC().Format(time.RFC3339),
		Targets:          targets,
		DailyCap:         p.DailyCap,
		Variant:          p.Variant,
		ReasonsByContact: reasons,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
