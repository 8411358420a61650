package observability

import (
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRunCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.ObserveTenantRun("Acme", "completed", 2*time.Second)
	metrics.AddDrafted("acme", 3)
	metrics.AddDrafted("acme", 0)
	metrics.IncSent("acme", "GMAIL")
	metrics.IncFailed("acme", "")
	metrics.ObserveSendDuration("gmail", 120*time.Millisecond)
	metrics.IncRateLimited("acme")
	metrics.IncVariantSelection("acme", true)
	metrics.IncVariantSelection("acme", false)
	metrics.IncVariantSelection("acme", false)
	metrics.IncEvent("replied")

	if got := testutil.ToFloat64(metrics.tenantRunsTotal.WithLabelValues("acme", "completed")); got != 1 {
		t.Fatalf("tenant_runs_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.messagesDraftedTotal.WithLabelValues("acme")); got != 3 {
		t.Fatalf("messages_drafted_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.messagesSentTotal.WithLabelValues("acme", "gmail")); got != 1 {
		t.Fatalf("messages_sent_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.messagesFailedTotal.WithLabelValues("acme", "unknown")); got != 1 {
		t.Fatalf("messages_failed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.rateLimitedTotal.WithLabelValues("acme")); got != 1 {
		t.Fatalf("rate_limited_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.variantSelectionTotal.WithLabelValues("acme", "exploit")); got != 2 {
		t.Fatalf("variant_selections_total{exploit} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.eventsTotal.WithLabelValues("replied")); got != 1 {
		t.Fatalf("events_total = %v, want 1", got)
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	t.Parallel()

	var metrics *Metrics
	metrics.IncSent("acme", "gmail")
	metrics.ObserveTenantRun("acme", "failed", time.Second)
	if err := metrics.WriteToTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("WriteToTextfile() error = %v", err)
	}
}

func TestMetricsWriteToTextfile(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	metrics.IncSent("acme", "gmail")

	path := filepath.Join(t.TempDir(), "outreach.prom")
	if err := metrics.WriteToTextfile(path); err != nil {
		t.Fatalf("WriteToTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `outreach_engine_messages_sent_total{channel="gmail",client="acme"} 1`) {
		t.Fatalf("textfile missing sent counter:\n%s", data)
	}
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	_, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
