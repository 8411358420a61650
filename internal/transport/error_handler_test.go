package transport

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantBody  string
		wantLevel zapcore.Level
	}{
		{
			name:      "fiber error keeps message",
			err:       fiber.NewError(fiber.StatusNotFound, "client not found"),
			wantCode:  fiber.StatusNotFound,
			wantBody:  `{"error":"client not found"}`,
			wantLevel: zapcore.WarnLevel,
		},
		{
			name:      "unexpected error is masked",
			err:       errors.New("sqlite: database is locked"),
			wantCode:  fiber.StatusInternalServerError,
			wantBody:  `{"error":"Internal Server Error"}`,
			wantLevel: zapcore.ErrorLevel,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.New(core))})
			app.Get("/fail", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()

			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if strings.TrimSpace(string(body)) != tt.wantBody {
				t.Fatalf("body = %s, want %s", body, tt.wantBody)
			}

			entries := logs.All()
			if len(entries) != 1 || entries[0].Level != tt.wantLevel {
				t.Fatalf("log entries = %+v, want one at %s", entries, tt.wantLevel)
			}
			if !strings.Contains(entries[0].ContextMap()["error"].(string), tt.err.Error()) {
				t.Fatalf("logged error = %v, want %v", entries[0].ContextMap()["error"], tt.err)
			}
		})
	}
}
