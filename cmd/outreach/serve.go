package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kursadbilgin/outreach-engine/internal/handler"
	"github.com/kursadbilgin/outreach-engine/internal/service"
	"github.com/kursadbilgin/outreach-engine/internal/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func serveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve health probes, prometheus metrics and tenant reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			server, err := newHTTPApp(a)
			if err != nil {
				return err
			}
			return listen(cmd.Context(), server, fmt.Sprintf(":%d", a.cfg.HTTPPort), a.logger)
		},
	}
}

func newHTTPApp(a *app) (*fiber.App, error) {
	server := fiber.New(fiber.Config{
		AppName:               "outreach-engine",
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(a.logger),
	})
	server.Use(recover.New())
	server.Use(requestid.New())
	server.Use(a.metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(server, a.opener, a.rdb)
	server.Get("/metrics", adaptor.HTTPHandler(a.metrics.Handler()))

	reports := service.NewReportService(a.opener, a.clients, a.logger)
	if err := handler.RegisterReportRoutes(server, reports); err != nil {
		return nil, err
	}
	return server, nil
}

// listen serves until ctx is cancelled, then drains in-flight requests.
func listen(ctx context.Context, server *fiber.App, addr string, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", addr))
		errCh <- server.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("http server shutting down")
	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
