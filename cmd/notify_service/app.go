package notifyservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"campus-carpool/internal/general/config"
	"campus-carpool/internal/general/jwt"
	"campus-carpool/internal/general/logger"
	"campus-carpool/internal/general/rabbitmq"
	"campus-carpool/internal/software/notify/service"
)

// Run wires the notify service (queue consumer + WebSocket edge) and blocks
// until ctx is cancelled.
func Run(ctx context.Context, prefetch int) error {
	logger := logger.New("notify-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	hub := service.NewHub(logger)
	wsHandler := service.NewWSHandler(logger, jwtManager, hub)
	consumer := service.NewConsumer(logger, rmq, hub, prefetch)

	mux := http.NewServeMux()
	wsHandler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.NotifyServicePort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Notify Service started on port %d", cfg.Services.NotifyServicePort),
		map[string]any{"port": cfg.Services.NotifyServicePort, "prefetch": prefetch},
	)

	// consumer and HTTP server run side by side; either one failing stops the service
	errCh := make(chan error, 2)
	go func() {
		errCh <- consumer.Run(ctx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "shutdown_started", "Notify Service shutting down", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error(ctx, "notify_service_error", "Notify Service terminated with error", err, nil)
			return err
		}
	}

	return nil
}
