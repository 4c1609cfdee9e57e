package expiryservice

import (
	"context"

	"campus-carpool/internal/general/config"
	"campus-carpool/internal/general/logger"
	"campus-carpool/internal/general/postgres"
	"campus-carpool/internal/general/rabbitmq"
	"campus-carpool/internal/ports"
	"campus-carpool/internal/software/expiry/service"
)

// Run wires the expiry sweeper and blocks until ctx is cancelled.
func Run(ctx context.Context) error {
	logger := logger.New("expiry-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// the sweeper notifies drivers whose rides expire; a broken broker must
	// not stop the sweep, so the connection failure is only logged
	var notifier ports.Notifier
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "RabbitMQ unavailable, expiry notifications disabled", err, nil)
	} else {
		defer rmq.Close()
		notifier = rabbitmq.NewNotifier(rmq, "expiry-service")
	}

	uow := postgres.NewUnitOfWork(pool)
	rideRepo := postgres.NewRideRepo()

	sweeper := service.NewSweeper(
		logger,
		uow,
		rideRepo,
		notifier,
		cfg.GracePeriod(),
		cfg.SweepInterval(),
		cfg.Booking.SweepBatchSize,
	)

	return sweeper.Run(ctx)
}
