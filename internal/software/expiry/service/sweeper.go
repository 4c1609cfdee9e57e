package service

import (
	"context"
	"time"

	"campus-carpool/internal/general/logger"
	"campus-carpool/internal/observability"
	"campus-carpool/internal/ports"
)

// Sweeper periodically expires rides whose departure time plus the grace
// window has passed. Each ride flips via a compare-and-set, so the sweep can
// run concurrently with user mutations and with other sweeper replicas
// without resurrecting cancelled or completed rides.
type Sweeper struct {
	logger    *logger.Logger
	uow       ports.UnitOfWork
	rideRepo  ports.RideRepository
	notifier  ports.Notifier
	grace     time.Duration
	interval  time.Duration
	batchSize int
}

// NewSweeper creates the expiry sweeper with the provided dependencies.
func NewSweeper(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	rideRepo ports.RideRepository,
	notifier ports.Notifier,
	grace time.Duration,
	interval time.Duration,
	batchSize int,
) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Sweeper{
		logger:    logger,
		uow:       uow,
		rideRepo:  rideRepo,
		notifier:  notifier,
		grace:     grace,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run blocks, sweeping once immediately and then on every tick, until ctx is
// cancelled.
func (sweeper *Sweeper) Run(ctx context.Context) error {
	sweeper.logger.Info(ctx, "sweeper_started", "Expiry sweeper started", map[string]any{
		"grace_period":   sweeper.grace.String(),
		"sweep_interval": sweeper.interval.String(),
		"batch_size":     sweeper.batchSize,
	})

	ticker := time.NewTicker(sweeper.interval)
	defer ticker.Stop()

	for {
		if err := sweeper.SweepOnce(ctx); err != nil {
			sweeper.logger.Error(ctx, "sweep_failed", "Expiry sweep failed", err, nil)
		}

		select {
		case <-ctx.Done():
			sweeper.logger.Info(ctx, "sweeper_stopped", "Expiry sweeper stopped", nil)
			return nil
		case <-ticker.C:
		}
	}
}

// SweepOnce expires one batch of overdue rides. Idempotent: a ride already
// expired (by a previous sweep or the lazy read-path check) is skipped by the
// candidate query, and a concurrent status change makes MarkExpired a no-op.
func (sweeper *Sweeper) SweepOnce(ctx context.Context) error {
	now := time.Now().UTC()
	cutoff := now.Add(-sweeper.grace)

	var expired []expiredRide

	err := sweeper.uow.WithinTx(ctx, func(txCtx context.Context) error {
		candidates, err := sweeper.rideRepo.ListExpiryCandidates(txCtx, cutoff, sweeper.batchSize)
		if err != nil {
			return err
		}

		for _, r := range candidates {
			// the evaluator is the single source of expiry truth; the SQL
			// cutoff is only a pre-filter
			if !r.ExpiryAt(now, sweeper.grace).IsExpired {
				continue
			}

			changed, err := sweeper.rideRepo.MarkExpired(txCtx, r.ID, now)
			if err != nil {
				return err
			}
			if !changed {
				continue
			}

			ex := expiredRide{rideID: r.ID, driverID: r.DriverID, from: r.FromLocation, to: r.ToLocation}
			expired = append(expired, ex)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, ex := range expired {
		observability.RidesExpiredTotal.Inc()

		rideCtx := sweeper.logger.WithRideID(ctx, ex.rideID)
		sweeper.logger.Info(rideCtx, "ride_expired", "Ride marked expired by the sweep", map[string]any{
			"driver_id": ex.driverID,
		})

		if sweeper.notifier == nil {
			continue
		}
		if err := sweeper.notifier.Notify(ctx, ports.Notification{
			Kind:         ports.NotifyRideExpired,
			RecipientID:  ex.driverID,
			RideID:       ex.rideID,
			FromLocation: ex.from,
			ToLocation:   ex.to,
		}); err != nil {
			observability.NotificationPublishFailures.Inc()
			sweeper.logger.Error(rideCtx, "notification_publish_failed", "Failed to publish expiry notification", err, nil)
			continue
		}
		observability.NotificationsPublishedTotal.WithLabelValues(string(ports.NotifyRideExpired)).Inc()
	}

	return nil
}

type expiredRide struct {
	rideID   string
	driverID string
	from     string
	to       string
}
