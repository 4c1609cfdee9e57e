package service

import (
	"time"

	"campus-carpool/internal/general/logger"
	"campus-carpool/internal/ports"
)

// bookingService composes the seat ledger, the join-request state machine and
// the ride lifecycle rules on top of the transactional repositories.
type bookingService struct {
	logger        *logger.Logger
	uow           ports.UnitOfWork
	rideRepo      ports.RideRepository
	passengerRepo ports.PassengerRepository
	requestRepo   ports.JoinRequestRepository
	eventRepo     ports.RideEventRepository
	notifier      ports.Notifier
	grace         time.Duration
}

// NewBookingService creates a new instance of the BookingService with the provided dependencies.
func NewBookingService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	rideRepo ports.RideRepository,
	passengerRepo ports.PassengerRepository,
	requestRepo ports.JoinRequestRepository,
	eventRepo ports.RideEventRepository,
	notifier ports.Notifier,
	grace time.Duration,
) ports.BookingService {
	return &bookingService{
		logger:        logger,
		uow:           uow,
		rideRepo:      rideRepo,
		passengerRepo: passengerRepo,
		requestRepo:   requestRepo,
		eventRepo:     eventRepo,
		notifier:      notifier,
		grace:         grace,
	}
}
