package services

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mapsmyway/heli-backend/internal/database"
)

// HoldExpirationService sweeps lapsed seat holds in the background. This is
// hygiene only: the capacity query already excludes expired holds, so booking
// correctness never depends on the sweeper running.
type HoldExpirationService struct {
	bookingRepo *database.BookingRepository
	logger      *logrus.Logger
	stopCh      chan struct{}
	interval    time.Duration
}

// NewHoldExpirationService creates a new hold expiration service
func NewHoldExpirationService(
	bookingRepo *database.BookingRepository,
	interval time.Duration,
	logger *logrus.Logger,
) *HoldExpirationService {
	return &HoldExpirationService{
		bookingRepo: bookingRepo,
		logger:      logger,
		stopCh:      make(chan struct{}),
		interval:    interval,
	}
}

// Start begins the background sweep job
func (s *HoldExpirationService) Start() {
	s.logger.WithField("interval", s.interval.String()).Info("Starting hold expiration sweeper")
	go s.run()
}

// Stop stops the background sweep job
func (s *HoldExpirationService) Stop() {
	s.logger.Info("Stopping hold expiration sweeper")
	close(s.stopCh)
}

func (s *HoldExpirationService) run() {
	// Run immediately on start
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			s.logger.Info("Hold expiration sweeper stopped")
			return
		}
	}
}

func (s *HoldExpirationService) sweep() {
	expired, err := s.bookingRepo.ExpireStaleHolds(100)
	if err != nil {
		s.logger.WithError(err).Error("Failed to expire stale holds")
		return
	}
	if expired > 0 {
		s.logger.WithField("count", expired).Info("Expired stale seat holds")
	}
}

// RunOnce runs a single sweep cycle (useful for tests or manual trigger)
func (s *HoldExpirationService) RunOnce() {
	s.sweep()
}
