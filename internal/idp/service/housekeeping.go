package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/metrics"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
)

// HousekeepingService periodically removes expired grants, devices,
// blacklist entries and signing keys.
type HousekeepingService struct {
	Store  store.Store
	Logger *slog.Logger

	// Blacklist is swept instead of the store's own when set.
	Blacklist store.BlacklistedTokens

	Interval time.Duration
	Metrics  *metrics.Metrics
	Clock    func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// SweepResult counts the rows one sweep removed.
type SweepResult struct {
	Grants            int64 `json:"grants"`
	Devices           int64 `json:"devices"`
	BlacklistedTokens int64 `json:"blacklisted_tokens"`
	SigningKeys       int64 `json:"signing_keys"`
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop in the background until Stop is called.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep once on startup.
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	res, err := s.Sweep(context.Background())
	if err != nil {
		s.Logger.Error("housekeeping sweep incomplete", "error", err)
	}
	s.Logger.Info("housekeeping sweep completed",
		"grants", res.Grants,
		"devices", res.Devices,
		"blacklisted_tokens", res.BlacklistedTokens,
		"signing_keys", res.SigningKeys,
	)
}

// Sweep runs one pass. Each kind is swept independently; a failure in one
// does not stop the others and all failures are joined in the error.
func (s *HousekeepingService) Sweep(ctx context.Context) (SweepResult, error) {
	now := nowUTC(s.Clock)

	blacklist := s.Blacklist
	if blacklist == nil {
		blacklist = s.Store.BlacklistedTokens()
	}

	var (
		res  SweepResult
		errs []error
	)
	sweep := func(kind string, dst *int64, fn func() (int64, error)) {
		n, err := fn()
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = n
		s.Metrics.Swept(kind, n)
	}

	sweep("grants", &res.Grants, func() (int64, error) {
		return s.Store.PersistentGrants().SweepExpired(ctx, now)
	})
	sweep("devices", &res.Devices, func() (int64, error) {
		return s.Store.Devices().SweepExpired(ctx, now)
	})
	sweep("blacklisted_tokens", &res.BlacklistedTokens, func() (int64, error) {
		return blacklist.SweepExpired(ctx, now)
	})
	sweep("signing_keys", &res.SigningKeys, func() (int64, error) {
		return s.Store.SigningKeys().DeleteExpiredSigningKeys(ctx, now)
	})

	return res, errors.Join(errs...)
}
