package setup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taxdesk/taxdesk/internal/business"
	"github.com/taxdesk/taxdesk/internal/obligations"
	"github.com/taxdesk/taxdesk/internal/platform/cache"
	"github.com/taxdesk/taxdesk/internal/platform/httpx"
)

// ProfileSource loads business profiles from the store.
type ProfileSource interface {
	Profile(ctx context.Context, businessID uuid.UUID) (business.Profile, error)
}

// SignalSource counts activity signals in the store.
type SignalSource interface {
	Signals(ctx context.Context, businessID uuid.UUID) (Signals, error)
}

// Options tune a single setup-state query.
type Options struct {
	// Refresh discards the cached signal snapshot before reading.
	Refresh bool
}

// Service assembles SetupState snapshots.
type Service struct {
	profiles ProfileSource
	signals  SignalSource
	cache    *cache.Cache
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the service. cache may be nil.
func NewService(profiles ProfileSource, signals SignalSource, c *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{profiles: profiles, signals: signals, cache: c, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GetSetupState computes a fresh snapshot for the business.
func (s *Service) GetSetupState(ctx context.Context, businessID uuid.UUID, opts Options) (State, error) {
	profile, err := s.profile(ctx, businessID)
	if err != nil {
		return State{}, err
	}
	signals, err := s.loadSignals(ctx, businessID, opts.Refresh)
	if err != nil {
		return State{}, err
	}
	return Resolve(profile, signals, s.now()), nil
}

// GetObligationsTimeline returns the timeline of the business as of at. A zero
// at uses the service clock.
func (s *Service) GetObligationsTimeline(ctx context.Context, businessID uuid.UUID, at time.Time) ([]obligations.Obligation, error) {
	profile, err := s.profile(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = s.now()
	}
	return obligations.Timeline(profile, at), nil
}

func (s *Service) profile(ctx context.Context, businessID uuid.UUID) (business.Profile, error) {
	if businessID == uuid.Nil {
		return business.Profile{}, fmt.Errorf("%w: business id required", httpx.ErrValidation)
	}
	profile, err := s.profiles.Profile(ctx, businessID)
	if err != nil {
		return business.Profile{}, err
	}
	if err := profile.Validate(); err != nil {
		return business.Profile{}, fmt.Errorf("setup: %w", err)
	}
	return profile, nil
}

func (s *Service) loadSignals(ctx context.Context, businessID uuid.UUID, refresh bool) (Signals, error) {
	scope := cache.BusinessScope(businessID.String())
	if refresh {
		if err := s.cache.Bump(ctx, scope); err != nil {
			s.logger.Warn("setup cache bump", slog.Any("error", err))
		}
	}
	key, err := s.cache.BuildKey(ctx, scope, "signals")
	if err != nil {
		s.logger.Warn("setup cache key", slog.Any("error", err))
		return s.signals.Signals(ctx, businessID)
	}
	var signals Signals
	err = s.cache.FetchJSON(ctx, key, &signals, func(ctx context.Context) (any, error) {
		return s.signals.Signals(ctx, businessID)
	})
	if err != nil {
		return Signals{}, err
	}
	return signals, nil
}
