package posting

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/taxdesk/taxdesk/internal/calendar"
	"github.com/taxdesk/taxdesk/internal/periods"
	"github.com/taxdesk/taxdesk/internal/platform/cache"
)

// Queue is the classified unposted queue of one business and month.
type Queue struct {
	Period       calendar.Key   `json:"period"`
	Label        string         `json:"label"`
	From         time.Time      `json:"from"`
	To           time.Time      `json:"to"`
	PeriodStatus periods.Status `json:"period_status,omitempty"`
	Postable     bool           `json:"postable"`
	Total        int            `json:"total"`
	Counts       map[Reason]int `json:"counts"`
	Groups       Groups         `json:"groups"`
}

// PeriodLookup finds the accounting period covering a month.
type PeriodLookup interface {
	Find(ctx context.Context, businessID uuid.UUID, key calendar.Key) (periods.Period, error)
}

// Service exposes read-side views over the posting store.
type Service struct {
	store   Store
	periods PeriodLookup
	loc     *time.Location
}

// NewService constructs Service; lookup may be nil and loc defaults to
// time.Local.
func NewService(store Store, lookup PeriodLookup, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, periods: lookup, loc: loc}
}

// Unposted classifies the unposted documents dated inside period.
func (s *Service) Unposted(ctx context.Context, businessID uuid.UUID, period calendar.Key) (Queue, error) {
	if !period.Valid() {
		return Queue{}, calendar.ErrInvalidKey
	}
	window := calendar.PeriodRange(period, s.loc)
	docs, err := s.store.FetchUnposted(ctx, businessID, window)
	if err != nil {
		return Queue{}, err
	}
	groups := Classify(docs)
	queue := Queue{
		Period: period,
		Label:  calendar.Label(period),
		From:   window.From,
		To:     window.To,
		Total:  groups.Total(),
		Counts: groups.Counts(),
		Groups: groups,
	}
	if s.periods != nil {
		p, err := s.periods.Find(ctx, businessID, period)
		switch {
		case err == nil:
			queue.PeriodStatus = p.Status
			queue.Postable = p.Status.Postable()
		case !errors.Is(err, periods.ErrPeriodNotFound):
			return Queue{}, err
		}
	}
	return queue, nil
}

// Accounts lists the active ledger accounts of a business.
func (s *Service) Accounts(ctx context.Context, businessID uuid.UUID) ([]Account, error) {
	return s.store.ListAccounts(ctx, businessID)
}

// CacheInvalidator bumps the cached setup views of a business after posting.
type CacheInvalidator struct {
	cache *cache.Cache
}

// NewCacheInvalidator wraps c.
func NewCacheInvalidator(c *cache.Cache) *CacheInvalidator {
	return &CacheInvalidator{cache: c}
}

// Invalidate bumps the business cache scope.
func (i *CacheInvalidator) Invalidate(ctx context.Context, businessID uuid.UUID) error {
	if i == nil || i.cache == nil {
		return nil
	}
	return i.cache.Bump(ctx, cache.BusinessScope(businessID.String()))
}
