package posting

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxdesk/taxdesk/internal/calendar"
	"github.com/taxdesk/taxdesk/internal/periods"
	"github.com/taxdesk/taxdesk/internal/platform/cache"
)

type stubPeriods struct {
	status periods.Status
	err    error
}

func (s stubPeriods) Find(ctx context.Context, businessID uuid.UUID, key calendar.Key) (periods.Period, error) {
	if s.err != nil {
		return periods.Period{}, s.err
	}
	return periods.Period{BusinessID: businessID, Year: key.Year, Month: key.Month, Status: s.status}, nil
}

func TestUnpostedQueueFiltersByPeriod(t *testing.T) {
	april := readyDoc("FV/9", 1, true)
	april.OccurredOn = time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	other := readyDoc("FV/8", 2, true)
	other.BusinessID = uuid.New()
	store := newFakeStore(
		readyDoc("FV/1", 1, true),
		blockedDoc("FV/2", 31, ReasonMissingCategory),
		april,
		other,
	)
	svc := NewService(store, stubPeriods{status: periods.StatusLocked}, time.UTC)

	queue, err := svc.Unposted(context.Background(), testBusiness, testPeriod)
	require.NoError(t, err)
	assert.Equal(t, 2, queue.Total)
	assert.Equal(t, periods.StatusLocked, queue.PeriodStatus)
	assert.False(t, queue.Postable)
	assert.Equal(t, "Marzec 2025", queue.Label)
	assert.Equal(t, map[Reason]int{ReasonReadyToPost: 1, ReasonMissingCategory: 1}, queue.Counts)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), queue.From)

	_, err = svc.Unposted(context.Background(), testBusiness, calendar.Key{Year: 2025})
	require.ErrorIs(t, err, calendar.ErrInvalidKey)
}

func TestUnpostedQueueWithoutPeriod(t *testing.T) {
	svc := NewService(newFakeStore(), stubPeriods{err: periods.ErrPeriodNotFound}, time.UTC)
	queue, err := svc.Unposted(context.Background(), testBusiness, testPeriod)
	require.NoError(t, err)
	assert.Empty(t, queue.PeriodStatus)
	assert.False(t, queue.Postable)
	assert.Zero(t, queue.Total)

	svc = NewService(newFakeStore(), stubPeriods{err: errBoom}, time.UTC)
	_, err = svc.Unposted(context.Background(), testBusiness, testPeriod)
	require.ErrorIs(t, err, errBoom)
}

func TestCacheInvalidatorBumpsBusinessScope(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewCache(client, time.Minute)
	ctx := context.Background()
	scope := cache.BusinessScope(testBusiness.String())

	before, err := c.Version(ctx, scope)
	require.NoError(t, err)
	require.NoError(t, NewCacheInvalidator(c).Invalidate(ctx, testBusiness))
	after, err := c.Version(ctx, scope)
	require.NoError(t, err)
	assert.Greater(t, after, before)

	var nilInvalidator *CacheInvalidator
	assert.NoError(t, nilInvalidator.Invalidate(ctx, testBusiness))
}
