package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xtrntr/p2pexchange/internal/exchange"
	"github.com/xtrntr/p2pexchange/internal/metrics"
	"github.com/xtrntr/p2pexchange/internal/models"
)

type fakeExpirer struct {
	mu      sync.Mutex
	orders  []models.Order
	calls   int
	failing bool
}

func (f *fakeExpirer) ExpireOrders(_ context.Context, now time.Time) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failing {
		return nil, errors.New("database unavailable")
	}

	var ids []int64
	for i := range f.orders {
		if f.orders[i].Status == models.StatusPublic && !f.orders[i].ExpiresAt.After(now) {
			f.orders[i].Status = models.StatusExpired
			ids = append(ids, f.orders[i].ID)
		}
	}
	return ids, nil
}

func (f *fakeExpirer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestScheduler_RunOnce(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	orders := []models.Order{
		{ID: 1, Type: models.OrderTypeBuy, Premium: decimal.Zero, Status: models.StatusPublic, ExpiresAt: now.Add(-time.Minute)},
		{ID: 2, Type: models.OrderTypeSell, Premium: decimal.Zero, Status: models.StatusPublic, ExpiresAt: now.Add(time.Hour)},
		{ID: 3, Type: models.OrderTypeSell, Premium: decimal.Zero, Status: models.StatusPublic, ExpiresAt: now},
	}

	store := &fakeExpirer{orders: append([]models.Order(nil), orders...)}
	book := exchange.NewBook()
	book.Load(orders)

	s := NewScheduler("@every 1m", store, book, zerolog.Nop(), metrics.NopMetrics())
	s.now = func() time.Time { return now }

	expired, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	buys, sells := book.GetOrderBook()
	assert.Empty(t, buys)
	require.Len(t, sells, 1)
	assert.Equal(t, int64(2), sells[0].ID)

	// nothing left to expire
	expired, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestScheduler_RunOnceError(t *testing.T) {
	store := &fakeExpirer{failing: true}
	s := NewScheduler("@every 1m", store, exchange.NewBook(), zerolog.Nop(), metrics.NopMetrics())

	_, err := s.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	store := &fakeExpirer{}
	s := NewScheduler("@every 1s", store, exchange.NewBook(), zerolog.Nop(), metrics.NopMetrics())

	require.NoError(t, s.Start())
	assert.Eventually(t, func() bool { return store.callCount() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := NewScheduler("not a schedule", &fakeExpirer{}, exchange.NewBook(), zerolog.Nop(), metrics.NopMetrics())
	assert.Error(t, s.Start())
}
