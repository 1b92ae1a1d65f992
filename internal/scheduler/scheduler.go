// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/xtrntr/p2pexchange/internal/metrics"
)

// Expirer is the store operation the expiry job runs
type Expirer interface {
	ExpireOrders(ctx context.Context, now time.Time) ([]int64, error)
}

// Book drops expired orders from the public book
type Book interface {
	RemoveOrder(id int64) bool
}

// Scheduler expires public orders on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	store    Expirer
	book     Book
	timeout  time.Duration
	now      func() time.Time
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// NewScheduler creates a new scheduler. schedule accepts standard cron
// expressions and descriptors such as "@every 1m".
func NewScheduler(schedule string, store Expirer, book Book, log zerolog.Logger, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		schedule: schedule,
		store:    store,
		book:     book,
		timeout:  30 * time.Second,
		now:      time.Now,
		log:      log.With().Str("component", "scheduler").Logger(),
		metrics:  m,
	}
}

// Start registers the expiry job and starts the cron scheduler
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Error().Err(err).Msg("order expiry failed")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Str("schedule", s.schedule).Msg("scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunOnce expires every public order past its expiry time and returns how many were expired
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	ids, err := s.store.ExpireOrders(ctx, s.now())
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		s.book.RemoveOrder(id)
	}
	if len(ids) > 0 {
		s.metrics.OrdersExpired.Add(float64(len(ids)))
		s.log.Info().Int("count", len(ids)).Msg("orders expired")
	}
	return len(ids), nil
}
