package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-relay/internal/events"
	"github.com/capitalize-ai/chat-relay/internal/model"
	"github.com/capitalize-ai/chat-relay/pkg/logger"
	"github.com/capitalize-ai/chat-relay/pkg/metrics"
)

// Sweeper evicts conversations that have been idle longer than the
// retention window. It runs on its own ticker, independent of request
// handling, and stops when its context is cancelled.
type Sweeper struct {
	store     *Store
	interval  time.Duration
	maxAge    time.Duration
	publisher events.Publisher
	logger    *logger.Logger

	now func() time.Time
}

// NewSweeper creates a retention sweeper for the given store.
func NewSweeper(store *Store, interval, maxAge time.Duration, publisher events.Publisher, log *logger.Logger) *Sweeper {
	return &Sweeper{
		store:     store,
		interval:  interval,
		maxAge:    maxAge,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// Run executes sweep cycles until ctx is cancelled. It is meant to be
// started once from main in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("retention sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("max_age", s.maxAge),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			evicted := s.sweep(s.now())
			if evicted > 0 {
				s.logger.Info("sweep cycle complete", zap.Int("evicted", evicted))
			}
		}
	}
}

// sweep runs one scan-and-evict cycle against the retention cutoff derived
// from now. Candidates are collected from a consistent snapshot, then each
// deletion re-checks idleness under the store's write lock so a refreshed
// conversation survives. Returns the number of conversations evicted.
func (s *Sweeper) sweep(now time.Time) int {
	cutoff := now.Add(-s.maxAge)

	var candidates []string
	for _, summary := range s.store.ListSummaries() {
		if summary.LastActivity.Before(cutoff) {
			candidates = append(candidates, summary.ID)
		}
	}

	evicted := 0
	for _, id := range candidates {
		if !s.store.EvictIfIdle(id, cutoff) {
			// Refreshed or already deleted since the scan; not an error.
			continue
		}
		evicted++
		metrics.ConversationsEvicted.Inc()
		s.logger.Info("evicted idle conversation", zap.String("conversation_id", id))

		if err := s.publisher.Publish(context.Background(), model.Event{
			Type:           model.EventConversationEvicted,
			ConversationID: id,
			Timestamp:      now,
		}); err != nil {
			s.logger.Warn("failed to publish eviction event",
				zap.String("conversation_id", id),
				zap.Error(err),
			)
		}
	}

	return evicted
}
