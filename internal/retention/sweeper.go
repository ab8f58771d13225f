package retention

import (
	"context"
	"log"
	"time"

	"chat-relay/internal/observability"
	"chat-relay/internal/repositories"
)

// Sweeper periodically deletes messages older than the retention window.
// Sweeps are best-effort: a failed pass is logged and retried only on the
// next scheduled tick.
type Sweeper struct {
	messageRepo repositories.MessageRepository
	window      time.Duration
	interval    time.Duration
}

// NewSweeper constructs a Sweeper.
func NewSweeper(messageRepo repositories.MessageRepository, window, interval time.Duration) *Sweeper {
	return &Sweeper{
		messageRepo: messageRepo,
		window:      window,
		interval:    interval,
	}
}

// Run sweeps once immediately, then on every interval tick until the context
// is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.window)

	deleted, err := s.messageRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("retention sweep failed: %v", err)
		observability.IncSweep("failure")
		_ = observability.PublishEvent(ctx, "retention.sweeps", observability.EventEnvelope{
			EventType: "retention",
			EventName: "sweep_failed",
			Payload:   map[string]interface{}{"reason": err.Error()},
		}, nil)
		return
	}

	log.Printf("retention sweep removed %d messages", deleted)
	observability.IncSweep("success")
	observability.AddSweptMessages(deleted)
	_ = observability.PublishEvent(ctx, "retention.sweeps", observability.EventEnvelope{
		EventType: "retention",
		EventName: "sweep_completed",
		Payload:   map[string]interface{}{"deleted": deleted},
	}, nil)
}
