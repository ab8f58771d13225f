package repositories

import (
	"context"
	"sync"
	"time"

	"chat-relay/internal/models"
)

// MemoryMessageRepo is an in-process MessageRepository. It is the default
// backend when no database DSN is configured; nothing survives a restart.
type MemoryMessageRepo struct {
	mu     sync.Mutex
	msgs   []models.Message
	nextID int64
}

// NewMemoryMessageRepo constructs an empty in-memory repository.
func NewMemoryMessageRepo() *MemoryMessageRepo {
	return &MemoryMessageRepo{nextID: 1}
}

// Insert stores a message with a fresh id and the current time, truncating
// username and content to the store bounds.
func (r *MemoryMessageRepo) Insert(ctx context.Context, username, content, sourceAddr string) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := models.Message{
		ID:        r.nextID,
		Username:  truncateRunes(username, MaxUsernameLen),
		Content:   truncateRunes(content, MaxContentLen),
		Timestamp: time.Now(),
		IPAddress: sourceAddr,
	}
	r.nextID++
	r.msgs = append(r.msgs, msg)
	return msg, nil
}

// Recent returns the most recent messages inside the window, oldest first,
// capped at limit.
func (r *MemoryMessageRepo) Recent(ctx context.Context, window time.Duration, limit int) ([]models.Message, error) {
	cutoff := time.Now().Add(-window)

	r.mu.Lock()
	defer r.mu.Unlock()

	var inWindow []models.Message
	for _, m := range r.msgs {
		if m.Timestamp.After(cutoff) {
			inWindow = append(inWindow, m)
		}
	}
	if len(inWindow) > limit {
		inWindow = inWindow[len(inWindow)-limit:]
	}
	out := make([]models.Message, len(inWindow))
	copy(out, inWindow)
	return out, nil
}

// DeleteOlderThan removes messages with a timestamp strictly before the cutoff.
func (r *MemoryMessageRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.msgs[:0]
	var deleted int64
	for _, m := range r.msgs {
		if m.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	r.msgs = kept
	return deleted, nil
}

var _ MessageRepository = (*MemoryMessageRepo)(nil)
