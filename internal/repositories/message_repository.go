package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"chat-relay/internal/models"
)

// Store-level bounds applied on insert.
const (
	MaxUsernameLen = 20
	MaxContentLen  = 500
)

// MessageRepository defines interactions for relay messages.
type MessageRepository interface {
	Insert(ctx context.Context, username, content, sourceAddr string) (models.Message, error)
	Recent(ctx context.Context, window time.Duration, limit int) ([]models.Message, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Insert stores a message, truncating username and content to the store bounds.
// The id and timestamp are assigned by the database.
func (r *MessageRepo) Insert(ctx context.Context, username, content, sourceAddr string) (models.Message, error) {
	username = truncateRunes(username, MaxUsernameLen)
	content = truncateRunes(content, MaxContentLen)

	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (username, content, ip_address) VALUES ($1, $2, $3) RETURNING id, username, content, "timestamp", ip_address`, username, content, sourceAddr).
		Scan(&msg.ID, &msg.Username, &msg.Content, &msg.Timestamp, &msg.IPAddress)
	return msg, err
}

// Recent returns the most recent messages inside the window, oldest first,
// capped at limit.
func (r *MessageRepo) Recent(ctx context.Context, window time.Duration, limit int) ([]models.Message, error) {
	cutoff := time.Now().Add(-window)
	query := `SELECT id, username, content, "timestamp", ip_address
        FROM messages
        WHERE "timestamp" > $1
        ORDER BY "timestamp" DESC, id DESC
        LIMIT $2`
	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, cutoff, limit); err != nil {
		return nil, err
	}
	reverse(msgs)
	return msgs, nil
}

// DeleteOlderThan removes messages with a timestamp strictly before the cutoff
// and reports how many rows were removed.
func (r *MessageRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE "timestamp" < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func reverse(msgs []models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
