package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, fromUsername, toUsername, text string) (models.Message, error)
	Thread(ctx context.Context, userA, userB string) ([]models.Message, error)
	AllForUser(ctx context.Context, username string) ([]models.Message, error)
	All(ctx context.Context) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create stores a direct message. Timestamps are assigned by the database.
func (r *MessageRepo) Create(ctx context.Context, fromUsername, toUsername, text string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (from_username, to_username, text) VALUES ($1, $2, $3) RETURNING id, from_username, to_username, text, created_at, updated_at`, fromUsername, toUsername, text).
		StructScan(&msg)
	return msg, err
}

// Thread returns both directions of a two-user exchange, oldest first.
// The query is symmetric: Thread(a, b) and Thread(b, a) match the same rows.
func (r *MessageRepo) Thread(ctx context.Context, userA, userB string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, from_username, to_username, text, created_at, updated_at
        FROM messages
        WHERE (from_username=$1 AND to_username=$2) OR (from_username=$2 AND to_username=$1)
        ORDER BY created_at ASC, id ASC`, userA, userB)
	return msgs, err
}

// AllForUser returns every message the user sent or received, newest first.
// This feeds the conversation aggregation, which relies on the descending order.
func (r *MessageRepo) AllForUser(ctx context.Context, username string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, from_username, to_username, text, created_at, updated_at
        FROM messages
        WHERE from_username=$1 OR to_username=$1
        ORDER BY created_at DESC, id DESC`, username)
	return msgs, err
}

// All returns the full message log, oldest first.
//
// Deprecated: legacy read without addressee filtering, kept for clients of
// the old broadcast-log model. Prefer Thread and AllForUser.
func (r *MessageRepo) All(ctx context.Context) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, from_username, to_username, text, created_at, updated_at
        FROM messages ORDER BY created_at ASC, id ASC`)
	return msgs, err
}
