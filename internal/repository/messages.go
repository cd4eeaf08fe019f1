package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"aula/server/internal/model"
)

const messageColumns = `id, sender_id, recipient_id, subject, body, read_at, created_at`

func (s *Store) CreateMessage(ctx context.Context, message model.Message) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, message.ID, message.SenderID, message.RecipientID, message.Subject, message.Body, message.ReadAt, message.CreatedAt)
	return err
}

func (s *Store) ListInbox(ctx context.Context, userID string, limit int32) ([]model.Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *Store) ListSent(ctx context.Context, userID string, limit int32) ([]model.Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE sender_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *Store) GetMessage(ctx context.Context, messageID string) (model.Message, error) {
	var message model.Message
	row := s.db.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE id = $1
	`, messageID)
	err := row.Scan(&message.ID, &message.SenderID, &message.RecipientID, &message.Subject, &message.Body, &message.ReadAt, &message.CreatedAt)
	return message, err
}

func (s *Store) MarkMessageRead(ctx context.Context, messageID string, readAt time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE messages
		SET read_at = $1
		WHERE id = $2 AND read_at IS NULL
	`, readAt, messageID)
	return err
}

func scanMessages(rows pgx.Rows) ([]model.Message, error) {
	var messages []model.Message
	for rows.Next() {
		var message model.Message
		if err := rows.Scan(&message.ID, &message.SenderID, &message.RecipientID, &message.Subject, &message.Body, &message.ReadAt, &message.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}
