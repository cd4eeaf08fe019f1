package repository

import (
	"context"
	"time"

	"aula/server/internal/model"
)

func (s *Store) CreateRegistrationToken(ctx context.Context, token model.RegistrationToken) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO registration_tokens (id, token_hash, role, email, first_name, last_name, used_at, used_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, token.ID, token.TokenHash, token.Role, token.Email, token.FirstName, token.LastName, token.UsedAt, token.UsedBy, token.CreatedAt)
	return err
}

func (s *Store) GetRegistrationTokenByHash(ctx context.Context, tokenHash string) (model.RegistrationToken, error) {
	var token model.RegistrationToken
	row := s.db.QueryRow(ctx, `
		SELECT id, token_hash, role, email, first_name, last_name, used_at, used_by, created_at
		FROM registration_tokens
		WHERE token_hash = $1
	`, tokenHash)
	err := row.Scan(
		&token.ID,
		&token.TokenHash,
		&token.Role,
		&token.Email,
		&token.FirstName,
		&token.LastName,
		&token.UsedAt,
		&token.UsedBy,
		&token.CreatedAt,
	)
	return token, err
}

func (s *Store) ListRegistrationTokens(ctx context.Context, limit int32) ([]model.RegistrationToken, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, token_hash, role, email, first_name, last_name, used_at, used_by, created_at
		FROM registration_tokens
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []model.RegistrationToken
	for rows.Next() {
		var token model.RegistrationToken
		if err := rows.Scan(
			&token.ID,
			&token.TokenHash,
			&token.Role,
			&token.Email,
			&token.FirstName,
			&token.LastName,
			&token.UsedAt,
			&token.UsedBy,
			&token.CreatedAt,
		); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// MarkTokenUsed stamps the token exactly once. The WHERE used_at IS
// NULL guard makes the second redemption report false.
func (s *Store) MarkTokenUsed(ctx context.Context, tokenID, userID string, usedAt time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE registration_tokens
		SET used_at = $1, used_by = $2
		WHERE id = $3 AND used_at IS NULL
	`, usedAt, userID, tokenID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) DeleteRegistrationToken(ctx context.Context, tokenID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM registration_tokens WHERE id = $1`, tokenID)
	return err
}
