package repository

import (
	"context"
	"time"

	"aula/server/internal/model"
)

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, role, email, password_hash, first_name, last_name, dni, phone, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, user.ID, user.Role, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.DNI, user.Phone, user.Active, user.CreatedAt, user.UpdatedAt)
	return err
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	var user model.User
	row := s.db.QueryRow(ctx, `
		SELECT id, role, email, password_hash, first_name, last_name, dni, phone, active, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID)
	err := row.Scan(
		&user.ID,
		&user.Role,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.DNI,
		&user.Phone,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	row := s.db.QueryRow(ctx, `
		SELECT id, role, email, password_hash, first_name, last_name, dni, phone, active, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)
	err := row.Scan(
		&user.ID,
		&user.Role,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.DNI,
		&user.Phone,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// ListUsers returns users filtered by role and active flag. Substring
// filtering over display fields happens in memory at the handler, so
// the query stays a plain indexed scan.
func (s *Store) ListUsers(ctx context.Context, role string, active *bool, limit int32) ([]model.User, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, role, email, password_hash, first_name, last_name, dni, phone, active, created_at, updated_at
		FROM users
		WHERE ($1 = '' OR role = $1)
		  AND ($2::boolean IS NULL OR active = $2)
		ORDER BY last_name, first_name
		LIMIT $3
	`, role, active, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var user model.User
		if err := rows.Scan(
			&user.ID,
			&user.Role,
			&user.Email,
			&user.PasswordHash,
			&user.FirstName,
			&user.LastName,
			&user.DNI,
			&user.Phone,
			&user.Active,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, user model.User) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET email = $1, first_name = $2, last_name = $3, dni = $4, phone = $5, updated_at = $6
		WHERE id = $7
	`, user.Email, user.FirstName, user.LastName, user.DNI, user.Phone, user.UpdatedAt, user.ID)
	return err
}

// SetUserActive toggles the active flag. Users are never deleted.
func (s *Store) SetUserActive(ctx context.Context, userID string, active bool, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET active = $1, updated_at = $2
		WHERE id = $3
	`, active, at, userID)
	return err
}
