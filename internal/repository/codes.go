package repository

import (
	"context"
	"time"

	"aula/server/internal/model"
)

func (s *Store) CreateCourseCode(ctx context.Context, code model.CourseCode) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO course_codes (id, course_id, group_id, code, active, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, code.ID, code.CourseID, code.GroupID, code.Code, code.Active, code.CreatedAt, code.ExpiresAt)
	return err
}

func (s *Store) GetActiveCourseCode(ctx context.Context, code string, now time.Time) (model.CourseCode, error) {
	var cc model.CourseCode
	row := s.db.QueryRow(ctx, `
		SELECT id, course_id, group_id, code, active, created_at, expires_at
		FROM course_codes
		WHERE code = $1 AND active = true AND expires_at > $2
	`, code, now)
	err := row.Scan(&cc.ID, &cc.CourseID, &cc.GroupID, &cc.Code, &cc.Active, &cc.CreatedAt, &cc.ExpiresAt)
	return cc, err
}

func (s *Store) ListCourseCodesByGroup(ctx context.Context, groupID string, limit int32) ([]model.CourseCode, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, course_id, group_id, code, active, created_at, expires_at
		FROM course_codes
		WHERE group_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, groupID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []model.CourseCode
	for rows.Next() {
		var cc model.CourseCode
		if err := rows.Scan(&cc.ID, &cc.CourseID, &cc.GroupID, &cc.Code, &cc.Active, &cc.CreatedAt, &cc.ExpiresAt); err != nil {
			return nil, err
		}
		codes = append(codes, cc)
	}
	return codes, rows.Err()
}

// DeactivateExpiredCodes flips active off for codes past expiry;
// the sweep job calls this on a ticker.
func (s *Store) DeactivateExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE course_codes
		SET active = false
		WHERE active = true AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
