package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"aula/server/internal/model"
)

const gradeColumns = `id, assessment_id, group_id, student_id, type, description, period, weight, score, created_at, updated_at`

func (s *Store) InsertGradeItems(ctx context.Context, items []model.GradeItem) error {
	for _, item := range items {
		_, err := s.db.Exec(ctx, `
			INSERT INTO grade_items (`+gradeColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, item.ID, item.AssessmentID, item.GroupID, item.StudentID, item.Type, item.Description, item.Period, item.Weight, item.Score, item.CreatedAt, item.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetGradeItem(ctx context.Context, itemID string) (model.GradeItem, error) {
	var item model.GradeItem
	row := s.db.QueryRow(ctx, `
		SELECT `+gradeColumns+`
		FROM grade_items
		WHERE id = $1
	`, itemID)
	err := row.Scan(
		&item.ID,
		&item.AssessmentID,
		&item.GroupID,
		&item.StudentID,
		&item.Type,
		&item.Description,
		&item.Period,
		&item.Weight,
		&item.Score,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (s *Store) ListGradeItems(ctx context.Context, groupID, period string) ([]model.GradeItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+gradeColumns+`
		FROM grade_items
		WHERE group_id = $1 AND ($2 = '' OR period = $2)
		ORDER BY created_at, student_id
	`, groupID, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGradeItems(rows)
}

func (s *Store) ListGradeItemsByStudent(ctx context.Context, groupID, studentID, period string) ([]model.GradeItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+gradeColumns+`
		FROM grade_items
		WHERE group_id = $1 AND student_id = $2 AND ($3 = '' OR period = $3)
		ORDER BY created_at
	`, groupID, studentID, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGradeItems(rows)
}

// UpdateGradeScore applies a per-cell edit guarded by the updated_at
// the client last saw, so concurrent edits surface as a conflict
// instead of silently losing a write.
func (s *Store) UpdateGradeScore(ctx context.Context, itemID string, score float64, expectedUpdatedAt, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE grade_items
		SET score = $1, updated_at = $2
		WHERE id = $3 AND updated_at = $4
	`, score, now, itemID, expectedUpdatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) DeleteAssessment(ctx context.Context, groupID, assessmentID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM grade_items
		WHERE group_id = $1 AND assessment_id = $2
	`, groupID, assessmentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteGradeItemsByDefinition removes every row matching the loose
// (type, description, period) tuple, scoped to one group so identical
// descriptions elsewhere are untouched.
func (s *Store) DeleteGradeItemsByDefinition(ctx context.Context, groupID, period, itemType, description string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM grade_items
		WHERE group_id = $1 AND period = $2 AND type = $3 AND description = $4
	`, groupID, period, itemType, description)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanGradeItems(rows pgx.Rows) ([]model.GradeItem, error) {
	var items []model.GradeItem
	for rows.Next() {
		var item model.GradeItem
		if err := rows.Scan(
			&item.ID,
			&item.AssessmentID,
			&item.GroupID,
			&item.StudentID,
			&item.Type,
			&item.Description,
			&item.Period,
			&item.Weight,
			&item.Score,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
