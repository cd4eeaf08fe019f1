package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"aula/server/internal/model"
)

const attendanceColumns = `id, student_id, group_id, date, status, check_in, check_out, note, created_at, updated_at`

func (s *Store) ListAttendanceByGroupDate(ctx context.Context, groupID, date string) ([]model.AttendanceRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance_records
		WHERE group_id = $1 AND date = $2
	`, groupID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttendance(rows)
}

func (s *Store) ListAttendanceByGroupRange(ctx context.Context, groupID, fromDate, toDate string) ([]model.AttendanceRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance_records
		WHERE group_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date DESC
	`, groupID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttendance(rows)
}

func (s *Store) ListAttendanceByStudent(ctx context.Context, studentID string, limit int32) ([]model.AttendanceRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance_records
		WHERE student_id = $1
		ORDER BY date DESC
		LIMIT $2
	`, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttendance(rows)
}

// InsertAttendanceRecord is the check-in path: a duplicate
// (student, group, date) surfaces as a unique violation the handler
// maps to already_registered.
func (s *Store) InsertAttendanceRecord(ctx context.Context, record model.AttendanceRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO attendance_records (`+attendanceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, record.ID, record.StudentID, record.GroupID, record.Date, record.Status, record.CheckIn, record.CheckOut, record.Note, record.CreatedAt, record.UpdatedAt)
	return err
}

// UpsertAttendanceRecord is the bulk-save path: the reconciled session
// replaces the scope's state keyed by the natural uniqueness tuple
// instead of delete-then-insert.
func (s *Store) UpsertAttendanceRecord(ctx context.Context, record model.AttendanceRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO attendance_records (`+attendanceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (student_id, group_id, date) DO UPDATE
		SET status = EXCLUDED.status,
		    check_in = EXCLUDED.check_in,
		    check_out = EXCLUDED.check_out,
		    note = EXCLUDED.note,
		    updated_at = EXCLUDED.updated_at
	`, record.ID, record.StudentID, record.GroupID, record.Date, record.Status, record.CheckIn, record.CheckOut, record.Note, record.CreatedAt, record.UpdatedAt)
	return err
}

func scanAttendance(rows pgx.Rows) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	for rows.Next() {
		var record model.AttendanceRecord
		if err := rows.Scan(
			&record.ID,
			&record.StudentID,
			&record.GroupID,
			&record.Date,
			&record.Status,
			&record.CheckIn,
			&record.CheckOut,
			&record.Note,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
