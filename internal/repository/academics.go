package repository

import (
	"context"
	"time"

	"aula/server/internal/model"
)

// Courses, grade levels and sections are small lookup tables managed
// by admins.

func (s *Store) CreateCourse(ctx context.Context, course model.Course) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO courses (id, name, description)
		VALUES ($1, $2, $3)
	`, course.ID, course.Name, course.Description)
	return err
}

func (s *Store) GetCourse(ctx context.Context, courseID string) (model.Course, error) {
	var course model.Course
	row := s.db.QueryRow(ctx, `SELECT id, name, description FROM courses WHERE id = $1`, courseID)
	err := row.Scan(&course.ID, &course.Name, &course.Description)
	return course, err
}

func (s *Store) ListCourses(ctx context.Context, limit int32) ([]model.Course, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, description FROM courses ORDER BY name LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var course model.Course
		if err := rows.Scan(&course.ID, &course.Name, &course.Description); err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, rows.Err()
}

func (s *Store) CreateGradeLevel(ctx context.Context, level model.GradeLevel) error {
	_, err := s.db.Exec(ctx, `INSERT INTO grade_levels (id, name) VALUES ($1, $2)`, level.ID, level.Name)
	return err
}

func (s *Store) ListGradeLevels(ctx context.Context, limit int32) ([]model.GradeLevel, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM grade_levels ORDER BY name LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []model.GradeLevel
	for rows.Next() {
		var level model.GradeLevel
		if err := rows.Scan(&level.ID, &level.Name); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, rows.Err()
}

func (s *Store) CreateSection(ctx context.Context, section model.Section) error {
	_, err := s.db.Exec(ctx, `INSERT INTO sections (id, name) VALUES ($1, $2)`, section.ID, section.Name)
	return err
}

func (s *Store) ListSections(ctx context.Context, limit int32) ([]model.Section, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM sections ORDER BY name LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []model.Section
	for rows.Next() {
		var section model.Section
		if err := rows.Scan(&section.ID, &section.Name); err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	return sections, rows.Err()
}

// Groups

func (s *Store) CreateGroup(ctx context.Context, group model.Group) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO groups (id, course_id, grade_level_id, section_id, school_year, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, group.ID, group.CourseID, group.GradeLevelID, group.SectionID, group.SchoolYear, group.CreatedAt)
	return err
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (model.Group, error) {
	var group model.Group
	row := s.db.QueryRow(ctx, `
		SELECT g.id, g.course_id, g.grade_level_id, g.section_id, g.school_year, g.created_at, gp.professor_id
		FROM groups g
		LEFT JOIN group_professors gp ON gp.group_id = g.id
		WHERE g.id = $1
	`, groupID)
	err := row.Scan(&group.ID, &group.CourseID, &group.GradeLevelID, &group.SectionID, &group.SchoolYear, &group.CreatedAt, &group.ProfessorID)
	return group, err
}

func (s *Store) ListGroups(ctx context.Context, schoolYear string, limit int32) ([]model.Group, error) {
	rows, err := s.db.Query(ctx, `
		SELECT g.id, g.course_id, g.grade_level_id, g.section_id, g.school_year, g.created_at, gp.professor_id
		FROM groups g
		LEFT JOIN group_professors gp ON gp.group_id = g.id
		WHERE ($1 = '' OR g.school_year = $1)
		ORDER BY g.created_at DESC
		LIMIT $2
	`, schoolYear, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		var group model.Group
		if err := rows.Scan(&group.ID, &group.CourseID, &group.GradeLevelID, &group.SectionID, &group.SchoolYear, &group.CreatedAt, &group.ProfessorID); err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

func (s *Store) ListGroupsByProfessor(ctx context.Context, professorID string, limit int32) ([]model.Group, error) {
	rows, err := s.db.Query(ctx, `
		SELECT g.id, g.course_id, g.grade_level_id, g.section_id, g.school_year, g.created_at, gp.professor_id
		FROM groups g
		JOIN group_professors gp ON gp.group_id = g.id
		WHERE gp.professor_id = $1
		ORDER BY g.created_at DESC
		LIMIT $2
	`, professorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		var group model.Group
		if err := rows.Scan(&group.ID, &group.CourseID, &group.GradeLevelID, &group.SectionID, &group.SchoolYear, &group.CreatedAt, &group.ProfessorID); err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM groups WHERE id = $1`, groupID)
	return err
}

// AssignProfessor replaces any prior professor relation for the group;
// a group is owned by at most one professor at a time.
func (s *Store) AssignProfessor(ctx context.Context, groupID, professorID string, at time.Time) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM group_professors WHERE group_id = $1`, groupID); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO group_professors (group_id, professor_id, created_at)
		VALUES ($1, $2, $3)
	`, groupID, professorID, at)
	return err
}

func (s *Store) IsGroupProfessor(ctx context.Context, groupID, professorID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM group_professors WHERE group_id = $1 AND professor_id = $2)
	`, groupID, professorID).Scan(&exists)
	return exists, err
}

// Roster

func (s *Store) AddRosterMember(ctx context.Context, member model.RosterMember) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO group_students (group_id, student_id, created_at)
		VALUES ($1, $2, $3)
	`, member.GroupID, member.StudentID, member.CreatedAt)
	return err
}

func (s *Store) RemoveRosterMember(ctx context.Context, groupID, studentID string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM group_students WHERE group_id = $1 AND student_id = $2
	`, groupID, studentID)
	return err
}

// ListRoster returns the group's students with the denormalized
// display fields the dashboard filters on.
func (s *Store) ListRoster(ctx context.Context, groupID string) ([]model.User, error) {
	rows, err := s.db.Query(ctx, `
		SELECT u.id, u.role, u.email, u.password_hash, u.first_name, u.last_name, u.dni, u.phone, u.active, u.created_at, u.updated_at
		FROM group_students gs
		JOIN users u ON u.id = gs.student_id
		WHERE gs.group_id = $1
		ORDER BY u.last_name, u.first_name
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.User
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
		students = append(students, user)
	}
	return students, rows.Err()
}

func (s *Store) IsRosterMember(ctx context.Context, groupID, studentID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM group_students WHERE group_id = $1 AND student_id = $2)
	`, groupID, studentID).Scan(&exists)
	return exists, err
}

// Schedule

func (s *Store) CreateScheduleEntry(ctx context.Context, entry model.ScheduleEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO schedule_entries (id, group_id, weekday, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.ID, entry.GroupID, entry.Weekday, entry.StartsAt, entry.EndsAt)
	return err
}

func (s *Store) ListSchedule(ctx context.Context, groupID string) ([]model.ScheduleEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, group_id, weekday, starts_at, ends_at
		FROM schedule_entries
		WHERE group_id = $1
		ORDER BY weekday, starts_at
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.ScheduleEntry
	for rows.Next() {
		var entry model.ScheduleEntry
		if err := rows.Scan(&entry.ID, &entry.GroupID, &entry.Weekday, &entry.StartsAt, &entry.EndsAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) DeleteScheduleEntry(ctx context.Context, entryID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM schedule_entries WHERE id = $1`, entryID)
	return err
}
